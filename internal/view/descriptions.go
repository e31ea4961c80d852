package view

import (
	"bytes"
	"html/template"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
)

// minSimilarity is the lowest Levenshtein similarity accepted for a fuzzy
// description match.
const minSimilarity = 0.85

// Description is a block description in Markdown together with its HTML
// rendering.
type Description struct {
	Text string        `json:"text,omitempty"`
	HTML template.HTML `json:"-"`
}

// Empty reports whether there is no description text
func (d Description) Empty() bool {
	return strings.TrimSpace(d.Text) == ""
}

// Descriptions resolves block names to description text. API payloads are
// inconsistent about case and spelling of block names, so lookups fall back
// from an exact key to a case-folded key to the closest key by edit distance.
type Descriptions struct {
	entries map[string]string
	folded  map[string]string
	keys    []string
	md      goldmark.Markdown
}

// NewDescriptions indexes a description map. A nil map is valid.
func NewDescriptions(entries map[string]string) *Descriptions {
	d := &Descriptions{
		entries: make(map[string]string, len(entries)),
		folded:  make(map[string]string, len(entries)),
		md:      goldmark.New(),
	}
	for k, v := range entries {
		d.entries[k] = v
		d.keys = append(d.keys, k)
	}
	sort.Strings(d.keys)
	for _, k := range d.keys {
		f := fold(k)
		if _, ok := d.folded[f]; !ok {
			d.folded[f] = k
		}
	}
	return d
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Lookup returns the description text for name
func (d *Descriptions) Lookup(name string) (string, bool) {
	if d == nil || len(d.entries) == 0 {
		return "", false
	}
	if v, ok := d.entries[name]; ok {
		return v, true
	}
	f := fold(name)
	if key, ok := d.folded[f]; ok {
		return d.entries[key], true
	}

	best, bestScore := "", 0.0
	for _, k := range d.keys {
		s := similarity(f, fold(k))
		if s > bestScore {
			best, bestScore = k, s
		}
	}
	if bestScore > minSimilarity {
		return d.entries[best], true
	}
	return "", false
}

// Describe looks up name and renders the text as Markdown
func (d *Descriptions) Describe(name string) Description {
	text, ok := d.Lookup(name)
	if !ok {
		return Description{}
	}
	return d.render(text)
}

// DescribeOr is Describe with a fallback text when name is unknown
func (d *Descriptions) DescribeOr(name, fallback string) Description {
	text, ok := d.Lookup(name)
	if !ok || strings.TrimSpace(text) == "" {
		text = fallback
	}
	return d.render(text)
}

func (d *Descriptions) render(text string) Description {
	var buf bytes.Buffer
	var conv goldmark.Markdown
	if d != nil && d.md != nil {
		conv = d.md
	} else {
		conv = goldmark.New()
	}
	// goldmark omits raw HTML unless WithUnsafe is set, so the output is safe
	// to embed.
	if err := conv.Convert([]byte(text), &buf); err != nil {
		return Description{Text: text, HTML: template.HTML(template.HTMLEscapeString(text))}
	}
	return Description{Text: text, HTML: template.HTML(buf.String())} // #nosec G203 - sanitized by goldmark
}

func similarity(a, b string) float64 {
	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
