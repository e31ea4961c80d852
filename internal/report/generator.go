// Package report renders built report views as HTML, Markdown and JSON files.
package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"

	"github.com/lamim/assessment-reports/internal/view"
)

// Output formats
const (
	FormatHTML     = "html"
	FormatMarkdown = "md"
	FormatJSON     = "json"
)

// Formats lists every supported format
var Formats = []string{FormatHTML, FormatMarkdown, FormatJSON}

// ErrUnknownFormat is returned for a format outside Formats
var ErrUnknownFormat = errors.New("unknown report format")

// ErrUnsupportedView is returned when a document holds no known view
var ErrUnsupportedView = errors.New("unsupported report view")

// Document is one built view plus the kind and id it was built for
type Document struct {
	Kind        string    `json:"kind"`
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	View        any       `json:"report"`
}

// NewDocument stamps a view with its kind, id and the current time
func NewDocument(kind, id string, v any) Document {
	return Document{Kind: kind, ID: id, GeneratedAt: time.Now().UTC(), View: v}
}

// Output describes one written file
type Output struct {
	Format string
	Path   string
	Size   int
}

// Generator writes rendered documents into an output directory
type Generator struct {
	outputDir string
}

// NewGenerator creates a new report generator
func NewGenerator(outputDir string) *Generator {
	return &Generator{outputDir: outputDir}
}

// OutputDir returns the directory files are written to
func (g *Generator) OutputDir() string {
	return g.outputDir
}

// Render writes the document in every requested format
func (g *Generator) Render(doc Document, formats []string) ([]Output, error) {
	if err := os.MkdirAll(g.outputDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	outputs := make([]Output, 0, len(formats))
	for _, format := range formats {
		data, err := Bytes(doc, format)
		if err != nil {
			return outputs, fmt.Errorf("failed to generate %s report: %w", format, err)
		}
		path := filepath.Join(g.outputDir, FileName(doc, format))
		if err := os.WriteFile(path, data, 0640); err != nil {
			return outputs, fmt.Errorf("failed to write %s report: %w", format, err)
		}
		outputs = append(outputs, Output{Format: format, Path: path, Size: len(data)})
	}
	return outputs, nil
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns <kind>-<id>.<ext> with the id reduced to safe characters
func FileName(doc Document, format string) string {
	id := strings.Trim(unsafeName.ReplaceAllString(doc.ID, "_"), "._")
	if id == "" {
		id = "report"
	}
	return fmt.Sprintf("%s-%s.%s", doc.Kind, id, format)
}

// ContentType returns the HTTP content type of a format
func ContentType(format string) string {
	switch format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatJSON:
		return "application/json"
	default:
		return "text/html; charset=utf-8"
	}
}

// Bytes renders the document in one format
func Bytes(doc Document, format string) ([]byte, error) {
	switch format {
	case FormatHTML:
		page, err := HTML(doc)
		return []byte(page), err
	case FormatMarkdown:
		out, err := Markdown(doc)
		return []byte(out), err
	case FormatJSON:
		return JSON(doc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// HTML renders a self-contained printable page
func HTML(doc Document) (string, error) {
	switch v := doc.View.(type) {
	case view.StandardReport:
		return renderStandard(v), nil
	case view.CompanyAverageReport:
		return renderCompany(v), nil
	case view.ComparisonReport:
		return renderComparison(v), nil
	case view.IndividualReport:
		return renderIndividual(v), nil
	case view.InvoiceView:
		return renderInvoice(v, doc.GeneratedAt.Year()), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedView, doc.View)
	}
}

// Markdown converts the HTML page to Markdown. Drawings are dropped; every
// chart is followed by a data table that survives the conversion.
func Markdown(doc Document) (string, error) {
	page, err := HTML(doc)
	if err != nil {
		return "", err
	}
	dom, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	dom.Find("svg, style, script, head").Remove()
	body, err := dom.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to serialize html: %w", err)
	}
	out, err := md.ConvertString(body)
	if err != nil {
		return "", fmt.Errorf("failed to convert to markdown: %w", err)
	}
	return strings.TrimSpace(out) + "\n", nil
}

// JSON serializes the document with its view model
func JSON(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return buf.Bytes(), nil
}
