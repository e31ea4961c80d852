// Package view turns validated report payloads into display-ready models.
// Every number shown on a page is rounded, banded and colored here through
// the score package, so renderers only lay the values out.
package view

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/lamim/assessment-reports/internal/assessment"
	"github.com/lamim/assessment-reports/internal/score"
)

const (
	// DefaultLogo is used when a company has no logo of its own
	DefaultLogo = "/logo.png"
	// Owner is printed in every footer
	Owner = "Panorama Management Advisory Services"
	// Notice is the confidentiality line of every footer
	Notice = "Confidential & Proprietary"
	// NoSummary replaces a missing business overview description
	NoSummary = "No summary available."
	// BusinessOverviewKey is the description key of the overview section
	BusinessOverviewKey = "Business Overview"
)

// pie slice colors for yes, no and unsure on the standard report
var overallColors = [3]string{"#33FF57", "#FF5733", "#FFC300"}

// Number is a display value that may be NaN. It prints NaN as "NaN" and
// serializes it as null.
type Number float64

// Float returns the value as float64
func (n Number) Float() float64 {
	return float64(n)
}

// IsNaN reports whether the value is NaN
func (n Number) IsNaN() bool {
	return math.IsNaN(float64(n))
}

// String formats the value without trailing zeros
func (n Number) String() string {
	f := float64(n)
	if math.IsNaN(f) {
		return "NaN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// MarshalJSON writes null for NaN and infinities
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// MetricView is one labelled percentage with its count and dot color
type MetricView struct {
	Label   string  `json:"label"`
	Percent Number  `json:"percent"`
	Count   float64 `json:"count"`
	Color   string  `json:"color"`
}

// GaugeView positions a five-band gauge
type GaugeView struct {
	Percent  Number `json:"percent"`
	Fraction Number `json:"fraction"`
	Band     string `json:"band"`
	Color    string `json:"color"`
}

// BlockView is a block or sub-block with its gauge and metrics
type BlockView struct {
	Name        string       `json:"name"`
	Gauge       GaugeView    `json:"gauge"`
	Metrics     []MetricView `json:"metrics"`
	Description Description  `json:"description"`
	SubBlocks   []BlockView  `json:"sub_blocks,omitempty"`
}

// CompanyView is the company header of a report
type CompanyView struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
	Logo    string `json:"logo"`
}

// LegendEntry is one band of the color legend
type LegendEntry struct {
	Label string `json:"label"`
	Class string `json:"class"`
	Color string `json:"color"`
}

// Footer closes every printed page
type Footer struct {
	Year   int    `json:"year"`
	Owner  string `json:"owner"`
	Notice string `json:"notice"`
}

// Legend lists the five bands from worst to best
func Legend() []LegendEntry {
	entries := make([]LegendEntry, 0, 5)
	for _, b := range score.Bands() {
		entries = append(entries, LegendEntry{Label: b.Label(), Class: b.CSSClass(), Color: b.Color()})
	}
	return entries
}

func footer(now time.Time) Footer {
	return Footer{Year: now.Year(), Owner: Owner, Notice: Notice}
}

func companyView(c assessment.CompanyInformation) CompanyView {
	logo := c.CompanyLogo
	if logo == "" {
		logo = DefaultLogo
	}
	return CompanyView{Name: c.CompanyName, Website: c.Website, Logo: logo}
}

// gaugeFromPercent builds a gauge whose needle sits at the rounded displayed
// percentage.
func gaugeFromPercent(pct float64) GaugeView {
	rounded := score.RoundHalfUp(pct)
	band := score.ColorBand(rounded)
	return GaugeView{
		Percent:  Number(rounded),
		Fraction: Number(rounded / 100),
		Band:     band.Label(),
		Color:    band.Color(),
	}
}

// gaugeFromCounts builds a gauge whose needle is derived from the raw
// counts, while the label still shows the API percentage.
func gaugeFromCounts(m assessment.Metrics) GaugeView {
	rounded := score.RoundHalfUp(m.YesPercentage.Float())
	fraction := score.GaugeFraction(m.Yes, m.No, m.Unsure)
	band := score.ColorBand(fraction * 100)
	return GaugeView{
		Percent:  Number(rounded),
		Fraction: Number(fraction),
		Band:     band.Label(),
		Color:    band.Color(),
	}
}

// metrics returns yes, no and unsure entries. With fixed colors the entries
// take the given colors; otherwise each is colored by its own raw percentage.
func metrics(m assessment.Metrics, fixed *[3]string) []MetricView {
	raw := [3]float64{m.YesPercentage.Float(), m.NoPercentage.Float(), m.UnsurePercentage.Float()}
	counts := [3]float64{m.Yes, m.No, m.Unsure}
	labels := [3]string{"Yes", "No", "Unsure"}

	out := make([]MetricView, 0, 3)
	for i := range labels {
		color := ""
		if fixed != nil {
			color = fixed[i]
		} else {
			color = score.ColorBand(raw[i]).Color()
		}
		out = append(out, MetricView{
			Label:   labels[i],
			Percent: Number(score.RoundHalfUp(raw[i])),
			Count:   counts[i],
			Color:   color,
		})
	}
	return out
}

// orderedParents lists distinct parent keys in first-seen order, skipping
// empty keys.
func orderedParents[T any](records []T, parent func(T) string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		key := parent(r)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	return out
}

// usDate formats a date the way a US browser prints a short locale date
func usDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("1/2/2006")
}
