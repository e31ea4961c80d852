// Package score converts raw yes/no/unsure tallies and percentages into
// display-ready values: rounded percentages, gauge fractions, and color bands.
//
// Every report view goes through this package so identical inputs always
// produce identical rounded numbers, gauge positions, and colors. All
// functions are pure and safe for concurrent use.
package score

import (
	"math"
	"strconv"
	"strings"
)

// Band is one of five qualitative tiers mapped from a percentage.
type Band int

const (
	// Band1 is the worst tier (pct <= 20)
	Band1 Band = iota + 1
	// Band2 covers 20 < pct <= 40
	Band2
	// Band3 covers 40 < pct <= 60
	Band3
	// Band4 covers 60 < pct <= 80
	Band4
	// Band5 is the best tier (pct > 80)
	Band5
)

var bandColors = map[Band]string{
	Band1: "#dc4e44",
	Band2: "#f89827",
	Band3: "#efda1f",
	Band4: "#09bd4f",
	Band5: "#156935",
}

var bandLabels = map[Band]string{
	Band1: "Poor",
	Band2: "Bad",
	Band3: "Average",
	Band4: "Good",
	Band5: "Excellent",
}

// Color returns the hex color token for the band
func (b Band) Color() string {
	return bandColors[b]
}

// Label returns the legend label for the band
func (b Band) Label() string {
	return bandLabels[b]
}

// CSSClass returns the legend class name used by the HTML renderer
func (b Band) CSSClass() string {
	return strings.ToLower(bandLabels[b])
}

// String implements fmt.Stringer
func (b Band) String() string {
	if l, ok := bandLabels[b]; ok {
		return l
	}
	return "band(" + strconv.Itoa(int(b)) + ")"
}

// Bands returns all bands from worst to best, for legends and gauge arcs.
func Bands() []Band {
	return []Band{Band1, Band2, Band3, Band4, Band5}
}

// BandColors returns the gauge arc colors from worst to best.
func BandColors() []string {
	colors := make([]string, 0, 5)
	for _, b := range Bands() {
		colors = append(colors, b.Color())
	}
	return colors
}

// RoundHalfUp rounds value to an integer, bumping up only when the fractional
// part is strictly greater than 0.5. A fraction of exactly 0.5 rounds down.
// NaN and infinities pass through unchanged.
func RoundHalfUp(value float64) float64 {
	i := math.Floor(value)
	if value-i > 0.5 {
		return i + 1
	}
	return i
}

// GaugeFraction returns the yes share of the total as a [0,1] gauge fraction,
// derived from the same rounded integer percentage that is displayed.
// A zero total yields 0. NaN inputs are not guarded.
func GaugeFraction(yes, no, unsure float64) float64 {
	total := yes + no + unsure
	if total == 0 {
		return 0
	}
	raw := yes / total * 100
	floored := math.Floor(raw)
	rounded := floored
	if raw-floored > 0.5 {
		rounded = floored + 1
	}
	return rounded / 100
}

// ColorBand maps a percentage onto a band. Boundary values (20, 40, 60, 80)
// belong to the lower band. Values are not clamped: anything below 0 lands in
// Band1 and anything above 100 in Band5. NaN fails every comparison and
// lands in Band5.
func ColorBand(pct float64) Band {
	switch {
	case pct <= 20:
		return Band1
	case pct <= 40:
		return Band2
	case pct <= 60:
		return Band3
	case pct <= 80:
		return Band4
	default:
		return Band5
	}
}

// GroupByParent groups records by the key returned from parent in a single
// stable pass. Records sharing a key keep their input order. Keys are not
// sorted and an empty key is a bucket of its own. The input is not modified.
func GroupByParent[T any](records []T, parent func(T) string) map[string][]T {
	grouped := make(map[string][]T)
	for _, r := range records {
		key := parent(r)
		grouped[key] = append(grouped[key], r)
	}
	return grouped
}

// RoundOrZero is RoundHalfUp with NaN mapped to 0, used by heatmap cells.
func RoundOrZero(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return RoundHalfUp(v)
}

// HeatColor returns a red-to-green hsl color for a percentage clamped to
// [0,100]. NaN yields a neutral gray.
func HeatColor(v float64) string {
	if math.IsNaN(v) {
		return "#cccccc"
	}
	clamped := math.Max(0, math.Min(100, v))
	hue := clamped * 120 / 100
	return "hsl(" + strconv.FormatFloat(hue, 'f', -1, 64) + ",100%,50%)"
}

// ParsePercent parses a percentage delivered as text. Surrounding spaces and a
// trailing '%' are ignored. Anything unparseable or infinite yields NaN.
func ParsePercent(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return math.NaN()
	}
	return f
}
