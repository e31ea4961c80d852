package report

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/lamim/assessment-reports/internal/score"
	"github.com/lamim/assessment-reports/internal/view"
)

// Chart geometry
const (
	gaugeWidth  = 200
	gaugeHeight = 120
	gaugeRadius = 80

	chartWidth   = 900
	chartHeight  = 420
	chartLeft    = 50
	chartRight   = 30
	chartTop     = 20
	chartBottom  = 140
	pieRadius    = 90
	pieSize      = 220
	tickInterval = 20
)

func polar(cx, cy, r, deg float64) (float64, float64) {
	rad := deg * math.Pi / 180
	return cx + r*math.Cos(rad), cy - r*math.Sin(rad)
}

// clampFraction keeps a gauge needle on the dial; NaN parks it at zero.
func clampFraction(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	return math.Max(0, math.Min(1, f))
}

// writeGauge draws a five-level semicircle with the needle at the gauge
// fraction.
func writeGauge(b *strings.Builder, g view.GaugeView) {
	cx, cy := float64(gaugeWidth)/2, float64(gaugeRadius+10)
	fmt.Fprintf(b, `<svg class="gauge" viewBox="0 0 %d %d" width="%d" height="%d" role="img" aria-label="%s%%">`,
		gaugeWidth, gaugeHeight, gaugeWidth, gaugeHeight, g.Percent)

	colors := score.BandColors()
	step := 180.0 / float64(len(colors))
	for i, c := range colors {
		x1, y1 := polar(cx, cy, gaugeRadius, 180-step*float64(i))
		x2, y2 := polar(cx, cy, gaugeRadius, 180-step*float64(i+1))
		fmt.Fprintf(b, `<path d="M %.2f %.2f A %d %d 0 0 1 %.2f %.2f" stroke="%s" stroke-width="18" fill="none"/>`,
			x1, y1, gaugeRadius, gaugeRadius, x2, y2, c)
	}

	nx, ny := polar(cx, cy, gaugeRadius-12, 180-180*clampFraction(g.Fraction.Float()))
	fmt.Fprintf(b, `<line class="needle" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="#333" stroke-width="3"/>`, cx, cy, nx, ny)
	fmt.Fprintf(b, `<circle cx="%.2f" cy="%.2f" r="5" fill="#333"/>`, cx, cy)
	fmt.Fprintf(b, `<text x="%.2f" y="%d" text-anchor="middle" class="gauge-label">%s%%</text>`, cx, gaugeHeight-4, g.Percent)
	b.WriteString(`</svg>`)
}

// writePie draws the overall yes/no/unsure split. Slices without a usable
// positive percentage are skipped.
func writePie(b *strings.Builder, slices []view.MetricView) {
	total := 0.0
	for _, s := range slices {
		if v := s.Percent.Float(); !math.IsNaN(v) && v > 0 {
			total += v
		}
	}
	c := float64(pieSize) / 2
	fmt.Fprintf(b, `<svg class="pie" viewBox="0 0 %d %d" width="%d" height="%d">`, pieSize, pieSize, pieSize, pieSize)
	if total == 0 {
		fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="%d" fill="#eeeeee"/></svg>`, c, c, pieRadius)
		return
	}

	start := 90.0
	for _, s := range slices {
		v := s.Percent.Float()
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		sweep := v / total * 360
		if sweep >= 359.999 {
			fmt.Fprintf(b, `<circle cx="%.1f" cy="%.1f" r="%d" fill="%s"><title>%s</title></circle>`,
				c, c, pieRadius, s.Color, html.EscapeString(s.Label))
			break
		}
		x1, y1 := polar(c, c, pieRadius, start)
		x2, y2 := polar(c, c, pieRadius, start-sweep)
		large := 0
		if sweep > 180 {
			large = 1
		}
		fmt.Fprintf(b, `<path d="M %.1f %.1f L %.2f %.2f A %d %d 0 %d 1 %.2f %.2f Z" fill="%s"><title>%s %s%%</title></path>`,
			c, c, x1, y1, pieRadius, pieRadius, large, x2, y2, s.Color, html.EscapeString(s.Label), s.Percent)
		start -= sweep
	}
	b.WriteString(`</svg>`)
}

// writeLineChart draws one polyline per series on a fixed 0..Max axis.
// NaN points break the line.
func writeLineChart(b *strings.Builder, c view.ChartView) {
	plotW := float64(chartWidth - chartLeft - chartRight)
	plotH := float64(chartHeight - chartTop - chartBottom)
	maxY := c.Max
	if maxY <= 0 {
		maxY = view.ChartMax
	}
	n := len(c.XLabels)
	x := func(i int) float64 {
		if n <= 1 {
			return chartLeft + plotW/2
		}
		return chartLeft + plotW*float64(i)/float64(n-1)
	}
	y := func(v float64) float64 {
		v = math.Max(0, math.Min(maxY, v))
		return chartTop + plotH*(1-v/maxY)
	}

	fmt.Fprintf(b, `<svg class="line-chart" viewBox="0 0 %d %d" width="100%%" preserveAspectRatio="xMidYMid meet">`, chartWidth, chartHeight)

	for t := 0.0; t <= maxY; t += tickInterval {
		fmt.Fprintf(b, `<line x1="%d" y1="%.2f" x2="%d" y2="%.2f" stroke="#e5e5e5" stroke-dasharray="3 3"/>`,
			chartLeft, y(t), chartWidth-chartRight, y(t))
		fmt.Fprintf(b, `<text x="%d" y="%.2f" text-anchor="end" class="tick">%g</text>`, chartLeft-6, y(t)+4, t)
	}
	for i, label := range c.XLabels {
		fmt.Fprintf(b, `<text transform="translate(%.2f,%d) rotate(-45)" text-anchor="end" class="tick">%s</text>`,
			x(i), chartHeight-chartBottom+16, html.EscapeString(label))
	}

	for _, ref := range c.Lines {
		fmt.Fprintf(b, `<line class="reference" x1="%d" y1="%.2f" x2="%d" y2="%.2f" stroke="%s" stroke-dasharray="6 4"/>`,
			chartLeft, y(ref.Value), chartWidth-chartRight, y(ref.Value), ref.Color)
		fmt.Fprintf(b, `<text x="%d" y="%.2f" text-anchor="end" class="ref-label" fill="%s">%s %g</text>`,
			chartWidth-chartRight, y(ref.Value)-4, ref.Color, ref.Label, ref.Value)
	}

	for _, s := range c.Series {
		dash := ""
		if s.Dash != "" && s.Dash != "0" {
			dash = fmt.Sprintf(` stroke-dasharray="%s"`, s.Dash)
		}
		var pts []string
		flush := func() {
			if len(pts) > 0 {
				fmt.Fprintf(b, `<polyline class="series" data-series="%s" points="%s" fill="none" stroke="%s" stroke-width="2"%s/>`,
					html.EscapeString(s.Name), strings.Join(pts, " "), s.Color, dash)
			}
			pts = pts[:0]
		}
		for i, v := range s.Values {
			if v.IsNaN() {
				flush()
				continue
			}
			pts = append(pts, fmt.Sprintf("%.2f,%.2f", x(i), y(v.Float())))
		}
		flush()
	}
	b.WriteString(`</svg>`)

	b.WriteString(`<div class="chart-legend">`)
	for _, s := range c.Series {
		fmt.Fprintf(b, `<span class="legend-item"><span class="swatch" style="background:%s"></span>%s</span>`,
			s.Color, html.EscapeString(s.Name))
	}
	b.WriteString(`</div>`)
}
