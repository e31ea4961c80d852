package report

import (
	"fmt"
	"html"
	"strings"

	"github.com/lamim/assessment-reports/internal/view"
)

const pageCSS = `
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: #f5f5f5;
            color: #333;
            line-height: 1.6;
            padding: 20px;
        }
        .container { max-width: 1100px; margin: 0 auto; background: white; padding: 32px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        .report-header { display: flex; justify-content: space-between; align-items: center; border-bottom: 2px solid #3498db; padding-bottom: 16px; margin-bottom: 24px; }
        .report-header img { height: 50px; }
        h1 { color: #2c3e50; }
        h2 { color: #2c3e50; margin: 28px 0 12px; padding-bottom: 6px; border-bottom: 1px solid #eee; }
        h3 { color: #34495e; margin: 18px 0 8px; }
        .meta { color: #666; font-size: 0.9em; }
        .section { margin-bottom: 32px; page-break-inside: avoid; }
        .section-desc { color: #555; margin-bottom: 12px; }
        .block { display: grid; grid-template-columns: 220px 1fr; gap: 20px; align-items: center; margin-bottom: 18px; }
        .sub-blocks { margin-left: 40px; }
        .metrics { list-style: none; }
        .metrics li { display: inline-block; margin-right: 14px; }
        .dot { display: inline-block; width: 10px; height: 10px; border-radius: 50%; margin-right: 4px; }
        .legend { display: flex; gap: 16px; margin: 12px 0 24px; }
        .legend-item { display: inline-flex; align-items: center; margin-right: 12px; font-size: 0.9em; }
        .swatch { display: inline-block; width: 14px; height: 14px; margin-right: 4px; border-radius: 3px; }
        .heatmap-grid { display: grid; gap: 4px; margin-top: 12px; }
        .heatmap-header { font-weight: 600; font-size: 0.85em; color: #666; padding: 6px; text-align: center; }
        .heatmap-user { font-weight: 600; font-size: 0.85em; padding: 6px; }
        .heatmap-cell { display: flex; align-items: center; justify-content: center; font-weight: bold; border-radius: 4px; min-height: 32px; }
        .heatmap-na { background: #f0f0f0; color: #999; }
        table { width: 100%; border-collapse: collapse; margin: 8px 0 16px; }
        th, td { padding: 8px 10px; text-align: left; border-bottom: 1px solid #eee; }
        th { background: #2c3e50; color: white; font-weight: 600; }
        .pos { color: #27ae60; font-weight: 600; }
        .neg { color: #e74c3c; font-weight: 600; }
        .stats span { margin-right: 16px; }
        .empty { color: #999; font-style: italic; }
        .status-paid { display: inline-block; background: #dcfce7; color: #15803d; padding: 4px 12px; border-radius: 12px; font-weight: 600; }
        .parties { display: grid; grid-template-columns: repeat(3, 1fr); gap: 24px; margin: 24px 0; }
        .totals td { text-align: right; }
        .report-footer { margin-top: 40px; text-align: center; color: #888; font-size: 0.85em; border-top: 1px solid #eee; padding-top: 12px; }
        @media print {
            body { background: white; padding: 0; }
            .container { box-shadow: none; padding: 0; }
            .section { page-break-after: always; }
        }
`

var esc = html.EscapeString

func writeHead(b *strings.Builder, title string) {
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>`)
	b.WriteString(esc(title))
	b.WriteString(`</title>
    <style>`)
	b.WriteString(pageCSS)
	b.WriteString(`    </style>
</head>
<body>
    <div class="container">
`)
}

func writeTail(b *strings.Builder, f view.Footer) {
	fmt.Fprintf(b, `        <footer class="report-footer"><p>© %d %s</p><div>%s</div></footer>
    </div>
</body>
</html>
`, f.Year, esc(f.Owner), esc(f.Notice))
}

func writeHeader(b *strings.Builder, logo, title string, meta ...string) {
	fmt.Fprintf(b, `        <header class="report-header"><img src="%s" alt="logo"><div class="report-info"><h1>%s</h1>`, esc(logo), esc(title))
	for _, m := range meta {
		if m == "" {
			continue
		}
		fmt.Fprintf(b, `<p class="meta">%s</p>`, esc(m))
	}
	b.WriteString("</div></header>\n")
}

func writeLegend(b *strings.Builder, title string, entries []view.LegendEntry) {
	if title != "" {
		fmt.Fprintf(b, "<h3>%s</h3>", esc(title))
	}
	b.WriteString(`<div class="legend">`)
	for _, e := range entries {
		fmt.Fprintf(b, `<span class="legend-item %s"><span class="swatch" style="background:%s"></span>%s</span>`,
			e.Class, e.Color, esc(e.Label))
	}
	b.WriteString("</div>\n")
}

func writeDescription(b *strings.Builder, d view.Description) {
	if d.Empty() {
		return
	}
	b.WriteString(`<div class="section-desc">`)
	b.WriteString(string(d.HTML))
	b.WriteString(`</div>`)
}

func writeMetrics(b *strings.Builder, ms []view.MetricView) {
	b.WriteString(`<ul class="metrics">`)
	for _, m := range ms {
		fmt.Fprintf(b, `<li><span class="dot" style="background:%s"></span>%s %s%% <span class="meta">(%g)</span></li>`,
			m.Color, esc(m.Label), m.Percent, m.Count)
	}
	b.WriteString(`</ul>`)
}

// metricSentence renders "Yes 75%, No 25%, Unsure 0%."
func metricSentence(ms []view.MetricView) string {
	parts := make([]string, 0, len(ms))
	for _, m := range ms {
		parts = append(parts, fmt.Sprintf("%s %s%%", m.Label, m.Percent))
	}
	return strings.Join(parts, ", ") + "."
}

func writeBlock(b *strings.Builder, bv view.BlockView, sentence bool) {
	fmt.Fprintf(b, `<div class="block" data-block="%s"><div>`, esc(bv.Name))
	writeGauge(b, bv.Gauge)
	fmt.Fprintf(b, `</div><div><h3>%s</h3>`, esc(bv.Name))
	writeDescription(b, bv.Description)
	if sentence {
		fmt.Fprintf(b, `<p class="metric-text">%s</p>`, esc(metricSentence(bv.Metrics)))
	} else {
		writeMetrics(b, bv.Metrics)
	}
	b.WriteString("</div></div>\n")
}

func renderStandard(r view.StandardReport) string {
	var b strings.Builder
	writeHead(&b, r.Title)
	writeHeader(&b, r.Company.Logo, r.Title, r.Company.Name, r.PreparedFor)

	b.WriteString(`<section class="section overview"><h2>Business Overview</h2>`)
	writeDescription(&b, r.Summary)
	if r.Overall != nil {
		b.WriteString(`<div class="block"><div>`)
		writePie(&b, r.Overall.Slices)
		b.WriteString(`</div><div>`)
		writeGauge(&b, r.Overall.Gauge)
		writeMetrics(&b, r.Overall.Slices)
		b.WriteString(`</div></div>`)
	}
	writeLegend(&b, "", r.Legend)
	b.WriteString("</section>\n")

	for _, bv := range r.Blocks {
		b.WriteString(`<section class="section">`)
		writeBlock(&b, bv, true)
		if len(bv.SubBlocks) > 0 {
			b.WriteString(`<div class="sub-blocks">`)
			for _, sb := range bv.SubBlocks {
				writeBlock(&b, sb, true)
			}
			b.WriteString(`</div>`)
		}
		b.WriteString("</section>\n")
	}

	writeTail(&b, r.Footer)
	return b.String()
}

func renderCompany(r view.CompanyAverageReport) string {
	var b strings.Builder
	writeHead(&b, r.Title)
	writeHeader(&b, r.Company.Logo, r.Title, "Date: "+r.Date, r.Description, "Type: "+r.Type)
	writeLegend(&b, "Assessment Metrics", r.Legend)

	b.WriteString(`<section class="section overview"><h2>Business Overview</h2>`)
	for _, bv := range r.Overview {
		writeBlock(&b, bv, false)
	}
	b.WriteString("</section>\n")

	for _, bv := range r.Blocks {
		b.WriteString(`<section class="section">`)
		writeBlock(&b, bv, false)
		if len(bv.SubBlocks) > 0 {
			b.WriteString(`<h3>Subblocks</h3><div class="sub-blocks">`)
			for _, sb := range bv.SubBlocks {
				writeBlock(&b, sb, false)
			}
			b.WriteString(`</div>`)
		}
		b.WriteString("</section>\n")
	}

	writeTail(&b, r.Footer)
	return b.String()
}

func writeChartSection(b *strings.Builder, c view.ChartView, heading string, desc view.Description) {
	fmt.Fprintf(b, `<section class="section chart"><h2>%s</h2>`, esc(heading))
	writeDescription(b, desc)
	writeLineChart(b, c)
	writeChartData(b, c)
	b.WriteString("</section>\n")
}

// writeChartData repeats the plotted values as a table
func writeChartData(b *strings.Builder, c view.ChartView) {
	b.WriteString(`<table class="chart-data"><thead><tr><th></th>`)
	for _, s := range c.Series {
		fmt.Fprintf(b, "<th>%s</th>", esc(s.Name))
	}
	b.WriteString("</tr></thead><tbody>")
	for i, label := range c.XLabels {
		fmt.Fprintf(b, "<tr><td>%s</td>", esc(label))
		for _, s := range c.Series {
			cell := ""
			if i < len(s.Values) && !s.Values[i].IsNaN() {
				cell = s.Values[i].String()
			}
			fmt.Fprintf(b, "<td>%s</td>", cell)
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
}

func writeStats(b *strings.Builder, c view.ChartView) {
	fmt.Fprintf(b, `<p class="stats"><span>Average: %.1f</span><span>Median: %.1f</span><span>Min: %.1f</span><span>Max: %.1f</span></p>`,
		c.Stats.Average, c.Stats.Median, c.Stats.Min, c.Stats.Max)
}

func renderComparison(r view.ComparisonReport) string {
	var b strings.Builder
	writeHead(&b, r.Title)
	writeHeader(&b, view.DefaultLogo, r.Title, "ID: "+r.ID, "Date: "+r.Date)

	if r.Empty {
		fmt.Fprintf(&b, `<p class="empty">%s</p>`, esc(view.NoReportData))
		writeTail(&b, r.Footer)
		return b.String()
	}

	h := r.Heatmap
	fmt.Fprintf(&b, `<section class="section heatmap"><h2>%s</h2>`, esc(h.Title))
	if h.Empty() {
		fmt.Fprintf(&b, `<p class="empty">%s</p>`, esc(view.NoHeatmapData))
	} else {
		fmt.Fprintf(&b, `<div class="heatmap-grid" style="grid-template-columns: 220px repeat(%d, 1fr)">`, len(h.Blocks))
		b.WriteString(`<div class="heatmap-header"></div>`)
		for _, blk := range h.Blocks {
			fmt.Fprintf(&b, `<div class="heatmap-header">%s</div>`, esc(blk))
		}
		for i, u := range h.Users {
			fmt.Fprintf(&b, `<div class="heatmap-user">%s</div>`, esc(u))
			for _, c := range h.Cells[i] {
				if !c.Present {
					b.WriteString(`<div class="heatmap-cell heatmap-na">-</div>`)
					continue
				}
				fmt.Fprintf(&b, `<div class="heatmap-cell" style="background:%s">%s%%</div>`, c.Color, c.Value)
			}
		}
		b.WriteString(`</div>`)
	}
	b.WriteString("</section>\n")

	if r.BlockChart != nil {
		fmt.Fprintf(&b, `<section class="section chart"><h2>%s</h2>`, esc(r.BlockChart.Title))
		writeLineChart(&b, *r.BlockChart)
		writeStats(&b, *r.BlockChart)
		writeChartData(&b, *r.BlockChart)
		b.WriteString("</section>\n")
	}
	for _, c := range r.SubBlockCharts {
		fmt.Fprintf(&b, `<section class="section chart"><h2>%s</h2>`, esc(c.Title))
		writeLineChart(&b, c)
		writeStats(&b, c)
		writeChartData(&b, c)
		b.WriteString("</section>\n")
	}

	writeTail(&b, r.Footer)
	return b.String()
}

func writeStatsTable(b *strings.Builder, t view.StatsTable) {
	fmt.Fprintf(b, `<h3>%s</h3><table class="stats-table"><thead><tr><th>%s</th><th>Company Avg</th><th>%s</th><th>Difference</th></tr></thead><tbody>`,
		esc(t.Heading), esc(t.FirstColumn), esc(t.Personal))
	for _, r := range t.Rows {
		fmt.Fprintf(b, `<tr><td>%s</td><td>%s</td><td>%s</td><td class="%s">%s</td></tr>`,
			esc(r.Label), r.CompanyAvg, r.Personal, r.Class, esc(r.DiffText))
	}
	b.WriteString("</tbody></table>")
}

func renderIndividual(r view.IndividualReport) string {
	var b strings.Builder
	writeHead(&b, r.Title)
	writeHeader(&b, view.DefaultLogo, r.Title, "ID: "+r.ID, "Date: "+r.Date)

	writeChartSection(&b, r.Overview.Chart, r.Overview.Name, r.Overview.Description)
	writeStatsTable(&b, r.Overview.Table)

	for _, s := range r.Sections {
		writeChartSection(&b, s.Chart, s.Name, s.Description)
		writeStatsTable(&b, s.Table)
	}

	writeTail(&b, r.Footer)
	return b.String()
}

func writeParty(b *strings.Builder, heading string, p view.Party) {
	fmt.Fprintf(b, `<div><h3>%s</h3><p><strong>%s</strong></p>`, esc(heading), esc(p.Name))
	for _, l := range p.Lines {
		fmt.Fprintf(b, `<p class="meta">%s</p>`, esc(l))
	}
	if p.Phone != "" {
		fmt.Fprintf(b, `<p class="meta">Phone: %s</p>`, esc(p.Phone))
	}
	if p.Email != "" {
		fmt.Fprintf(b, `<p class="meta">Email: %s</p>`, esc(p.Email))
	}
	b.WriteString(`</div>`)
}

func renderInvoice(v view.InvoiceView, year int) string {
	var b strings.Builder
	writeHead(&b, "Invoice "+v.Number)
	writeHeader(&b, v.Logo, "Invoice", "# "+v.Number, "Date: "+v.Date)

	b.WriteString(`<section class="parties">`)
	writeParty(&b, "Bill From", v.From)
	writeParty(&b, "Bill To", v.To)
	fmt.Fprintf(&b, `<div><h3>Status</h3><span class="status-paid">%s</span><p class="meta">%s</p></div>`, esc(v.Status), esc(v.PaymentOn))
	b.WriteString("</section>\n")

	b.WriteString(`<table class="items"><thead><tr><th>Item Description</th><th>Plan / Cycle</th><th>Unit Price</th><th>Qty</th><th>Amount</th></tr></thead><tbody>`)
	for _, it := range v.Items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%d</td><td>%s</td></tr>",
			esc(it.Description), esc(it.PlanCycle), esc(it.UnitPrice), it.Quantity, esc(it.Amount))
	}
	b.WriteString("</tbody></table>\n")

	fmt.Fprintf(&b, `<table class="totals"><tbody><tr><td>Subtotal</td><td>%s</td></tr><tr><td>Tax (%s)</td><td>%s</td></tr><tr><td><strong>Total</strong></td><td><strong>%s</strong></td></tr></tbody></table>`,
		esc(v.Subtotal), esc(v.TaxRate), esc(v.Tax), esc(v.Total))
	fmt.Fprintf(&b, `<p class="notes">%s</p>`, esc(v.Notes))

	writeTail(&b, view.Footer{Year: year, Owner: view.Owner, Notice: view.Notice})
	return b.String()
}
