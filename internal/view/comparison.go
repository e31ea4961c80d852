package view

import (
	"math"
	"strconv"
	"time"

	"github.com/lamim/assessment-reports/internal/assessment"
	"github.com/lamim/assessment-reports/internal/score"
)

const (
	// DefaultComparisonTitle is used when a comparison report has no name
	DefaultComparisonTitle = "User Comparison Report"
	// NoReportData is shown instead of a comparison report without any rows
	NoReportData = "No data found for this report."
	// NoHeatmapData is shown instead of an empty heatmap
	NoHeatmapData = "No data available for heatmap."

	// ChartMax is the upper bound of the y axis of every line chart
	ChartMax = 120
)

// UserPalette colors chart series by user index, wrapping around
var UserPalette = []string{
	"#4E79A7", "#F28E2B", "#59A14F", "#E15759", "#76B7B2",
	"#EDC948", "#B07AA1", "#FF9DA7", "#9C755F", "#BAB0AC",
	"#D4A6C8", "#86BCB6", "#F4A261", "#2A9D8F", "#E9C46A",
}

// reference line colors
const (
	medianColor = "#B07AA1"
	minColor    = "#E15759"
	maxColor    = "#59A14F"
)

// ComparisonReport compares users of one company side by side
type ComparisonReport struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Date           string      `json:"date"`
	Empty          bool        `json:"empty"`
	Heatmap        HeatmapView `json:"heatmap"`
	BlockChart     *ChartView  `json:"block_chart,omitempty"`
	SubBlockCharts []ChartView `json:"sub_block_charts"`
	Footer         Footer      `json:"footer"`
}

// HeatmapView is a users by blocks grid of yes percentages
type HeatmapView struct {
	Title  string       `json:"title"`
	Users  []string     `json:"users"`
	Blocks []string     `json:"blocks"`
	Cells  [][]HeatCell `json:"cells"`
}

// Empty reports whether the heatmap has no rows
func (h HeatmapView) Empty() bool {
	return len(h.Users) == 0
}

// HeatCell is one heatmap cell. Missing cells are not Present.
type HeatCell struct {
	Value   Number `json:"value"`
	Color   string `json:"color"`
	Present bool   `json:"present"`
}

// ChartView is a line chart with one series per column
type ChartView struct {
	Title   string          `json:"title"`
	XLabels []string        `json:"x_labels"`
	Series  []SeriesView    `json:"series"`
	Stats   score.Stats     `json:"stats"`
	Lines   []ReferenceLine `json:"reference_lines,omitempty"`
	Max     float64         `json:"max"`
}

// SeriesView is one line of a chart. Missing points are NaN.
type SeriesView struct {
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Dash   string   `json:"dash,omitempty"`
	Values []Number `json:"values"`
}

// ReferenceLine is a horizontal marker such as the median
type ReferenceLine struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// BuildComparison builds the user comparison report
func BuildComparison(r assessment.ComparisonReport, id string, now time.Time) ComparisonReport {
	title := r.Name
	if title == "" {
		title = DefaultComparisonTitle
	}
	out := ComparisonReport{
		ID:      id,
		Title:   title,
		Date:    usDate(now),
		Heatmap: buildHeatmap(r.ReportData),
		Footer:  footer(now),
	}

	charts := r.Charts()
	blocks := charts.Blocks
	subs := charts.Subblock1
	out.Empty = len(r.ReportData) == 0 && len(blocks) == 0 && len(subs) == 0

	if len(blocks) > 0 {
		chart := buildChart("Team Comparison - Overall Blocks", blocks)
		out.BlockChart = &chart
	}

	groups := score.GroupByParent(subs, assessment.Row.ParentBlock)
	for _, cat := range orderedParents(subs, assessment.Row.ParentBlock) {
		out.SubBlockCharts = append(out.SubBlockCharts,
			buildChart("Team Comparison - "+cat+" Sub-blocks", groups[cat]))
	}
	return out
}

func buildHeatmap(entries []assessment.HeatmapEntry) HeatmapView {
	h := HeatmapView{Title: "Overall Performance Heatmap"}

	type key struct{ user, block string }
	values := make(map[key]float64)
	userSeen := make(map[string]bool)
	blockSeen := make(map[string]bool)

	for _, e := range entries {
		user := e.Key()
		for _, c := range e.Blocks {
			if !c.YesPercentage.Numeric() {
				continue
			}
			v := c.YesPercentage.Float()
			if !userSeen[user] {
				userSeen[user] = true
				h.Users = append(h.Users, user)
			}
			if !blockSeen[c.BlockName] {
				blockSeen[c.BlockName] = true
				h.Blocks = append(h.Blocks, c.BlockName)
			}
			values[key{user, c.BlockName}] = v
		}
	}

	h.Cells = make([][]HeatCell, len(h.Users))
	for i, u := range h.Users {
		row := make([]HeatCell, len(h.Blocks))
		for j, b := range h.Blocks {
			v, ok := values[key{u, b}]
			if !ok {
				row[j] = HeatCell{Value: Number(math.NaN()), Color: score.HeatColor(math.NaN())}
				continue
			}
			row[j] = HeatCell{Value: Number(score.RoundOrZero(v)), Color: score.HeatColor(v), Present: true}
		}
		h.Cells[i] = row
	}
	return h
}

// columnUnion lists every column name across rows in first-seen order
func columnUnion(rows []assessment.Row) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range rows {
		for _, c := range r.Columns {
			if !seen[c.Name] {
				seen[c.Name] = true
				names = append(names, c.Name)
			}
		}
	}
	return names
}

func buildChart(title string, rows []assessment.Row) ChartView {
	chart := ChartView{Title: title, Max: ChartMax}
	users := columnUnion(rows)

	var all []float64
	for _, r := range rows {
		chart.XLabels = append(chart.XLabels, r.Label())
	}
	for i, u := range users {
		s := SeriesView{Name: u, Color: UserPalette[i%len(UserPalette)]}
		for _, r := range rows {
			v, ok := r.Value(u)
			if !ok {
				s.Values = append(s.Values, Number(math.NaN()))
				continue
			}
			s.Values = append(s.Values, Number(v))
			all = append(all, v)
		}
		chart.Series = append(chart.Series, s)
	}

	st := score.Summarize(all)
	st.Average = oneDecimal(st.Average)
	st.Median = oneDecimal(st.Median)
	st.Min = oneDecimal(st.Min)
	st.Max = oneDecimal(st.Max)
	chart.Stats = st

	for _, ref := range []ReferenceLine{
		{Label: "Median", Value: st.Median, Color: medianColor},
		{Label: "Min", Value: st.Min, Color: minColor},
		{Label: "Max", Value: st.Max, Color: maxColor},
	} {
		if ref.Value > 0 {
			chart.Lines = append(chart.Lines, ref)
		}
	}
	return chart
}

func oneDecimal(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 1, 64), 64)
	return f
}
