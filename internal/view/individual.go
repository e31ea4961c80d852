package view

import (
	"math"
	"strconv"
	"time"

	"github.com/lamim/assessment-reports/internal/assessment"
	"github.com/lamim/assessment-reports/internal/score"
)

// CompanyAverageColumn is the column holding the company average
const CompanyAverageColumn = "Company Average"

var (
	overviewColors = [2]string{"#3b82f6", "#e53935"}
	sectionColors  = [2]string{"#FF6384", "#36A2EB"}
	overviewDashes = [2]string{"0", "3 3"}
	sectionDashes  = [2]string{"1 1", "5 2"}
)

// IndividualReport compares one person against the company average
type IndividualReport struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Date        string              `json:"date"`
	PersonalKey string              `json:"personal_key"`
	Overview    IndividualSection   `json:"overview"`
	Sections    []IndividualSection `json:"sections"`
	Footer      Footer              `json:"footer"`
}

// IndividualSection is a chart with its statistics table
type IndividualSection struct {
	Name        string      `json:"name"`
	Description Description `json:"description"`
	Chart       ChartView   `json:"chart"`
	Table       StatsTable  `json:"table"`
}

// StatsTable lists company average, personal value and their difference
type StatsTable struct {
	Heading     string          `json:"heading"`
	FirstColumn string          `json:"first_column"`
	Personal    string          `json:"personal"`
	Rows        []ComparisonRow `json:"rows"`
}

// ComparisonRow is one line of a StatsTable
type ComparisonRow struct {
	Label      string `json:"label"`
	CompanyAvg Number `json:"company_avg"`
	Personal   Number `json:"personal"`
	Diff       Number `json:"diff"`
	DiffText   string `json:"diff_text"`
	Class      string `json:"class"`
}

// PersonalColumn returns the first column of the first row that is not the
// company average, or "" when there is none.
func PersonalColumn(rows []assessment.Row) string {
	if len(rows) == 0 {
		return ""
	}
	for _, name := range rows[0].ColumnNames() {
		if name != CompanyAverageColumn {
			return name
		}
	}
	return ""
}

// BuildIndividual builds the individual company report
func BuildIndividual(r assessment.IndividualReport, id string, now time.Time) IndividualReport {
	desc := NewDescriptions(r.Descriptions)
	blocks := r.ReportData.Blocks
	personal := PersonalColumn(blocks)

	out := IndividualReport{
		ID:          id,
		Title:       "Company Average Report",
		Date:        usDate(now),
		PersonalKey: personal,
		Footer:      footer(now),
	}

	out.Overview = IndividualSection{
		Name:        BusinessOverviewKey,
		Description: desc.Describe(BusinessOverviewKey),
		Chart:       pairChart(BusinessOverviewKey, blocks, personal, overviewColors, overviewDashes),
		Table: StatsTable{
			Heading:     "Block Statistics: " + personal + " vs Company Average",
			FirstColumn: "Block",
			Personal:    personal,
			Rows:        comparisonRows(blocks, personal),
		},
	}

	groups := score.GroupByParent(r.ReportData.Subblock1, assessment.Row.ParentBlock)
	for _, b := range blocks {
		subs := groups[b.Block]
		out.Sections = append(out.Sections, IndividualSection{
			Name:        b.Block,
			Description: desc.Describe(b.Block),
			Chart:       pairChart(b.Block, subs, personal, sectionColors, sectionDashes),
			Table: StatsTable{
				Heading:     "Sub-Block Statistics: " + b.Block,
				FirstColumn: "Sub-Block",
				Personal:    personal,
				Rows:        comparisonRows(subs, personal),
			},
		})
	}
	return out
}

func pairChart(title string, rows []assessment.Row, personal string, colors, dashes [2]string) ChartView {
	chart := ChartView{Title: title, Max: ChartMax}
	for _, r := range rows {
		chart.XLabels = append(chart.XLabels, r.Label())
	}

	var all []float64
	for i, name := range []string{personal, CompanyAverageColumn} {
		s := SeriesView{Name: name, Color: colors[i], Dash: dashes[i]}
		for _, r := range rows {
			v, ok := r.Value(name)
			if !ok {
				s.Values = append(s.Values, Number(math.NaN()))
				continue
			}
			s.Values = append(s.Values, Number(v))
			all = append(all, v)
		}
		chart.Series = append(chart.Series, s)
	}
	chart.Stats = score.Summarize(all)
	return chart
}

// jsRound rounds to the nearest integer with halves going up, -2.5 to -2
func jsRound(v float64) float64 {
	return math.Floor(v + 0.5)
}

func comparisonRows(rows []assessment.Row, personal string) []ComparisonRow {
	out := make([]ComparisonRow, 0, len(rows))
	for _, r := range rows {
		ca := math.NaN()
		if v, ok := r.Value(CompanyAverageColumn); ok {
			ca = jsRound(v)
		}
		me := math.NaN()
		if v, ok := r.Value(personal); ok {
			me = jsRound(v)
		}
		d := me - ca

		row := ComparisonRow{
			Label:      r.Label(),
			CompanyAvg: Number(ca),
			Personal:   Number(me),
			Diff:       Number(d),
			DiffText:   Number(d).String(),
			Class:      "neg",
		}
		if d >= 0 {
			row.DiffText = "+" + strconv.FormatFloat(d, 'f', -1, 64)
			row.Class = "pos"
		}
		out = append(out, row)
	}
	return out
}
