package view

import (
	"time"

	"github.com/lamim/assessment-reports/internal/assessment"
	"github.com/lamim/assessment-reports/internal/score"
)

// CompanyAverageReport aggregates the assessments of one company
type CompanyAverageReport struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Date        string        `json:"date"`
	Description string        `json:"description,omitempty"`
	Type        string        `json:"type,omitempty"`
	Company     CompanyView   `json:"company"`
	Overview    []BlockView   `json:"overview"`
	Blocks      []BlockView   `json:"blocks"`
	Legend      []LegendEntry `json:"legend"`
	Footer      Footer        `json:"footer"`
}

// BuildCompanyAverage builds the company average report. Gauges are driven
// by the raw counts and the metric dots by each raw percentage.
func BuildCompanyAverage(r assessment.CompanyReport, now time.Time) CompanyAverageReport {
	desc := NewDescriptions(r.Descriptions)
	data := r.ReportData

	out := CompanyAverageReport{
		ID:          r.ID,
		Title:       r.Name,
		Date:        usDate(r.CreatedAt.Time),
		Description: r.Description,
		Type:        r.Type,
		Company:     companyView(r.CompanyInformation),
		Legend:      Legend(),
		Footer:      footer(now),
	}

	out.Overview = make([]BlockView, 0, len(data.BusinessOverview))
	for _, it := range data.BusinessOverview {
		out.Overview = append(out.Overview, companyBlock(it, desc))
	}

	groups := score.GroupByParent(data.Subblock1, assessment.Item.ParentBlock)
	out.Blocks = make([]BlockView, 0, len(data.Block))
	for _, b := range data.Block {
		bv := companyBlock(b, desc)
		for _, sb := range groups[b.Name] {
			bv.SubBlocks = append(bv.SubBlocks, companyBlock(sb, desc))
		}
		out.Blocks = append(out.Blocks, bv)
	}
	return out
}

func companyBlock(it assessment.Item, desc *Descriptions) BlockView {
	return BlockView{
		Name:        it.Name,
		Gauge:       gaugeFromCounts(it.Metrics),
		Metrics:     metrics(it.Metrics, nil),
		Description: desc.Describe(it.Name),
	}
}
