package view

import (
	"time"

	"github.com/lamim/assessment-reports/internal/assessment"
)

// StandardReport is the printable single-assessment report
type StandardReport struct {
	Title       string        `json:"title"`
	PreparedFor string        `json:"prepared_for"`
	Company     CompanyView   `json:"company"`
	Summary     Description   `json:"summary"`
	Overall     *Overall      `json:"overall,omitempty"`
	Blocks      []BlockView   `json:"blocks"`
	Legend      []LegendEntry `json:"legend"`
	Footer      Footer        `json:"footer"`
}

// Overall is the business overview pie and gauge
type Overall struct {
	Gauge  GaugeView    `json:"gauge"`
	Slices []MetricView `json:"slices"`
}

// BuildStandard builds the standard report of one assessment
func BuildStandard(a assessment.Assessment, now time.Time) StandardReport {
	desc := NewDescriptions(a.Descriptions)
	res := a.AssessmentResult

	r := StandardReport{
		Title:       "Standard Assessment Report",
		PreparedFor: "Prepared for " + a.UserInformation.FullName(),
		Company:     companyView(a.CompanyInformation),
		Summary:     desc.DescribeOr(BusinessOverviewKey, NoSummary),
		Legend:      Legend(),
		Footer:      footer(now),
	}

	if len(res.BusinessOverview) > 0 {
		first := res.BusinessOverview[0]
		r.Overall = &Overall{
			Gauge:  gaugeFromPercent(first.YesPercentage.Float()),
			Slices: metrics(first.Metrics, &overallColors),
		}
	}

	r.Blocks = make([]BlockView, 0, len(res.Block))
	for _, b := range res.Block {
		bv := standardBlock(b, desc)
		for _, sb := range res.Subblock1 {
			if sb.ParentBlock() == b.Name {
				bv.SubBlocks = append(bv.SubBlocks, standardBlock(sb, desc))
			}
		}
		r.Blocks = append(r.Blocks, bv)
	}
	return r
}

func standardBlock(it assessment.Item, desc *Descriptions) BlockView {
	return BlockView{
		Name:        it.Name,
		Gauge:       gaugeFromPercent(it.YesPercentage.Float()),
		Metrics:     metrics(it.Metrics, nil),
		Description: desc.Describe(it.Name),
	}
}
