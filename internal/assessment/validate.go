package assessment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Mode selects how metrics with unusable numbers are handled
type Mode string

const (
	// ModeLenient lets NaN percentages through; they render as "NaN%"
	ModeLenient Mode = "lenient"
	// ModeStrict drops every metric with a NaN percentage or a negative count
	ModeStrict Mode = "strict"
)

// ParseMode parses a mode name, defaulting to lenient for an empty string
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLenient:
		return ModeLenient, nil
	case ModeStrict:
		return ModeStrict, nil
	default:
		return "", fmt.Errorf("unknown validation mode: %s", s)
	}
}

// MetricError describes one metric that was dropped in strict mode
type MetricError struct {
	Section string `json:"section"`
	Name    string `json:"name"`
	Field   string `json:"field"`
	Raw     string `json:"raw,omitempty"`
	Reason  string `json:"reason"`
}

func (e *MetricError) Error() string {
	if e.Raw != "" {
		return fmt.Sprintf("%s %q: %s %s (%q)", e.Section, e.Name, e.Field, e.Reason, e.Raw)
	}
	return fmt.Sprintf("%s %q: %s %s", e.Section, e.Name, e.Field, e.Reason)
}

// ErrInvalidComparison marks a comparison payload without ReportData2
var ErrInvalidComparison = errors.New("received invalid data structure for comparison charts: ReportData2 is missing")

// ValidationError is returned when a payload is structurally unusable
type ValidationError struct {
	Entity string
	Errors []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual errors to errors.Is/As
func (e *ValidationError) Unwrap() []error {
	return e.Errors
}

// Validator checks payloads at the ingestion boundary. Structural problems
// (missing names, missing overview) always fail. Bad metric values only
// matter in strict mode, where the offending entity is dropped and reported.
type Validator struct {
	mode     Mode
	validate *validator.Validate
}

// NewValidator creates a validator for the given mode
func NewValidator(mode Mode) *Validator {
	if mode == "" {
		mode = ModeLenient
	}
	return &Validator{
		mode:     mode,
		validate: validator.New(),
	}
}

// Mode returns the configured mode
func (v *Validator) Mode() Mode {
	return v.mode
}

func (v *Validator) structural(entity string, payload any, extra ...error) error {
	var errs []error
	if err := v.validate.Struct(payload); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = append(errs, fmt.Errorf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err)
		}
	}
	for _, err := range extra {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Entity: entity, Errors: errs}
	}
	return nil
}

// Assessment validates a standard report payload and, in strict mode,
// returns a copy without the metrics that carry bad values.
func (v *Validator) Assessment(a Assessment) (Assessment, []MetricError, error) {
	var missing error
	if len(a.AssessmentResult.BusinessOverview) == 0 {
		missing = errors.New("AssessmentResult.businessOverview is empty")
	}
	if err := v.structural("assessment", a, missing); err != nil {
		return a, nil, err
	}
	if v.mode != ModeStrict {
		return a, nil, nil
	}

	var dropped []MetricError
	a.AssessmentResult, dropped = filterResults(a.AssessmentResult)
	return a, dropped, nil
}

// CompanyReport validates a company average payload
func (v *Validator) CompanyReport(r CompanyReport) (CompanyReport, []MetricError, error) {
	if err := v.structural("company report", r); err != nil {
		return r, nil, err
	}
	if v.mode != ModeStrict {
		return r, nil, nil
	}

	var dropped []MetricError
	r.ReportData, dropped = filterResults(r.ReportData)
	return r, dropped, nil
}

// ComparisonReport validates a user comparison payload. A missing ReportData2
// is a structural error. Heatmap cells whose percentage is not a JSON number
// are reported in strict mode; they are never drawn.
func (v *Validator) ComparisonReport(r ComparisonReport) (ComparisonReport, []MetricError, error) {
	var missing error
	if r.ReportData2 == nil {
		missing = ErrInvalidComparison
	}
	charts := r.Charts()
	if err := v.structural("comparison report", r, missing, checkRows("Blocks", charts.Blocks), checkRows("Subblock1", charts.Subblock1)); err != nil {
		return r, nil, err
	}
	if v.mode != ModeStrict {
		return r, nil, nil
	}

	var dropped []MetricError
	entries := make([]HeatmapEntry, 0, len(r.ReportData))
	for _, e := range r.ReportData {
		cells := make([]HeatmapCell, 0, len(e.Blocks))
		for _, c := range e.Blocks {
			if !c.YesPercentage.Numeric() {
				dropped = append(dropped, MetricError{
					Section: "heatmap",
					Name:    e.Key() + "/" + c.BlockName,
					Field:   "yesPercentage",
					Raw:     c.YesPercentage.Raw(),
					Reason:  "is not a JSON number",
				})
				continue
			}
			cells = append(cells, c)
		}
		e.Blocks = cells
		entries = append(entries, e)
	}
	r.ReportData = entries
	return r, dropped, nil
}

// IndividualReport validates an individual company payload
func (v *Validator) IndividualReport(r IndividualReport) (IndividualReport, []MetricError, error) {
	if err := v.structural("individual report", r, checkRows("Blocks", r.ReportData.Blocks), checkRows("Subblock1", r.ReportData.Subblock1)); err != nil {
		return r, nil, err
	}
	return r, nil, nil
}

func checkRows(section string, rows []Row) error {
	for i, row := range rows {
		if row.Label() == "" {
			return fmt.Errorf("%s[%d] has no label", section, i)
		}
	}
	return nil
}

func filterResults(res Results) (Results, []MetricError) {
	var dropped []MetricError
	res.BusinessOverview, dropped = filterItems("businessOverview", res.BusinessOverview, dropped)
	res.Block, dropped = filterItems("block", res.Block, dropped)
	res.Subblock1, dropped = filterItems("subblock1", res.Subblock1, dropped)
	return res, dropped
}

func filterItems(section string, items []Item, dropped []MetricError) ([]Item, []MetricError) {
	kept := make([]Item, 0, len(items))
	for _, item := range items {
		if bad := checkMetrics(section, item); bad != nil {
			dropped = append(dropped, *bad)
			continue
		}
		kept = append(kept, item)
	}
	return kept, dropped
}

func checkMetrics(section string, item Item) *MetricError {
	name := item.Name
	if name == "" {
		name = section
	}
	percents := []struct {
		field string
		p     Percent
	}{
		{"yesPercentage", item.YesPercentage},
		{"noPercentage", item.NoPercentage},
		{"unsurePercentage", item.UnsurePercentage},
	}
	for _, pc := range percents {
		if f := pc.p.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return &MetricError{Section: section, Name: name, Field: pc.field, Raw: pc.p.Raw(), Reason: "is not a finite number"}
		}
	}
	counts := []struct {
		field string
		n     float64
	}{
		{"yes", item.Yes},
		{"no", item.No},
		{"unsure", item.Unsure},
	}
	for _, c := range counts {
		if c.n < 0 || math.IsNaN(c.n) || math.IsInf(c.n, 0) {
			return &MetricError{Section: section, Name: name, Field: c.field, Reason: "is negative"}
		}
	}
	return nil
}

// Invoice validates an invoice. Invoices carry no metrics, so there is
// nothing to drop in strict mode.
func (v *Validator) Invoice(inv Invoice) (Invoice, error) {
	return inv, v.structural("invoice", inv)
}
