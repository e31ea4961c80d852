package assessment

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const standardPayload = `{
  "AssessmentResult": {
    "businessOverview": [{"yes": 12, "no": 6, "unsure": 2, "yesPercentage": "60.00", "noPercentage": "30.00", "unsurePercentage": "10.00"}],
    "block": [
      {"name": "Finance", "yes": 3, "no": 1, "unsure": 0, "yesPercentage": "75.00", "noPercentage": "25.00", "unsurePercentage": "0.00"},
      {"name": "People", "yes": 1, "no": 1, "unsure": 1, "yesPercentage": "abc", "noPercentage": "33.33", "unsurePercentage": "33.33"}
    ],
    "subblock1": [
      {"name": "Cash", "block": "Finance", "yes": 2, "no": 0, "unsure": 0, "yesPercentage": "100", "noPercentage": "0", "unsurePercentage": "0"}
    ]
  },
  "AssessmentResultDescriptions": {"Business Overview": "Solid."},
  "UserInformation": {"first_name": "Ana", "last_name": "Reyes", "email": "ana@example.com", "jobTitle": "CFO"},
  "CompanyInformation": {"companyName": "Acme", "website": "https://acme.example"}
}`

func TestPercentDecoding(t *testing.T) {
	var got struct {
		A Percent `json:"a"`
		B Percent `json:"b"`
		C Percent `json:"c"`
		D Percent `json:"d"`
		E Percent `json:"e"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 41.5, "b": "66.67", "c": "n/a", "d": null}`), &got))

	assert.Equal(t, 41.5, got.A.Float())
	assert.True(t, got.A.Valid())
	assert.Equal(t, 66.67, got.B.Float())
	assert.True(t, math.IsNaN(got.C.Float()))
	assert.Equal(t, "n/a", got.C.Raw())
	assert.False(t, got.C.Valid())
	assert.True(t, math.IsNaN(got.D.Float()))
	assert.True(t, math.IsNaN(got.E.Float()), "missing field reads as NaN")
}

func TestPercentMarshal(t *testing.T) {
	out, err := json.Marshal([]Percent{PercentOf(12.5), PercentText("bad"), {}})
	require.NoError(t, err)
	assert.JSONEq(t, `[12.5, "bad", null]`, string(out))
}

func TestTimestampDecoding(t *testing.T) {
	var got struct {
		A Timestamp `json:"a"`
		B Timestamp `json:"b"`
		C Timestamp `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "2025-03-04T10:00:00.000Z", "b": 1741082400000, "c": null}`), &got))

	want := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	assert.True(t, got.A.Equal(want))
	assert.True(t, got.B.Equal(want))
	assert.True(t, got.C.IsZero())

	var bad Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &bad))
}

func TestRowKeepsColumnOrder(t *testing.T) {
	var rows []Row
	payload := `[
	  {"block": "Finance", "Zed": "55.5", "Company Average": 60, "Amy": "n/a"},
	  {"block": "Finance", "subblock": "Cash", "Amy": 10}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &rows))
	require.Len(t, rows, 2)

	assert.Equal(t, "Finance", rows[0].Label())
	assert.Equal(t, []string{"Zed", "Company Average", "Amy"}, rows[0].ColumnNames())

	v, ok := rows[0].Value("Zed")
	assert.True(t, ok)
	assert.Equal(t, 55.5, v)
	v, _ = rows[0].Value("Amy")
	assert.Equal(t, 0.0, v, "unparseable values become 0")
	_, ok = rows[0].Value("Nobody")
	assert.False(t, ok)

	assert.Equal(t, "Cash", rows[1].Label())
	assert.Equal(t, "Finance", rows[1].ParentBlock())

	out, err := json.Marshal(rows[1])
	require.NoError(t, err)
	assert.Equal(t, `{"block":"Finance","subblock":"Cash","Amy":10}`, string(out))
}

func TestRowRejectsNonObject(t *testing.T) {
	var r Row
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &r))
}

func TestValidatorLenientKeepsNaN(t *testing.T) {
	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(standardPayload), &a))

	got, dropped, err := NewValidator(ModeLenient).Assessment(a)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	require.Len(t, got.AssessmentResult.Block, 2)
	assert.True(t, math.IsNaN(got.AssessmentResult.Block[1].YesPercentage.Float()))
}

func TestValidatorStrictDropsOnlyBadMetric(t *testing.T) {
	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(standardPayload), &a))

	got, dropped, err := NewValidator(ModeStrict).Assessment(a)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, "block", dropped[0].Section)
	assert.Equal(t, "People", dropped[0].Name)
	assert.Equal(t, "yesPercentage", dropped[0].Field)
	assert.Equal(t, "abc", dropped[0].Raw)
	assert.Contains(t, dropped[0].Error(), "People")

	require.Len(t, got.AssessmentResult.Block, 1)
	assert.Equal(t, "Finance", got.AssessmentResult.Block[0].Name)
	assert.Len(t, got.AssessmentResult.Subblock1, 1)
	assert.Len(t, a.AssessmentResult.Block, 2, "input is not modified")
}

func TestValidatorStrictDropsInfinitePercent(t *testing.T) {
	payload := `{
	  "AssessmentResult": {
	    "businessOverview": [{"yes": 1, "no": 1, "unsure": 0, "yesPercentage": "50", "noPercentage": "50", "unsurePercentage": "0"}],
	    "block": [
	      {"name": "Finance", "yes": 1, "no": 0, "unsure": 0, "yesPercentage": "inf", "noPercentage": "0", "unsurePercentage": "0"},
	      {"name": "People", "yes": 1, "no": 0, "unsure": 0, "yesPercentage": "100", "noPercentage": "0", "unsurePercentage": "0"}
	    ],
	    "subblock1": []
	  }
	}`
	var a Assessment
	require.NoError(t, json.Unmarshal([]byte(payload), &a))
	assert.False(t, a.AssessmentResult.Block[0].YesPercentage.Valid())
	assert.True(t, math.IsNaN(a.AssessmentResult.Block[0].YesPercentage.Float()))

	got, dropped, err := NewValidator(ModeStrict).Assessment(a)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, "Finance", dropped[0].Name)
	assert.Equal(t, "inf", dropped[0].Raw)
	require.Len(t, got.AssessmentResult.Block, 1)
	assert.Equal(t, "People", got.AssessmentResult.Block[0].Name)

	assert.False(t, PercentOf(math.Inf(1)).Valid())
}

func TestValidatorStructuralErrors(t *testing.T) {
	v := NewValidator(ModeLenient)

	_, _, err := v.Assessment(Assessment{})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "assessment", verr.Entity)
	assert.Contains(t, err.Error(), "businessOverview is empty")

	bad := Assessment{AssessmentResult: Results{
		BusinessOverview: []Item{{}},
		Block:            []Item{{Name: ""}},
	}}
	_, _, err = v.Assessment(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")

	_, _, err = v.CompanyReport(CompanyReport{Name: "Q1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ID")

	_, _, err = v.IndividualReport(IndividualReport{ReportData: ChartData{Blocks: []Row{{}}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Blocks[0] has no label")
}

func TestValidatorComparisonStrictDropsCells(t *testing.T) {
	payload := `{
	  "report_name": "Team",
	  "ReportData": [{"userName": "Ana", "date": "2025-01-01", "blocks": [{"blockName": "Finance", "yesPercentage": 40}, {"blockName": "People", "yesPercentage": null}]}],
	  "ReportData2": {"Blocks": [{"block": "Finance", "Ana": 40}], "Subblock1": []}
	}`
	var r ComparisonReport
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	got, dropped, err := NewValidator(ModeStrict).ComparisonReport(r)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, "Ana – 2025-01-01/People", dropped[0].Name)
	require.Len(t, got.ReportData[0].Blocks, 1)

	_, dropped, err = NewValidator(ModeLenient).ComparisonReport(r)
	require.NoError(t, err)
	assert.Empty(t, dropped)
}

func TestValidatorComparisonTextPercentAndMissingCharts(t *testing.T) {
	payload := `{
	  "ReportData": [{"userName": "Ana", "blocks": [{"blockName": "Finance", "yesPercentage": "40"}]}],
	  "ReportData2": {"Blocks": [], "Subblock1": []}
	}`
	var r ComparisonReport
	require.NoError(t, json.Unmarshal([]byte(payload), &r))
	cell := r.ReportData[0].Blocks[0].YesPercentage
	assert.True(t, cell.Valid())
	assert.False(t, cell.Numeric())

	_, dropped, err := NewValidator(ModeStrict).ComparisonReport(r)
	require.NoError(t, err)
	require.Len(t, dropped, 1)
	assert.Equal(t, "40", dropped[0].Raw)

	for _, body := range []string{`{"ReportData": []}`, `{"ReportData": [], "ReportData2": null}`} {
		var bad ComparisonReport
		require.NoError(t, json.Unmarshal([]byte(body), &bad))
		_, _, err = NewValidator(ModeLenient).ComparisonReport(bad)
		require.Error(t, err, body)
		assert.ErrorIs(t, err, ErrInvalidComparison)
		assert.Empty(t, bad.Charts().Blocks)
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeLenient, m)

	m, err = ParseMode(" Strict ")
	require.NoError(t, err)
	assert.Equal(t, ModeStrict, m)

	_, err = ParseMode("paranoid")
	assert.Error(t, err)
}

func TestUserFullName(t *testing.T) {
	assert.Equal(t, "Ana Reyes", UserInformation{FirstName: "Ana", LastName: "Reyes"}.FullName())
	assert.Equal(t, "Ana", UserInformation{FirstName: "Ana"}.FullName())
	assert.Equal(t, "Reyes", UserInformation{LastName: "Reyes"}.FullName())
}
