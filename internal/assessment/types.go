// Package assessment models the payloads returned by the report API and the
// validation applied to them before anything is rendered.
package assessment

// Metrics is the yes/no/unsure tally of one entity together with the
// percentages the API computed for it.
type Metrics struct {
	Yes              float64 `json:"yes"`
	No               float64 `json:"no"`
	Unsure           float64 `json:"unsure"`
	YesPercentage    Percent `json:"yesPercentage"`
	NoPercentage     Percent `json:"noPercentage"`
	UnsurePercentage Percent `json:"unsurePercentage"`
}

// Item is a business overview entry, a block or a sub-block. Sub-blocks name
// their parent in Block.
type Item struct {
	Name      string `json:"name" validate:"required"`
	Block     string `json:"block,omitempty"`
	Subblock1 string `json:"subblock1,omitempty"`
	Metrics
}

// ParentBlock returns the parent block name, used for grouping sub-blocks
func (i Item) ParentBlock() string {
	return i.Block
}

// Results holds the three levels of an assessment result
type Results struct {
	BusinessOverview []Item `json:"businessOverview"`
	Block            []Item `json:"block" validate:"dive"`
	Subblock1        []Item `json:"subblock1" validate:"dive"`
}

// UserInformation describes the person who answered the assessment
type UserInformation struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	JobTitle  string `json:"jobTitle"`
}

// FullName joins first and last name
func (u UserInformation) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// CompanyInformation describes the assessed company
type CompanyInformation struct {
	CompanyName    string `json:"companyName"`
	CompanyLogo    string `json:"companyLogo,omitempty"`
	Website        string `json:"website"`
	Industry       string `json:"industry,omitempty"`
	BusinessType   string `json:"businessType,omitempty"`
	YearInBusiness int    `json:"yearInBusiness,omitempty"`
	RevenueRange   string `json:"revenueRange,omitempty"`
}

// Answer is a single raw answer attached to an assessment
type Answer struct {
	ID  string `json:"_id"`
	Ans string `json:"ans"`
}

// Assessment is the payload behind the standard report
type Assessment struct {
	AssessmentResult   Results            `json:"AssessmentResult"`
	Descriptions       map[string]string  `json:"AssessmentResultDescriptions,omitempty"`
	AssessmentObj      []Answer           `json:"AssessmentObj,omitempty"`
	UserInformation    UserInformation    `json:"UserInformation"`
	CompanyInformation CompanyInformation `json:"CompanyInformation"`
}

// CompanyReport is the payload behind the company average report
type CompanyReport struct {
	ID                 string             `json:"_id" validate:"required"`
	Name               string             `json:"report_name" validate:"required"`
	Description        string             `json:"report_description"`
	Cost               float64            `json:"report_cost,omitempty"`
	Type               string             `json:"report_type"`
	Status             string             `json:"report_status,omitempty"`
	Assessments        []string           `json:"report_Assessments,omitempty"`
	Participants       []string           `json:"report_participants,omitempty"`
	CompanyInformation CompanyInformation `json:"CompanyInformation"`
	CreatedAt          Timestamp          `json:"CreatedAt"`
	ReportData         Results            `json:"ReportData"`
	Descriptions       map[string]string  `json:"AssessmentResultDescriptions,omitempty"`
}

// HeatmapCell is one user's yes percentage for one block
type HeatmapCell struct {
	BlockName     string  `json:"blockName"`
	YesPercentage Percent `json:"yesPercentage"`
}

// HeatmapEntry is one user's row in the comparison heatmap
type HeatmapEntry struct {
	UserName string        `json:"userName" validate:"required"`
	Date     string        `json:"date,omitempty"`
	Blocks   []HeatmapCell `json:"blocks,omitempty"`
}

// Key labels the heatmap row, appending the date when present
func (h HeatmapEntry) Key() string {
	if h.Date == "" {
		return h.UserName
	}
	return h.UserName + " – " + h.Date
}

// ChartData holds the dynamic chart rows of the comparison and individual
// reports.
type ChartData struct {
	Blocks    []Row `json:"Blocks"`
	Subblock1 []Row `json:"Subblock1"`
}

// ComparisonReport is the payload behind the user comparison report
type ComparisonReport struct {
	Name        string         `json:"report_name,omitempty"`
	ReportData  []HeatmapEntry `json:"ReportData" validate:"dive"`
	ReportData2 *ChartData     `json:"ReportData2"`
}

// Charts returns the chart rows, or none when ReportData2 was absent
func (r ComparisonReport) Charts() ChartData {
	if r.ReportData2 == nil {
		return ChartData{}
	}
	return *r.ReportData2
}

// IndividualReport is the payload behind the individual company report
type IndividualReport struct {
	ReportData   ChartData         `json:"ReportData"`
	Descriptions map[string]string `json:"AssessmentResultDescriptions,omitempty"`
}
