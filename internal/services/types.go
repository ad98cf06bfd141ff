package services

// Category is one of the three fixed news categories in the catalog.
type Category string

const (
	CategorySocial     Category = "social"
	CategoryEconomy    Category = "economy"
	CategoryTechnology Category = "technology"
)

// Categories lists every category in selection order.
var Categories = []Category{CategorySocial, CategoryEconomy, CategoryTechnology}

// ModelID identifies one of the four summarizer models under comparison.
type ModelID string

const (
	ModelGPT      ModelID = "gpt"
	ModelPathumma ModelID = "pathumma"
	ModelQwen     ModelID = "qwen"
	ModelTyphoon  ModelID = "typhoon"
)

// ModelIDs lists every model; the per-item presentation order is a permutation of this.
var ModelIDs = []ModelID{ModelGPT, ModelPathumma, ModelQwen, ModelTyphoon}

// Score bounds for every rating criterion (star rating, inclusive).
const (
	MinScore = 1
	MaxScore = 5
)

// NewsItem is one news unit: a source clip plus one summary per model.
// Items are immutable once loaded from the catalog.
type NewsItem struct {
	ID        string             `json:"id"`
	Category  Category           `json:"category"`
	URL       string             `json:"url"`
	Summaries map[ModelID]string `json:"summaries"`
}

// CriterionScores holds the four 1..5 scores one respondent gave a single summary.
type CriterionScores struct {
	Accuracy     int `json:"accuracy"`
	Completeness int `json:"completeness"`
	Conciseness  int `json:"conciseness"`
	Readability  int `json:"readability"`
}

func (c CriterionScores) inRange() bool {
	for _, v := range []int{c.Accuracy, c.Completeness, c.Conciseness, c.Readability} {
		if v < MinScore || v > MaxScore {
			return false
		}
	}
	return true
}

// Answer records one respondent's input for one item. SelectedModel is set in the
// compare flow, ModelRatings in the rate flow; Category is filled from the item.
type Answer struct {
	NewsID        string                      `json:"news_id"`
	Category      Category                    `json:"category"`
	SelectedModel ModelID                     `json:"selected_model,omitempty"`
	ModelRatings  map[ModelID]CriterionScores `json:"model_ratings,omitempty"`
}

// Demographics is the optional respondent profile collected after the rate flow.
type Demographics struct {
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Occupation string `json:"occupation"`
}

// Age bounds accepted by demographics validation (inclusive).
const (
	MinAge = 1
	MaxAge = 120
)

// Genders is the closed set accepted by demographics validation.
var Genders = []string{"male", "female", "lgbtq", "other"}

// Occupations is the closed set offered on the demographics form.
var Occupations = []string{
	"นักเรียน/นักศึกษา",
	"ข้าราชการ/พนักงานรัฐวิสาหกิจ",
	"พนักงานบริษัทเอกชน",
	"ธุรกิจส่วนตัว/ค้าขาย",
	"รับจ้างทั่วไป",
	"เกษตรกร",
	"อื่นๆ",
}

// SurveyMode selects how respondents judge summaries.
type SurveyMode string

const (
	// ModeCompare asks for the single best summary per item.
	ModeCompare SurveyMode = "compare"
	// ModeRate asks for four criterion scores per summary.
	ModeRate SurveyMode = "rate"
)

// FlowConfig parameterizes the session state machine per survey mode instead of
// maintaining separate code paths.
type FlowConfig struct {
	Mode                SurveyMode `json:"mode"`
	AllowBack           bool       `json:"allow_back"`
	RequireDemographics bool       `json:"require_demographics"`
}

// CompareFlow picks a favorite per item and submits straight from the last item.
var CompareFlow = FlowConfig{Mode: ModeCompare, AllowBack: true, RequireDemographics: false}

// RateFlow scores every summary and collects demographics before submission.
var RateFlow = FlowConfig{Mode: ModeRate, AllowBack: true, RequireDemographics: true}

// FlowForMode returns the built-in flow configuration for a mode.
func FlowForMode(mode SurveyMode) (FlowConfig, bool) {
	switch mode {
	case ModeCompare:
		return CompareFlow, true
	case ModeRate:
		return RateFlow, true
	}
	return FlowConfig{}, false
}
