// Package recommend produces typed, prioritized, disclaimer-bearing
// collection recommendations. The deterministic rule engine is always
// available; a language-model augmenter can enrich the output behind a
// strict validation boundary that falls back to the rules on any failure.
package recommend

// RecType classifies what a recommendation is about.
type RecType string

const (
	TypeCollectionStrategy RecType = "collection_strategy"
	TypePaymentTerms       RecType = "payment_terms"
	TypeClientRisk         RecType = "client_risk"
	TypeCashFlow           RecType = "cash_flow"
)

// Priority orders recommendations for review.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Recommendation is one reviewable suggestion. Recommendations are
// constructed fresh on every call and never mutated.
type Recommendation struct {
	Type          RecType  `json:"type"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Priority      Priority `json:"priority"`
	Actions       []string `json:"actions"`
	Reasoning     string   `json:"reasoning"`
	Confidence    float64  `json:"confidence"`
	Disclaimer    string   `json:"disclaimer"`
	IsEducational bool     `json:"isEducational"`
}

// Input is the per-invoice/customer context the engine reasons over.
// Amounts are in the smallest currency unit.
type Input struct {
	ClientName       string
	ClientScore      int
	AvgDaysToPayment float64
	LatePaymentRate  float64 // 0-1
	DaysPastDue      int
	InvoiceAmount    int64
	TotalOutstanding int64
}

func validRecType(t RecType) bool {
	switch t {
	case TypeCollectionStrategy, TypePaymentTerms, TypeClientRisk, TypeCashFlow:
		return true
	}
	return false
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
