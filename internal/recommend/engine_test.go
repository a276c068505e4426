package recommend

import (
	"context"
	"errors"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"recovery-engine/internal/engine"
)

// directiveLanguage matches the imperative phrasings the output is never
// allowed to use.
var directiveLanguage = regexp.MustCompile(`(?i)\b(you should|you must|must|need to|have to|required to)\b`)

func allInputs() []Input {
	return []Input{
		{ClientName: "Acme Corp", ClientScore: 90, DaysPastDue: 3, InvoiceAmount: 100_000},
		{ClientName: "Acme Corp", ClientScore: 70, DaysPastDue: 15, InvoiceAmount: 100_000},
		{ClientName: "Acme Corp", ClientScore: 55, DaysPastDue: 45, InvoiceAmount: 100_000},
		{ClientName: "Slow Co", ClientScore: 65, AvgDaysToPayment: 60, InvoiceAmount: 100_000},
		{ClientName: "Risky LLC", ClientScore: 30, LatePaymentRate: 0.7, DaysPastDue: 5, InvoiceAmount: 100_000},
		{ClientName: "Big Whale", ClientScore: 75, TotalOutstanding: 6_000_000, InvoiceAmount: 1_000_000},
	}
}

func TestRuleBased_NeverDirective(t *testing.T) {
	e := NewEngine(engine.DefaultThresholds())

	for _, input := range allInputs() {
		for _, rec := range e.RuleBased(input) {
			fields := append([]string{rec.Title, rec.Description, rec.Reasoning}, rec.Actions...)
			for _, f := range fields {
				if directiveLanguage.MatchString(f) {
					t.Errorf("directive language in recommendation %q: %q", rec.Title, f)
				}
			}
		}
	}
}

func TestRuleBased_AlwaysCarriesDisclaimer(t *testing.T) {
	e := NewEngine(engine.DefaultThresholds())

	for _, input := range allInputs() {
		for _, rec := range e.RuleBased(input) {
			if rec.Disclaimer == "" {
				t.Errorf("recommendation %q missing disclaimer", rec.Title)
			}
			if !rec.IsEducational {
				t.Errorf("recommendation %q not marked educational", rec.Title)
			}
			if rec.Confidence < 0 || rec.Confidence > 1 {
				t.Errorf("recommendation %q confidence %v outside [0,1]", rec.Title, rec.Confidence)
			}
		}
	}
}

func TestRuleBased_OverdueEscalation(t *testing.T) {
	e := NewEngine(engine.DefaultThresholds())

	cases := []struct {
		daysPastDue  span
		wantPriority Priority
	}{
		{span{1, 7}, PriorityMedium},
		{span{8, 30}, PriorityHigh},
		{span{31, 120}, PriorityCritical},
	}
	for _, tc := range cases {
		for _, d := range []int{tc.daysPastDue.lo, tc.daysPastDue.hi} {
			recs := e.RuleBased(Input{ClientName: "Acme", ClientScore: 75, DaysPastDue: d})
			found := false
			for _, rec := range recs {
				if rec.Type == TypeCollectionStrategy && rec.Priority == tc.wantPriority {
					found = true
				}
			}
			if !found {
				t.Errorf("%d days past due: expected a %s collection_strategy recommendation, got %+v",
					d, tc.wantPriority, recs)
			}
		}
	}
}

type span struct{ lo, hi int }

func TestRuleBased_NotOverdueNoCollectionItem(t *testing.T) {
	e := NewEngine(engine.DefaultThresholds())

	recs := e.RuleBased(Input{ClientName: "Acme", ClientScore: 90, DaysPastDue: 0})
	if len(recs) != 0 {
		t.Errorf("healthy client with nothing overdue: expected no recommendations, got %d", len(recs))
	}
}

func TestRuleBased_LowScoreTriggersTermsReview(t *testing.T) {
	e := NewEngine(engine.DefaultThresholds())

	recs := e.RuleBased(Input{
		ClientName:      "Risky LLC",
		ClientScore:     30,
		LatePaymentRate: 0.6,
		DaysPastDue:     5,
		InvoiceAmount:   100_000,
	})

	var clientRisk *Recommendation
	for i := range recs {
		if recs[i].Type == TypeClientRisk {
			clientRisk = &recs[i]
		}
	}
	if clientRisk == nil {
		t.Fatalf("score 30: expected a client_risk recommendation, got %+v", recs)
	}
	lower := strings.ToLower(clientRisk.Title + " " + clientRisk.Description)
	if !strings.Contains(lower, "review") || !strings.Contains(lower, "payment terms") {
		t.Errorf("client_risk recommendation does not mention reviewing payment terms: %q", clientRisk.Title)
	}
}

func TestRuleBased_ConcentrationRisk(t *testing.T) {
	e := NewEngine(engine.DefaultThresholds())

	recs := e.RuleBased(Input{
		ClientName:       "Big Whale",
		ClientScore:      75,
		TotalOutstanding: 6_000_000,
	})

	found := false
	for _, rec := range recs {
		if rec.Type == TypeCashFlow && strings.Contains(strings.ToLower(rec.Title), "concentration risk") {
			found = true
		}
	}
	if !found {
		t.Errorf("outstanding above concentration limit: expected a cash_flow concentration item, got %+v", recs)
	}
}

type stubAugmenter struct {
	recs []Recommendation
	err  error
}

func (s *stubAugmenter) Augment(_ context.Context, _ Input) ([]Recommendation, error) {
	return s.recs, s.err
}

func TestGenerate_FallsBackOnAugmenterError(t *testing.T) {
	thresholds := engine.DefaultThresholds()
	input := Input{ClientName: "Acme", ClientScore: 70, DaysPastDue: 15}
	want := NewEngine(thresholds).RuleBased(input)

	cases := []struct {
		name string
		stub *stubAugmenter
	}{
		{"augmenter error", &stubAugmenter{err: errors.New("model unavailable")}},
		{"empty result", &stubAugmenter{recs: nil}},
		{"no valid items", &stubAugmenter{err: ErrNoValidRecommendations}},
	}
	for _, tc := range cases {
		e := NewEngine(thresholds).WithAugmenter(tc.stub)
		got := e.Generate(context.Background(), input)
		if !reflect.DeepEqual(got, want) {
			t.Errorf("%s: expected rule-based fallback output, got %+v", tc.name, got)
		}
	}
}

func TestGenerate_UsesAugmenterWhenValid(t *testing.T) {
	augmented := []Recommendation{{
		Type:          TypeCollectionStrategy,
		Title:         "Tailored outreach",
		Description:   "A tailored note could work here.",
		Priority:      PriorityMedium,
		Confidence:    0.6,
		Disclaimer:    disclaimer,
		IsEducational: true,
	}}

	e := NewEngine(engine.DefaultThresholds()).WithAugmenter(&stubAugmenter{recs: augmented})
	got := e.Generate(context.Background(), Input{ClientName: "Acme", DaysPastDue: 15})
	if !reflect.DeepEqual(got, augmented) {
		t.Errorf("expected augmented recommendations to pass through, got %+v", got)
	}
}
