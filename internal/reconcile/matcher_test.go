// internal/reconcile/matcher_test.go
package reconcile

import (
	"testing"
)

func TestNormalizeSKU(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"SKU-123", "123"},
		{"sku-123", "123"},
		{"PROD_ABC", "ABC"},
		{"P-123-ABC", "123ABC"},
		{"ITEM 42", "42"},
		{"plain123", "LAIN123"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := NormalizeSKU(tc.in); got != tc.want {
			t.Errorf("NormalizeSKU(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMatchExactProductID(t *testing.T) {
	var m Matcher

	orphan := ProductRef{ID: "o1", ProductID: "SKU-123", Name: "Latex Gloves"}
	candidates := []ProductRef{
		{ID: "c1", ProductID: "123", Name: "Gloves, Latex"},
	}

	matches := m.MatchProduct(orphan, candidates, 3)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].ConfidenceScore != 1.0 {
		t.Errorf("confidence = %v, want 1.0", matches[0].ConfidenceScore)
	}
	if matches[0].MatchMethod != "exact" {
		t.Errorf("method = %s, want exact", matches[0].MatchMethod)
	}
}

func TestMatchExactName(t *testing.T) {
	var m Matcher

	orphan := ProductRef{ID: "o1", ProductID: "X-1", Name: "  Blue Widget "}
	candidates := []ProductRef{
		{ID: "c1", ProductID: "Y-2", Name: "blue widget"},
	}

	matches := m.MatchProduct(orphan, candidates, 3)
	if len(matches) != 1 || matches[0].MatchMethod != "exact" {
		t.Fatalf("case-insensitive name should match exactly, got %+v", matches)
	}
}

func TestMatchFuzzy(t *testing.T) {
	var m Matcher

	orphan := ProductRef{ID: "o1", ProductID: "ABC-100", Name: "Blue Widget 10ml"}
	candidates := []ProductRef{
		{ID: "c1", ProductID: "ABC-101", Name: "Widget Blue 10ml"},
		{ID: "c2", ProductID: "XYZ-999", Name: "Frobnicator"},
	}

	matches := m.MatchProduct(orphan, candidates, 3)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1 (the dissimilar candidate filtered out): %+v", len(matches), matches)
	}

	match := matches[0]
	if match.CandidateID != "c1" {
		t.Errorf("candidate = %s, want c1", match.CandidateID)
	}
	if match.ConfidenceScore < MinimumThreshold || match.ConfidenceScore >= 1.0 {
		t.Errorf("confidence = %v, want in [%v, 1)", match.ConfidenceScore, MinimumThreshold)
	}

	// Word order is irrelevant for the name, so the name field maxes out.
	if match.ScoreBreakdown["name"] != 1.0 {
		t.Errorf("name score = %v, want 1.0 via token sort", match.ScoreBreakdown["name"])
	}
	if match.Reasoning == "" {
		t.Error("expected reasoning text")
	}
}

func TestMatchVendorContribution(t *testing.T) {
	var m Matcher

	orphan := ProductRef{ID: "o1", ProductID: "AB-12", Name: "Saline 500", VendorCode: "ACME"}
	withVendor := []ProductRef{{ID: "c1", ProductID: "AB-13", Name: "Saline 500ml", VendorCode: "acme "}}
	withoutVendor := []ProductRef{{ID: "c1", ProductID: "AB-13", Name: "Saline 500ml"}}

	a := m.MatchProduct(orphan, withVendor, 3)
	b := m.MatchProduct(orphan, withoutVendor, 3)
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("both variants should match: %d, %d", len(a), len(b))
	}

	if a[0].ConfidenceScore <= b[0].ConfidenceScore {
		t.Errorf("matching vendor code should raise confidence: %v vs %v",
			a[0].ConfidenceScore, b[0].ConfidenceScore)
	}
	if a[0].ScoreBreakdown["vendor_code_exact"] != 1.0 {
		t.Errorf("vendor code should match exactly after trimming, got %+v", a[0].ScoreBreakdown)
	}
}

func TestDominantMethod(t *testing.T) {
	cases := []struct {
		name      string
		idScore   float64
		nameScore float64
		want      string
	}{
		{"strong id carries", 0.95, 0.40, "fuzzy_product_id"},
		{"strong name carries", 0.30, 0.90, "fuzzy_name"},
		{"both moderate", 0.70, 0.65, "fuzzy_combined"},
		{"strong but tied", 0.90, 0.90, "fuzzy_combined"},
		{"strong id but name stronger", 0.86, 0.99, "fuzzy_name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := dominantMethod(tc.idScore, tc.nameScore); got != tc.want {
				t.Errorf("dominantMethod(%v, %v) = %s, want %s", tc.idScore, tc.nameScore, got, tc.want)
			}
		})
	}
}

func TestMatchMethodReflectsDominantField(t *testing.T) {
	var m Matcher

	// Names are unrelated; the near-identical SKU carries the match, with the
	// shared vendor code keeping the blend above the minimum threshold.
	orphan := ProductRef{ID: "o1", ProductID: "SKU-12345", Name: "Sterile Gauze Roll", VendorCode: "ACME"}
	candidates := []ProductRef{{ID: "c1", ProductID: "SKU-12346", Name: "Bandage Clip Assortment", VendorCode: "ACME"}}

	matches := m.MatchProduct(orphan, candidates, 3)
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1: %+v", len(matches), matches)
	}
	if matches[0].MatchMethod != "fuzzy_product_id" {
		t.Errorf("method = %s, want fuzzy_product_id", matches[0].MatchMethod)
	}
}

func TestMatchTopN(t *testing.T) {
	var m Matcher

	orphan := ProductRef{ID: "o1", ProductID: "SKU-500", Name: "Gauze Pad"}
	candidates := make([]ProductRef, 5)
	for i := range candidates {
		candidates[i] = ProductRef{ID: string(rune('a' + i)), ProductID: "500", Name: "Gauze Pad"}
	}

	matches := m.MatchProduct(orphan, candidates, 3)
	if len(matches) != 3 {
		t.Errorf("got %d matches, want capped at 3", len(matches))
	}
}

func TestTokenRatios(t *testing.T) {
	if got := tokenSortRatio("ABC-123", "123-ABC"); got != 1.0 {
		t.Errorf("token sort of reordered tokens = %v, want 1.0", got)
	}

	if got := tokenSetRatio("Widget Blue", "Blue Widget Blue"); got != 1.0 {
		t.Errorf("token set with duplicates = %v, want 1.0", got)
	}

	if got := partialRatio("Widget", "Blue Widget 10ml"); got != 1.0 {
		t.Errorf("partial substring = %v, want 1.0", got)
	}

	if got := levenshteinSimilarity("ABC100", "ABC101"); got < 0.83 || got > 0.84 {
		t.Errorf("levenshtein similarity = %v, want 5/6", got)
	}
}
