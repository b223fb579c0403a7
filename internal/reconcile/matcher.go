// internal/reconcile/matcher.go

// Package reconcile matches orphan products (rows that arrived without a
// catalog link) against catalog candidates using fuzzy string similarity.
// This resolves the large majority of orphans without any manual review.
package reconcile

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/xrash/smetrics"
)

// Confidence thresholds for acting on a match.
const (
	AutoMergeThreshold        = 0.95
	HighConfidenceThreshold   = 0.85
	MediumConfidenceThreshold = 0.75
	MinimumThreshold          = 0.60
)

// Field weights for the combined score. The SKU is the strongest signal.
const (
	productIDWeight = 0.50
	nameWeight      = 0.35
	vendorWeight    = 0.15
)

var skuPrefix = regexp.MustCompile(`(?i)^(SKU|PROD|ITEM|P|PRODUCT)-?`)
var skuSeparators = regexp.MustCompile(`[-_\s]`)

// ProductRef is the identifying surface of a product on either side of a
// reconciliation.
type ProductRef struct {
	ID         string `json:"id"`
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	VendorCode string `json:"vendor_code"`
	VendorName string `json:"vendor_name"`
}

// Match is one reconciliation candidate with its confidence and the
// per-algorithm scores behind it.
type Match struct {
	CandidateID        string             `json:"candidate_id"`
	CandidateProductID string             `json:"candidate_product_id"`
	CandidateName      string             `json:"candidate_name"`
	ConfidenceScore    float64            `json:"confidence_score"`
	MatchMethod        string             `json:"match_method"`
	ScoreBreakdown     map[string]float64 `json:"score_breakdown"`
	Reasoning          string             `json:"reasoning"`
}

// Matcher scores orphan products against catalog candidates with a weighted
// blend of edit-distance, Jaro-Winkler and token-based similarity.
type Matcher struct{}

// MatchProduct returns up to maxResults candidates scoring at or above
// MinimumThreshold, best first. Exact matches (normalized SKU or
// case-insensitive name) short-circuit to confidence 1.0.
func (m Matcher) MatchProduct(orphan ProductRef, candidates []ProductRef, maxResults int) []Match {
	if maxResults <= 0 {
		maxResults = 3
	}

	var matches []Match
	for _, cand := range candidates {
		if m.exactMatch(orphan, cand) {
			matches = append(matches, Match{
				CandidateID:        cand.ID,
				CandidateProductID: cand.ProductID,
				CandidateName:      cand.Name,
				ConfidenceScore:    1.0,
				MatchMethod:        "exact",
				ScoreBreakdown:     map[string]float64{"exact": 1.0},
				Reasoning:          "Exact match on product ID or name",
			})
			continue
		}

		idScores := m.productIDSimilarity(orphan.ProductID, cand.ProductID)
		nameScores := m.nameSimilarity(orphan.Name, cand.Name)
		vendorScores := m.vendorSimilarity(orphan, cand)

		idScore := maxScore(idScores)
		nameScore := maxScore(nameScores)
		vendorScore := maxScore(vendorScores)

		combined := idScore*productIDWeight + nameScore*nameWeight + vendorScore*vendorWeight
		if combined < MinimumThreshold {
			continue
		}

		breakdown := map[string]float64{
			"product_id": idScore,
			"name":       nameScore,
			"vendor":     vendorScore,
		}
		for k, v := range idScores {
			breakdown[k] = v
		}
		for k, v := range nameScores {
			breakdown[k] = v
		}
		for k, v := range vendorScores {
			breakdown[k] = v
		}

		method := dominantMethod(idScore, nameScore)

		matches = append(matches, Match{
			CandidateID:        cand.ID,
			CandidateProductID: cand.ProductID,
			CandidateName:      cand.Name,
			ConfidenceScore:    math.Round(combined*10000) / 10000,
			MatchMethod:        method,
			ScoreBreakdown:     breakdown,
			Reasoning:          reasoning(orphan.ProductID, cand.ProductID, idScore, nameScore, vendorScore),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].ConfidenceScore > matches[j].ConfidenceScore
	})
	if len(matches) > maxResults {
		matches = matches[:maxResults]
	}

	return matches
}

// dominantMethod labels a match by the field that carried it: a single field
// at or above the high-confidence bar and clearly ahead of the other names
// the match, otherwise the blend did the work.
func dominantMethod(idScore, nameScore float64) string {
	switch {
	case idScore >= HighConfidenceThreshold && idScore > nameScore:
		return "fuzzy_product_id"
	case nameScore >= HighConfidenceThreshold && nameScore > idScore:
		return "fuzzy_name"
	default:
		return "fuzzy_combined"
	}
}

// NormalizeSKU strips common SKU prefixes and separators and uppercases, so
// "SKU-123", "sku_123" and "123" all compare equal.
func NormalizeSKU(sku string) string {
	if sku == "" {
		return ""
	}

	normalized := skuPrefix.ReplaceAllString(sku, "")
	normalized = skuSeparators.ReplaceAllString(normalized, "")

	return strings.ToUpper(normalized)
}

func (Matcher) exactMatch(orphan, cand ProductRef) bool {
	if orphan.ProductID != "" && cand.ProductID != "" {
		a, b := NormalizeSKU(orphan.ProductID), NormalizeSKU(cand.ProductID)
		if a != "" && a == b {
			return true
		}
	}

	if orphan.Name != "" && cand.Name != "" {
		if strings.EqualFold(strings.TrimSpace(orphan.Name), strings.TrimSpace(cand.Name)) {
			return true
		}
	}

	return false
}

func (Matcher) productIDSimilarity(orphanID, candID string) map[string]float64 {
	scores := map[string]float64{}
	if orphanID == "" || candID == "" {
		return scores
	}

	normOrphan, normCand := NormalizeSKU(orphanID), NormalizeSKU(candID)
	if normOrphan != "" && normCand != "" {
		scores["levenshtein"] = levenshteinSimilarity(normOrphan, normCand)
	}

	scores["jaro_winkler"] = smetrics.JaroWinkler(strings.ToUpper(orphanID), strings.ToUpper(candID), 0.7, 4)
	scores["token_sort"] = tokenSortRatio(orphanID, candID)
	scores["partial"] = partialRatio(orphanID, candID)

	return scores
}

func (Matcher) nameSimilarity(orphanName, candName string) map[string]float64 {
	scores := map[string]float64{}
	if orphanName == "" || candName == "" {
		return scores
	}

	scores["levenshtein"] = levenshteinSimilarity(strings.ToLower(orphanName), strings.ToLower(candName))
	scores["token_set"] = tokenSetRatio(orphanName, candName)
	scores["token_sort"] = tokenSortRatio(orphanName, candName)
	scores["partial"] = partialRatio(orphanName, candName)

	return scores
}

func (Matcher) vendorSimilarity(orphan, cand ProductRef) map[string]float64 {
	scores := map[string]float64{}

	if orphan.VendorCode != "" && cand.VendorCode != "" {
		a := strings.ToUpper(strings.TrimSpace(orphan.VendorCode))
		b := strings.ToUpper(strings.TrimSpace(cand.VendorCode))
		if a == b {
			scores["vendor_code_exact"] = 1.0
		} else {
			scores["vendor_code_levenshtein"] = levenshteinSimilarity(a, b)
		}
	}

	if orphan.VendorName != "" && cand.VendorName != "" {
		scores["vendor_name_token"] = tokenSetRatio(orphan.VendorName, cand.VendorName)
	}

	return scores
}

func reasoning(orphanID, candID string, idScore, nameScore, vendorScore float64) string {
	var reasons []string

	switch {
	case idScore >= 0.90:
		reasons = append(reasons, fmt.Sprintf("Very similar product IDs (%q ~ %q)", orphanID, candID))
	case idScore >= 0.75:
		reasons = append(reasons, "Similar product IDs with minor differences")
	}

	switch {
	case nameScore >= 0.90:
		reasons = append(reasons, "Nearly identical product names")
	case nameScore >= 0.75:
		reasons = append(reasons, "Similar product names")
	}

	switch {
	case vendorScore >= 0.90:
		reasons = append(reasons, "Same vendor")
	case vendorScore >= 0.75:
		reasons = append(reasons, "Similar vendor information")
	}

	if len(reasons) == 0 {
		reasons = append(reasons, "Moderate similarity across multiple fields")
	}

	return strings.Join(reasons, "; ")
}

func maxScore(scores map[string]float64) float64 {
	best := 0.0
	for _, v := range scores {
		if v > best {
			best = v
		}
	}
	return best
}

// levenshteinSimilarity is 1 - edit_distance/longer_length.
func levenshteinSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	if longer == 0 {
		return 1.0
	}

	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1 - float64(dist)/float64(longer)
}

// tokenSortRatio compares the alphabetically sorted word forms, which makes
// "ABC 123" and "123 ABC" equal.
func tokenSortRatio(a, b string) float64 {
	return levenshteinSimilarity(sortedTokens(a), sortedTokens(b))
}

// tokenSetRatio ignores both word order and duplicated words: the shared
// token core is compared against each side's full token set and the best
// pairing wins.
func tokenSetRatio(a, b string) float64 {
	ta, tb := tokenSet(a), tokenSet(b)

	var common, onlyA, onlyB []string
	for tok := range ta {
		if tb[tok] {
			common = append(common, tok)
		} else {
			onlyA = append(onlyA, tok)
		}
	}
	for tok := range tb {
		if !ta[tok] {
			onlyB = append(onlyB, tok)
		}
	}

	sort.Strings(common)
	sort.Strings(onlyA)
	sort.Strings(onlyB)

	core := strings.Join(common, " ")
	fullA := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	fullB := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	best := levenshteinSimilarity(fullA, fullB)
	if core != "" {
		if s := levenshteinSimilarity(core, fullA); s > best {
			best = s
		}
		if s := levenshteinSimilarity(core, fullB); s > best {
			best = s
		}
	}

	return best
}

// partialRatio slides the shorter string across the longer and keeps the
// best window similarity, approximating substring matching.
func partialRatio(a, b string) float64 {
	short, long := normalizeTokens(a), normalizeTokens(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		return 0
	}
	if len(short) == len(long) {
		return levenshteinSimilarity(short, long)
	}

	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		if s := levenshteinSimilarity(short, long[i:i+len(short)]); s > best {
			best = s
		}
	}

	return best
}

func sortedTokens(s string) string {
	tokens := strings.Fields(normalizeTokens(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(normalizeTokens(s)) {
		set[tok] = true
	}
	return set
}

// normalizeTokens lowercases and turns separators into spaces so token
// comparisons see "ABC-123" and "abc 123" identically.
func normalizeTokens(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
