package similarity

import (
	"math"
	"sort"
	"strings"

	"catalog-service/internal/models"
)

// Scoring weights for the related-products heuristic. The same weights apply
// to the batch rebuild and the online fallback path.
const (
	vendorWeight   = 5.0
	categoryWeight = 4.0
	tagWeight      = 2.0
	bestsellerDiv  = 10.0
)

// Score computes the weighted heuristic score of candidate against source:
// matching non-empty vendor and category add fixed weights, each shared tag
// adds tagWeight, price distance relative to the source price is subtracted,
// and a bestseller score contributes a tenth of its value.
func Score(source, candidate *models.Product) float64 {
	score := 0.0
	if source.Vendor != "" && candidate.Vendor == source.Vendor {
		score += vendorWeight
	}
	if source.Category != "" && candidate.Category == source.Category {
		score += categoryWeight
	}
	score += tagWeight * float64(TagOverlap(source.Tags, candidate.Tags))
	if source.Price != 0 {
		score -= math.Abs(candidate.Price-source.Price) / source.Price
	}
	if candidate.BestsellerScore != nil {
		score += *candidate.BestsellerScore / bestsellerDiv
	}
	return score
}

// RankCandidates scores every candidate against source and returns the top k
// in descending score order. The sort is stable, so ties keep candidate
// order. The source itself is dropped if it appears among the candidates.
func RankCandidates(source *models.Product, candidates []models.Product, k int) []models.ScoredProduct {
	scored := make([]models.ScoredProduct, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == source.ID {
			continue
		}
		scored = append(scored, models.ScoredProduct{Product: c, Score: Score(source, &c)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// SplitTags splits a comma-separated tag string into trimmed, non-empty tags.
func SplitTags(tags string) []string {
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// TagOverlap counts distinct tags shared by the two tag strings.
func TagOverlap(a, b string) int {
	setA := map[string]bool{}
	for _, t := range SplitTags(a) {
		setA[t] = true
	}
	seen := map[string]bool{}
	overlap := 0
	for _, t := range SplitTags(b) {
		if setA[t] && !seen[t] {
			seen[t] = true
			overlap++
		}
	}
	return overlap
}
