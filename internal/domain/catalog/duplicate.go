package catalog

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// DuplicatePair is two products that look like the same item
type DuplicatePair struct {
	First  uuid.UUID `json:"first_id"`
	Second uuid.UUID `json:"second_id"`
	// FirstSKU and SecondSKU let callers show the pair without a second lookup
	FirstSKU  string  `json:"first_sku"`
	SecondSKU string  `json:"second_sku"`
	Score     float64 `json:"score"`
	Reason    string  `json:"reason"`
}

var folder = cases.Fold()

// normalizeName folds case, applies NFKC and collapses whitespace
func normalizeName(s string) string {
	s = norm.NFKC.String(s)
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Similarity scores how alike two products are in [0, 1].
// Identical EANs score 1; otherwise it is the Levenshtein ratio of the normalised names.
func Similarity(a, b *Product) float64 {
	if a.EAN != "" && a.EAN == b.EAN {
		return 1
	}
	return nameSimilarity(normalizeName(a.Name), normalizeName(b.Name))
}

func nameSimilarity(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// DetectDuplicates returns every pair scoring at or above threshold, highest score first
func DetectDuplicates(products []Product, threshold float64) []DuplicatePair {
	names := make([]string, len(products))
	for i := range products {
		names[i] = normalizeName(products[i].Name)
	}

	var pairs []DuplicatePair
	for i := 0; i < len(products); i++ {
		for j := i + 1; j < len(products); j++ {
			a, b := &products[i], &products[j]
			reason := "name"
			score := 0.0
			if a.EAN != "" && a.EAN == b.EAN {
				score, reason = 1, "ean"
			} else {
				score = nameSimilarity(names[i], names[j])
			}
			if score >= threshold {
				pairs = append(pairs, DuplicatePair{
					First:     a.ID,
					Second:    b.ID,
					FirstSKU:  a.SKU,
					SecondSKU: b.SKU,
					Score:     score,
					Reason:    reason,
				})
			}
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	return pairs
}
