// File path: internal/dedup/similarity.go
package dedup

import (
	"math"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// TokenSortRatio scores how similar two strings are on a 0-100 scale. Both
// inputs are normalized and their tokens sorted before the edit distance is
// taken, so word order does not affect the score.
func TokenSortRatio(a, b string) int {
	left := sortedTokens(a)
	right := sortedTokens(b)
	if left == right {
		return 100
	}
	longest := len([]rune(left))
	if n := len([]rune(right)); n > longest {
		longest = n
	}
	if longest == 0 {
		return 100
	}
	distance := levenshtein.ComputeDistance(left, right)
	return int(math.Round(100 * (1 - float64(distance)/float64(longest))))
}

func sortedTokens(s string) string {
	tokens := strings.Fields(NormalizeText(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
