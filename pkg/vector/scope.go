package vector

import (
	"math"

	"github.com/papercomputeco/recall/pkg/memory"
)

// ScopeFilter matches exactly the documents owned by scope. The project id
// is always constrained so that project-less memories stay separate from
// project memories of the same user.
func ScopeFilter(scope memory.OwnerScope) Filter {
	return And(
		Eq(FieldUserID, scope.UserID),
		Eq(FieldProjectID, scope.ProjectID),
	)
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 when the
// vectors differ in length or either has zero magnitude.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
