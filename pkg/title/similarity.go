package title

import "github.com/hbollon/go-edlib"

// Similarity scores two titles on a 0.0-1.0 scale using Jaro-Winkler,
// which favors shared prefixes (a good fit for media titles where the
// distinguishing part is usually a trailing subtitle or year).
// Both inputs are normalized with Clean before comparison.
func Similarity(a, b string) float64 {
	ca, cb := Clean(a), Clean(b)
	if ca == cb {
		return 1.0
	}
	if ca == "" || cb == "" {
		return 0.0
	}
	return float64(edlib.JaroWinklerSimilarity(ca, cb))
}
