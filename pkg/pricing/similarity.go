package pricing

// diceCoefficient scores the similarity of two strings as
// 2×overlap / (len(a)-1 + len(b)-1) over their bigram multisets.
// Identical strings score 1; strings shorter than two characters score 0
// unless identical.
func diceCoefficient(a, b string) float64 {
	if a == b {
		return 1
	}
	if len(a) < 2 || len(b) < 2 {
		return 0
	}

	counts := make(map[string]int, len(a)-1)
	for i := 0; i < len(a)-1; i++ {
		counts[a[i:i+2]]++
	}

	overlap := 0
	for i := 0; i < len(b)-1; i++ {
		bg := b[i : i+2]
		if counts[bg] > 0 {
			counts[bg]--
			overlap++
		}
	}

	return float64(2*overlap) / float64(len(a)-1+len(b)-1)
}
