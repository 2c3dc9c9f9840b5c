package dedup

// Similarity returns 1 - editDistance/maxLen over runes.
// Two equal strings (including two empty ones) score 1.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ar, br := []rune(a), []rune(b)
	maxLen := len(ar)
	if len(br) > maxLen {
		maxLen = len(br)
	}
	return 1 - float64(levenshtein(ar, br))/float64(maxLen)
}

func levenshtein(ar, br []rune) int {
	if len(ar) < len(br) {
		ar, br = br, ar
	}
	if len(br) == 0 {
		return len(ar)
	}

	prev := make([]int, len(br)+1)
	curr := make([]int, len(br)+1)
	for j := range prev {
		prev[j] = j
	}
	for i, ca := range ar {
		curr[0] = i + 1
		for j, cb := range br {
			sub := prev[j]
			if ca != cb {
				sub++
			}
			curr[j+1] = min(curr[j]+1, prev[j+1]+1, sub)
		}
		prev, curr = curr, prev
	}
	return prev[len(br)]
}
