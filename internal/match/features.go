package match

// lcsLength returns the length of the longest common subsequence of a and b
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}

	prev := make([]int, len(a)+1)
	curr := make([]int, len(a)+1)
	for j := 1; j <= len(b); j++ {
		for i := 1; i <= len(a); i++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[i] = prev[i-1] + 1
			case prev[i] >= curr[i-1]:
				curr[i] = prev[i]
			default:
				curr[i] = curr[i-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(a)]
}

// OSADistance is the optimal string alignment (restricted Damerau-Levenshtein)
// distance between a and b
func OSADistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	lenA, lenB := len(ra), len(rb)

	if lenA == 0 {
		return lenB
	}
	if lenB == 0 {
		return lenA
	}

	// Ensure a is the shorter string
	if lenA > lenB {
		ra, rb = rb, ra
		lenA, lenB = lenB, lenA
	}

	prevPrev := make([]int, lenA+1)
	prev := make([]int, lenA+1)
	curr := make([]int, lenA+1)
	for i := 0; i <= lenA; i++ {
		prev[i] = i
	}

	for j := 1; j <= lenB; j++ {
		curr[0] = j
		for i := 1; i <= lenA; i++ {
			cost := 0
			if ra[i-1] != rb[j-1] {
				cost = 1
			}

			curr[i] = min(
				prev[i]+1,      // deletion
				curr[i-1]+1,    // insertion
				prev[i-1]+cost, // substitution
			)

			// transposition
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				curr[i] = min(curr[i], prevPrev[i-2]+1)
			}
		}
		prevPrev, prev, curr = prev, curr, prevPrev
	}

	return prev[lenA]
}

// JaroSimilarity computes Jaro similarity between two strings in [0, 1]
func JaroSimilarity(s1, s2 string) float64 {
	if s1 == s2 {
		return 1.0
	}

	r1, r2 := []rune(s1), []rune(s2)
	len1, len2 := len(r1), len(r2)
	if len1 == 0 || len2 == 0 {
		return 0.0
	}

	matchWindow := max(len1, len2)/2 - 1
	if matchWindow < 0 {
		matchWindow = 0
	}

	s1Matches := make([]bool, len1)
	s2Matches := make([]bool, len2)

	matches := 0
	for i := 0; i < len1; i++ {
		start := max(0, i-matchWindow)
		end := min(i+matchWindow+1, len2)

		for j := start; j < end; j++ {
			if s2Matches[j] || r1[i] != r2[j] {
				continue
			}
			s1Matches[i] = true
			s2Matches[j] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0.0
	}

	transpositions := 0
	k := 0
	for i := 0; i < len1; i++ {
		if !s1Matches[i] {
			continue
		}
		for !s2Matches[k] {
			k++
		}
		if r1[i] != r2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	return (m/float64(len1) + m/float64(len2) + (m-float64(transpositions/2))/m) / 3.0
}
