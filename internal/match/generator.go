package match

import "sort"

// Candidate is one canonical ZIP with its score against a query
type Candidate struct {
	Zip   string
	Score float64
}

// query picks the text scored against canonical ZIPs: the candidate ZIP,
// else the ZIP hint, else the canonical address
func query(in Input) string {
	switch {
	case in.Candidate != nil && *in.Candidate != "":
		return *in.Candidate
	case in.ZipHint != "":
		return in.ZipHint
	default:
		return in.AddressKey
	}
}

// best scores q against every zip in sorted order, keeping the first
// strictly higher score so ties resolve to the smallest ZIP
func best(scorer Scorer, zips []string, q string) Candidate {
	top := Candidate{Score: -1}
	for _, zip := range zips {
		if score := scorer(q, zip); score > top.Score {
			top = Candidate{Zip: zip, Score: score}
		}
	}
	return top
}

// rank scores q against every zip and returns the top n, score descending
// and ZIP ascending within a score
func rank(scorer Scorer, zips []string, q string, n int) []Candidate {
	candidates := make([]Candidate, 0, len(zips))
	for _, zip := range zips {
		candidates = append(candidates, Candidate{Zip: zip, Score: scorer(q, zip)})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Zip < candidates[j].Zip
	})
	if n > 0 && len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
