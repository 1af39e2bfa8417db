package search

import "sort"

// DefaultRRFK is the reciprocal rank fusion smoothing factor.
const DefaultRRFK = 50

// Fuse combines ranked channel outputs with reciprocal rank fusion.
// Each candidate contributes 1/(k+rank+1) to its entity's score; an
// entity seen by several channels accumulates the contributions, keeps
// the highest similarity, and reports the channel where it ranked best
// as its source. Ties on the fused score keep channel order, vector
// before keyword.
func Fuse(channels []ChannelResult, k int) []Result {
	scores := make(map[string]*Result)
	order := make([]string, 0)

	for _, ch := range channels {
		for rank, cand := range ch.Candidates {
			contribution := 1.0 / float64(k+rank+1)

			existing, ok := scores[cand.ID]
			if !ok {
				scores[cand.ID] = &Result{
					ID:         cand.ID,
					Similarity: cand.Similarity,
					RRFScore:   contribution,
					Source:     ch.Name,
					Text:       cand.Text,
					Vector:     cand.Vector,
					sourceRank: rank,
				}
				order = append(order, cand.ID)
				continue
			}

			if cand.Similarity > existing.Similarity {
				existing.Similarity = cand.Similarity
			}
			existing.RRFScore += contribution
			if rank < existing.sourceRank {
				existing.Source = ch.Name
				existing.sourceRank = rank
			}
		}
	}

	fused := make([]Result, 0, len(order))
	for _, id := range order {
		fused = append(fused, *scores[id])
	}
	sort.SliceStable(fused, func(i, j int) bool {
		return fused[i].RRFScore > fused[j].RRFScore
	})
	return fused
}
