package rag

import (
	"sort"

	"github.com/gmaidana/cursos-chatbot-go/internal/matcher"
)

const (
	// rrfConstant is the k in the RRF formula 1 / (k + rank). The standard
	// value of 60 balances top-ranked documents against the long tail.
	rrfConstant = 60

	// titleWeight favors exact title overlap over descriptive keyword
	// matches; the remainder goes to BM25.
	titleWeight = 0.6
)

// FuseHints combines title-similarity ranking with BM25 keyword ranking
// using Reciprocal Rank Fusion:
//
//	score(d) = Σ w_i / (k + rank_i)
//
// The fused list hints the generation fallback at which courses the question
// is most likely about. Results are sorted by fused score descending and
// truncated to topN.
func FuseHints(titleMatches []matcher.Match, keywordResults []Result, topN int) []matcher.Match {
	bm25Weight := 1.0 - titleWeight

	type fused struct {
		match matcher.Match
		score float64
	}
	byID := make(map[string]*fused)

	for i, m := range titleMatches {
		rank := i + 1
		byID[m.ID] = &fused{match: m, score: titleWeight / float64(rrfConstant+rank)}
	}

	for i, r := range keywordResults {
		rank := i + 1
		score := bm25Weight / float64(rrfConstant+rank)
		if existing, ok := byID[r.CourseID]; ok {
			existing.score += score
			continue
		}
		byID[r.CourseID] = &fused{
			match: matcher.Match{ID: r.CourseID, Title: r.Title, Score: r.Score},
			score: score,
		}
	}

	results := make([]fused, 0, len(byID))
	for _, f := range byID {
		results = append(results, *f)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}

	out := make([]matcher.Match, len(results))
	for i, f := range results {
		out[i] = f.match
		out[i].Score = f.score
	}
	return out
}
