// Package rag provides keyword retrieval over the course catalog. BM25
// scores rank which courses are most relevant to a free-text question; the
// ranking is fused with title matching to hint the generation fallback.
package rag

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/iwilltry42/bm25-go/bm25"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/textnorm"
)

// Result is one ranked course from a BM25 search.
// Confidence is derived from rank position, not from the raw score, because
// BM25 scores are unbounded and query-dependent.
type Result struct {
	CourseID   string
	Title      string
	Score      float64
	Rank       int // 1-indexed
	Confidence float64
}

// Index is a BM25 index over catalog courses, one document per course.
type Index struct {
	mu          sync.RWMutex
	okapi       *bm25.BM25Okapi
	docIDToMeta []docMeta
	logger      *logger.Logger
	initialized bool
}

type docMeta struct {
	courseID string
	title    string
}

// NewIndex creates an empty index.
func NewIndex(log *logger.Logger) *Index {
	return &Index{logger: log}
}

// Initialize builds the index from the catalog. Each course contributes one
// document: title, descriptions and activities concatenated. An empty
// catalog yields an initialized, always-empty index.
func (idx *Index) Initialize(cat *catalog.Catalog) error {
	if idx == nil {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	var corpus []string
	var meta []docMeta
	for _, c := range cat.Courses() {
		doc := strings.TrimSpace(strings.Join([]string{
			c.Title, c.ShortDescription, c.FullDescription, c.Activities,
		}, "\n"))
		if doc == "" {
			continue
		}
		corpus = append(corpus, doc)
		meta = append(meta, docMeta{courseID: c.ID, title: c.Title})
	}

	if len(corpus) == 0 {
		idx.initialized = true
		return nil
	}

	// k1=1.5, b=0.75 are the standard BM25 parameters.
	okapi, err := bm25.NewBM25Okapi(corpus, tokenize, 1.5, 0.75, nil)
	if err != nil {
		return fmt.Errorf("failed to create BM25 index: %w", err)
	}

	idx.okapi = okapi
	idx.docIDToMeta = meta
	idx.initialized = true
	idx.logger.WithModule("rag").WithField("docs", len(corpus)).Info("BM25 index initialized")
	return nil
}

// Search ranks courses against the query, descending by score, keeping only
// positive scores and at most topN results. A nil or empty index returns nil.
func (idx *Index) Search(query string, topN int) ([]Result, error) {
	if idx == nil || !idx.IsEnabled() {
		return nil, nil
	}

	tokenized := tokenize(query)
	if len(tokenized) == 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores, err := idx.okapi.GetScores(tokenized)
	if err != nil {
		return nil, fmt.Errorf("BM25 scoring failed: %w", err)
	}

	var results []Result
	for docID, score := range scores {
		if score <= 0 || docID >= len(idx.docIDToMeta) {
			continue
		}
		results = append(results, Result{
			CourseID: idx.docIDToMeta[docID].courseID,
			Title:    idx.docIDToMeta[docID].title,
			Score:    score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	for i := range results {
		results[i].Rank = i + 1
		results[i].Confidence = rankConfidence(i + 1)
	}

	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results, nil
}

// IsEnabled reports whether the index holds any documents.
func (idx *Index) IsEnabled() bool {
	if idx == nil {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized && idx.okapi != nil
}

// Count returns the number of indexed documents.
func (idx *Index) Count() int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docIDToMeta)
}

// rankConfidence maps a rank position to a bounded confidence:
// rank 1 → 0.95, rank 5 → 0.80, rank 10 → 0.67.
func rankConfidence(rank int) float64 {
	if rank <= 0 {
		return 0
	}
	return 1.0 / (1.0 + 0.05*float64(rank))
}

// tokenize normalizes Spanish text (casefold, strip diacritics) and splits
// on whitespace. Accent variants of the same word must score identically.
func tokenize(text string) []string {
	return textnorm.Tokens(text)
}
