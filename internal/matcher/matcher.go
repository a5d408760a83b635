// Package matcher ranks catalog courses against a free-text query and
// decides whether the query directly names one specific course.
//
// Ranking uses token-set Jaccard similarity. Direct-mention detection is
// deliberately stricter than ranking: it triggers hard policy actions
// (refusing service for closed courses), so a short generic title must not
// direct-match on a single shared word.
package matcher

import (
	"sort"
	"strings"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/textnorm"
)

// Direct-mention thresholds. Containment aside, a mention requires either
// high overall overlap, or at least two shared tokens with moderate overlap.
const (
	jaccardStrong       = 0.72
	jaccardModerate     = 0.55
	minSharedForModerate = 2
)

// Match is one ranked candidate.
type Match struct {
	ID    string
	Title string
	Score float64
}

// Similarity computes token-set Jaccard similarity between two texts over
// their normalized, whitespace-split tokens. Returns 0 when either token set
// is empty.
func Similarity(a, b string) float64 {
	setA := textnorm.TokenSet(a)
	setB := textnorm.TokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := intersectionSize(setA, setB)
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// TopMatches ranks all courses by title similarity to the query, descending.
// Ties keep catalog order (stable sort). The result is truncated to k.
func TopMatches(courses []catalog.Course, query string, k int) []Match {
	querySet := textnorm.TokenSet(query)
	if len(querySet) == 0 || k <= 0 {
		return nil
	}

	matches := make([]Match, 0, len(courses))
	for i := range courses {
		titleSet := textnorm.TokenSet(courses[i].Title)
		if len(titleSet) == 0 {
			continue
		}
		inter := intersectionSize(querySet, titleSet)
		union := len(querySet) + len(titleSet) - inter
		matches = append(matches, Match{
			ID:    courses[i].ID,
			Title: courses[i].Title,
			Score: float64(inter) / float64(union),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// IsDirectMention reports whether the query unambiguously names the course
// title: normalized substring containment (covers "tell me about the X
// course" phrasing), or token overlap above the dual thresholds.
func IsDirectMention(query, title string) bool {
	normQuery := textnorm.Normalize(query)
	normTitle := textnorm.Normalize(title)
	if normQuery == "" || normTitle == "" {
		return false
	}

	if containsPhrase(normQuery, normTitle) {
		return true
	}

	querySet := textnorm.TokenSet(query)
	titleSet := textnorm.TokenSet(title)
	inter := intersectionSize(querySet, titleSet)
	if inter == 0 {
		return false
	}
	union := len(querySet) + len(titleSet) - inter
	jaccard := float64(inter) / float64(union)

	if jaccard >= jaccardStrong {
		return true
	}
	return inter >= minSharedForModerate && jaccard >= jaccardModerate
}

// FindDirectMention returns the first catalog course directly mentioned by
// the query, in catalog order.
func FindDirectMention(courses []catalog.Course, query string) (*catalog.Course, bool) {
	for i := range courses {
		if IsDirectMention(query, courses[i].Title) {
			return &courses[i], true
		}
	}
	return nil, false
}

func intersectionSize(a, b map[string]struct{}) int {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for tok := range small {
		if _, ok := large[tok]; ok {
			n++
		}
	}
	return n
}

// containsPhrase checks substring containment on token boundaries, so the
// title "costura" matches inside "curso de costura basica" but a title token
// never matches the middle of a longer word.
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	if text == phrase {
		return true
	}
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], phrase)
		if idx < 0 {
			return false
		}
		idx += start
		beforeOK := idx == 0 || text[idx-1] == ' '
		end := idx + len(phrase)
		afterOK := end == len(text) || text[end] == ' '
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
	return false
}
