package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
)

func TestSimilarityBounds(t *testing.T) {
	tests := []struct {
		name string
		a, b string
	}{
		{"Identical", "curso de costura", "curso de costura"},
		{"Disjoint", "gastronomía", "electricidad"},
		{"Partial", "curso de costura", "curso de gastronomía"},
		{"Accents ignored", "gastronomía", "gastronomia"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 1.0)
		})
	}

	assert.Equal(t, 1.0, Similarity("curso de costura", "Curso de Costura"))
	assert.Equal(t, 0.0, Similarity("", "curso"))
	assert.Equal(t, 0.0, Similarity("curso", "¿?!"))
	assert.Equal(t, 0.0, Similarity("", ""))
}

func TestTopMatchesRankingAndStability(t *testing.T) {
	courses := []catalog.Course{
		{ID: "1", Title: "Curso de Costura"},
		{ID: "2", Title: "Curso de Gastronomía"},
		{ID: "3", Title: "Curso de Costura Avanzada"},
		{ID: "4", Title: "Electricidad Domiciliaria"},
	}

	matches := TopMatches(courses, "quiero el curso de costura", 3)
	assert.Len(t, matches, 3)
	assert.Equal(t, "1", matches[0].ID)
	// Descending scores, ties keep catalog order.
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestTopMatchesEmptyQuery(t *testing.T) {
	courses := []catalog.Course{{ID: "1", Title: "Curso de Costura"}}
	assert.Nil(t, TopMatches(courses, "   ", 5))
	assert.Nil(t, TopMatches(courses, "costura", 0))
}

func TestIsDirectMentionSubstring(t *testing.T) {
	assert.True(t, IsDirectMention("quiero info del curso de gastronomía", "Curso de Gastronomía"))
	assert.True(t, IsDirectMention("CURSO DE GASTRONOMÍA", "curso de gastronomia"))
	// Substring mentions survive any superstring query.
	assert.True(t, IsDirectMention("hola, me interesa el curso de gastronomía para mi hija", "Curso de Gastronomía"))
}

func TestIsDirectMentionTokenOverlap(t *testing.T) {
	// Two shared tokens with moderate overlap qualifies.
	assert.True(t, IsDirectMention("costura curso", "Curso de Costura"))
	// One generic shared word must not qualify.
	assert.False(t, IsDirectMention("quiero hacer un curso", "Curso de Costura"))
	assert.False(t, IsDirectMention("hola", "Curso de Costura"))
	assert.False(t, IsDirectMention("", "Curso de Costura"))
	assert.False(t, IsDirectMention("algo", ""))
}

func TestIsDirectMentionNoMidWordMatch(t *testing.T) {
	// Title must match on token boundaries, not inside longer words.
	assert.False(t, IsDirectMention("anticosturante", "costura"))
}

func TestFindDirectMention(t *testing.T) {
	courses := []catalog.Course{
		{ID: "1", Title: "Curso de Costura"},
		{ID: "2", Title: "Curso de Gastronomía"},
	}

	c, ok := FindDirectMention(courses, "cuándo empieza el curso de gastronomía")
	assert.True(t, ok)
	assert.Equal(t, "2", c.ID)

	_, ok = FindDirectMention(courses, "qué cursos hay")
	assert.False(t, ok)
}
