package rag

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/matcher"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	data := `[
		{"id": "1", "title": "Curso de Costura", "short_description": "Confección de prendas y arreglos con máquina de coser"},
		{"id": "2", "title": "Curso de Gastronomía", "short_description": "Cocina regional, panificación y repostería"},
		{"id": "3", "title": "Electricidad Domiciliaria", "short_description": "Instalaciones eléctricas seguras en el hogar"}
	]`
	cat, err := catalog.Load(strings.NewReader(data), logger.NewWithWriter("error", io.Discard), nil)
	require.NoError(t, err)

	idx := NewIndex(logger.NewWithWriter("error", io.Discard))
	require.NoError(t, idx.Initialize(cat))
	return idx
}

func TestSearchRanksRelevantCourseFirst(t *testing.T) {
	idx := testIndex(t)
	require.True(t, idx.IsEnabled())
	assert.Equal(t, 3, idx.Count())

	results, err := idx.Search("quiero aprender repostería y panificación", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "2", results[0].CourseID)
	assert.Equal(t, 1, results[0].Rank)
	assert.InDelta(t, 0.95, results[0].Confidence, 0.01)
}

func TestSearchAccentInsensitive(t *testing.T) {
	idx := testIndex(t)

	withAccents, err := idx.Search("instalaciones eléctricas", 3)
	require.NoError(t, err)
	withoutAccents, err := idx.Search("instalaciones electricas", 3)
	require.NoError(t, err)

	require.NotEmpty(t, withAccents)
	require.NotEmpty(t, withoutAccents)
	assert.Equal(t, withAccents[0].CourseID, withoutAccents[0].CourseID)
	assert.Equal(t, "3", withAccents[0].CourseID)
}

func TestSearchEmptyQuery(t *testing.T) {
	idx := testIndex(t)

	results, err := idx.Search("   ", 3)
	require.NoError(t, err)
	assert.Nil(t, results)
}

func TestNilAndEmptyIndex(t *testing.T) {
	var nilIdx *Index
	assert.False(t, nilIdx.IsEnabled())
	assert.Zero(t, nilIdx.Count())
	results, err := nilIdx.Search("algo", 3)
	require.NoError(t, err)
	assert.Nil(t, results)

	empty := NewIndex(logger.NewWithWriter("error", io.Discard))
	require.NoError(t, empty.Initialize(catalog.Empty()))
	assert.False(t, empty.IsEnabled())
}

func TestFuseHints(t *testing.T) {
	title := []matcher.Match{
		{ID: "1", Title: "Curso de Costura", Score: 0.8},
		{ID: "2", Title: "Curso de Gastronomía", Score: 0.3},
	}
	keyword := []Result{
		{CourseID: "3", Title: "Electricidad Domiciliaria", Score: 4.2},
		{CourseID: "1", Title: "Curso de Costura", Score: 2.1},
	}

	hints := FuseHints(title, keyword, 3)
	require.Len(t, hints, 3)
	// Course 1 appears in both rankings, so it must fuse to the top.
	assert.Equal(t, "1", hints[0].ID)

	// Fused scores are descending.
	for i := 1; i < len(hints); i++ {
		assert.GreaterOrEqual(t, hints[i-1].Score, hints[i].Score)
	}
}

func TestFuseHintsTruncates(t *testing.T) {
	title := []matcher.Match{{ID: "1"}, {ID: "2"}, {ID: "3"}}
	hints := FuseHints(title, nil, 2)
	assert.Len(t, hints, 2)
}
