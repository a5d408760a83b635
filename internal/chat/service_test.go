package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gmaidana/cursos-chatbot-go/internal/catalog"
	apperrors "github.com/gmaidana/cursos-chatbot-go/internal/errors"
	"github.com/gmaidana/cursos-chatbot-go/internal/genai"
	"github.com/gmaidana/cursos-chatbot-go/internal/logger"
	"github.com/gmaidana/cursos-chatbot-go/internal/session"
)

const serviceCatalogJSON = `[
	{"id": "1", "title": "Curso de Costura", "short_description": "Confección básica", "state": "enrollment_open", "enrollment_form_url": "https://forms.gle/abc123", "localities": ["Perico"]},
	{"id": "2", "title": "Curso de Herrería", "state": "upcoming", "enrollment_form_url": "https://forms.gle/upcoming1"},
	{"id": "42", "title": "Curso de Gastronomía", "state": "finished", "enrollment_form_url": "https://forms.gle/old42"}
]`

type fakeChain struct {
	reply string
	err   error
	calls int
}

func (f *fakeChain) Generate(context.Context, string, string) (string, genai.Provider, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return f.reply, genai.ProviderGemini, nil
}

func (f *fakeChain) IsEnabled() bool { return true }

func testService(t *testing.T, chain Generator) *Service {
	t.Helper()
	log := logger.NewWithWriter("error", io.Discard)
	cat, err := catalog.Load(strings.NewReader(serviceCatalogJSON), log, nil)
	require.NoError(t, err)

	return NewService(cat, chain, nil, session.NewStore(6), nil, log, nil, ServiceConfig{
		GenerationTimeout: time.Second,
		TopMatches:        5,
		MaxMessageLength:  1000,
		MaxListingEntries: 5,
	})
}

func TestTurnEmptyMessage(t *testing.T) {
	chain := &fakeChain{reply: "hola"}
	s := testService(t, chain)

	_, err := s.Turn(context.Background(), "k", "r1", "   ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)
	assert.Zero(t, chain.calls, "empty message must never reach generation")
}

func TestTurnRefusalPreemptsEverything(t *testing.T) {
	chain := &fakeChain{reply: "no debería usarse"}
	s := testService(t, chain)

	reply, err := s.Turn(context.Background(), "k", "r1", "quiero info del curso de gastronomía")
	require.NoError(t, err)

	assert.Equal(t, PathRefusal, reply.Path)
	assert.Equal(t, "42", reply.CourseID)
	assert.Contains(t, reply.Text, "Curso de Gastronomía")
	assert.Contains(t, reply.Text, "ya finalizó")
	assert.Contains(t, reply.Text, "/curso/42?y=2025")
	assert.NotContains(t, reply.Text, "forms.gle")
	assert.Zero(t, chain.calls)
}

func TestTurnEnrollmentOpenOffersLink(t *testing.T) {
	s := testService(t, &fakeChain{})

	reply, err := s.Turn(context.Background(), "k", "r1", "cómo me inscribo al curso de costura")
	require.NoError(t, err)

	assert.Equal(t, PathTemplate, reply.Path)
	assert.Contains(t, reply.Text, "Curso de Costura")
	assert.Contains(t, reply.Text, "https://forms.gle/abc123")

	// The offer is remembered: a bare "pasame el link" replays it.
	reply, err = s.Turn(context.Background(), "k", "r2", "pasame el link")
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "https://forms.gle/abc123")
}

func TestTurnUpcomingCourseNeverLinks(t *testing.T) {
	s := testService(t, &fakeChain{})

	reply, err := s.Turn(context.Background(), "k", "r1", "cómo me inscribo al curso de herrería")
	require.NoError(t, err)

	assert.NotContains(t, reply.Text, "forms.gle")
	assert.Contains(t, reply.Text, "todavía no está abierta")
}

func TestTurnGenerationPathIsSanitized(t *testing.T) {
	chain := &fakeChain{reply: `Podés anotarte acá: <a href="https://forms.gle/old42">formulario</a>`}
	s := testService(t, chain)

	reply, err := s.Turn(context.Background(), "k", "r1", "contame algo sobre cocina regional")
	require.NoError(t, err)

	assert.Equal(t, PathGenerated, reply.Path)
	assert.Equal(t, 1, chain.calls)
	assert.NotContains(t, reply.Text, "forms.gle/old42")
	assert.Contains(t, reply.Text, "todavía no está abierta")
}

func TestTurnGenerationFailure(t *testing.T) {
	chain := &fakeChain{err: errors.New("providers down")}
	s := testService(t, chain)

	_, err := s.Turn(context.Background(), "k", "r1", "contame algo sobre cocina regional")
	assert.ErrorIs(t, err, apperrors.ErrGenerationFailed)
}

func TestTurnWithoutGeneratorFallsBackToHelp(t *testing.T) {
	s := testService(t, nil)

	reply, err := s.Turn(context.Background(), "k", "r1", "contame algo sobre cocina regional")
	require.NoError(t, err)
	assert.Equal(t, PathTemplate, reply.Path)
	assert.Equal(t, helpText, reply.Text)
}

func TestTurnSessionWindowBound(t *testing.T) {
	s := testService(t, &fakeChain{reply: "ok"})

	for i := 0; i < 8; i++ {
		_, err := s.Turn(context.Background(), "k", "r", "¿qué cursos hay?")
		require.NoError(t, err)
	}

	snap := s.sessions.Snapshot("k")
	assert.LessOrEqual(t, len(snap.History), 6)
}

func TestTurnTruncatesLongMessages(t *testing.T) {
	s := testService(t, &fakeChain{reply: "ok"})
	s.cfg.MaxMessageLength = 10

	reply, err := s.Turn(context.Background(), "k", "r1", strings.Repeat("cursos ", 50))
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Text)
}
