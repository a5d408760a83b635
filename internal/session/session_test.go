package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestHistoryWindowBound(t *testing.T) {
	s := NewStore(6)

	for i := 0; i < 10; i++ {
		s.AppendTurn("k", fmt.Sprintf("pregunta %d", i), fmt.Sprintf("respuesta %d", i))
	}

	snap := s.Snapshot("k")
	require.Len(t, snap.History, 6, "window must never exceed 6 entries")
	assert.Equal(t, "pregunta 7", snap.History[0].Text)
	assert.Equal(t, "respuesta 9", snap.History[5].Text)
	assert.Equal(t, "user", snap.History[0].Role)
	assert.Equal(t, "assistant", snap.History[5].Role)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(6)
	s.AppendTurn("k", "hola", "buenas")

	snap := s.Snapshot("k")
	snap.History[0].Text = "mutado"

	again := s.Snapshot("k")
	assert.Equal(t, "hola", again.History[0].Text)
}

func TestLastOffered(t *testing.T) {
	s := NewStore(6)

	_, ok := s.LastOffered("k")
	assert.False(t, ok)

	s.SetLastOffered("k", Offer{CourseID: "1", Title: "Curso de Costura", FormURL: "https://forms.gle/abc123"})
	offer, ok := s.LastOffered("k")
	require.True(t, ok)
	assert.Equal(t, "Curso de Costura", offer.Title)
	assert.Equal(t, "https://forms.gle/abc123", offer.FormURL)
}

func TestUnknownKeyIsEmpty(t *testing.T) {
	s := NewStore(6)
	snap := s.Snapshot("nunca-vista")
	assert.Empty(t, snap.History)
	assert.Nil(t, snap.LastOffered)
}

func TestPruneIdle(t *testing.T) {
	s := NewStore(6)
	s.AppendTurn("vieja", "hola", "buenas")
	s.shardFor("vieja").sessions["vieja"].lastSeen = time.Now().Add(-2 * time.Hour)
	s.AppendTurn("nueva", "hola", "buenas")

	removed := s.PruneIdle(time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Snapshot("vieja").History)
	assert.NotEmpty(t, s.Snapshot("nueva").History)
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore(6)

	var eg errgroup.Group
	for g := 0; g < 8; g++ {
		key := fmt.Sprintf("sesion-%d", g%4)
		eg.Go(func() error {
			for i := 0; i < 50; i++ {
				s.AppendTurn(key, "p", "r")
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	assert.Equal(t, 4, s.Len())
	for g := 0; g < 4; g++ {
		snap := s.Snapshot(fmt.Sprintf("sesion-%d", g))
		assert.Len(t, snap.History, 6)
	}
}
