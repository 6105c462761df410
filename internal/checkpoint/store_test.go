package checkpoint

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rohitw3code/ticket-triage-agent/internal/models"
)

func suspendedState(threadID string) models.TicketState {
	return models.TicketState{
		ThreadID:    threadID,
		Description: "it doesn't work",
		KBMatches: []models.KBMatch{
			{EntryID: "ISSUE-101", Title: "Checkout error 500 on mobile", Similarity: 0.83},
		},
		NeedsClarification: true,
		ClarifyingQuestion: "Which device and browser are you using?",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(16, time.Minute, nil)

	saved := suspendedState("t-1")
	store.Save("t-1", saved)

	loaded, err := store.Load("t-1")
	require.NoError(t, err)
	assert.Equal(t, saved, loaded, "loaded state must reconstruct the suspended state exactly")
}

func TestLoadUnknownThreadID(t *testing.T) {
	store := NewStore(16, time.Minute, nil)

	_, err := store.Load("never-saved")
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, store.Len(), "a failed load must not mutate the store")
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	store := NewStore(16, time.Minute, nil)

	first := suspendedState("t-1")
	store.Save("t-1", first)

	second := first
	second.ClarifyingQuestion = "What changed recently?"
	store.Save("t-1", second)

	loaded, err := store.Load("t-1")
	require.NoError(t, err)
	assert.Equal(t, second, loaded)
	assert.Equal(t, 1, store.Len(), "each thread maps to exactly one live state")
}

func TestDeleteCompletedSession(t *testing.T) {
	store := NewStore(16, time.Minute, nil)

	store.Save("t-1", suspendedState("t-1"))
	store.Delete("t-1")

	_, err := store.Load("t-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestTTLEviction(t *testing.T) {
	store := NewStore(16, 20*time.Millisecond, nil)

	store.Save("t-1", suspendedState("t-1"))
	time.Sleep(60 * time.Millisecond)

	_, err := store.Load("t-1")
	require.ErrorIs(t, err, ErrSessionNotFound, "stale sessions must expire")
}

func TestMaxEntryEviction(t *testing.T) {
	store := NewStore(2, time.Minute, nil)

	store.Save("t-1", suspendedState("t-1"))
	store.Save("t-2", suspendedState("t-2"))
	store.Save("t-3", suspendedState("t-3"))

	assert.Equal(t, 2, store.Len())
	_, err := store.Load("t-1")
	require.ErrorIs(t, err, ErrSessionNotFound, "oldest session is evicted at the cap")

	_, err = store.Load("t-3")
	require.NoError(t, err)
}

func TestConcurrentAccessIsolation(t *testing.T) {
	store := NewStore(128, time.Minute, nil)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t-%d", i)
			state := suspendedState(id)
			state.AdditionalDetails = id
			store.Save(id, state)

			loaded, err := store.Load(id)
			if err != nil {
				t.Errorf("load %s: %v", id, err)
				return
			}
			if loaded.AdditionalDetails != id {
				t.Errorf("cross-contamination: got %q, want %q", loaded.AdditionalDetails, id)
			}
		}(i)
	}
	wg.Wait()
}

func TestErrSessionNotFoundIsMatchable(t *testing.T) {
	store := NewStore(16, time.Minute, nil)

	_, err := store.Load("x")
	assert.True(t, errors.Is(err, ErrSessionNotFound))
}
