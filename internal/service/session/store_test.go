package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	model "github.com/alokkulkarni/connect-relay/internal/model/session"
	"github.com/alokkulkarni/connect-relay/internal/service/session"
)

func TestStorePutGetDelete(t *testing.T) {
	store := session.NewStore(time.Hour, zap.NewNop())

	store.Put(model.Session{ContactID: "c-1", ParticipantID: "p-1", ParticipantToken: "pt-1"})

	got, err := store.Get("c-1")
	require.NoError(t, err)
	assert.Equal(t, "p-1", got.ParticipantID)
	assert.False(t, got.CreatedAt.IsZero())

	store.Delete("c-1")
	_, err = store.Get("c-1")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	// deleting twice is harmless
	store.Delete("c-1")
	assert.Equal(t, 0, store.Len())
}

func TestStoreAttachAndDeleteByConnection(t *testing.T) {
	store := session.NewStore(time.Hour, zap.NewNop())
	store.Put(model.Session{ContactID: "c-1", ParticipantToken: "pt-1"})
	store.Put(model.Session{ContactID: "c-2", ParticipantToken: "pt-2"})

	assert.True(t, store.AttachConnection("pt-2", "ct-2"))
	assert.False(t, store.AttachConnection("pt-missing", "ct-x"))
	assert.False(t, store.AttachConnection("", "ct-x"))

	got, err := store.Get("c-2")
	require.NoError(t, err)
	assert.Equal(t, "ct-2", got.ConnectionToken)

	id, ok := store.DeleteByConnection("ct-2")
	assert.True(t, ok)
	assert.Equal(t, "c-2", id)
	assert.Equal(t, 1, store.Len())

	_, ok = store.DeleteByConnection("ct-2")
	assert.False(t, ok)
}

func TestStoreSweepRemovesOnlyExpiredSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ages := []time.Duration{
		61 * time.Minute,
		5 * time.Minute,
		3 * time.Hour,
		59 * time.Minute,
		time.Hour,
	}

	// Insertion order must not change which sessions survive.
	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}
	for _, order := range orders {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			store := session.NewStore(time.Hour, zap.NewNop())
			for _, i := range order {
				store.Put(model.Session{
					ContactID: fmt.Sprintf("c-%d", i),
					CreatedAt: now.Add(-ages[i]),
				})
			}

			removed := store.Sweep(now)
			assert.Equal(t, 2, removed)

			for i, age := range ages {
				_, err := store.Get(fmt.Sprintf("c-%d", i))
				if age > time.Hour {
					assert.ErrorIs(t, err, session.ErrSessionNotFound, "age %s", age)
				} else {
					assert.NoError(t, err, "age %s", age)
				}
			}
		})
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	store := session.NewStore(time.Minute, zap.NewNop())
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("c-%d", i)
			store.Put(model.Session{ContactID: id, ParticipantToken: "pt-" + id, CreatedAt: now})
			store.AttachConnection("pt-"+id, "ct-"+id)
			_, _ = store.Get(id)
			store.Sweep(now)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, store.Len())
}

func TestStoreRunStopsOnCancel(t *testing.T) {
	store := session.NewStore(time.Hour, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
