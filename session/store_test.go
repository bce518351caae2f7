package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/lvillar/docforge"
	"github.com/lvillar/docforge/session"
)

type gauge struct {
	mu sync.Mutex
	n  int
}

func (g *gauge) SetSessions(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = n
}

func (g *gauge) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}

func TestStoreCRUD(t *testing.T) {
	g := &gauge{}
	store, err := session.NewStore(time.Hour, g, zaptest.NewLogger(t))
	require.NoError(t, err)

	a, err := store.Create(session.WithID("a"))
	require.NoError(t, err)
	b, err := store.Create(session.WithID("b"))
	require.NoError(t, err)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, 2, g.get())

	_, err = store.Create(session.WithID("a"))
	assert.ErrorIs(t, err, session.ErrDuplicateSession)

	got, err := store.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = store.Get("zzz")
	assert.ErrorIs(t, err, session.ErrSessionNotFound)

	all, err := store.List("")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID())
	assert.Equal(t, "b", all[1].ID())

	require.NoError(t, store.Delete("b"))
	assert.ErrorIs(t, store.Delete("b"), session.ErrSessionNotFound)
	assert.Equal(t, 1, g.get())

	// a deleted session no longer reaches the index
	require.NoError(t, b.SelectTemplate(docforge.TypeNDA))
	assert.Equal(t, 1, store.Len())
}

func TestStoreListByType(t *testing.T) {
	store, err := session.NewStore(time.Hour, nil, nil)
	require.NoError(t, err)

	inv, err := store.Create()
	require.NoError(t, err)
	nda, err := store.Create()
	require.NoError(t, err)
	_, err = store.Create()
	require.NoError(t, err)

	require.NoError(t, inv.SelectTemplate(docforge.TypeInvoice))
	require.NoError(t, nda.SelectTemplate(docforge.TypeNDA))

	invoices, err := store.List(docforge.TypeInvoice)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Same(t, inv, invoices[0])

	// switching template moves the session between types
	require.NoError(t, inv.SelectTemplate(docforge.TypeNDA))
	ndas, err := store.List(docforge.TypeNDA)
	require.NoError(t, err)
	assert.Len(t, ndas, 2)

	invoices, err = store.List(docforge.TypeInvoice)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestStoreSweep(t *testing.T) {
	var (
		mu  sync.Mutex
		now = time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(d)
	}

	store, err := session.NewStore(30*time.Minute, nil, nil, session.WithClock(clock))
	require.NoError(t, err)

	idle, err := store.Create(session.WithID("idle"))
	require.NoError(t, err)
	active, err := store.Create(session.WithID("active"))
	require.NoError(t, err)

	advance(20 * time.Minute)
	require.NoError(t, active.SelectTemplate(docforge.TypeInvoice))
	advance(20 * time.Minute)

	assert.Equal(t, 1, store.Sweep(clock()))
	_, err = store.Get(idle.ID())
	assert.ErrorIs(t, err, session.ErrSessionNotFound)
	_, err = store.Get(active.ID())
	assert.NoError(t, err)

	assert.Equal(t, 0, store.Sweep(clock()))
	advance(time.Hour)
	assert.Equal(t, 1, store.Sweep(clock()))
	assert.Equal(t, 0, store.Len())
}

func TestStoreRun(t *testing.T) {
	store, err := session.NewStore(time.Nanosecond, nil, nil)
	require.NoError(t, err)
	_, err = store.Create()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
