package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/core/apperror"
	"formdesk/internal/core/id"
)

type fakeDraft struct {
	id     id.ID
	closed atomic.Bool
}

func newDraft() *fakeDraft { return &fakeDraft{id: id.New()} }

func (d *fakeDraft) ID() id.ID { return d.id }
func (d *fakeDraft) Close()    { d.closed.Store(true) }

func TestManager_OwnerScoping(t *testing.T) {
	m := NewManager[*fakeDraft]("test", Config{}, nil)
	defer m.Close()

	d := newDraft()
	require.NoError(t, m.Put("alice", d))

	got, err := m.Get("alice", d.id)
	require.NoError(t, err)
	assert.Same(t, d, got)

	_, err = m.Get("bob", d.id)
	assert.True(t, apperror.IsNotFound(err))
	assert.True(t, apperror.IsNotFound(m.Discard("bob", d.id)))
	assert.False(t, d.closed.Load())
}

func TestManager_DiscardClosesDraft(t *testing.T) {
	m := NewManager[*fakeDraft]("test", Config{}, nil)
	defer m.Close()

	d := newDraft()
	require.NoError(t, m.Put("alice", d))
	require.NoError(t, m.Discard("alice", d.id))
	assert.True(t, d.closed.Load())
	assert.Zero(t, m.Len())

	_, err := m.Get("alice", d.id)
	assert.True(t, apperror.IsNotFound(err))
}

func TestManager_EvictIdle(t *testing.T) {
	m := NewManager[*fakeDraft]("test", Config{}, nil)
	defer m.Close()
	m.config.IdleTimeout = time.Hour

	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	idle, busy := newDraft(), newDraft()
	require.NoError(t, m.Put("alice", idle))
	require.NoError(t, m.Put("alice", busy))

	now = now.Add(50 * time.Minute)
	_, err := m.Get("alice", busy.id)
	require.NoError(t, err)

	now = now.Add(20 * time.Minute)
	assert.Equal(t, 1, m.EvictIdle())
	assert.True(t, idle.closed.Load())
	assert.False(t, busy.closed.Load())
	assert.Equal(t, 1, m.Len())
}

func TestManager_MaxDraftsPerOwner(t *testing.T) {
	m := NewManager[*fakeDraft]("test", Config{MaxDrafts: 1}, nil)
	defer m.Close()

	require.NoError(t, m.Put("alice", newDraft()))
	assert.True(t, apperror.HasCode(m.Put("alice", newDraft()), apperror.CodeConflict))
	require.NoError(t, m.Put("bob", newDraft()))
	assert.Equal(t, map[string]int{"alice": 1, "bob": 1}, m.Stats().ByOwner)
}

func TestManager_CloseClosesEverything(t *testing.T) {
	m := NewManager[*fakeDraft]("test", Config{IdleTimeout: time.Hour}, nil)
	a, b := newDraft(), newDraft()
	require.NoError(t, m.Put("alice", a))
	require.NoError(t, m.Put("bob", b))

	m.Close()
	m.Close()
	assert.True(t, a.closed.Load())
	assert.True(t, b.closed.Load())
	assert.Zero(t, m.Len())
}
