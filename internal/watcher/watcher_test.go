package watcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minewatch/minewatch/internal/mcurl"
	"github.com/minewatch/minewatch/internal/probe"
	"github.com/minewatch/minewatch/internal/store"
)

var watchNow = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// fakePinger replays a scripted sequence of probe outcomes.
type fakePinger struct {
	mu    sync.Mutex
	snaps []*probe.Snapshot
	errs  []error
	calls int
}

func (f *fakePinger) Ping(_ context.Context, _ string, _, _ int) (*probe.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	i := f.calls
	f.calls++
	if i >= len(f.snaps) {
		i = len(f.snaps) - 1
	}
	return f.snaps[i], f.errs[i]
}

// recordTransport counts deliveries and hands out increasing message ids.
type recordTransport struct {
	mu     sync.Mutex
	nextID int
	calls  []string
	texts  []string
}

func (r *recordTransport) SendMessage(_ context.Context, _ int64, text string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "send")
	r.texts = append(r.texts, text)
	r.nextID++
	return 100 + r.nextID, nil
}

func (r *recordTransport) EditMessage(_ context.Context, _ int64, _ int, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "edit")
	r.texts = append(r.texts, text)
	return nil
}

func (r *recordTransport) DeleteMessage(_ context.Context, _ int64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "delete")
	return nil
}

func (r *recordTransport) PinMessage(_ context.Context, _ int64, _ int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "pin")
	return nil
}

func (r *recordTransport) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func newWatcher(st *store.Store, fp *fakePinger, rt *recordTransport) *Watcher {
	return &Watcher{
		store:       st,
		pinger:      fp,
		transport:   rt,
		interval:    2 * time.Second,
		timeout:     time.Second,
		window:      24 * time.Hour,
		topCount:    3,
		concurrency: 2,
		now:         func() time.Time { return watchNow },
	}
}

func TestCycleFirstStatusSentAndPinned(t *testing.T) {
	st := store.New()
	entry := st.Init(mcurl.Addr{Host: "mc.test.org"}, 763)
	entry.AddChat(42)

	fp := &fakePinger{
		snaps: []*probe.Snapshot{{
			MaxPlayers: 20,
			Online:     2,
			Sample: []probe.Player{
				{ID: "a", Name: "Alice"},
				{ID: "b", Name: "Bob"},
			},
		}},
		errs: []error{nil},
	}
	rt := &recordTransport{}

	newWatcher(st, fp, rt).cycle(context.Background())

	assert.Equal(t, []string{"send", "pin"}, rt.snapshot())
	require.Len(t, rt.texts, 1)
	assert.Contains(t, rt.texts[0], "*mc.test.org* *2/20*")
	assert.Contains(t, rt.texts[0], "🟢Alice")

	entry.Lock()
	defer entry.Unlock()
	assert.Equal(t, 101, entry.Chats[0].MessageID)
	assert.False(t, entry.HasError)
	require.Len(t, entry.Players, 2)
	assert.True(t, entry.Players[0].IsOnline)
}

func TestCycleTruncatedSampleCount(t *testing.T) {
	st := store.New()
	entry := st.Init(mcurl.Addr{Host: "mc.test.org"}, 763)
	entry.AddChat(42)

	fp := &fakePinger{
		snaps: []*probe.Snapshot{{
			MaxPlayers: 20,
			Online:     5,
			Sample:     []probe.Player{{ID: "a", Name: "Alice"}},
		}},
		errs: []error{nil},
	}
	rt := &recordTransport{}

	newWatcher(st, fp, rt).cycle(context.Background())

	require.Len(t, rt.texts, 1)
	assert.Contains(t, rt.texts[0], "*mc.test.org* *5/20*")

	entry.Lock()
	defer entry.Unlock()
	assert.Equal(t, 5, entry.OnlineCount)
}

func TestCycleUnchangedRenderSuppressed(t *testing.T) {
	st := store.New()
	entry := st.Init(mcurl.Addr{Host: "mc.test.org"}, 763)
	entry.AddChat(42)

	probeErr := errors.New("i/o timeout")
	fp := &fakePinger{
		snaps: []*probe.Snapshot{nil, nil},
		errs:  []error{probeErr, probeErr},
	}
	rt := &recordTransport{}
	w := newWatcher(st, fp, rt)

	// The first failure flips the entry offline and pushes a message; the
	// second renders identically and must stay silent.
	w.cycle(context.Background())
	assert.Equal(t, []string{"send", "pin"}, rt.snapshot())

	w.cycle(context.Background())
	assert.Equal(t, []string{"send", "pin"}, rt.snapshot())

	require.Len(t, rt.texts, 1)
	assert.Contains(t, rt.texts[0], "🛑 *mc.test.org* is offline")
}

func TestCycleProbeFailureMarksPlayersOffline(t *testing.T) {
	st := store.New()
	entry := st.Init(mcurl.Addr{Host: "mc.test.org"}, 763)
	entry.AddChat(42)

	fp := &fakePinger{
		snaps: []*probe.Snapshot{
			{MaxPlayers: 20, Online: 1, Sample: []probe.Player{{ID: "a", Name: "Alice"}}},
			nil,
		},
		errs: []error{nil, errors.New("connection refused")},
	}
	rt := &recordTransport{}
	w := newWatcher(st, fp, rt)

	w.cycle(context.Background())
	w.cycle(context.Background())

	entry.Lock()
	defer entry.Unlock()
	assert.True(t, entry.HasError)
	assert.Zero(t, entry.OnlineCount)
	assert.Equal(t, 20, entry.MaxPlayers)
	require.Len(t, entry.Players, 1)
	assert.False(t, entry.Players[0].IsOnline)
	assert.Equal(t, watchNow, entry.Players[0].LastOnline)
}

func TestCycleExistingMessageEdited(t *testing.T) {
	st := store.New()
	entry := st.Init(mcurl.Addr{Host: "mc.test.org"}, 763)
	entry.AddChat(42)
	entry.SetMessageID(42, 77)

	fp := &fakePinger{
		snaps: []*probe.Snapshot{{MaxPlayers: 20, Online: 1, Sample: []probe.Player{{ID: "a", Name: "Alice"}}}},
		errs:  []error{nil},
	}
	rt := &recordTransport{}

	newWatcher(st, fp, rt).cycle(context.Background())

	assert.Equal(t, []string{"edit"}, rt.snapshot())
	entry.Lock()
	defer entry.Unlock()
	assert.Equal(t, 77, entry.Chats[0].MessageID)
}
