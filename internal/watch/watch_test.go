package watch

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// ---------------------------------------------------------------------------
// Debouncer
// ---------------------------------------------------------------------------

func TestDebouncer_SingleEvent(t *testing.T) {
	var callCount atomic.Int32
	var lastPath atomic.Value

	d := NewDebouncer(50*time.Millisecond, func(path string) {
		callCount.Add(1)
		lastPath.Store(path)
	})
	defer d.Stop()

	d.Trigger("a.ply")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, "a.ply", lastPath.Load())
}

func TestDebouncer_MultipleEventsCoalesced(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer(100*time.Millisecond, func(_ string) {
		callCount.Add(1)
	})
	defer d.Stop()

	for i := 0; i < 10; i++ {
		d.Trigger("scene.ply")
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(1), callCount.Load())
}

func TestDebouncer_LastEventWins(t *testing.T) {
	var lastPath atomic.Value

	d := NewDebouncer(50*time.Millisecond, func(path string) {
		lastPath.Store(path)
	})
	defer d.Stop()

	d.Trigger("first.ply")
	time.Sleep(10 * time.Millisecond)
	d.Trigger("second.ply")
	time.Sleep(10 * time.Millisecond)
	d.Trigger("third.ply")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, "third.ply", lastPath.Load())
}

func TestDebouncer_Stop(t *testing.T) {
	var callCount atomic.Int32

	d := NewDebouncer(50*time.Millisecond, func(_ string) {
		callCount.Add(1)
	})

	d.Trigger("a.ply")
	d.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), callCount.Load())
}

func TestDebouncer_StopWaitsForRunningCallback(t *testing.T) {
	started := make(chan struct{})

	var finished atomic.Bool

	d := NewDebouncer(time.Millisecond, func(_ string) {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
	})

	d.Trigger("a.ply")
	<-started
	d.Stop()

	assert.True(t, finished.Load())
}

// ---------------------------------------------------------------------------
// ChannelDiff
// ---------------------------------------------------------------------------

func TestChannelDiff(t *testing.T) {
	prev := []string{"x", "y", "z", "f_rest_0"}
	curr := []string{"x", "y", "z", "opacity"}

	changes := ChannelDiff(prev, curr)
	assert.Equal(t, []ChannelChange{
		{Kind: "removed", Channel: "f_rest_0"},
		{Kind: "added", Channel: "opacity"},
	}, changes)

	assert.Empty(t, ChannelDiff(prev, prev))
}

func TestChannelDiffSummary(t *testing.T) {
	tests := []struct {
		name    string
		changes []ChannelChange
		want    string
	}{
		{
			name: "no changes",
			want: "no channel changes",
		},
		{
			name:    "added only",
			changes: []ChannelChange{{Kind: "added", Channel: "a"}, {Kind: "added", Channel: "b"}},
			want:    "+2 channel(s) retained",
		},
		{
			name:    "mixed",
			changes: []ChannelChange{{Kind: "added", Channel: "a"}, {Kind: "removed", Channel: "b"}},
			want:    "+1 channel(s) retained, -1 channel(s) no longer retained",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChannelDiffSummary(tt.changes))
		})
	}
}

// ---------------------------------------------------------------------------
// isRelevant
// ---------------------------------------------------------------------------

func TestIsRelevant(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scene.ply")

	targets, dirs, err := resolveTargets([]string{input, filepath.Join(dir, ".plystrip.yaml")})
	require.NoError(t, err)
	assert.Len(t, dirs, 1)

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write input", fsnotify.Event{Name: input, Op: fsnotify.Write}, true},
		{"create input", fsnotify.Event{Name: input, Op: fsnotify.Create}, true},
		{"rename input", fsnotify.Event{Name: input, Op: fsnotify.Rename}, true},
		{"chmod input", fsnotify.Event{Name: input, Op: fsnotify.Chmod}, false},
		{"remove input", fsnotify.Event{Name: input, Op: fsnotify.Remove}, false},
		{"config", fsnotify.Event{Name: filepath.Join(dir, ".plystrip.yaml"), Op: fsnotify.Write}, true},
		{"output", fsnotify.Event{Name: filepath.Join(dir, "out.ply"), Op: fsnotify.Create}, false},
		{"temp file", fsnotify.Event{Name: filepath.Join(dir, "out.ply.tmp-123"), Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRelevant(tt.event, targets))
		})
	}
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// syncBuffer is a bytes.Buffer safe for the concurrent writes of the
// watcher's status output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestRun_EmptyInput(t *testing.T) {
	err := Run(context.Background(), Options{}, func(_ context.Context) (*RunResult, error) {
		return &RunResult{}, nil
	})
	assert.ErrorContains(t, err, "input path must not be empty")
}

func TestRun_MissingDirectory(t *testing.T) {
	opts := DefaultOptions()
	opts.Input = filepath.Join(t.TempDir(), "missing", "scene.ply")
	opts.Out = io.Discard

	err := Run(context.Background(), opts, func(_ context.Context) (*RunResult, error) {
		return &RunResult{}, nil
	})
	assert.ErrorContains(t, err, "watching directory")
}

func TestRun_RerunsOnChange(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("os/signal.signal_recv"), goleak.IgnoreCurrent())

	dir := t.TempDir()
	input := filepath.Join(dir, "scene.ply")
	require.NoError(t, os.WriteFile(input, []byte("ply\n"), 0o644)) //nolint:gosec // test

	ctx, cancel := context.WithCancel(context.Background())

	out := &syncBuffer{}
	opts := DefaultOptions()
	opts.Input = input
	opts.Debounce = 30 * time.Millisecond
	opts.Out = out

	var runCount atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			n := runCount.Add(1)
			retained := []string{"x", "y", "z"}

			if n > 1 {
				retained = append(retained, "opacity")
			}

			return &RunResult{Rows: 1, Retained: retained, Removed: 3, OutputBytes: 2048}, nil
		})
	}()

	require.Eventually(t, func() bool { return runCount.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	// Unrelated files in the same directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.ply"), []byte("x"), 0o644)) //nolint:gosec // test
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), runCount.Load())

	require.NoError(t, os.WriteFile(input, []byte("ply\nformat ascii 1.0\n"), 0o644)) //nolint:gosec // test
	require.Eventually(t, func() bool { return runCount.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	status := out.String()
	assert.Contains(t, status, "watching "+input)
	assert.Contains(t, status, "(initial) → OK (1 rows, 3 channels kept, 3 removed, 2.0 kB)")
	assert.Contains(t, status, "channels: +1 channel(s) retained")
	assert.Contains(t, status, "shutting down watcher")
}

func TestRun_RunFuncError(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "scene.ply")

	ctx, cancel := context.WithCancel(context.Background())

	out := &syncBuffer{}
	opts := DefaultOptions()
	opts.Input = input
	opts.Debounce = 30 * time.Millisecond
	opts.Out = out

	var callCount atomic.Int32

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, opts, func(_ context.Context) (*RunResult, error) {
			callCount.Add(1)
			return nil, errors.New("no channels matched")
		})
	}()

	// The initial run fails, but the watcher keeps running.
	require.Eventually(t, func() bool { return callCount.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), "ERROR: no channels matched")
}
