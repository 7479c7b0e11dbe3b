package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"replayRecorder/internal/browser"
	"replayRecorder/internal/database"
	"replayRecorder/internal/media"
	"replayRecorder/internal/progress"
	"replayRecorder/internal/replay"
)

const replayHost = "https://replay.pokemonshowdown.com/"

type frame struct {
	turn    string
	message string
	log     []string
}

var victoryFrames = []frame{
	{turn: "Turn 1"},
	{turn: "Turn 1", log: []string{"Turn 1", "Ash won the battle!"}},
}

type fakeSession struct {
	mu       sync.Mutex
	frames   []frame
	calls    int
	url      string
	keys     []string
	finished bool
	closed   bool
	onClose  func()
}

func (s *fakeSession) current() frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := min(s.calls/3, len(s.frames)-1)
	s.calls++
	return s.frames[idx]
}

func (s *fakeSession) TurnText(context.Context) (string, error) { return s.current().turn, nil }

func (s *fakeSession) MessageText(context.Context) (string, error) { return s.current().message, nil }

func (s *fakeSession) LogEntries(context.Context) ([]string, error) { return s.current().log, nil }

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.url = url
	return nil
}

func (s *fakeSession) Customize(context.Context) error { return nil }

func (s *fakeSession) PressKey(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return nil
}

func (s *fakeSession) Elapsed() time.Duration { return 2 * time.Second }

func (s *fakeSession) Finish(_ context.Context, dst string) error {
	s.finished = true
	return os.WriteFile(dst, []byte("webm"), 0o644)
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed && s.onClose != nil {
		s.onClose()
	}
	s.closed = true
	return nil
}

type fakeBrowser struct {
	mu        sync.Mutex
	frames    []frame
	sessions  []*fakeSession
	options   []browser.SessionOptions
	active    int
	maxActive int
}

func (b *fakeBrowser) Launch(context.Context) error { return nil }

func (b *fakeBrowser) Close() error { return nil }

func (b *fakeBrowser) NewSession(_ context.Context, opts browser.SessionOptions) (browser.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active++
	b.maxActive = max(b.maxActive, b.active)
	s := &fakeSession{frames: b.frames, onClose: func() {
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	}}
	b.sessions = append(b.sessions, s)
	b.options = append(b.options, opts)
	return s, nil
}

type fakeFetcher struct {
	replays map[string]*replay.Replay
}

func (f *fakeFetcher) Fetch(_ context.Context, base string) (*replay.Replay, error) {
	r, ok := f.replays[base]
	if !ok {
		return nil, fmt.Errorf("%w: %s ответил 404", replay.ErrInvalidLink, base)
	}
	return r, nil
}

type fakeTranscoder struct {
	mu      sync.Mutex
	failFix bool
	trim    time.Duration
}

func (t *fakeTranscoder) FixMetadata(_ context.Context, src, dst string, trim time.Duration) error {
	t.mu.Lock()
	t.trim = trim
	t.mu.Unlock()
	if t.failFix {
		return errors.New("ffmpeg exited with 1")
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (t *fakeTranscoder) ToGIF(_ context.Context, _, dst string, _ media.GIFOptions) error {
	return os.WriteFile(dst, []byte("gif"), 0o644)
}

type fakeHistory struct {
	mu   sync.Mutex
	next uint
	recs map[uint]*database.Recording
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{recs: map[uint]*database.Recording{}}
}

func (h *fakeHistory) CreateRecording(rec *database.Recording) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	rec.ID = h.next
	cp := *rec
	h.recs[rec.ID] = &cp
	return nil
}

func (h *fakeHistory) MarkRecording(id uint, format, p1, p2, endTurn string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.recs[id]
	rec.Status, rec.Format, rec.Player1, rec.Player2, rec.EndTurn = database.StatusRecording, format, p1, p2, endTurn
	return nil
}

func (h *fakeHistory) CompleteRecording(id uint, stopReason, filePath, gifPath string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.recs[id]
	rec.Status, rec.StopReason, rec.FilePath, rec.GIFPath = database.StatusCompleted, stopReason, filePath, gifPath
	return nil
}

func (h *fakeHistory) FailRecording(id uint, reason string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec := h.recs[id]
	rec.Status, rec.Error = database.StatusFailed, reason
	return nil
}

func battleLog(turns int) string {
	var b strings.Builder
	for i := 1; i <= turns; i++ {
		fmt.Fprintf(&b, "|\n|turn|%d\n", i)
	}
	return b.String()
}

type fixture struct {
	recorder   *Recorder
	browser    *fakeBrowser
	transcoder *fakeTranscoder
	history    *fakeHistory
	dir        string
}

func newFixture(t *testing.T, frames []frame, opts Options) *fixture {
	t.Helper()

	dir := t.TempDir()
	opts.OutputDir = dir
	if opts.RecordTimeout == 0 {
		opts.RecordTimeout = 2 * time.Second
	}

	fetcher := &fakeFetcher{replays: map[string]*replay.Replay{
		replayHost + "gen9ou-1": {P1: "Ash", P2: "Misty", Format: "[Gen 9] OU", Log: battleLog(1)},
		replayHost + "gen9ou-2": {P1: "Brock", P2: "Gary", Format: "[Gen 9] OU", Log: battleLog(5)},
		replayHost + "gen9ou-3": {P1: "May", P2: "Dawn", Format: "[Gen 9] UU", Log: battleLog(1)},
	}}
	fb := &fakeBrowser{frames: frames}
	tr := &fakeTranscoder{}
	h := newFakeHistory()

	r := New(fb, fetcher, tr, h, zap.NewNop(), opts)
	var n atomic.Int32
	r.newToken = func() string { return fmt.Sprintf("tok%d", n.Add(1)) }

	return &fixture{recorder: r, browser: fb, transcoder: tr, history: h, dir: dir}
}

func (f *fixture) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(f.dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

func TestRecordToVictory(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{Debug: true})

	out, err := f.recorder.Record(context.Background(), replay.Job{Link: replayHost + "gen9ou-1"})
	require.NoError(t, err)

	assert.Equal(t, progress.StopVictory, out.Reason)
	assert.Equal(t, filepath.Join(f.dir, "replay-tok1.webm"), out.File)
	assert.False(t, out.Raw)
	assert.Equal(t, []string{"replay-tok1.webm"}, f.files(t))
	assert.Equal(t, 2*time.Second, f.transcoder.trim)

	s := f.browser.sessions[0]
	assert.Equal(t, replayHost+"gen9ou-1", s.url)
	assert.Equal(t, []string{"k"}, s.keys)
	assert.True(t, s.finished)
	assert.True(t, s.closed)

	rec := f.history.recs[1]
	assert.Equal(t, database.StatusCompleted, rec.Status)
	assert.Equal(t, "victory", rec.StopReason)
	assert.Equal(t, "Ash", rec.Player1)
	assert.Equal(t, "2", rec.EndTurn)
}

func TestRecordStopsAtTurnThreshold(t *testing.T) {
	frames := []frame{{turn: "Turn 1"}, {turn: "Turn 2"}, {turn: "Turn 3"}}
	f := newFixture(t, frames, Options{})
	end := progress.Threshold{Turn: 2}

	out, err := f.recorder.Record(context.Background(), replay.Job{
		Link:  replayHost + "gen9ou-2",
		Turns: replay.Range{Start: 1, End: &end},
	})
	require.NoError(t, err)

	assert.Equal(t, progress.StopThreshold, out.Reason)
	assert.False(t, out.Plan.PlayToVictory)
	s := f.browser.sessions[0]
	assert.Equal(t, replayHost+"gen9ou-2?turn=1", s.url)
	assert.Equal(t, []string{"k", "k"}, s.keys)
}

func TestRecordKeepsRawVideoWhenFixFails(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{})
	f.transcoder.failFix = true

	out, err := f.recorder.Record(context.Background(), replay.Job{Link: replayHost + "gen9ou-1"})
	require.NoError(t, err)

	assert.True(t, out.Raw)
	assert.Equal(t, []string{"replay-tok1.webm"}, f.files(t))
	data, err := os.ReadFile(out.File)
	require.NoError(t, err)
	assert.Equal(t, "webm", string(data))
}

func TestRecordGIF(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{GIF: true})

	out, err := f.recorder.Record(context.Background(), replay.Job{Link: replayHost + "gen9ou-1"})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.dir, "replay-tok1.gif"), out.GIF)
	assert.Equal(t, []string{"replay-tok1.gif", "replay-tok1.webm"}, f.files(t))
	assert.Equal(t, out.GIF, f.history.recs[1].GIFPath)
}

func TestRecordTimeoutIsSoftStop(t *testing.T) {
	f := newFixture(t, []frame{{turn: "Turn 1"}}, Options{RecordTimeout: 30 * time.Millisecond})

	out, err := f.recorder.Record(context.Background(), replay.Job{Link: replayHost + "gen9ou-1"})
	require.NoError(t, err)

	assert.Equal(t, progress.StopTimeout, out.Reason)
	assert.Equal(t, []string{"replay-tok1.webm"}, f.files(t))
}

func TestRecordInvalidLink(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{})

	_, err := f.recorder.Record(context.Background(), replay.Job{Link: "https://example.com/gen9ou-1"})
	assert.ErrorIs(t, err, replay.ErrInvalidLink)
	assert.Empty(t, f.browser.sessions)
	assert.Equal(t, database.StatusFailed, f.history.recs[1].Status)

	_, err = f.recorder.Record(context.Background(), replay.Job{Link: replayHost + "gen9ou-404"})
	assert.ErrorIs(t, err, replay.ErrInvalidLink)
	assert.Empty(t, f.files(t))
}

func TestRecordEndTurnOutOfRange(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{})
	end := progress.Threshold{Turn: 9}

	_, err := f.recorder.Record(context.Background(), replay.Job{
		Link:  replayHost + "gen9ou-2",
		Turns: replay.Range{End: &end},
	})
	assert.ErrorIs(t, err, replay.ErrEndTurn)
	assert.Empty(t, f.browser.sessions)
}

func TestRecordPassesSessionOptions(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{NoChat: true, NoMusic: true, Speed: "fast", Theme: "dark"})

	_, err := f.recorder.Record(context.Background(), replay.Job{Link: replayHost + "gen9ou-1"})
	require.NoError(t, err)

	opts := f.browser.options[0]
	assert.True(t, opts.NoChat)
	assert.True(t, opts.NoMusic)
	assert.Equal(t, "fast", opts.Speed)
	assert.Equal(t, "dark", opts.Theme)
	assert.True(t, strings.HasPrefix(filepath.Base(opts.VideoDir), ".video-"))
}
