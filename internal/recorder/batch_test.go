package recorder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"replayRecorder/internal/database"
	"replayRecorder/internal/replay"
)

func TestParseBulk(t *testing.T) {
	tests := []struct {
		raw     string
		links   int
		want    int
		wantErr bool
	}{
		{raw: "all", links: 4, want: 4},
		{raw: "2", links: 4, want: 2},
		{raw: "10", links: 3, want: 3},
		{raw: "1", links: 1, want: 1},
		{raw: "0", links: 3, wantErr: true},
		{raw: "some", links: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseBulk(tt.raw, tt.links)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBatches(t *testing.T) {
	jobs := []replay.Job{{Link: "a"}, {Link: "b"}, {Link: "c"}, {Link: "d"}, {Link: "e"}}

	batches := Batches(jobs, 2)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 2)
	assert.Len(t, batches[2], 1)
	assert.Equal(t, "e", batches[2][0].Link)

	assert.Len(t, Batches(jobs, 0), 5)
	assert.Empty(t, Batches(nil, 3))
}

func TestRecordAllIsolatesFailures(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{})
	jobs := []replay.Job{
		{Link: replayHost + "gen9ou-1"},
		{Link: "https://example.com/broken"},
		{Link: replayHost + "gen9ou-3"},
	}

	results, err := f.recorder.RecordAll(context.Background(), jobs, 2)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.ErrorIs(t, err, replay.ErrInvalidLink)

	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.NotEqual(t, results[0].Output.File, results[2].Output.File)

	assert.LessOrEqual(t, f.browser.maxActive, 2)
	assert.Len(t, f.files(t), 2)
}

func TestRecordAllSkipsJobWithBadRange(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{})
	jobs, err := replay.ParseLinks(replayHost + "gen9ou-1 " + replayHost + "gen9ou-3 1-2.34")
	require.NoError(t, err)

	results, err := f.recorder.RecordAll(context.Background(), jobs, 2)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.ErrorIs(t, err, replay.ErrEndTurn)

	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, replay.ErrEndTurn)
	assert.Len(t, f.browser.sessions, 1)

	for _, rec := range f.history.recs {
		if rec.Link == replayHost+"gen9ou-3" {
			assert.Equal(t, database.StatusFailed, rec.Status)
		} else {
			assert.Equal(t, database.StatusCompleted, rec.Status)
		}
	}
}

func TestRecordAllSequential(t *testing.T) {
	f := newFixture(t, victoryFrames, Options{})
	jobs := []replay.Job{
		{Link: replayHost + "gen9ou-1"},
		{Link: replayHost + "gen9ou-3"},
	}

	results, err := f.recorder.RecordAll(context.Background(), jobs, 1)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, 1, f.browser.maxActive)
}
