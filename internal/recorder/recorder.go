package recorder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"replayRecorder/internal/browser"
	"replayRecorder/internal/database"
	"replayRecorder/internal/media"
	"replayRecorder/internal/progress"
	"replayRecorder/internal/replay"
)

// playPauseKey переключает проигрывание реплея
const playPauseKey = "k"

type Fetcher interface {
	Fetch(ctx context.Context, base string) (*replay.Replay, error)
}

type Transcoder interface {
	FixMetadata(ctx context.Context, src, dst string, trim time.Duration) error
	ToGIF(ctx context.Context, src, dst string, opts media.GIFOptions) error
}

// History сохраняет статусы записей; nil отключает историю
type History interface {
	CreateRecording(rec *database.Recording) error
	MarkRecording(id uint, format, p1, p2, endTurn string) error
	CompleteRecording(id uint, stopReason, filePath, gifPath string) error
	FailRecording(id uint, reason string) error
}

type Options struct {
	OutputDir     string
	RecordTimeout time.Duration
	SettleDelay   time.Duration
	NoChat        bool
	NoTeams       bool
	NoMusic       bool
	NoAudio       bool
	Speed         string
	Theme         string
	GIF           bool
	Debug         bool
}

type Recorder struct {
	browser    browser.Browser
	fetcher    Fetcher
	transcoder Transcoder
	history    History
	log        *zap.Logger
	opts       Options
	newToken   func() string
}

func New(br browser.Browser, fetcher Fetcher, transcoder Transcoder, history History, log *zap.Logger, opts Options) *Recorder {
	if opts.OutputDir == "" {
		opts.OutputDir = "replays"
	}
	if opts.Speed == "" {
		opts.Speed = "normal"
	}
	if opts.Theme == "" {
		opts.Theme = "auto"
	}

	return &Recorder{
		browser:    br,
		fetcher:    fetcher,
		transcoder: transcoder,
		history:    history,
		log:        log,
		opts:       opts,
		newToken:   randomToken,
	}
}

// Output описывает результат одной записи
type Output struct {
	File   string
	GIF    string
	Reason progress.StopReason
	Plan   *replay.Plan
	// Raw — ffmpeg не смог исправить метаданные, сохранено исходное видео
	Raw bool
}

func randomToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

// Record записывает один реплей от загрузки лога до готового файла.
// Временные файлы удаляются при любом исходе.
func (r *Recorder) Record(ctx context.Context, job replay.Job) (out *Output, err error) {
	log := r.log.With(zap.Stringer("job", job))

	rec := &database.Recording{Link: job.Link, StartTurn: job.Turns.Start, Status: database.StatusPending}
	r.track(log, "create", func(h History) error { return h.CreateRecording(rec) })
	defer func() {
		if err != nil {
			r.track(log, "fail", func(h History) error { return h.FailRecording(rec.ID, err.Error()) })
		}
	}()

	if job.Err != nil {
		return nil, job.Err
	}

	base, params, err := replay.SplitLink(job.Link)
	if err != nil {
		return nil, err
	}

	data, err := r.fetcher.Fetch(ctx, base)
	if err != nil {
		return nil, err
	}

	plan, err := replay.NewPlan(job, base, params, data)
	if err != nil {
		return nil, err
	}
	r.track(log, "mark", func(h History) error {
		return h.MarkRecording(rec.ID, data.Format, data.P1, data.P2, plan.Threshold.String())
	})

	if err := os.MkdirAll(r.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог %s: %w", r.opts.OutputDir, err)
	}

	filename := filepath.Join(r.opts.OutputDir, "replay-"+r.newToken()+".webm")
	tmpFile := filename + ".tmp"
	videoDir, err := os.MkdirTemp(r.opts.OutputDir, ".video-")
	if err != nil {
		return nil, fmt.Errorf("не удалось создать временный каталог: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile)
		_ = os.RemoveAll(videoDir)
	}()

	session, err := r.browser.NewSession(ctx, browser.SessionOptions{
		VideoDir: videoDir,
		NoChat:   r.opts.NoChat,
		NoTeams:  r.opts.NoTeams,
		NoMusic:  r.opts.NoMusic,
		NoAudio:  r.opts.NoAudio,
		Speed:    r.opts.Speed,
		Theme:    r.opts.Theme,
	})
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			log.Debug("Ошибка закрытия сессии", zap.Error(cerr))
		}
	}()

	if err := session.Navigate(ctx, plan.PageURL); err != nil {
		return nil, err
	}
	if err := session.Customize(ctx); err != nil {
		return nil, err
	}

	// все, что записано до старта проигрывания, отрезается при постобработке
	leadIn := session.Elapsed()
	if err := session.PressKey(ctx, playPauseKey); err != nil {
		return nil, fmt.Errorf("не удалось запустить реплей: %w", err)
	}

	log.Info("Реплей открыт, идет запись",
		zap.String("p1", data.P1),
		zap.String("p2", data.P2),
		zap.String("format", data.Format),
		zap.Int("start_turn", plan.StartTurn),
		zap.Stringer("end_turn", plan.Threshold),
		zap.String("estimate", fmt.Sprintf("%.2f min", plan.EstimatedMinutes())),
	)

	res, err := r.detector(session, plan, log).Wait(ctx, r.opts.RecordTimeout)
	switch {
	case errors.Is(err, progress.ErrRecordTimeout):
		log.Warn("Запись остановлена по лимиту времени", zap.Duration("limit", r.opts.RecordTimeout))
	case err != nil:
		return nil, err
	}

	if res.Reason == progress.StopThreshold || res.Reason == progress.StopFractional {
		if err := session.PressKey(ctx, playPauseKey); err != nil {
			log.Debug("Не удалось поставить реплей на паузу", zap.Error(err))
		}
	}

	if err := session.Finish(ctx, tmpFile); err != nil {
		return nil, err
	}
	log.Info("Запись завершена",
		zap.Stringer("reason", res.Reason),
		zap.Int("turn", res.State.Turn),
		zap.Int("retries", res.Retries),
	)

	out = &Output{File: filename, Reason: res.Reason, Plan: plan}

	if err := r.transcoder.FixMetadata(ctx, tmpFile, filename, leadIn); err != nil {
		log.Error("Не удалось исправить метаданные, сохраняется исходное видео", zap.Error(err))
		if rerr := os.Rename(tmpFile, filename); rerr != nil {
			return nil, fmt.Errorf("%w; исходное видео тоже не сохранено: %v", err, rerr)
		}
		out.Raw = true
	}

	if r.opts.GIF {
		gif := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".gif"
		if err := r.transcoder.ToGIF(ctx, filename, gif, media.GIFOptions{}); err != nil {
			log.Error("Не удалось создать gif", zap.Error(err))
		} else {
			out.GIF = gif
		}
	}

	r.track(log, "complete", func(h History) error {
		return h.CompleteRecording(rec.ID, res.Reason.String(), out.File, out.GIF)
	})
	return out, nil
}

func (r *Recorder) detector(session browser.Session, plan *replay.Plan, log *zap.Logger) *progress.Detector {
	opts := []progress.Option{
		progress.WithSettleDelay(r.opts.SettleDelay),
		progress.WithLogger(log),
	}
	if r.opts.Debug {
		opts = append(opts, progress.WithLogSink(func(entry string) {
			log.Info("battle", zap.String("entry", entry))
		}))
	}
	return progress.New(session, plan.Threshold, opts...)
}

// track пишет в историю; ошибки истории не должны ломать запись
func (r *Recorder) track(log *zap.Logger, op string, fn func(h History) error) {
	if r.history == nil {
		return
	}
	if err := fn(r.history); err != nil {
		log.Warn("Ошибка записи истории", zap.String("op", op), zap.Error(err))
	}
}
