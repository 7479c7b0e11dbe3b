package commands

import (
	"context"
	"fmt"
	"slices"
	"time"

	pkgbrowser "github.com/pkg/browser"
	"go.uber.org/zap"

	"replayRecorder/internal/browser"
	"replayRecorder/internal/cli/ui"
	"replayRecorder/internal/config"
	"replayRecorder/internal/database"
	"replayRecorder/internal/logger"
	"replayRecorder/internal/media"
	"replayRecorder/internal/migrations"
	"replayRecorder/internal/recorder"
	"replayRecorder/internal/replay"
)

// RecordFlags — параметры одного запуска записи
type RecordFlags struct {
	Links   string
	NoMusic bool
	NoAudio bool
	NoChat  bool
	NoTeams bool
	Speed   string
	Theme   string
	Bulk    string
	Debug   bool
	GIF     bool
	Open    bool
	Timeout time.Duration
}

// Validate проверяет значения с фиксированным набором вариантов
func (f RecordFlags) Validate() error {
	if _, ok := browser.Speeds[f.Speed]; !ok {
		return fmt.Errorf("invalid speed %q (really fast, fast, normal, slow, really slow)", f.Speed)
	}
	if !slices.Contains(browser.Themes, f.Theme) {
		return fmt.Errorf("invalid theme %q (auto, dark, light)", f.Theme)
	}
	return nil
}

// RecordHandler запускает браузер и записывает реплеи
type RecordHandler struct {
	cfg *config.Cfg
	log *logger.Zap
	// open показывает готовый файл системным приложением
	open func(path string) error
}

func NewRecordHandler(cfg *config.Cfg, log *logger.Zap) *RecordHandler {
	return &RecordHandler{
		cfg:  cfg,
		log:  log,
		open: pkgbrowser.OpenFile,
	}
}

// Prepare разбирает ссылки и bulk до запуска браузера
func (h *RecordHandler) Prepare(f RecordFlags) ([]replay.Job, int, error) {
	if err := f.Validate(); err != nil {
		return nil, 0, err
	}
	jobs, err := replay.ParseLinks(f.Links)
	if err != nil {
		return nil, 0, err
	}
	bulk, err := recorder.ParseBulk(f.Bulk, len(jobs))
	if err != nil {
		return nil, 0, err
	}
	return jobs, bulk, nil
}

func (h *RecordHandler) Run(ctx context.Context, f RecordFlags) error {
	jobs, bulk, err := h.Prepare(f)
	if err != nil {
		return err
	}

	ui.PrintBanner()
	ui.Info("--Booting Downloader--")
	if len(jobs) > 1 {
		if bulk > 1 {
			ui.Hint("Bulk recording is enabled, thus %d videos will be recorded simultaneously. (This may cause poorer recorded quality)", bulk)
			ui.Hint("(Optional) Set bulk to 1 (via -b 1) to record only one video at a time for optimum quality.")
		} else {
			ui.Hint("Bulk recording is disabled (set to 1). Thus replays will be downloaded one at a time.")
		}
	}

	history, closeHistory := h.openHistory()
	defer closeHistory()

	br := browser.New(browser.Config{
		Headless:     h.cfg.Browser.Headless,
		BrowsersPath: h.cfg.Browser.BrowsersPath,
		NoChat:       f.NoChat,
	})
	if err := br.Launch(ctx); err != nil {
		return err
	}
	defer func() {
		if err := br.Close(); err != nil {
			h.log.Debug("Ошибка закрытия браузера", zap.Error(err))
		}
	}()

	timeout := h.cfg.Recorder.RecordTimeout
	if f.Timeout > 0 {
		timeout = f.Timeout
	}

	rec := recorder.New(
		br,
		replay.NewClient(h.cfg.Recorder.FetchRetries, h.log.Logger),
		media.New(h.cfg.Media.FFmpegPath, h.log.Logger),
		history,
		h.log.Logger,
		recorder.Options{
			OutputDir:     h.cfg.Recorder.OutputDir,
			RecordTimeout: timeout,
			SettleDelay:   h.cfg.Recorder.SettleDelay,
			NoChat:        f.NoChat,
			NoTeams:       f.NoTeams,
			NoMusic:       f.NoMusic,
			NoAudio:       f.NoAudio,
			Speed:         f.Speed,
			Theme:         f.Theme,
			GIF:           f.GIF,
			Debug:         f.Debug,
		},
	)

	results, err := rec.RecordAll(ctx, jobs, bulk)
	for _, res := range results {
		if res.Err != nil {
			ui.Failure("An error occured while downloading %s: %v", res.Job, res.Err)
			continue
		}
		out := res.Output
		ui.Success("Recording Saved! (%s) Location -> %s", ui.FormatReason(out.Reason.String()), out.File)
		if out.Raw {
			ui.Hint("%s metadata was not fixed, the raw capture was kept", ui.IconWarning)
		}
		if out.GIF != "" {
			ui.Hint("GIF -> %s", out.GIF)
		}
	}

	if f.Open {
		h.openOutputs(results)
	}

	ui.Info("Thankyou for utilising Showdown Replay Downloader!!")
	return err
}

// openOutputs открывает успешно сохраненные записи и возвращает их количество.
// Ошибка открытия не влияет на результат записи.
func (h *RecordHandler) openOutputs(results []recorder.Result) int {
	opened := 0
	for _, res := range results {
		if res.Err != nil || res.Output == nil {
			continue
		}
		if err := h.open(res.Output.File); err != nil {
			h.log.Warn("Не удалось открыть запись", zap.String("file", res.Output.File), zap.Error(err))
			continue
		}
		opened++
	}
	return opened
}

// openHistory подключает историю записей, если БД настроена.
// Без БД запись работает как обычно.
func (h *RecordHandler) openHistory() (recorder.History, func()) {
	if !h.cfg.Database.Enabled() {
		return nil, func() {}
	}

	if err := migrations.Run(h.cfg, h.log); err != nil {
		h.log.Warn("История записей отключена: ошибка миграций", zap.Error(err))
		return nil, func() {}
	}

	db, err := database.New(h.cfg, h.log)
	if err != nil {
		h.log.Warn("История записей отключена", zap.Error(err))
		return nil, func() {}
	}

	return database.NewRecordingRepository(db.DB), func() { db.Close(h.log) }
}
