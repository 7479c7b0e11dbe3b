package commands

import (
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"replayRecorder/internal/cli/ui"
	"replayRecorder/internal/config"
	"replayRecorder/internal/database"
	"replayRecorder/internal/logger"
)

var ErrHistoryDisabled = errors.New("history is disabled: set DB_HOST to enable it")

// RecordingLister — источник истории записей
type RecordingLister interface {
	ListRecordings(limit, offset int) ([]database.Recording, error)
}

type RecordingFinder interface {
	GetRecordingByID(id uint) (*database.Recording, error)
}

// HistoryHandler выводит последние записи из БД
type HistoryHandler struct {
	cfg *config.Cfg
	log *logger.Zap
}

func NewHistoryHandler(cfg *config.Cfg, log *logger.Zap) *HistoryHandler {
	return &HistoryHandler{
		cfg: cfg,
		log: log,
	}
}

// Run печатает последние limit записей или одну запись, если id > 0
func (h *HistoryHandler) Run(w io.Writer, limit int, id uint) error {
	if !h.cfg.Database.Enabled() {
		return ErrHistoryDisabled
	}

	db, err := database.New(h.cfg, h.log)
	if err != nil {
		return err
	}
	defer db.Close(h.log)

	repo := database.NewRecordingRepository(db.DB)
	if id > 0 {
		err = PrintRecording(w, repo, id)
	} else {
		err = PrintHistory(w, repo, limit)
	}
	if err != nil {
		h.log.Error("Ошибка чтения истории", zap.Error(err))
		return err
	}
	return nil
}

// PrintHistory печатает список записей
func PrintHistory(w io.Writer, repo RecordingLister, limit int) error {
	recs, err := repo.ListRecordings(limit, 0)
	if err != nil {
		return fmt.Errorf("ошибка чтения истории: %w", err)
	}

	fmt.Fprintln(w, "\n"+ui.ColorBold+ui.IconList+" История записей:"+ui.ColorReset)
	fmt.Fprintln(w)
	for _, r := range recs {
		printRecording(w, r)
	}
	if len(recs) == 0 {
		fmt.Fprintln(w, ui.ColorGray+"  Записей пока нет"+ui.ColorReset)
	}
	return nil
}

// PrintRecording печатает одну запись по id, включая gif и время обновления
func PrintRecording(w io.Writer, repo RecordingFinder, id uint) error {
	r, err := repo.GetRecordingByID(id)
	if err != nil {
		return fmt.Errorf("запись #%d не найдена: %w", id, err)
	}

	fmt.Fprintln(w)
	printRecording(w, *r)
	if r.StartTurn > 0 {
		fmt.Fprintf(w, "  "+ui.ColorGray+"   с хода %d"+ui.ColorReset+"\n", r.StartTurn)
	}
	if r.GIFPath != "" {
		fmt.Fprintf(w, "  "+ui.ColorGray+"   gif: %s"+ui.ColorReset+"\n", r.GIFPath)
	}
	if !r.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "  "+ui.ColorGray+"   обновлена %s"+ui.ColorReset+"\n", r.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func printRecording(w io.Writer, r database.Recording) {
	icon, color, text := ui.FormatStatus(r.Status)
	fmt.Fprintf(w, "  "+ui.ColorBold+"#%d"+ui.ColorReset+" %s%s %s"+ui.ColorReset+"\n", r.ID, color, icon, text)
	fmt.Fprintf(w, "  "+ui.ColorGray+"├─"+ui.ColorReset+" %s\n", r.Link)
	if r.Player1 != "" {
		fmt.Fprintf(w, "  "+ui.ColorGray+"├─"+ui.ColorReset+" %s vs %s (%s, до хода %s)\n", r.Player1, r.Player2, r.Format, r.EndTurn)
	}
	switch {
	case r.FilePath != "":
		fmt.Fprintf(w, "  "+ui.ColorGray+"├─"+ui.ColorReset+" %s (%s)\n", r.FilePath, ui.FormatReason(r.StopReason))
	case r.Error != "":
		fmt.Fprintf(w, "  "+ui.ColorGray+"├─"+ui.ColorReset+" %s\n", r.Error)
	}
	fmt.Fprintf(w, "  "+ui.ColorGray+"└─"+ui.IconTime+ui.ColorReset+" %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w)
}
