package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"replayRecorder/internal/progress"
)

// Селекторы страницы проигрывателя реплеев
const (
	SelectorTurn       = `.battle-log h2.battle-history`
	SelectorHistory    = `.battle-log [class="battle-history"], .battle-log h2.battle-history`
	SelectorMessageBar = `.battle .messagebar`
	SelectorBattle     = `.battle`

	selectSpeed = `select[name="speed"]`
	selectSound = `select[name="sound"]`
	selectTheme = `select[name="darkmode"]`
)

// Speeds — допустимые значения флага скорости и соответствующие option value
var Speeds = map[string]string{
	"really fast": "hyperfast",
	"fast":        "fast",
	"normal":      "normal",
	"slow":        "slow",
	"really slow": "reallyslow",
}

var Themes = []string{"auto", "dark", "light"}

const hideControlsCSS = `
.replay-controls {
	display: none !important;
}
#LeaderboardBTF {
	display: none !important;
}
`

// LayoutCSS прижимает поле боя и чат к левому верхнему углу окна записи
func LayoutCSS(opts SessionOptions) string {
	var b strings.Builder
	b.WriteString(`
header {
	display: none !important;
}
.bar-wrapper {
	margin: 0 0 !important;
}
`)
	if opts.NoTeams {
		b.WriteString(".leftbar, .rightbar { display: none; }\n")
	}

	b.WriteString(".battle {\n\ttop: 0px !important;\n\tleft: 0px !important;\n")
	if opts.NoChat {
		b.WriteString("\tmargin: 0 !important;\n")
	}
	b.WriteString("}\n")

	b.WriteString(".battle-log {\n\ttop: 0px !important;\n\tleft: 641px !important;\n")
	if opts.NoChat {
		b.WriteString("\tdisplay: none !important;\n")
	}
	b.WriteString("}\n")

	return b.String()
}

// soundValue возвращает значение select[name=sound] или "" если менять не нужно
func soundValue(opts SessionOptions) string {
	switch {
	case opts.NoAudio:
		return "off"
	case opts.NoMusic:
		return "musicoff"
	default:
		return ""
	}
}

// readErr помечает сбои чтения, которые гонятся с рендерингом страницы
func readErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return progress.Transient(err)
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "execution context was destroyed") ||
		strings.Contains(msg, "frame was detached") ||
		strings.Contains(msg, "navigating") ||
		strings.Contains(msg, "cannot find context") {
		return progress.Transient(err)
	}
	return err
}

func (s *PlaywrightSession) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.cfg.NavigateTimeout)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		_, err := s.page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateLoad,
			Timeout:   playwright.Float(float64(s.cfg.NavigateTimeout.Milliseconds())),
		})
		errChan <- err
	}()

	select {
	case <-navCtx.Done():
		return fmt.Errorf("navigate timeout after %v", s.cfg.NavigateTimeout)
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("ошибка навигации на %s: %w", url, err)
		}
	}

	// проигрыватель рисуется скриптом уже после load
	_, err := s.page.WaitForSelector(SelectorBattle, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(s.cfg.Timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("страница %s не похожа на реплей: %w", url, err)
	}
	return nil
}

// Customize скрывает лишнее, выставляет скорость, звук и тему проигрывателя
func (s *PlaywrightSession) Customize(ctx context.Context) error {
	if _, err := s.page.AddStyleTag(playwright.PageAddStyleTagOptions{
		Content: playwright.String(LayoutCSS(s.opts)),
	}); err != nil {
		return fmt.Errorf("ошибка добавления стилей: %w", err)
	}

	if speed, ok := Speeds[s.opts.Speed]; ok && speed != "normal" {
		if err := s.selectOption(selectSpeed, speed); err != nil {
			return err
		}
	}
	if sound := soundValue(s.opts); sound != "" {
		if err := s.selectOption(selectSound, sound); err != nil {
			return err
		}
	}
	if s.opts.Theme != "" && s.opts.Theme != "auto" {
		if err := s.selectOption(selectTheme, s.opts.Theme); err != nil {
			return err
		}
	}

	// после настройки панель управления больше не нужна
	if _, err := s.page.AddStyleTag(playwright.PageAddStyleTagOptions{
		Content: playwright.String(hideControlsCSS),
	}); err != nil {
		return fmt.Errorf("ошибка добавления стилей: %w", err)
	}
	return nil
}

func (s *PlaywrightSession) selectOption(selector, value string) error {
	_, err := s.page.SelectOption(selector, playwright.SelectOptionValues{
		Values: playwright.StringSlice(value),
	})
	if err != nil {
		return fmt.Errorf("ошибка выбора %s=%s: %w", selector, value, err)
	}
	return nil
}

func (s *PlaywrightSession) PressKey(ctx context.Context, key string) error {
	return s.page.Keyboard().Type(key)
}

func (s *PlaywrightSession) TurnText(ctx context.Context) (string, error) {
	texts, err := s.page.Locator(SelectorTurn).AllTextContents()
	if err != nil {
		return "", readErr(err)
	}
	if len(texts) == 0 {
		return "", nil
	}
	return texts[len(texts)-1], nil
}

func (s *PlaywrightSession) MessageText(ctx context.Context) (string, error) {
	texts, err := s.page.Locator(SelectorMessageBar).AllTextContents()
	if err != nil {
		return "", readErr(err)
	}
	return strings.Join(texts, "\n"), nil
}

func (s *PlaywrightSession) LogEntries(ctx context.Context) ([]string, error) {
	texts, err := s.page.Locator(SelectorHistory).AllTextContents()
	if err != nil {
		return nil, readErr(err)
	}
	return texts, nil
}

func (s *PlaywrightSession) Elapsed() time.Duration {
	return time.Since(s.startedAt)
}

// Finish закрывает вкладку, чтобы playwright дописал видео, и сохраняет его в dst
func (s *PlaywrightSession) Finish(ctx context.Context, dst string) error {
	video := s.page.Video()
	if video == nil {
		return fmt.Errorf("запись видео не включена")
	}

	if err := s.page.Close(); err != nil {
		return fmt.Errorf("ошибка закрытия вкладки: %w", err)
	}
	if err := video.SaveAs(dst); err != nil {
		return fmt.Errorf("ошибка сохранения видео: %w", err)
	}
	// исходный файл playwright больше не нужен
	_ = video.Delete()
	return nil
}

func (s *PlaywrightSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.context.Close()
	})
	return s.closeErr
}
