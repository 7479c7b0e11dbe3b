package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/playwright-community/playwright-go"
)

const (
	battleWidth  = 655
	chatWidth    = 1175
	windowHeight = 360
)

func New(cfg Config) *PlaywrightBrowser {
	// Установка дефолтных таймаутов
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.NavigateTimeout == 0 {
		cfg.NavigateTimeout = 60 * time.Second
	}

	return &PlaywrightBrowser{
		cfg: cfg,
	}
}

// WindowSize — размер окна записи: без чата остается только поле боя
func WindowSize(noChat bool) playwright.Size {
	if noChat {
		return playwright.Size{Width: battleWidth, Height: windowHeight}
	}
	return playwright.Size{Width: chatWidth, Height: windowHeight}
}

func (b *PlaywrightBrowser) getBrowserArgs() []string {
	size := WindowSize(b.cfg.NoChat)
	return []string{
		fmt.Sprintf("--window-size=%d,%d", size.Width, size.Height),
		"--autoplay-policy=no-user-gesture-required",
		"--no-sandbox",
	}
}

func (b *PlaywrightBrowser) getBrowser() playwright.Browser {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.browser
}

func (b *PlaywrightBrowser) Launch(ctx context.Context) error {
	if b.cfg.BrowsersPath != "" {
		if err := os.Setenv("PLAYWRIGHT_BROWSERS_PATH", b.cfg.BrowsersPath); err != nil {
			return err
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("не удалось запустить playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(b.cfg.Headless),
		Args:     b.getBrowserArgs(),
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("не удалось запустить chromium: %w", err)
	}

	b.mu.Lock()
	b.pw = pw
	b.browser = browser
	b.mu.Unlock()
	return nil
}

// NewSession открывает изолированный контекст браузера с записью видео.
// Браузер общий для всех записей, контексты между ними не пересекаются.
func (b *PlaywrightBrowser) NewSession(ctx context.Context, opts SessionOptions) (Session, error) {
	browser := b.getBrowser()
	if browser == nil {
		return nil, fmt.Errorf("браузер не запущен")
	}

	size := WindowSize(opts.NoChat)
	browserContext, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &size,
		RecordVideo: &playwright.RecordVideo{
			Dir:  opts.VideoDir,
			Size: &size,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ошибка создания контекста: %w", err)
	}

	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		return nil, fmt.Errorf("ошибка открытия вкладки: %w", err)
	}
	page.SetDefaultTimeout(float64(b.cfg.Timeout.Milliseconds()))

	return &PlaywrightSession{
		context:   browserContext,
		page:      page,
		opts:      opts,
		cfg:       b.cfg,
		startedAt: time.Now(),
	}, nil
}

func (b *PlaywrightBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			return err
		}
		b.browser = nil
	}
	if b.pw != nil {
		err := b.pw.Stop()
		b.pw = nil
		return err
	}
	return nil
}
