package browser

import (
	"context"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"replayRecorder/internal/progress"
)

type Browser interface {
	Launch(ctx context.Context) error
	NewSession(ctx context.Context, opts SessionOptions) (Session, error)
	Close() error
}

// Session — одна вкладка с записью видео в отдельном контексте браузера.
// Поверх progress.Surface детектор читает ход, строку сообщений и историю боя.
type Session interface {
	progress.Surface
	Navigate(ctx context.Context, url string) error
	Customize(ctx context.Context) error
	PressKey(ctx context.Context, key string) error
	// Elapsed — сколько идет запись с момента открытия вкладки
	Elapsed() time.Duration
	// Finish закрывает вкладку и сохраняет видео в dst
	Finish(ctx context.Context, dst string) error
	Close() error
}

type SessionOptions struct {
	VideoDir string
	NoChat   bool
	NoTeams  bool
	NoMusic  bool
	NoAudio  bool
	Speed    string
	Theme    string
}

type PlaywrightBrowser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     Config
	mu      sync.RWMutex
}

type PlaywrightSession struct {
	context   playwright.BrowserContext
	page      playwright.Page
	opts      SessionOptions
	cfg       Config
	startedAt time.Time
	closeOnce sync.Once
	closeErr  error
}

type Config struct {
	Headless        bool
	BrowsersPath    string
	NoChat          bool
	Timeout         time.Duration
	NavigateTimeout time.Duration
}
