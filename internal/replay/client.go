package replay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// Replay — данные реплея из <link>.json
type Replay struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	P1     string `json:"p1"`
	P2     string `json:"p2"`
	Log    string `json:"log"`
}

type Client struct {
	http *retryablehttp.Client
}

// NewClient создает HTTP клиент с повторами для загрузки логов реплеев
func NewClient(retries int, log *zap.Logger) *Client {
	c := retryablehttp.NewClient()
	c.RetryMax = retries
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	c.HTTPClient.Timeout = 30 * time.Second
	c.Logger = zapLeveled{log: log.Sugar()}

	return &Client{http: c}
}

// DataURL возвращает адрес, по которому лежат данные реплея
func DataURL(base string) string {
	if strings.HasSuffix(base, ".json") || strings.HasSuffix(base, ".log") {
		return base
	}
	return base + ".json"
}

// PageURL возвращает адрес страницы проигрывателя реплея
func PageURL(base string) string {
	base = strings.TrimSuffix(base, ".json")
	return strings.TrimSuffix(base, ".log")
}

// Fetch загружает реплей. Для ".log" ссылок тело — это сам лог боя.
func (c *Client) Fetch(ctx context.Context, base string) (*Replay, error) {
	url := DataURL(base)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s ответил %d, проверьте что это реплей showdown", ErrInvalidLink, url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения ответа %s: %w", url, err)
	}

	if strings.HasSuffix(url, ".log") {
		return &Replay{Log: string(body)}, nil
	}

	var r Replay
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("%w: некорректный JSON реплея: %v", ErrInvalidLink, err)
	}
	return &r, nil
}

// zapLeveled адаптирует zap к retryablehttp.LeveledLogger
type zapLeveled struct {
	log *zap.SugaredLogger
}

func (l zapLeveled) Error(msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, keysAndValues...)
}

func (l zapLeveled) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l zapLeveled) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l zapLeveled) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warnw(msg, keysAndValues...)
}
