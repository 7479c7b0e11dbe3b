// Package progress определяет по тексту живой страницы реплея, когда пора
// остановить запись: по достижению хода, по доле хода или по сообщению о победе.
package progress

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var turnPattern = regexp.MustCompile(`Turn\s+(\d+)`)

type Detector struct {
	surface      Surface
	threshold    Threshold
	sink         func(entry string)
	settleDelay  time.Duration
	pollInterval time.Duration
	log          *zap.Logger
}

type Option func(*Detector)

// WithLogSink получает каждую новую запись истории боя по порядку
func WithLogSink(sink func(entry string)) Option {
	return func(d *Detector) {
		d.sink = sink
	}
}

// WithSettleDelay задает паузу после сообщения о победе, чтобы доиграла анимация
func WithSettleDelay(delay time.Duration) Option {
	return func(d *Detector) {
		d.settleDelay = delay
	}
}

// WithPollInterval добавляет паузу между опросами. По умолчанию опрос непрерывный.
func WithPollInterval(interval time.Duration) Option {
	return func(d *Detector) {
		d.pollInterval = interval
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(d *Detector) {
		d.log = log
	}
}

func New(surface Surface, threshold Threshold, opts ...Option) *Detector {
	d := &Detector{
		surface:     surface,
		threshold:   threshold,
		settleDelay: 1500 * time.Millisecond,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ParseTurn достает номер хода из текста индикатора. Пустой текст — ход 0.
func ParseTurn(text string) (int, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	m := turnPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, Transient(fmt.Errorf("индикатор хода без номера: %q", text))
	}
	return strconv.Atoi(m[1])
}

type snapshot struct {
	turnText string
	message  string
	entries  []string
}

func (d *Detector) read(ctx context.Context) (*snapshot, error) {
	var s snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		s.turnText, err = d.surface.TurnText(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		s.message, err = d.surface.MessageText(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		s.entries, err = d.surface.LogEntries(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Poll выполняет одну итерацию опроса и изменяет state.
// Условия проверяются строго по порядку: ход, доля хода, победа.
func (d *Detector) Poll(ctx context.Context, state *State) (StopReason, error) {
	s, err := d.read(ctx)
	if err != nil {
		return StopNone, err
	}

	turn, err := ParseTurn(s.turnText)
	if err != nil {
		return StopNone, err
	}

	switch {
	case turn > state.Turn:
		state.Turn = turn
		state.Part = 0
		if d.threshold.ReachedBy(turn) {
			return StopThreshold, nil
		}

	case s.message != state.Message:
		state.Part++
		state.Message = s.message
		if d.threshold.Matches(state.Turn, state.Part) {
			return StopFractional, nil
		}

	case len(s.entries) > state.LogSize:
		fresh := s.entries[state.LogSize:]
		if d.sink != nil {
			for _, entry := range fresh {
				d.sink(entry)
			}
		}
		state.LogSize = len(s.entries)

		if strings.HasSuffix(fresh[len(fresh)-1], VictorySuffix) {
			d.settle(ctx)
			return StopVictory, nil
		}
	}

	return StopNone, nil
}

func (d *Detector) settle(ctx context.Context) {
	if d.settleDelay <= 0 {
		return
	}
	t := time.NewTimer(d.settleDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type outcome struct {
	result Result
	err    error
}

// latest хранит последнее состояние цикла опроса для итога по таймауту
type latest struct {
	mu  sync.Mutex
	res Result
}

func (l *latest) set(state State, retries int) {
	l.mu.Lock()
	l.res = Result{State: state, Retries: retries}
	l.mu.Unlock()
}

func (l *latest) get() Result {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.res
}

// Wait опрашивает страницу, пока не сработает условие остановки или не истечет
// timeout. По таймауту возвращается StopTimeout с последним наблюдавшимся
// состоянием и ErrRecordTimeout; текущее чтение DOM при этом не прерывается,
// просто его результат больше не ждут.
// timeout <= 0 отключает лимит.
func (d *Detector) Wait(ctx context.Context, timeout time.Duration) (Result, error) {
	stop := make(chan struct{})
	done := make(chan outcome, 1)
	last := &latest{}

	go func() {
		res, err := d.run(ctx, stop, last)
		done <- outcome{result: res, err: err}
	}()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case o := <-done:
		return o.result, o.err
	case <-expired:
		close(stop)
		res := last.get()
		res.Reason = StopTimeout
		d.log.Warn("Лимит времени записи истек",
			zap.Duration("timeout", timeout),
			zap.Int("turn", res.State.Turn),
		)
		return res, ErrRecordTimeout
	case <-ctx.Done():
		close(stop)
		return Result{Reason: StopNone}, ctx.Err()
	}
}

func (d *Detector) run(ctx context.Context, stop <-chan struct{}, last *latest) (Result, error) {
	var (
		state   State
		retries int
	)

	for {
		select {
		case <-stop:
			return Result{State: state, Retries: retries}, errStopped
		case <-ctx.Done():
			return Result{State: state, Retries: retries}, ctx.Err()
		default:
		}

		reason, err := d.Poll(ctx, &state)
		if err != nil && IsTransient(err) {
			retries++
		}
		last.set(state, retries)

		if err != nil {
			if !IsTransient(err) {
				return Result{State: state, Retries: retries}, fmt.Errorf("ошибка опроса страницы: %w", err)
			}
			d.log.Debug("Повтор опроса после временной ошибки", zap.Error(err), zap.Int("retries", retries))
		} else if reason != StopNone {
			d.log.Debug("Условие остановки",
				zap.Stringer("reason", reason),
				zap.Int("turn", state.Turn),
				zap.Int("part", state.Part),
			)
			return Result{Reason: reason, State: state, Retries: retries}, nil
		}

		if d.pollInterval > 0 {
			select {
			case <-stop:
			case <-ctx.Done():
			case <-time.After(d.pollInterval):
			}
		}
	}
}
