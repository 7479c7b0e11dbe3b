package progress

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// VictorySuffix завершает запись лога, объявляющую победителя
const VictorySuffix = " won the battle!"

// Surface — три текстовые области живой страницы, которые опрашивает детектор
type Surface interface {
	// TurnText возвращает текст последнего индикатора хода ("Turn 12").
	// Пустая строка означает, что ход еще не начался.
	TurnText(ctx context.Context) (string, error)
	// MessageText возвращает текущий текст строки сообщений
	MessageText(ctx context.Context) (string, error)
	// LogEntries возвращает все записи истории боя по порядку
	LogEntries(ctx context.Context) ([]string, error)
}

// State переживает итерации опроса в пределах одной записи
type State struct {
	Turn    int
	Part    int
	LogSize int
	Message string
}

type StopReason int

const (
	StopNone StopReason = iota
	StopThreshold
	StopFractional
	StopVictory
	StopTimeout
)

func (r StopReason) String() string {
	switch r {
	case StopNone:
		return "none"
	case StopThreshold:
		return "threshold"
	case StopFractional:
		return "fractional-threshold"
	case StopVictory:
		return "victory"
	case StopTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// Threshold — ход, на котором нужно остановить запись.
// Part хранит десятые доли хода; для целых значений Part == 0.
type Threshold struct {
	Turn int
	Part int
}

// ParseThreshold разбирает "15" или "8.2". Допускается одна цифра после точки.
func ParseThreshold(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")

	turn, err := strconv.Atoi(whole)
	if err != nil || turn < 0 {
		return Threshold{}, fmt.Errorf("неверный ход %q", s)
	}
	if !hasFrac {
		return Threshold{Turn: turn}, nil
	}
	if len(frac) != 1 || frac[0] < '0' || frac[0] > '9' {
		return Threshold{}, fmt.Errorf("неверная доля хода %q: ожидается одна цифра после точки", s)
	}

	return Threshold{Turn: turn, Part: int(frac[0] - '0')}, nil
}

func (t Threshold) String() string {
	if t.Part == 0 {
		return strconv.Itoa(t.Turn)
	}
	return fmt.Sprintf("%d.%d", t.Turn, t.Part)
}

func (t Threshold) Whole() bool {
	return t.Part == 0
}

// Next возвращает целый порог на ход позже, который уже не будет достигнут
// внутри боя: так проверка по ходу отключается при записи до победы.
func (t Threshold) Next() Threshold {
	return Threshold{Turn: t.Turn + 1}
}

// ReachedBy сообщает, что наблюдаемый ход достиг порога или превысил его
func (t Threshold) ReachedBy(turn int) bool {
	return turn*10 >= t.Turn*10+t.Part
}

// Matches сообщает точное совпадение позиции turn.part с порогом.
// Целый порог никогда не совпадает, так как part после сообщения всегда >= 1.
func (t Threshold) Matches(turn, part int) bool {
	return !t.Whole() && turn == t.Turn && part == t.Part
}

// Result — итог ожидания конца записи
type Result struct {
	Reason  StopReason
	State   State
	Retries int
}
