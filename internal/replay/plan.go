package replay

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"replayRecorder/internal/progress"
)

var turnMarker = regexp.MustCompile(`\n\|turn\|(\d+)\n`)

// Plan — неизменяемые параметры одной записи
type Plan struct {
	Replay *Replay
	// PageURL включает исходные query-параметры и turn=<start>
	PageURL   string
	StartTurn int
	// LastTurn — последний ход в логе
	LastTurn int
	// Threshold — порог детектора. При записи до победы он на ход больше LastTurn.
	Threshold     progress.Threshold
	PlayToVictory bool
	TotalTurns    int
}

// LastTurn возвращает номер последнего маркера хода в логе боя
func LastTurn(log string) (int, error) {
	matches := turnMarker.FindAllStringSubmatch(log, -1)
	if len(matches) == 0 {
		return 0, ErrNoTurns
	}
	return strconv.Atoi(matches[len(matches)-1][1])
}

// NewPlan вычисляет порог остановки и адрес страницы для записи
func NewPlan(job Job, base string, params []string, r *Replay) (*Plan, error) {
	last, err := LastTurn(r.Log)
	if err != nil {
		return nil, err
	}

	start := job.Turns.Start
	if start > 0 {
		params = append(append([]string(nil), params...), "turn="+strconv.Itoa(start))
	}

	threshold := progress.Threshold{Turn: last}
	playToVictory := true
	if end := job.Turns.End; end != nil && (end.Turn > 0 || end.Part > 0) {
		if end.Turn > last {
			return nil, fmt.Errorf("%w %s (total turns=%d)", ErrEndTurn, end, last)
		}
		if *end != threshold {
			playToVictory = false
			threshold = *end
		}
	}
	if start > 0 && start > threshold.Turn {
		return nil, fmt.Errorf("%w: start turn %d is after end turn %s", ErrEndTurn, start, threshold)
	}

	total := threshold.Turn - max(start-1, 0)
	if playToVictory {
		threshold = threshold.Next()
	}

	page := PageURL(base)
	if len(params) > 0 {
		page += "?" + strings.Join(params, "&")
	}

	return &Plan{
		Replay:        r,
		PageURL:       page,
		StartTurn:     start,
		LastTurn:      last,
		Threshold:     threshold,
		PlayToVictory: playToVictory,
		TotalTurns:    total,
	}, nil
}

// EstimatedMinutes — примерная длительность при нормальной скорости, ~7 секунд на ход
func (p *Plan) EstimatedMinutes() float64 {
	return float64(p.TotalTurns) * 7 / 60
}
