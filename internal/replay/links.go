package replay

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"replayRecorder/internal/progress"
)

const (
	ReplayHostHTTPS = "https://replay.pokemonshowdown.com/"
	ReplayHostHTTP  = "http://replay.pokemonshowdown.com/"
)

var (
	ErrInvalidLink = errors.New("invalid replay link")
	ErrNoTurns     = errors.New("replay log has no turns")
	ErrEndTurn     = errors.New("invalid end turn")
)

var (
	linkSeparator = regexp.MustCompile(`[\s,]+`)
	rangePattern  = regexp.MustCompile(`^(\d+)?-([\d.]+)?$`)
)

// Range — необязательный диапазон ходов, приписанный к ссылке ("3-10", "-8.2", "5-")
type Range struct {
	Start int
	End   *progress.Threshold
}

// Job — одна запись: ссылка и, возможно, диапазон ходов.
// Err хранит ошибку разбора диапазона: такую запись пропускают, остальные идут дальше.
type Job struct {
	Link  string
	Turns Range
	Err   error
}

func (j Job) String() string {
	if j.Turns.Start == 0 && j.Turns.End == nil {
		return j.Link
	}
	end := ""
	if j.Turns.End != nil {
		end = j.Turns.End.String()
	}
	start := ""
	if j.Turns.Start > 0 {
		start = strconv.Itoa(j.Turns.Start)
	}
	return fmt.Sprintf("%s %s-%s", j.Link, start, end)
}

// ParseLinks разбирает список ссылок, разделенных пробелами или запятыми.
// Токен вида "start-end" относится к предыдущей ссылке.
func ParseLinks(raw string) ([]Job, error) {
	var jobs []Job

	for _, token := range linkSeparator.Split(raw, -1) {
		if token == "" {
			continue
		}

		m := rangePattern.FindStringSubmatch(token)
		if m == nil {
			jobs = append(jobs, Job{Link: token})
			continue
		}

		if len(jobs) == 0 {
			return nil, fmt.Errorf("диапазон ходов %q без ссылки перед ним", token)
		}
		last := &jobs[len(jobs)-1]

		if m[1] != "" {
			start, err := strconv.Atoi(m[1])
			if err != nil {
				last.Err = fmt.Errorf("%w: неверный начальный ход %q: %v", ErrEndTurn, token, err)
				continue
			}
			last.Turns.Start = start
		}
		if m[2] != "" {
			end, err := progress.ParseThreshold(m[2])
			if err != nil {
				last.Err = fmt.Errorf("%w: %v", ErrEndTurn, err)
				continue
			}
			last.Turns.End = &end
		}
	}

	if len(jobs) == 0 {
		return nil, errors.New("не передано ни одной ссылки")
	}
	return jobs, nil
}

// SplitLink отделяет query-параметры от ссылки и проверяет, что это реплей
func SplitLink(link string) (base string, params []string, err error) {
	base, query, _ := strings.Cut(link, "?")
	if query != "" {
		params = strings.Split(query, "&")
	}

	onHost := strings.HasPrefix(base, ReplayHostHTTPS) || strings.HasPrefix(base, ReplayHostHTTP)
	if !onHost && !strings.HasSuffix(base, ".json") && !strings.HasSuffix(base, ".log") {
		return "", nil, fmt.Errorf("%w: %s", ErrInvalidLink, base)
	}

	return base, params, nil
}
