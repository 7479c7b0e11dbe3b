package progress

import (
	"errors"
	"fmt"
)

var (
	// ErrTransient помечает сбой чтения, который гонится с рендерингом страницы.
	// Такие ошибки детектор проглатывает и повторяет опрос.
	ErrTransient = errors.New("transient read failure")

	// ErrRecordTimeout возвращается, когда лимит времени записи истек раньше,
	// чем сработало условие остановки
	ErrRecordTimeout = errors.New("record time limit reached")

	errStopped = errors.New("polling stopped")
)

// Transient оборачивает ошибку чтения как временную
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsTransient сообщает, можно ли повторить опрос после этой ошибки
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
