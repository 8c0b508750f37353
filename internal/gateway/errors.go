package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrAborted возвращается, когда запрос был намеренно оборван: вытеснен более
// новым, отменён по ключу или остановлен вместе с приложением. Для UI это
// тихий no-op, а не ошибка.
var ErrAborted = errors.New("request aborted")

// StatusError несёт код и тело ответа не-2xx.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Body)
}

// IsAborted проверяет, завершился ли запрос намеренным обрывом.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted) || errors.Is(err, context.Canceled)
}

// AsStatus извлекает StatusError, если ошибка — ответ не-2xx.
func AsStatus(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
