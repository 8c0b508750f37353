package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

// LogNotifier выводит пользовательские уведомления в лог. В headless-режиме
// это единственный потребитель уведомлений; UI подключает свою реализацию
// domain.Notifier.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт notifier поверх логгера.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

// Notify пишет уведомление с уровнем, соответствующим NoticeLevel.
func (n *LogNotifier) Notify(level domain.NoticeLevel, message string) {
	switch level {
	case domain.NoticeError:
		n.logger.Warn(message)
	default:
		n.logger.Info(message)
	}
}

var _ domain.Notifier = (*LogNotifier)(nil)
