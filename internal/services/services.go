// Package services holds the application use cases behind the HTTP API.
// Every write runs the domain rules, persists through the store ports and
// then publishes a ledger event; publish failures are logged and never fail
// the request.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/log"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoTransactions     = errors.New("no transactions to import")
)

// RateLimitError is returned when an identity has exhausted its attempts.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("too many attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

// EventPublisher delivers ledger events. *amqp.Client implements it.
type EventPublisher interface {
	Publish(ctx context.Context, evt *amqp.LedgerEvent) error
}

// notifier publishes events best-effort. A nil publisher disables publishing.
type notifier struct {
	publisher EventPublisher
	logger    *log.Logger
}

func (n notifier) publish(ctx context.Context, t amqp.EventType, key string) {
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, amqp.NewLedgerEvent(t, key)); err != nil {
		n.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventType, t,
			log.FieldOperation, log.OpPublish,
			log.FieldError, err)
	}
}

// IsValidation reports whether err was caused by invalid input rather than the store.
func IsValidation(err error) bool {
	for _, target := range []error{
		core.ErrInvalidAmount, core.ErrInvalidCategory, core.ErrInvalidTheme,
		core.ErrInvalidDate, core.ErrInvalidEmail, core.ErrEmptyName, core.ErrWeakPassword,
		core.ErrNameTooLong, ErrNoTransactions,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
