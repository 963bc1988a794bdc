package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"finance/internal/amqp"
	"finance/internal/core"
	"finance/internal/listing"
	"finance/internal/log"
	"finance/internal/store"
)

// DefaultAvatar is used for imported transactions without one.
const DefaultAvatar = "./assets/images/avatars/default.jpg"

type TransactionService struct {
	txs     store.TransactionStore
	budgets *BudgetService
	notify  notifier
	logger  *log.Logger
}

func NewTransactionService(txs store.TransactionStore, budgets *BudgetService, pub EventPublisher, logger *log.Logger) *TransactionService {
	logger = logger.WithComponent(log.ComponentTransaction)
	return &TransactionService{
		txs:     txs,
		budgets: budgets,
		notify:  notifier{publisher: pub, logger: logger},
		logger:  logger,
	}
}

// List runs the list pipeline over every stored transaction.
func (s *TransactionService) List(ctx context.Context, opts listing.Options) (listing.Page[core.Transaction], error) {
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return listing.Page[core.Transaction]{}, fmt.Errorf("list transactions: %w", err)
	}
	return listing.Transactions(txs, opts), nil
}

// Import validates every transaction and stores all of them or none.
// Missing ids and avatars are filled in. Budgets are re-aggregated afterwards.
func (s *TransactionService) Import(ctx context.Context, in []core.Transaction) ([]core.Transaction, error) {
	if len(in) == 0 {
		return nil, ErrNoTransactions
	}

	txs := make([]core.Transaction, len(in))
	for i, t := range in {
		t.Name = strings.TrimSpace(t.Name)
		category, err := core.ParseCategory(string(t.Category))
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		t.Category = category
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if t.Amount.Cents == 0 {
			return nil, fmt.Errorf("transaction %d: %w: zero", i, core.ErrInvalidAmount)
		}
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Avatar == "" {
			t.Avatar = DefaultAvatar
		}
		t.Date = t.Date.UTC()
		txs[i] = t
	}

	if err := s.txs.InsertTransactions(ctx, txs); err != nil {
		return nil, fmt.Errorf("insert transactions: %w", err)
	}

	s.logger.InfoContext(ctx, "Transactions imported",
		log.FieldOperation, log.OpImport,
		log.FieldCount, len(txs))
	s.notify.publish(ctx, amqp.EventTransactionsImported, strconv.Itoa(len(txs)))

	if s.budgets != nil {
		if err := s.budgets.Refresh(ctx); err != nil {
			// the transactions are stored; the next write recomputes totals
			s.logger.ErrorContext(ctx, "Failed to refresh budgets after import", log.FieldError, err)
		}
	}
	return txs, nil
}
