package services

import (
	"context"
	"fmt"
	"time"

	"finance/internal/core"
	"finance/internal/listing"
	"finance/internal/log"
	"finance/internal/store"
)

// BillsView is one page of recurring bills plus the status summary over all bills.
type BillsView struct {
	Page    listing.Page[core.Bill]
	Summary core.BillSummary
}

type BillService struct {
	txs    store.TransactionStore
	now    func() time.Time
	logger *log.Logger
}

// NewBillService classifies bills against now(). Pass a fixed clock to pin the reference date.
func NewBillService(txs store.TransactionStore, now func() time.Time, logger *log.Logger) *BillService {
	if now == nil {
		now = time.Now
	}
	return &BillService{txs: txs, now: now, logger: logger.WithComponent(log.ComponentBill)}
}

func (s *BillService) List(ctx context.Context, opts listing.Options) (BillsView, error) {
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return BillsView{}, fmt.Errorf("list transactions: %w", err)
	}
	now := s.now()
	// bills have no category filter
	opts.Category = ""
	view := BillsView{
		Page:    listing.Bills(core.ListBills(txs, now), opts),
		Summary: core.SummarizeBills(txs, now),
	}
	s.logger.DebugContext(ctx, "Bills classified",
		log.FieldCount, view.Page.Total,
		"reference_time", now)
	return view, nil
}

// Summary classifies every bill without paging.
func (s *BillService) Summary(ctx context.Context) (core.BillSummary, error) {
	txs, err := s.txs.ListTransactions(ctx)
	if err != nil {
		return core.BillSummary{}, fmt.Errorf("list transactions: %w", err)
	}
	return core.SummarizeBills(txs, s.now()), nil
}
