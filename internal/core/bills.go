package core

import "time"

// DueSoonWindow is how far ahead an upcoming bill counts as due soon.
const DueSoonWindow = 7 * 24 * time.Hour

type BillStatus string

const (
	BillPaid     BillStatus = "paid"
	BillUpcoming BillStatus = "upcoming"
	BillDueSoon  BillStatus = "dueSoon"
)

// Bill is a recurring transaction annotated with its status relative to a reference instant.
type Bill struct {
	Transaction
	Status BillStatus `json:"status"`
}

type BillBucket struct {
	Total Money `json:"total"`
	Count int   `json:"count"`
}

// BillSummary aggregates outflow bills by status. DueSoon is a subset of Upcoming.
type BillSummary struct {
	Paid     BillBucket `json:"paid"`
	Upcoming BillBucket `json:"upcoming"`
	DueSoon  BillBucket `json:"dueSoon"`
}

// IsBill reports whether t takes part in bill totals: recurring and an outflow.
func IsBill(t Transaction) bool {
	return t.Recurring && t.IsOutflow()
}

// ClassifyBill returns the status of t at now. A bill dated exactly now is upcoming.
func ClassifyBill(t Transaction, now time.Time) BillStatus {
	if t.Date.Before(now) {
		return BillPaid
	}
	if t.Date.Sub(now) <= DueSoonWindow {
		return BillDueSoon
	}
	return BillUpcoming
}

// ListBills selects the recurring transactions of txs, preserving order.
func ListBills(txs []Transaction, now time.Time) []Bill {
	bills := make([]Bill, 0)
	for _, t := range txs {
		if !t.Recurring {
			continue
		}
		bills = append(bills, Bill{Transaction: t, Status: ClassifyBill(t, now)})
	}
	return bills
}

// SummarizeBills buckets outflow bills into paid, upcoming and due soon.
// Totals are sums of absolute amounts.
func SummarizeBills(txs []Transaction, now time.Time) BillSummary {
	var s BillSummary
	for _, t := range txs {
		if !IsBill(t) {
			continue
		}
		amount := t.Amount.Abs()
		switch ClassifyBill(t, now) {
		case BillPaid:
			s.Paid.add(amount)
		case BillDueSoon:
			s.DueSoon.add(amount)
			s.Upcoming.add(amount)
		case BillUpcoming:
			s.Upcoming.add(amount)
		}
	}
	return s
}

func (b *BillBucket) add(m Money) {
	b.Total = b.Total.Add(m)
	b.Count++
}
