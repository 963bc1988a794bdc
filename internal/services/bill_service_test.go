package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance/internal/core"
	"finance/internal/listing"
)

func TestBillList(t *testing.T) {
	ctx := context.Background()
	st := seededStore(t,
		tx("paid", "Rent", core.Bills, -1000, -5, true),
		tx("soon", "Phone", core.Bills, -30, 3, true),
		tx("later", "Gym", core.Lifestyle, -40, 20, true),
		tx("salary", "Salary", core.Income, 3000, 10, true),
		tx("once", "Shoes", core.Shopping, -80, 1, false),
	)
	svc := NewBillService(st, func() time.Time { return refNow }, testLogger())

	view, err := svc.List(ctx, listing.Options{Category: "Shopping", Sort: listing.Oldest})
	require.NoError(t, err)
	assert.Equal(t, 4, view.Page.Total, "category filter does not apply to bills")
	ids := make([]string, 0, len(view.Page.Items))
	statuses := map[string]core.BillStatus{}
	for _, b := range view.Page.Items {
		ids = append(ids, b.ID)
		statuses[b.ID] = b.Status
	}
	assert.Equal(t, []string{"paid", "soon", "salary", "later"}, ids)
	assert.Equal(t, core.BillPaid, statuses["paid"])
	assert.Equal(t, core.BillDueSoon, statuses["soon"])
	assert.Equal(t, core.BillUpcoming, statuses["later"])

	assert.Equal(t, 1, view.Summary.Paid.Count)
	assert.Equal(t, money(1000), view.Summary.Paid.Total)
	assert.Equal(t, 2, view.Summary.Upcoming.Count)
	assert.Equal(t, money(70), view.Summary.Upcoming.Total)
	assert.Equal(t, 1, view.Summary.DueSoon.Count)

	summary, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, view.Summary, summary)
}
