package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/service"
)

var errStore = errors.New("connection refused")

func item(label string, qty int, price string) domain.LineItem {
	return domain.LineItem{Label: label, Quantity: qty, UnitPrice: dec(price)}
}

func validInput() service.RecordVisitInput {
	return service.RecordVisitInput{
		Name:      "Ana",
		VisitDate: "2024-03-15",
		Items:     []domain.LineItem{item("Pizza", 2, "85.0"), item("Soda", 1, "15.0")},
	}
}

func newVisitService(p domain.VisitPolicy) (*service.VisitService, *memUnitOfWork) {
	uow := newMemUnitOfWork()
	return service.NewVisitService(uow, p, discardLogger()), uow
}

// ---- validation -------------------------------------------------------------

func TestVisitService_Record_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *service.RecordVisitInput)
	}{
		{"blank name", func(in *service.RecordVisitInput) { in.Name = "   " }},
		{"bad date", func(in *service.RecordVisitInput) { in.VisitDate = "15/03/2024" }},
		{"impossible date", func(in *service.RecordVisitInput) { in.VisitDate = "2024-02-30" }},
		{"no items", func(in *service.RecordVisitInput) { in.Items = nil }},
		{"zero quantity", func(in *service.RecordVisitInput) { in.Items[0].Quantity = 0 }},
		{"negative quantity", func(in *service.RecordVisitInput) { in.Items[1].Quantity = -1 }},
		{"negative price", func(in *service.RecordVisitInput) { in.Items[0].UnitPrice = dec("-0.01") }},
		{"blank label", func(in *service.RecordVisitInput) { in.Items[0].Label = "" }},
		{"sub-cent price", func(in *service.RecordVisitInput) { in.Items = []domain.LineItem{item("Gum", 3, "0.333")} }},
		{"total over column range", func(in *service.RecordVisitInput) {
			in.Items = []domain.LineItem{item("Yacht", 2, "5000000000.00")}
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, uow := newVisitService(domain.PolicyAppend)
			in := validInput()
			tc.mutate(&in)

			_, err := svc.Record(staffCtx(), in, day("2024-03-15"))

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, uow.calls, "no transaction should start for invalid input")
		})
	}
}

func TestVisitService_Record_ZeroPriceAllowed(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyAppend)
	in := validInput()
	in.Items = []domain.LineItem{item("Water", 1, "0")}

	got, err := svc.Record(staffCtx(), in, day("2024-03-15"))

	require.NoError(t, err)
	assert.True(t, got.Amount.IsZero())
}

func TestVisitService_Record_TrailingZeroPriceAllowed(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyAppend)
	in := validInput()
	in.Items = []domain.LineItem{item("Tea", 2, "1.500"), item("Cake", 1, "9999999996.99")}

	got, err := svc.Record(staffCtx(), in, day("2024-03-15"))

	require.NoError(t, err)
	assert.Equal(t, domain.MaxAmount.StringFixed(2), got.Amount.StringFixed(2))
}

func TestVisitService_Record_NotAuthenticated(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyAppend)

	_, err := svc.Record(context.Background(), validInput(), day("2024-03-15"))

	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	assert.Zero(t, uow.calls)
}

// ---- amount and summary -----------------------------------------------------

func TestVisitService_Record_AmountIsExactSum(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyAppend)

	got, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))

	require.NoError(t, err)
	assert.Equal(t, "185.00", got.Amount.StringFixed(2))
	assert.Equal(t, "Pizza x2, Soda x1", got.OrderSummary)
}

func TestVisitService_Record_EmptyDateDefaultsToToday(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyAppend)
	in := validInput()
	in.VisitDate = ""

	got, err := svc.Record(staffCtx(), in, day("2024-03-20"))

	require.NoError(t, err)
	assert.Equal(t, "2024-03-20", domain.FormatDate(got.VisitDate))
}

func TestVisitService_Record_TrimsName(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyAppend)
	in := validInput()
	in.Name = "  Ana  "

	got, err := svc.Record(staffCtx(), in, day("2024-03-15"))

	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, []string{"Ana"}, uow.visits.locked)
}

func TestVisitService_Record_AppendsActivity(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyAppend)

	_, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))

	require.NoError(t, err)
	assert.Equal(t, []string{"staff: Added customer Ana"}, uow.activity.actions())
}

// ---- append policy ------------------------------------------------------------

func TestVisitService_Record_Append_CountsUpPerName(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyAppend)

	var counts []int
	for i := 0; i < 5; i++ {
		got, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))
		require.NoError(t, err)
		counts = append(counts, got.VisitCount)
	}

	assert.Equal(t, []int{1, 2, 3, 4, 5}, counts)
	assert.Len(t, uow.visits.rows, 5)
}

func TestVisitService_Record_Append_CountsArchivedRows(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyAppend)
	ctx := staffCtx()

	first, err := svc.Record(ctx, validInput(), day("2024-03-15"))
	require.NoError(t, err)
	_, err = uow.visits.Archive(ctx, first.ID)
	require.NoError(t, err)

	got, err := svc.Record(ctx, validInput(), day("2024-03-15"))

	require.NoError(t, err)
	assert.Equal(t, 2, got.VisitCount)
}

func TestVisitService_Record_Append_TwoTierCategory(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyAppend)

	var cats []domain.Category
	for i := 0; i < 4; i++ {
		got, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))
		require.NoError(t, err)
		cats = append(cats, got.Category)
	}

	assert.Equal(t, []domain.Category{domain.CategoryNew, domain.CategoryNew, domain.CategoryNew, domain.CategoryOld}, cats)
}

// ---- merge policy -------------------------------------------------------------

func TestVisitService_Record_Merge_SecondVisitSameDay(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyMerge)
	ctx := staffCtx()

	first, err := svc.Record(ctx, validInput(), day("2024-03-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.VisitCount)
	assert.Equal(t, domain.CategoryNew, first.Category)

	in := validInput()
	in.Items = []domain.LineItem{item("Coffee", 1, "4.50")}
	second, err := svc.Record(ctx, in, day("2024-03-15"))

	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "merge must not create a second row")
	assert.Equal(t, 2, second.VisitCount)
	assert.Equal(t, "189.50", second.Amount.StringFixed(2))
	assert.Equal(t, "Coffee x1", second.OrderSummary)
	assert.Len(t, uow.visits.rows, 1)
}

func TestVisitService_Record_Merge_CumulativeOverflowIsValidation(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyMerge)
	ctx := staffCtx()

	in := validInput()
	in.Items = []domain.LineItem{item("Yacht", 1, "9999999990.00")}
	first, err := svc.Record(ctx, in, day("2024-03-15"))
	require.NoError(t, err)

	in.Items = []domain.LineItem{item("Fuel", 1, "10.00")}
	_, err = svc.Record(ctx, in, day("2024-03-15"))

	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, domain.ErrStorage)
	require.Len(t, uow.visits.rows, 1)
	assert.Equal(t, first.Amount.StringFixed(2), uow.visits.rows[0].Amount.StringFixed(2))
	assert.Equal(t, 1, uow.visits.rows[0].VisitCount)
	assert.Equal(t, []string{"staff: Added customer Ana"}, uow.activity.actions())
}

func TestVisitService_Record_Merge_OverwritesVisitDate(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyMerge)
	ctx := staffCtx()

	_, err := svc.Record(ctx, validInput(), day("2024-03-15"))
	require.NoError(t, err)

	in := validInput()
	in.VisitDate = "2024-03-20"
	got, err := svc.Record(ctx, in, day("2024-03-20"))

	require.NoError(t, err)
	assert.Equal(t, "2024-03-20", domain.FormatDate(got.VisitDate))
}

func TestVisitService_Record_Merge_ArchivedStartsFresh(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyMerge)
	ctx := staffCtx()

	first, err := svc.Record(ctx, validInput(), day("2024-03-15"))
	require.NoError(t, err)
	_, err = uow.visits.Archive(ctx, first.ID)
	require.NoError(t, err)

	got, err := svc.Record(ctx, validInput(), day("2024-03-16"))

	require.NoError(t, err)
	assert.NotEqual(t, first.ID, got.ID)
	assert.Equal(t, 1, got.VisitCount)
}

func TestVisitService_Record_Merge_ThreeTierCategory(t *testing.T) {
	svc, _ := newVisitService(domain.PolicyMerge)

	byCount := map[int]domain.Category{}
	for i := 1; i <= 10; i++ {
		got, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))
		require.NoError(t, err)
		byCount[got.VisitCount] = got.Category
	}

	assert.Equal(t, domain.CategoryNew, byCount[4])
	assert.Equal(t, domain.CategoryRegular, byCount[5])
	assert.Equal(t, domain.CategoryRegular, byCount[9])
	assert.Equal(t, domain.CategoryVIP, byCount[10])
}

// ---- store failures -----------------------------------------------------------

func TestVisitService_Record_StorageError(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyMerge)
	uow.visits.failOn = "FindActiveByName"

	_, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.ErrorIs(t, err, errStore)
}

func TestVisitService_Record_ActivityFailureRollsBack(t *testing.T) {
	svc, uow := newVisitService(domain.PolicyAppend)
	uow.activity.appendErr = errStore

	_, err := svc.Record(staffCtx(), validInput(), day("2024-03-15"))

	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Empty(t, uow.visits.rows, "visit must not persist without its audit entry")
}
