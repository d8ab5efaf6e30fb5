package db

// tests for the dashboard aggregation queries

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// seedDashboard inserts a small spread of sales for aggregation tests:
//
//	2024-11-05  Springfield  600/2 = 300
//	2025-03-01  Springfield  1000/1 = 1000
//	2025-03-01  Chicago      500/1 = 500
//	2025-06-15  Chicago      200/1 = 200
//	2025-07-01  Peoria       0 (excluded from series)
func seedDashboard(t *testing.T, testDB *DB, userID int64) {
	t.Helper()
	ctx := context.Background()

	rows := []struct {
		saleDate time.Time
		city     string
		amount   float64
		split    int
	}{
		{date(2024, time.November, 5), "Springfield", 600, 2},
		{date(2025, time.March, 1), "Springfield", 1000, 1},
		{date(2025, time.March, 1), "Chicago", 500, 1},
		{date(2025, time.June, 15), "Chicago", 200, 1},
		{date(2025, time.July, 1), "Peoria", 0, 1},
	}
	for i, r := range rows {
		s := testSale(userID)
		s.JobNumber = "J-" + string(rune('A'+i))
		s.SaleDate = r.saleDate
		s.City = r.city
		s.Amount = r.amount
		s.SaleAmountSplit = r.split
		if _, err := testDB.SaleInsert(ctx, s); err != nil {
			t.Fatalf("unexpected sale insert error: %v", err)
		}
	}
}

func TestCareerTotal(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")

	// A user with no sales has a zero career total, not an error.
	total, err := testDB.CareerTotal(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected career total error: %v", err)
	}
	if total != 0 {
		t.Errorf("career total for no sales got %v want 0", total)
	}

	seedDashboard(t, testDB, userID)

	total, err = testDB.CareerTotal(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected career total error: %v", err)
	}
	if got, want := total, 2000.0; got != want {
		t.Errorf("career total got %v want %v", got, want)
	}
}

func TestSalesByDate(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	seedDashboard(t, testDB, userID)

	series, err := testDB.SalesByDate(ctx, userID, DashboardFilter{})
	if err != nil {
		t.Fatalf("unexpected sales by date error: %v", err)
	}
	// The zero-accountability Peoria sale is excluded; the two March
	// sales share a date.
	want := []DateTotal{
		{Date: date(2024, time.November, 5), Total: 300},
		{Date: date(2025, time.March, 1), Total: 1500},
		{Date: date(2025, time.June, 15), Total: 200},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}

	// Inclusive date bounds.
	series, err = testDB.SalesByDate(ctx, userID, DashboardFilter{
		DateFrom: date(2025, time.March, 1),
		DateTo:   date(2025, time.June, 15),
	})
	if err != nil {
		t.Fatalf("unexpected sales by date error: %v", err)
	}
	if got, want := len(series), 2; got != want {
		t.Errorf("bounded series got %d points want %d", got, want)
	}

	// City filter.
	series, err = testDB.SalesByDate(ctx, userID, DashboardFilter{City: "chicago"})
	if err != nil {
		t.Fatalf("unexpected sales by date error: %v", err)
	}
	if got, want := len(series), 2; got != want {
		t.Errorf("city series got %d points want %d", got, want)
	}
}

func TestSalesByMonth(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	seedDashboard(t, testDB, userID)

	series, err := testDB.SalesByMonth(ctx, userID, 2025, DashboardFilter{})
	if err != nil {
		t.Fatalf("unexpected sales by month error: %v", err)
	}
	want := []MonthTotal{
		{Month: "2025-03", Count: 2, Total: 1500},
		{Month: "2025-06", Count: 1, Total: 200},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}

	// A year with no qualifying sales yields an empty series, not an
	// error.
	series, err = testDB.SalesByMonth(ctx, userID, 1999, DashboardFilter{})
	if err != nil {
		t.Fatalf("unexpected sales by month error: %v", err)
	}
	if got, want := len(series), 0; got != want {
		t.Errorf("empty year got %d points want %d", got, want)
	}
}

func TestSalesByCity(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	seedDashboard(t, testDB, userID)

	series, err := testDB.SalesByCity(ctx, userID, DashboardFilter{})
	if err != nil {
		t.Fatalf("unexpected sales by city error: %v", err)
	}
	// Descending by total; the zero-accountability city is excluded.
	want := []CityTotal{
		{City: "Springfield", Total: 1300},
		{City: "Chicago", Total: 700},
	}
	if diff := cmp.Diff(want, series); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}
}

func TestSaleYears(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	seedDashboard(t, testDB, userID)

	years, err := testDB.SaleYears(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected sale years error: %v", err)
	}
	if diff := cmp.Diff([]int{2025, 2024}, years); diff != "" {
		t.Errorf("years mismatch (-want +got):\n%s", diff)
	}
}

// TestAggregatesAreOwnerScoped checks a second user's sales never leak into
// another user's aggregates.
func TestAggregatesAreOwnerScoped(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	aliceID := insertTestUser(t, testDB, "alice")
	bobID := insertTestUser(t, testDB, "bob")
	seedDashboard(t, testDB, bobID)

	total, err := testDB.CareerTotal(ctx, aliceID)
	if err != nil {
		t.Fatalf("unexpected career total error: %v", err)
	}
	if total != 0 {
		t.Errorf("career total got %v want 0", total)
	}

	series, err := testDB.SalesByDate(ctx, aliceID, DashboardFilter{})
	if err != nil {
		t.Fatalf("unexpected sales by date error: %v", err)
	}
	if len(series) != 0 {
		t.Errorf("expected empty series, got %d points", len(series))
	}
}
