package db

// tests for sale record database queries

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"
)

func TestSaleInsertAndGet(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")

	id, err := testDB.SaleInsert(ctx, testSale(userID))
	if err != nil {
		t.Fatalf("unexpected sale insert error: %v", err)
	}

	sale, err := testDB.SaleGet(ctx, userID, id)
	if err != nil {
		t.Fatalf("unexpected sale get error: %v", err)
	}
	if got, want := sale.JobNumber, "J-1001"; got != want {
		t.Errorf("job number got %q want %q", got, want)
	}
	if got, want := sale.SaleDate, date(2025, time.March, 14); !got.Equal(want) {
		t.Errorf("sale date got %s want %s", got, want)
	}
	if sale.Latitude == nil || *sale.Latitude != 39.7817 {
		t.Errorf("unexpected latitude %v", sale.Latitude)
	}
}

// TestSaleAccountability checks the write-time derivation of the
// accountability amount for both insert and update.
func TestSaleAccountability(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")

	tests := []struct {
		name   string
		amount float64
		split  int
		want   float64
	}{
		{"split of one equals amount", 1234.56, 1, 1234.56},
		{"even split", 1000.00, 2, 500.00},
		{"rounded split", 1000.00, 3, 333.33},
		{"zero split treated as one", 250.00, 0, 250.00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSale(userID)
			s.Amount = tt.amount
			s.SaleAmountSplit = tt.split

			id, err := testDB.SaleInsert(ctx, s)
			if err != nil {
				t.Fatalf("unexpected sale insert error: %v", err)
			}
			sale, err := testDB.SaleGet(ctx, userID, id)
			if err != nil {
				t.Fatalf("unexpected sale get error: %v", err)
			}
			if got, want := sale.AccountabilityAmount, tt.want; got != want {
				t.Errorf("accountability after insert got %v want %v", got, want)
			}

			// The derived field must also track an amount change on
			// update through the write path.
			sale.Amount = tt.amount * 2
			if err := testDB.SaleUpdate(ctx, sale); err != nil {
				t.Fatalf("unexpected sale update error: %v", err)
			}
			updated, err := testDB.SaleGet(ctx, userID, id)
			if err != nil {
				t.Fatalf("unexpected sale get error: %v", err)
			}
			if got, want := updated.AccountabilityAmount, round2(updated.Amount/float64(updated.SaleAmountSplit)); got != want {
				t.Errorf("accountability after update got %v want %v", got, want)
			}
		})
	}
}

// TestSaleOwnership checks that another user's sale behaves exactly like a
// missing one for get, update and delete.
func TestSaleOwnership(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	aliceID := insertTestUser(t, testDB, "alice")
	bobID := insertTestUser(t, testDB, "bob")

	id, err := testDB.SaleInsert(ctx, testSale(aliceID))
	if err != nil {
		t.Fatalf("unexpected sale insert error: %v", err)
	}

	if _, err := testDB.SaleGet(ctx, bobID, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows on foreign get, got %v", err)
	}

	foreign := testSale(bobID)
	foreign.ID = id
	if err := testDB.SaleUpdate(ctx, foreign); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows on foreign update, got %v", err)
	}

	if err := testDB.SaleDelete(ctx, bobID, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows on foreign delete, got %v", err)
	}

	// The sale is untouched for its owner.
	if _, err := testDB.SaleGet(ctx, aliceID, id); err != nil {
		t.Errorf("unexpected owner get error: %v", err)
	}
}

func TestSaleDelete(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	id, err := testDB.SaleInsert(ctx, testSale(userID))
	if err != nil {
		t.Fatalf("unexpected sale insert error: %v", err)
	}

	if err := testDB.SaleDelete(ctx, userID, id); err != nil {
		t.Fatalf("unexpected sale delete error: %v", err)
	}
	if _, err := testDB.SaleGet(ctx, userID, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows after delete, got %v", err)
	}
	if err := testDB.SaleDelete(ctx, userID, id); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows on second delete, got %v", err)
	}
}

func TestSalesListFilters(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")

	cities := []struct {
		city string
		zip  string
	}{
		{"Springfield", "62704"},
		{"springfield", "62705"},
		{"Chicago", "60601"},
	}
	for i, c := range cities {
		s := testSale(userID)
		s.JobNumber = "J-" + c.zip
		s.City = c.city
		s.ZipCode = c.zip
		s.SaleDate = date(2025, time.March, 10+i)
		if _, err := testDB.SaleInsert(ctx, s); err != nil {
			t.Fatalf("unexpected sale insert error: %v", err)
		}
	}

	// Substring, case-insensitive city match: "spring" matches both
	// Springfield spellings.
	sales, err := testDB.SalesList(ctx, userID, "spring", "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected sales list error: %v", err)
	}
	if got, want := len(sales), 2; got != want {
		t.Errorf("city substring match got %d sales want %d", got, want)
	}

	// Exact-case mismatch must not exclude rows.
	sales, err = testDB.SalesList(ctx, userID, "Springfield", "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected sales list error: %v", err)
	}
	if got, want := len(sales), 2; got != want {
		t.Errorf("city exact match got %d sales want %d", got, want)
	}

	// Zip filter is exact.
	sales, err = testDB.SalesList(ctx, userID, "", "62704", 20, 0)
	if err != nil {
		t.Fatalf("unexpected sales list error: %v", err)
	}
	if got, want := len(sales), 1; got != want {
		t.Errorf("zip match got %d sales want %d", got, want)
	}

	// Unfiltered list is ordered most recent first and carries the row
	// count.
	sales, err = testDB.SalesList(ctx, userID, "", "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected sales list error: %v", err)
	}
	if got, want := len(sales), 3; got != want {
		t.Fatalf("unfiltered list got %d sales want %d", got, want)
	}
	if sales[0].SaleDate.Before(sales[1].SaleDate) {
		t.Error("expected sales in descending date order")
	}
	if got, want := sales[0].RowCount, 3; got != want {
		t.Errorf("row count got %d want %d", got, want)
	}

	// No match returns sql.ErrNoRows.
	if _, err := testDB.SalesList(ctx, userID, "nowhere", "", 20, 0); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSalesListPagination(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	for i := 0; i < 25; i++ {
		s := testSale(userID)
		s.SaleDate = date(2025, time.January, 1).AddDate(0, 0, i)
		if _, err := testDB.SaleInsert(ctx, s); err != nil {
			t.Fatalf("unexpected sale insert error: %v", err)
		}
	}

	page1, err := testDB.SalesList(ctx, userID, "", "", 20, 0)
	if err != nil {
		t.Fatalf("unexpected sales list error: %v", err)
	}
	if got, want := len(page1), 20; got != want {
		t.Errorf("page 1 got %d sales want %d", got, want)
	}
	if got, want := page1[0].RowCount, 25; got != want {
		t.Errorf("row count got %d want %d", got, want)
	}

	page2, err := testDB.SalesList(ctx, userID, "", "", 20, 20)
	if err != nil {
		t.Fatalf("unexpected sales list error: %v", err)
	}
	if got, want := len(page2), 5; got != want {
		t.Errorf("page 2 got %d sales want %d", got, want)
	}
}

func TestSalesSearch(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")
	otherID := insertTestUser(t, testDB, "bob")

	s1 := testSale(userID)
	s1.Notes = "Replaced downspouts"
	s2 := testSale(userID)
	s2.JobNumber = "J-2002"
	s2.Name = "Bert Brown"
	s2.PhoneNumber = ptrStr("+1-555-0199")
	s3 := testSale(otherID) // a different owner's sale must never appear
	s3.Notes = "Replaced downspouts"

	for _, s := range []Sale{s1, s2, s3} {
		if _, err := testDB.SaleInsert(ctx, s); err != nil {
			t.Fatalf("unexpected sale insert error: %v", err)
		}
	}

	tests := []struct {
		name   string
		search string
		want   int
	}{
		{"notes field", "downspout", 1},
		{"name field case-insensitive", "bert", 1},
		{"phone number field", "0199", 1},
		{"city matches all", "springfield", 2},
		{"empty search matches all", "", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sales, err := testDB.SalesSearch(ctx, userID, tt.search, 20, 0)
			if err != nil {
				t.Fatalf("unexpected sales search error: %v", err)
			}
			if got, want := len(sales), tt.want; got != want {
				t.Errorf("search %q got %d sales want %d", tt.search, got, want)
			}
		})
	}

	if _, err := testDB.SalesSearch(ctx, userID, "no-such-string", 20, 0); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSalesWithCoordinates(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	userID := insertTestUser(t, testDB, "alice")

	withCoords := testSale(userID)
	withoutCoords := testSale(userID)
	withoutCoords.Latitude = nil
	withoutCoords.Longitude = nil

	for _, s := range []Sale{withCoords, withoutCoords} {
		if _, err := testDB.SaleInsert(ctx, s); err != nil {
			t.Fatalf("unexpected sale insert error: %v", err)
		}
	}

	sales, err := testDB.SalesWithCoordinates(ctx, userID)
	if err != nil {
		t.Fatalf("unexpected sales map error: %v", err)
	}
	if got, want := len(sales), 1; got != want {
		t.Errorf("map sales got %d want %d", got, want)
	}
}
