package db

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"
)

func ptrStr(s string) *string { return &s }

func ptrFloat64(f float64) *float64 { return &f }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// setupTestDB sets up an in-memory test database with the schema loaded and
// statements prepared.
func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testDB, err := NewConnection("file::memory:?cache=shared", SQLEmbeddedFS, logger)
	if err != nil {
		t.Fatalf("in-memory test database opening error: %v", err)
	}
	if err := testDB.InitSchema("schema.sql"); err != nil {
		t.Fatalf("schema init error: %v", err)
	}
	if err := testDB.PrepareStatements(); err != nil {
		t.Fatalf("statement preparation error: %v", err)
	}

	// Each in-memory database is shared; clear between tests.
	ctx := context.Background()
	if _, err := testDB.ExecContext(ctx, "DELETE FROM sales"); err != nil {
		t.Fatalf("could not clear sales: %v", err)
	}
	if _, err := testDB.ExecContext(ctx, "DELETE FROM users"); err != nil {
		t.Fatalf("could not clear users: %v", err)
	}

	closeDBFunc := func() {
		err := testDB.Close()
		if err != nil {
			t.Fatalf("unexpected db close error: %v", err)
		}
	}

	return testDB, closeDBFunc
}

// insertTestUser is a helper returning the id of a newly made user.
func insertTestUser(t *testing.T, testDB *DB, username string) int64 {
	t.Helper()
	id, err := testDB.UserInsert(context.Background(), User{
		Username:     username,
		FirstName:    "Test",
		LastName:     "User",
		Email:        username + "@example.com",
		PasswordHash: "not-a-real-hash",
	})
	if err != nil {
		t.Fatalf("could not insert user %q: %v", username, err)
	}
	return id
}

// testSale returns a writeable sale owned by userID.
func testSale(userID int64) Sale {
	return Sale{
		UserID:          userID,
		JobNumber:       "J-1001",
		Name:            "Ada Smith",
		Street:          "123 Main St",
		City:            "Springfield",
		State:           "IL",
		ZipCode:         "62704",
		SaleDate:        date(2025, time.March, 14),
		ProductsSold:    "Gutters",
		Amount:          1000.00,
		Notes:           "",
		Commission:      ptrFloat64(100.00),
		Latitude:        ptrFloat64(39.7817),
		Longitude:       ptrFloat64(-89.6501),
		PhoneNumber:     ptrStr("+1-555-0101"),
		SaleAmountSplit: 1,
	}
}
