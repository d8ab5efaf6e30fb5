package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
)

func TestUserInsertAndGet(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	id, err := testDB.UserInsert(ctx, User{
		Username:     "RoryJ",
		FirstName:    "Rory",
		LastName:     "Jones",
		Email:        "rory@example.com",
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("unexpected user insert error: %v", err)
	}

	// Usernames are stored lowercased and matched case-insensitively.
	user, err := testDB.UserGetByUsername(ctx, "roryj")
	if err != nil {
		t.Fatalf("unexpected get by username error: %v", err)
	}
	if got, want := user.Username, "roryj"; got != want {
		t.Errorf("username got %q want %q", got, want)
	}
	if got, want := user.ID, id; got != want {
		t.Errorf("id got %d want %d", got, want)
	}

	user2, err := testDB.UserGetByUsername(ctx, "RORYJ")
	if err != nil {
		t.Fatalf("unexpected case-insensitive get error: %v", err)
	}
	if got, want := user2.ID, id; got != want {
		t.Errorf("id got %d want %d", got, want)
	}

	if _, err := testDB.UserGetByUsername(ctx, "nobody"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for unknown user, got %v", err)
	}
}

func TestUsernameExists(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	insertTestUser(t, testDB, "alice")

	for _, name := range []string{"alice", "Alice", "ALICE"} {
		exists, err := testDB.UsernameExists(ctx, name)
		if err != nil {
			t.Fatalf("unexpected username exists error: %v", err)
		}
		if !exists {
			t.Errorf("expected %q to exist", name)
		}
	}

	exists, err := testDB.UsernameExists(ctx, "bob")
	if err != nil {
		t.Fatalf("unexpected username exists error: %v", err)
	}
	if exists {
		t.Error("did not expect bob to exist")
	}
}

func TestEmailInUse(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	id := insertTestUser(t, testDB, "alice")

	inUse, err := testDB.EmailInUse(ctx, "alice@example.com", 0)
	if err != nil {
		t.Fatalf("unexpected email in use error: %v", err)
	}
	if !inUse {
		t.Error("expected email to be in use")
	}

	// A user keeping their own email is not a conflict.
	inUse, err = testDB.EmailInUse(ctx, "alice@example.com", id)
	if err != nil {
		t.Fatalf("unexpected email in use error: %v", err)
	}
	if inUse {
		t.Error("user's own email should not conflict")
	}
}

func TestUserUpdate(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	id := insertTestUser(t, testDB, "alice")

	user, err := testDB.UserGet(ctx, id)
	if err != nil {
		t.Fatalf("unexpected user get error: %v", err)
	}
	user.FirstName = "Alicia"
	user.Email = "alicia@example.com"
	if err := testDB.UserUpdate(ctx, user); err != nil {
		t.Fatalf("unexpected user update error: %v", err)
	}

	updated, err := testDB.UserGet(ctx, id)
	if err != nil {
		t.Fatalf("unexpected user get error: %v", err)
	}
	if got, want := updated.FirstName, "Alicia"; got != want {
		t.Errorf("first name got %q want %q", got, want)
	}
	if got, want := updated.Email, "alicia@example.com"; got != want {
		t.Errorf("email got %q want %q", got, want)
	}
}

// TestUserDeleteCascades checks sales are removed with their owner.
func TestUserDeleteCascades(t *testing.T) {

	testDB, closeDB := setupTestDB(t)
	t.Cleanup(closeDB)
	ctx := context.Background()

	id := insertTestUser(t, testDB, "alice")
	if _, err := testDB.SaleInsert(ctx, testSale(id)); err != nil {
		t.Fatalf("unexpected sale insert error: %v", err)
	}

	if _, err := testDB.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		t.Fatalf("unexpected user delete error: %v", err)
	}

	var count int
	err := testDB.GetContext(ctx, &count, "SELECT COUNT(*) FROM sales WHERE user_id = ?", id)
	if err != nil {
		t.Fatalf("unexpected count error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected cascade delete of sales, got %d remaining", count)
	}
}
