package db

// users.go deals with user account database calls. Usernames are stored
// lowercased and matched case-insensitively throughout.

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// User is a registered account. Each user owns zero or more sales.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Created      time.Time `db:"created"`
}

// UserInsert inserts a new user, returning the new id. The username is
// lowercased before storage.
func (db *DB) UserInsert(ctx context.Context, u User) (int64, error) {

	stmt := db.userInsertStmt
	namedArgs := map[string]any{
		"Username":     strings.ToLower(u.Username),
		"FirstName":    u.FirstName,
		"LastName":     u.LastName,
		"Email":        u.Email,
		"PasswordHash": u.PasswordHash,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return 0, fmt.Errorf("user insert verify arguments error: %v", err)
	}
	result, err := stmt.ExecContext(ctx, namedArgs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user %q: %w", u.Username, err)
	}
	return result.LastInsertId()
}

// UserGetByUsername retrieves a user by username, case-insensitively,
// returning sql.ErrNoRows if no such user exists.
func (db *DB) UserGetByUsername(ctx context.Context, username string) (User, error) {

	stmt := db.userByUsernameStmt
	namedArgs := map[string]any{
		"Username": username,
	}
	var user User
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return user, fmt.Errorf("user by username verify arguments error: %v", err)
	}
	err := stmt.GetContext(ctx, &user, namedArgs)
	if err != nil {
		return user, err
	}
	return user, nil
}

// UserGet retrieves a user by id, returning sql.ErrNoRows if missing.
func (db *DB) UserGet(ctx context.Context, id int64) (User, error) {

	stmt := db.userByIDStmt
	namedArgs := map[string]any{
		"ID": id,
	}
	var user User
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return user, fmt.Errorf("user by id verify arguments error: %v", err)
	}
	err := stmt.GetContext(ctx, &user, namedArgs)
	if err != nil {
		return user, err
	}
	return user, nil
}

// UserUpdate updates a user's names, email and password hash.
func (db *DB) UserUpdate(ctx context.Context, u User) error {

	stmt := db.userUpdateStmt
	namedArgs := map[string]any{
		"ID":           u.ID,
		"FirstName":    u.FirstName,
		"LastName":     u.LastName,
		"Email":        u.Email,
		"PasswordHash": u.PasswordHash,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return fmt.Errorf("user update verify arguments error: %v", err)
	}
	_, err := stmt.ExecContext(ctx, namedArgs)
	if err != nil {
		return fmt.Errorf("failed to update user %d: %w", u.ID, err)
	}
	return nil
}

// UsernameExists reports whether a username is already taken,
// case-insensitively.
func (db *DB) UsernameExists(ctx context.Context, username string) (bool, error) {

	stmt := db.usernameExistsStmt
	namedArgs := map[string]any{
		"Username": username,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return false, fmt.Errorf("username exists verify arguments error: %v", err)
	}
	var n int
	if err := stmt.GetContext(ctx, &n, namedArgs); err != nil {
		return false, fmt.Errorf("username exists select error: %v", err)
	}
	return n > 0, nil
}

// EmailInUse reports whether an email address is already in use by a user
// other than excludeID. Pass 0 for excludeID at signup.
func (db *DB) EmailInUse(ctx context.Context, email string, excludeID int64) (bool, error) {

	stmt := db.emailInUseStmt
	namedArgs := map[string]any{
		"Email":     email,
		"ExcludeID": excludeID,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return false, fmt.Errorf("email in use verify arguments error: %v", err)
	}
	var n int
	if err := stmt.GetContext(ctx, &n, namedArgs); err != nil {
		return false, fmt.Errorf("email in use select error: %v", err)
	}
	return n > 0, nil
}
