package db

// sales.go deals with sale record database calls. Every query is scoped to
// the owning user in its WHERE clause, so a sale belonging to another user
// behaves exactly as if it did not exist.

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Sale is one sale transaction, owned by exactly one user.
type Sale struct {
	ID           int64     `db:"id"`
	UserID       int64     `db:"user_id"`
	JobNumber    string    `db:"job_number"`
	Name         string    `db:"name"`
	Street       string    `db:"street"`
	City         string    `db:"city"`
	State        string    `db:"state"`
	ZipCode      string    `db:"zip_code"`
	SaleDate     time.Time `db:"sale_date"`
	ProductsSold string    `db:"products_sold"`
	Amount       float64   `db:"amount"`
	Notes        string    `db:"notes"`
	Commission   *float64  `db:"commission"`
	Latitude     *float64  `db:"latitude"`
	Longitude    *float64  `db:"longitude"`
	PhoneNumber  *string   `db:"phone_number"`
	// SaleAmountSplit is the number of parties sharing credit for the
	// sale; AccountabilityAmount is Amount divided by it, computed at
	// write time only.
	SaleAmountSplit      int     `db:"sale_amount_split"`
	AccountabilityAmount float64 `db:"accountability_amount"`
	RowCount             int     `db:"row_count"`
}

// prepareWrite normalizes a sale for the write path: currency values are
// rounded to two decimal places and the accountability amount is derived
// from the amount and split. This is the only place the derived field is
// computed.
func (s *Sale) prepareWrite() {
	if s.SaleAmountSplit < 1 {
		s.SaleAmountSplit = 1
	}
	s.Amount = round2(s.Amount)
	if s.Commission != nil {
		c := round2(*s.Commission)
		s.Commission = &c
	}
	s.AccountabilityAmount = round2(s.Amount / float64(s.SaleAmountSplit))
}

// saleWriteArgs builds the named argument map shared by insert and update.
func (s *Sale) saleWriteArgs() map[string]any {
	return map[string]any{
		"UserID":               s.UserID,
		"JobNumber":            s.JobNumber,
		"Name":                 s.Name,
		"Street":               s.Street,
		"City":                 s.City,
		"State":                s.State,
		"ZipCode":              s.ZipCode,
		"SaleDate":             s.SaleDate.Format("2006-01-02"),
		"ProductsSold":         s.ProductsSold,
		"Amount":               s.Amount,
		"Notes":                s.Notes,
		"Commission":           s.Commission,
		"Latitude":             s.Latitude,
		"Longitude":            s.Longitude,
		"PhoneNumber":          s.PhoneNumber,
		"SaleAmountSplit":      s.SaleAmountSplit,
		"AccountabilityAmount": s.AccountabilityAmount,
	}
}

// SaleInsert inserts a sale for its owner, returning the new id.
func (db *DB) SaleInsert(ctx context.Context, s Sale) (int64, error) {

	s.prepareWrite()

	stmt := db.saleInsertStmt
	namedArgs := s.saleWriteArgs()
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return 0, fmt.Errorf("sale insert verify arguments error: %v", err)
	}
	result, err := stmt.ExecContext(ctx, namedArgs)
	if err != nil {
		return 0, fmt.Errorf("failed to insert sale %q: %w", s.JobNumber, err)
	}
	return result.LastInsertId()
}

// SaleUpdate overwrites a sale owned by s.UserID. A sale that does not exist
// or belongs to another user returns sql.ErrNoRows.
func (db *DB) SaleUpdate(ctx context.Context, s Sale) error {

	s.prepareWrite()

	stmt := db.saleUpdateStmt
	namedArgs := s.saleWriteArgs()
	namedArgs["ID"] = s.ID
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return fmt.Errorf("sale update verify arguments error: %v", err)
	}
	result, err := stmt.ExecContext(ctx, namedArgs)
	if err != nil {
		return fmt.Errorf("failed to update sale %d: %w", s.ID, err)
	}
	rowNo, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sale update rows affected error: %w", err)
	}
	if rowNo == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaleDelete deletes a sale owned by userID. A sale that does not exist or
// belongs to another user returns sql.ErrNoRows.
func (db *DB) SaleDelete(ctx context.Context, userID, id int64) error {

	stmt := db.saleDeleteStmt
	namedArgs := map[string]any{
		"UserID": userID,
		"ID":     id,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return fmt.Errorf("sale delete verify arguments error: %v", err)
	}
	result, err := stmt.ExecContext(ctx, namedArgs)
	if err != nil {
		return fmt.Errorf("failed to delete sale %d: %w", id, err)
	}
	rowNo, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sale delete rows affected error: %w", err)
	}
	if rowNo == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SaleGet retrieves a single sale owned by userID, returning sql.ErrNoRows
// for a missing or foreign sale.
func (db *DB) SaleGet(ctx context.Context, userID, id int64) (Sale, error) {

	stmt := db.saleGetStmt
	namedArgs := map[string]any{
		"UserID": userID,
		"ID":     id,
	}
	var sale Sale
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return sale, fmt.Errorf("sale get verify arguments error: %v", err)
	}
	err := stmt.GetContext(ctx, &sale, namedArgs)
	if err != nil {
		return sale, err
	}
	return sale, nil
}

// SalesList gets a page of the owner's sales, most recent first, optionally
// filtered by city (exact or substring, case-insensitive) and zip code
// (exact, case-insensitive). Each row carries the unpaginated row count.
// An empty result returns sql.ErrNoRows.
func (db *DB) SalesList(ctx context.Context, userID int64, city, zipCode string, limit, offset int) ([]Sale, error) {

	stmt := db.salesListStmt
	namedArgs := map[string]any{
		"UserID":     userID,
		"City":       city,
		"ZipCode":    zipCode,
		"HereLimit":  limit,
		"HereOffset": offset,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sales list verify arguments error: %v", err)
	}

	var sales []Sale
	err := stmt.SelectContext(ctx, &sales, namedArgs)
	if err != nil {
		db.log.Warn(fmt.Sprintf("sales list select error: %v", err))
		return nil, fmt.Errorf("sales list select error: %v", err)
	}
	if len(sales) == 0 {
		return nil, sql.ErrNoRows
	}
	return sales, nil
}

// SalesSearch searches the owner's sales with a case-insensitive substring
// match OR-combined across the nine text fields, most recent first. An
// empty result returns sql.ErrNoRows.
func (db *DB) SalesSearch(ctx context.Context, userID int64, search string, limit, offset int) ([]Sale, error) {

	stmt := db.salesSearchStmt
	namedArgs := map[string]any{
		"UserID":     userID,
		"Search":     search,
		"HereLimit":  limit,
		"HereOffset": offset,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sales search verify arguments error: %v", err)
	}

	var sales []Sale
	err := stmt.SelectContext(ctx, &sales, namedArgs)
	if err != nil {
		db.log.Warn(fmt.Sprintf("sales search select error: %v", err))
		return nil, fmt.Errorf("sales search select error: %v", err)
	}
	if len(sales) == 0 {
		return nil, sql.ErrNoRows
	}
	return sales, nil
}

// SalesWithCoordinates gets all of the owner's sales that have resolved
// coordinates, for the map. The list filters deliberately do not apply. An
// empty result returns sql.ErrNoRows.
func (db *DB) SalesWithCoordinates(ctx context.Context, userID int64) ([]Sale, error) {

	stmt := db.salesMapStmt
	namedArgs := map[string]any{
		"UserID": userID,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sales map verify arguments error: %v", err)
	}

	var sales []Sale
	err := stmt.SelectContext(ctx, &sales, namedArgs)
	if err != nil {
		return nil, fmt.Errorf("sales map select error: %v", err)
	}
	if len(sales) == 0 {
		return nil, sql.ErrNoRows
	}
	return sales, nil
}
