package db

// dashboard.go deals with the aggregation queries behind the dashboard
// charts. All series read only rows with a positive accountability amount;
// the career total is unfiltered. Aggregate queries return empty slices
// rather than sql.ErrNoRows since an empty chart is a valid state.

import (
	"context"
	"fmt"
	"time"
)

// DashboardFilter carries the optional dashboard filters. Zero dates
// disable the corresponding bound; both bounds are inclusive on sale_date.
type DashboardFilter struct {
	DateFrom time.Time
	DateTo   time.Time
	City     string
}

// filterArgs renders the filter into named arguments, with zero dates as
// empty strings.
func (f DashboardFilter) filterArgs() map[string]any {
	fmtDate := func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2006-01-02")
	}
	return map[string]any{
		"DateFrom": fmtDate(f.DateFrom),
		"DateTo":   fmtDate(f.DateTo),
		"City":     f.City,
	}
}

// DateTotal is one point of the daily accountability series.
type DateTotal struct {
	Date  time.Time `db:"sale_date"`
	Total float64   `db:"total"`
}

// MonthTotal is one point of the monthly series. Month is in "2006-01"
// form.
type MonthTotal struct {
	Month string  `db:"month"`
	Count int     `db:"count"`
	Total float64 `db:"total"`
}

// CityTotal is one point of the per-city series.
type CityTotal struct {
	City  string  `db:"city"`
	Total float64 `db:"total"`
}

// CareerTotal sums the accountability amount over all of the owner's sales,
// unfiltered. A user with no sales totals zero.
func (db *DB) CareerTotal(ctx context.Context, userID int64) (float64, error) {

	stmt := db.careerTotalStmt
	namedArgs := map[string]any{
		"UserID": userID,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return 0, fmt.Errorf("career total verify arguments error: %v", err)
	}
	var total float64
	if err := stmt.GetContext(ctx, &total, namedArgs); err != nil {
		return 0, fmt.Errorf("career total select error: %v", err)
	}
	return total, nil
}

// SalesByDate sums accountability amounts grouped by sale date, ascending.
func (db *DB) SalesByDate(ctx context.Context, userID int64, f DashboardFilter) ([]DateTotal, error) {

	stmt := db.salesByDateStmt
	namedArgs := f.filterArgs()
	namedArgs["UserID"] = userID
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sales by date verify arguments error: %v", err)
	}
	series := []DateTotal{}
	if err := stmt.SelectContext(ctx, &series, namedArgs); err != nil {
		return nil, fmt.Errorf("sales by date select error: %v", err)
	}
	return series, nil
}

// SalesByMonth counts sales and sums accountability amounts by calendar
// month for a single year, ascending by month.
func (db *DB) SalesByMonth(ctx context.Context, userID int64, year int, f DashboardFilter) ([]MonthTotal, error) {

	stmt := db.salesByMonthStmt
	namedArgs := f.filterArgs()
	namedArgs["UserID"] = userID
	namedArgs["Year"] = year
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sales by month verify arguments error: %v", err)
	}
	series := []MonthTotal{}
	if err := stmt.SelectContext(ctx, &series, namedArgs); err != nil {
		return nil, fmt.Errorf("sales by month select error: %v", err)
	}
	return series, nil
}

// SalesByCity sums accountability amounts grouped by city, descending by
// total.
func (db *DB) SalesByCity(ctx context.Context, userID int64, f DashboardFilter) ([]CityTotal, error) {

	stmt := db.salesByCityStmt
	namedArgs := f.filterArgs()
	namedArgs["UserID"] = userID
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sales by city verify arguments error: %v", err)
	}
	series := []CityTotal{}
	if err := stmt.SelectContext(ctx, &series, namedArgs); err != nil {
		return nil, fmt.Errorf("sales by city select error: %v", err)
	}
	return series, nil
}

// SaleYears returns the distinct years present in the owner's sale dates,
// newest first.
func (db *DB) SaleYears(ctx context.Context, userID int64) ([]int, error) {

	stmt := db.saleYearsStmt
	namedArgs := map[string]any{
		"UserID": userID,
	}
	if err := stmt.verifyArgs(namedArgs); err != nil {
		return nil, fmt.Errorf("sale years verify arguments error: %v", err)
	}
	years := []int{}
	if err := stmt.SelectContext(ctx, &years, namedArgs); err != nil {
		return nil, fmt.Errorf("sale years select error: %v", err)
	}
	return years, nil
}
