package web

/* view types for the web server */

import (
	"encoding/json"
	"fmt"
	"html/template"

	"salestracker/db"
)

// viewSale is a view version of the db.Sale type with non-pointer
// fields and pre-formatted dates, suitable for templates and for the
// incremental loading endpoint.
type viewSale struct {
	ID                   int64   `json:"id"`
	JobNumber            string  `json:"jobNumber"`
	Name                 string  `json:"name"`
	Street               string  `json:"street"`
	City                 string  `json:"city"`
	State                string  `json:"state"`
	ZipCode              string  `json:"zipCode"`
	PhoneNumber          string  `json:"phoneNumber"`
	SaleDateStr          string  `json:"saleDate"`
	ProductsSold         string  `json:"productsSold"`
	Amount               float64 `json:"amount"`
	AccountabilityAmount float64 `json:"accountabilityAmount"`
	SaleAmountSplit      int     `json:"saleAmountSplit"`
	Notes                string  `json:"notes"`
	RowCount             int     `json:"-"`
}

// newViewSales maps db.Sale records to a slice of viewSale.
func newViewSales(sales []db.Sale) []viewSale {
	vs := make([]viewSale, len(sales))
	for i, s := range sales {
		vs[i].ID = s.ID
		vs[i].JobNumber = s.JobNumber
		vs[i].Name = s.Name
		vs[i].Street = s.Street
		vs[i].City = s.City
		vs[i].State = s.State
		vs[i].ZipCode = s.ZipCode
		vs[i].SaleDateStr = s.SaleDate.Format("2006-01-02")
		vs[i].ProductsSold = s.ProductsSold
		vs[i].Amount = s.Amount
		vs[i].AccountabilityAmount = s.AccountabilityAmount
		vs[i].SaleAmountSplit = s.SaleAmountSplit
		vs[i].Notes = s.Notes
		vs[i].RowCount = s.RowCount
		// de-pointer
		if s.PhoneNumber != nil {
			vs[i].PhoneNumber = *s.PhoneNumber
		}
	}
	return vs
}

// mapPoint is a single marker on the sales map.
type mapPoint struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Name      string  `json:"name"`
	JobNumber string  `json:"jobNumber"`
	Amount    float64 `json:"amount"`
	Label     string  `json:"label"`
}

// newMapPoints maps geocoded db.Sale records to map markers. Records
// without coordinates are skipped.
func newMapPoints(sales []db.Sale) []mapPoint {
	points := make([]mapPoint, 0, len(sales))
	for _, s := range sales {
		if s.Latitude == nil || s.Longitude == nil {
			continue
		}
		points = append(points, mapPoint{
			Latitude:  *s.Latitude,
			Longitude: *s.Longitude,
			Name:      s.Name,
			JobNumber: s.JobNumber,
			Amount:    s.Amount,
			Label:     fmt.Sprintf("%s, %s", s.Street, s.City),
		})
	}
	return points
}

// chartSeries is a label/value dataset for the dashboard charts. Counts
// holds the per-label record counts where the underlying query provides
// them.
type chartSeries struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Counts []int     `json:"counts,omitempty"`
}

// newDateSeries converts daily totals to a chartSeries.
func newDateSeries(totals []db.DateTotal) chartSeries {
	series := chartSeries{Labels: []string{}, Values: []float64{}}
	for _, t := range totals {
		series.Labels = append(series.Labels, t.Date.Format("2006-01-02"))
		series.Values = append(series.Values, t.Total)
	}
	return series
}

// newMonthSeries converts monthly totals to a chartSeries, keeping the
// number of sales per month alongside the totals.
func newMonthSeries(totals []db.MonthTotal) chartSeries {
	series := chartSeries{Labels: []string{}, Values: []float64{}, Counts: []int{}}
	for _, t := range totals {
		series.Labels = append(series.Labels, t.Month)
		series.Values = append(series.Values, t.Total)
		series.Counts = append(series.Counts, t.Count)
	}
	return series
}

// newCitySeries converts per-city totals to a chartSeries.
func newCitySeries(totals []db.CityTotal) chartSeries {
	series := chartSeries{Labels: []string{}, Values: []float64{}}
	for _, t := range totals {
		series.Labels = append(series.Labels, t.City)
		series.Values = append(series.Values, t.Total)
	}
	return series
}

// asJS marshals v for safe embedding in a template script block.
func asJS(v any) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("view marshalling error: %w", err)
	}
	return template.JS(b), nil
}
