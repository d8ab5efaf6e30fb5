package web

import (
	"fmt"
	"net/http"
	"net/mail"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/schema"
)

// ------------------------------------------------------------------------------
// Helpers
// ------------------------------------------------------------------------------

// Validator holds a map of validation errors, keyed by the form field name.
type Validator struct {
	Errors map[string]string
}

// NewValidator creates a new, initialized Validator.
func NewValidator() *Validator {
	return &Validator{Errors: make(map[string]string)}
}

// Valid returns true if the Errors map is empty.
func (v *Validator) Valid() bool {
	return len(v.Errors) == 0
}

// AddError adds an error message to the map for a given field if one
// doesn't already exist for that field.
func (v *Validator) AddError(key, message string) {
	if _, exists := v.Errors[key]; !exists {
		v.Errors[key] = message
	}
}

// Check is a helper for conditional validation. If `ok` is false, it
// calls AddError with the provided key and message.
func (v *Validator) Check(ok bool, key, message string) {
	if !ok {
		v.AddError(key, message)
	}
}

// FieldError is a helper to check if the specified field has triggered
// an error.
func (v *Validator) FieldError(field string) bool {
	_, ok := v.Errors[field]
	return ok
}

// ------------------------------------------------------------------------------
// Forms
// ------------------------------------------------------------------------------

// SearchForm represents the URL query parameter filters for the sales
// listing pages. The page number arrives as a string so that malformed
// values normalise to the first page instead of failing at decode time.
type SearchForm struct {
	Search  string `schema:"search"`
	City    string `schema:"city"`
	ZipCode string `schema:"zip"`
	PageStr string `schema:"page"`

	// parsed page number, set by Validate.
	Page int
}

// NewSearchForm creates a SearchForm with defaults.
func NewSearchForm() *SearchForm {
	return &SearchForm{
		Page: 1, // 1-based pagination.
	}
}

// Validate checks SearchForm fields and populates Validator with any
// errors. Malformed or out of range page numbers are normalised rather
// than reported.
func (f *SearchForm) Validate(v *Validator) {
	f.Search = strings.TrimSpace(f.Search)
	f.City = strings.TrimSpace(f.City)
	f.ZipCode = strings.TrimSpace(f.ZipCode)
	f.Page = 1
	if page, err := strconv.Atoi(strings.TrimSpace(f.PageStr)); err == nil && page > 1 {
		f.Page = page
	}
}

// Offset calculates the database offset for (1-based) pagination.
func (f *SearchForm) Offset() int {
	return (f.Page - 1) * pageLen
}

// SaleForm represents the fields of the sale create and edit forms.
// Numeric fields arrive as strings so that validation can report bad
// input against the field instead of failing at decode time.
type SaleForm struct {
	JobNumber     string `schema:"job-number"`
	Name          string `schema:"name"`
	Address       string `schema:"address"`
	PhoneNumber   string `schema:"phone-number"`
	SaleDateStr   string `schema:"sale-date"`
	ProductsSold  string `schema:"products-sold"`
	AmountStr     string `schema:"amount"`
	CommissionStr string `schema:"commission"`
	SplitStr      string `schema:"sale-amount-split"`
	Notes         string `schema:"notes"`
	LatitudeStr   string `schema:"latitude"`
	LongitudeStr  string `schema:"longitude"`
	ReturnTo      string `schema:"return_to"`

	// parsed values, set by Validate.
	SaleDate   time.Time
	Amount     float64
	Commission *float64
	Split      int
	Latitude   *float64
	Longitude  *float64
}

// Validate checks SaleForm fields, parsing the string-typed numeric
// fields into their typed counterparts and recording errors against the
// originating field names.
func (f *SaleForm) Validate(v *Validator) {

	f.JobNumber = strings.TrimSpace(f.JobNumber)
	f.Name = strings.TrimSpace(f.Name)
	f.Address = strings.TrimSpace(f.Address)
	f.PhoneNumber = strings.TrimSpace(f.PhoneNumber)

	v.Check(f.JobNumber != "", "job-number", "A job number must be provided.")
	v.Check(f.Name != "", "name", "A customer name must be provided.")
	v.Check(f.Address != "", "address", "An address must be provided.")

	var err error
	f.SaleDate, err = time.Parse("2006-01-02", strings.TrimSpace(f.SaleDateStr))
	v.Check(err == nil, "sale-date", "A valid sale date must be provided.")

	f.Amount, err = strconv.ParseFloat(strings.TrimSpace(f.AmountStr), 64)
	v.Check(err == nil, "amount", "A valid sale amount must be provided.")
	v.Check(f.Amount >= 0, "amount", "The sale amount cannot be negative.")

	if s := strings.TrimSpace(f.CommissionStr); s != "" {
		commission, err := strconv.ParseFloat(s, 64)
		v.Check(err == nil, "commission", "The commission must be a number.")
		if err == nil {
			f.Commission = &commission
		}
	}

	f.Split = 1
	if s := strings.TrimSpace(f.SplitStr); s != "" {
		split, err := strconv.Atoi(s)
		v.Check(err == nil, "sale-amount-split", "The sale split must be a whole number.")
		v.Check(err != nil || split >= 1, "sale-amount-split", "The sale split must be at least 1.")
		if err == nil && split >= 1 {
			f.Split = split
		}
	}

	// Coordinates are optional and supplied by the browser; both must
	// parse for either to be used.
	latStr, lngStr := strings.TrimSpace(f.LatitudeStr), strings.TrimSpace(f.LongitudeStr)
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr == nil && lngErr == nil {
			f.Latitude = &lat
			f.Longitude = &lng
		}
	}
}

// PhonePtr returns the phone number as a nullable value for storage.
func (f *SaleForm) PhonePtr() *string {
	if f.PhoneNumber == "" {
		return nil
	}
	return &f.PhoneNumber
}

// RedirectTarget returns the page to return to after a successful sale
// write, carried through the form as an explicit return_to value.
func (f *SaleForm) RedirectTarget() string {
	return saleReturnPath(f.ReturnTo)
}

// saleReturnPath maps a sale form return_to token to a redirect target.
// Only the manage listing is recognised; anything else lands on the
// sales listing.
func saleReturnPath(token string) string {
	if token == "manage" {
		return "/manage"
	}
	return "/sales"
}

// SignupForm represents the user registration form.
type SignupForm struct {
	Username        string `schema:"username"`
	FirstName       string `schema:"first-name"`
	LastName        string `schema:"last-name"`
	Email           string `schema:"email"`
	Password        string `schema:"password"`
	PasswordConfirm string `schema:"password-confirm"`
}

// Validate checks SignupForm fields.
func (f *SignupForm) Validate(v *Validator) {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.TrimSpace(f.Email)

	v.Check(f.Username != "", "username", "A username must be provided.")
	v.Check(!strings.ContainsAny(f.Username, " \t"), "username", "The username cannot contain spaces.")
	v.Check(f.Email != "", "email", "An email address must be provided.")
	if f.Email != "" {
		_, err := mail.ParseAddress(f.Email)
		v.Check(err == nil, "email", "A valid email address must be provided.")
	}
	v.Check(len(f.Password) >= 8, "password", "The password must be at least 8 characters long.")
	v.Check(f.Password == f.PasswordConfirm, "password-confirm", "The passwords do not match.")
}

// LoginForm represents the login form. ReturnTo carries the optional
// path to redirect to after a successful login.
type LoginForm struct {
	Username string `schema:"username"`
	Password string `schema:"password"`
	ReturnTo string `schema:"return_to"`
}

// Validate checks LoginForm fields.
func (f *LoginForm) Validate(v *Validator) {
	f.Username = strings.TrimSpace(f.Username)
	v.Check(f.Username != "", "username", "A username must be provided.")
	v.Check(f.Password != "", "password", "A password must be provided.")
}

// RedirectTarget returns the path to redirect to after login. Only
// local paths are honoured to avoid open redirects.
func (f *LoginForm) RedirectTarget() string {
	if localPath(f.ReturnTo) {
		return f.ReturnTo
	}
	return "/sales"
}

// ProfileForm represents the profile edit form. The password fields are
// optional; when blank the password is left unchanged.
type ProfileForm struct {
	FirstName       string `schema:"first-name"`
	LastName        string `schema:"last-name"`
	Email           string `schema:"email"`
	Password        string `schema:"password"`
	PasswordConfirm string `schema:"password-confirm"`
}

// Validate checks ProfileForm fields.
func (f *ProfileForm) Validate(v *Validator) {
	f.Email = strings.TrimSpace(f.Email)
	v.Check(f.Email != "", "email", "An email address must be provided.")
	if f.Email != "" {
		_, err := mail.ParseAddress(f.Email)
		v.Check(err == nil, "email", "A valid email address must be provided.")
	}
	if f.Password != "" {
		v.Check(len(f.Password) >= 8, "password", "The password must be at least 8 characters long.")
		v.Check(f.Password == f.PasswordConfirm, "password-confirm", "The passwords do not match.")
	}
}

// DashboardForm represents the URL query parameter filters for the
// dashboard. Malformed dates decode to the zero time, and a malformed
// year to 0, so both fall back to their defaults rather than raising an
// error.
type DashboardForm struct {
	DateFrom time.Time `schema:"date-from"`
	DateTo   time.Time `schema:"date-to"`
	City     string    `schema:"city"`
	YearStr  string    `schema:"year"`

	// parsed year, set by Validate. 0 means unspecified.
	Year int
}

// Validate checks DashboardForm fields. An end date before the start
// date is reported; absent or malformed dates and years are not.
func (f *DashboardForm) Validate(v *Validator) {
	f.City = strings.TrimSpace(f.City)
	if !f.DateFrom.IsZero() && !f.DateTo.IsZero() {
		v.Check(!f.DateTo.Before(f.DateFrom), "date-to", "End date cannot be before the start date.")
	}
	if year, err := strconv.Atoi(strings.TrimSpace(f.YearStr)); err == nil && year > 0 {
		f.Year = year
	}
}

// ------------------------------------------------------------------------------
// General decoding funcs
// ------------------------------------------------------------------------------

// newSchemaDecoder creates a new schema.Decoder instance and registers
// a custom converter for the time.Time type.
func newSchemaDecoder() *schema.Decoder {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	decoder.RegisterConverter(time.Time{}, func(value string) reflect.Value {
		t, err := time.Parse("2006-01-02", value) // other patterns can be tried here.
		if err != nil {
			return reflect.ValueOf(time.Time{})
		}
		return reflect.ValueOf(t)
	})

	return decoder
}

// DecodeURLParams is helper that decodes URL query parameters from a request
// into a destination struct (dst).
func DecodeURLParams(r *http.Request, dst any) error {
	decoder := newSchemaDecoder()
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("url parameter decoding error: %v", err)
	}
	return nil
}

// DecodePostForm is a helper that parses and decodes an http POST form
// into a destination struct (dst).
func DecodePostForm(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("form parsing error: %v", err)
	}
	decoder := newSchemaDecoder()
	if err := decoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("form decoding error: %v", err)
	}
	return nil
}

// validMuxVars checks that the required keys are in the url route variable
// parameters, such as the `id` in
//
//	"/sales/{id:[0-9]+}/edit"
func validMuxVars(vars map[string]string, keys ...string) (map[string]string, error) {
	for _, key := range keys {
		if _, ok := vars[key]; !ok {
			return nil, fmt.Errorf("parameter %q missing", key)
		}
	}
	return vars, nil
}

// saleIDFromVars extracts the numeric sale id from the mux route vars.
func saleIDFromVars(vars map[string]string) (int64, error) {
	vars, err := validMuxVars(vars, "id")
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid sale id %q", vars["id"])
	}
	return id, nil
}

// localPath reports whether the supplied string is a local url path,
// suitable for use as a return_to redirect target.
func localPath(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && strings.HasPrefix(u.Path, "/")
}
