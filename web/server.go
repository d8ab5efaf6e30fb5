package web

// This file describes the web server for this project.
//
// Note that modules called by this server should provide self-describing errors since
// these are sent directly to an internal server error func:
//
//	web.ServerError(w, r, err)
//
// This web server also sets out each endpoint handler as a HandlerFunc. This allows for
// the router to provide arguments to the handler, as discussed in Mat Ryer's post at
//
//	https://grafana.com/blog/how-i-write-http-services-in-go-after-13-years/
//
// Another use of this pattern is to initialise only the templates needed for a specific
// endpoint. This allows for endpoint-specific template error catching, and potential
// use-case specific overriding of template `block` components, if required.
//
// Helper functions, such as `ServerError` and `clientError` are at the end of the file.

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/charmbracelet/log"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"salestracker/address"
	"salestracker/config"
	"salestracker/db"
	"salestracker/geocode"
)

// pageLen is the number of items to show in a page listing.
const pageLen = 20

// sessionKeyUserID is the session key holding the authenticated user id.
const sessionKeyUserID = "authenticatedUserID"

//go:embed static
var StaticEmbeddedFS embed.FS

//go:embed templates
var TemplatesEmbeddedFS embed.FS

// WebApp is the configuration object for the web server.
type WebApp struct {
	log        *log.Logger
	cfg        *config.Config
	db         *db.DB
	resolver   *address.Resolver
	staticFS   fs.FS // the fs holding the static web resources.
	templateFS fs.FS // the fs holding the web templates.
	sessions   *scs.SessionManager
	server     *http.Server
	handler    atomic.Value // the current http.Handler, swappable for dev reloads
}

// New initialises a WebApp.
func New(
	logger *log.Logger,
	cfg *config.Config,
	thisDB *db.DB,
	resolver *address.Resolver,
	staticFS fs.FS,
	templateFS fs.FS,
) (*WebApp, error) {

	if thisDB == nil {
		return nil, errors.New("nil database provided to web.New")
	}
	if resolver == nil {
		return nil, errors.New("nil address resolver provided to web.New")
	}

	sessions := scs.New()
	sessions.Lifetime = cfg.Session.Lifetime
	sessions.Cookie.HttpOnly = true
	sessions.Cookie.SameSite = http.SameSiteLaxMode

	// Add settings for the http server.
	server := &http.Server{
		Addr:              cfg.Web.ListenAddress,
		ReadHeaderTimeout: time.Duration(30 * time.Second),
		WriteTimeout:      time.Duration(30 * time.Second),
		MaxHeaderBytes:    1 << 19, // 100k ish
	}

	webApp := &WebApp{
		log:        logger,
		cfg:        cfg,
		db:         thisDB,
		resolver:   resolver,
		staticFS:   staticFS,
		templateFS: templateFS,
		sessions:   sessions,
		server:     server,
	}
	return webApp, nil
}

// StartServer starts a WebApp.
func (web *WebApp) StartServer() error {
	web.handler.Store(web.routes())
	web.server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		web.handler.Load().(http.Handler).ServeHTTP(w, r)
	})
	web.log.Infof("starting server on %s", web.cfg.Web.ListenAddress)
	return web.server.ListenAndServe()
}

// ReloadRoutes rebuilds the handlers, re-parsing the templates from the
// mounted filesystem. Used in development mode after a template change.
func (web *WebApp) ReloadRoutes() {
	web.handler.Store(web.routes())
}

// routes connects all of the endpoints and provides middleware.
func (web *WebApp) routes() http.Handler {

	r := mux.NewRouter()

	fs := http.FileServerFS(web.staticFS)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", fs))

	// Public pages.
	r.Handle(
		"/",
		web.handleRoot(),
	)
	r.Handle(
		"/signup",
		web.handleSignup(),
	)
	r.Handle(
		"/login",
		web.handleLogin(),
	)
	r.Handle(
		"/logout",
		web.handleLogout(),
	)

	// Main listing and map page.
	r.Handle(
		"/sales",
		web.requireAuthentication(web.handleSales()),
	)
	r.Handle(
		"/sales/load-more",
		web.requireAuthentication(web.handleSalesLoadMore()),
	)

	// Sale create, edit and delete.
	r.Handle(
		"/sales/new",
		web.requireAuthentication(web.handleSaleNew()),
	)
	r.Handle(
		"/sales/{id:[0-9]+}/edit",
		web.requireAuthentication(web.handleSaleEdit()),
	)
	r.Handle(
		"/sales/{id:[0-9]+}/delete",
		web.requireAuthentication(web.handleSaleDelete()),
	)

	// Management listing, dashboard and profile.
	r.Handle(
		"/manage",
		web.requireAuthentication(web.handleManage()),
	)
	r.Handle(
		"/dashboard",
		web.requireAuthentication(web.handleDashboard()),
	)
	r.Handle(
		"/profile",
		web.requireAuthentication(web.handleProfile()),
	)

	logging := handlers.LoggingHandler(os.Stdout, web.sessions.LoadAndSave(enforceCSRF(r)))
	return logging
}

// requireAuthentication redirects unauthenticated requests to the login
// page, carrying the originally requested path in the return_to query
// parameter so that login can redirect back.
func (web *WebApp) requireAuthentication(next http.Handler) http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !web.isAuthenticated(r) {
			loginURL := "/login?return_to=" + url.QueryEscape(r.URL.RequestURI())
			http.Redirect(w, r, loginURL, http.StatusSeeOther)
			return
		}
		// Authenticated pages must not end up in shared caches.
		w.Header().Add("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// isAuthenticated reports whether the request has an authenticated session.
func (web *WebApp) isAuthenticated(r *http.Request) bool {
	return web.sessions.Exists(r.Context(), sessionKeyUserID)
}

// currentUserID returns the user id of the authenticated session.
func (web *WebApp) currentUserID(r *http.Request) int64 {
	return int64(web.sessions.GetInt(r.Context(), sessionKeyUserID))
}

// handleRoot deals with http calls to "/" by redirecting to the sales
// listing, or the login page for anonymous visitors.
func (web *WebApp) handleRoot() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if web.isAuthenticated(r) {
			http.Redirect(w, r, "/sales", http.StatusFound)
			return
		}
		http.Redirect(w, r, "/login", http.StatusFound)
	})
}

// handleSignup serves the /signup registration page.
func (web *WebApp) handleSignup() http.Handler {

	name := "signup.html"
	tpls := []string{"base.html", "signup.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &SignupForm{}
		validator := NewValidator()

		data := struct {
			PageTitle   string
			Form        *SignupForm
			Validator   *Validator
			CurrentPage string
		}{
			PageTitle:   "Sign up",
			Form:        form,
			Validator:   validator,
			CurrentPage: "signup",
		}

		if r.Method != "POST" {
			web.render(w, r, templates, name, data)
			return
		}

		if err := DecodePostForm(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		form.Validate(validator)

		if validator.Valid() {
			exists, err := web.db.UsernameExists(ctx, form.Username)
			if err != nil {
				web.ServerError(w, r, err)
				return
			}
			validator.Check(!exists, "username", "This username is already taken.")
		}
		if validator.Valid() {
			inUse, err := web.db.EmailInUse(ctx, form.Email, 0)
			if err != nil {
				web.ServerError(w, r, err)
				return
			}
			validator.Check(!inUse, "email", "This email address is already in use.")
		}
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		_, err = web.db.UserInsert(ctx, db.User{
			Username:     form.Username,
			FirstName:    form.FirstName,
			LastName:     form.LastName,
			Email:        form.Email,
			PasswordHash: string(hash),
		})
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		web.log.Infof("new user %q registered", form.Username)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// handleLogin serves the /login page. A return_to query or form
// parameter carries the path to redirect to after a successful login.
func (web *WebApp) handleLogin() http.Handler {

	name := "login.html"
	tpls := []string{"base.html", "login.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()

		form := &LoginForm{}
		validator := NewValidator()

		data := struct {
			PageTitle   string
			Form        *LoginForm
			Validator   *Validator
			CurrentPage string
		}{
			PageTitle:   "Log in",
			Form:        form,
			Validator:   validator,
			CurrentPage: "login",
		}

		if r.Method != "POST" {
			form.ReturnTo = r.URL.Query().Get("return_to")
			web.render(w, r, templates, name, data)
			return
		}

		if err := DecodePostForm(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		form.Validate(validator)
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}

		user, err := web.db.UserGetByUsername(ctx, form.Username)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			web.ServerError(w, r, err)
			return
		}
		if errors.Is(err, sql.ErrNoRows) ||
			bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(form.Password)) != nil {
			validator.AddError("form", "The username or password is incorrect.")
			web.render(w, r, templates, name, data)
			return
		}

		// Renew the session token on privilege change.
		if err := web.sessions.RenewToken(ctx); err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.sessions.Put(ctx, sessionKeyUserID, int(user.ID))

		http.Redirect(w, r, form.RedirectTarget(), http.StatusSeeOther)
	})
}

// handleLogout logs the user out. Only POST requests are accepted.
func (web *WebApp) handleLogout() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			web.clientError(w, "only POST requests allowed", http.StatusMethodNotAllowed)
			return
		}
		ctx := r.Context()
		if err := web.sessions.RenewToken(ctx); err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.sessions.Remove(ctx, sessionKeyUserID)
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}

// handleSales serves the /sales listing and map page.
func (web *WebApp) handleSales() http.Handler {

	name := "sales.html"
	tpls := []string{"base.html", "partial-salesrows.html", "sales.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		form := NewSearchForm()
		if err := DecodeURLParams(r, form); err != nil {
			web.ServerError(w, r, err)
			return
		}

		// Create a validator and validate the form.
		validator := NewValidator()
		form.Validate(validator)

		// Initialise pagination for default state.
		pagination := NewPagination(pageLen, 1, form.Page, r.URL.Query())

		// Prepare data for the template, allowing passing of validation
		// errors back to the template if necessary.
		data := struct {
			PageTitle   string
			Sales       []viewSale
			Form        *SearchForm
			Validator   *Validator
			Pagination  *Pagination
			MapPoints   template.JS
			MapsKey     string
			CurrentPage string
		}{
			PageTitle:   "Sales",
			Form:        form,
			Validator:   validator,
			Pagination:  pagination,
			MapPoints:   template.JS("[]"),
			MapsKey:     web.cfg.Web.MapsBrowserKey,
			CurrentPage: "sales",
		}

		sales, err := web.querySalesPage(ctx, userID, form)
		if err != nil && err != sql.ErrNoRows {
			web.ServerError(w, r, err)
			return
		}

		// Set valid data from successful database call.
		data.Sales = newViewSales(sales)

		// Set pagination for number of sales. Each sale row carries the
		// search query row count as a field.
		var recordsNo int
		if len(data.Sales) == 0 {
			recordsNo = 1
		} else {
			recordsNo = data.Sales[0].RowCount
		}
		data.Pagination = NewPagination(pageLen, recordsNo, form.Page, r.URL.Query())

		// The map shows every geocoded sale, not just the current page.
		geocoded, err := web.db.SalesWithCoordinates(ctx, userID)
		if err != nil && err != sql.ErrNoRows {
			web.ServerError(w, r, err)
			return
		}
		data.MapPoints, err = asJS(newMapPoints(geocoded))
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		web.render(w, r, templates, name, data)
	})
}

// handleSalesLoadMore serves further listing pages as structured JSON
// rows for incremental loading, leaving markup to the client.
func (web *WebApp) handleSalesLoadMore() http.Handler {

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		form := NewSearchForm()
		if err := DecodeURLParams(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		validator := NewValidator()
		form.Validate(validator)

		sales, err := web.querySales(ctx, userID, form)
		if err != nil && err != sql.ErrNoRows {
			web.ServerError(w, r, err)
			return
		}

		viewSales := newViewSales(sales)
		var recordsNo int
		if len(viewSales) == 0 {
			recordsNo = 1
		} else {
			recordsNo = viewSales[0].RowCount
		}
		pagination := NewPagination(pageLen, recordsNo, form.Page, r.URL.Query())

		payload := struct {
			Sales    []viewSale `json:"sales"`
			Page     int        `json:"page"`
			Pages    int        `json:"pages"`
			HasMore  bool       `json:"hasMore"`
			NextPage int        `json:"nextPage"`
		}{
			Sales:    viewSales,
			Page:     pagination.PageNo,
			Pages:    pagination.Pages,
			HasMore:  pagination.HasMore(),
			NextPage: pagination.Next,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			web.log.Errorf("load-more encoding error: %v", err)
		}
	})
}

// querySales runs the listing query for the supplied search form. A
// free-text search takes precedence over the city and zip filters.
func (web *WebApp) querySales(ctx context.Context, userID int64, form *SearchForm) ([]db.Sale, error) {
	if form.Search != "" {
		return web.db.SalesSearch(ctx, userID, form.Search, pageLen, form.Offset())
	}
	return web.db.SalesList(ctx, userID, form.City, form.ZipCode, pageLen, form.Offset())
}

// querySalesPage runs the listing query, clamping a page number beyond
// the last page to the last page of results rather than returning an
// empty listing. The clamped page is written back to the form so that
// pagination reflects the page actually shown.
func (web *WebApp) querySalesPage(ctx context.Context, userID int64, form *SearchForm) ([]db.Sale, error) {

	sales, err := web.querySales(ctx, userID, form)
	if form.Page == 1 || !errors.Is(err, sql.ErrNoRows) {
		return sales, err
	}

	// The requested page is beyond the results. Find the last page from
	// the first page's row count and requery.
	form.Page = 1
	sales, err = web.querySales(ctx, userID, form)
	if err != nil {
		return sales, err
	}
	lastPage := ((sales[0].RowCount - 1) / pageLen) + 1
	if lastPage == 1 {
		return sales, nil
	}
	form.Page = lastPage
	return web.querySales(ctx, userID, form)
}

// handleSaleNew serves the sale creation form at /sales/new.
func (web *WebApp) handleSaleNew() http.Handler {

	name := "sale_form.html"
	tpls := []string{"base.html", "sale_form.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		form := &SaleForm{}
		validator := NewValidator()

		data := struct {
			PageTitle   string
			Form        *SaleForm
			Validator   *Validator
			CurrentPage string
			Editing     bool
		}{
			PageTitle:   "New sale",
			Form:        form,
			Validator:   validator,
			CurrentPage: "sales-new",
		}

		if r.Method != "POST" {
			form.ReturnTo = r.URL.Query().Get("return_to")
			web.render(w, r, templates, name, data)
			return
		}

		if err := DecodePostForm(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		form.Validate(validator)
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}

		sale, err := web.saleFromForm(ctx, userID, form, validator)
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		id, err := web.db.SaleInsert(ctx, sale)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.log.Infof("sale %d created for user %d", id, userID)
		http.Redirect(w, r, form.RedirectTarget(), http.StatusSeeOther)
	})
}

// handleSaleEdit serves the sale edit form at /sales/<id>/edit.
func (web *WebApp) handleSaleEdit() http.Handler {

	name := "sale_form.html"
	tpls := []string{"base.html", "sale_form.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		id, err := saleIDFromVars(mux.Vars(r))
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// A sale belonging to another user is reported not found.
		sale, err := web.db.SaleGet(ctx, userID, id)
		if errors.Is(err, sql.ErrNoRows) {
			web.notFound(w, r, fmt.Sprintf("Sale %d not found", id))
			return
		}
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		form := saleToForm(sale)
		validator := NewValidator()

		data := struct {
			PageTitle   string
			Form        *SaleForm
			Validator   *Validator
			CurrentPage string
			Editing     bool
			SaleID      int64
		}{
			PageTitle:   fmt.Sprintf("Edit sale %s", sale.JobNumber),
			Form:        form,
			Validator:   validator,
			CurrentPage: "sales",
			Editing:     true,
			SaleID:      sale.ID,
		}

		if r.Method != "POST" {
			form.ReturnTo = r.URL.Query().Get("return_to")
			web.render(w, r, templates, name, data)
			return
		}

		form = &SaleForm{}
		data.Form = form
		if err := DecodePostForm(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		form.Validate(validator)
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}

		updated, err := web.saleFromForm(ctx, userID, form, validator)
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		updated.ID = sale.ID

		err = web.db.SaleUpdate(ctx, updated)
		if errors.Is(err, sql.ErrNoRows) {
			web.notFound(w, r, fmt.Sprintf("Sale %d not found", id))
			return
		}
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		http.Redirect(w, r, form.RedirectTarget(), http.StatusSeeOther)
	})
}

// handleSaleDelete serves the delete confirmation at /sales/<id>/delete,
// removing the record on POST.
func (web *WebApp) handleSaleDelete() http.Handler {

	name := "sale_delete.html"
	tpls := []string{"base.html", "sale_delete.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		id, err := saleIDFromVars(mux.Vars(r))
		if err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}

		if r.Method != "POST" {
			sale, err := web.db.SaleGet(ctx, userID, id)
			if errors.Is(err, sql.ErrNoRows) {
				web.notFound(w, r, fmt.Sprintf("Sale %d not found", id))
				return
			}
			if err != nil {
				web.ServerError(w, r, err)
				return
			}
			data := struct {
				PageTitle   string
				Sale        viewSale
				CurrentPage string
				ReturnTo    string
			}{
				PageTitle:   fmt.Sprintf("Delete sale %s", sale.JobNumber),
				Sale:        newViewSales([]db.Sale{sale})[0],
				CurrentPage: "sales",
				ReturnTo:    r.URL.Query().Get("return_to"),
			}
			web.render(w, r, templates, name, data)
			return
		}

		err = web.db.SaleDelete(ctx, userID, id)
		if errors.Is(err, sql.ErrNoRows) {
			web.notFound(w, r, fmt.Sprintf("Sale %d not found", id))
			return
		}
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		web.log.Infof("sale %d deleted for user %d", id, userID)
		http.Redirect(w, r, saleReturnPath(r.PostFormValue("return_to")), http.StatusSeeOther)
	})
}

// handleManage serves the /manage listing with edit and delete actions.
func (web *WebApp) handleManage() http.Handler {

	name := "manage.html"
	tpls := []string{"base.html", "manage.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		form := NewSearchForm()
		if err := DecodeURLParams(r, form); err != nil {
			web.ServerError(w, r, err)
			return
		}
		validator := NewValidator()
		form.Validate(validator)

		pagination := NewPagination(pageLen, 1, form.Page, r.URL.Query())

		data := struct {
			PageTitle   string
			Sales       []viewSale
			Form        *SearchForm
			Validator   *Validator
			Pagination  *Pagination
			CurrentPage string
		}{
			PageTitle:   "Manage sales",
			Form:        form,
			Validator:   validator,
			Pagination:  pagination,
			CurrentPage: "manage",
		}

		sales, err := web.querySalesPage(ctx, userID, form)
		if err != nil && err != sql.ErrNoRows {
			web.ServerError(w, r, err)
			return
		}
		data.Sales = newViewSales(sales)

		var recordsNo int
		if len(data.Sales) == 0 {
			recordsNo = 1
		} else {
			recordsNo = data.Sales[0].RowCount
		}
		data.Pagination = NewPagination(pageLen, recordsNo, form.Page, r.URL.Query())

		web.render(w, r, templates, name, data)
	})
}

// handleDashboard serves the /dashboard aggregate page.
func (web *WebApp) handleDashboard() http.Handler {

	name := "dashboard.html"
	tpls := []string{"base.html", "dashboard.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		form := &DashboardForm{}
		if err := DecodeURLParams(r, form); err != nil {
			web.ServerError(w, r, err)
			return
		}
		validator := NewValidator()
		form.Validate(validator)

		filter := db.DashboardFilter{
			DateFrom: form.DateFrom,
			DateTo:   form.DateTo,
			City:     form.City,
		}

		years, err := web.db.SaleYears(ctx, userID)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		year := form.Year
		if year == 0 {
			year = time.Now().Year()
		}

		careerTotal, err := web.db.CareerTotal(ctx, userID)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		dateTotals, err := web.db.SalesByDate(ctx, userID, filter)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		monthTotals, err := web.db.SalesByMonth(ctx, userID, year, filter)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		cityTotals, err := web.db.SalesByCity(ctx, userID, filter)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		dateJS, err := asJS(newDateSeries(dateTotals))
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		monthJS, err := asJS(newMonthSeries(monthTotals))
		if err != nil {
			web.ServerError(w, r, err)
			return
		}
		cityJS, err := asJS(newCitySeries(cityTotals))
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		data := struct {
			PageTitle   string
			Form        *DashboardForm
			Validator   *Validator
			CareerTotal float64
			Years       []int
			Year        int
			DateSeries  template.JS
			MonthSeries template.JS
			CitySeries  template.JS
			CurrentPage string
		}{
			PageTitle:   "Dashboard",
			Form:        form,
			Validator:   validator,
			CareerTotal: careerTotal,
			Years:       years,
			Year:        year,
			DateSeries:  dateJS,
			MonthSeries: monthJS,
			CitySeries:  cityJS,
			CurrentPage: "dashboard",
		}

		web.render(w, r, templates, name, data)
	})
}

// handleProfile serves the /profile account edit page.
func (web *WebApp) handleProfile() http.Handler {

	name := "profile.html"
	tpls := []string{"base.html", "profile.html"}
	templates := template.Must(template.ParseFS(web.templateFS, tpls...))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		ctx := r.Context()
		userID := web.currentUserID(r)

		user, err := web.db.UserGet(ctx, userID)
		if err != nil {
			web.ServerError(w, r, err)
			return
		}

		form := &ProfileForm{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		}
		validator := NewValidator()

		data := struct {
			PageTitle   string
			Username    string
			Form        *ProfileForm
			Validator   *Validator
			CurrentPage string
			Updated     bool
		}{
			PageTitle:   "Profile",
			Username:    user.Username,
			Form:        form,
			Validator:   validator,
			CurrentPage: "profile",
		}

		if r.Method != "POST" {
			web.render(w, r, templates, name, data)
			return
		}

		form = &ProfileForm{}
		data.Form = form
		if err := DecodePostForm(r, form); err != nil {
			web.clientError(w, err.Error(), http.StatusBadRequest)
			return
		}
		form.Validate(validator)

		if validator.Valid() && form.Email != user.Email {
			inUse, err := web.db.EmailInUse(ctx, form.Email, user.ID)
			if err != nil {
				web.ServerError(w, r, err)
				return
			}
			validator.Check(!inUse, "email", "This email address is already in use.")
		}
		if !validator.Valid() {
			web.render(w, r, templates, name, data)
			return
		}

		user.FirstName = form.FirstName
		user.LastName = form.LastName
		user.Email = form.Email
		if form.Password != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(form.Password), bcrypt.DefaultCost)
			if err != nil {
				web.ServerError(w, r, err)
				return
			}
			user.PasswordHash = string(hash)
		}

		if err := web.db.UserUpdate(ctx, user); err != nil {
			web.ServerError(w, r, err)
			return
		}

		data.Updated = true
		web.render(w, r, templates, name, data)
	})
}

/* -------------------------------------------------------------------------- */
// Helpers
/* -------------------------------------------------------------------------- */

// saleFromForm builds a db.Sale from a validated form, resolving the
// address to components and coordinates. Geocoding failures are
// recorded against the address field on the validator.
func (web *WebApp) saleFromForm(ctx context.Context, userID int64, form *SaleForm, validator *Validator) (db.Sale, error) {

	resolved, err := web.resolver.Resolve(ctx, form.Address, form.Latitude, form.Longitude)
	if err != nil {
		if errors.Is(err, geocode.ErrNoMatch) {
			validator.AddError("address", "The address could not be found. Check it and try again.")
			return db.Sale{}, nil
		}
		if errors.Is(err, geocode.ErrTimeout) {
			validator.AddError("address", "Address lookup timed out. Try again shortly.")
			return db.Sale{}, nil
		}
		return db.Sale{}, err
	}

	return db.Sale{
		UserID:          userID,
		JobNumber:       form.JobNumber,
		Name:            form.Name,
		Street:          resolved.Street,
		City:            resolved.City,
		State:           resolved.State,
		ZipCode:         resolved.ZipCode,
		SaleDate:        form.SaleDate,
		ProductsSold:    form.ProductsSold,
		Amount:          form.Amount,
		Notes:           form.Notes,
		Commission:      form.Commission,
		Latitude:        resolved.Latitude,
		Longitude:       resolved.Longitude,
		PhoneNumber:     form.PhonePtr(),
		SaleAmountSplit: form.Split,
	}, nil
}

// saleToForm populates a SaleForm from a stored sale for the edit page.
func saleToForm(s db.Sale) *SaleForm {
	form := &SaleForm{
		JobNumber:    s.JobNumber,
		Name:         s.Name,
		Address:      addressLine(s),
		ProductsSold: s.ProductsSold,
		SaleDateStr:  s.SaleDate.Format("2006-01-02"),
		AmountStr:    fmt.Sprintf("%.2f", s.Amount),
		SplitStr:     fmt.Sprintf("%d", s.SaleAmountSplit),
		Notes:        s.Notes,
	}
	if s.Commission != nil {
		form.CommissionStr = fmt.Sprintf("%.2f", *s.Commission)
	}
	if s.PhoneNumber != nil {
		form.PhoneNumber = *s.PhoneNumber
	}
	if s.Latitude != nil && s.Longitude != nil {
		form.LatitudeStr = fmt.Sprintf("%f", *s.Latitude)
		form.LongitudeStr = fmt.Sprintf("%f", *s.Longitude)
	}
	return form
}

// addressLine reassembles the address components into a single line for
// the edit form.
func addressLine(s db.Sale) string {
	line := s.Street
	if s.City != "" {
		line += ", " + s.City
	}
	if s.State != "" || s.ZipCode != "" {
		line += ", " + strings.TrimSpace(s.State+" "+s.ZipCode)
	}
	return line
}

// render renders the specified template.
func (web *WebApp) render(w http.ResponseWriter, r *http.Request, template *template.Template, filename string, data any) {
	buf := new(bytes.Buffer)
	err := template.ExecuteTemplate(buf, filename, data)
	if err != nil {
		web.log.Errorf("template %q rendering error %v", filename, err)
		web.ServerError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// ServerError logs and return an internal server error. The error should contain the
// information needed for logging.
func (web *WebApp) ServerError(w http.ResponseWriter, r *http.Request, errs ...error) {
	err := errors.Join(errs...)
	web.log.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// clientError returns a client error.
func (web *WebApp) clientError(w http.ResponseWriter, message string, status int) {
	if message == "" {
		message = http.StatusText(status)
	}
	http.Error(w, message, status)
}

// notFound raises a 404 clientError.
func (web *WebApp) notFound(w http.ResponseWriter, r *http.Request, message string) {
	web.clientError(w, message, http.StatusNotFound)
}
