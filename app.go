package main

// app.go wires the configuration, database, geocoder and web server
// together behind the Applicator interface consumed by the CLI.

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"salestracker/address"
	"salestracker/config"
	"salestracker/db"
	"salestracker/geocode"
	"salestracker/internal/mounts"
	"salestracker/web"
)

// App is the concrete Applicator used by main.
type App struct{}

// newLoggers builds the application logger and an slog facade over it
// for the packages that take *slog.Logger.
func newLoggers() (*log.Logger, *slog.Logger) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	return logger, slog.New(logger)
}

// openDatabase connects to the configured database, loads the schema and
// prepares the statements.
func openDatabase(cfg *config.Config, slogger *slog.Logger) (*db.DB, error) {
	thisDB, err := db.NewConnection(cfg.DatabasePath, db.SQLEmbeddedFS, slogger)
	if err != nil {
		return nil, fmt.Errorf("database setup error: %w", err)
	}
	if err := thisDB.InitSchema("schema.sql"); err != nil {
		_ = thisDB.Close()
		return nil, fmt.Errorf("database schema error: %w", err)
	}
	if err := thisDB.PrepareStatements(); err != nil {
		_ = thisDB.Close()
		return nil, fmt.Errorf("database statement error: %w", err)
	}
	return thisDB, nil
}

// Serve runs the web server until it exits.
func (a *App) Serve(ctx context.Context, cfgPath string) error {

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger, slogger := newLoggers()

	thisDB, err := openDatabase(cfg, slogger)
	if err != nil {
		return err
	}
	defer func() {
		_ = thisDB.Close()
	}()

	staticFS, err := mounts.New("static", web.StaticEmbeddedFS, cfg.Web.StaticPath)
	if err != nil {
		return fmt.Errorf("static file mount error: %w", err)
	}
	templatesFS, err := mounts.New("templates", web.TemplatesEmbeddedFS, cfg.Web.TemplatesPath)
	if err != nil {
		return fmt.Errorf("templates file mount error: %w", err)
	}

	geocoder := geocode.NewClient(cfg, slogger)
	resolver := address.NewResolver(geocoder, slogger)

	webApp, err := web.New(logger, cfg, thisDB, resolver, staticFS, templatesFS)
	if err != nil {
		return err
	}

	if !cfg.Web.DevelopmentMode {
		return webApp.StartServer()
	}

	// Development mode reloads the handler pipeline, and so the
	// templates, when a watched file changes.
	notifier, err := NewFileChangeNotifier([]WatchSpec{
		{Dir: cfg.Web.TemplatesPath, Suffixes: []string{"html"}},
		{Dir: cfg.Web.StaticPath, Suffixes: []string{"css", "js"}},
	})
	if err != nil {
		return fmt.Errorf("file watcher error: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return notifier.Watch(ctx)
	})
	g.Go(func() error {
		for range notifier.Update() {
			logger.Info("web assets changed, reloading handlers")
			webApp.ReloadRoutes()
		}
		return nil
	})
	g.Go(webApp.StartServer)
	return g.Wait()
}

// AddUser registers a user account from the command line.
func (a *App) AddUser(ctx context.Context, cfgPath, username, firstName, lastName, email, password string) error {

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger, slogger := newLoggers()

	if username == "" || email == "" {
		return fmt.Errorf("a username and email must be provided")
	}
	if len(password) < 8 {
		return fmt.Errorf("the password must be at least 8 characters long")
	}

	thisDB, err := openDatabase(cfg, slogger)
	if err != nil {
		return err
	}
	defer func() {
		_ = thisDB.Close()
	}()

	exists, err := thisDB.UsernameExists(ctx, username)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("username %q is already taken", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	id, err := thisDB.UserInsert(ctx, db.User{
		Username:     username,
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return err
	}
	logger.Infof("created user %q with id %d", username, id)
	return nil
}

// InitDB creates the database file and schema without starting the
// server.
func (a *App) InitDB(ctx context.Context, cfgPath string) error {

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	logger, slogger := newLoggers()

	thisDB, err := openDatabase(cfg, slogger)
	if err != nil {
		return err
	}
	defer func() {
		_ = thisDB.Close()
	}()

	logger.Infof("database initialised at %s", cfg.DatabasePath)
	return nil
}
