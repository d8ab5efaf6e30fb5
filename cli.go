package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// Applicator defines the interface for the core application logic.
// This allows the CLI to be tested independently of the main app implementation.
type Applicator interface {
	Serve(ctx context.Context, cfgPath string) error
	AddUser(ctx context.Context, cfgPath, username, firstName, lastName, email, password string) error
	InitDB(ctx context.Context, cfgPath string) error
}

// BuildCLI creates the full CLI command structure for the application.
// It injects the core application logic (the Applicator) into the command actions.
func BuildCLI(app Applicator) *cli.Command {
	// Define flags that are common across multiple commands.
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Value:   "config.yaml",
		Usage:   "path to the configuration file",
	}

	serveCmd := &cli.Command{
		Name:  "serve",
		Usage: "Start the web server",
		Flags: []cli.Flag{configFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			return app.Serve(ctx, c.String("config"))
		},
	}

	addUserCmd := &cli.Command{
		Name:  "adduser",
		Usage: "Register a new user account",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "the account username", Required: true},
			&cli.StringFlag{Name: "first", Usage: "the user's first name"},
			&cli.StringFlag{Name: "last", Usage: "the user's last name"},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "the account email address", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "the account password", Required: true},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return app.AddUser(
				ctx,
				c.String("config"),
				c.String("username"),
				c.String("first"),
				c.String("last"),
				c.String("email"),
				c.String("password"),
			)
		},
	}

	initDBCmd := &cli.Command{
		Name:  "initdb",
		Usage: "Create the database file and schema",
		Flags: []cli.Flag{configFlag},
		Action: func(ctx context.Context, c *cli.Command) error {
			return app.InitDB(ctx, c.String("config"))
		},
	}

	// Assemble the root command.
	rootCmd := &cli.Command{
		Name:     "salestracker",
		Usage:    "A multi-user web application for tracking sales",
		Commands: []*cli.Command{serveCmd, addUserCmd, initDBCmd},
	}

	return rootCmd
}
