package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard/config"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "guardd",
		Usage: "Serve the scheduling application behind route guards.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "guardd.yml", Usage: "YAML config file", EnvVars: []string{"GUARD_CONFIG"}},
			&cli.StringSliceFlag{Name: "env-file", Usage: "dotenv files loaded before the environment"},
			&cli.StringFlag{Name: "log-level", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
		},
		Commands: []*cli.Command{
			serveCommand(),
			userCommand(),
			sessionsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("guardd failed", "error", err)
		os.Exit(1)
	}
}

func bootstrap(c *cli.Context) (*App, error) {
	cfg, err := config.Load(c.String("config"), c.StringSlice("env-file")...)
	if err != nil {
		return nil, err
	}

	level := c.String("log-level")
	if cfg.Server.Debug {
		level = "debug"
	}
	logger := setupLogger(level)
	logger.Debug("configuration loaded", "config", config.Dump(cfg))

	return newApp(c.Context, cfg, logger)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP server.",
		Action: func(c *cli.Context) error {
			a, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer a.Close()

			shutdownTracing, err := setupTracing(c.Context, a.config.Server.TracingEndpoint)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTracing(ctx); err != nil {
					a.logger.Error("tracing shutdown failed", "error", err)
				}
			}()

			if a.sessions != nil {
				stop, err := a.sessions.StartSweeper(a.config.Session.SweepSchedule)
				if err != nil {
					return err
				}
				defer stop()
			}

			ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			srv := a.Server()
			errc := make(chan error, 1)
			go func() {
				a.logger.Info("listening", "address", a.config.Server.Address, "provider", a.config.Guard.Provider)
				errc <- srv.Listen(a.config.Server.Address)
			}()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			return srv.ShutdownWithTimeout(10 * time.Second)
		},
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts of the first party identity service.",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create an account.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "role", Value: "supervisor"},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"GUARD_USER_PASSWORD"}},
				},
				Action: func(c *cli.Context) error {
					a, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer a.Close()

					if a.sessions == nil {
						return errNoSessions
					}

					user, err := a.sessions.Register(c.Context, c.String("username"), c.String("email"), c.String("role"), c.String("password"))
					if err != nil {
						return err
					}

					fmt.Fprintf(c.App.Writer, "created user %s (%s)\n", user.Username, user.ID)
					return nil
				},
			},
		},
	}
}

func sessionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "sessions",
		Usage: "Maintain sessions of the first party identity service.",
		Subcommands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Delete expired and revoked sessions.",
				Action: func(c *cli.Context) error {
					a, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer a.Close()

					if a.sessions == nil {
						return errNoSessions
					}

					n, err := a.sessions.Sweep(c.Context)
					if err != nil {
						return err
					}

					fmt.Fprintf(c.App.Writer, "deleted %d sessions\n", n)
					return nil
				},
			},
			{
				Name:      "revoke",
				Usage:     "Sign a user out everywhere.",
				ArgsUsage: "<user-id>",
				Action: func(c *cli.Context) error {
					a, err := bootstrap(c)
					if err != nil {
						return err
					}
					defer a.Close()

					if a.sessions == nil {
						return errNoSessions
					}

					n, err := a.sessions.LogoutAll(c.Context, c.Args().First())
					if err != nil {
						return err
					}

					fmt.Fprintf(c.App.Writer, "revoked %d sessions\n", n)
					return nil
				},
			},
		},
	}
}

var errNoSessions = errors.New("command requires guard.provider=session", errors.CategoryBadInput).
	WithCode(errors.CodeBadRequest)
