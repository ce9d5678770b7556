package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"repodash/auth"
	"repodash/config"
	"repodash/db"
	"repodash/github"
	"repodash/logger"
	"repodash/models"
	"repodash/service"
)

// version injected at build time
var version = "dev"

// app is what every command needs, built from the config file.
type app struct {
	cfg    *config.Config
	creds  *auth.Coordinator
	engine *service.Engine
	store  *db.DB
}

func newApp(c *cli.Context) (*app, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("verbose") {
		cfg.LogLevel = "debug"
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogEncoding); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	creds := auth.NewCoordinator(auth.Options{
		Host:         cfg.Host,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		StaticToken:  cfg.Token,
		TokenFile:    cfg.TokenFile,
	})
	if err := creds.LoadTokens(); err != nil {
		logger.Warn("Ignoring stored credential", zap.Error(err))
	}

	client, err := github.NewClient(cfg.Host, creds)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, creds: creds}
	var cache service.SnapshotStore
	if cfg.DatabaseDSN != "" {
		store, err := db.New(c.Context, cfg.DatabaseDSN, db.PoolOptions{})
		if err != nil {
			logger.Warn("Snapshot cache disabled", zap.Error(err))
		} else {
			a.store = store
			cache = store
		}
	}

	a.engine = service.NewEngine(client, creds, cfg.Settings, cache, service.LoginOptions{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
	})
	return a, nil
}

func (a *app) Close() {
	a.engine.Stop()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warn("Error closing database", zap.Error(err))
		}
	}
	logger.Sync()
}

// withApp wraps a command action with app setup and teardown.
func withApp(action func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := newApp(c)
		if err != nil {
			return err
		}
		defer a.Close()
		return action(c, a)
	}
}

func fullNameArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit("expected exactly one owner/name argument", 2)
	}
	fullName := c.Args().First()
	if _, _, ok := models.SplitFullName(fullName); !ok {
		return "", cli.Exit(fmt.Sprintf("%q is not an owner/name pair", fullName), 2)
	}
	return fullName, nil
}

func runDashboard(c *cli.Context, a *app) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !a.creds.HasCredential() {
		color.Yellow("Not signed in. Run `repodash login` or set REPODASH_TOKEN.")
	}

	states, unsubscribe := a.engine.Session().Subscribe()
	defer unsubscribe()
	a.engine.Start(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Shutdown signal received, stopping dashboard")
			return nil
		case state := <-states:
			if state.IsRefreshing {
				continue
			}
			renderState(os.Stdout, state, a.cfg.Settings.Snapshot())
		}
	}
}

func runOnce(c *cli.Context, a *app) error {
	err := a.engine.Refresh(c.Context)
	renderState(os.Stdout, a.engine.Session().Snapshot(), a.cfg.Settings.Snapshot())
	return err
}

func runLogin(c *cli.Context, a *app) error {
	err := a.engine.Login(c.Context, func(da *oauth2.DeviceAuthResponse) {
		fmt.Printf("Open %s and enter the code ", da.VerificationURI)
		color.New(color.Bold, color.FgGreen).Println(da.UserCode)
	})
	if err != nil {
		return err
	}
	a.engine.Wait()
	state := a.engine.Session().Snapshot()
	if u := state.Account.User(); u != nil {
		color.Green("✓ Signed in as %s", u.Login)
	}
	return nil
}

func runLogout(c *cli.Context, a *app) error {
	if err := a.engine.Logout(c.Context); err != nil {
		return err
	}
	color.Green("✓ Signed out")
	return nil
}

func runDetail(c *cli.Context, a *app) error {
	fullName, err := fullNameArg(c)
	if err != nil {
		return err
	}
	agg, err := a.engine.Detail(fullName)
	if err != nil {
		return err
	}
	agg.Load(c.Context)
	renderDetail(os.Stdout, agg.Detail())
	return nil
}

func runSearch(c *cli.Context, a *app) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return cli.Exit("expected a search query", 2)
	}
	repos, err := a.engine.SearchRepositories(c.Context, query)
	if err != nil {
		return err
	}
	renderRepositories(os.Stdout, repos, nil)
	return nil
}

func runRecent(c *cli.Context, a *app) error {
	repos, err := a.engine.RecentRepositories(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}
	renderRepositories(os.Stdout, repos, nil)
	return nil
}

// settingsCommand builds a pin/unpin/hide/unhide command.
func settingsCommand(name, usage string, mutate func(*service.Engine, string) error) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<owner/name>",
		Action: withApp(func(c *cli.Context, a *app) error {
			fullName, err := fullNameArg(c)
			if err != nil {
				return err
			}
			if err := mutate(a.engine, fullName); err != nil {
				return err
			}
			color.Green("✓ %s %s", name, fullName)
			return nil
		}),
	}
}

func main() {
	// Configure logger to only show the message
	log.SetFlags(0)

	cliApp := &cli.App{
		Name:    "repodash",
		Usage:   "Live dashboard of your GitHub repositories and activity",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the config file",
				Value:   config.DefaultPath(),
				EnvVars: []string{"REPODASH_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Action: withApp(runDashboard),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Show the live dashboard (default)",
				Action: withApp(runDashboard),
			},
			{
				Name:   "once",
				Usage:  "Refresh once and print the dashboard",
				Action: withApp(runOnce),
			},
			{
				Name:   "login",
				Usage:  "Sign in with the device flow",
				Action: withApp(runLogin),
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored credential and cached data",
				Action: withApp(runLogout),
			},
			{
				Name:      "detail",
				Usage:     "Show pull requests, issues, releases and more of a repository",
				ArgsUsage: "<owner/name>",
				Action:    withApp(runDetail),
			},
			{
				Name:      "search",
				Usage:     "Search repositories",
				ArgsUsage: "<query>",
				Action:    withApp(runSearch),
			},
			{
				Name:  "recent",
				Usage: "List the repositories you pushed to last",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 10, Usage: "Number of repositories"},
				},
				Action: withApp(runRecent),
			},
			settingsCommand("pin", "Always show a repository", (*service.Engine).AddPinned),
			settingsCommand("unpin", "Stop pinning a repository", (*service.Engine).RemovePinned),
			settingsCommand("hide", "Never show a repository", (*service.Engine).Hide),
			settingsCommand("unhide", "Show a hidden repository again", (*service.Engine).Unhide),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(130)
		}
		log.Fatal(err)
	}
}
