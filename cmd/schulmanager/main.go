package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iudanet/schulmanager/internal/client/api"
	"github.com/iudanet/schulmanager/internal/client/bundle"
	"github.com/iudanet/schulmanager/internal/client/cli"
	"github.com/iudanet/schulmanager/internal/client/storage/boltdb"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", api.DefaultBaseURL, "Portal base URL")
	dbPath := flag.String("db", "schulmanager-client.db", "Path to local database")
	email := flag.String("email", "", "Account email or username")
	password := flag.String("password", "", "Account password (prefer "+cli.PasswordEnvVar+" or the prompt)")
	weeks := flag.Int("weeks", 2, "Weeks of schedule to fetch ahead")
	interval := flag.Duration("interval", 15*time.Minute, "Poll interval for watch")
	bundleVersion := flag.String("bundle-version", "", "Pin the portal bundle version instead of detecting it")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	var bundles bundle.Provider
	if *bundleVersion != "" {
		bundles = bundle.Static(*bundleVersion)
	} else {
		bundles = bundle.NewDetector(*serverURL, bundle.FallbackVersion)
	}

	app := cli.New(api.NewClient(*serverURL), bundles, store, cli.Options{
		Email:      *email,
		Password:   *password,
		WeeksAhead: *weeks,
		Interval:   *interval,
	})

	switch command {
	case "login":
		exitOnError(app.RunLogin(ctx))
	case "subjects":
		exitOnError(app.RunSubjects(ctx))
	case "poll":
		exitOnError(app.RunPoll(ctx))
	case "watch":
		exitOnError(app.RunWatch(ctx))
	case "logout":
		exitOnError(app.RunLogout(ctx))
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintUsage()
		os.Exit(1)
	}
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Schulmanager Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
