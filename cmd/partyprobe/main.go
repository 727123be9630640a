// Package main runs partyprobe: a host and several client agents play the
// target party game in real browsers and every UI anomaly they meet is
// collected into one report.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/entrhq/partyprobe/pkg/browser"
	"github.com/entrhq/partyprobe/pkg/config"
	"github.com/entrhq/partyprobe/pkg/logging"
	"github.com/entrhq/partyprobe/pkg/orchestrator"
	"github.com/entrhq/partyprobe/pkg/poll"
	"github.com/entrhq/partyprobe/pkg/report"
	"github.com/entrhq/partyprobe/pkg/store"
)

const version = "0.1.0"

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigFile  string
	EnvFile     string
	ShowVersion bool
	History     int
	ShowRun     string
}

func main() {
	cli := parseFlags()

	if cli.ShowVersion {
		fmt.Printf("partyprobe v%s\n", version)
		return
	}

	// Load .env file
	if err := godotenv.Load(cli.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Ignoring %s: %v", cli.EnvFile, err)
	}

	if cli.History > 0 || cli.ShowRun != "" {
		if err := history(cli); err != nil {
			log.Printf("partyprobe: %v", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cli); err != nil {
		stop()
		log.Printf("partyprobe failed: %v", err)
		os.Exit(1)
	}
}

// parseFlags parses command line flags
func parseFlags() *CLIConfig {
	cli := &CLIConfig{}

	flag.StringVar(&cli.ConfigFile, "config", "", "Path to configuration file (YAML or TOML)")
	flag.StringVar(&cli.EnvFile, "env-file", ".env", "Environment file loaded before the configuration")
	flag.BoolVar(&cli.ShowVersion, "version", false, "Show version and exit")
	flag.IntVar(&cli.History, "history", 0, "List the N most recent archived runs and exit")
	flag.StringVar(&cli.ShowRun, "show", "", "Print the archived report of a run ID and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "partyprobe - multi-agent exploratory tester for browser party games\n\n")
		fmt.Fprintf(os.Stderr, "Usage: partyprobe [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Run against the default local server\n")
		fmt.Fprintf(os.Stderr, "  partyprobe\n\n")
		fmt.Fprintf(os.Stderr, "  # Run headless with three clients\n")
		fmt.Fprintf(os.Stderr, "  PARTYPROBE_HEADLESS=true PARTYPROBE_CLIENTS=3 partyprobe -config partyprobe.yaml\n\n")
		fmt.Fprintf(os.Stderr, "  # Review the last 10 archived runs, then one of them in full\n")
		fmt.Fprintf(os.Stderr, "  partyprobe -config partyprobe.yaml -history 10\n")
		fmt.Fprintf(os.Stderr, "  partyprobe -config partyprobe.yaml -show <run-id>\n\n")
	}

	flag.Parse()
	return cli
}

func run(ctx context.Context, cli *CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}

	runID := logging.NewRunID()
	console := logging.NewConsole(logging.ParseLogLevel(cfg.Logging.Verbosity), os.Stdout, cfg.Logging.Color)
	if cfg.Logging.File {
		fileLog, logErr := logging.Open(cfg.Logging.Dir, runID, "partyprobe")
		if logErr != nil {
			console.Warningf("file logging disabled: %v", logErr)
		} else {
			defer fileLog.Close()
			console.Mirror(fileLog)
			console.Verbosef("debug log: %s", fileLog.Path())
		}
	}

	console.Header(fmt.Sprintf("partyprobe v%s", version))
	console.Infof("target: %s", cfg.TargetURL)
	console.Infof("agents: 1 host + %d clients, %d rounds", cfg.Clients, cfg.Rounds)
	if cfg.ConfigFilePath != "" {
		console.Verbosef("config: %s", cfg.ConfigFilePath)
	}

	manager := browser.NewSessionManager(cfg.SessionOptions())
	manager.SetMaxSessions(cfg.Clients + 1)
	if err := manager.Initialize(); err != nil {
		return fmt.Errorf("failed to start browser driver: %w", err)
	}

	orch := orchestrator.New(cfg, manager,
		orchestrator.WithClock(poll.RealClock{}),
		orchestrator.WithConsole(console),
		orchestrator.WithRunID(runID),
		orchestrator.WithSeed(time.Now().UnixNano()),
	)
	rep, runErr := orch.Run(ctx)
	if runErr != nil {
		console.Warningf("run interrupted: %v", runErr)
	}

	if err := report.Print(os.Stdout, rep, cfg.Logging.Color); err != nil {
		console.Warningf("failed to print report: %v", err)
	}
	publish(cfg, rep, console)

	if cfg.Browser.KeepOpen && runErr == nil {
		console.Infof("browsers left open for inspection, press Ctrl+C to exit")
		<-ctx.Done()
	}

	if err := manager.Shutdown(); err != nil {
		console.Warningf("browser shutdown: %v", err)
	}
	return nil
}

// history serves -history and -show from the configured archive.
func history(cli *CLIConfig) error {
	cfg, err := config.Load(cli.ConfigFile)
	if err != nil {
		return err
	}
	return showHistory(os.Stdout, cfg.Archive.Path, cli.History, cli.ShowRun, cfg.Logging.Color)
}

// publish writes report artifacts and archives the run. Failures only warn;
// the console report has already been printed.
func publish(cfg *config.Config, rep *report.Report, console *logging.Console) {
	paths, err := report.NewArtifactWriter(cfg.Artifacts.Dir).WriteAll(rep, cfg.Artifacts.JSON, cfg.Artifacts.Markdown)
	if err != nil {
		console.Warningf("failed to write artifacts: %v", err)
	}
	for _, p := range paths {
		console.Infof("wrote %s", p)
	}

	if cfg.Archive.Path == "" {
		return
	}
	archive, err := store.New(cfg.Archive.Path)
	if err != nil {
		console.Warningf("failed to open archive: %v", err)
		return
	}
	defer archive.Close()

	if err := archive.SaveReport(rep); err != nil {
		console.Warningf("failed to archive run: %v", err)
		return
	}
	if counts, err := archive.KindCounts(10); err == nil && len(counts) > 0 {
		console.Verbosef("issue kinds over the last 10 runs: %s", formatKindCounts(counts))
	}
	console.Infof("archived run %s to %s", rep.RunID, cfg.Archive.Path)
}
