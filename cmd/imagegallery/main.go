package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"imagegallery/internal/cache"
	"imagegallery/internal/client"
	"imagegallery/internal/config"
	"imagegallery/internal/logging"
	"imagegallery/internal/metrics"
	"imagegallery/internal/server"
	"imagegallery/internal/state"
	"imagegallery/internal/thumbs"
	"imagegallery/internal/tui"
)

var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		usage()
		return errors.New("no command provided")
	}

	cmd := args[0]
	switch cmd {
	case "serve":
		return handleServe(ctx, args[1:])
	case "tui":
		return handleTUI(ctx, args[1:])
	case "folders":
		return handleFolders(ctx, args[1:])
	case "config":
		return handleConfig(args[1:])
	case "version":
		fmt.Println(version)
		return nil
	case "help", "-h", "--help":
		usage()
		return nil
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Println(strings.TrimSpace(`imagegallery - image gallery server and terminal browser

Usage:
  imagegallery <command> [flags]

Commands:
  serve             Run the gallery API server
  tui               Open the interactive gallery browser
  folders list      List registered source folders
  folders add       Register a source folder (--path, --name)
  folders remove    Unregister a source folder (--path)
  config validate   Validate a YAML config file
  config print      Print the loaded config as JSON
  version           Print version
  help              Show this help

Flags:
  --config PATH     Path to YAML config file (or IMAGEGALLERY_CONFIG env var; default: ~/.config/imagegallery/config.yml)
  --log-level L     Log level: debug|info|warn|error (per command)
  --json            JSON log output (per command)
`))
}

func defaultConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("IMAGEGALLERY_CONFIG"); env != "" {
		return env
	}
	if h, err := os.UserHomeDir(); err == nil && h != "" {
		return filepath.Join(h, ".config", "imagegallery", "config.yml")
	}
	return ""
}

func loadConfig(path, level string, jsonOut bool) (*config.Config, *logging.Logger, error) {
	path = defaultConfigPath(path)
	if _, err := os.Stat(path); err != nil {
		return nil, nil, fmt.Errorf("config file not found: %s", path)
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if level == "" {
		level = c.Logging.Level
	}
	if !jsonOut {
		jsonOut = strings.EqualFold(c.Logging.Format, "json")
	}
	return c, logging.New(level, jsonOut), nil
}

func handleServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file")
	logLevel := fs.String("log-level", "", "log level")
	jsonOut := fs.Bool("json", false, "json logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := loadConfig(*cfgPath, *logLevel, *jsonOut)
	if err != nil {
		return err
	}

	if err := config.EnsureDir(cfg.General.InputRoot, 0o755); err != nil {
		return err
	}
	db, err := state.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	gen, err := thumbs.New(filepath.Join(cfg.General.DataRoot, "thumbs"), cfg.Thumbnails.MaxSize, cfg.Thumbnails.Quality)
	if err != nil {
		return err
	}
	c := cache.New(
		time.Duration(cfg.Cache.ListingTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.MetadataTTLSeconds)*time.Second,
	)
	m := metrics.New(cfg)

	return server.New(cfg, log, db, c, gen, m).Run(ctx)
}

func handleTUI(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file")
	logLevel := fs.String("log-level", "error", "log level")
	jsonOut := fs.Bool("json", false, "json logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, log, err := loadConfig(*cfgPath, *logLevel, *jsonOut)
	if err != nil {
		return err
	}

	cl := client.New(cfg, log)
	p := tea.NewProgram(tui.New(cfg, cl, log), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	return err
}

func handleFolders(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("folders subcommand required: list | add | remove")
	}
	sub := args[0]
	fs := flag.NewFlagSet("folders "+sub, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file")
	path := fs.String("path", "", "folder path")
	name := fs.String("name", "", "display name")
	jsonOut := fs.Bool("json", false, "json output")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cfg, _, err := loadConfig(*cfgPath, "error", false)
	if err != nil {
		return err
	}
	db, err := state.Open(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	switch sub {
	case "list":
		folders, err := db.Folders()
		if err != nil {
			return err
		}
		if *jsonOut {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(folders)
		}
		for _, f := range folders {
			suffix := ""
			if f.IsDefault {
				suffix = " (default)"
			}
			fmt.Printf("%-20s %s%s\n", f.Name, f.Path, suffix)
		}
		return nil
	case "add":
		if *path == "" {
			return errors.New("--path is required")
		}
		return db.AddFolder(*path, *name)
	case "remove":
		if *path == "" {
			return errors.New("--path is required")
		}
		return db.RemoveFolder(*path)
	default:
		return fmt.Errorf("unknown folders subcommand: %s", sub)
	}
}

func handleConfig(args []string) error {
	if len(args) == 0 {
		return errors.New("config subcommand required: validate | print")
	}
	sub := args[0]
	fs := flag.NewFlagSet("config "+sub, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "Path to YAML config file")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	cfg, log, err := loadConfig(*cfgPath, "info", false)
	if err != nil {
		return err
	}
	switch sub {
	case "validate":
		log.Infof("config: valid")
		return nil
	case "print":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	default:
		return fmt.Errorf("unknown config subcommand: %s", sub)
	}
}
