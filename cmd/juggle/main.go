package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"juggle/internal/config"
	appLog "juggle/internal/log"
	"juggle/internal/store"
)

const version = "0.1.0"

// flagConfig holds global CLI flag values.
type flagConfig struct {
	configPath string
	listen     string
	dataFile   string
}

func main() {
	// A missing .env is fine; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Warn("failed to read .env", "err", err)
	}

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			appLog.Error("failed to load config", err, "config_path", flags.configPath)
			os.Exit(1)
		}
		// Defaults are usable even if the first-run write failed.
		appLog.Warn("could not write default config", "config_path", flags.configPath, "err", err)
	}

	// CLI flags win over file and env.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.dataFile != "" {
		conf.DataFile = flags.dataFile
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))

	appLog.Debug("effective config",
		"version", version,
		"config_path", flags.configPath,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"data_file", conf.DataFile,
		"agenda_days", conf.AgendaDays,
		"feed_enabled", conf.Feed.Enabled(),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st := store.Open(conf.DataFile)

	args := flag.Args()
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		err = runServe(ctx, conf, st)
	case "list":
		err = runList(os.Stdout, conf, st, args)
	case "export":
		err = runExport(os.Stdout, st, args)
	case "import":
		err = runImport(ctx, os.Stdout, st, args)
	case "version":
		fmt.Println("juggle", version)
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		appLog.Error("command failed", err, "cmd", cmd)
		os.Exit(1)
	}
}

func parseFlags() flagConfig {
	var cfg flagConfig

	defConfig := os.Getenv(config.EnvConfigPath)
	if defConfig == "" {
		defConfig = config.DefaultPath()
	}

	flag.StringVar(&cfg.configPath, "config", defConfig, "Path to config file (env "+config.EnvConfigPath+")")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.dataFile, "data", "", "Event data file (overrides config if set)")
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage: juggle [flags] [serve|list|export|import|version]\n\n")
		fmt.Fprintf(out, "  serve             run the HTTP API (default)\n")
		fmt.Fprintf(out, "  list [-q text]    print events sorted by date\n")
		fmt.Fprintf(out, "  export [-o file]  write all events as iCalendar\n")
		fmt.Fprintf(out, "  import <src>      add events from an .ics file or http(s) URL\n\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	return cfg
}
