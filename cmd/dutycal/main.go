package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kaan-dogan/RA-Duty-Schedule/internal/calendar"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/config"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/filter"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/ics"
	appLog "github.com/kaan-dogan/RA-Duty-Schedule/internal/log"
	"github.com/kaan-dogan/RA-Duty-Schedule/internal/web"
)

const defaultConfigPath = "config.yaml"

// flagConfig holds CLI flag values. Non-empty values override the config
// file and environment.
type flagConfig struct {
	configPath string
	listen     string
	source     string
	logLevel   string

	export string
	people bool

	dutyType string
	query    string
	person   string
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		appLog.Error("failed to load .env", err)
	}

	flags := parseFlags()
	if err := run(flags); err != nil {
		appLog.Error("dutycal failed", err)
		os.Exit(1)
	}
}

func run(flags flagConfig) error {
	configPath := flags.configPath
	if configPath == "" {
		configPath = os.Getenv(config.EnvConfigPath)
	}
	if configPath == "" {
		configPath = defaultConfigPath
	}

	conf, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	conf.ApplyEnv()
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if flags.source != "" {
		conf.SetSingleSource(flags.source)
	}
	if flags.logLevel != "" {
		conf.LogLevel = flags.logLevel
	}

	level, err := appLog.ParseLevel(conf.LogLevel)
	if err != nil {
		appLog.Warn("unknown log level, using info", "log_level", conf.LogLevel)
	}
	appLog.SetLevel(level)

	if err := conf.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", configPath, err)
	}

	appLog.Info("effective config",
		"config_path", configPath,
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"sources", len(conf.Sources),
		"standing_duties", len(conf.StandingDuties),
		"horizon_days", conf.HorizonDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc := calendar.NewService(conf)

	if flags.people || flags.export != "" {
		if _, err := svc.Reload(ctx); err != nil {
			return err
		}
		if flags.people {
			return printPeople(os.Stdout, svc.Snapshot())
		}
		return exportICS(flags, conf, svc.Snapshot())
	}

	if _, err := svc.Reload(ctx); err != nil {
		appLog.Error("initial load failed, serving empty calendar until next reload", err)
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	if err := web.Run(ctx, conf, svc); err != nil {
		return err
	}

	appLog.Info("dutycal exiting")
	return nil
}

func printPeople(w io.Writer, snap *calendar.Snapshot) error {
	bw := bufio.NewWriter(w)
	for _, name := range snap.Roster.Names() {
		if _, err := fmt.Fprintln(bw, name); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// exportICS writes the filtered duties to flags.export; "-" is stdout.
func exportICS(flags flagConfig, conf *config.Config, snap *calendar.Snapshot) error {
	c := filter.Criteria{DutyType: flags.dutyType, Query: flags.query, Person: flags.person}
	duties := filter.Apply(snap.Duties, c, snap.Roster)

	name := conf.CalendarName
	if c.Person != "" {
		name = snap.Roster.Canonicalize(c.Person) + " - " + name
	}
	opts := ics.ExportOptions{CalendarName: name}

	if flags.export == "-" {
		return ics.Write(os.Stdout, duties, opts)
	}

	f, err := os.Create(flags.export)
	if err != nil {
		return err
	}
	if err := ics.Write(f, duties, opts); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	appLog.Info("exported calendar", "path", flags.export, "duties", len(duties), "of", len(snap.Duties))
	return nil
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "", "Path to config file (default $"+config.EnvConfigPath+" or "+defaultConfigPath+")")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.source, "source", "", "Single CSV/ICS path or URL to load instead of the configured sources")
	flag.StringVar(&cfg.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.export, "export", "", "Write the filtered duties as ICS to this path (- for stdout) and exit")
	flag.BoolVar(&cfg.people, "people", false, "Print the roster and exit")
	flag.StringVar(&cfg.dutyType, "type", "", "Export filter: duty type substring")
	flag.StringVar(&cfg.query, "q", "", "Export filter: free text")
	flag.StringVar(&cfg.person, "person", "", "Export filter: person name")

	flag.Parse()

	return cfg
}
