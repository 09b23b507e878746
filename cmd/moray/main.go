package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"bytemomo/moray/internal/adapter/logger"
	"bytemomo/moray/internal/adapter/yamlconfig"
	"bytemomo/moray/internal/config"
	"bytemomo/moray/internal/dispatcher"
	"bytemomo/moray/internal/precheck"
	"bytemomo/moray/internal/probe"
	"bytemomo/moray/internal/usecase"

	"github.com/sirupsen/logrus"
	"go.uber.org/automaxprocs/maxprocs"
)

var version = "dev"

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	if opts.version {
		fmt.Println(version)
		return
	}

	cfg, cfgErr := buildConfig(opts)
	closer := logger.SetLoggerToStructured(logger.LevelForVerbosity(cfg.Verbose), cfg.LogFile)
	defer closer.Close()

	if cfgErr != nil {
		logrus.WithError(cfgErr).Fatal("Invalid configuration")
	}

	if _, err := maxprocs.Set(maxprocs.Logger(logrus.Debugf)); err != nil {
		logrus.WithError(err).Warn("Could not adjust GOMAXPROCS")
	}

	if err := run(context.Background(), cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to run")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	log := logrus.WithFields(logrus.Fields{
		"protocol": cfg.Protocol,
		"strategy": cfg.Strategy,
	})

	r, err := newRunner(cfg, log)
	if err != nil {
		return err
	}

	sum, err := r.Run(ctx, cfg)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"run_id": sum.RunID,
		"found":  sum.Found,
	}).Debug("Done")
	return nil
}

func newRunner(cfg config.Config, log *logrus.Entry) (usecase.Runner, error) {
	prober, err := probe.New(cfg.Protocol, probe.Options{Port: cfg.Port, Timeout: cfg.Timeout})
	if err != nil {
		return usecase.Runner{}, err
	}

	r := usecase.Runner{Prober: prober, Out: os.Stdout, Log: log}
	if cfg.Precheck {
		port := cfg.Port
		if port == 0 {
			port, _ = probe.DefaultPort(cfg.Protocol)
		}
		r.Precheck = &precheck.NmapFilter{Port: port, Timeout: cfg.PrecheckTimeout, Log: log}
	}
	return r, nil
}

type options struct {
	flags   config.Config
	set     map[string]bool
	profile string
	version bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("moray", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := config.Default()
	opts := options{set: map[string]bool{}}
	var (
		verbose countFlag
		port    uint
	)
	fs.StringVar(&opts.flags.Hostlist, "hostlist", "", "Path to the host list, one address per line (required)")
	fs.StringVar(&opts.flags.Wordlist, "wordlist", "", "Path to the word list, one user:pass per line (required)")
	fs.StringVar(&opts.flags.Threads, "threads", "", "Number of workers (defaults to the available CPUs)")
	fs.Var(&verbose, "verbose", "Print failed attempts; repeat for debug logs")
	fs.Var(&verbose, "v", "Shorthand for --verbose")
	fs.StringVar(&opts.flags.Protocol, "protocol", def.Protocol, "Protocol to test: "+strings.Join(probe.Protocols(), ", "))
	fs.UintVar(&port, "port", 0, "Service port for hosts without one (defaults to the protocol's port)")
	fs.DurationVar(&opts.flags.Timeout, "timeout", def.Timeout, "Timeout of a single attempt")
	fs.BoolVar(&opts.flags.KeepDuplicates, "keep-duplicates", false, "Probe repeated host lines separately")
	fs.StringVar(&opts.flags.Strategy, "strategy", def.Strategy, fmt.Sprintf("Work unit: %q per attempt or %q per host", dispatcher.StrategyPerCredential, dispatcher.StrategyPerHost))
	fs.BoolVar(&opts.flags.Precheck, "precheck", false, "Skip hosts whose service port nmap reports closed")
	fs.DurationVar(&opts.flags.PrecheckTimeout, "precheck-timeout", def.PrecheckTimeout, "Upper bound for the whole precheck scan")
	fs.StringVar(&opts.profile, "config", "", "YAML run profile; flags given on the command line win")
	fs.StringVar(&opts.flags.LogFile, "log-file", "", "Also write logs to this file")
	fs.BoolVar(&opts.version, "version", false, "Print the version and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected arguments: %v\n", fs.Args())
		fs.Usage()
		return opts, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	if port > 65535 {
		return opts, fmt.Errorf("port %d out of range", port)
	}

	opts.flags.Verbose = int(verbose)
	opts.flags.Port = uint16(port)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	return opts, nil
}

// buildConfig layers the profile, if any, under the flags that were set
// explicitly.
func buildConfig(opts options) (config.Config, error) {
	if opts.profile == "" {
		return opts.flags, opts.flags.Validate()
	}

	cfg, err := yamlconfig.LoadProfile(opts.profile, config.Default())
	if err != nil {
		return opts.flags, err
	}

	f := opts.flags
	for name := range opts.set {
		switch name {
		case "hostlist":
			cfg.Hostlist = f.Hostlist
		case "wordlist":
			cfg.Wordlist = f.Wordlist
		case "threads":
			cfg.Threads = f.Threads
		case "verbose", "v":
			cfg.Verbose = f.Verbose
		case "protocol":
			cfg.Protocol = f.Protocol
		case "port":
			cfg.Port = f.Port
		case "timeout":
			cfg.Timeout = f.Timeout
		case "keep-duplicates":
			cfg.KeepDuplicates = f.KeepDuplicates
		case "strategy":
			cfg.Strategy = f.Strategy
		case "precheck":
			cfg.Precheck = f.Precheck
		case "precheck-timeout":
			cfg.PrecheckTimeout = f.PrecheckTimeout
		case "log-file":
			cfg.LogFile = f.LogFile
		}
	}
	return cfg, cfg.Validate()
}

// countFlag counts how many times a boolean flag was given.
type countFlag int

func (c *countFlag) String() string {
	if c == nil {
		return "0"
	}
	return strconv.Itoa(int(*c))
}

func (c *countFlag) IsBoolFlag() bool { return true }

func (c *countFlag) Set(s string) error {
	if n, err := strconv.Atoi(s); err == nil {
		*c = countFlag(n)
		return nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	if b {
		*c++
	}
	return nil
}
