package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cargo-loader/internal/application"
	"github.com/eugenenazirov/cargo-loader/internal/config"
	"github.com/eugenenazirov/cargo-loader/internal/logging"
	"github.com/eugenenazirov/cargo-loader/internal/packing"
)

var signalNotify = signal.Notify

type cli struct {
	app     *kingpin.Application
	loadCmd *kingpin.CmdClause
	serve   *kingpin.CmdClause

	configFile *string
	envFile    *string
	logLevel   *string

	algorithm *string
	files     *[]string
	cargo     *[]string

	port           *string
	rateLimitRPS   *float64
	rateLimitBurst *int
}

func newCLI() *cli {
	c := &cli{}
	c.app = kingpin.New("cargo-loader", "Cargo Loader - packs cargo items into the fewest weight-limited trolleys")
	c.configFile = c.app.Flag("config", "Path to YAML configuration file").String()
	c.envFile = c.app.Flag("env-file", "Path to a dotenv file seeding environment variables").String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").String()

	c.loadCmd = c.app.Command("load", "Load cargo items into trolleys and report the trolley count").Default()
	c.algorithm = c.loadCmd.Flag("algorithm", "Packing algorithm").Short('a').
		Enum(string(packing.FirstFit), string(packing.FirstFitDecreasing))
	c.files = c.loadCmd.Flag("file", "YAML manifest with cargo items (repeatable)").Short('f').Strings()
	c.cargo = c.loadCmd.Flag("cargo", "Cargo item as 'name weight length width height' (repeatable)").Short('c').Strings()
	c.loadCmd.Validate(func(*kingpin.CmdClause) error {
		switch {
		case len(*c.files) > 0 && len(*c.cargo) > 0:
			return errors.New("--file and --cargo are mutually exclusive")
		case len(*c.files) == 0 && len(*c.cargo) == 0:
			return errors.New("one of --file or --cargo is required")
		}
		return nil
	})

	c.serve = c.app.Command("serve", "Run the cargo loading HTTP API")
	c.port = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.rateLimitRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.rateLimitBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	return c
}

func (c *cli) overrides() *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.configFile,
		EnvFile:    *c.envFile,
	}

	if *c.logLevel != "" {
		overrides.LogLevel = c.logLevel
	}

	if *c.algorithm != "" {
		overrides.Algorithm = c.algorithm
	}

	if *c.port != "" {
		overrides.Port = c.port
	}

	if *c.rateLimitRPS >= 0 {
		overrides.RateLimitRPS = c.rateLimitRPS
	}

	if *c.rateLimitBurst >= 0 {
		overrides.RateLimitBurst = c.rateLimitBurst
	}

	return overrides
}

func main() {
	c := newCLI()
	command := kingpin.MustParse(c.app.Parse(os.Args[1:]))

	cfg, err := config.Load(c.overrides())
	c.app.FatalIfError(err, "failed to load configuration")

	logger, err := logging.New(cfg.LogLevel)
	c.app.FatalIfError(err, "failed to initialize logger")
	defer func() {
		_ = logger.Sync()
	}()

	switch command {
	case c.loadCmd.FullCommand():
		_, err := application.Load(application.LoadOptions{
			Algorithm: cfg.Algorithm,
			Cargo:     *c.cargo,
			Files:     *c.files,
		}, os.Stdout, logger)
		if err != nil {
			logger.Error("load failed", zap.Error(err))
			_ = logger.Sync()
			c.app.Fatalf("%v", err)
		}
	case c.serve.FullCommand():
		runServer(cfg, logger)
	default:
		panic(fmt.Sprintf("unhandled command %q", command))
	}
}

func runServer(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
