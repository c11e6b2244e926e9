// Command loadtest drives the KAMPYN auth load test: signup, OTP
// verification, login, forgot-password and reset-password for N synthetic
// users with a bounded concurrency cap.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"kampyn-loadtest/internal/auth"
	"kampyn-loadtest/internal/collector"
	"kampyn-loadtest/internal/config"
	"kampyn-loadtest/internal/coordinator"
	"kampyn-loadtest/internal/otpstore"
	"kampyn-loadtest/internal/progress"
	"kampyn-loadtest/internal/ratelimit"

	log "github.com/sirupsen/logrus"
)

const (
	ExitSuccess         = 0
	ExitThresholdFailed = 1
	ExitError           = 2
	ExitInterrupted     = 130
)

// main stays a thin shell around run so that run's defers (log file, Mongo
// client) complete before the process exits.
func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to YAML config file")
	baseURL := flag.String("base-url", "", "server base URL")
	mongoURI := flag.String("mongo-uri", "", "MongoDB connection string")
	users := flag.Int("users", 0, "number of synthetic users")
	concurrency := flag.Int("concurrency", 0, "max workflows in flight")
	rps := flag.Int("rps", 0, "cap on workflow starts per second (0 = unlimited)")
	timeout := flag.Duration("timeout", 0, "per-request HTTP timeout")
	output := flag.String("output", "text", "output format: text, json")
	quiet := flag.Bool("quiet", false, "suppress progress output and console logging")
	logLevel := flag.String("log", "", "log level: debug, info, warn, error")
	logFile := flag.String("log-file", "", "log file path")
	doCleanup := flag.Bool("cleanup", false, "delete test data after the run without prompting")
	noCleanup := flag.Bool("no-cleanup", false, "skip test data cleanup without prompting")
	flag.Parse()

	if *output != "text" && *output != "json" {
		fmt.Fprintf(os.Stderr, "error: --output must be 'text' or 'json', got %q\n", *output)
		return ExitError
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}

	// Explicit flags win over the config file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.Server.BaseURL = *baseURL
		case "mongo-uri":
			cfg.Mongo.URI = *mongoURI
		case "users":
			cfg.Test.Users = *users
		case "concurrency":
			cfg.Test.Concurrency = *concurrency
		case "rps":
			cfg.Test.RPS = *rps
		case "timeout":
			cfg.Server.RequestTimeout = *timeout
		case "log":
			cfg.Log.Level = *logLevel
		case "log-file":
			cfg.Log.File = *logFile
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}

	logClose, err := setupLogging(cfg, *quiet)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitError
	}
	defer logClose()

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 10*time.Second)
	store, err := otpstore.ConnectMongo(connectCtx, cfg.Mongo.URI,
		cfg.Mongo.AccountsDB, cfg.Mongo.UsersCollection,
		cfg.Mongo.OTPDB, cfg.Mongo.OTPCollection)
	if err == nil {
		err = store.Ping(connectCtx)
	}
	connectCancel()
	if err != nil {
		log.Errorf("MongoDB connection failed: %v", err)
		return ExitError
	}
	log.Info("Connections established")
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Warnf("Closing MongoDB client: %v", err)
		} else {
			log.Info("Connections closed")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	interrupted := false
	go func() {
		<-sigCh
		interrupted = true
		log.Info("Load test interrupted by user")
		cancel()
	}()

	coll := collector.NewCollector()
	pool := coordinator.NewPool(coll)
	prog := progress.NewProgress(coll, *quiet)
	prog.TrackCompletion(cfg.Test.Users, pool.Completed)

	workflow := &auth.Workflow{
		Client:          auth.NewClient(cfg.Server.BaseURL, cfg.Server.RequestTimeout),
		Store:           store,
		Limiter:         ratelimit.NewLimiter(cfg.Test.RPS),
		EmailDomain:     cfg.TestData.EmailDomain,
		PhonePrefix:     cfg.TestData.PhonePrefix,
		UniID:           cfg.TestData.UniID,
		OTPWait:         cfg.Test.OTPWait,
		OTPPollInterval: cfg.Test.OTPPollInterval,
		OTPPollTimeout:  cfg.Test.OTPPollTimeout,
	}

	log.Infof("Starting load test for %d users with max %d concurrent workflows",
		cfg.Test.Users, cfg.Test.Concurrency)
	prog.Printf("Load test starting: %d users, concurrency %d, target %s",
		cfg.Test.Users, cfg.Test.Concurrency, cfg.Server.BaseURL)
	prog.Start()

	start := time.Now()
	results := pool.Run(ctx, cfg.Test.Users, cfg.Test.Concurrency, workflow)
	coll.Close()
	prog.Stop()

	successfulWorkflows := 0
	for i := range results {
		if results[i].LoginOK {
			successfulWorkflows++
		}
	}
	log.Infof("Load test completed in %.2f seconds", time.Since(start).Seconds())
	log.Infof("Successful complete workflows: %d/%d", successfulWorkflows, cfg.Test.Users)

	metrics := coll.Compute()
	thresholdResults := cfg.Thresholds.Check(metrics)

	if *output == "json" {
		coll.PrintJSON(os.Stdout, metrics, thresholdResults)
	} else {
		coll.PrintText(os.Stdout, metrics, thresholdResults)
		fmt.Printf("\nSuccessful workflows: %d / %d\n", successfulWorkflows, cfg.Test.Users)
	}

	if interrupted {
		return ExitInterrupted
	}

	if shouldCleanup(*doCleanup, *noCleanup) {
		runCleanup(store, cfg)
	}

	if !thresholdResults.Passed {
		if *output == "text" {
			fmt.Fprintln(os.Stderr, "\nThreshold check failed!")
		}
		return ExitThresholdFailed
	}

	return ExitSuccess
}

// setupLogging points logrus at the configured file, and at stderr as well
// unless quiet. Returns a closer for the log file.
func setupLogging(cfg *config.Config, quiet bool) (func(), error) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q", cfg.Log.Level)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	file, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	if quiet {
		log.SetOutput(file)
	} else {
		log.SetOutput(io.MultiWriter(file, os.Stderr))
	}
	return func() { file.Close() }, nil
}

// shouldCleanup resolves the cleanup decision: explicit flags first,
// otherwise an interactive prompt.
func shouldCleanup(doCleanup, noCleanup bool) bool {
	if doCleanup {
		return true
	}
	if noCleanup {
		return false
	}
	fmt.Print("\nDo you want to clean up test data? (y/n): ")
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.ToLower(strings.TrimSpace(answer)) == "y"
}

func runCleanup(store otpstore.Store, cfg *config.Config) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := store.DeleteTestData(ctx, cfg.EmailPattern())
	if err != nil {
		log.Errorf("Error cleaning up test data: %v", err)
		return
	}
	log.Infof("Cleaned up %d test users", result.Users)
	log.Infof("Cleaned up %d test OTPs", result.OTPs)
	fmt.Printf("Cleaned up %d test users and %d test OTPs\n", result.Users, result.OTPs)
}
