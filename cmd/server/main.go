package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/remote-config-demo/internal/application"
	"github.com/eugenenazirov/remote-config-demo/internal/config"
	"github.com/eugenenazirov/remote-config-demo/internal/logging"
)

var signalNotify = signal.Notify

// buildVersionCode is stamped at link time with -ldflags "-X main.buildVersionCode=N".
var buildVersionCode = ""

func main() {
	kingpinApp := kingpin.New("remote-config-demo", "Remote Config Demo - welcome screen driven by remotely fetched configuration")
	overrides, err := parseFlags(kingpinApp, os.Args[1:])
	kingpin.FatalIfError(err, "failed to parse flags")

	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer app.Close()

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// parseFlags turns command-line flags into config overrides. Only flags the
// user actually set override lower-precedence sources.
func parseFlags(app *kingpin.Application, args []string) (*config.CLIOverrides, error) {
	configFile := app.Flag("config", "Path to YAML configuration file").String()
	envFile := app.Flag("env-file", "Path to a dotenv file loaded before reading the environment").String()
	port := app.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPS := app.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurst := app.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()
	var debugSet, fetchOnStartSet bool
	debug := app.Flag("debug", "Debug build: no fetch throttling and verbose logs").IsSetByUser(&debugSet).Bool()
	minFetchInterval := app.Flag("min-fetch-interval", "Minimum seconds between remote fetches").Default("-1").Int()
	remoteURL := app.Flag("remote-url", "Base URL of the remote config service").String()
	remoteFile := app.Flag("remote-file", "YAML file used as the remote config source").String()
	fetchOnStart := app.Flag("fetch-on-start", "Fetch remote config as soon as the server starts").IsSetByUser(&fetchOnStartSet).Bool()
	versionCode := app.Flag("version-code", "Version code of this build").Default(defaultVersionCodeFlag()).Int()
	packageName := app.Flag("package-name", "Package name used for the store link").String()

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	overrides := &config.CLIOverrides{
		ConfigFile: *configFile,
		EnvFile:    *envFile,
	}
	if *port != "" {
		overrides.Port = port
	}
	if *rateLimitRPS >= 0 {
		overrides.RateLimitRPS = rateLimitRPS
	}
	if *rateLimitBurst >= 0 {
		overrides.RateLimitBurst = rateLimitBurst
	}
	if debugSet {
		overrides.Debug = debug
	}
	if *minFetchInterval >= 0 {
		overrides.MinFetchInterval = minFetchInterval
	}
	if *remoteURL != "" {
		overrides.RemoteURL = remoteURL
	}
	if *remoteFile != "" {
		overrides.RemoteFile = remoteFile
	}
	if fetchOnStartSet {
		overrides.FetchOnStart = fetchOnStart
	}
	if *versionCode >= 0 {
		overrides.VersionCode = versionCode
	}
	if *packageName != "" {
		overrides.PackageName = packageName
	}

	return overrides, nil
}

func defaultVersionCodeFlag() string {
	if _, err := strconv.Atoi(buildVersionCode); err == nil {
		return buildVersionCode
	}
	return "-1"
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
