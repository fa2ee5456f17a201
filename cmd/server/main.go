// Package main provides the entry point for the sqlgate MCP server.
package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sqlgate/sqlgate/cmd/server/config"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/metrics"
	"github.com/sqlgate/sqlgate/pkg/infrastructure/pool"
	"github.com/sqlgate/sqlgate/pkg/mcpserver"
	"github.com/sqlgate/sqlgate/pkg/repositories/sqldriver"
	"github.com/sqlgate/sqlgate/pkg/services"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "sqlgate",
	Short: "sqlgate MCP database gateway",
	Long: `A policy-enforcing SQL gateway exposed over the Model Context Protocol.

sqlgate validates every statement against a configurable policy before
executing it on a registered postgres, mysql, or sqlite connection.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sqlgate MCP server on stdio",
	Long: `Start the sqlgate MCP server with the specified configuration.

Example:
  sqlgate serve --config ./config.yaml
  sqlgate serve --log-level debug --readonly`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Command flags
	serveCmd.Flags().StringP("config", "c", "", "config file path")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().StringSlice("allowed-operations", nil, "SQL verbs callers may use")
	serveCmd.Flags().StringSlice("blocked-keywords", nil, "keywords rejected anywhere in a statement")
	serveCmd.Flags().Int("max-query-length", 10000, "maximum statement length in characters")
	serveCmd.Flags().Int("default-pool-size", 10, "pool size for connections that do not specify one")
	serveCmd.Flags().Duration("query-timeout", 30*time.Second, "default query timeout")
	serveCmd.Flags().Bool("readonly", false, "force every registered connection into read-only mode")
	serveCmd.Flags().Bool("metrics", true, "enable Prometheus metrics")
	serveCmd.Flags().String("metrics-address", ":9090", "metrics server address")
	serveCmd.Flags().Bool("health", true, "enable background connection health checks")
	serveCmd.Flags().Duration("health-interval", 30*time.Second, "health check interval")
	serveCmd.Flags().Int("history-size", 1000, "number of executions retained in history")
	serveCmd.Flags().Duration("shutdown-timeout", 30*time.Second, "graceful shutdown timeout")

	// Bind flags to viper
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		panic(fmt.Errorf("failed to bind flags: %w", err))
	}
	viper.SetEnvPrefix("SQLGATE")
	viper.AutomaticEnv()

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sqlgate MCP database gateway\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The MCP transport owns stdout; all logging goes to stderr.
	logger := setupLogging(cfg.LogLevel)
	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_date", buildDate).
		Msg("Starting sqlgate MCP server")

	// Create metrics collector
	var metricsCollector metrics.Collector
	var metricsServer *metrics.MetricsServer
	if cfg.Metrics.Enabled {
		promCollector := metrics.NewPrometheusCollector()
		metricsCollector = promCollector
		metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address, promCollector.Registry())
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := metricsServer.Start(); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
	} else {
		metricsCollector = metrics.NewNoOpCollector()
	}

	srv, connService, err := createGatewayServer(cfg, logger, metricsCollector)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer func() {
		if err := connService.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing connection registry")
		}
	}()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Health.Enabled {
		connService.StartHealthLoop(ctx, cfg.Health.Interval)
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	// Start server
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msg("Server listening on stdio")
		serverErrCh <- srv.ServeStdio()
	}()

	// Wait for shutdown signal or transport close
	select {
	case <-shutdownCh:
		logger.Info().Msg("Received shutdown signal")
	case err := <-serverErrCh:
		if err != nil {
			logger.Error().Err(err).Msg("Transport closed with error")
		} else {
			logger.Info().Msg("Transport closed")
		}
	}

	// Graceful shutdown
	logger.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("Starting graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		if err := connService.Close(); err != nil {
			logger.Error().Err(err).Msg("Error draining connection pools")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn().Msg("Shutdown timeout exceeded, exiting anyway")
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("Server shutdown complete")
	return nil
}

func createGatewayServer(cfg *config.Config, logger zerolog.Logger, metricsCollector metrics.Collector) (*mcpserver.Server, services.ConnectionService, error) {
	poolCfg := pool.Config{
		MaxIdleConnections: cfg.ConnectionPool.MaxIdleConnections,
		ConnMaxLifetime:    cfg.ConnectionPool.ConnMaxLifetime,
		ConnMaxIdleTime:    cfg.ConnectionPool.ConnMaxIdleTime,
		ConnectTimeout:     cfg.ConnectionPool.ConnectTimeout,
	}
	factory := pool.NewFactory(poolCfg, logger.With().Str("component", "pool").Logger())

	validator, err := services.NewValidator(services.Policy{
		AllowedOperations: cfg.Policy.AllowedOperations,
		BlockedKeywords:   cfg.Policy.BlockedKeywords,
		MaxQueryLength:    cfg.Policy.MaxQueryLength,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build validator: %w", err)
	}

	connService := services.NewConnectionService(
		factory,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "connection_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)

	queryRepo := sqldriver.NewQueryRepository(logger.With().Str("component", "query_repository").Logger())
	metadataRepo := sqldriver.NewMetadataRepository(logger.With().Str("component", "metadata_repository").Logger())

	queryService := services.NewQueryService(
		connService,
		queryRepo,
		validator,
		services.NewExecutionHistory(cfg.HistorySize),
		cfg.QueryTimeout,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "query_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)

	schemaService := services.NewSchemaService(
		connService,
		metadataRepo,
		&serviceLoggerAdapter{logger: logger.With().Str("component", "schema_service").Logger()},
		&serviceMetricsAdapter{collector: metricsCollector},
	)

	srv := mcpserver.New(version, mcpserver.Deps{
		Connections:     connService,
		Queries:         queryService,
		Schemas:         schemaService,
		Logger:          &serviceLoggerAdapter{logger: logger.With().Str("component", "mcp_server").Logger()},
		Metrics:         &serviceMetricsAdapter{collector: metricsCollector},
		DefaultPoolSize: cfg.DefaultPoolSize,
		ForceReadOnly:   cfg.ReadOnlyMode,
	})

	return srv, connService, nil
}

func loadConfig() (*config.Config, error) {
	// Load config file if specified
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &config.Config{
		LogLevel:        viper.GetString("log-level"),
		ShutdownTimeout: viper.GetDuration("shutdown-timeout"),
		Policy: config.PolicyConfig{
			AllowedOperations: viper.GetStringSlice("allowed-operations"),
			BlockedKeywords:   viper.GetStringSlice("blocked-keywords"),
			MaxQueryLength:    viper.GetInt("max-query-length"),
		},
		DefaultPoolSize: viper.GetInt("default-pool-size"),
		QueryTimeout:    viper.GetDuration("query-timeout"),
		ReadOnlyMode:    viper.GetBool("readonly"),
		Metrics: config.MetricsConfig{
			Enabled: viper.GetBool("metrics"),
			Address: viper.GetString("metrics-address"),
		},
		Health: config.HealthConfig{
			Enabled:  viper.GetBool("health"),
			Interval: viper.GetDuration("health-interval"),
		},
		HistorySize: viper.GetInt("history-size"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					short = file[i+1:]
					break
				}
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stderr).
		Level(logLevel).
		With().
		Timestamp().
		Str("service", "sqlgate")

	if logLevel == zerolog.DebugLevel {
		logger = logger.Caller()
	}

	return logger.Logger()
}
