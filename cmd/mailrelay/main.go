// Command mailrelay serves the relay's HTTP endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/lattiq/mailrelay"
	"github.com/lattiq/mailrelay/internal/httpapi"
	"github.com/lattiq/mailrelay/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML configuration file")
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		mailrelay.PrintVersion(os.Stdout)
		return
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "mailrelay:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := mailrelay.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, closeLog, err := logger.New(logger.Config{
		Level:  cfg.Monitoring.Logging.Level,
		Format: cfg.Monitoring.Logging.Format,
		Output: cfg.Monitoring.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer closeLog()

	client, err := mailrelay.New(cfg, mailrelay.WithLogger(log))
	if err != nil {
		return fmt.Errorf("build client: %w", err)
	}
	defer client.Close()

	primary, backup := client.Providers()
	log.Info().
		Str("primary", primary).
		Str("backup", backup).
		Str("version", mailrelay.GetVersion()).
		Msg("mail relay starting")

	server, err := httpapi.New(httpapi.Config{
		Address:            cfg.Server.Address,
		RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
		MaxBodyBytes:       cfg.Server.MaxBodyBytes,
		ReadTimeout:        httpapi.DefaultConfig().ReadTimeout,
		WriteTimeout:       2*cfg.Provider.Timeout + httpapi.DefaultConfig().ReadTimeout,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
	}, client, httpapi.WithLogger(log), httpapi.WithVersion(mailrelay.GetVersionInfo()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	return shutdown(server, log)
}

func shutdown(server *httpapi.Server, log zerolog.Logger) error {
	if err := server.Shutdown(context.Background()); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
		return err
	}
	return nil
}
