// Command kerneld is the reference binary for the trading kernel: it
// wires every core package (pkg/ident through pkg/execution) and every
// adapter (execclient, dataclient, persistence, riskengine, notify,
// metrics) into one running process, either against a real Polymarket
// CLOB venue (KERNELD_MODE=live) or replayed over a canned event file
// on a deterministic clock (KERNELD_MODE=demo, the default).
//
// Grounded on cmd/polybot/main.go's wiring order: zerolog console
// output, godotenv.Load(), then construct-in-dependency-order followed
// by a signal-driven graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/gotradekernel/kernel/adapter/metrics"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("kerneld: no .env file found, using environment variables")
	}

	cfg := ConfigFromEnv()
	log.Info().Str("mode", cfg.Mode).Str("venue", cfg.Venue).Msg("kerneld starting")

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		if err := http.ListenAndServe(cfg.HTTPAddr, mux); err != nil {
			log.Error().Err(err).Msg("kerneld: metrics HTTP server exited")
		}
	}()

	switch cfg.Mode {
	case "demo":
		if err := runDemo(cfg); err != nil {
			log.Fatal().Err(err).Msg("kerneld: demo run failed")
		}
		log.Info().Msg("kerneld: demo run complete")

	case "live":
		ctx, cancel := context.WithCancel(context.Background())

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			log.Info().Msg("kerneld: shutting down")
			cancel()
		}()

		if err := runLive(ctx, cfg); err != nil {
			log.Fatal().Err(err).Msg("kerneld: live run failed")
		}

	default:
		log.Fatal().Str("mode", cfg.Mode).Msg("kerneld: KERNELD_MODE must be \"demo\" or \"live\"")
	}
}
