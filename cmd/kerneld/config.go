package main

import (
	"os"
	"strconv"
)

// Config is read from the environment after the caller has loaded a
// .env file with godotenv.Load(), the same ambient convention every
// adapter under adapter/ uses.
type Config struct {
	Mode           string // "live" or "demo"
	HTTPAddr       string
	TraderId       string
	StrategyName   string
	Venue          string
	InstrumentId   string
	DemoEventsPath string
	EnablePersist  bool
	EnableNotify   bool
}

func ConfigFromEnv() Config {
	return Config{
		Mode:           envOr("KERNELD_MODE", "demo"),
		HTTPAddr:       envOr("KERNELD_HTTP_ADDR", ":9090"),
		TraderId:       envOr("KERNELD_TRADER_ID", "TRADER-001"),
		StrategyName:   envOr("KERNELD_STRATEGY", "DEMO"),
		Venue:          envOr("KERNELD_VENUE", "POLYMARKET"),
		InstrumentId:   envOr("KERNELD_INSTRUMENT", "0xWILL-BTC-100K-JUL"),
		DemoEventsPath: envOr("KERNELD_DEMO_EVENTS", "cmd/kerneld/testdata/demo_events.json"),
		EnablePersist:  boolEnvOr("KERNELD_ENABLE_PERSIST", false),
		EnableNotify:   boolEnvOr("KERNELD_ENABLE_NOTIFY", false),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnvOr(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
