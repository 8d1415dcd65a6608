// Command budgetbot runs the Discord travel budget tracker.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/shahar080/discord-travel-budget-tracker/pkg/bot"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/config"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/currency"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/exchange"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/logging"
	"github.com/shahar080/discord-travel-budget-tracker/pkg/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "budgetbot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.Setup(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rates := exchange.New(cfg.ExchangeAPIKey, logger.With("component", "exchange"))

	directory, err := currency.Load(ctx, rates, currency.LoadConfig{}, logger.With("component", "currency"))
	if err != nil {
		return err
	}

	st, err := store.New(ctx, store.Config{
		DatabaseURL:  cfg.DatabaseURL,
		BaseCurrency: cfg.BaseCurrency,
	}, rates, directory, logger.With("component", "store"))
	if err != nil {
		return err
	}
	defer st.Close()

	b, err := bot.New(cfg.BotToken, st, cfg.AllowedIDs(), cfg.BaseCurrency, logger.With("component", "bot"))
	if err != nil {
		return err
	}

	logger.Info("starting budget bot",
		"base_currency", cfg.BaseCurrency,
		"allowed_users", len(cfg.AllowedIDs()),
	)

	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
