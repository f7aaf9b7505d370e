// Command marketctl queries the market data layer from the shell, using the
// same configuration, cache and upstream limiter as the API server.
package main

import (
	"context"
	"fmt"
	"os"

	"CryptoLens_MarketData/internal/app"
	"CryptoLens_MarketData/internal/config"
	"CryptoLens_MarketData/internal/logger"
	"CryptoLens_MarketData/internal/marketdata"
)

func main() {
	root := newRootCmd(openMarket, os.Stdout)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// openMarket builds the facade from the environment. Logs go to stderr so
// stdout carries only the JSON result.
func openMarket(ctx context.Context) (marketdata.Service, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	appLogger, err := app.NewLogger(logger.WithLogEvent(ctx, logger.NewInternalLogEvent()), cfg, os.Stderr)
	if err != nil {
		return nil, nil, err
	}

	stack, err := app.Build(cfg, appLogger)
	if err != nil {
		_ = appLogger.Close()
		return nil, nil, fmt.Errorf("failed to build market data stack: %w", err)
	}

	return stack.Market, func() error {
		stackErr := stack.Close()
		if err := appLogger.Close(); err != nil {
			return err
		}
		return stackErr
	}, nil
}
