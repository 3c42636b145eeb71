/*
 * Copyright (c) 2025 Ishaan Nene
 *
 * This source code is licensed under the MIT license found in the
 * LICENSE file in the root directory of this source tree.
 */
/*
This file runs a local vault that serves demo weight packages on /api/get-weights.
It generates fresh random weights on every request, there is no storage behind it.
*/
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"weightvault/pkg/config"
	"weightvault/pkg/logging"
	"weightvault/pkg/metrics"
	"weightvault/pkg/vault"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logging.NewLogger("vault", "info").Error("Failed to load .env", err)
		os.Exit(1)
	}
	cfg := config.LoadServer()
	logger := logging.NewLogger("vault", cfg.LogLevel)
	mc := metrics.NewMetricsCollector("vault")

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           vault.NewServer(cfg.WeightCount, logger, mc).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.WithFields(map[string]interface{}{
		"addr":    cfg.ListenAddr,
		"weights": cfg.WeightCount,
	}).Info("Vault listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Vault stopped", err)
		os.Exit(1)
	}
	logger.Info("Vault shut down")
}
