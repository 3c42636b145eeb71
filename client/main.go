/*
 * Copyright (c) 2025 Ishaan Nene
 *
 * This source code is licensed under the MIT license found in the
 * LICENSE file in the root directory of this source tree.
 */
/*
This file is the buyer-side client. It asks the operator for a weight ID, pulls the
weight package from the vault, prints a short preview and saves the full weights locally.
Note: the vault under vault/ can be run locally to try this out.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"weightvault/pkg/config"
	"weightvault/pkg/integrate"
	"weightvault/pkg/logging"
	"weightvault/pkg/metrics"
	"weightvault/pkg/sink"
	"weightvault/pkg/vault"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one client session and returns the process exit code.
// Everything it opens is released before it returns.
func run(ctx context.Context, stdin io.Reader, stdout, stderr io.Writer) int {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(stderr, "failed to load .env: %v\n", err)
		return 1
	}
	cfg := config.LoadClient()
	logger := logging.NewLoggerWithOutput("buyer", cfg.LogLevel, stderr)
	mc := metrics.NewMetricsCollector("client")

	client, err := vault.NewClient(cfg.VaultURL, nil, logger)
	if err != nil {
		logger.Error("Invalid vault address", err)
		return 1
	}

	sinks := []sink.Sink{sink.NewFileSink(cfg.OutputFile)}
	if cfg.RedisAddr != "" {
		rs, err := sink.NewRedisSink(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn(fmt.Sprintf("Redis mirror disabled: %v", err))
		} else {
			defer func() {
				if err := rs.Close(); err != nil {
					logger.Error("Failed to close redis mirror", err)
				}
			}()
			sinks = append(sinks, rs)
		}
	}

	fmt.Fprintln(stdout, "====================================================")
	fmt.Fprintln(stdout, "   OMNIVAULT BUYER-SIDE: LIVE WEIGHT INTEGRATION    ")
	fmt.Fprintln(stdout, "====================================================")

	in := integrate.New(client, sinks, stdout, logger, mc, integrate.Options{
		FaithfulReplay: cfg.FaithfulReplay,
	})
	_, runErr := in.Run(ctx, stdin)

	if cfg.MetricsFile != "" {
		if err := mc.WriteToTextfile(cfg.MetricsFile); err != nil {
			logger.Error("Failed to write metrics", err)
		}
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(stderr, "\ninterrupted")
			return 130
		}
		logger.Error("Integration failed", runErr)
		fmt.Fprintf(stderr, "error: %v\n", runErr)
		return 1
	}
	return 0
}
