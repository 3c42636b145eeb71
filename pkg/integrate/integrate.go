// Package integrate runs the buyer-side flow: read a weight ID from the
// operator, fetch the package from the vault, print a preview and persist
// the full weight sequence.
package integrate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"weightvault/pkg/correlation"
	"weightvault/pkg/logging"
	"weightvault/pkg/metrics"
	"weightvault/pkg/sink"
	"weightvault/pkg/vault"
	"weightvault/pkg/weights"
)

// Prompt is shown before reading the weight ID
const Prompt = "Enter the Secure Weight ID from the Vault: "

// ErrNoResult is returned by Persist when nothing was fetched and
// persistence was requested unconditionally.
var ErrNoResult = errors.New("no weights to persist: nothing was fetched")

// Fetcher retrieves a weight package by ID
type Fetcher interface {
	Fetch(ctx context.Context, id string) (*weights.Package, error)
}

// Options tune the integration flow
type Options struct {
	// FaithfulReplay persists even when no result exists, failing with ErrNoResult
	FaithfulReplay bool
}

// Integrator wires the fetcher, console output and sinks together
type Integrator struct {
	fetcher Fetcher
	sinks   []sink.Sink
	out     io.Writer
	logger  logging.Logger
	metrics *metrics.MetricsCollector
	ids     *correlation.IDGenerator
	opts    Options
}

// New creates an Integrator. The first sink is mandatory; failures of any
// later sink are logged and otherwise ignored.
func New(fetcher Fetcher, sinks []sink.Sink, out io.Writer, logger logging.Logger, mc *metrics.MetricsCollector, opts Options) *Integrator {
	return &Integrator{
		fetcher: fetcher,
		sinks:   sinks,
		out:     out,
		logger:  logger,
		metrics: mc,
		ids:     correlation.NewIDGenerator("buyer"),
		opts:    opts,
	}
}

// ReadID prompts on out and reads one line from in. Surrounding whitespace
// is dropped; an empty result means the operator entered nothing.
// It returns ctx's error as soon as ctx is done, even while the read blocks.
func ReadID(ctx context.Context, in io.Reader, out io.Writer) (string, error) {
	type readResult struct {
		line string
		err  error
	}

	fmt.Fprint(out, Prompt)
	done := make(chan readResult, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		done <- readResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("reading weight ID interrupted: %w", ctx.Err())
	case res := <-done:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", fmt.Errorf("failed to read weight ID: %w", res.err)
		}
		return strings.TrimSpace(res.line), nil
	}
}

// Integrate fetches the package for id and prints a preview. Any failure is
// reported as a single error line and yields a nil package.
func (i *Integrator) Integrate(ctx context.Context, id string) *weights.Package {
	runID, ctx := correlation.GetOrGenerate(ctx, i.ids)
	log := i.logger.WithCorrelationID(runID).WithField("id", id)

	fmt.Fprintf(i.out, "\n[SCANNER] Initiating connection for ID: %s\n", id)

	start := time.Now()
	pkg, err := i.fetcher.Fetch(ctx, id)
	i.metrics.RecordFetch(vault.Kind(err), time.Since(start))
	if err != nil {
		log.WithField("error", err.Error()).Info("Weight fetch failed")
		fmt.Fprintf(i.out, "\n[ERROR] Connection failed: %v\n", err)
		return nil
	}

	i.metrics.SetWeightsReceived(len(pkg.Weights))
	log.WithField("weights", len(pkg.Weights)).Info("Weight package received")

	fmt.Fprintln(i.out, "\n[SUCCESS] Intelligence Package Received.")
	fmt.Fprintf(i.out, "Source Document: %s\n", pkg.OriginDocument)
	fmt.Fprintf(i.out, "Model ID: %s\n", pkg.ID)
	fmt.Fprintf(i.out, "\n[RAW DATA] Extracted %d Optimized Weights:\n", len(pkg.Weights))
	fmt.Fprintf(i.out, "START: %s\n", pkg.Weights.Head(weights.PreviewSize))
	fmt.Fprintln(i.out, "...")
	fmt.Fprintf(i.out, "END:   %s\n", pkg.Weights.Tail(weights.PreviewSize))

	return pkg
}

// Persist hands the result to every sink. Without a result it is a no-op,
// unless FaithfulReplay is set, in which case it fails with ErrNoResult.
func (i *Integrator) Persist(ctx context.Context, pkg *weights.Package) error {
	if pkg == nil {
		if i.opts.FaithfulReplay {
			return ErrNoResult
		}
		return nil
	}

	for n, s := range i.sinks {
		err := s.Persist(ctx, pkg.ID, pkg.Weights)
		i.metrics.RecordPersist(s.Name(), err)
		if err == nil {
			continue
		}
		if n == 0 {
			return err
		}
		i.logger.WithField("sink", s.Name()).Error("Mirroring weights failed", err)
	}

	if len(i.sinks) > 0 {
		target := i.sinks[0].Name()
		if fs, ok := i.sinks[0].(*sink.FileSink); ok {
			target = fs.Path
		}
		fmt.Fprintf(i.out, "\n[FILE CREATED] Full %d weights saved to %s\n", len(pkg.Weights), target)
	}
	return nil
}

// Run performs one full session: prompt, integrate, verify, persist.
// It returns the fetched package, or nil when the ID was blank or the fetch failed.
func (i *Integrator) Run(ctx context.Context, in io.Reader) (*weights.Package, error) {
	id, err := ReadID(ctx, in, i.out)
	if err != nil {
		return nil, err
	}

	var pkg *weights.Package
	if id != "" {
		pkg = i.Integrate(ctx, id)
		if pkg != nil && len(pkg.Weights) > 0 {
			printVerification(i.out, id)
		}
	}

	return pkg, i.Persist(ctx, pkg)
}

func printVerification(out io.Writer, id string) {
	fmt.Fprintln(out, "\n----------------------------------------------------")
	fmt.Fprintln(out, "   VERIFICATION: PHYSICAL-DIGITAL LINK CONFIRMED")
	fmt.Fprintln(out, "----------------------------------------------------")
	fmt.Fprintln(out, "The local model has now integrated learning from")
	fmt.Fprintf(out, "the sensitive data in %s. The raw content\n", id)
	fmt.Fprintln(out, "remains private in the vault.")
}
