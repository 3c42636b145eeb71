package integrate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weightvault/pkg/logging"
	"weightvault/pkg/metrics"
	"weightvault/pkg/sink"
	"weightvault/pkg/vault"
	"weightvault/pkg/weights"
)

type harness struct {
	integrator *Integrator
	out        *bytes.Buffer
	path       string
	metrics    *metrics.MetricsCollector
	requests   *atomic.Int32
}

func newHarness(t *testing.T, status int, body string, opts Options, extra ...sink.Sink) *harness {
	t.Helper()
	requests := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	fetcher, err := vault.NewClient(srv.URL+"/api/get-weights", nil, logging.NewNopLogger())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), sink.DefaultPath)
	sinks := append([]sink.Sink{sink.NewFileSink(path)}, extra...)
	out := &bytes.Buffer{}
	mc := metrics.NewMetricsCollector("client")

	return &harness{
		integrator: New(fetcher, sinks, out, logging.NewNopLogger(), mc, opts),
		out:        out,
		path:       path,
		metrics:    mc,
		requests:   requests,
	}
}

func packageBody(ws string) string {
	return `{"origin_document":"1.pdf","id":"weights-3665","weights":` + ws + `}`
}

func errorLines(out string) []string {
	var lines []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "[ERROR]") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestIntegrate_ReturnsWeightsAndPrintsPreview(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[1,2,3,4,5,6,7,8,9,10]`), Options{})

	pkg := h.integrator.Integrate(context.Background(), "weights-3665")
	require.NotNil(t, pkg)
	assert.Equal(t, weights.Weights{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, pkg.Weights)

	out := h.out.String()
	assert.Contains(t, out, "[SCANNER] Initiating connection for ID: weights-3665")
	assert.Contains(t, out, "[SUCCESS] Intelligence Package Received.")
	assert.Contains(t, out, "Source Document: 1.pdf\n")
	assert.Contains(t, out, "Model ID: weights-3665\n")
	assert.Contains(t, out, "[RAW DATA] Extracted 10 Optimized Weights:")
	assert.Contains(t, out, "START: [1, 2, 3, 4, 5]\n...\nEND:   [6, 7, 8, 9, 10]\n")
	assert.Empty(t, errorLines(out))

	expected := `
# HELP vault_weights_received Number of weights in the last fetched package
# TYPE vault_weights_received gauge
vault_weights_received 10
`
	assert.NoError(t, testutil.GatherAndCompare(h.metrics.Registry(), strings.NewReader(expected), "vault_weights_received"))
}

func TestIntegrate_ShortSequencePreviewOverlaps(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`["0.10000000","0.20000000","0.30000000"]`), Options{})

	pkg := h.integrator.Integrate(context.Background(), "weights-3665")
	require.NotNil(t, pkg)
	assert.Equal(t, weights.Weights{0.1, 0.2, 0.3}, pkg.Weights)
	assert.Contains(t, h.out.String(), "START: [0.1, 0.2, 0.3]\n...\nEND:   [0.1, 0.2, 0.3]\n")
}

func TestIntegrate_FailuresYieldNilAndOneErrorLine(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"404":            {http.StatusNotFound, `{"error":"not found"}`},
		"500":            {http.StatusInternalServerError, `boom`},
		"invalid json":   {http.StatusOK, `{"origin_document":`},
		"missing weight": {http.StatusOK, `{"origin_document":"1.pdf","id":"weights-3665"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, tc.status, tc.body, Options{})

			var pkg *weights.Package
			require.NotPanics(t, func() {
				pkg = h.integrator.Integrate(context.Background(), "weights-3665")
			})
			assert.Nil(t, pkg)

			lines := errorLines(h.out.String())
			require.Len(t, lines, 1)
			assert.True(t, strings.HasPrefix(lines[0], "[ERROR] Connection failed: "))
			assert.NotContains(t, h.out.String(), "[SUCCESS]")
		})
	}
}

func TestIntegrate_ErrorLineDescribesFailure(t *testing.T) {
	h := newHarness(t, http.StatusOK, `{"origin_document":"1.pdf","id":"x"}`, Options{})
	h.integrator.Integrate(context.Background(), "x")
	assert.Contains(t, h.out.String(), `missing field: "weights"`)
}

func TestRun_SuccessWritesFile(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[1,2,3,4,5,6]`), Options{})

	pkg, err := h.integrator.Run(context.Background(), strings.NewReader("weights-3665\n"))
	require.NoError(t, err)
	require.NotNil(t, pkg)

	data, err := os.ReadFile(h.path)
	require.NoError(t, err)
	var got []float64
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, got)

	out := h.out.String()
	assert.True(t, strings.HasPrefix(out, Prompt))
	assert.Contains(t, out, "VERIFICATION: PHYSICAL-DIGITAL LINK CONFIRMED")
	assert.Contains(t, out, "the sensitive data in weights-3665. The raw content")
	assert.Contains(t, out, "[FILE CREATED] Full 6 weights saved to "+h.path)
}

func TestRun_BlankInputIsNoop(t *testing.T) {
	for name, input := range map[string]string{"newline": "\n", "spaces": "   \n", "eof": ""} {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t, http.StatusOK, packageBody(`[1]`), Options{})

			pkg, err := h.integrator.Run(context.Background(), strings.NewReader(input))
			require.NoError(t, err)
			assert.Nil(t, pkg)
			assert.Equal(t, int32(0), h.requests.Load())
			assert.Equal(t, Prompt, h.out.String())

			_, statErr := os.Stat(h.path)
			assert.True(t, errors.Is(statErr, os.ErrNotExist))
		})
	}
}

func TestRun_InterruptAtPromptReturns(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[1]`), Options{})
	stdin, w := io.Pipe()
	t.Cleanup(func() { w.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	type runResult struct {
		pkg *weights.Package
		err error
	}
	done := make(chan runResult, 1)
	go func() {
		pkg, err := h.integrator.Run(ctx, stdin)
		done <- runResult{pkg, err}
	}()
	cancel()

	select {
	case res := <-done:
		assert.Nil(t, res.pkg)
		assert.ErrorIs(t, res.err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run kept waiting on stdin after the context was cancelled")
	}
	assert.Equal(t, int32(0), h.requests.Load())
	_, statErr := os.Stat(h.path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestReadID_CancelledBeforeRead(t *testing.T) {
	stdin, w := io.Pipe()
	defer w.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id, err := ReadID(ctx, stdin, io.Discard)
	assert.Empty(t, id)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_EmptyWeightsSkipVerification(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[]`), Options{})

	pkg, err := h.integrator.Run(context.Background(), strings.NewReader("weights-3665\n"))
	require.NoError(t, err)
	require.NotNil(t, pkg)
	assert.Empty(t, pkg.Weights)
	assert.NotContains(t, h.out.String(), "VERIFICATION")

	data, err := os.ReadFile(h.path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestRun_FailedFetchDoesNotWriteFile(t *testing.T) {
	h := newHarness(t, http.StatusInternalServerError, ``, Options{})

	pkg, err := h.integrator.Run(context.Background(), strings.NewReader("weights-1\n"))
	require.NoError(t, err)
	assert.Nil(t, pkg)
	assert.Equal(t, int32(1), h.requests.Load())
	assert.NotContains(t, h.out.String(), "VERIFICATION")

	_, statErr := os.Stat(h.path)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRun_FaithfulReplayFailsWithoutResult(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[1]`), Options{FaithfulReplay: true})

	_, err := h.integrator.Run(context.Background(), strings.NewReader("\n"))
	assert.ErrorIs(t, err, ErrNoResult)
	assert.Equal(t, int32(0), h.requests.Load())

	h = newHarness(t, http.StatusNotFound, ``, Options{FaithfulReplay: true})
	_, err = h.integrator.Run(context.Background(), strings.NewReader("weights-1\n"))
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestRun_FaithfulReplayWritesOnSuccess(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[4,5]`), Options{FaithfulReplay: true})

	_, err := h.integrator.Run(context.Background(), strings.NewReader("weights-3665\n"))
	require.NoError(t, err)
	data, err := os.ReadFile(h.path)
	require.NoError(t, err)
	assert.JSONEq(t, `[4,5]`, string(data))
}

func TestRun_MirrorsToRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rs, err := sink.NewRedisSink(context.Background(), mr.Addr())
	require.NoError(t, err)
	defer rs.Close()

	h := newHarness(t, http.StatusOK, packageBody(`[7,8,9]`), Options{}, rs)
	_, err = h.integrator.Run(context.Background(), strings.NewReader("weights-3665\n"))
	require.NoError(t, err)

	stored, err := mr.Get(sink.WeightsKey("weights-3665"))
	require.NoError(t, err)
	assert.JSONEq(t, `[7,8,9]`, stored)
}

type failingSink struct{}

func (failingSink) Name() string { return "broken" }

func (failingSink) Persist(context.Context, string, weights.Weights) error {
	return errors.New("unavailable")
}

func TestPersist_MirrorFailureIsNotFatal(t *testing.T) {
	h := newHarness(t, http.StatusOK, packageBody(`[1,2]`), Options{}, failingSink{})

	_, err := h.integrator.Run(context.Background(), strings.NewReader("weights-3665\n"))
	require.NoError(t, err)
	_, statErr := os.Stat(h.path)
	assert.NoError(t, statErr)
}

func TestPersist_PrimaryFailureIsFatal(t *testing.T) {
	mc := metrics.NewMetricsCollector("client")
	out := &bytes.Buffer{}
	in := New(nil, []sink.Sink{failingSink{}}, out, logging.NewNopLogger(), mc, Options{})

	err := in.Persist(context.Background(), &weights.Package{ID: "x", Weights: weights.Weights{1}})
	assert.Error(t, err)
	assert.NotContains(t, out.String(), "[FILE CREATED]")
}
