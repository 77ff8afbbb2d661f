package integration

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/zoobzio/chrometrace"
	"github.com/zoobzio/chrometrace/query"
)

// Environment of a re-executed test binary acting as a traced worker.
const (
	envHelperMode   = "CHROMETRACE_HELPER_MODE"
	envHelperFile   = "CHROMETRACE_HELPER_FILE"
	envHelperEvents = "CHROMETRACE_HELPER_EVENTS"
)

// Helper process modes.
const (
	modeJoin    = "join"    // enable, record, disable
	modeExit    = "exit"    // enable, record, chrometrace.Exit without disabling
	modeCrash   = "crash"   // enable, record, flush, os.Exit without hooks
	modeNoFlush = "noflush" // enable, record, os.Exit without hooks or flush
)

// runHelperProcess runs the worker side when the binary was started by
// startHelper. It never returns in that case.
func runHelperProcess() {
	mode := os.Getenv(envHelperMode)
	if mode == "" {
		return
	}
	if err := helperMain(mode); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	os.Exit(0)
}

func helperMain(mode string) error {
	path := os.Getenv(envHelperFile)
	n, err := strconv.Atoi(os.Getenv(envHelperEvents))
	if err != nil {
		return fmt.Errorf("bad %s: %w", envHelperEvents, err)
	}

	s := chrometrace.New(chrometrace.WithLogger(quietLogger()))
	if err := s.Enable(chrometrace.PathDestination(path)); err != nil {
		return err
	}
	rec := chrometrace.NewRecorder(s, chrometrace.WithCategory("helper"))
	recordPairs(rec, mode, n)

	switch mode {
	case modeJoin:
		return s.Disable()
	case modeExit:
		chrometrace.Exit(0)
	case modeCrash:
		if err := s.Flush(); err != nil {
			return err
		}
		os.Exit(3)
	case modeNoFlush:
		os.Exit(3)
	}
	return fmt.Errorf("unknown helper mode %q", mode)
}

// recordPairs records n events as n/2 Begin/End pairs.
func recordPairs(rec *chrometrace.Recorder, name string, n int) {
	for i := 0; i < n/2; i++ {
		rec.Begin(name, chrometrace.NewArg("i", i))
		rec.End(name)
	}
}

// startHelper launches the test binary as a worker in mode.
func startHelper(ctx context.Context, mode, path string, events int) *exec.Cmd {
	cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(),
		envHelperMode+"="+mode,
		envHelperFile+"="+path,
		envHelperEvents+"="+strconv.Itoa(events),
	)
	return cmd
}

// tracePath returns a fresh trace file path under t.TempDir.
func tracePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "trace.json")
}

// newSession creates a quiet session and makes sure it is finalized.
func newSession(t *testing.T, opts ...chrometrace.Option) *chrometrace.Session {
	t.Helper()
	s := chrometrace.New(append([]chrometrace.Option{chrometrace.WithLogger(quietLogger())}, opts...)...)
	t.Cleanup(func() {
		_ = s.Disable() //nolint:errcheck // best effort
	})
	return s
}

// loadComplete loads a trace that must already carry its footer.
func loadComplete(t *testing.T, path string) *query.Events {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read trace: %v", err)
	}
	if !query.Complete(data) {
		t.Fatalf("trace is missing its footer:\n%s", data)
	}
	events, err := query.Parse(data)
	if err != nil {
		t.Fatalf("parse trace: %v", err)
	}
	return events
}

// assertBalanced checks every Begin has a matching End on its thread.
func assertBalanced(t *testing.T, events *query.Events) {
	t.Helper()
	begins := events.ByPhase(chrometrace.PhaseBegin).Len()
	ends := events.ByPhase(chrometrace.PhaseEnd).Len()
	if begins != ends {
		t.Errorf("Expected balanced trace, got %d begins and %d ends", begins, ends)
	}
	if spans := len(events.Spans()); spans != begins {
		t.Errorf("Expected %d paired spans, got %d", begins, spans)
	}
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
