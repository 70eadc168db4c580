package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"
)

// capture routes output to a buffer for the duration of a test.
func capture(t *testing.T, v bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(v)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose(t *testing.T) {
	capture(t, false)
	if IsVerbose() {
		t.Error("expected verbose to be false initially")
	}

	SetVerbose(true)
	if !IsVerbose() {
		t.Error("expected verbose to be true after SetVerbose(true)")
	}
}

func TestDebug_WhenVerbose(t *testing.T) {
	buf := capture(t, true)

	Debug("retrieved %d chunks", 3)

	if got := buf.String(); got != "[DEBUG] retrieved 3 chunks\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestDebug_WhenNotVerbose(t *testing.T) {
	buf := capture(t, false)

	Debug("hidden")
	Section("Hidden")

	if buf.Len() > 0 {
		t.Errorf("expected no output when verbose is disabled, got %q", buf.String())
	}
}

func TestSection(t *testing.T) {
	buf := capture(t, true)

	Section("Retrieve")

	if got := buf.String(); got != "\n=== Retrieve ===\n" {
		t.Errorf("unexpected section output: %q", got)
	}
}

func TestInfo_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Info("indexed %d files", 2)

	if got := buf.String(); got != "[INFO] indexed 2 files\n" {
		t.Errorf("unexpected info output: %q", got)
	}
}

func TestWarn_AlwaysPrinted(t *testing.T) {
	buf := capture(t, false)

	Warn("falling back to %s", "similarity")

	if got := buf.String(); got != "[WARN] falling back to similarity\n" {
		t.Errorf("unexpected warn output: %q", got)
	}
}

func TestConcurrentAccess(t *testing.T) {
	capture(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			SetVerbose(i%2 == 0)
			Debug("concurrent %d", i)
			Info("concurrent %d", i)
			IsVerbose()
		}(i)
	}
	wg.Wait()
}
