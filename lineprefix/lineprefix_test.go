package lineprefix_test

import (
	"bytes"
	"testing"

	"github.com/vanadium-labs/asynclock/lineprefix"
)

func TestPrefixesCompleteLines(t *testing.T) {
	var buf bytes.Buffer
	w := lineprefix.New(&buf, "[x] ")
	if _, err := w.Write([]byte("one\ntwo\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := buf.String(), "[x] one\n[x] two\n"; got != want {
		t.Fatalf("buf = %q, want %q", got, want)
	}
}

func TestBuffersPartialLineUntilNextWrite(t *testing.T) {
	var buf bytes.Buffer
	w := lineprefix.New(&buf, "[x] ")
	if _, err := w.Write([]byte("par")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("buf = %q, want nothing written before a newline", buf.String())
	}
	if _, err := w.Write([]byte("tial\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := buf.String(), "[x] partial\n"; got != want {
		t.Fatalf("buf = %q, want %q", got, want)
	}
}

func TestCloseFlushesTrailingPartialLine(t *testing.T) {
	var buf bytes.Buffer
	w := lineprefix.New(&buf, "[x] ")
	if _, err := w.Write([]byte("no newline")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if got, want := buf.String(), "[x] no newline"; got != want {
		t.Fatalf("buf = %q, want %q", got, want)
	}
}
