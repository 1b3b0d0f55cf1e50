package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormattingIncludesFields(t *testing.T) {
	err := New(
		"core.authorized_request",
		CodeTransport,
		WithHTTP(502),
		WithMessage("bad gateway"),
		WithRawMessage("<html>upstream</html>"),
		WithCause(errors.New("freedom24 http 502")),
	)

	out := err.Error()
	if !strings.Contains(out, "code=transport") {
		t.Fatalf("expected code marker in error string: %s", out)
	}
	if !strings.Contains(out, "op=core.authorized_request") {
		t.Fatalf("expected op marker in error string: %s", out)
	}
	if !strings.Contains(out, "http=502") {
		t.Fatalf("expected http status in error string: %s", out)
	}
	if !strings.Contains(out, "raw_msg=\"<html>upstream</html>\"") {
		t.Fatalf("expected raw body in error string: %s", out)
	}
	if !strings.Contains(out, "cause=\"freedom24 http 502\"") {
		t.Fatalf("expected wrapped cause in error string: %s", out)
	}
}

func TestDecodeErrorCarriesPath(t *testing.T) {
	err := New("opq.decode", CodeDecode, WithPath("OPQ.ps.pos[0].q"))
	if !strings.Contains(err.Error(), `path="OPQ.ps.pos[0].q"`) {
		t.Fatalf("expected path in error string: %s", err.Error())
	}
}

func TestIsMatchesWrappedEnvelope(t *testing.T) {
	wrapped := fmt.Errorf("user info: %w", MissingKeypair("core.authorized_request"))
	if !Is(wrapped, CodeMissingKeypair) {
		t.Fatalf("expected wrapped error to match missing keypair")
	}
	if Is(wrapped, CodeTransport) {
		t.Fatalf("unexpected transport match")
	}
	if Is(errors.New("plain"), CodeInvalid) {
		t.Fatalf("plain errors never match")
	}
}

func TestUnsupportedVersionRecordsVersion(t *testing.T) {
	err := UnsupportedVersion("core.authorized_request", 4)
	if err.Version != 4 {
		t.Fatalf("expected version 4, got %d", err.Version)
	}
	if !strings.Contains(err.Error(), "unsupported API version: 4") {
		t.Fatalf("unexpected message: %s", err.Error())
	}
}

func TestNilErrorString(t *testing.T) {
	var e *E
	if got := e.Error(); got != "<nil>" {
		t.Fatalf("expected <nil> string for nil error, got %q", got)
	}
}
