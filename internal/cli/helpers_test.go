package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"
)

func TestIsInterrupted(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"Nil", nil, false},
		{"Canceled", context.Canceled, true},
		{"Wrapped Canceled", fmt.Errorf("run 3: %w", context.Canceled), true},
		{"EOF", io.EOF, true},
		{"Reader Interrupt", errors.New("interrupted"), true},
		{"Plain Failure", errors.New("propagation diverged"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isInterrupted(tc.err); got != tc.want {
				t.Errorf("isInterrupted(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestHandleExecutionError(t *testing.T) {
	if err := handleExecutionError(nil); err != nil {
		t.Errorf("handleExecutionError(nil) = %v", err)
	}
	if err := handleExecutionError(context.Canceled); err != nil {
		t.Errorf("handleExecutionError(canceled) = %v, want nil", err)
	}
	boom := errors.New("boom")
	if err := handleExecutionError(boom); !errors.Is(err, boom) {
		t.Errorf("handleExecutionError(boom) = %v, want boom", err)
	}
}

func TestInterruptibleReader(t *testing.T) {
	cancel := make(chan struct{})
	r := NewInterruptibleReader(strings.NewReader("hello"), cancel)

	buf := make([]byte, 5)
	n, err := r.Read(buf)
	if err != nil || n != 5 {
		t.Fatalf("Read() = %d, %v, want 5, nil", n, err)
	}

	close(cancel)
	if _, err := r.Read(buf); err == nil || err.Error() != "interrupted" {
		t.Errorf("Read() after cancel error = %v, want interrupted", err)
	}
}

func TestSignalContext_CancelWithoutSignal(t *testing.T) {
	sc := NewSignalContext(context.Background())
	sc.Cancel()

	select {
	case <-sc.Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled")
	}
	if sig := sc.Signal(); sig != nil {
		t.Errorf("Signal() = %v, want nil", sig)
	}
}
