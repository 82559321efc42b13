package vm

import (
	"strings"
	"testing"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		err  *Error
		want string
	}{
		{ErrMemoryAccess(), "memory access violation"},
		{ErrStorageRead(), "storage read error"},
		{ErrStorageUpdate(), "storage update error"},
		{ErrBalanceQuery(), "balance query error"},
		{ErrSuicideAborted(), "suicide abort"},
		{ErrGasLimitReached(), "gas limit reached"},
		{ErrInvalidGas(), "invalid gas state"},
		{ErrSyscall(), "invalid syscall"},
		{ErrBadUTF8(), "bad utf-8"},
		{ErrSuicided(), "contract suicide"},
		{ErrPanicked("boom, x.rs:12:3"), "Panic: boom, x.rs:12:3"},
	}
	for _, c := range cases {
		if got := c.err.Error(); got != c.want {
			t.Errorf("Error() = %q, want %q", got, c.want)
		}
	}
}

func TestWasmErrorWrapsAndUnwraps(t *testing.T) {
	inner := ErrGasLimitReached()
	wrapped := &WasmError{Inner: inner}
	if !strings.Contains(wrapped.Error(), "Wasm runtime error:") {
		t.Fatalf("WasmError.Error() = %q, missing prefix", wrapped.Error())
	}
	if wrapped.Unwrap() != inner {
		t.Fatal("Unwrap() did not return the wrapped error")
	}
}

func TestTranslateEngineErrorMapping(t *testing.T) {
	cases := []struct {
		msg  string
		want ErrorKind
	}{
		{"out of bounds memory access", ErrMemoryAccessViolation},
		{"memory fault", ErrMemoryAccessViolation},
		{"type mismatch in argument 2", ErrInvalidSyscall},
		{"function signature mismatch", ErrInvalidSyscall},
		{"something else entirely", ErrOther},
	}
	for _, c := range cases {
		got := translateEngineError(errString(c.msg))
		if got.Kind() != c.want {
			t.Errorf("translateEngineError(%q).Kind() = %v, want %v", c.msg, got.Kind(), c.want)
		}
	}
	if translateEngineError(nil) != nil {
		t.Fatal("translateEngineError(nil) should be nil")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
