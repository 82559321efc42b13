package vm

import "fmt"

// Error is the closed taxonomy of host-side failures a contract invocation
// can produce. Every host call that can fail returns one of these (wrapped
// in a wasmer trap by the engine) rather than a bare error string, so the
// driver can tell a gas-limit failure from a storage failure from a
// contract-triggered panic.
type Error struct {
	kind ErrorKind
	msg  string
}

// ErrorKind enumerates the variants. Values with no payload besides the
// kind itself use msg == "".
type ErrorKind int

const (
	// ErrMemoryAccessViolation: a host call touched sandbox memory outside
	// the bounds the engine's checked accessor allows.
	ErrMemoryAccessViolation ErrorKind = iota
	// ErrStorageReadError: the state provider failed to read a storage slot.
	ErrStorageReadError
	// ErrStorageUpdateError: the state provider failed to write a storage slot.
	ErrStorageUpdateError
	// ErrBalanceQueryError: the state provider failed to report a balance.
	ErrBalanceQueryError
	// ErrSuicideAbort: the state provider refused to register self-destruct.
	ErrSuicideAbort
	// ErrLog: reserved; no host call in this surface produces it.
	ErrLog
	// ErrGasLimit: a charge would have pushed gas_counter past gas_limit.
	ErrGasLimit
	// ErrInvalidGasState: the gas counter observed an internal inconsistency
	// (e.g. a negative refund larger than the amount charged).
	ErrInvalidGasState
	// ErrInvalidSyscall: the engine reported an argument-type mismatch at
	// the host boundary.
	ErrInvalidSyscall
	// ErrUnknown: dispatch reached an index with no mapped host function.
	// This is never returned to a caller — see Runtime.Invoke, which treats
	// it as a driver invariant violation and panics instead.
	ErrUnknown
	// ErrBadUtf8: debug() was called with a non-UTF-8 payload.
	ErrBadUtf8
	// ErrSuicide: the contract invoked suicide(); terminal, not a failure.
	ErrSuicide
	// ErrPanic: the contract invoked panic() with a decoded payload.
	ErrPanic
	// ErrOther: catch-all. Produced by a failed blockhash lookup, by the
	// splitter and driver for framing/decode/instantiation failures, and by
	// translateEngineError for engine errors it cannot classify.
	ErrOther
	// ErrAllocationFailed: reserved; no host call in this surface produces it.
	ErrAllocationFailed
)

func (e *Error) Kind() ErrorKind { return e.kind }

func (e *Error) Error() string {
	switch e.kind {
	case ErrMemoryAccessViolation:
		return "memory access violation"
	case ErrStorageReadError:
		return "storage read error"
	case ErrStorageUpdateError:
		return "storage update error"
	case ErrBalanceQueryError:
		return "balance query error"
	case ErrSuicideAbort:
		return "suicide abort"
	case ErrLog:
		return "log error"
	case ErrGasLimit:
		return "gas limit reached"
	case ErrInvalidGasState:
		return "invalid gas state"
	case ErrInvalidSyscall:
		return "invalid syscall"
	case ErrUnknown:
		return "unknown error"
	case ErrBadUtf8:
		return "bad utf-8"
	case ErrSuicide:
		return "contract suicide"
	case ErrPanic:
		return fmt.Sprintf("Panic: %s", e.msg)
	case ErrOther:
		if e.msg != "" {
			return e.msg
		}
		return "other error"
	case ErrAllocationFailed:
		return "allocation failed"
	default:
		return "unrecognized error"
	}
}

// WasmError is what the driver hands back to the outer VM on any
// non-successful termination. Its Display mirrors the source runtime's
// "Wasm runtime error: <display>" convention.
type WasmError struct {
	Inner error
}

func (e *WasmError) Error() string {
	return fmt.Sprintf("Wasm runtime error: %s", e.Inner)
}

func (e *WasmError) Unwrap() error { return e.Inner }

func newErr(kind ErrorKind) *Error { return &Error{kind: kind} }

func ErrMemoryAccess() *Error    { return newErr(ErrMemoryAccessViolation) }
func ErrStorageRead() *Error     { return newErr(ErrStorageReadError) }
func ErrStorageUpdate() *Error   { return newErr(ErrStorageUpdateError) }
func ErrBalanceQuery() *Error    { return newErr(ErrBalanceQueryError) }
func ErrSuicideAborted() *Error  { return newErr(ErrSuicideAbort) }
func ErrGasLimitReached() *Error { return newErr(ErrGasLimit) }
func ErrInvalidGas() *Error      { return newErr(ErrInvalidGasState) }
func ErrSyscall() *Error         { return newErr(ErrInvalidSyscall) }
func ErrBadUTF8() *Error         { return newErr(ErrBadUtf8) }
func ErrSuicided() *Error        { return newErr(ErrSuicide) }
func ErrOtherf(format string, a ...any) *Error {
	return &Error{kind: ErrOther, msg: fmt.Sprintf(format, a...)}
}

// ErrPanicked builds the Panic variant carrying the decoded display string
// produced by decodePanicPayload.
func ErrPanicked(msg string) *Error {
	return &Error{kind: ErrPanic, msg: msg}
}

// translateEngineError maps an error surfaced by the wasm engine itself
// (as opposed to one returned by a host function) into the Runtime's own
// taxonomy, per spec §7: value-type errors -> InvalidSyscall, memory
// errors -> MemoryAccessViolation, anything else -> Other.
func translateEngineError(err error) *Error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case containsAny(msg, "memory", "out of bounds", "oob"):
		return ErrMemoryAccess()
	case containsAny(msg, "type mismatch", "argument", "signature"):
		return ErrSyscall()
	default:
		return ErrOtherf("%s", msg)
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if indexFold(s, sub) >= 0 {
			return true
		}
	}
	return false
}

// indexFold is a tiny case-insensitive substring search, avoiding a
// strings.ToLower allocation per candidate on the common "no match" path.
func indexFold(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		matched := true
		for j := 0; j < m; j++ {
			a, b := s[i+j], sub[j]
			if 'A' <= a && a <= 'Z' {
				a += 'a' - 'A'
			}
			if 'A' <= b && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				matched = false
				break
			}
		}
		if matched {
			return i
		}
	}
	return -1
}
