package vm

import "github.com/holiman/uint256"

// Address is a 20-byte account identifier. It carries no derivation logic
// here — the outer VM is responsible for producing and verifying it.
type Address [20]byte

// Hash is a 32-byte value, used both for storage keys/values and for
// blockhash results.
type Hash [32]byte

// ParamsType selects how ActionParams.Code is framed.
type ParamsType int

const (
	// Embedded: Code begins with a self-delimiting serialized module,
	// followed by the input data as a trailing tail.
	Embedded ParamsType = iota
	// Separate: Code is exactly the module; Data carries the input.
	Separate
)

// ActionParams is the external input to one contract invocation.
type ActionParams struct {
	Code       []byte
	Data       []byte
	ParamsType ParamsType
	Gas        *uint256.Int
	Value      *uint256.Int
	Address    Address // self
	Sender     Address
	Origin     Address
	CodeAddr   Address
}

// RuntimeContext is the immutable snapshot of invocation identity handed
// to the Runtime; it never changes over the life of one invocation.
type RuntimeContext struct {
	Address  Address
	Sender   Address
	Origin   Address
	CodeAddr Address
	Value    uint256.Int
}

// CallType distinguishes the three contract-to-contract call host
// functions. They differ in sender/recipient selection and in value
// transfer: only CallTypeCall carries a value.
type CallType int

const (
	CallTypeCall CallType = iota
	CallTypeDelegateCall
	CallTypeStaticCall
)

// GasLeftKind discriminates the driver's result shape.
type GasLeftKind int

const (
	GasLeftKnown GasLeftKind = iota
	GasLeftNeedsReturn
)

// GasLeft is the result the driver hands back to the outer VM.
type GasLeft struct {
	Kind        GasLeftKind
	Gas         uint64
	Data        []byte
	ApplyState  bool
}

func KnownGasLeft(gas uint64) GasLeft {
	return GasLeft{Kind: GasLeftKnown, Gas: gas}
}

func NeedsReturnGasLeft(gas uint64, data []byte) GasLeft {
	return GasLeft{Kind: GasLeftNeedsReturn, Gas: gas, Data: data, ApplyState: true}
}
