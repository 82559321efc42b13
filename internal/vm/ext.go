package vm

import "github.com/holiman/uint256"

// Ext is the blockchain-state capability the Runtime borrows for exactly
// one invocation. It is never owned by the Runtime — the caller
// (the outer VM / execution driver) constructs it, hands it in, and
// reclaims it when the invocation ends. No method here may be called
// concurrently; the Runtime is single-threaded per spec §5.
type Ext interface {
	// StorageAt reads a 32-byte value for a 32-byte key under the given
	// contract address.
	StorageAt(addr Address, key Hash) (Hash, error)
	// SetStorage writes a 32-byte value for a 32-byte key under the given
	// contract address.
	SetStorage(addr Address, key, value Hash) error
	// Balance returns the current balance of addr.
	Balance(addr Address) (*uint256.Int, error)
	// Exists reports whether addr has any account state.
	Exists(addr Address) (bool, error)
	// BlockHash returns the hash of the block at the given number, or the
	// zero hash if it is out of the retained window.
	BlockHash(number uint64) (Hash, error)
	// EnvInfo returns the block metadata the coinbase/difficulty/gaslimit/
	// timestamp/blocknumber host calls read.
	EnvInfo() EnvInfo
	// Call performs a sub-invocation of another (or the same) contract.
	// gas is the budget forwarded to the callee; it returns the gas left
	// over after the sub-call completes (refundable by the caller) and
	// whether the sub-call reverted.
	Call(callType CallType, gas uint64, sender, receiver Address, value *uint256.Int, input []byte, outLen uint32) (gasLeft uint64, output []byte, reverted bool, err error)
	// Create deploys new contract code, charging value as its initial
	// balance. It returns the resulting address and gas left over.
	Create(sender Address, endowment *uint256.Int, code []byte, gas uint64) (addr Address, gasLeft uint64, reverted bool, err error)
	// Suicide marks addr for self-destruct, crediting refundTo. beneficiary
	// existence (new-account cost) is reported via newAccount.
	Suicide(addr, refundTo Address) (newAccount bool, err error)
}

// EnvInfo is the subset of block metadata host calls expose to contracts.
type EnvInfo struct {
	Number     uint64
	Timestamp  uint64
	Coinbase   Address
	Difficulty uint256.Int
	GasLimit   uint256.Int
}
