// Package state provides reference implementations of vm.Ext: the
// blockchain-state capability a Runtime borrows for one contract
// invocation.
package state

import (
	"encoding/hex"
	"sync"

	"github.com/empower1/wasmhost/internal/vm"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// MemState is an in-memory vm.Ext, adapted from the account/contract
// storage shape of an earlier version of this package: hex-string-keyed
// nested maps guarded by one RWMutex, with copy-on-read/write semantics
// so callers can never observe or corrupt another invocation's buffer.
type MemState struct {
	mu       sync.RWMutex
	balances map[string]*uint256.Int
	storage  map[string]map[string][32]byte
	code     map[string][]byte
	exists   map[string]bool
	dead     map[string]bool
	blocks   map[uint64][32]byte
	env      vm.EnvInfo
	logger   *zap.SugaredLogger
}

// NewMemState constructs an empty in-memory state, ready to back contract
// invocations in tests and the demo CLI.
func NewMemState(logger *zap.SugaredLogger) *MemState {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &MemState{
		balances: make(map[string]*uint256.Int),
		storage:  make(map[string]map[string][32]byte),
		code:     make(map[string][]byte),
		exists:   make(map[string]bool),
		dead:     make(map[string]bool),
		blocks:   make(map[uint64][32]byte),
		logger:   logger,
	}
}

func addrKey(a vm.Address) string { return hex.EncodeToString(a[:]) }
func hashKey(h vm.Hash) string    { return hex.EncodeToString(h[:]) }

// SetEnvInfo installs the block metadata coinbase/difficulty/gaslimit/
// timestamp/blocknumber host calls will read.
func (s *MemState) SetEnvInfo(env vm.EnvInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = env
}

// SetBlockHash registers the hash for a given block number, consulted by
// the blockhash host call.
func (s *MemState) SetBlockHash(number uint64, h vm.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[number] = h
}

// Credit adds to addr's balance directly, bypassing any call protocol —
// used by tests and the CLI to seed initial balances.
func (s *MemState) Credit(addr vm.Address, amount *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addrKey(addr)
	bal, ok := s.balances[key]
	if !ok {
		bal = uint256.NewInt(0)
	}
	s.balances[key] = new(uint256.Int).Add(bal, amount)
	s.exists[key] = true
}

// StoreCode installs the (already metered) code for addr — used by tests
// and Create's callback wiring; Create itself is expected to call this
// when it accepts a deployment.
func (s *MemState) StoreCode(addr vm.Address, code []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.code[addrKey(addr)] = append([]byte(nil), code...)
	s.exists[addrKey(addr)] = true
}

func (s *MemState) Code(addr vm.Address) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]byte(nil), s.code[addrKey(addr)]...)
}

func (s *MemState) StorageAt(addr vm.Address, key vm.Hash) (vm.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket, ok := s.storage[addrKey(addr)]
	if !ok {
		return vm.Hash{}, nil
	}
	v, ok := bucket[hashKey(key)]
	if !ok {
		return vm.Hash{}, nil
	}
	return vm.Hash(v), nil
}

func (s *MemState) SetStorage(addr vm.Address, key, value vm.Hash) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ak := addrKey(addr)
	bucket, ok := s.storage[ak]
	if !ok {
		bucket = make(map[string][32]byte)
		s.storage[ak] = bucket
	}
	bucket[hashKey(key)] = [32]byte(value)
	s.exists[ak] = true
	return nil
}

func (s *MemState) Balance(addr vm.Address) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bal, ok := s.balances[addrKey(addr)]
	if !ok {
		return uint256.NewInt(0), nil
	}
	return new(uint256.Int).Set(bal), nil
}

func (s *MemState) Exists(addr vm.Address) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.exists[addrKey(addr)], nil
}

func (s *MemState) BlockHash(number uint64) (vm.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.blocks[number], nil
}

func (s *MemState) EnvInfo() vm.EnvInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.env
}

// Call performs an in-process sub-invocation by simply moving value
// between balances; the call itself is not recorded, and it does not re-enter the WASM
// driver (nothing here knows how to run another contract's bytecode) —
// this is a reference stand-in for tests that exercise the gas/refund
// protocol around ccall/dcall/scall without needing a nested VM.
func (s *MemState) Call(callType vm.CallType, gas uint64, sender, receiver vm.Address, value *uint256.Int, input []byte, outLen uint32) (uint64, []byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value != nil && !value.IsZero() {
		sk, rk := addrKey(sender), addrKey(receiver)
		bal := s.balances[sk]
		if bal == nil {
			bal = uint256.NewInt(0)
		}
		if bal.Lt(value) {
			return gas, nil, true, nil
		}
		s.balances[sk] = new(uint256.Int).Sub(bal, value)
		rbal := s.balances[rk]
		if rbal == nil {
			rbal = uint256.NewInt(0)
		}
		s.balances[rk] = new(uint256.Int).Add(rbal, value)
		s.exists[rk] = true
	}
	out := make([]byte, 0, outLen)
	return gas, out, false, nil
}

// Create registers new code at a deterministically derived address (the
// caller's address with the low byte flipped — adequate for tests, not a
// production address-derivation scheme) and credits it with endowment.
func (s *MemState) Create(sender vm.Address, endowment *uint256.Int, code []byte, gas uint64) (vm.Address, uint64, bool, error) {
	addr := sender
	addr[19] ^= 0xff
	s.StoreCode(addr, code)
	if endowment != nil && !endowment.IsZero() {
		s.Credit(addr, endowment)
	}
	return addr, gas, false, nil
}

func (s *MemState) Suicide(addr, refundTo vm.Address) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ak, rk := addrKey(addr), addrKey(refundTo)
	newAccount := !s.exists[rk]
	bal := s.balances[ak]
	if bal != nil && !bal.IsZero() {
		rbal := s.balances[rk]
		if rbal == nil {
			rbal = uint256.NewInt(0)
		}
		s.balances[rk] = new(uint256.Int).Add(rbal, bal)
		s.exists[rk] = true
	}
	s.balances[ak] = uint256.NewInt(0)
	s.dead[ak] = true
	return newAccount, nil
}

var _ vm.Ext = (*MemState)(nil)
