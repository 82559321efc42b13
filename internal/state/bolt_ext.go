package state

import (
	"fmt"

	"github.com/empower1/wasmhost/internal/vm"
	"github.com/holiman/uint256"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketStorage  = []byte("storage")
	bucketBalances = []byte("balances")
	bucketCode     = []byte("code")
)

// BoltState is a durable vm.Ext backed by a bbolt file, for callers that
// want contract state to survive process restarts. Storage, code, and
// balances all persist to the bucketed bbolt file; MemState's in-memory
// maps stay the live working set during one process's lifetime (so
// Call's lock-protected arithmetic doesn't need a transaction per touch)
// and are mirrored into bucketBalances on every mutation, then reloaded
// from it the next time the file is opened.
type BoltState struct {
	*MemState
	db *bolt.DB
}

// OpenBoltState opens (creating if necessary) a bbolt database at path,
// loads any previously persisted balances into a fresh MemState, and
// wraps it around the bbolt handle.
func OpenBoltState(path string) (*BoltState, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("state: open bolt db: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketStorage, bucketBalances, bucketCode} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("state: init buckets: %w", err)
	}

	ms := NewMemState(nil)
	err = db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBalances).ForEach(func(k, v []byte) error {
			var addr vm.Address
			copy(addr[:], k)
			ms.Credit(addr, new(uint256.Int).SetBytes(v))
			return nil
		})
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("state: load balances: %w", err)
	}

	return &BoltState{MemState: ms, db: db}, nil
}

// persistBalance mirrors addr's current in-memory balance into
// bucketBalances, so it survives the next OpenBoltState.
func (b *BoltState) persistBalance(addr vm.Address) error {
	bal, err := b.MemState.Balance(addr)
	if err != nil {
		return err
	}
	buf := bal.Bytes32()
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBalances).Put(addr[:], buf[:])
	})
}

func (b *BoltState) Close() error { return b.db.Close() }

func storageCompositeKey(addr vm.Address, key vm.Hash) []byte {
	out := make([]byte, 0, 40)
	out = append(out, addr[:]...)
	out = append(out, key[:]...)
	return out
}

func (b *BoltState) StorageAt(addr vm.Address, key vm.Hash) (vm.Hash, error) {
	var h vm.Hash
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketStorage).Get(storageCompositeKey(addr, key))
		if v != nil {
			copy(h[:], v)
		}
		return nil
	})
	return h, err
}

func (b *BoltState) SetStorage(addr vm.Address, key, value vm.Hash) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketStorage).Put(storageCompositeKey(addr, key), value[:])
	})
}

func (b *BoltState) StoreCode(addr vm.Address, code []byte) {
	_ = b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCode).Put(addr[:], code)
	})
	b.MemState.StoreCode(addr, code)
}

func (b *BoltState) Code(addr vm.Address) []byte {
	var out []byte
	_ = b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketCode).Get(addr[:])
		out = append([]byte(nil), v...)
		return nil
	})
	return out
}

func (b *BoltState) Create(sender vm.Address, endowment *uint256.Int, code []byte, gas uint64) (vm.Address, uint64, bool, error) {
	addr, gasLeft, reverted, err := b.MemState.Create(sender, endowment, code, gas)
	if err != nil || reverted {
		return addr, gasLeft, reverted, err
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketCode).Put(addr[:], code)
	}); err != nil {
		return addr, gasLeft, reverted, err
	}
	if endowment != nil && !endowment.IsZero() {
		if err := b.persistBalance(addr); err != nil {
			return addr, gasLeft, reverted, err
		}
	}
	return addr, gasLeft, reverted, nil
}

// Credit seeds addr's balance directly, as MemState.Credit does, and
// mirrors the result into bucketBalances.
func (b *BoltState) Credit(addr vm.Address, amount *uint256.Int) {
	b.MemState.Credit(addr, amount)
	_ = b.persistBalance(addr)
}

// Call delegates to MemState's in-process balance transfer and persists
// both sides of a non-zero transfer.
func (b *BoltState) Call(callType vm.CallType, gas uint64, sender, receiver vm.Address, value *uint256.Int, input []byte, outLen uint32) (uint64, []byte, bool, error) {
	gasLeft, output, reverted, err := b.MemState.Call(callType, gas, sender, receiver, value, input, outLen)
	if err == nil && !reverted && value != nil && !value.IsZero() {
		_ = b.persistBalance(sender)
		_ = b.persistBalance(receiver)
	}
	return gasLeft, output, reverted, err
}

// Suicide delegates to MemState's balance sweep and persists both the
// zeroed self-destructed balance and the refund recipient's new balance.
func (b *BoltState) Suicide(addr, refundTo vm.Address) (bool, error) {
	newAccount, err := b.MemState.Suicide(addr, refundTo)
	if err != nil {
		return newAccount, err
	}
	if perr := b.persistBalance(addr); perr != nil {
		return newAccount, perr
	}
	if perr := b.persistBalance(refundTo); perr != nil {
		return newAccount, perr
	}
	return newAccount, nil
}

var _ vm.Ext = (*BoltState)(nil)
