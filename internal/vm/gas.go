package vm

// gasCounter tracks cumulative charges against a frozen limit. It is the
// single point of enforcement for the "gas_counter <= gas_limit at every
// observable moment, no side effect before the check" invariant in spec §3.
//
// Unlike the teacher's GasTank (sync/atomic counters shared across
// goroutines), this is a plain unsynchronized struct: a Runtime is owned by
// exactly one invocation and never observed concurrently (spec §5), so
// atomics would only hide bugs, not prevent races that can't occur here.
type gasCounter struct {
	counter uint64
	limit   uint64
}

func newGasCounter(limit uint64) *gasCounter {
	return &gasCounter{limit: limit}
}

// charge attempts to add amount to the counter. It computes the new total
// first, rejects it without mutating state if it would exceed the limit,
// and only then commits — never charge-then-rollback. See DESIGN.md "Open
// Question decisions" #5.
func (g *gasCounter) charge(amount uint64) *Error {
	next := g.counter + amount
	if next < g.counter || next > g.limit {
		return ErrGasLimitReached()
	}
	g.counter = next
	return nil
}

// refund gives back gas that a sub-call or create did not consume. It can
// never take the counter below zero or above what was previously charged.
func (g *gasCounter) refund(amount uint64) *Error {
	if amount > g.counter {
		return ErrInvalidGas()
	}
	g.counter -= amount
	return nil
}

func (g *gasCounter) left() uint64 {
	return g.limit - g.counter
}

func (g *gasCounter) spent() uint64 {
	return g.counter
}
