package vm

// Rules is the gas-rule table: a mapping from instruction category to a
// unit cost, built once from the active Schedule and consulted by the
// metering injector for every instruction it costs. Kept as its own type
// (rather than inlining Schedule lookups into metering.go) so the
// gas-rule-table-builder component spec.md describes has a concrete home,
// mirroring parser.rs's gas_rules(schedule) -> rules::Set.
type Rules struct {
	mem, div, mul, base uint64
}

// BuildRules constructs the rule table for one schedule. Categorization:
// memory loads/stores -> wasm.mem, integer division -> wasm.div, integer
// multiplication -> wasm.mul, everything else -> the uniform default (1).
func BuildRules(sched *Schedule) *Rules {
	return &Rules{
		mem:  sched.Wasm.Mem,
		div:  sched.Wasm.Div,
		mul:  sched.Wasm.Mul,
		base: 1,
	}
}

// Cost returns the metering cost of a single decoded instruction.
func (r *Rules) Cost(ins Instr) uint64 {
	switch {
	case ins.Op >= opMemLoadLo && ins.Op <= opMemLoadHi:
		return r.mem
	case ins.Op >= opMemStoreLo && ins.Op <= opMemStoreHi:
		return r.mem
	case ins.Op == opI32DivS || ins.Op == opI32DivU || ins.Op == opI32RemS || ins.Op == opI32RemU:
		return r.div
	case ins.Op == opI64DivSLo || ins.Op == opI64DivULo || ins.Op == opI64RemSLo || ins.Op == opI64RemULo:
		return r.div
	case ins.Op == opI32Mul || ins.Op == opI64MulLo:
		return r.mul
	default:
		return r.base
	}
}
