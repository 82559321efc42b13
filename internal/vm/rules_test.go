package vm

import "testing"

func TestRulesCostCategorization(t *testing.T) {
	sched := DefaultSchedule()
	r := BuildRules(sched)

	cases := []struct {
		name string
		ins  Instr
		want uint64
	}{
		{"i32.load", Instr{Op: opMemLoadLo}, sched.Wasm.Mem},
		{"i32.store", Instr{Op: opMemStoreLo}, sched.Wasm.Mem},
		{"i32.div_s", Instr{Op: opI32DivS}, sched.Wasm.Div},
		{"i32.div_u", Instr{Op: opI32DivU}, sched.Wasm.Div},
		{"i32.rem_u", Instr{Op: opI32RemU}, sched.Wasm.Div},
		{"i64.div_s", Instr{Op: opI64DivSLo}, sched.Wasm.Div},
		{"i32.mul", Instr{Op: opI32Mul}, sched.Wasm.Mul},
		{"i64.mul", Instr{Op: opI64MulLo}, sched.Wasm.Mul},
		{"i32.const", Instr{Op: opI32Const}, 1},
		{"local.get", Instr{Op: opLocalGet}, 1},
	}
	for _, c := range cases {
		if got := r.Cost(c.ins); got != c.want {
			t.Errorf("%s: Cost = %d, want %d", c.name, got, c.want)
		}
	}
}
