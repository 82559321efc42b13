package vm

import (
	"testing"

	"github.com/wasmerio/wasmer-go/wasmer"
)

func TestInvokeUnknownIndexPanics(t *testing.T) {
	rt := NewRuntime(RuntimeContext{}, 1000, nil, nil, DefaultSchedule(), nil, nil)

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("Invoke with an unmapped index should panic")
		}
		verr, ok := r.(*Error)
		if !ok {
			t.Fatalf("panic value = %T, want *Error", r)
		}
		if verr.Kind() != ErrOther {
			t.Fatalf("panic Error kind = %v, want ErrOther", verr.Kind())
		}
	}()

	_, _ = rt.Invoke(9999, nil)
}

func TestValueConversionHelpers(t *testing.T) {
	if got := i32(wasmer.NewI32(42)); got != 42 {
		t.Fatalf("i32() = %d, want 42", got)
	}
	if got := i64(wasmer.NewI64(-1)); got != uint64(^uint64(0)) {
		t.Fatalf("i64(-1) = %d, want max uint64", got)
	}
	vals := retI32(7)
	if len(vals) != 1 || vals[0].I32() != 7 {
		t.Fatalf("retI32(7) = %+v", vals)
	}
	vals64 := retI64(99)
	if len(vals64) != 1 || vals64[0].I64() != 99 {
		t.Fatalf("retI64(99) = %+v", vals64)
	}
	v, err := retVoid()
	if v != nil || err != nil {
		t.Fatalf("retVoid() = %v, %v, want nil, nil", v, err)
	}
}

func TestGasLeftAndDissolve(t *testing.T) {
	rt := NewRuntime(RuntimeContext{}, 1000, nil, nil, DefaultSchedule(), nil, nil)
	if rt.GasLeft() != 1000 {
		t.Fatalf("GasLeft() = %d, want 1000", rt.GasLeft())
	}
	if err := rt.charge(400); err != nil {
		t.Fatalf("charge: %v", err)
	}
	if rt.GasLeft() != 600 {
		t.Fatalf("GasLeft() after charge = %d, want 600", rt.GasLeft())
	}

	rt.result = []byte("output")
	got := rt.Dissolve()
	if string(got) != "output" {
		t.Fatalf("Dissolve() = %q, want %q", got, "output")
	}
	if rt.Dissolve() != nil {
		t.Fatal("Dissolve() should return nil on a second call")
	}
}
