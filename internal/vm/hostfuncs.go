package vm

import (
	"bytes"
	"unicode/utf8"

	"github.com/holiman/uint256"
	"github.com/wasmerio/wasmer-go/wasmer"
)

func (rt *Runtime) hostStorageRead(args []wasmer.Value) ([]wasmer.Value, error) {
	keyPtr, dstPtr := i32(args[0]), i32(args[1])
	if err := rt.charge(rt.sched.SloadGas); err != nil {
		return nil, err
	}
	key, err := rt.readHash(keyPtr)
	if err != nil {
		return nil, err
	}
	val, gerr := rt.ext.StorageAt(rt.ctx.Address, key)
	if gerr != nil {
		return nil, ErrStorageRead()
	}
	if err := rt.writeHash(dstPtr, val); err != nil {
		return nil, err
	}
	return retVoid()
}

func (rt *Runtime) hostStorageWrite(args []wasmer.Value) ([]wasmer.Value, error) {
	keyPtr, valPtr := i32(args[0]), i32(args[1])
	if err := rt.charge(rt.sched.SstoreSetGas); err != nil {
		return nil, err
	}
	key, err := rt.readHash(keyPtr)
	if err != nil {
		return nil, err
	}
	val, err := rt.readHash(valPtr)
	if err != nil {
		return nil, err
	}
	if gerr := rt.ext.SetStorage(rt.ctx.Address, key, val); gerr != nil {
		return nil, ErrStorageUpdate()
	}
	return retVoid()
}

func (rt *Runtime) hostRet(args []wasmer.Value) ([]wasmer.Value, error) {
	ptr, length := i32(args[0]), i32(args[1])
	b, err := rt.memSlice(ptr, length)
	if err != nil {
		return nil, err
	}
	rt.result = append([]byte(nil), b...)
	return retVoid()
}

func (rt *Runtime) hostGas(args []wasmer.Value) ([]wasmer.Value, error) {
	amount := i32(args[0])
	if err := rt.charge(uint64(amount)); err != nil {
		return nil, err
	}
	return retVoid()
}

// hostFetchInput implements fetch_input(dst_ptr); no charge, per spec §4.3.
func (rt *Runtime) hostFetchInput(args []wasmer.Value) ([]wasmer.Value, error) {
	dstPtr := i32(args[0])
	b, err := rt.memSlice(dstPtr, uint32(len(rt.args)))
	if err != nil {
		return nil, err
	}
	copy(b, rt.args)
	return retVoid()
}

// hostInputLength implements input_length(); spec's Open Question #2
// treats its documented arity as zero even though the resolver binds it
// with no parameters, matching the authoritative table in spec §6.
func (rt *Runtime) hostInputLength(args []wasmer.Value) ([]wasmer.Value, error) {
	return retI32(int32(len(rt.args))), nil
}

func (rt *Runtime) hostPanic(args []wasmer.Value) ([]wasmer.Value, error) {
	ptr, length := i32(args[0]), i32(args[1])
	b, err := rt.memSlice(ptr, length)
	if err != nil {
		return nil, err
	}
	msg := decodePanicPayload(b)
	return nil, ErrPanicked(msg)
}

func (rt *Runtime) hostDebug(args []wasmer.Value) ([]wasmer.Value, error) {
	ptr, length := i32(args[0]), i32(args[1])
	b, err := rt.memSlice(ptr, length)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(b) {
		return nil, ErrBadUTF8()
	}
	if rt.log != nil {
		rt.log.Debugf("contract debug: %s", string(b))
	}
	return retVoid()
}

// hostCall implements ccall/dcall/scall. ccall carries an extra value_ptr
// argument (value transfer); dcall/scall do not, per spec §6's arities.
func (rt *Runtime) hostCall(callType CallType, args []wasmer.Value) ([]wasmer.Value, error) {
	gas := i64(args[0])
	addrPtr := i32(args[1])
	idx := 2
	var value *uint256.Int
	if callType == CallTypeCall {
		valPtr := i32(args[idx])
		idx++
		b, err := rt.memSlice(valPtr, 32)
		if err != nil {
			return nil, err
		}
		value = new(uint256.Int).SetBytes(b)
	} else {
		value = uint256.NewInt(0)
	}
	inPtr, inLen := i32(args[idx]), i32(args[idx+1])
	outPtr, outAlloc := i32(args[idx+2]), i32(args[idx+3])

	// gas is attacker-controlled (read straight off the wasm stack); check
	// for overflow before computing the sum rather than letting it wrap and
	// sail past gasCounter.charge's own overflow check as a tiny, wrong
	// amount.
	if gas > ^uint64(0)-rt.sched.CallGas {
		return nil, ErrGasLimitReached()
	}
	if err := rt.charge(rt.sched.CallGas + gas); err != nil {
		return nil, err
	}

	input, err := rt.memSlice(inPtr, inLen)
	if err != nil {
		return nil, err
	}
	inputCopy := append([]byte(nil), input...)

	sender, receiver := rt.ctx.Address, Address{}
	if addr, err := rt.readAddress(addrPtr); err == nil {
		receiver = addr
	} else {
		return nil, err
	}
	if callType == CallTypeDelegateCall {
		receiver = rt.ctx.Address
		sender = rt.ctx.Sender
	}

	gasLeft, output, reverted, gerr := rt.ext.Call(callType, gas, sender, receiver, value, inputCopy, outAlloc)
	if gerr != nil {
		// Hard provider failure: no gas to report, no refund.
		return retI32(-1), nil
	}
	if refErr := rt.gas.refund(gasLeft); refErr != nil {
		return nil, refErr
	}

	dst, merr := rt.memSlice(outPtr, outAlloc)
	if merr != nil {
		return nil, merr
	}
	n := copy(dst, output)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}

	if reverted {
		return retI32(-1), nil
	}
	return retI32(0), nil
}

func (rt *Runtime) hostValue(args []wasmer.Value) ([]wasmer.Value, error) {
	outPtr := i32(args[0])
	if err := rt.charge(rt.sched.Wasm.StaticU256); err != nil {
		return nil, err
	}
	v := rt.ctx.Value
	if err := rt.writeU256(outPtr, &v); err != nil {
		return nil, err
	}
	return retVoid()
}

func (rt *Runtime) hostCreate(args []wasmer.Value) ([]wasmer.Value, error) {
	endowPtr, codePtr, codeLen, resultPtr := i32(args[0]), i32(args[1]), i32(args[2]), i32(args[3])

	if err := rt.charge(rt.sched.CreateGas + rt.sched.CreateDataGas*uint64(codeLen)); err != nil {
		return nil, err
	}

	endowBytes, err := rt.memSlice(endowPtr, 32)
	if err != nil {
		return nil, err
	}
	endowment := new(uint256.Int).SetBytes(endowBytes)

	code, err := rt.memSlice(codePtr, codeLen)
	if err != nil {
		return nil, err
	}
	codeCopy := append([]byte(nil), code...)

	subGas := rt.gas.left()
	addr, gasLeft, reverted, gerr := rt.ext.Create(rt.ctx.Address, endowment, codeCopy, subGas)
	if gerr != nil {
		return retI32(-1), nil
	}
	rt.gas.counter = rt.gas.limit - gasLeft

	if reverted {
		return retI32(-1), nil
	}
	if err := rt.writeAddress(resultPtr, addr); err != nil {
		return nil, err
	}
	return retI32(0), nil
}

func (rt *Runtime) hostSuicide(args []wasmer.Value) ([]wasmer.Value, error) {
	refundPtr := i32(args[0])
	refundTo, err := rt.readAddress(refundPtr)
	if err != nil {
		return nil, err
	}

	existed, gerr := rt.ext.Exists(refundTo)
	if gerr != nil {
		return nil, ErrSuicideAborted()
	}
	charge := rt.sched.SuicideGas
	if !existed {
		charge = rt.sched.SuicideToNewAccountCost
	}
	if err := rt.charge(charge); err != nil {
		return nil, err
	}

	if _, gerr := rt.ext.Suicide(rt.ctx.Address, refundTo); gerr != nil {
		return nil, ErrSuicideAborted()
	}
	return nil, ErrSuicided()
}

func (rt *Runtime) hostBlockhash(args []wasmer.Value) ([]wasmer.Value, error) {
	number, outPtr := i64(args[0]), i32(args[1])
	if err := rt.charge(rt.sched.BlockhashGas); err != nil {
		return nil, err
	}
	h, gerr := rt.ext.BlockHash(number)
	if gerr != nil {
		return nil, ErrOtherf("blockhash lookup failed: %s", gerr)
	}
	if err := rt.writeHash(outPtr, h); err != nil {
		return nil, err
	}
	return retVoid()
}

func (rt *Runtime) hostBlocknumber(args []wasmer.Value) ([]wasmer.Value, error) {
	return retI64(int64(rt.ext.EnvInfo().Number)), nil
}

func (rt *Runtime) hostCoinbase(args []wasmer.Value) ([]wasmer.Value, error) {
	outPtr := i32(args[0])
	if err := rt.charge(rt.sched.Wasm.StaticAddress); err != nil {
		return nil, err
	}
	if err := rt.writeAddress(outPtr, rt.ext.EnvInfo().Coinbase); err != nil {
		return nil, err
	}
	return retVoid()
}

func (rt *Runtime) hostDifficulty(args []wasmer.Value) ([]wasmer.Value, error) {
	outPtr := i32(args[0])
	if err := rt.charge(rt.sched.Wasm.StaticU256); err != nil {
		return nil, err
	}
	d := rt.ext.EnvInfo().Difficulty
	if err := rt.writeU256(outPtr, &d); err != nil {
		return nil, err
	}
	return retVoid()
}

func (rt *Runtime) hostGaslimit(args []wasmer.Value) ([]wasmer.Value, error) {
	outPtr := i32(args[0])
	if err := rt.charge(rt.sched.Wasm.StaticU256); err != nil {
		return nil, err
	}
	g := rt.ext.EnvInfo().GasLimit
	if err := rt.writeU256(outPtr, &g); err != nil {
		return nil, err
	}
	return retVoid()
}

func (rt *Runtime) hostTimestamp(args []wasmer.Value) ([]wasmer.Value, error) {
	return retI64(int64(rt.ext.EnvInfo().Timestamp)), nil
}

func (rt *Runtime) hostMemcpy(args []wasmer.Value) ([]wasmer.Value, error) {
	dst, src, length := i32(args[0]), i32(args[1]), i32(args[2])
	if err := rt.charge(rt.sched.Wasm.MemCopy * uint64(length)); err != nil {
		return nil, err
	}
	srcB, err := rt.memSlice(src, length)
	if err != nil {
		return nil, err
	}
	srcCopy := append([]byte(nil), srcB...)
	dstB, err := rt.memSlice(dst, length)
	if err != nil {
		return nil, err
	}
	copy(dstB, srcCopy)
	return retI32(int32(dst)), nil
}

func (rt *Runtime) hostMemcmp(args []wasmer.Value) ([]wasmer.Value, error) {
	a, b, length := i32(args[0]), i32(args[1]), i32(args[2])
	if err := rt.charge(rt.sched.Wasm.MemCmp * uint64(length)); err != nil {
		return nil, err
	}
	aB, err := rt.memSlice(a, length)
	if err != nil {
		return nil, err
	}
	bB, err := rt.memSlice(b, length)
	if err != nil {
		return nil, err
	}
	return retI32(int32(bytes.Compare(aB, bB))), nil
}
