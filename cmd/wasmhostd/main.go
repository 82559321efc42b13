// Command wasmhostd drives one contract invocation through the host
// runtime end to end: split + meter the module, resolve its imports,
// run call, and print the resulting GasLeft.
package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/empower1/wasmhost/internal/state"
	"github.com/empower1/wasmhost/internal/vm"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	flagWasmPath   string
	flagInputHex   string
	flagGasLimit   uint64
	flagSeparate   bool
	flagDBPath     string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "wasmhostd",
		Short: "Drive one contract invocation through the WASM host runtime",
	}
	root.AddCommand(callCmd())
	return root
}

func callCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call",
		Short: "Load a .wasm module and invoke its call entry",
		RunE:  runCall,
	}
	cmd.Flags().StringVar(&flagWasmPath, "wasm", "", "path to the contract .wasm module")
	cmd.Flags().StringVar(&flagInputHex, "input", "", "hex-encoded calldata")
	cmd.Flags().Uint64Var(&flagGasLimit, "gas", 1_000_000, "gas budget")
	cmd.Flags().BoolVar(&flagSeparate, "separate", true, "Separate framing (module and input are distinct); false selects Embedded framing")
	cmd.Flags().StringVar(&flagDBPath, "db", "", "optional bbolt file for durable contract storage; defaults to in-memory")
	cmd.MarkFlagRequired("wasm")
	return cmd
}

func runCall(cmd *cobra.Command, args []string) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	code, err := os.ReadFile(flagWasmPath)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}

	input, err := decodeHexFlag(flagInputHex)
	if err != nil {
		return fmt.Errorf("decode --input: %w", err)
	}

	paramsType := vm.Separate
	if !flagSeparate {
		paramsType = vm.Embedded
	}

	params := &vm.ActionParams{
		Code:       code,
		Data:       input,
		ParamsType: paramsType,
		Gas:        uint256.NewInt(flagGasLimit),
		Value:      uint256.NewInt(0),
	}

	var ext vm.Ext
	if flagDBPath != "" {
		bolted, err := state.OpenBoltState(flagDBPath)
		if err != nil {
			return fmt.Errorf("open --db: %w", err)
		}
		defer bolted.Close()
		ext = bolted
	} else {
		ext = state.NewMemState(sugar)
	}

	driver := vm.NewDriver(vm.DefaultSchedule(), nil, sugar)
	result, err := driver.Exec(params, ext)
	if err != nil {
		return err
	}

	switch result.Kind {
	case vm.GasLeftKnown:
		fmt.Printf("gas left: %d\n", result.Gas)
	case vm.GasLeftNeedsReturn:
		fmt.Printf("gas left: %d\ndata: %x\n", result.Gas, result.Data)
	}
	return nil
}

func decodeHexFlag(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return hex.DecodeString(strings.TrimPrefix(s, "0x"))
}
