package sandbox

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/giantswarm/brokerd/pkg/logging"
)

// wasmPageSize is the WebAssembly linear memory page size; wazero's memory
// limit is expressed in pages.
const wasmPageSize = 65536

// WasmBackend realizes the "wasm" preset (spec §4.5): the module is
// instantiated in an isolate with a memory cap and invoked through its
// run(ptr, len) -> i32 entrypoint, the argument JSON copied into its linear
// memory rather than piped over stdio. A module that does not export the
// required "alloc"/"run" functions cannot be run under this contract and
// is refused with SandboxUnavailable rather than silently falling back to
// a different calling convention (spec.md §9's "must either realize it or
// refuse").
//
// Calling convention: the module must export "memory", an
// "alloc(size i32) -> i32" function returning a writable offset of at
// least size bytes, and a "run(ptr i32, len i32) -> i32" function. The
// broker writes the argument JSON at the offset alloc returns, calls run,
// and interprets its i32 return value as the offset of an 8-byte output
// header: a little-endian uint32 output pointer followed by a
// little-endian uint32 output length. The bytes at that range are the
// result JSON.
type WasmBackend struct{}

func (WasmBackend) Run(ctx context.Context, policy Policy, req RunRequest) (Outcome, error) {
	deadlineCtx := ctx
	var cancel context.CancelFunc
	if policy.Timeout > 0 {
		deadlineCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
		defer cancel()
	}

	modulePath := req.Entrypoint.Dir + "/" + req.Entrypoint.RelPath
	wasmBytes, err := os.ReadFile(modulePath)
	if err != nil {
		return Outcome{}, fmt.Errorf("read wasm module: %w", err)
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if policy.MaxMemoryBytes > 0 {
		pages := uint32((policy.MaxMemoryBytes + wasmPageSize - 1) / wasmPageSize)
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(pages)
	}
	runtime := wazero.NewRuntimeWithConfig(deadlineCtx, runtimeCfg)
	defer runtime.Close(context.Background())

	if _, err := wasi_snapshot_preview1.Instantiate(deadlineCtx, runtime); err != nil {
		logging.Warn("Sandbox", "wasi instantiate failed: %v", err)
		return Outcome{ExitKind: ExitSandboxUnavailable}, nil
	}

	compiled, err := runtime.CompileModule(deadlineCtx, wasmBytes)
	if err != nil {
		return Outcome{}, fmt.Errorf("compile wasm module: %w", err)
	}

	cfg := wazero.NewModuleConfig().WithName(req.Entrypoint.RelPath)

	start := time.Now()
	mod, err := runtime.InstantiateModule(deadlineCtx, compiled, cfg)
	if err != nil {
		if deadlineCtx.Err() != nil {
			return Outcome{ExitKind: ExitTimeout, Duration: time.Since(start)}, nil
		}
		return Outcome{}, fmt.Errorf("instantiate wasm module: %w", err)
	}
	defer mod.Close(context.Background())

	alloc := mod.ExportedFunction("alloc")
	run := mod.ExportedFunction("run")
	mem := mod.Memory()
	if alloc == nil || run == nil || mem == nil {
		logging.Warn("Sandbox", "wasm module %s does not export the alloc/run/memory entrypoint contract", req.Entrypoint.RelPath)
		return Outcome{ExitKind: ExitSandboxUnavailable}, nil
	}

	argsJSON := req.ArgsJSON
	if req.ArgsFilePath != "" {
		staged, err := os.ReadFile(req.ArgsFilePath)
		if err != nil {
			return Outcome{}, fmt.Errorf("read staged arguments file: %w", err)
		}
		argsJSON = staged
	}

	outcome, runErr := callRunEntrypoint(deadlineCtx, mem, alloc, run, argsJSON)
	outcome.Duration = time.Since(start)
	if runErr != nil {
		if deadlineCtx.Err() != nil {
			return Outcome{ExitKind: ExitTimeout, Duration: outcome.Duration}, nil
		}
		if exitErr, ok := asExitCodeError(runErr); ok {
			return Outcome{ExitKind: ExitNonzero, ExitCode: exitErr, Duration: outcome.Duration}, nil
		}
		return Outcome{}, fmt.Errorf("run wasm module: %w", runErr)
	}
	return outcome, nil
}

// callRunEntrypoint allocates space for argsJSON in the module's linear
// memory, invokes run(ptr, len), and reads the result back via the 8-byte
// output header the returned offset points to.
func callRunEntrypoint(ctx context.Context, mem api.Memory, alloc, run api.Function, argsJSON []byte) (Outcome, error) {
	allocResult, err := alloc.Call(ctx, uint64(len(argsJSON)))
	if err != nil {
		return Outcome{}, fmt.Errorf("alloc %d bytes: %w", len(argsJSON), err)
	}
	inPtr := uint32(allocResult[0])

	if !mem.Write(inPtr, argsJSON) {
		return Outcome{}, fmt.Errorf("write %d bytes at offset %d: out of bounds", len(argsJSON), inPtr)
	}

	runResult, err := run.Call(ctx, uint64(inPtr), uint64(len(argsJSON)))
	if err != nil {
		return Outcome{}, err
	}

	headerPtr := uint32(runResult[0])
	header, ok := mem.Read(headerPtr, 8)
	if !ok {
		return Outcome{}, fmt.Errorf("read output header at offset %d: out of bounds", headerPtr)
	}
	outPtr := binary.LittleEndian.Uint32(header[0:4])
	outLen := binary.LittleEndian.Uint32(header[4:8])

	out, ok := mem.Read(outPtr, outLen)
	if !ok {
		return Outcome{}, fmt.Errorf("read %d output bytes at offset %d: out of bounds", outLen, outPtr)
	}
	// out aliases the module's own memory; copy it out before the module
	// (and its memory) is closed.
	stdout := append([]byte(nil), out...)

	return Outcome{
		ExitKind:    ExitOK,
		Stdout:      stdout,
		StdoutBytes: len(stdout),
	}, nil
}

// asExitCodeError extracts a WASI process exit code from wazero's sys.ExitError,
// which is returned instead of nil when the module calls proc_exit.
func asExitCodeError(err error) (int, bool) {
	type exitCoder interface {
		ExitCode() uint32
	}
	if ec, ok := err.(exitCoder); ok {
		return int(ec.ExitCode()), true
	}
	return 0, false
}
