package plugin

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// wasmModule wraps one compiled plugin artifact. A fresh api.Module
// instance is created for every exported-function call so no two plugins
// (and no two calls to the same plugin) ever share mutable WASM state —
// directly satisfying spec.md §3's "no two plugins share a mutable
// capability handle". Grounded on the pack's reglet wasm.Plugin.createInstance.
type wasmModule struct {
	id      string
	runtime wazero.Runtime
	module  wazero.CompiledModule
	host    *hostBridge
}

// compileModule loads and compiles a .wasm artifact, wiring the host
// import surface (log, filesystem.*, watch.subscribe, relay.publish,
// config.get — spec.md §4.7) into a fresh wazero.Runtime scoped to this
// one plugin instance.
func compileModule(ctx context.Context, id string, artifact []byte, host *hostBridge) (*wasmModule, error) {
	rt := wazero.NewRuntime(ctx)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiating WASI: %w", err)
	}
	if err := registerHostImports(ctx, rt, host); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("registering host imports: %w", err)
	}
	compiled, err := rt.CompileModule(ctx, artifact)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("compiling plugin %s: %w", id, err)
	}
	return &wasmModule{id: id, runtime: rt, module: compiled, host: host}, nil
}

func (m *wasmModule) Close(ctx context.Context) {
	m.runtime.Close(ctx)
}

// moduleConfig builds a fresh per-call configuration: a capability-scoped
// read-only directory mount for every directory the manifest grants, plus
// time/random syscalls the WASI preview1 shim expects to be able to serve.
// No stdout/stderr bridge is exposed — spec.md §4.7 "log output is not a
// stdout bridge" — all logging goes through the log() host import instead.
func moduleConfig(name string, dirs []string) wazero.ModuleConfig {
	fsConfig := wazero.NewFSConfig()
	for _, d := range dirs {
		fsConfig = fsConfig.WithReadOnlyDirMount(d, d)
	}
	return wazero.NewModuleConfig().
		WithName(name).
		WithFSConfig(fsConfig).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
}

func (m *wasmModule) newInstance(ctx context.Context, dirs []string) (api.Module, error) {
	instance, err := m.runtime.InstantiateModule(ctx, m.module, moduleConfig(m.id, dirs))
	if err != nil {
		return nil, fmt.Errorf("instantiating plugin %s: %w", m.id, err)
	}
	return instance, nil
}

// callInit invokes the plugin's init(config) export, returning its
// metadata payload or a structured error (spec.md §4.7 "init(config) →
// metadata|error").
func (m *wasmModule) callInit(ctx context.Context, dirs []string, config map[string]any) ([]byte, error) {
	instance, err := m.newInstance(ctx, dirs)
	if err != nil {
		return nil, err
	}
	defer instance.Close(ctx)

	fn := instance.ExportedFunction("init")
	if fn == nil {
		return nil, fmt.Errorf("plugin %s does not export init()", m.id)
	}
	payload, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("marshaling init config: %w", err)
	}
	return m.callPtrLen(ctx, instance, fn, payload)
}

// callHandleEvent invokes handle_event(event) with a JSON-encoded event
// envelope (spec.md §4.7 events: tick, filesystem_change, config_updated).
func (m *wasmModule) callHandleEvent(ctx context.Context, dirs []string, event []byte) ([]byte, error) {
	instance, err := m.newInstance(ctx, dirs)
	if err != nil {
		return nil, err
	}
	defer instance.Close(ctx)

	fn := instance.ExportedFunction("handle_event")
	if fn == nil {
		return nil, fmt.Errorf("plugin %s does not export handle_event()", m.id)
	}
	return m.callPtrLen(ctx, instance, fn, event)
}

// callShutdown invokes shutdown(), best-effort — a plugin that errors or
// omits the export is still torn down by the caller.
func (m *wasmModule) callShutdown(ctx context.Context, dirs []string) error {
	instance, err := m.newInstance(ctx, dirs)
	if err != nil {
		return err
	}
	defer instance.Close(ctx)

	fn := instance.ExportedFunction("shutdown")
	if fn == nil {
		return nil
	}
	_, err = fn.Call(ctx)
	return err
}

// callPtrLen writes input into the instance's memory via its allocate()
// export, invokes fn(ptr, len), and reads back the packed (ptr<<32|len)
// result the same way — the calling convention every export in this spec
// shares, grounded on the pack's wasm.Plugin.readString/writeToMemory.
func (m *wasmModule) callPtrLen(ctx context.Context, instance api.Module, fn api.Function, input []byte) ([]byte, error) {
	inPtr, err := m.writeMemory(ctx, instance, input)
	if err != nil {
		return nil, err
	}
	defer m.deallocate(ctx, instance, inPtr, uint32(len(input)))

	results, err := fn.Call(ctx, uint64(inPtr), uint64(len(input)))
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", fn.Definition().Name(), err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%s returned no results", fn.Definition().Name())
	}

	packed := results[0]
	outPtr := uint32(packed >> 32)
	outLen := uint32(packed & 0xFFFFFFFF)
	if outPtr == 0 || outLen == 0 {
		return nil, nil
	}
	defer m.deallocate(ctx, instance, outPtr, outLen)

	data, ok := instance.Memory().Read(outPtr, outLen)
	if !ok {
		return nil, fmt.Errorf("reading result memory at %d (len %d)", outPtr, outLen)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *wasmModule) writeMemory(ctx context.Context, instance api.Module, data []byte) (uint32, error) {
	allocate := instance.ExportedFunction("allocate")
	if allocate == nil {
		return 0, fmt.Errorf("plugin %s does not export allocate()", m.id)
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("allocate: %w", err)
	}
	if len(results) == 0 || results[0] == 0 {
		return 0, fmt.Errorf("allocate() returned null pointer")
	}
	ptr := uint32(results[0])
	if !instance.Memory().Write(ptr, data) {
		return 0, fmt.Errorf("writing %d bytes at %d", len(data), ptr)
	}
	return ptr, nil
}

func (m *wasmModule) deallocate(ctx context.Context, instance api.Module, ptr, size uint32) {
	fn := instance.ExportedFunction("deallocate")
	if fn == nil {
		return
	}
	_, _ = fn.Call(ctx, uint64(ptr), uint64(size))
}
