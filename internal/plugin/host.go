package plugin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// hostBridge is the capability surface one plugin instance is granted
// (spec.md §4.7 "Host imports"). Each capability checks the request
// against allowedDirs/allowedChannels before doing anything — "path
// traversal attempts (.., symlink escape) are rejected at the capability
// layer".
type hostBridge struct {
	log             *logrus.Entry
	allowedDirs     []string
	allowedChannels []string
	configSnapshot  func() map[string]any
	subscribe       func(dirs []string, debounceMs int) (string, error)
	publish         func(channel string, event json.RawMessage) error
}

func (h *hostBridge) pathAllowed(path string) error {
	if strings.Contains(path, "..") {
		return fmt.Errorf("path traversal rejected: %s", path)
	}
	clean := filepath.Clean(path)
	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		resolved = clean
	}
	for _, dir := range h.allowedDirs {
		cleanDir := filepath.Clean(dir)
		resolvedDir, err := filepath.EvalSymlinks(cleanDir)
		if err != nil {
			resolvedDir = cleanDir
		}
		if rel, err := filepath.Rel(resolvedDir, resolved); err == nil && !strings.HasPrefix(rel, "..") {
			return nil
		}
	}
	return fmt.Errorf("path %s not under any granted directory", path)
}

func (h *hostBridge) channelAllowed(channel string) bool {
	for _, c := range h.allowedChannels {
		if c == channel {
			return true
		}
	}
	return false
}

// registerHostImports wires spec.md §4.7's host import surface into a
// fresh runtime under the "host" module namespace: log, filesystem.list_dir,
// filesystem.read_metadata, watch.subscribe, relay.publish, config.get.
// Grounded on the pack's reglet wasm hostfuncs pattern (context-scoped
// per-call state, ptr/len marshaling both directions) generalized to a
// GoModuleFunc so each import can reach back into the calling instance's
// own memory and allocate() export for its result.
func registerHostImports(ctx context.Context, rt wazero.Runtime, host *hostBridge) error {
	_, err := rt.NewHostModuleBuilder("host").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			level := uint32(stack[0])
			ptr, size := uint32(stack[1]), uint32(stack[2])
			msg, ok := mod.Memory().Read(ptr, size)
			if !ok {
				return
			}
			entry := host.log
			switch level {
			case 0:
				entry.Debug(string(msg))
			case 1:
				entry.Info(string(msg))
			case 2:
				entry.Warn(string(msg))
			default:
				entry.Error(string(msg))
			}
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, nil).
		Export("log").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = hostListDir(ctx, mod, host, uint32(stack[0]), uint32(stack[1]))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}).
		Export("filesystem.list_dir").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = hostReadMetadata(ctx, mod, host, uint32(stack[0]), uint32(stack[1]))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}).
		Export("filesystem.read_metadata").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = hostWatchSubscribe(ctx, mod, host, uint32(stack[0]), uint32(stack[1]), uint32(stack[2]))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}).
		Export("watch.subscribe").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = hostRelayPublish(ctx, mod, host, uint32(stack[0]), uint32(stack[1]), uint32(stack[2]), uint32(stack[3]))
		}), []api.ValueType{api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}).
		Export("relay.publish").
		NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			stack[0] = hostConfigGet(ctx, mod, host)
		}), nil, []api.ValueType{api.ValueTypeI64}).
		Export("config.get").
		Instantiate(ctx)
	return err
}

// hostWriteResult allocates size(data) bytes in the calling instance via
// its own allocate() export and writes data there, returning the packed
// (ptr<<32|len) result every export/import in this ABI shares.
func hostWriteResult(ctx context.Context, mod api.Module, data []byte) uint64 {
	if len(data) == 0 {
		return 0
	}
	allocate := mod.ExportedFunction("allocate")
	if allocate == nil {
		return 0
	}
	results, err := allocate.Call(ctx, uint64(len(data)))
	if err != nil || len(results) == 0 || results[0] == 0 {
		return 0
	}
	ptr := uint32(results[0])
	if !mod.Memory().Write(ptr, data) {
		return 0
	}
	return uint64(ptr)<<32 | uint64(len(data))
}

func hostErrorResult(ctx context.Context, mod api.Module, err error) uint64 {
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return hostWriteResult(ctx, mod, payload)
}

func hostListDir(ctx context.Context, mod api.Module, host *hostBridge, ptr, size uint32) uint64 {
	raw, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return hostErrorResult(ctx, mod, fmt.Errorf("reading path argument"))
	}
	path := string(raw)
	if err := host.pathAllowed(path); err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	payload, _ := json.Marshal(names)
	return hostWriteResult(ctx, mod, payload)
}

func hostReadMetadata(ctx context.Context, mod api.Module, host *hostBridge, ptr, size uint32) uint64 {
	raw, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return hostErrorResult(ctx, mod, fmt.Errorf("reading path argument"))
	}
	path := string(raw)
	if err := host.pathAllowed(path); err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	payload, _ := json.Marshal(map[string]any{
		"size":     info.Size(),
		"mod_time": info.ModTime().Unix(),
		"is_dir":   info.IsDir(),
	})
	return hostWriteResult(ctx, mod, payload)
}

func hostWatchSubscribe(ctx context.Context, mod api.Module, host *hostBridge, ptr, size, debounceMs uint32) uint64 {
	raw, ok := mod.Memory().Read(ptr, size)
	if !ok {
		return hostErrorResult(ctx, mod, fmt.Errorf("reading dirs argument"))
	}
	var dirs []string
	if err := json.Unmarshal(raw, &dirs); err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	for _, d := range dirs {
		if err := host.pathAllowed(d); err != nil {
			return hostErrorResult(ctx, mod, err)
		}
	}
	id, err := host.subscribe(dirs, int(debounceMs))
	if err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	payload, _ := json.Marshal(map[string]string{"subscription_id": id})
	return hostWriteResult(ctx, mod, payload)
}

func hostRelayPublish(ctx context.Context, mod api.Module, host *hostBridge, chanPtr, chanLen, evPtr, evLen uint32) uint64 {
	chanRaw, ok := mod.Memory().Read(chanPtr, chanLen)
	if !ok {
		return hostErrorResult(ctx, mod, fmt.Errorf("reading channel argument"))
	}
	channel := string(chanRaw)
	if !host.channelAllowed(channel) {
		return hostErrorResult(ctx, mod, fmt.Errorf("channel %q not allowlisted", channel))
	}
	event, ok := mod.Memory().Read(evPtr, evLen)
	if !ok {
		return hostErrorResult(ctx, mod, fmt.Errorf("reading event argument"))
	}
	if err := host.publish(channel, json.RawMessage(event)); err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	return hostWriteResult(ctx, mod, []byte(`{"ok":true}`))
}

func hostConfigGet(ctx context.Context, mod api.Module, host *hostBridge) uint64 {
	payload, err := json.Marshal(host.configSnapshot())
	if err != nil {
		return hostErrorResult(ctx, mod, err)
	}
	return hostWriteResult(ctx, mod, payload)
}
