package wasmhost

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/wasmerio/wasmer-go/wasmer"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
)

// invoke instantiates a fresh sandbox of module, marshals payload into the
// guest's import ABI, and drives it to completion (spec.md §4.E
// "Execute"). The sandbox is never reused across invocations, including on
// trap, per §4.E "Isolation".
func invoke(ctx context.Context, m *Module, recorder *provider.Recorder, opName string, outputs []string, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	out := make(chan packet.PortPacket, len(outputs)+1)

	var encodedPayload bytes.Buffer
	if err := gob.NewEncoder(&encodedPayload).Encode(payload); err != nil {
		return nil, fmt.Errorf("wasmhost: encode payload: %w", err)
	}

	go func() {
		defer close(out)
		start := time.Now()
		defer func() { recorder.Record(opName, time.Since(start)) }()

		seen := make(map[string]bool, len(outputs))
		emit := func(port string, p packet.Packet) {
			out <- packet.PortPacket{Port: port, Packet: p}
			if p.Kind == packet.KindDone {
				seen[port] = true
			}
		}
		finishAll := func(p packet.Packet) {
			for _, port := range outputs {
				if !seen[port] {
					emit(port, p)
				}
			}
			for _, port := range outputs {
				if !seen[port] {
					emit(port, packet.Done())
				}
			}
		}

		var memory *wasmer.Memory

		hostWrite := wasmer.NewFunction(
			m.store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32), wasmer.NewValueTypes()),
			func(args []wasmer.Value) ([]wasmer.Value, error) {
				if memory == nil {
					return nil, fmt.Errorf("wasmhost: __host_write before memory export resolved")
				}
				data := memory.Data()
				port := string(readSlice(data, args[0].I32(), args[1].I32()))
				raw := readSlice(data, args[2].I32(), args[3].I32())
				emit(port, packet.Data(raw, packet.Bytes()))
				return nil, nil
			},
		)
		hostError := wasmer.NewFunction(
			m.store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32), wasmer.NewValueTypes()),
			func(args []wasmer.Value) ([]wasmer.Value, error) {
				if memory == nil {
					return nil, fmt.Errorf("wasmhost: __host_error before memory export resolved")
				}
				msg := string(readSlice(memory.Data(), args[0].I32(), args[1].I32()))
				finishAll(packet.Error(msg))
				return nil, nil
			},
		)
		hostLog := wasmer.NewFunction(
			m.store,
			wasmer.NewFunctionType(wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32), wasmer.NewValueTypes()),
			func(args []wasmer.Value) ([]wasmer.Value, error) {
				// guest-originated diagnostic output; not part of the
				// packet stream contract, so it is dropped rather than
				// routed anywhere the scheduler would observe it.
				return nil, nil
			},
		)

		importObject := wasmer.NewImportObject()
		importObject.Register("env", map[string]wasmer.IntoExtern{
			"__host_write": hostWrite,
			"__host_error": hostError,
			"__host_log":   hostLog,
		})

		instance, err := wasmer.NewInstance(m.module, importObject)
		if err != nil {
			finishAll(packet.Error(fmt.Sprintf("trap: %v", err)))
			return
		}
		defer instance.Close()

		mem, err := instance.Exports.GetMemory("memory")
		if err != nil {
			finishAll(packet.Error("trap: module exports no memory"))
			return
		}
		memory = mem

		alloc, err := instance.Exports.GetFunction("__guest_alloc")
		if err != nil {
			finishAll(packet.Error("trap: module exports no __guest_alloc"))
			return
		}
		guestCall, err := instance.Exports.GetFunction("__guest_call")
		if err != nil {
			finishAll(packet.Error("trap: module exports no __guest_call"))
			return
		}

		opPtr, err := writeBytes(alloc, memory, []byte(opName))
		if err != nil {
			finishAll(packet.Error(fmt.Sprintf("trap: %v", err)))
			return
		}
		inPtr, err := writeBytes(alloc, memory, encodedPayload.Bytes())
		if err != nil {
			finishAll(packet.Error(fmt.Sprintf("trap: %v", err)))
			return
		}

		done := make(chan struct{})
		var status interface{}
		var callErr error
		go func() {
			status, callErr = guestCall.Call(opPtr, int32(len(opName)), inPtr, int32(encodedPayload.Len()))
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			finishAll(packet.Error("timeout"))
			return
		}

		if callErr != nil {
			finishAll(packet.Error(fmt.Sprintf("trap: %v", callErr)))
			return
		}

		if toInt32(status) == 1 {
			for _, port := range outputs {
				if !seen[port] {
					emit(port, packet.Done())
				}
			}
			return
		}
		finishAll(packet.Error("guest call failed"))
	}()

	return out, nil
}

func readSlice(data []byte, ptr, length int32) []byte {
	if ptr < 0 || length < 0 || int(ptr)+int(length) > len(data) {
		return nil
	}
	out := make([]byte, length)
	copy(out, data[ptr:ptr+length])
	return out
}

func writeBytes(alloc *wasmer.Function, memory *wasmer.Memory, buf []byte) (int32, error) {
	res, err := alloc.Call(int32(len(buf)))
	if err != nil {
		return 0, err
	}
	ptr := toInt32(res)
	data := memory.Data()
	if int(ptr)+len(buf) > len(data) {
		return 0, fmt.Errorf("guest allocation too small")
	}
	copy(data[ptr:], buf)
	return ptr, nil
}

func toInt32(v interface{}) int32 {
	switch n := v.(type) {
	case int32:
		return n
	case int:
		return int32(n)
	default:
		return 0
	}
}
