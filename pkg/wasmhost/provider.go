package wasmhost

import (
	"context"
	"fmt"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
)

// componentsFromMetadata decodes the "components" entry of a claims
// token's metadata into ComponentSignatures (spec.md §4.H "metadata for a
// component includes its declared interface (ports and types)"). Every
// port is typed string in this decoding: the claims metadata travels as
// JSON-shaped map[string]interface{} values, and narrowing every port to
// string keeps the decode a plain type-assertion walk instead of a second
// generic type-tag grammar layered on top of packet.TypeTag. A richer
// module wanting non-string ports declares them string and re-tags on the
// wire; see DESIGN.md for the tradeoff.
func componentsFromMetadata(metadata map[string]interface{}) []packet.ComponentSignature {
	raw, ok := metadata["components"].([]interface{})
	if !ok {
		return nil
	}

	var sigs []packet.ComponentSignature
	for _, item := range raw {
		def, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name, _ := def["name"].(string)
		sigs = append(sigs, packet.ComponentSignature{
			Name:    name,
			Inputs:  portsFrom(def["inputs"]),
			Outputs: portsFrom(def["outputs"]),
		})
	}
	return sigs
}

func portsFrom(v interface{}) []packet.PortSignature {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	ports := make([]packet.PortSignature, 0, len(list))
	for _, p := range list {
		name, ok := p.(string)
		if !ok {
			continue
		}
		ports = append(ports, packet.PortSignature{Name: name, Type: packet.String()})
	}
	return ports
}

// Provider adapts a loaded Module to the provider.Provider contract so the
// scheduler dispatches to it exactly like a native or remote provider
// (spec.md §4.C).
type Provider struct {
	module   *Module
	sigs     map[string]packet.ComponentSignature
	recorder *provider.Recorder
}

func NewProvider(m *Module) *Provider {
	p := &Provider{module: m, sigs: make(map[string]packet.ComponentSignature), recorder: provider.NewRecorder(256)}
	for _, sig := range componentsFromMetadata(m.claims.Metadata) {
		p.sigs[sig.Name] = sig
	}
	return p
}

func (p *Provider) List() []provider.HostedType {
	out := make([]provider.HostedType, 0, len(p.sigs))
	for _, sig := range p.sigs {
		out = append(out, provider.HostedType{Name: sig.Name, Kind: provider.KindComponent, Signature: sig})
	}
	return out
}

func (p *Provider) Stats(id string) []provider.Stat { return p.recorder.Stats(id) }

func (p *Provider) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	sig, ok := p.sigs[target.Name]
	if !ok {
		return nil, fmt.Errorf("wasmhost: module does not declare component %q", target.Name)
	}
	outputs := make([]string, len(sig.Outputs))
	for i, o := range sig.Outputs {
		outputs[i] = o.Name
	}
	return invoke(ctx, p.module, p.recorder, target.Name, outputs, payload)
}
