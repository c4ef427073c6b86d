package packet

import "fmt"

// PortSignature is a (name, type_tag) pair (spec.md §3).
type PortSignature struct {
	Name string
	Type TypeTag
}

// ComponentSignature describes a named operation's input and output
// ports. Invariant: input and output name sets are each unique within
// the component; no port is named the empty string.
type ComponentSignature struct {
	Name    string
	Inputs  []PortSignature
	Outputs []PortSignature
}

func (c ComponentSignature) Validate() error {
	if err := validatePortNames(c.Inputs); err != nil {
		return fmt.Errorf("component %s inputs: %w", c.Name, err)
	}
	if err := validatePortNames(c.Outputs); err != nil {
		return fmt.Errorf("component %s outputs: %w", c.Name, err)
	}
	return nil
}

func validatePortNames(ports []PortSignature) error {
	seen := make(map[string]bool, len(ports))
	for _, p := range ports {
		if p.Name == "" {
			return fmt.Errorf("port name must not be empty")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate port name %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

func (c ComponentSignature) Input(name string) (PortSignature, bool) {
	for _, p := range c.Inputs {
		if p.Name == name {
			return p, true
		}
	}
	return PortSignature{}, false
}

func (c ComponentSignature) Output(name string) (PortSignature, bool) {
	for _, p := range c.Outputs {
		if p.Name == name {
			return p, true
		}
	}
	return PortSignature{}, false
}

// ProviderSignature names a provider dependency a schematic relies on,
// supplemented per SPEC_FULL.md with the components it hosts so a caller
// assembling a signature can tell which provider backs which component
// (mirrors original_source's HostedType/Component wire shape).
type ProviderSignature struct {
	ID         string
	Components []ComponentSignature
}

// SchematicSignature has the same shape as ComponentSignature plus the
// provider dependencies it embeds.
type SchematicSignature struct {
	ComponentSignature
	Providers []ProviderSignature
}
