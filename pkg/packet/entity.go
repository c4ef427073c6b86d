package packet

import (
	"fmt"
	"strings"
)

// EntityKind discriminates the addressable endpoints of spec.md §3.
type EntityKind string

const (
	EntityComponent EntityKind = "component"
	EntitySchematic EntityKind = "schematic"
	EntityProvider  EntityKind = "provider"
	EntityClient    EntityKind = "client"
)

// Entity is an addressable endpoint, serialized as a compact URI of the
// form "<kind>:<name>".
type Entity struct {
	Kind EntityKind
	Name string
}

func NewComponent(name string) Entity { return Entity{Kind: EntityComponent, Name: name} }
func NewSchematic(name string) Entity { return Entity{Kind: EntitySchematic, Name: name} }
func NewProvider(id string) Entity    { return Entity{Kind: EntityProvider, Name: id} }
func NewClient(tag string) Entity     { return Entity{Kind: EntityClient, Name: tag} }

func (e Entity) String() string { return fmt.Sprintf("%s:%s", e.Kind, e.Name) }

// ParseEntity reverses Entity.String.
func ParseEntity(uri string) (Entity, error) {
	kind, name, ok := strings.Cut(uri, ":")
	if !ok {
		return Entity{}, fmt.Errorf("malformed entity uri: %q", uri)
	}
	switch EntityKind(kind) {
	case EntityComponent, EntitySchematic, EntityProvider, EntityClient:
		return Entity{Kind: EntityKind(kind), Name: name}, nil
	default:
		return Entity{}, fmt.Errorf("unknown entity kind: %q", kind)
	}
}
