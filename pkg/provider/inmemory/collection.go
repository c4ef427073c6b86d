// Package inmemory is the in-memory collection provider used by
// end-to-end scenario S2: a mutex-guarded document map shared across
// invocations, grounded on the teacher's ron.Server pattern of a single
// lock protecting a map keyed by client/VM id (internal/ron/server.go),
// here keyed by collection id instead.
//
// spec.md §9 design note: "this is an intentional shared resource for
// testing, not a pattern for scale."
package inmemory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
)

const ProviderID = "inmemory-collection"

type Collection struct {
	mu       sync.Mutex
	docs     map[string]map[string]string // collection_id -> document_id -> document
	recorder *provider.Recorder
}

func New() *Collection {
	return &Collection{
		docs:     make(map[string]map[string]string),
		recorder: provider.NewRecorder(256),
	}
}

var signatures = map[string]packet.ComponentSignature{
	"add-item": {
		Name: "add-item",
		Inputs: []packet.PortSignature{
			{Name: "document_id", Type: packet.String()},
			{Name: "collection_id", Type: packet.String()},
			{Name: "document", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "document_id", Type: packet.String()},
		},
	},
	"get-item": {
		Name: "get-item",
		Inputs: []packet.PortSignature{
			{Name: "document_id", Type: packet.String()},
			{Name: "collection_id", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "document", Type: packet.String()},
		},
	},
	"list-items": {
		Name: "list-items",
		Inputs: []packet.PortSignature{
			{Name: "collection_id", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "document_ids", Type: packet.List(packet.String())},
		},
	},
}

func (c *Collection) List() []provider.HostedType {
	out := make([]provider.HostedType, 0, len(signatures))
	for _, sig := range signatures {
		out = append(out, provider.HostedType{
			Name: sig.Name, Kind: provider.KindComponent, Signature: sig,
			Providers: []string{ProviderID},
		})
	}
	return out
}

func (c *Collection) Stats(id string) []provider.Stat { return c.recorder.Stats(id) }

func (c *Collection) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	sig, ok := signatures[target.Name]
	if !ok {
		return nil, fmt.Errorf("inmemory: no such component %q", target.Name)
	}

	args, excPacket := decodeStrings(sig, payload)
	out := make(chan packet.PortPacket, len(sig.Outputs)+1)

	go func() {
		defer close(out)
		start := time.Now()
		defer func() { c.recorder.Record(target.Name, time.Since(start)) }()

		if excPacket != nil {
			for _, o := range sig.Outputs {
				out <- packet.PortPacket{Port: o.Name, Packet: *excPacket}
				out <- packet.PortPacket{Port: o.Name, Packet: packet.Done()}
			}
			return
		}

		switch target.Name {
		case "add-item":
			c.addItem(args["collection_id"], args["document_id"], args["document"])
			out <- packet.PortPacket{Port: "document_id", Packet: stringPacket(args["document_id"])}
			out <- packet.PortPacket{Port: "document_id", Packet: packet.Done()}
		case "get-item":
			doc, found := c.getItem(args["collection_id"], args["document_id"])
			if !found {
				out <- packet.PortPacket{Port: "document", Packet: packet.Exception("no such document")}
			} else {
				out <- packet.PortPacket{Port: "document", Packet: stringPacket(doc)}
			}
			out <- packet.PortPacket{Port: "document", Packet: packet.Done()}
		case "list-items":
			ids := c.listItems(args["collection_id"])
			raw := make([]interface{}, len(ids))
			for i, id := range ids {
				raw[i] = id
			}
			data, err := packet.Encode(raw, packet.List(packet.String()))
			if err != nil {
				out <- packet.PortPacket{Port: "document_ids", Packet: packet.Error(err.Error())}
			} else {
				out <- packet.PortPacket{Port: "document_ids", Packet: packet.Data(data, packet.List(packet.String()))}
			}
			out <- packet.PortPacket{Port: "document_ids", Packet: packet.Done()}
		}
	}()

	return out, nil
}

func (c *Collection) addItem(collectionID, documentID, document string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.docs[collectionID] == nil {
		c.docs[collectionID] = make(map[string]string)
	}
	c.docs[collectionID][documentID] = document
}

func (c *Collection) getItem(collectionID, documentID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll, ok := c.docs[collectionID]
	if !ok {
		return "", false
	}
	doc, ok := coll[documentID]
	return doc, ok
}

func (c *Collection) listItems(collectionID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll := c.docs[collectionID]
	ids := make([]string, 0, len(coll))
	for id := range coll {
		ids = append(ids, id)
	}
	return ids
}
