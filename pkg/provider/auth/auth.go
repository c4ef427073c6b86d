// Package auth is the auth provider used by end-to-end scenario S3: user
// accounts, password-authenticated sessions, and a per-user permission
// set, all held in process memory behind a single lock — the same
// "one map, one lock, for the life of the process" shape as the in-memory
// collection provider, grounded on the teacher's internal/ron server
// state (internal/ron/server.go keeps its client table the same way).
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"wafl/pkg/packet"
	"wafl/pkg/provider"
)

const ProviderID = "auth"

type user struct {
	id           string
	username     string
	passwordHash []byte
	permissions  map[string]bool
}

type Auth struct {
	mu       sync.Mutex
	byUser   map[string]*user // username -> user
	byID     map[string]*user // user_id -> user
	sessions map[string]string // session_id -> user_id
	recorder *provider.Recorder
}

func New() *Auth {
	return &Auth{
		byUser:   make(map[string]*user),
		byID:     make(map[string]*user),
		sessions: make(map[string]string),
		recorder: provider.NewRecorder(256),
	}
}

var signatures = map[string]packet.ComponentSignature{
	"create-user": {
		Name: "create-user",
		Inputs: []packet.PortSignature{
			{Name: "username", Type: packet.String()},
			{Name: "user_id", Type: packet.String()},
			{Name: "password", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "user_id", Type: packet.String()},
		},
	},
	"authenticate": {
		Name: "authenticate",
		Inputs: []packet.PortSignature{
			{Name: "username", Type: packet.String()},
			{Name: "password", Type: packet.String()},
			{Name: "session_id", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "session_id", Type: packet.String()},
		},
	},
	"validate-session": {
		Name: "validate-session",
		Inputs: []packet.PortSignature{
			{Name: "session_id", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "user_id", Type: packet.String()},
		},
	},
	"has-permission": {
		Name: "has-permission",
		Inputs: []packet.PortSignature{
			{Name: "user_id", Type: packet.String()},
			{Name: "permission", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "granted", Type: packet.Bool()},
		},
	},
	"grant-permission": {
		Name: "grant-permission",
		Inputs: []packet.PortSignature{
			{Name: "user_id", Type: packet.String()},
			{Name: "permission", Type: packet.String()},
		},
		Outputs: []packet.PortSignature{
			{Name: "user_id", Type: packet.String()},
		},
	},
}

func (a *Auth) List() []provider.HostedType {
	out := make([]provider.HostedType, 0, len(signatures))
	for _, sig := range signatures {
		out = append(out, provider.HostedType{
			Name: sig.Name, Kind: provider.KindComponent, Signature: sig,
			Providers: []string{ProviderID},
		})
	}
	return out
}

func (a *Auth) Stats(id string) []provider.Stat { return a.recorder.Stats(id) }

func (a *Auth) Invoke(ctx context.Context, target packet.Entity, payload map[string]packet.Packet) (<-chan packet.PortPacket, error) {
	sig, ok := signatures[target.Name]
	if !ok {
		return nil, fmt.Errorf("auth: no such component %q", target.Name)
	}

	args, excPacket := decodeStrings(sig, payload)
	outPort := sig.Outputs[0].Name
	out := make(chan packet.PortPacket, 2)

	go func() {
		defer close(out)
		start := time.Now()
		defer func() { a.recorder.Record(target.Name, time.Since(start)) }()

		if excPacket != nil {
			out <- packet.PortPacket{Port: outPort, Packet: *excPacket}
			out <- packet.PortPacket{Port: outPort, Packet: packet.Done()}
			return
		}

		var result packet.Packet
		switch target.Name {
		case "create-user":
			result = a.createUser(args["username"], args["user_id"], args["password"])
		case "authenticate":
			result = a.authenticate(args["username"], args["password"], args["session_id"])
		case "validate-session":
			result = a.validateSession(args["session_id"])
		case "has-permission":
			result = a.hasPermission(args["user_id"], args["permission"])
		case "grant-permission":
			result = a.grantPermission(args["user_id"], args["permission"])
		}

		out <- packet.PortPacket{Port: outPort, Packet: result}
		out <- packet.PortPacket{Port: outPort, Packet: packet.Done()}
	}()

	return out, nil
}

func (a *Auth) createUser(username, userID, password string) packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.byUser[username]; exists {
		return packet.Exception(fmt.Sprintf("username %q already exists", username))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return packet.Error(err.Error())
	}
	u := &user{id: userID, username: username, passwordHash: hash, permissions: make(map[string]bool)}
	a.byUser[username] = u
	a.byID[userID] = u
	return stringPacket(userID)
}

func (a *Auth) authenticate(username, password, sessionID string) packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()

	u, ok := a.byUser[username]
	if !ok {
		return packet.Exception("no such user")
	}
	if err := bcrypt.CompareHashAndPassword(u.passwordHash, []byte(password)); err != nil {
		return packet.Exception("invalid credentials")
	}
	a.sessions[sessionID] = u.id
	return stringPacket(sessionID)
}

func (a *Auth) validateSession(sessionID string) packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()

	userID, ok := a.sessions[sessionID]
	if !ok {
		return packet.Exception("no such session")
	}
	return stringPacket(userID)
}

func (a *Auth) hasPermission(userID, permission string) packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()

	u, ok := a.byID[userID]
	if !ok {
		return packet.Exception("no such user")
	}
	if !u.permissions[permission] {
		return packet.Exception(fmt.Sprintf("permission %q not granted", permission))
	}
	data, err := packet.Encode(true, packet.Bool())
	if err != nil {
		return packet.Error(err.Error())
	}
	return packet.Data(data, packet.Bool())
}

func (a *Auth) grantPermission(userID, permission string) packet.Packet {
	a.mu.Lock()
	defer a.mu.Unlock()

	u, ok := a.byID[userID]
	if !ok {
		return packet.Exception("no such user")
	}
	u.permissions[permission] = true
	return stringPacket(userID)
}
