// Command waflrund is the WAFL runtime process: it owns a Registry of
// native and wasm providers for its process lifetime, optionally exposes
// that registry to remote peers over pkg/rpc, and serves schematic
// requests through the Network Facade (spec.md §4.G).
//
// Modeled on the teacher's cmd/minimega/main.go: flag-driven
// configuration, minilog-style setup, then a blocking serve loop with
// signal-triggered shutdown. Schematic manifest parsing, the OCI wasm
// fetcher, and a CLI/REPL front end are external collaborators (spec.md
// §1) this entrypoint does not implement.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"wafl/pkg/claims"
	"wafl/pkg/network"
	"wafl/pkg/provider"
	"wafl/pkg/provider/auth"
	"wafl/pkg/provider/inmemory"
	"wafl/pkg/rpc"
	"wafl/pkg/wasmhost"
	log "wafl/pkg/wlog"
)

// envDefaultSchematic names the schematic -schematic falls back to when
// unset, the renamed successor to the teacher lineage's
// VINO_DEFAULT_SCHEMATIC (spec.md §6).
const envDefaultSchematic = "WAFL_DEFAULT_SCHEMATIC"

var (
	fListen    = flag.String("listen", "", "address to serve the provider registry over RPC, e.g. :9500 (disabled if empty)")
	fLogLevel  = flag.String("log-level", "info", "debug, info, warn, error, or fatal")
	fWasm      = flag.String("wasm", "", "path to a signed wasm module to load as an additional provider (disabled if empty)")
	fSubject   = flag.String("subject", "", "subject name for this node's server key, used with -genkey")
	fGenKey    = flag.Bool("genkey", false, "generate and persist a server key for -subject, then exit")
	fVersion   = flag.Bool("version", false, "print the version and exit")
	fKeys      = flag.String("keys", "", "keystore directory (overrides WAFL_KEYS and the $HOME/.wafl/keys default)")
	fSchematic = flag.String("schematic", "", "name of the schematic Request runs when the caller doesn't name one (falls back to WAFL_DEFAULT_SCHEMATIC)")
	fTimeout   = flag.Duration("timeout", 0, "invocation deadline for requests that don't carry their own (0 uses the scheduler default)")
)

const banner = "waflrund, the WAFL dataflow runtime"

func usage() {
	fmt.Println(banner)
	fmt.Println("usage: waflrund [option]...")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	if *fVersion {
		fmt.Println(banner)
		os.Exit(0)
	}

	level, err := log.ParseLevel(*fLogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log.SetLevel(level)

	if *fGenKey {
		genKey()
		return
	}

	registry := provider.NewRegistry()
	registry.Register(inmemory.ProviderID, inmemory.New())
	registry.Register(auth.ProviderID, auth.New())

	if *fWasm != "" {
		mod, err := wasmhost.FromFile(*fWasm)
		if err != nil {
			log.Fatal("load wasm module %s: %v", *fWasm, err)
		}
		wp := wasmhost.NewProvider(mod)
		for _, hosted := range wp.List() {
			log.Info("wasm module %s hosts component %s", *fWasm, hosted.Name)
		}
		registry.Register(mod.Claims().Subject, wp)
	}

	facade := network.New(registry)

	defaultSchematic := *fSchematic
	if defaultSchematic == "" {
		defaultSchematic = os.Getenv(envDefaultSchematic)
	}
	if defaultSchematic != "" {
		facade.SetDefaultSchematic(defaultSchematic)
	}
	if *fTimeout > 0 {
		facade.SetTimeout(*fTimeout)
	}

	if err := facade.Init(); err != nil {
		log.Fatal("facade init: %v", err)
	}
	log.Info("facade initialized with %d registered schematic(s)", len(facade.ListSchematics()))

	var server *rpc.Server
	if *fListen != "" {
		ln, err := net.Listen("tcp", *fListen)
		if err != nil {
			log.Fatal("listen %s: %v", *fListen, err)
		}
		server = rpc.NewServer(provider.NewAggregate(registry))
		go func() {
			if err := server.Serve(ln); err != nil {
				log.Error("rpc serve: %v", err)
			}
		}()
		log.Info("serving provider registry on %s", *fListen)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Info("shutting down")
	facade.Shutdown()
}

// genKey mints and persists an Ed25519 server key for -subject, the
// operator workflow spec.md §4.H describes for provisioning a new node
// before it can sign or verify module claims.
func genKey() {
	if *fSubject == "" {
		log.Fatal("-genkey requires -subject")
	}
	ks, err := openKeystore()
	if err != nil {
		log.Fatal("open keystore: %v", err)
	}
	if _, err := ks.Generate(*fSubject, claims.Server); err != nil {
		log.Fatal("generate key: %v", err)
	}
	log.Info("generated server key for %s", *fSubject)
}

// openKeystore honors -keys when set, otherwise falls back to the
// WAFL_KEYS / $HOME/.wafl/keys resolution claims.NewKeystore already does.
func openKeystore() (*claims.Keystore, error) {
	if *fKeys != "" {
		return claims.NewKeystoreAt(*fKeys)
	}
	return claims.NewKeystore()
}
