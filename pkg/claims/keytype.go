package claims

// KeyType names the role a signing key plays, gating which kinds of
// subject it may sign (spec.md §4.H "Keys are generated by type").
type KeyType string

const (
	Account  KeyType = "account"
	Cluster  KeyType = "cluster"
	Service  KeyType = "service"
	Module   KeyType = "module"
	Server   KeyType = "server"
	Operator KeyType = "operator"
	User     KeyType = "user"
)

// signableBy maps a subject's key type to the signer key types allowed to
// issue a claims token for it. An Operator key roots the hierarchy; every
// other type signs only its immediate children, mirroring the nkeys-style
// chain of custody the original implementation used for module provenance
// (Operator -> Account -> {Cluster, Service, Server} -> {Module, User}).
var signableBy = map[KeyType][]KeyType{
	Account: {Operator},
	Cluster: {Account},
	Service: {Account},
	Server:  {Account},
	Module:  {Cluster, Service, Server},
	User:    {Cluster, Service, Server},
}

// CanSign reports whether a key of type signer may issue a claims token
// for a subject of type subject.
func CanSign(signer, subject KeyType) bool {
	for _, allowed := range signableBy[subject] {
		if allowed == signer {
			return true
		}
	}
	return false
}
