package wasmhost

import "os"

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// OCIFetcher resolves an OCI reference to module bytes. The fetcher itself
// is an external collaborator (spec.md §1 lists OCI resolution as out of
// scope); this host only defines the seam it plugs into.
type OCIFetcher interface {
	Fetch(uri string) ([]byte, error)
}

// FromURL fetches ociURI via fetcher then delegates to FromBytes (spec.md
// §4.E "from_url(oci_uri) fetches via the external OCI fetcher then
// delegates").
func FromURL(ociURI string, fetcher OCIFetcher) (*Module, error) {
	buf, err := fetcher.Fetch(ociURI)
	if err != nil {
		return nil, err
	}
	return FromBytes(buf)
}
