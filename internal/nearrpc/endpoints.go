package nearrpc

// Endpoint is a single JSON-RPC node. Order within a pool defines priority;
// there is no randomization.
type Endpoint struct {
	URL string

	// RequiresKey marks endpoints that need an Authorization header.
	RequiresKey bool
}

// DefaultRecentEndpoints serve queries against recent state.
func DefaultRecentEndpoints() []Endpoint {
	return []Endpoint{
		{URL: "https://rpc.mainnet.near.org"},
		{URL: "https://rpc.mainnet.fastnear.com", RequiresKey: true},
		{URL: "https://1rpc.io/near"},
	}
}

// DefaultArchivalEndpoints retain full historical state and are required for
// queries against old block heights.
func DefaultArchivalEndpoints() []Endpoint {
	return []Endpoint{
		{URL: "https://archival-rpc.mainnet.near.org"},
		{URL: "https://archival-rpc.mainnet.pagoda.co"},
		{URL: "https://archival-rpc.mainnet.fastnear.com", RequiresKey: true},
	}
}
