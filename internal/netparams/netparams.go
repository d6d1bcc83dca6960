// Package netparams holds the closed set of network parameters this
// seeder understands, the way gombadi-dnsseeder/network.go holds one
// network struct per chain it supports.
package netparams

import "fmt"

// Params describes one network this seeder can crawl.
type Params struct {
	// ID is the network's identifier string (e.g. "kaspa-mainnet"). It is
	// sent nowhere on the wire; Select chooses by "testnet"/"net_suffix",
	// not by ID.
	ID string
	// Name is a short human label used in logs.
	Name string
	// Magic is the framing magic number used in place of Bitcoin's own,
	// see probe's wire codec.
	Magic uint32
	// DefaultPort is the canonical P2P port for this network. A record is
	// only ever promoted to Good if it was learned on this port.
	DefaultPort uint16
	// DNSSeeds is the fixed, network-dependent list of external hostnames
	// Seed Discovery resolves at startup and on its own interval.
	DNSSeeds []string
}

// Mainnet is the production Kaspa-like network.
var Mainnet = Params{
	ID:          "kaspa-mainnet",
	Name:        "mainnet",
	Magic:       0x6b617370, // "kasp"
	DefaultPort: 16111,
	DNSSeeds: []string{
		"mainnet-dnsseed-1.kaspanet.org",
		"mainnet-dnsseed-2.kaspanet.org",
		"seeder1.kaspad.net",
		"seeder2.kaspad.net",
		"seeder3.kaspad.net",
		"seeder4.kaspad.net",
		"kaspadns.kaspacalc.net",
		"n-mainnet.kaspa.ws",
		"dnsseeder-kaspa-mainnet.x-con.at",
	},
}

// Testnet11 is the only accepted testnet variant.
var Testnet11 = Params{
	ID:          "kaspa-testnet-11",
	Name:        "testnet-11",
	Magic:       0x6b617374, // "kast"
	DefaultPort: 16311,
	DNSSeeds: []string{
		"seeder1-testnet.kaspad.net",
		"dnsseeder-kaspa-testnet.x-con.at",
		"n-testnet-10.kaspa.ws",
	},
}

// Select returns the Params for testnet=false (mainnet) or testnet=true
// with the given suffix. Per spec.md §6 no net_suffix other than 0
// (mainnet) and 11 (testnet) is accepted.
func Select(testnet bool, suffix uint16) (Params, error) {
	if !testnet {
		if suffix != 0 {
			return Params{}, fmt.Errorf("net_suffix %d is not valid for mainnet", suffix)
		}
		return Mainnet, nil
	}
	if suffix != 11 {
		return Params{}, fmt.Errorf("net_suffix %d is not a supported testnet variant", suffix)
	}
	return Testnet11, nil
}
