// Copyright (c) 2013-2018 The btcsuite developers
// Copyright (c) 2016-2018 The Decred developers
// Copyright (c) 2021 Jeremy Rand
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file of btcd.

package probe

import (
	"net"

	"github.com/btcsuite/go-socks/socks"
	"github.com/pkg/errors"
)

// ProxyOptions configures an optional SOCKS proxy for outbound P2P
// dials, the operator-facing supplement named in SPEC_FULL.md's
// domain-stack section.
type ProxyOptions struct {
	Addr         string
	Username     string
	Password     string
	TorIsolation bool
}

// DialerFor returns the DialFunc a Config should use: plain
// net.DialTimeout with no proxy configured, or a SOCKS proxy dialer
// otherwise. Loosely copied from dial.go's createDial, generalized
// away from mutating a shared *configData in place.
func DialerFor(opts ProxyOptions) (DialFunc, error) {
	if opts.Addr == "" {
		return net.DialTimeout, nil
	}
	if _, _, err := net.SplitHostPort(opts.Addr); err != nil {
		return nil, errors.Wrapf(err, "proxy address %q is invalid", opts.Addr)
	}

	proxy := &socks.Proxy{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		TorIsolation: opts.TorIsolation,
	}
	return proxy.DialTimeout, nil
}
