package cluster

import (
	"fmt"
	"net"
	"strconv"
)

// offsetPort parses host:port, adds delta to the numeric port, and
// rejoins host and the shifted port. Used to derive a node's gossip
// listen address from its cache-RPC address (delta=+1) and, symmetrically,
// to recover a peer's cache-RPC address from the gossip address it
// advertises of itself (delta=-1) — the two control planes always sit on
// adjacent ports for a given node.
func offsetPort(addr string, delta int) (string, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", fmt.Errorf("cluster: invalid address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", fmt.Errorf("cluster: invalid port in %q: %w", addr, err)
	}
	return net.JoinHostPort(host, strconv.Itoa(port+delta)), nil
}

// gossipAddrFor derives a node's gossip listen address from its
// configured cache-RPC address.
func gossipAddrFor(cacheAddr string) (string, error) {
	return offsetPort(cacheAddr, 1)
}

// cacheAddrFromGossip recovers a peer's cache-RPC address given the
// gossip address it was reached at (e.g. from wire.NodeInfo.Address).
func cacheAddrFromGossip(gossipAddr string) (string, error) {
	return offsetPort(gossipAddr, -1)
}
