// Package ring implements a consistent-hash ring with virtual nodes: the
// structure that decides, for any key, the ordered list of physical nodes
// that should hold a replica of it.
//
// Big idea:
//
// Naive hash(key) % N routing remaps almost every key when N changes —
// adding or removing one node reshuffles the whole cluster. Consistent
// hashing fixes this by placing both nodes and keys on a single ring (the
// space of 64-bit hash values) and assigning each key to the node whose
// position is the first one clockwise from the key's own position. Adding
// or removing a node then only disturbs the keys near its position on the
// ring — on average 1/N of them, not all of them.
//
// Virtual nodes: a single physical node occupying just one point on the
// ring gets a disproportionate, noisy share of the key space. Giving each
// physical node V virtual nodes (V=256 by default), each independently
// hashed, smooths that out — this is the same trick Cassandra and Dynamo
// use.
package ring
