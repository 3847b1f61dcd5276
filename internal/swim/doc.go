// Package swim implements the per-node state machine of a SWIM-style
// (Scalable Weakly-consistent Infection-style Membership) failure detector.
//
// Big idea:
//
// Every node the detector has heard about carries a status — ALIVE,
// SUSPECTED, DOWN, LEAVING, or LEFT — and an incarnation number the node
// itself controls. Heartbeats and missed-heartbeat counts drive ALIVE ->
// SUSPECTED -> DOWN transitions; a node can always refute a false
// suspicion by bumping its own incarnation and re-announcing ALIVE. Gossip
// (package gossip) is what actually ships heartbeats and status rumors
// between nodes; this package only owns the state machine they drive.
package swim
