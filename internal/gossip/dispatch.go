package gossip

import (
	"context"

	"github.com/ppriyankuu/gokv/internal/wire"
)

// HandleMessage is the server-side entry point for an inbound gossip
// frame: whatever accepts connections (TCPTransport's listener, or a
// test harness driving two Services directly) decodes the frame and
// calls this to get the reply to write back.
func (s *Service) HandleMessage(ctx context.Context, msg *wire.GossipMessage) *wire.GossipMessage {
	s.mergeIncoming(msg)

	switch msg.Type {
	case Ping:
		return s.buildMessage(Ack, nil)

	case PingReq:
		if msg.Subject == nil {
			return s.buildMessage(PingReq, nil) // malformed request, report failure
		}
		if s.directPing(ctx, msg.Subject.ID) {
			s.detector.RecordHeartbeat(msg.Subject.ID)
			return s.buildMessage(Ack, nil)
		}
		return s.buildMessage(PingReq, nil)

	case Join:
		return s.buildSnapshotMessage(JoinResponse)

	case Sync:
		return s.buildSnapshotMessage(Sync)

	case Suspect, Alive, Confirm, Leave, JoinResponse:
		// Rumor/membership messages carry no further response payload
		// of their own; the reply exists only to complete the
		// synchronous round trip, and rides the usual piggyback sample.
		return s.buildMessage(msg.Type, nil)

	default:
		return s.buildMessage(msg.Type, nil)
	}
}

// buildSnapshotMessage replies with the full known-member list, used by
// JOIN_RESPONSE and SYNC, which unlike ordinary gossip exchange the
// random piggyback sample, a full state exchange.
func (s *Service) buildSnapshotMessage(msgType wire.GossipMessageType) *wire.GossipMessage {
	return &wire.GossipMessage{
		Type:           msgType,
		Sender:         s.buildNodeInfo(s.selfID),
		Members:        s.Members(),
		SequenceNumber: s.seq.Add(1),
	}
}
