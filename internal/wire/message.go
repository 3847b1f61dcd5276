package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedMessage is returned when a payload cannot be decoded as the
// expected message shape: a truncated varint, an unexpected wire type, or
// trailing garbage after the last recognized field.
var ErrMalformedMessage = errors.New("wire: malformed message")

// Version is the wire form of a kv.Version: a millisecond timestamp and
// the ID of the node that produced it.
//
//	message Version {
//	  int64  timestamp_ms = 1;
//	  string node_id      = 2;
//	}
type Version struct {
	TimestampMs int64
	NodeID      string
}

func (v *Version) marshalInto(b []byte) []byte {
	if v == nil {
		return b
	}
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(v.TimestampMs))
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, v.NodeID)
	return b
}

func unmarshalVersion(data []byte) (Version, error) {
	var v Version
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return v, ErrMalformedMessage
		}
		data = data[n:]
		switch num {
		case 1:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return v, ErrMalformedMessage
			}
			v.TimestampMs = int64(val)
			data = data[n:]
		case 2:
			val, n := protowire.ConsumeString(data)
			if n < 0 {
				return v, ErrMalformedMessage
			}
			v.NodeID = val
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return v, err
			}
			data = data[n:]
		}
	}
	return v, nil
}

// CacheEntry is the wire form of a kv.Value.
//
//	message CacheEntry {
//	  bytes   data       = 1;
//	  int64   created_at = 2; // unix ms
//	  int64   expires_at = 3; // unix ms, 0 = none
//	  Version version    = 4; // optional
//	}
type CacheEntry struct {
	Data      []byte
	CreatedAt int64
	ExpiresAt int64
	Version   *Version
}

func (e *CacheEntry) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, e.Data)
	b = protowire.AppendTag(b, 2, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.CreatedAt))
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.ExpiresAt))
	if e.Version != nil {
		var vb []byte
		vb = e.Version.marshalInto(vb)
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, vb)
	}
	return b
}

func UnmarshalCacheEntry(data []byte) (*CacheEntry, error) {
	e := &CacheEntry{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]
		switch num {
		case 1:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			e.Data = append([]byte(nil), val...)
			data = data[n:]
		case 2:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			e.CreatedAt = int64(val)
			data = data[n:]
		case 3:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			e.ExpiresAt = int64(val)
			data = data[n:]
		case 4:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			ver, err := unmarshalVersion(val)
			if err != nil {
				return nil, err
			}
			e.Version = &ver
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return e, nil
}

// NodeInfo is the wire form of one member entry, carried in both
// JOIN_RESPONSE snapshots and piggybacked gossip updates.
//
//	message NodeInfo {
//	  string id          = 1;
//	  string address      = 2;
//	  uint32 port         = 3;
//	  uint32 status       = 4; // swim.Status
//	  uint64 incarnation  = 5;
//	  int64  timestamp    = 6; // unix ms
//	}
type NodeInfo struct {
	ID          string
	Address     string
	Port        uint32
	Status      uint32
	Incarnation uint64
	TimestampMs int64
}

func (ni NodeInfo) marshalInto(b []byte) []byte {
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, ni.ID)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, ni.Address)
	b = protowire.AppendTag(b, 3, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ni.Port))
	b = protowire.AppendTag(b, 4, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ni.Status))
	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, ni.Incarnation)
	b = protowire.AppendTag(b, 6, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(ni.TimestampMs))
	return b
}

func unmarshalNodeInfo(data []byte) (NodeInfo, error) {
	var ni NodeInfo
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return ni, ErrMalformedMessage
		}
		data = data[n:]
		switch num {
		case 1:
			val, n := protowire.ConsumeString(data)
			if n < 0 {
				return ni, ErrMalformedMessage
			}
			ni.ID = val
			data = data[n:]
		case 2:
			val, n := protowire.ConsumeString(data)
			if n < 0 {
				return ni, ErrMalformedMessage
			}
			ni.Address = val
			data = data[n:]
		case 3:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ni, ErrMalformedMessage
			}
			ni.Port = uint32(val)
			data = data[n:]
		case 4:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ni, ErrMalformedMessage
			}
			ni.Status = uint32(val)
			data = data[n:]
		case 5:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ni, ErrMalformedMessage
			}
			ni.Incarnation = val
			data = data[n:]
		case 6:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return ni, ErrMalformedMessage
			}
			ni.TimestampMs = int64(val)
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return ni, err
			}
			data = data[n:]
		}
	}
	return ni, nil
}

// GossipMessageType enumerates the gossip protocol's message kinds.
type GossipMessageType uint32

const (
	Ping GossipMessageType = iota
	Ack
	PingReq
	Suspect
	Alive
	Confirm
	Join
	JoinResponse
	Leave
	Sync
)

// GossipMessage is the wire form of every gossip exchange: probes,
// rumors, and membership protocol messages all share this envelope.
//
//	message GossipMessage {
//	  uint32    type            = 1;
//	  NodeInfo  sender          = 2;
//	  NodeInfo  subject         = 3; // optional
//	  repeated NodeInfo members = 4;
//	  uint64    sequence_number = 5;
//	}
type GossipMessage struct {
	Type           GossipMessageType
	Sender         NodeInfo
	Subject        *NodeInfo
	Members        []NodeInfo
	SequenceNumber uint64
}

func (m *GossipMessage) Marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(m.Type))

	var sb []byte
	sb = m.Sender.marshalInto(sb)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, sb)

	if m.Subject != nil {
		var subB []byte
		subB = m.Subject.marshalInto(subB)
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, subB)
	}

	for _, mem := range m.Members {
		var mb []byte
		mb = mem.marshalInto(mb)
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendBytes(b, mb)
	}

	b = protowire.AppendTag(b, 5, protowire.VarintType)
	b = protowire.AppendVarint(b, m.SequenceNumber)
	return b
}

func UnmarshalGossipMessage(data []byte) (*GossipMessage, error) {
	m := &GossipMessage{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, ErrMalformedMessage
		}
		data = data[n:]
		switch num {
		case 1:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			m.Type = GossipMessageType(val)
			data = data[n:]
		case 2:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			sender, err := unmarshalNodeInfo(val)
			if err != nil {
				return nil, err
			}
			m.Sender = sender
			data = data[n:]
		case 3:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			subj, err := unmarshalNodeInfo(val)
			if err != nil {
				return nil, err
			}
			m.Subject = &subj
			data = data[n:]
		case 4:
			val, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			mem, err := unmarshalNodeInfo(val)
			if err != nil {
				return nil, err
			}
			m.Members = append(m.Members, mem)
			data = data[n:]
		case 5:
			val, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, ErrMalformedMessage
			}
			m.SequenceNumber = val
			data = data[n:]
		default:
			n, err := skipField(data, typ)
			if err != nil {
				return nil, err
			}
			data = data[n:]
		}
	}
	return m, nil
}

// skipField advances past one field's value of the given wire type, for
// forward-compatibility with unknown (future) field numbers.
func skipField(data []byte, typ protowire.Type) (int, error) {
	n := protowire.ConsumeFieldValue(0, typ, data)
	if n < 0 {
		return 0, fmt.Errorf("%w: cannot skip field of type %v", ErrMalformedMessage, typ)
	}
	return n, nil
}
