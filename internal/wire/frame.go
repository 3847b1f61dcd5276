package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// MaxPayloadBytes bounds both frame formats: a peer that declares a
// length beyond this is presumed hostile or corrupt and the connection is
// closed rather than allocating an attacker-chosen amount of memory.
const MaxPayloadBytes = 10 * 1024 * 1024 // 10 MiB

// ErrPayloadTooLarge is returned when a frame's declared length exceeds
// MaxPayloadBytes.
var ErrPayloadTooLarge = errors.New("wire: frame payload exceeds maximum size")

// FrameType tags the payload carried by a CacheFrame.
type FrameType uint8

const (
	FrameGetRequest FrameType = iota
	FrameGetResponse
	FramePutRequest
	FramePutResponse
	FrameDeleteRequest
	FrameDeleteResponse
	FrameGossip
)

func (t FrameType) String() string {
	switch t {
	case FrameGetRequest:
		return "GetRequest"
	case FrameGetResponse:
		return "GetResponse"
	case FramePutRequest:
		return "PutRequest"
	case FramePutResponse:
		return "PutResponse"
	case FrameDeleteRequest:
		return "DeleteRequest"
	case FrameDeleteResponse:
		return "DeleteResponse"
	case FrameGossip:
		return "Gossip"
	default:
		return fmt.Sprintf("FrameType(%d)", uint8(t))
	}
}

// CacheFrame is one `[u8 type][u32 length BE][payload]` unit on a cache
// RPC connection.
type CacheFrame struct {
	Type    FrameType
	Payload []byte
}

// WriteCacheFrame encodes and writes f to w. Writers pipeline requests on
// a single connection, so callers that need strict write ordering must
// serialize their own calls to WriteCacheFrame on a shared connection.
func WriteCacheFrame(w io.Writer, f CacheFrame) error {
	if len(f.Payload) > MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	header := make([]byte, 5)
	header[0] = byte(f.Type)
	binary.BigEndian.PutUint32(header[1:], uint32(len(f.Payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadCacheFrame reads one frame from r, blocking until the full header
// and payload have arrived — io.ReadFull absorbs the fragmentation a
// streaming TCP connection can introduce, so callers never see a partial
// frame.
func ReadCacheFrame(r io.Reader) (CacheFrame, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return CacheFrame{}, err
	}
	frameType := FrameType(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	if length > MaxPayloadBytes {
		return CacheFrame{}, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return CacheFrame{}, err
		}
	}
	return CacheFrame{Type: frameType, Payload: payload}, nil
}

// GossipFrame is one `[u32 length BE][payload]` unit on a gossip
// connection; the payload is always a marshaled GossipMessage.
type GossipFrame struct {
	Payload []byte
}

// WriteGossipFrame encodes and writes f to w.
func WriteGossipFrame(w io.Writer, f GossipFrame) error {
	if len(f.Payload) > MaxPayloadBytes {
		return ErrPayloadTooLarge
	}
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(f.Payload)))
	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(f.Payload) == 0 {
		return nil
	}
	_, err := w.Write(f.Payload)
	return err
}

// ReadGossipFrame reads one frame from r.
func ReadGossipFrame(r io.Reader) (GossipFrame, error) {
	header := make([]byte, 4)
	if _, err := io.ReadFull(r, header); err != nil {
		return GossipFrame{}, err
	}
	length := binary.BigEndian.Uint32(header)
	if length > MaxPayloadBytes {
		return GossipFrame{}, ErrPayloadTooLarge
	}
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return GossipFrame{}, err
		}
	}
	return GossipFrame{Payload: payload}, nil
}
