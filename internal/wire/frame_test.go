package wire

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := &GetRequest{Key: "hello"}
	require.NoError(t, WriteCacheFrame(&buf, CacheFrame{Type: FrameGetRequest, Payload: req.Marshal()}))

	got, err := ReadCacheFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, FrameGetRequest, got.Type)

	decoded, err := UnmarshalGetRequest(got.Payload)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded.Key)
}

func TestCacheFrame_EmptyPayloadRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCacheFrame(&buf, CacheFrame{Type: FrameDeleteResponse}))

	got, err := ReadCacheFrame(&buf)
	require.NoError(t, err)
	assert.Empty(t, got.Payload)
}

func TestCacheFrame_MultipleFramesPipeline(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCacheFrame(&buf, CacheFrame{Type: FrameGetRequest, Payload: []byte("a")}))
	require.NoError(t, WriteCacheFrame(&buf, CacheFrame{Type: FramePutRequest, Payload: []byte("bb")}))

	first, err := ReadCacheFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, FrameGetRequest, first.Type)
	assert.Equal(t, []byte("a"), first.Payload)

	second, err := ReadCacheFrame(&buf)
	require.NoError(t, err)
	assert.Equal(t, FramePutRequest, second.Type)
	assert.Equal(t, []byte("bb"), second.Payload)
}

func TestCacheFrame_OversizedPayloadRejectedOnWrite(t *testing.T) {
	var buf bytes.Buffer
	err := WriteCacheFrame(&buf, CacheFrame{Type: FrameGetRequest, Payload: make([]byte, MaxPayloadBytes+1)})
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
	assert.Zero(t, buf.Len(), "a rejected write must not partially emit a header")
}

func TestCacheFrame_OversizedDeclaredLengthRejectedOnRead(t *testing.T) {
	var buf bytes.Buffer
	header := []byte{byte(FrameGetRequest), 0xFF, 0xFF, 0xFF, 0xFF} // declares ~4GiB
	buf.Write(header)

	_, err := ReadCacheFrame(&buf)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestCacheFrame_TruncatedHeaderReturnsError(t *testing.T) {
	buf := bytes.NewReader([]byte{0x00, 0x00})
	_, err := ReadCacheFrame(buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestCacheFrame_TruncatedPayloadReturnsError(t *testing.T) {
	header := []byte{byte(FramePutRequest), 0, 0, 0, 10}
	buf := bytes.NewReader(append(header, []byte("short")...))
	_, err := ReadCacheFrame(buf)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestGossipFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	msg := &GossipMessage{Type: Ack, Sender: NodeInfo{ID: "n1"}, SequenceNumber: 9}
	require.NoError(t, WriteGossipFrame(&buf, GossipFrame{Payload: msg.Marshal()}))

	got, err := ReadGossipFrame(&buf)
	require.NoError(t, err)

	decoded, err := UnmarshalGossipMessage(got.Payload)
	require.NoError(t, err)
	assert.Equal(t, Ack, decoded.Type)
	assert.Equal(t, uint64(9), decoded.SequenceNumber)
}

func TestGossipFrame_OversizedDeclaredLengthRejectedOnRead(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	_, err := ReadGossipFrame(&buf)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestFrameType_String(t *testing.T) {
	assert.Equal(t, "GetRequest", FrameGetRequest.String())
	assert.Equal(t, "Gossip", FrameGossip.String())
	assert.Contains(t, FrameType(99).String(), "99")
}
