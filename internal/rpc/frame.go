package rpc

import (
	"github.com/rjsadow/aurora/internal/codec"
)

// EncodeFrame serializes v and applies the session's negotiated
// encryption key, if any. Compression is left off by default: the wire
// contract (SPEC_FULL.md §4.1) allows it per frame, but this core never
// has a reason to pay the CPU cost for the small control/event frames it
// sends — handlers that push large payloads may compress explicitly via
// codec.Encode themselves.
func EncodeFrame(v any, key *[32]byte) ([]byte, error) {
	data, err := codec.Serialize(v)
	if err != nil {
		return nil, err
	}
	return codec.Encode(data, false, key)
}

// DecodeFrame reverses EncodeFrame into v.
func DecodeFrame(frame []byte, key *[32]byte, v any) error {
	data, err := codec.Decode(frame, false, key)
	if err != nil {
		return err
	}
	return codec.Deserialize(data, v)
}
