// Package handlers registers the method surface named in SPEC_FULL.md §6
// against the dispatcher (C5): friend management, spaces/channels,
// invites, roles, messages, and voice calls. Every handler follows the
// same shape as the original's methods/*.rs functions: check
// authentication first, decode the request, call into the domain/calls
// layer, and return a response value or an *apperr.Error.
package handlers

import (
	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/vmihailenco/msgpack/v5"
)

// decodeParams re-encodes the dispatcher's already-decoded "any" (a
// msgpack-native map produced by the frame router's generic decode) and
// decodes it into a concrete request struct. A round trip through
// msgpack is simpler than a reflection-based map walk and reuses the
// same library already used for the wire format.
func decodeParams(data any, out any) error {
	raw, err := msgpack.Marshal(data)
	if err != nil {
		return apperr.New(apperr.BadRequest)
	}
	if err := msgpack.Unmarshal(raw, out); err != nil {
		return apperr.New(apperr.BadRequest)
	}
	return nil
}
