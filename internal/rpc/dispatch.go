package rpc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rjsadow/aurora/internal/apperr"
)

// Handler is a registered method implementation. It receives the caller's
// session and the already-decoded request value, and returns a response
// value or an *apperr.Error. Handlers are expected to call
// CheckAuthenticated themselves before doing anything else.
type Handler func(ctx context.Context, session *Session, data any) (any, error)

// Dispatcher maps method name to Handler. Registration is monotonic: all
// Register calls happen at startup before Dispatch is ever called, and
// the table is never mutated afterward.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register adds a method handler. Calling Register for a name that is
// already registered is a programmer error and panics, since the method
// table is meant to be built once, declaratively, at startup.
func (d *Dispatcher) Register(method string, h Handler) {
	if _, exists := d.handlers[method]; exists {
		panic(fmt.Sprintf("rpc: method %q registered twice", method))
	}
	d.handlers[method] = h
}

// Dispatch looks up method and invokes its handler. It never lets a
// handler panic escape: a recovered panic becomes apperr.Internal. Decode
// failures are the caller's responsibility (the frame router decodes
// MessageRequest.Data before calling Dispatch) and surface as
// apperr.BadRequest from the handler itself.
func (d *Dispatcher) Dispatch(ctx context.Context, session *Session, method string, data any) (response any, err error) {
	h, ok := d.handlers[method]
	if !ok {
		return nil, apperr.New(apperr.InvalidMethod)
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("rpc: handler panic", "method", method, "session", session.ID, "panic", r)
			response = nil
			err = apperr.New(apperr.Internal)
		}
	}()

	return h(ctx, session, data)
}

// CheckAuthenticated is the authorization gate every handler calls first.
// It returns apperr.Unauthorized if the session has not completed
// Identify.
func CheckAuthenticated(session *Session) error {
	if !session.Identified() {
		return apperr.New(apperr.Unauthorized)
	}
	return nil
}
