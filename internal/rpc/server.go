package rpc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/crypto/curve25519"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/idgen"
	"github.com/rjsadow/aurora/internal/wire"
)

// Authenticator maps a bearer token (and, if supplied, a client X25519
// public key) to an opaque user id. It is the pluggable in-band
// authentication verifier the core treats as an external collaborator
// (see SPEC_FULL.md A3).
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (userID string, err error)
}

// Config tunes the frame router's per-connection resource limits.
type Config struct {
	OutboundQueueSize int
	SlowClientTimeout time.Duration
	HeartbeatTimeout  time.Duration
}

// Server is the frame router (C3): it accepts a connection, drives the
// handshake, and runs its read loop against the shared Registry and
// Dispatcher.
type Server struct {
	Registry   *Registry
	Dispatcher *Dispatcher
	Auth       Authenticator
	Config     Config
}

// NewServer builds a frame router over the given registry, dispatcher,
// and authenticator.
func NewServer(registry *Registry, dispatcher *Dispatcher, auth Authenticator, cfg Config) *Server {
	return &Server{Registry: registry, Dispatcher: dispatcher, Auth: auth, Config: cfg}
}

// HandleConnection drives one accepted WebSocket connection through its
// entire lifecycle: mint ids, handshake, register, supervise heartbeat,
// read loop, and teardown. It blocks until the connection closes.
func (srv *Server) HandleConnection(ctx context.Context, conn *websocket.Conn) error {
	connID, err := idgen.GenerateID()
	if err != nil {
		return fmt.Errorf("rpc: mint connection id: %w", err)
	}
	requestIDs, err := idgen.NewRequestIDPool()
	if err != nil {
		return fmt.Errorf("rpc: mint request id pool: %w", err)
	}

	session := NewSession(connID, srv.Config.OutboundQueueSize, srv.Config.SlowClientTimeout, requestIDs)

	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		runWritePump(conn, session)
	}()

	var ephemeralSecret [32]byte
	if _, err := rand.Read(ephemeralSecret[:]); err != nil {
		session.Close()
		<-writeDone
		return fmt.Errorf("rpc: generate ephemeral secret: %w", err)
	}
	serverPublic, err := curve25519.X25519(ephemeralSecret[:], curve25519.Basepoint)
	if err != nil {
		session.Close()
		<-writeDone
		return fmt.Errorf("rpc: derive ephemeral public key: %w", err)
	}

	hello, err := EncodeFrame(wire.NewHello(serverPublic, session.RequestIDs()), nil)
	if err != nil {
		session.Close()
		<-writeDone
		return fmt.Errorf("rpc: encode hello: %w", err)
	}
	if err := session.Send(hello); err != nil {
		<-writeDone
		return err
	}

	srv.Registry.Insert(session)
	go SuperviseHeartbeat(srv.Registry, session, srv.Config.HeartbeatTimeout)

	defer func() {
		srv.Registry.Remove(session.ID)
		session.Close()
		<-writeDone
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil
		}
		if msgType != websocket.BinaryMessage {
			slog.Info("rpc: non-binary frame, closing connection", "session", session.ID, "messageType", msgType)
			return nil
		}
		if err := srv.handleFrame(ctx, session, data, &ephemeralSecret); err != nil {
			slog.Warn("rpc: frame handling error", "session", session.ID, "error", err)
		}
		select {
		case <-session.Done():
			return nil
		default:
		}
	}
}

func runWritePump(conn *websocket.Conn, session *Session) {
	defer conn.Close()
	for frame := range session.Outbound {
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			session.Close()
			return
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (srv *Server) handleFrame(ctx context.Context, session *Session, raw []byte, ephemeralSecret *[32]byte) error {
	var env wire.Envelope
	if err := DecodeFrame(raw, session.EncryptionKey(), &env); err != nil {
		return srv.sendError(session, "", apperr.BadRequest)
	}

	switch env.Type {
	case wire.TypeIdentify:
		return srv.handleIdentify(ctx, session, raw, ephemeralSecret)
	case wire.TypeHeartbeat:
		select {
		case session.Heartbeat <- struct{}{}:
		default:
		}
		return srv.sendFrame(session, wire.HeartbeatResponse{Type: wire.TypeHeartbeat})
	case wire.TypeGetID:
		ids, err := idgen.NewRequestIDPool()
		if err != nil {
			return srv.sendError(session, "", apperr.Internal)
		}
		session.AppendRequestIDs(ids)
		return srv.sendFrame(session, wire.GetIDResponse{Type: wire.TypeGetID, RequestIDs: ids})
	case wire.TypeMessage:
		return srv.handleMessage(ctx, session, raw)
	default:
		return srv.sendError(session, "", apperr.BadRequest)
	}
}

func (srv *Server) handleIdentify(ctx context.Context, session *Session, raw []byte, ephemeralSecret *[32]byte) error {
	var req wire.IdentifyRequest
	if err := DecodeFrame(raw, session.EncryptionKey(), &req); err != nil {
		return srv.sendError(session, "", apperr.BadRequest)
	}

	userID, err := srv.Auth.Authenticate(ctx, req.Token)
	if err != nil || userID == "" {
		return srv.sendError(session, "", apperr.Unauthorized)
	}
	if err := session.SetUser(userID); err != nil {
		return srv.sendError(session, "", apperr.Internal)
	}

	// Per SPEC_FULL.md OQ1: encryption is opt-in and sticky. A client
	// that supplies a public key at Identify gets every later frame on
	// this connection encrypted; one that doesn't stays unencrypted for
	// the connection's lifetime.
	if len(req.PublicKey) == 32 {
		var clientPublic [32]byte
		copy(clientPublic[:], req.PublicKey)
		shared, err := curve25519.X25519(ephemeralSecret[:], clientPublic[:])
		if err != nil {
			return srv.sendError(session, "", apperr.Internal)
		}
		key := sha256.Sum256(shared)
		session.SetEncryptionKey(&key)
	}

	return srv.sendFrame(session, wire.IdentifyResponse{Type: wire.TypeIdentify})
}

func (srv *Server) handleMessage(ctx context.Context, session *Session, raw []byte) error {
	var req wire.MessageRequest
	if err := DecodeFrame(raw, session.EncryptionKey(), &req); err != nil {
		return srv.sendError(session, "", apperr.BadRequest)
	}

	resp, err := srv.Dispatcher.Dispatch(ctx, session, req.Method, req.Data)
	if err != nil {
		kind := apperr.KindOf(err)
		if kind == apperr.MissingPermission {
			ae, _ := apperr.As(err)
			return srv.sendFrame(session, wire.NewMissingPermissionError(req.ID, ae.Permission))
		}
		return srv.sendError(session, req.ID, kind)
	}
	return srv.sendFrame(session, wire.NewResponse(req.ID, resp))
}

func (srv *Server) sendFrame(session *Session, v any) error {
	frame, err := EncodeFrame(v, session.EncryptionKey())
	if err != nil {
		return err
	}
	return session.Send(frame)
}

func (srv *Server) sendError(session *Session, requestID string, kind apperr.Kind) error {
	return srv.sendFrame(session, wire.NewError(requestID, string(kind)))
}
