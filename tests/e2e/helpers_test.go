package e2e

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/onsi/gomega"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/handlers"
	"github.com/rjsadow/aurora/internal/rpc"
	"github.com/rjsadow/aurora/internal/wire"
)

// tokenAuthenticator authenticates by exact token-to-user-id lookup,
// standing in for the pluggable JWT/OIDC authenticators the live server
// uses (spec.md's Identify handshake is agnostic to how a token resolves
// to a user id).
type tokenAuthenticator map[string]string

func (a tokenAuthenticator) Authenticate(_ context.Context, token string) (string, error) {
	if userID, ok := a[token]; ok {
		return userID, nil
	}
	return "", apperr.New(apperr.Unauthorized)
}

// newTestServer wires the real dispatcher and handler surface against
// env's live Mongo/Redis-backed repositories and starts an httptest
// server fronting the RPC transport.
func newTestServer(env *testEnv, tokens tokenAuthenticator) *httptest.Server {
	dispatcher := rpc.NewDispatcher()
	h := &handlers.Handlers{
		Registry:      env.registry,
		Users:         env.users,
		Spaces:        env.spaces,
		Channels:      env.channels,
		Members:       env.members,
		Roles:         env.roles,
		Invites:       env.invites,
		Messages:      env.messages,
		Coordinator:   env.coordinator,
		MaxSpaceCount: 200,
	}
	h.RegisterAll(dispatcher)

	srv := rpc.NewServer(env.registry, dispatcher, tokens, rpc.Config{
		OutboundQueueSize: 32,
		SlowClientTimeout: 2 * time.Second,
		HeartbeatTimeout:  2 * time.Second,
	})

	upgrader := websocket.Upgrader{}
	httpSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = srv.HandleConnection(context.Background(), conn)
	}))
	DeferCleanup(httpSrv.Close)
	return httpSrv
}

// dial opens a raw WebSocket connection to httpSrv.
func dial(httpSrv *httptest.Server) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(conn *websocket.Conn, v any) {
	_, data, err := conn.ReadMessage()
	Expect(err).NotTo(HaveOccurred())
	Expect(rpc.DecodeFrame(data, nil, v)).To(Succeed())
}

func sendFrame(conn *websocket.Conn, v any) {
	frame, err := rpc.EncodeFrame(v, nil)
	Expect(err).NotTo(HaveOccurred())
	Expect(conn.WriteMessage(websocket.BinaryMessage, frame)).To(Succeed())
}

// identify drives the Hello/Identify handshake on a freshly dialed
// connection and returns once the server has acknowledged it.
func identify(conn *websocket.Conn, token string) {
	var hello wire.HelloEvent
	readFrame(conn, &hello)
	Expect(hello.PublicKey).To(HaveLen(32))
	Expect(hello.RequestIDs).To(HaveLen(20))

	sendFrame(conn, wire.IdentifyRequest{Type: wire.TypeIdentify, Token: token})
	var resp wire.IdentifyResponse
	readFrame(conn, &resp)
	Expect(resp.Type).To(Equal(wire.TypeIdentify))
}

// call invokes method with params and returns the first Response or
// Error frame that follows, skipping over any out-of-band Event frames
// a handler pushed ahead of its own reply (e.g. addFriend notifying the
// other party before the dispatcher writes the caller's Response).
func call(conn *websocket.Conn, id, method string, params any) wire.Response {
	sendFrame(conn, wire.MessageRequest{Type: wire.TypeMessage, ID: id, Method: method, Data: params})
	for {
		_, data, err := conn.ReadMessage()
		Expect(err).NotTo(HaveOccurred())

		var envelope wire.Envelope
		Expect(rpc.DecodeFrame(data, nil, &envelope)).To(Succeed())
		if envelope.Type == wire.TypeEvent {
			continue
		}

		var resp wire.Response
		Expect(rpc.DecodeFrame(data, nil, &resp)).To(Succeed())
		return resp
	}
}
