package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/wire"
)

var _ = Describe("Handshake", func() {
	var env *testEnv

	BeforeEach(func() {
		env = newTestEnv(context.Background())
		env.insertUser(context.Background(), "user-1")
	})

	// S1: open connection, identify, and call a method end to end.
	It("identifies and serves a method call", func() {
		httpSrv := newTestServer(env, tokenAuthenticator{"T": "user-1"})
		conn := dial(httpSrv)

		identify(conn, "T")

		resp := call(conn, "r1", "getFriends", map[string]any{})
		Expect(resp.ID).To(Equal("r1"))
		Expect(resp.Response).NotTo(BeNil())
	})

	// S2: an unregistered method yields an InvalidMethod error correlated
	// to the request id.
	It("rejects an unknown method with InvalidMethod", func() {
		httpSrv := newTestServer(env, tokenAuthenticator{"T": "user-1"})
		conn := dial(httpSrv)

		identify(conn, "T")

		sendFrame(conn, wire.MessageRequest{Type: wire.TypeMessage, ID: "r2", Method: "doesNotExist", Data: map[string]any{}})
		var errFrame wire.ErrorFrame
		readFrame(conn, &errFrame)
		Expect(errFrame.ID).To(Equal("r2"))
		Expect(errFrame.Error.Kind).To(Equal(string(apperr.InvalidMethod)))
	})
})
