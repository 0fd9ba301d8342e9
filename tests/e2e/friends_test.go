package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Friend state machine", func() {
	var env *testEnv

	BeforeEach(func() {
		ctx := context.Background()
		env = newTestEnv(ctx)
		env.insertUser(ctx, "user-1")
		env.insertUser(ctx, "user-2")
	})

	// S4: addFriend/addFriend/removeFriend drives both sides of the
	// affinity graph through Requested/Pending to Friend and back to
	// no affinity at all.
	It("progresses both users through request, accept, and removal", func() {
		ctx := context.Background()
		httpSrv := newTestServer(env, tokenAuthenticator{"T1": "user-1", "T2": "user-2"})

		conn1 := dial(httpSrv)
		identify(conn1, "T1")
		conn2 := dial(httpSrv)
		identify(conn2, "T2")

		call(conn1, "r1", "addFriend", map[string]any{"id": "user-2"})

		u1, err := env.users.Get(ctx, "user-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(u1.Affinities).To(HaveLen(1))
		Expect(string(u1.Affinities[0].Relationship)).To(Equal("requested"))

		u2, err := env.users.Get(ctx, "user-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(u2.Affinities).To(HaveLen(1))
		Expect(string(u2.Affinities[0].Relationship)).To(Equal("pending"))

		call(conn2, "r2", "addFriend", map[string]any{"id": "user-1"})

		u1, err = env.users.Get(ctx, "user-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(u1.Affinities[0].Relationship)).To(Equal("friend"))

		u2, err = env.users.Get(ctx, "user-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(u2.Affinities[0].Relationship)).To(Equal("friend"))

		call(conn1, "r3", "removeFriend", map[string]any{"id": "user-2"})

		u1, err = env.users.Get(ctx, "user-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(u1.Affinities).To(BeEmpty())

		u2, err = env.users.Get(ctx, "user-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(u2.Affinities).To(BeEmpty())
	})
})
