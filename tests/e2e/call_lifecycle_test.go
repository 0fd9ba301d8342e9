package e2e

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/nodesbus"
	"github.com/rjsadow/aurora/internal/store"
)

// fakeMediaNode subscribes to the "nodes" bus and answers every
// UserConnect offer it sees with a canned SDP answer, standing in for an
// out-of-process media node (spec.md's C8).
func fakeMediaNode(redisStore *store.Redis) {
	ctx, cancel := context.WithCancel(context.Background())
	DeferCleanup(cancel)

	sub := redisStore.Client.Subscribe(ctx, store.NodesChannel)
	DeferCleanup(func() { _ = sub.Close() })

	go func() {
		ch := sub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				env, err := nodesbus.DecodeEnvelope([]byte(msg.Payload))
				if err != nil || env.Event.Kind != nodesbus.KindUserConnect {
					continue
				}
				var offer nodesbus.UserConnect
				if err := nodesbus.Unmarshal([]byte(msg.Payload), &offer); err != nil {
					continue
				}

				// UserCreate's inner event type is unexported, so a real
				// (non-Go) media node's wire-compatible payload is built
				// here from an anonymous struct carrying the same
				// msgpack tags instead.
				answerPayload, err := nodesbus.Marshal(struct {
					ID    string `msgpack:"id"`
					Event struct {
						Kind      string `msgpack:"kind"`
						CallID    string `msgpack:"callId"`
						SessionID string `msgpack:"sessionId"`
						Answer    string `msgpack:"sdp"`
					} `msgpack:"event"`
				}{
					ID: "answer-1",
					Event: struct {
						Kind      string `msgpack:"kind"`
						CallID    string `msgpack:"callId"`
						SessionID string `msgpack:"sessionId"`
						Answer    string `msgpack:"sdp"`
					}{
						Kind:      nodesbus.KindUserCreate,
						CallID:    offer.Event.CallID,
						SessionID: offer.Event.SessionID,
						Answer:    "ANSWER",
					},
				})
				if err != nil {
					continue
				}
				_ = redisStore.Client.Publish(ctx, store.NodesChannel, answerPayload).Err()
			case <-ctx.Done():
				return
			}
		}
	}()
}

var _ = Describe("Call lifecycle", func() {
	var (
		env     *testEnv
		spaceID string
	)

	BeforeEach(func() {
		ctx := context.Background()
		env = newTestEnv(ctx)
		env.insertUser(ctx, "user-1")

		space, err := env.spaces.Create(ctx, "Test Space", "", "user-1")
		Expect(err).NotTo(HaveOccurred())
		spaceID = space.ID
		Expect(env.members.Upsert(ctx, "user-1", spaceID)).To(Succeed())

		fakeMediaNode(env.redis)
	})

	// S3: start, join (via a simulated media node answering over the
	// nodes bus), and leave a call, verifying the witness key clears.
	It("runs the full start/join/leave lifecycle", func() {
		ctx := context.Background()
		httpSrv := newTestServer(env, tokenAuthenticator{"T1": "user-1"})
		conn := dial(httpSrv)
		identify(conn, "T1")

		startResp := call(conn, "r1", "startCall", map[string]any{"id": "chan-1", "spaceId": spaceID})
		Expect(startResp.Response).NotTo(BeNil())

		active, err := env.coordinator.GetInChannel(ctx, spaceID, "chan-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(active).NotTo(BeNil())

		joinResp := call(conn, "r3", "joinCall", map[string]any{"id": "chan-1", "spaceId": spaceID, "sdp": "OFFER"})
		payload, ok := joinResp.Response.(map[string]any)
		Expect(ok).To(BeTrue())
		Expect(payload["sdp"]).To(Equal("ANSWER"))

		call(conn, "r4", "leaveCall", map[string]any{"id": "chan-1", "spaceId": spaceID})

		witnessKey := store.CallWitnessKey(spaceID, "chan-1")
		exists, err := env.redis.Client.Exists(ctx, witnessKey).Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeEquivalentTo(0))

		gone, err := env.coordinator.GetInChannel(ctx, spaceID, "chan-1")
		Expect(err).NotTo(HaveOccurred())
		Expect(gone).To(BeNil())
	})

	// S3 (AlreadyExists branch): a second startCall on an already-live
	// (space, channel) is rejected, verified directly against the
	// coordinator since the dispatcher's error path is exercised in the
	// handshake specs.
	It("rejects a second concurrent call in the same channel", func() {
		ctx := context.Background()
		_, err := env.coordinator.Create(ctx, spaceID, "chan-2", "user-1")
		Expect(err).NotTo(HaveOccurred())

		_, err = env.coordinator.Create(ctx, spaceID, "chan-2", "user-1")
		Expect(err).To(HaveOccurred())
		Expect(apperr.KindOf(err)).To(Equal(apperr.AlreadyExists))
	})
})
