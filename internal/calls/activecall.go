package calls

// ActiveCall is the in-progress voice/video session record kept in the
// shared key-value store, per spec.md §3.
type ActiveCall struct {
	ID        string   `msgpack:"id"`
	Name      string   `msgpack:"name,omitempty"`
	Members   []string `msgpack:"members"`
	SpaceID   string   `msgpack:"spaceId"`
	ChannelID string   `msgpack:"channelId"`
}

// HasMember reports whether userID is a member of the call.
func (c *ActiveCall) HasMember(userID string) bool {
	for _, id := range c.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// removeMember returns the member list with userID removed.
func removeMember(members []string, userID string) []string {
	out := make([]string, 0, len(members))
	for _, id := range members {
		if id != userID {
			out = append(out, id)
		}
	}
	return out
}
