package handlers

import (
	"github.com/rjsadow/aurora/internal/calls"
	"github.com/rjsadow/aurora/internal/domain"
	"github.com/rjsadow/aurora/internal/rpc"
)

// Handlers holds every dependency the method surface needs and owns
// registering all of it against a Dispatcher.
type Handlers struct {
	Registry    *rpc.Registry
	Users       *domain.Users
	Spaces      *domain.Spaces
	Channels    *domain.Channels
	Members     *domain.Members
	Roles       *domain.Roles
	Invites     *domain.Invites
	Messages    *domain.Messages
	Coordinator *calls.Coordinator

	MaxSpaceCount int
}

// RegisterAll registers every handler named in SPEC_FULL.md §6 against d.
func (h *Handlers) RegisterAll(d *rpc.Dispatcher) {
	h.registerFriends(d)
	h.registerSpaces(d)
	h.registerChannels(d)
	h.registerInvites(d)
	h.registerRoles(d)
	h.registerMessages(d)
	h.registerCalls(d)
}

// eventNewMessage, eventAddFriend, and eventRemoveFriend are the event
// type discriminators pushed via EmitToUser/EmitAll, per spec.md §6's
// Event frame example list.
const (
	eventNewMessage   = "NEW_MESSAGE"
	eventAddFriend    = "ADD_FRIEND"
	eventRemoveFriend = "REMOVE_FRIEND"
)
