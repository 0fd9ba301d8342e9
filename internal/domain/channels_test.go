package domain

import (
	"context"
	"testing"

	"github.com/rjsadow/aurora/internal/apperr"
)

func TestChannel_HasMember_Private(t *testing.T) {
	ch := &Channel{Variant: ChannelVariantPrivate, InitiatorID: "alice", TargetID: "bob"}

	has, err := ch.HasMember(context.Background(), nil, "alice")
	if err != nil {
		t.Fatalf("HasMember() error = %v", err)
	}
	if !has {
		t.Fatalf("HasMember(initiator) = false, want true")
	}

	has, _ = ch.HasMember(context.Background(), nil, "carol")
	if has {
		t.Fatalf("HasMember(stranger) = true, want false")
	}
}

func TestChannel_HasMember_Group(t *testing.T) {
	ch := &Channel{Variant: ChannelVariantGroup, MemberIDs: []string{"alice", "bob"}}

	has, _ := ch.HasMember(context.Background(), nil, "bob")
	if !has {
		t.Fatalf("HasMember(bob) = false, want true")
	}
	has, _ = ch.HasMember(context.Background(), nil, "carol")
	if has {
		t.Fatalf("HasMember(carol) = true, want false")
	}
}

func TestChannel_HasMember_SpaceBound(t *testing.T) {
	m := newTestMongo(t)
	spaces := NewSpaces(m)
	ctx := context.Background()

	space, err := spaces.Create(ctx, "Space", "", "owner")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	ch := &Channel{Variant: ChannelVariantStandard, SpaceID: space.ID}
	has, err := ch.HasMember(ctx, spaces, "owner")
	if err != nil {
		t.Fatalf("HasMember() error = %v", err)
	}
	if !has {
		t.Fatalf("HasMember(owner) = false, want true")
	}

	has, _ = ch.HasMember(ctx, spaces, "stranger")
	if has {
		t.Fatalf("HasMember(stranger) = true, want false")
	}
}

func TestChannels_CreateSpaceChannel_RejectsNonSpaceVariant(t *testing.T) {
	m := newTestMongo(t)
	channels := NewChannels(m)
	spaces := NewSpaces(m)

	_, err := channels.CreateSpaceChannel(context.Background(), spaces, "space-1", "general", ChannelVariantPrivate)
	if apperr.KindOf(err) != apperr.BadRequest {
		t.Fatalf("CreateSpaceChannel(private) kind = %v, want BadRequest", apperr.KindOf(err))
	}
}

func TestChannels_CreateSpaceChannel_AppendsToSpace(t *testing.T) {
	m := newTestMongo(t)
	channels := NewChannels(m)
	spaces := NewSpaces(m)
	ctx := context.Background()

	space, err := spaces.Create(ctx, "Space", "", "owner")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	channel, err := channels.CreateSpaceChannel(ctx, spaces, space.ID, "general", ChannelVariantStandard)
	if err != nil {
		t.Fatalf("CreateSpaceChannel() error = %v", err)
	}

	got, err := spaces.Get(ctx, space.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(got.ChannelIDs) != 1 || got.ChannelIDs[0] != channel.ID {
		t.Fatalf("ChannelIDs = %v, want [%s]", got.ChannelIDs, channel.ID)
	}
}
