package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMembershipJoinPublicClub(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "Alice", "Runner")
	bob := f.register(t, "bob@example.com", "Bob", "Lifter")
	club := f.createClub(t, alice, "Runners", false)

	member, err := f.svc.Memberships.Join(f.ctx, club.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, member.IsAdmin)

	_, err = f.svc.Memberships.Join(f.ctx, club.ID, bob.ID)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = f.svc.Memberships.Join(f.ctx, 999, bob.ID)
	assert.ErrorIs(t, err, ErrClubNotFound)

	members, err := f.svc.Memberships.ListMembers(f.ctx, club.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestMembershipJoinPrivateClubRequiresInvitation(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "Alice", "Runner")
	bob := f.register(t, "bob@example.com", "Bob", "Lifter")
	club := f.createClub(t, alice, "Secret", true)

	_, err := f.svc.Memberships.Join(f.ctx, club.ID, bob.ID)
	assert.ErrorIs(t, err, ErrInvitationRequired)
	assert.ErrorIs(t, err, ErrForbidden)

	members, err := f.svc.Memberships.ListMembers(f.ctx, club.ID)
	require.NoError(t, err)
	assert.Len(t, members, 1)
}

func TestMembershipJoinPrivateClubAcceptsInvitation(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "Alice", "Runner")
	bob := f.register(t, "bob@example.com", "Bob", "Lifter")
	club := f.createClub(t, alice, "Secret", true)

	inv, err := f.svc.Invitations.Invite(f.ctx, club.ID, bob.ID, alice.ID)
	require.NoError(t, err)

	_, err = f.svc.Memberships.Join(f.ctx, club.ID, bob.ID)
	require.NoError(t, err)

	invitations, err := f.svc.Invitations.ListClubInvitations(f.ctx, club.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, invitations, 1)
	assert.Equal(t, inv.ID, invitations[0].ID)
	assert.True(t, invitations[0].Accepted)
	assert.NotNil(t, invitations[0].AcceptedAt)

	pending, err := f.svc.Invitations.ListMyInvitations(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestMembershipLeave(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice@example.com", "Alice", "Runner")
	bob := f.register(t, "bob@example.com", "Bob", "Lifter")
	club := f.createClub(t, alice, "Runners", false)
	f.join(t, club, bob)

	require.NoError(t, f.svc.Memberships.Leave(f.ctx, club.ID, bob.ID))
	assert.ErrorIs(t, f.svc.Memberships.Leave(f.ctx, club.ID, bob.ID), ErrNotClubMember)
	assert.ErrorIs(t, f.svc.Memberships.Leave(f.ctx, 999, bob.ID), ErrClubNotFound)

	// Последний админ может выйти, клуб остается без админов.
	require.NoError(t, f.svc.Memberships.Leave(f.ctx, club.ID, alice.ID))
	members, err := f.svc.Memberships.ListMembers(f.ctx, club.ID)
	require.NoError(t, err)
	assert.Empty(t, members)
}
