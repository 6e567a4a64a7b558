package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/organization/domain"
	"github.com/chriis-fr/global-sub005/internal/organization/repository"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newService(t *testing.T) domain.Service {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.Organization{},
		&domain.OrganizationMember{},
	))

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	return NewService(db, zap.NewNop(), repository.Provide(db), node)
}

func newOrg(t *testing.T, svc domain.Service) *domain.Organization {
	t.Helper()
	org, err := svc.Create(context.Background(), "user-owner", "Owner@Acme.Test", domain.CreateOrganizationRequest{
		Name: "Acme Corp",
	})
	require.NoError(t, err)
	return org
}

func TestCreateAssignsSingleOwner(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	org := newOrg(t, svc)
	assert.Equal(t, "acme-corp", org.Slug)

	member, err := svc.Member(ctx, org.ID, "user-owner")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, member.Role)
	assert.Equal(t, "owner@acme.test", member.Email)
}

func TestAddMemberRejectsSecondOwner(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	org := newOrg(t, svc)

	_, err := svc.AddMember(ctx, org.ID, domain.AddMemberRequest{
		UserID: "user-2",
		Email:  "two@acme.test",
		Role:   domain.RoleOwner,
	})
	assert.ErrorIs(t, err, domain.ErrOwnerExists)

	// Non-owner roles are unaffected.
	_, err = svc.AddMember(ctx, org.ID, domain.AddMemberRequest{
		UserID: "user-2",
		Email:  "two@acme.test",
		Role:   domain.RoleAccountant,
	})
	require.NoError(t, err)
}

func TestAddMemberRejectsDuplicateUser(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	org := newOrg(t, svc)

	_, err := svc.AddMember(ctx, org.ID, domain.AddMemberRequest{
		UserID: "user-2",
		Email:  "two@acme.test",
		Role:   domain.RoleApprover,
	})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, org.ID, domain.AddMemberRequest{
		UserID: "user-2",
		Email:  "two@acme.test",
		Role:   domain.RoleMember,
	})
	assert.ErrorIs(t, err, domain.ErrMemberExists)
}

func TestChangeMemberRoleKeepsExactlyOneOwner(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	org := newOrg(t, svc)

	_, err := svc.AddMember(ctx, org.ID, domain.AddMemberRequest{
		UserID: "user-2",
		Email:  "two@acme.test",
		Role:   domain.RoleAccountant,
	})
	require.NoError(t, err)

	// The only owner cannot be demoted.
	err = svc.ChangeMemberRole(ctx, org.ID, "user-owner", domain.RoleMember)
	assert.ErrorIs(t, err, domain.ErrLastOwner)

	// Nobody can be promoted to owner while one exists.
	err = svc.ChangeMemberRole(ctx, org.ID, "user-2", domain.RoleOwner)
	assert.ErrorIs(t, err, domain.ErrOwnerExists)

	// Both rejections left the roles untouched.
	owner, err := svc.Member(ctx, org.ID, "user-owner")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, owner.Role)

	other, err := svc.Member(ctx, org.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAccountant, other.Role)

	// Role changes between non-owner roles still work.
	require.NoError(t, svc.ChangeMemberRole(ctx, org.ID, "user-2", domain.RoleApprover))
	other, err = svc.Member(ctx, org.ID, "user-2")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleApprover, other.Role)
}

func TestApproverCandidatesOrdersApproversFirst(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	org := newOrg(t, svc)

	for _, m := range []domain.AddMemberRequest{
		{UserID: "user-fm", Email: "fm@acme.test", Role: domain.RoleFinanceManager},
		{UserID: "user-ap1", Email: "ap1@acme.test", Role: domain.RoleApprover},
		{UserID: "user-ap2", Email: "ap2@acme.test", Role: domain.RoleApprover},
		{UserID: "user-acc", Email: "acc@acme.test", Role: domain.RoleAccountant},
	} {
		_, err := svc.AddMember(ctx, org.ID, m)
		require.NoError(t, err)
	}

	candidates, err := svc.ApproverCandidates(ctx, org.ID)
	require.NoError(t, err)
	require.Len(t, candidates, 3)
	assert.Equal(t, "ap1@acme.test", candidates[0].Email)
	assert.Equal(t, "ap2@acme.test", candidates[1].Email)
	assert.Equal(t, "fm@acme.test", candidates[2].Email)
}
