package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vantage-media/quote-api/internal/auth"
	"github.com/vantage-media/quote-api/internal/domain"
)

func userWith(roles ...domain.UserRoleType) *auth.UserContext {
	return &auth.UserContext{UserID: "u-1", DisplayName: "Jean Dupont", Roles: roles}
}

func TestRoleChecks(t *testing.T) {
	t.Run("admin passes every role check", func(t *testing.T) {
		admin := userWith(domain.RoleAdmin)
		assert.True(t, admin.HasRole(domain.RoleApproverN2))
		assert.True(t, admin.CanReleaseMinBuy())
		assert.True(t, admin.CanApprove(domain.ApprovalTierN2))
		assert.True(t, admin.IsAdmin())
	})

	t.Run("n1 approver cannot settle n2 reviews", func(t *testing.T) {
		approver := userWith(domain.RoleApproverN1)
		assert.True(t, approver.CanApprove(domain.ApprovalTierN1))
		assert.True(t, approver.CanApprove(domain.ApprovalTierNone))
		assert.False(t, approver.CanApprove(domain.ApprovalTierN2))
		assert.False(t, approver.IsAdmin())
	})

	t.Run("n2 approver settles both tiers", func(t *testing.T) {
		approver := userWith(domain.RoleApproverN2)
		assert.True(t, approver.CanApprove(domain.ApprovalTierN1))
		assert.True(t, approver.CanApprove(domain.ApprovalTierN2))
	})

	t.Run("sales cannot release a minimum-buy hold", func(t *testing.T) {
		sales := userWith(domain.RoleSales)
		assert.False(t, sales.CanReleaseMinBuy())
		assert.True(t, userWith(domain.RoleMinBuyApprover).CanReleaseMinBuy())
	})

	t.Run("has any role", func(t *testing.T) {
		sales := userWith(domain.RoleSales)
		assert.True(t, sales.HasAnyRole(domain.RoleApproverN1, domain.RoleSales))
		assert.False(t, sales.HasAnyRole(domain.RoleApproverN1, domain.RoleApproverN2))
	})
}

func TestUserContextRoundTrip(t *testing.T) {
	user := userWith(domain.RoleSales)

	ctx := auth.WithUserContext(context.Background(), user)
	got, ok := auth.FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, user, got)

	_, ok = auth.FromContext(context.Background())
	assert.False(t, ok)
}

func TestDisplayNameInitials(t *testing.T) {
	assert.Equal(t, "JD", userWith().GetDisplayNameInitials())
	assert.Equal(t, "", (&auth.UserContext{}).GetDisplayNameInitials())
}
