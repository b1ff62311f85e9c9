package auth

import (
	"context"
	"strings"

	"github.com/vantage-media/quote-api/internal/domain"
)

// UserContext holds authenticated user information. Roles drive the approval
// state machine guards.
type UserContext struct {
	UserID      string
	DisplayName string
	Email       string
	Roles       []domain.UserRoleType
	CompanyID   domain.CompanyID
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasRole checks if user has a specific role. Admins implicitly hold every role.
func (u *UserContext) HasRole(role domain.UserRoleType) bool {
	for _, r := range u.Roles {
		if r == role || r == domain.RoleAdmin {
			return true
		}
	}
	return false
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRoleType) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

// IsAdmin checks if user is an administrator
func (u *UserContext) IsAdmin() bool {
	for _, r := range u.Roles {
		if r == domain.RoleAdmin {
			return true
		}
	}
	return false
}

// CanReleaseMinBuy reports whether the user may release a quote held on a
// minimum-buy violation
func (u *UserContext) CanReleaseMinBuy() bool {
	return u.HasRole(domain.RoleMinBuyApprover)
}

// CanApprove reports whether the user may approve the given review tier.
// N2 approvers may also settle N1 reviews.
func (u *UserContext) CanApprove(tier domain.ApprovalTier) bool {
	switch tier {
	case domain.ApprovalTierN2:
		return u.HasRole(domain.RoleApproverN2)
	default:
		return u.HasAnyRole(domain.RoleApproverN1, domain.RoleApproverN2)
	}
}

// GetDisplayNameInitials returns initials from the display name ("John Doe" -> "JD")
func (u *UserContext) GetDisplayNameInitials() string {
	if u.DisplayName == "" {
		return ""
	}
	parts := strings.Fields(u.DisplayName)
	initials := ""
	for _, part := range parts {
		if len(part) > 0 {
			initials += strings.ToUpper(string(part[0]))
		}
	}
	return initials
}

// RolesAsStrings returns roles as a slice of strings
func (u *UserContext) RolesAsStrings() []string {
	result := make([]string, len(u.Roles))
	for i, role := range u.Roles {
		result[i] = string(role)
	}
	return result
}
