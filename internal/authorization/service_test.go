package authorization

import (
	"context"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	projectdomain "github.com/smallbiznis/pricesync/internal/project/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestAuthorizer(t *testing.T) Service {
	t.Helper()
	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	return NewService(Params{DB: db, Log: zap.NewNop(), Enforcer: enforcer})
}

func TestAuthorizeRoleHierarchy(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	cases := []struct {
		role    projectdomain.Role
		action  string
		allowed bool
	}{
		{projectdomain.RoleViewer, ActionView, true},
		{projectdomain.RoleViewer, ActionApprove, false},
		{projectdomain.RoleEditor, ActionApprove, true},
		{projectdomain.RoleEditor, ActionReject, true},
		{projectdomain.RoleEditor, ActionApply, false},
		{projectdomain.RoleEditor, ActionRollback, false},
		{projectdomain.RoleAdmin, ActionApply, true},
		{projectdomain.RoleAdmin, ActionView, true},
		{projectdomain.RoleOwner, ActionRollback, true},
		{projectdomain.RoleOwner, ActionApprove, true},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, Request{
			ProjectID: "proj_1",
			Actor:     "usr_1",
			Role:      tc.role,
			Object:    ObjectPriceChange,
			Action:    tc.action,
		})
		if tc.allowed {
			assert.NoError(t, err, "%s %s", tc.role, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrForbidden, "%s %s", tc.role, tc.action)
		}
	}
}

func TestAuthorizeRejectsIncompleteRequests(t *testing.T) {
	svc := newTestAuthorizer(t)
	ctx := context.Background()

	err := svc.Authorize(ctx, Request{ProjectID: "proj_1", Role: projectdomain.RoleOwner, Object: ObjectPriceChange, Action: ActionView})
	assert.ErrorIs(t, err, ErrInvalidActor)

	err = svc.Authorize(ctx, Request{Actor: "usr_1", Role: projectdomain.RoleOwner, Object: ObjectPriceChange, Action: ActionView})
	assert.ErrorIs(t, err, ErrInvalidProject)

	err = svc.Authorize(ctx, Request{ProjectID: "proj_1", Actor: "usr_1", Role: "intern", Object: ObjectPriceChange, Action: ActionView})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEnforcerSeedIsIdempotent(t *testing.T) {
	dsn := "file:seed_idempotent?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	_, err = NewEnforcer(db)
	require.NoError(t, err)
	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)

	policies, err := enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, policies, 5)
}
