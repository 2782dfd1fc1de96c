package request_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/request"
	inmemdb "github.com/trezcool/parokia/storage/database/inmem"
)

const parishID = "p1"

var (
	admin     = access.Viewer{UserID: "admin", ParishID: parishID, Role: access.RoleAdmin}
	otherAdm  = access.Viewer{UserID: "admin2", ParishID: parishID, Role: access.RoleAdmin}
	shepherd  = access.Viewer{UserID: "father", ParishID: parishID, Role: access.RoleShepherd}
	requester = access.Viewer{UserID: "anne", ParishID: parishID, Role: access.RoleMember}
	member    = access.Viewer{UserID: "bob", ParishID: parishID, Role: access.RoleMember}
)

func newService() *request.Service {
	return request.NewService(inmemdb.NewRequestRepository(inmemdb.Open()))
}

func TestService_visibility(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	clergy, err := svc.Create(ctx, parishID, request.NewRequest{Subject: "Confession", Scope: access.ScopeClergyOnly}, requester)
	require.NoError(t, err)
	admins, err := svc.Create(ctx, parishID, request.NewRequest{Subject: "Visit", Scope: access.ScopeAdminAll}, requester)
	require.NoError(t, err)
	specific, err := svc.Create(ctx, parishID, request.NewRequest{Subject: "Prayer", Scope: access.ScopeAdminSpecific, AssigneeIDs: []string{"admin", "admin", " "}}, requester)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, specific.AssigneeIDs)

	tests := []struct {
		name   string
		id     string
		viewer access.Viewer
		want   bool
	}{
		{name: "clergy only: shepherd", id: clergy.ID, viewer: shepherd, want: true},
		{name: "clergy only: admin", id: clergy.ID, viewer: admin},
		{name: "clergy only: requester", id: clergy.ID, viewer: requester, want: true},
		{name: "admin all: admin", id: admins.ID, viewer: admin, want: true},
		{name: "admin all: shepherd", id: admins.ID, viewer: shepherd, want: true},
		{name: "admin all: member", id: admins.ID, viewer: member},
		{name: "specific: assignee", id: specific.ID, viewer: admin, want: true},
		{name: "specific: other admin", id: specific.ID, viewer: otherAdm},
		{name: "specific: requester", id: specific.ID, viewer: requester, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Get(ctx, parishID, tt.id, tt.viewer)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.True(t, core.IsNotFound(err), "got %v", err)
			}
		})
	}

	reqs, err := svc.QueryVisible(ctx, parishID, member)
	require.NoError(t, err)
	assert.Empty(t, reqs)
	reqs, err = svc.QueryVisible(ctx, parishID, requester)
	require.NoError(t, err)
	assert.Len(t, reqs, 3)
}

func TestService_Assign(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	r, err := svc.Create(ctx, parishID, request.NewRequest{Subject: "Visit", Scope: access.ScopeAdminAll}, requester)
	require.NoError(t, err)

	_, err = svc.Assign(ctx, parishID, r.ID, []string{"admin2"}, requester)
	assert.Equal(t, core.ErrForbidden, err)
	_, err = svc.Assign(ctx, parishID, r.ID, nil, admin)
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err))

	assigned, err := svc.Assign(ctx, parishID, r.ID, []string{"admin2"}, admin)
	require.NoError(t, err)
	assert.Equal(t, access.ScopeAdminSpecific, assigned.Scope)
	assert.Equal(t, request.StatusInProgress, assigned.Status)

	// the assigning admin is not an assignee any more
	_, err = svc.Get(ctx, parishID, r.ID, admin)
	assert.True(t, core.IsNotFound(err))

	closed, err := svc.Close(ctx, parishID, r.ID, otherAdm)
	require.NoError(t, err)
	assert.Equal(t, request.StatusClosed, closed.Status)
}
