package task_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/week"
	inmemdb "github.com/trezcool/parokia/storage/database/inmem"
)

const parishID = "p1"

var (
	admin  = access.Viewer{UserID: "admin", ParishID: parishID, Role: access.RoleAdmin}
	member = access.Viewer{UserID: "member", ParishID: parishID, Role: access.RoleMember}
	other  = access.Viewer{UserID: "other", ParishID: parishID, Role: access.RoleMember}
	lead   = access.Viewer{
		UserID: "lead", ParishID: parishID, Role: access.RoleMember,
		Groups: map[string]access.GroupMembership{"choir": {Role: access.GroupLead, Status: access.StatusActive}},
	}
)

type fixedLocator struct{}

func (fixedLocator) Location(context.Context, string) (*time.Location, error) {
	return time.UTC, nil
}

func setup(t *testing.T) (*task.Service, week.Week) {
	t.Helper()
	db := inmemdb.Open()
	weeks := week.NewService(inmemdb.NewWeekRepository(db), &fixedLocator{})
	wk, err := weeks.GetOrCreateCurrent(context.Background(), parishID, time.Date(2024, 9, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return task.NewService(inmemdb.NewTaskRepository(db), weeks), wk
}

func TestNewTask_Validate(t *testing.T) {
	validate, _ := core.NewValidator()
	tests := []struct {
		name    string
		nt      task.NewTask
		wantErr bool
	}{
		{name: "valid", nt: task.NewTask{WeekID: "w", Title: " Clean the hall ", Visibility: "PUBLIC"}},
		{name: "group without id", nt: task.NewTask{WeekID: "w", Title: "Sing", Visibility: "GROUP"}, wantErr: true},
		{name: "parish scope is not for tasks", nt: task.NewTask{WeekID: "w", Title: "Sing", Visibility: "PARISH"}, wantErr: true},
		{name: "unknown scope", nt: task.NewTask{WeekID: "w", Title: "Sing", Visibility: "SECRET"}, wantErr: true},
		{name: "negative hours", nt: task.NewTask{WeekID: "w", Title: "Sing", Visibility: "PUBLIC", EstimatedHours: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nt.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Clean the hall", tt.nt.Title)
		})
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	svc, wk := setup(t)

	tests := []struct {
		name         string
		nt           task.NewTask
		creator      access.Viewer
		wantApproval access.Approval
		wantOwner    string
	}{
		{
			name:         "leader tasks are approved",
			nt:           task.NewTask{WeekID: wk.ID, Title: "Flowers", Visibility: access.ScopePublic, OwnerID: "member"},
			creator:      admin,
			wantApproval: access.ApprovalApproved,
			wantOwner:    "member",
		},
		{
			name:         "member tasks wait for review",
			nt:           task.NewTask{WeekID: wk.ID, Title: "Coffee", Visibility: access.ScopePublic},
			creator:      member,
			wantApproval: access.ApprovalPending,
			wantOwner:    "member",
		},
		{
			name:         "private tasks need no review",
			nt:           task.NewTask{WeekID: wk.ID, Title: "Pray", Visibility: access.ScopePrivate},
			creator:      member,
			wantApproval: access.ApprovalApproved,
			wantOwner:    "member",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Create(ctx, parishID, tt.nt, tt.creator)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApproval, got.ApprovalStatus)
			assert.Equal(t, tt.wantOwner, got.OwnerID)
			assert.Equal(t, task.StatusOpen, got.Status)
		})
	}

	_, err := svc.Create(ctx, "p2", task.NewTask{WeekID: wk.ID, Title: "Elsewhere", Visibility: access.ScopePublic}, admin)
	assert.Equal(t, core.ErrForbidden, err)

	elsewhere := access.Viewer{UserID: "admin", ParishID: "p2", Role: access.RoleAdmin}
	_, err = svc.Create(ctx, "p2", task.NewTask{WeekID: wk.ID, Title: "Elsewhere", Visibility: access.ScopePublic}, elsewhere)
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err), "weeks of another parish are unknown")
}

func TestService_QueryVisible(t *testing.T) {
	ctx := context.Background()
	svc, wk := setup(t)

	mk := func(title string, vis access.Scope, group string, creator access.Viewer) task.Task {
		tk, err := svc.Create(ctx, parishID, task.NewTask{WeekID: wk.ID, Title: title, Visibility: vis, GroupID: group}, creator)
		require.NoError(t, err)
		return tk
	}
	mk("b approved", access.ScopePublic, "", admin)
	pending := mk("a pending", access.ScopePublic, "", member)
	mk("c private", access.ScopePrivate, "", member)
	mk("d choir", access.ScopeGroup, "choir", admin)

	titles := func(v access.Viewer) []string {
		tasks, err := svc.QueryVisible(ctx, parishID, wk.ID, v)
		require.NoError(t, err)
		out := make([]string, 0, len(tasks))
		for _, tk := range tasks {
			out = append(out, tk.Title)
		}
		return out
	}
	assert.Equal(t, []string{"a pending", "b approved", "c private"}, titles(member))
	assert.Equal(t, []string{"b approved"}, titles(other))
	assert.Equal(t, []string{"b approved", "d choir"}, titles(lead))
	assert.Equal(t, []string{"b approved", "d choir"}, titles(admin))

	_, err := svc.Review(ctx, parishID, pending.ID, access.ApprovalApproved, member)
	assert.Equal(t, core.ErrForbidden, err)
	_, err = svc.Review(ctx, parishID, pending.ID, access.ApprovalPending, admin)
	assert.IsType(t, &core.ValidationError{}, errors.Cause(err))
	_, err = svc.Review(ctx, parishID, pending.ID, access.ApprovalApproved, admin)
	require.NoError(t, err)
	assert.Equal(t, []string{"a pending", "b approved"}, titles(other))
}

func TestService_Complete(t *testing.T) {
	ctx := context.Background()
	svc, wk := setup(t)
	now := time.Date(2024, 9, 5, 10, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = time.Now }()

	tk, err := svc.Create(ctx, parishID, task.NewTask{WeekID: wk.ID, Title: "Flowers", Visibility: access.ScopePublic, EstimatedHours: 2.5}, member)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, parishID, tk.ID, other)
	assert.Equal(t, core.ErrForbidden, err)

	done, err := svc.Complete(ctx, parishID, tk.ID, member)
	require.NoError(t, err)
	assert.True(t, done.IsDone())
	require.NotNil(t, done.CompletedAt)
	assert.True(t, done.CompletedAt.Equal(now))

	hours, err := svc.HoursServed(ctx, parishID, "member", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2.5, hours)
	hours, err = svc.HoursServed(ctx, parishID, "member", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Zero(t, hours)

	reopened, err := svc.Reopen(ctx, parishID, tk.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, task.StatusOpen, reopened.Status)
	assert.Nil(t, reopened.CompletedAt)
}
