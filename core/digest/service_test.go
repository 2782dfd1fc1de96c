package digest_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/recurrence"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
	inmemdb "github.com/trezcool/parokia/storage/database/inmem"
)

var newYork = clock.MustLoadLocation("America/New_York")

type outbox struct {
	mu   sync.Mutex
	msgs []*core.EmailMessage
}

func (o *outbox) SendMessages(messages ...*core.EmailMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, messages...)
}

type transition struct {
	from, to string
	allowed  bool
}

type recorder struct {
	core.Metrics
	transitions []transition
}

func (r *recorder) ObserveDigestTransition(from, to string, allowed bool) {
	r.transitions = append(r.transitions, transition{from, to, allowed})
}

type fixture struct {
	svc     *digest.Service
	tasks   *task.Service
	events  *event.Service
	anns    *announcement.Service
	box     *outbox
	metrics *recorder
	week    week.Week
	admin   access.Viewer
	member  access.Viewer
}

// racingRepository lets another writer create the digest just before the first CreateDigest.
type racingRepository struct {
	digest.Repository
	raced bool
}

func (r *racingRepository) CreateDigest(ctx context.Context, d digest.Digest, exec ...core.DBExecutor) (digest.Digest, error) {
	if !r.raced {
		r.raced = true
		rival := d
		rival.ID = "rival"
		rival.Content = "stale"
		if _, err := r.Repository.CreateDigest(ctx, rival, exec...); err != nil {
			return digest.Digest{}, err
		}
	}
	return r.Repository.CreateDigest(ctx, d, exec...)
}

func newFixture(t *testing.T, wrap ...func(digest.Repository) digest.Repository) fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 9, 4, 12, 0, 0, 0, newYork)
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = time.Now })

	conf := core.NewTestConfig()
	db := inmemdb.Open()
	tx := inmemdb.NewTxRunner(db)
	users := user.NewService(inmemdb.NewUserRepository(db))
	parishes := parish.NewService(inmemdb.NewParishRepository(db), users, clock.NewResolver(conf))
	p, err := parishes.Create(ctx, parish.NewParish{Name: "St. Joseph", Slug: "st-joseph"})
	require.NoError(t, err)

	weeks := week.NewService(inmemdb.NewWeekRepository(db), parishes)
	wk, err := weeks.GetOrCreateCurrent(ctx, p.ID, now)
	require.NoError(t, err)

	f := fixture{
		tasks:   task.NewService(inmemdb.NewTaskRepository(db), weeks),
		events:  event.NewService(tx, inmemdb.NewEventRepository(db), parishes, nil, conf),
		anns:    announcement.NewService(inmemdb.NewAnnouncementRepository(db)),
		box:     &outbox{},
		metrics: &recorder{Metrics: core.NopMetrics},
		week:    wk,
		admin:   access.Viewer{UserID: "admin", ParishID: p.ID, Role: access.RoleAdmin},
		member:  access.Viewer{UserID: "member", ParishID: p.ID, Role: access.RoleMember},
	}
	var repo digest.Repository = inmemdb.NewDigestRepository(db)
	for _, w := range wrap {
		repo = w(repo)
	}
	f.svc = digest.NewService(tx, repo, digest.Sources{
		Weeks:         weeks,
		Tasks:         f.tasks,
		Events:        f.events,
		Announcements: f.anns,
		Parishes:      parishes,
	}, f.box, f.metrics, conf)
	return f
}

func (f fixture) parishID() string { return f.admin.ParishID }

func (f fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, title := range []string{"Flowers", "coffee", "Bulletin"} {
		tk, err := f.tasks.Create(ctx, f.parishID(), task.NewTask{WeekID: f.week.ID, Title: title, Visibility: access.ScopePublic}, f.admin)
		require.NoError(t, err)
		if title != "Bulletin" {
			_, err = f.tasks.Complete(ctx, f.parishID(), tk.ID, f.admin)
			require.NoError(t, err)
		}
	}
	_, err := f.tasks.Create(ctx, f.parishID(), task.NewTask{WeekID: f.week.ID, Title: "Budget", Visibility: access.ScopePrivate}, f.admin)
	require.NoError(t, err)

	start := time.Date(2024, 9, 2, 18, 0, 0, 0, newYork)
	_, err = f.events.Create(ctx, f.parishID(), event.NewEvent{
		Title: "Rehearsal", Location: "Church hall", StartsAt: start, EndsAt: start.Add(time.Hour),
		Visibility: access.ScopePublic,
		Recurrence: recurrence.Rule{Frequency: recurrence.Weekly, Interval: 1, ByWeekday: []int{1}},
	}, f.admin)
	require.NoError(t, err)
	_, err = f.events.Create(ctx, f.parishID(), event.NewEvent{
		Title: "Council", StartsAt: start.Add(48 * time.Hour), EndsAt: start.Add(50 * time.Hour), Visibility: access.ScopePrivate,
	}, f.admin)
	require.NoError(t, err)

	a, err := f.anns.Create(ctx, f.parishID(), announcement.NewAnnouncement{Title: "Feast", Body: "Sunday after Mass.", Scope: access.ScopeParish}, f.admin)
	require.NoError(t, err)
	_, err = f.anns.Publish(ctx, f.parishID(), a.ID, f.admin)
	require.NoError(t, err)
}

func TestService_BuildWeekSummary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	tests := []struct {
		name       string
		viewer     access.Viewer
		wantTasks  int
		wantPct    int
		wantEvents int
	}{
		{name: "member", viewer: f.member, wantTasks: 3, wantPct: 67, wantEvents: 1},
		{name: "admin", viewer: f.admin, wantTasks: 4, wantPct: 50, wantEvents: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := f.svc.BuildWeekSummary(ctx, f.parishID(), f.week.ID, tt.viewer)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTasks, s.TasksTotal)
			assert.Equal(t, 2, s.TasksDone)
			assert.Equal(t, tt.wantPct, s.CompletionPct)
			assert.Len(t, s.Events, tt.wantEvents)
			assert.Len(t, s.Announcements, 1)
			assert.False(t, s.Truncated)
		})
	}

	_, err := f.svc.BuildWeekSummary(ctx, "p2", f.week.ID, f.admin)
	assert.True(t, core.IsNotFound(err))
}

func TestService_lifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.svc.Generate(ctx, f.parishID(), f.week.ID, f.member)
	assert.Equal(t, core.ErrForbidden, err)

	d, err := f.svc.Generate(ctx, f.parishID(), f.week.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, digest.StatusDraft, d.Status)
	assert.Contains(t, d.Content, "## Tasks (2/3 done, 67%)")
	assert.NotContains(t, d.Content, "Budget", "the digest shows what members see")
	assert.NotContains(t, d.Content, "Council")

	_, err = f.svc.GetByID(ctx, f.parishID(), d.ID, f.member)
	assert.True(t, core.IsNotFound(err), "drafts are for leaders")

	// regenerating a draft refreshes it in place
	_, err = f.tasks.Create(ctx, f.parishID(), task.NewTask{WeekID: f.week.ID, Title: "Ushers", Visibility: access.ScopePublic}, f.admin)
	require.NoError(t, err)
	again, err := f.svc.Generate(ctx, f.parishID(), f.week.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, d.ID, again.ID)
	assert.Contains(t, again.Content, "Ushers")

	edited := again.Content + "\nSee you on Sunday.\n"
	saved, err := f.svc.Save(ctx, f.parishID(), d.ID, digest.UpdateDigest{Content: &edited}, f.admin)
	require.NoError(t, err)
	assert.Equal(t, edited, saved.Content)
	assert.Equal(t, digest.StatusDraft, saved.Status)

	published, err := f.svc.Publish(ctx, f.parishID(), d.ID, f.admin)
	require.NoError(t, err)
	assert.True(t, published.IsPublished())
	require.NotNil(t, published.PublishedAt)
	firstPublish := *published.PublishedAt

	clock.NowFunc = func() time.Time { return firstPublish.Add(time.Hour) }
	twice, err := f.svc.Publish(ctx, f.parishID(), d.ID, f.admin)
	require.NoError(t, err)
	assert.True(t, twice.PublishedAt.Equal(firstPublish))

	_, err = f.svc.Generate(ctx, f.parishID(), f.week.ID, f.admin)
	assert.True(t, core.IsInvalidTransition(err), "got %v", err)
	draft := digest.StatusDraft
	_, err = f.svc.Save(ctx, f.parishID(), d.ID, digest.UpdateDigest{Status: &draft}, f.admin)
	assert.True(t, core.IsInvalidTransition(err), "got %v", err)

	got, err := f.svc.GetByID(ctx, f.parishID(), d.ID, f.member)
	require.NoError(t, err)
	assert.Equal(t, edited, got.Content)

	assert.Contains(t, f.metrics.transitions, transition{from: "PUBLISHED", to: "DRAFT", allowed: false})
	assert.Contains(t, f.metrics.transitions, transition{from: "DRAFT", to: "PUBLISHED", allowed: true})
}

func TestService_Generate_concurrentCreate(t *testing.T) {
	ctx := context.Background()
	racing := &racingRepository{}
	f := newFixture(t, func(repo digest.Repository) digest.Repository {
		racing.Repository = repo
		return racing
	})
	f.seed(t)

	d, err := f.svc.Generate(ctx, f.parishID(), f.week.ID, f.admin)
	require.NoError(t, err)
	assert.True(t, racing.raced)
	assert.Equal(t, "rival", d.ID)
	assert.Equal(t, digest.StatusDraft, d.Status)
	assert.Contains(t, d.Content, "## Tasks")
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	d, err := f.svc.Generate(ctx, f.parishID(), f.week.ID, f.admin)
	require.NoError(t, err)
	recipients := []string{"anne@parish.org", "bob@parish.org"}

	err = f.svc.Send(ctx, d, recipients)
	assert.True(t, core.IsInvalidTransition(err), "got %v", err)
	assert.Empty(t, f.box.msgs)

	d, err = f.svc.Publish(ctx, f.parishID(), d.ID, f.admin)
	require.NoError(t, err)
	require.NoError(t, f.svc.Send(ctx, d, recipients))
	require.Len(t, f.box.msgs, 1)

	msg := f.box.msgs[0]
	assert.Empty(t, msg.To)
	assert.Len(t, msg.Bcc, 2)
	assert.Equal(t, "St. Joseph weekly digest 2024-W36", msg.Subject)
	assert.Contains(t, msg.TextContent, "St. Joseph: week 2024-W36")
	assert.Contains(t, msg.HTMLContent, "<h1>St. Joseph</h1>")
	assert.Contains(t, msg.HTMLContent, "<h2>Events</h2>")
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "2024-w36.ics", msg.Attachments[0].Filename)
	assert.Equal(t, "text/calendar", msg.Attachments[0].ContentType)
	assert.True(t, strings.HasPrefix(msg.Attachments[0].Content.String(), "QkVHSU46VkNBTEVOREFS"), "base64 of BEGIN:VCALENDAR")
}
