package main

import (
	"context"
	"io"
	"log"
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
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
	emailsvc "github.com/trezcool/parokia/services/email"
	logsvc "github.com/trezcool/parokia/services/logger"
	inmemdb "github.com/trezcool/parokia/storage/database/inmem"
)

// sunday 2024-09-08 18:00 in New York, when the digest of the next week goes out
var testNow = time.Date(2024, 9, 8, 22, 0, 0, 0, time.UTC)

type jobEnv struct {
	job     *digestJob
	digests digest.Repository
	mail    *emailsvc.ConsoleService
	users   *user.Service
	parish  parish.Parish
}

func newJobEnv(t *testing.T, autoPublish bool) *jobEnv {
	clock.NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { clock.NowFunc = time.Now })

	conf := core.NewTestConfig()
	conf.Digest.Selection = "next"
	conf.Digest.AutoPublish = autoPublish

	db := inmemdb.Open()
	tx := inmemdb.NewTxRunner(db)
	env := &jobEnv{mail: emailsvc.NewConsoleServiceMock(conf)}
	env.users = user.NewService(inmemdb.NewUserRepository(db))
	parishes := parish.NewService(inmemdb.NewParishRepository(db), env.users, clock.NewResolver(conf))
	weeks := week.NewService(inmemdb.NewWeekRepository(db), parishes)
	tasks := task.NewService(inmemdb.NewTaskRepository(db), weeks)
	events := event.NewService(tx, inmemdb.NewEventRepository(db), parishes, core.NopMetrics, conf)
	env.digests = inmemdb.NewDigestRepository(db)
	digests := digest.NewService(tx, env.digests, digest.Sources{
		Weeks:         weeks,
		Tasks:         tasks,
		Events:        events,
		Announcements: announcement.NewService(inmemdb.NewAnnouncementRepository(db)),
		Parishes:      parishes,
	}, env.mail, core.NopMetrics, conf)

	env.job = &digestJob{
		conf:     conf,
		logger:   logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		parishes: parishes,
		weeks:    weeks,
		digests:  digests,
	}

	ctx := context.Background()
	var err error
	env.parish, err = parishes.Create(ctx, parish.NewParish{Name: "St. Joseph", Slug: "st-joseph", Timezone: "America/New_York"})
	require.NoError(t, err)
	for _, email := range []string{"paul@parokia.test", "mark@parokia.test"} {
		usr, err := env.users.Create(ctx, user.NewUser{Name: email, Email: email, Password: "Gr4ce&Peace!"})
		require.NoError(t, err)
		_, err = parishes.AddMember(ctx, env.parish.ID, usr.ID, access.RoleMember)
		require.NoError(t, err)
	}
	return env
}

func (env *jobEnv) digestOf(t *testing.T, label string) digest.Digest {
	t.Helper()
	ctx := context.Background()
	wks, err := env.job.weeks.Query(ctx, week.QueryFilter{ParishID: env.parish.ID})
	require.NoError(t, err)
	for _, wk := range wks {
		if wk.Label == label {
			d, err := env.digests.GetDigest(ctx, digest.GetFilter{ParishID: env.parish.ID, WeekID: wk.ID})
			require.NoError(t, err)
			return d
		}
	}
	t.Fatalf("no week %s", label)
	return digest.Digest{}
}

func Test_digestJob_draftOnly(t *testing.T) {
	env := newJobEnv(t, false)

	assert.Equal(t, 0, env.job.run(context.Background()))
	assert.Empty(t, env.mail.Sent())

	d := env.digestOf(t, "2024-W37")
	assert.Equal(t, digest.StatusDraft, d.Status)
}

func Test_digestJob_autoPublish(t *testing.T) {
	env := newJobEnv(t, true)
	ctx := context.Background()

	assert.Equal(t, 0, env.job.run(ctx))
	sent := env.mail.Sent()
	require.Len(t, sent, 1)
	assert.Len(t, sent[0].Bcc, 2)
	assert.Equal(t, "St. Joseph weekly digest 2024-W37", sent[0].Subject)

	d := env.digestOf(t, "2024-W37")
	assert.Equal(t, digest.StatusPublished, d.Status)

	t.Run("published digests are not sent twice", func(t *testing.T) {
		assert.Equal(t, 0, env.job.run(ctx))
		assert.Len(t, env.mail.Sent(), 1)
	})
}

func Test_digestJob_cancelled(t *testing.T) {
	env := newJobEnv(t, true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, 0, env.job.run(ctx))
	assert.Empty(t, env.mail.Sent())
}
