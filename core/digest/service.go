package digest

import (
	"bytes"
	"context"
	htmltmpl "html/template"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/week"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("digest")
	// ErrExists is returned by Repository.CreateDigest when the week already has a digest.
	ErrExists = errors.New("digest already exists")
)

type (
	Repository interface {
		CreateDigest(ctx context.Context, d Digest, exec ...core.DBExecutor) (Digest, error)
		GetDigest(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Digest, error)
		// GetDigestForUpdate reads and locks the row until the transaction of exec ends.
		GetDigestForUpdate(ctx context.Context, id string, exec core.DBExecutor) (Digest, error)
		UpdateDigest(ctx context.Context, d Digest, exec ...core.DBExecutor) (Digest, error)
	}

	WeekSource interface {
		GetForParish(ctx context.Context, parishID, id string) (week.Week, error)
	}

	TaskSource interface {
		QueryVisible(ctx context.Context, parishID, weekID string, viewer access.Viewer) ([]task.Task, error)
	}

	EventSource interface {
		ListInstances(ctx context.Context, parishID string, rng week.Range, viewer access.Viewer) ([]event.Instance, bool, error)
	}

	AnnouncementSource interface {
		QueryPublished(ctx context.Context, parishID string, rng week.Range) ([]announcement.Announcement, error)
	}

	ParishSource interface {
		GetByID(ctx context.Context, id string) (parish.Parish, error)
		Location(ctx context.Context, parishID string) (*time.Location, error)
	}

	// Sources groups the read sides a summary is built from.
	Sources struct {
		Weeks         WeekSource
		Tasks         TaskSource
		Events        EventSource
		Announcements AnnouncementSource
		Parishes      ParishSource
	}

	Service struct {
		db      core.TxRunner
		repo    Repository
		src     Sources
		mailSvc core.EmailService
		metrics core.Metrics
		conf    *core.Config
	}
)

func NewService(db core.TxRunner, repo Repository, src Sources, mailSvc core.EmailService, metrics core.Metrics, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		core.IsProvided(db, "db"),
		core.IsProvided(repo, "repo"),
		core.IsProvided(src.Weeks, "weeks"),
		core.IsProvided(src.Tasks, "tasks"),
		core.IsProvided(src.Events, "events"),
		core.IsProvided(src.Announcements, "announcements"),
		core.IsProvided(src.Parishes, "parishes"),
		core.IsProvided(mailSvc, "mailSvc"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()
	if metrics == nil {
		metrics = core.NopMetrics
	}
	return &Service{db: db, repo: repo, src: src, mailSvc: mailSvc, metrics: metrics, conf: conf}
}

// BuildWeekSummary gathers the tasks, event occurrences and published announcements
// of a week that the viewer may see. Counts are over the visible tasks only.
func (svc *Service) BuildWeekSummary(ctx context.Context, parishID, weekID string, viewer access.Viewer) (WeekSummary, error) {
	wk, err := svc.src.Weeks.GetForParish(ctx, parishID, weekID)
	if err != nil {
		return WeekSummary{}, err
	}

	tasks, err := svc.src.Tasks.QueryVisible(ctx, parishID, wk.ID, viewer)
	if err != nil {
		return WeekSummary{}, errors.Wrap(err, "querying tasks")
	}
	events, truncated, err := svc.src.Events.ListInstances(ctx, parishID, wk.Range(), viewer)
	if err != nil {
		return WeekSummary{}, errors.Wrap(err, "listing events")
	}
	anns, err := svc.src.Announcements.QueryPublished(ctx, parishID, wk.Range())
	if err != nil {
		return WeekSummary{}, errors.Wrap(err, "querying announcements")
	}
	anns = access.Filter(anns, viewer)

	SortTasks(tasks)
	SortEvents(events)
	SortAnnouncements(anns)

	var done int
	for _, t := range tasks {
		if t.IsDone() {
			done++
		}
	}
	return WeekSummary{
		ParishID:      parishID,
		Week:          wk,
		Tasks:         tasks,
		Events:        events,
		Announcements: anns,
		TasksDone:     done,
		TasksTotal:    len(tasks),
		CompletionPct: CompletionPct(done, len(tasks)),
		Truncated:     truncated,
	}, nil
}

// Generate creates the draft digest of a week, or refreshes its content while it is a draft.
// The content is what any member sees since the digest goes to the whole parish.
func (svc *Service) Generate(ctx context.Context, parishID, weekID string, author access.Viewer) (Digest, error) {
	if !author.IsLeader() {
		return Digest{}, core.ErrForbidden
	}
	summary, err := svc.BuildWeekSummary(ctx, parishID, weekID, access.MemberOf(parishID))
	if err != nil {
		return Digest{}, err
	}
	loc, err := svc.src.Parishes.Location(ctx, parishID)
	if err != nil {
		return Digest{}, errors.Wrap(err, "resolving parish location")
	}
	content := RenderText(summary, loc)

	saved, err := svc.saveDraft(ctx, parishID, summary.Week.ID, content, author)
	if errors.Cause(err) == ErrExists {
		// a concurrent Generate created it first; the retry refreshes that row
		saved, err = svc.saveDraft(ctx, parishID, summary.Week.ID, content, author)
	}
	return saved, err
}

// saveDraft creates the digest of weekID or refreshes the content of its draft, in one transaction.
func (svc *Service) saveDraft(ctx context.Context, parishID, weekID, content string, author access.Viewer) (Digest, error) {
	var saved Digest
	err := svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		existing, err := svc.repo.GetDigest(ctx, GetFilter{ParishID: parishID, WeekID: weekID}, exec)
		if core.IsNotFound(err) {
			now := clock.Now()
			saved, err = svc.repo.CreateDigest(ctx, Digest{
				ID:        uuid.New().String(),
				ParishID:  parishID,
				WeekID:    weekID,
				Status:    StatusDraft,
				Content:   content,
				AuthorID:  author.UserID,
				CreatedAt: now,
				UpdatedAt: now,
			}, exec)
			return errors.Wrap(err, "creating digest")
		}
		if err != nil {
			return errors.Wrap(err, "getting digest")
		}
		saved, err = svc.transition(ctx, existing.ID, exec, func(d *Digest) (Status, error) {
			d.Content = content
			return StatusDraft, nil
		})
		return err
	})
	return saved, err
}

// transition re-reads the digest under a row lock, applies fn and checks the status
// change before writing, all in the transaction of exec.
func (svc *Service) transition(ctx context.Context, id string, exec core.DBExecutor, fn func(d *Digest) (Status, error)) (Digest, error) {
	d, err := svc.repo.GetDigestForUpdate(ctx, id, exec)
	if err != nil {
		return Digest{}, err
	}
	from := d.Status
	to, err := fn(&d)
	if err != nil {
		return Digest{}, err
	}
	err = AssertTransition(from, to)
	svc.metrics.ObserveDigestTransition(string(from), string(to), err == nil)
	if err != nil {
		return Digest{}, err
	}

	now := clock.Now()
	d.Status = to
	if to == StatusPublished && d.PublishedAt == nil {
		d.PublishedAt = &now
	}
	d.UpdatedAt = now
	return svc.repo.UpdateDigest(ctx, d, exec)
}

func (svc *Service) GetByID(ctx context.Context, parishID, id string, viewer access.Viewer) (Digest, error) {
	d, err := svc.repo.GetDigest(ctx, GetFilter{ID: id})
	if err != nil {
		return Digest{}, err
	}
	if d.ParishID != parishID {
		return Digest{}, ErrNotFound
	}
	if !d.IsPublished() && !viewer.IsLeader() {
		return Digest{}, ErrNotFound
	}
	return d, nil
}

// Save edits a digest. Leaving Status unset keeps the current one.
func (svc *Service) Save(ctx context.Context, parishID, id string, ud UpdateDigest, viewer access.Viewer) (Digest, error) {
	if !viewer.IsLeader() {
		return Digest{}, core.ErrForbidden
	}
	if _, err := svc.GetByID(ctx, parishID, id, viewer); err != nil {
		return Digest{}, err
	}

	var saved Digest
	err := svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		saved, err = svc.transition(ctx, id, exec, func(d *Digest) (Status, error) {
			to := d.Status
			if ud.Status != nil {
				to = *ud.Status
			}
			if ud.Content != nil {
				d.Content = *ud.Content
			}
			return to, nil
		})
		return err
	})
	return saved, err
}

// Publish makes the digest final. Publishing twice is a no-op.
func (svc *Service) Publish(ctx context.Context, parishID, id string, viewer access.Viewer) (Digest, error) {
	published := StatusPublished
	return svc.Save(ctx, parishID, id, UpdateDigest{Status: &published}, viewer)
}

type mailData struct {
	ParishName string
	Label      string
	Text       string
	HTML       htmltmpl.HTML
}

// Send emails a published digest to recipients (blind copies), with the week's
// parish-wide events attached as an iCalendar file.
func (svc *Service) Send(ctx context.Context, d Digest, recipients []string) error {
	if !d.IsPublished() {
		return core.NewTransitionError("digest", string(d.Status), "SENT")
	}
	if len(recipients) == 0 {
		return nil
	}
	p, err := svc.src.Parishes.GetByID(ctx, d.ParishID)
	if err != nil {
		return errors.Wrap(err, "getting parish")
	}
	wk, err := svc.src.Weeks.GetForParish(ctx, d.ParishID, d.WeekID)
	if err != nil {
		return errors.Wrap(err, "getting week")
	}
	html, err := RenderHTML(d.Content)
	if err != nil {
		return err
	}

	msg := &core.EmailMessage{
		Subject:      p.Name + " weekly digest " + wk.Label,
		TemplateName: "weekly_digest",
		TemplateData: mailData{
			ParishName: p.Name,
			Label:      wk.Label,
			Text:       d.Content,
			HTML:       htmltmpl.HTML(html),
		},
	}
	for _, addr := range recipients {
		msg.Bcc = append(msg.Bcc, mail.Address{Address: addr})
	}

	instances, _, err := svc.src.Events.ListInstances(ctx, d.ParishID, wk.Range(), access.MemberOf(d.ParishID))
	if err != nil {
		return errors.Wrap(err, "listing events")
	}
	if len(instances) > 0 {
		cal := event.ICalendar(p.Name, instances, clock.Now())
		if err = msg.Attach(bytes.NewBufferString(cal), strings.ToLower(wk.Label)+".ics", "text/calendar"); err != nil {
			return errors.Wrap(err, "attaching calendar")
		}
	}

	if err = msg.Render(svc.conf.FrontendBaseURL); err != nil {
		return errors.Wrap(err, "rendering digest email")
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}
