package event

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/recurrence"
	"github.com/trezcool/parokia/core/week"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("event")
	ErrNotOccurrence = errors.New("no occurrence starts at this time")
)

type (
	Repository interface {
		CreateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		GetEvent(ctx context.Context, id string, exec ...core.DBExecutor) (Event, error)
		// QueryEvents returns the events that may have an occurrence in [From, To).
		QueryEvents(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Event, error)
		UpdateEvent(ctx context.Context, e Event, exec ...core.DBExecutor) (Event, error)
		DeleteEvent(ctx context.Context, id string, exec ...core.DBExecutor) error
		// UpsertException replaces the exception of (EventID, OriginalStart) if any.
		UpsertException(ctx context.Context, ex Exception, exec ...core.DBExecutor) (Exception, error)
		QueryExceptions(ctx context.Context, eventIDs []string, exec ...core.DBExecutor) ([]Exception, error)
		// DeleteExceptions removes the exceptions of eventID whose original start is at or after from.
		DeleteExceptions(ctx context.Context, eventID string, from time.Time, exec ...core.DBExecutor) error
	}

	Service struct {
		db             core.TxRunner
		repo           Repository
		locator        week.Locator
		metrics        core.Metrics
		maxOccurrences int
	}
)

func NewService(db core.TxRunner, repo Repository, locator week.Locator, metrics core.Metrics, conf *core.Config) *Service {
	vala.BeginValidation().Validate(
		core.IsProvided(db, "db"),
		core.IsProvided(repo, "repo"),
		core.IsProvided(locator, "locator"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()
	if metrics == nil {
		metrics = core.NopMetrics
	}
	return &Service{
		db:             db,
		repo:           repo,
		locator:        locator,
		metrics:        metrics,
		maxOccurrences: conf.Calendar.MaxOccurrences,
	}
}

// Create stores a new event. Its recurrence rule is validated here so that reads never meet a bad rule.
func (svc *Service) Create(ctx context.Context, parishID string, ne NewEvent, creator access.Viewer) (Event, error) {
	if !creator.IsMember() || creator.ParishID != parishID {
		return Event{}, core.ErrForbidden
	}
	rule := ne.Recurrence.Normalize()
	if err := rule.Validate(ne.StartsAt); err != nil {
		return Event{}, err
	}
	if ne.EndsAt.Before(ne.StartsAt) {
		return Event{}, core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "ends_at must not be before starts_at"})
	}
	if ne.Visibility == access.ScopeGroup && !creator.IsLeader() && !creator.ActiveIn(ne.GroupID) {
		return Event{}, core.ErrForbidden
	}

	now := clock.Now()
	e := Event{
		ID:          uuid.New().String(),
		ParishID:    parishID,
		GroupID:     ne.GroupID,
		Title:       ne.Title,
		Description: ne.Description,
		Location:    ne.Location,
		StartsAt:    ne.StartsAt.UTC(),
		EndsAt:      ne.EndsAt.UTC(),
		Visibility:  ne.Visibility,
		Recurrence:  rule,
		CreatedByID: creator.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateEvent(ctx, e)
}

func (svc *Service) GetByID(ctx context.Context, parishID, id string) (Event, error) {
	e, err := svc.repo.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if e.ParishID != parishID {
		return Event{}, ErrNotFound
	}
	return e, nil
}

// Get returns an event the viewer may see.
func (svc *Service) Get(ctx context.Context, parishID, id string, viewer access.Viewer) (Event, error) {
	e, err := svc.GetByID(ctx, parishID, id)
	if err != nil {
		return Event{}, err
	}
	if !access.CanView(e, viewer) {
		return Event{}, ErrNotFound
	}
	return e, nil
}

func (svc *Service) manageable(ctx context.Context, parishID, id string, viewer access.Viewer) (Event, error) {
	e, err := svc.Get(ctx, parishID, id, viewer)
	if err != nil {
		return Event{}, err
	}
	if !access.CanManage(e, viewer) {
		return Event{}, core.ErrForbidden
	}
	return e, nil
}

// ListInstances expands the events of a parish into the occurrences overlapping rng
// that the viewer may see, ordered by start time. The flag reports a truncated expansion.
func (svc *Service) ListInstances(ctx context.Context, parishID string, rng week.Range, viewer access.Viewer) ([]Instance, bool, error) {
	if err := rng.Validate(); err != nil {
		return nil, false, err
	}
	loc, err := svc.locator.Location(ctx, parishID)
	if err != nil {
		return nil, false, errors.Wrap(err, "resolving parish location")
	}

	events, err := svc.repo.QueryEvents(ctx, QueryFilter{ParishID: parishID, From: rng.Start, To: rng.End})
	if err != nil {
		return nil, false, errors.Wrap(err, "querying events")
	}
	events = access.Filter(events, viewer)
	if len(events) == 0 {
		return []Instance{}, false, nil
	}

	overrides, exceptions, err := svc.overrides(ctx, events)
	if err != nil {
		return nil, false, err
	}

	var truncated bool
	instances := make([]Instance, 0, len(events))
	for _, e := range events {
		exp := recurrence.Expand(e.Schedule(loc), rng, overrides, svc.maxOccurrences)
		svc.metrics.ObserveExpansion(len(exp.Occurrences), exp.Truncated)
		truncated = truncated || exp.Truncated
		for _, occ := range exp.Occurrences {
			var ex *Exception
			if found, ok := exceptions[occ.InstanceID]; ok {
				ex = &found
			}
			instances = append(instances, newInstance(e, occ, ex))
		}
	}

	sort.SliceStable(instances, func(i, j int) bool {
		a, b := instances[i], instances[j]
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.InstanceID < b.InstanceID
	})
	return instances, truncated, nil
}

// overrides loads the exceptions of events, keyed both for expansion and by instance id.
func (svc *Service) overrides(ctx context.Context, events []Event) (recurrence.Overrides, map[string]Exception, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		if e.Recurrence.Recurring() {
			ids = append(ids, e.ID)
		}
	}
	overrides := make(recurrence.Overrides)
	byInstance := make(map[string]Exception)
	if len(ids) == 0 {
		return overrides, byInstance, nil
	}

	exceptions, err := svc.repo.QueryExceptions(ctx, ids)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying exceptions")
	}
	for _, ex := range exceptions {
		overrides.Set(ex.EventID, ex.OriginalStart, ex.Override())
		byInstance[recurrence.InstanceID(ex.EventID, ex.OriginalStart)] = ex
	}
	return overrides, byInstance, nil
}

// EditOccurrence changes one occurrence of a recurring event ("this event only").
// The series and every other occurrence are left as they are.
func (svc *Service) EditOccurrence(ctx context.Context, parishID, eventID string, originalStart time.Time, eo EditOccurrence, viewer access.Viewer) (Exception, error) {
	e, err := svc.manageable(ctx, parishID, eventID, viewer)
	if err != nil {
		return Exception{}, err
	}
	if !e.Recurrence.Recurring() {
		return Exception{}, core.NewValidationError(nil, core.FieldError{Field: "scope", Error: "event does not recur; edit the series"})
	}

	loc, err := svc.locator.Location(ctx, parishID)
	if err != nil {
		return Exception{}, errors.Wrap(err, "resolving parish location")
	}
	if !recurrence.IsOccurrence(e.Schedule(loc), originalStart) {
		return Exception{}, core.NewValidationError(ErrNotOccurrence, core.FieldError{Field: "original_start", Error: ErrNotOccurrence.Error()})
	}

	now := clock.Now()
	ex := Exception{
		ID:            uuid.New().String(),
		EventID:       e.ID,
		OriginalStart: originalStart.UTC(),
		Title:         eo.Title,
		Description:   eo.Description,
		Location:      eo.Location,
		Cancelled:     eo.Cancelled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if eo.StartsAt != nil {
		start := eo.StartsAt.UTC()
		ex.StartsAt = &start
	}
	if eo.EndsAt != nil {
		end := eo.EndsAt.UTC()
		ex.EndsAt = &end
	}

	var saved Exception
	err = svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if saved, err = svc.repo.UpsertException(ctx, ex, exec); err != nil {
			return errors.Wrap(err, "saving exception")
		}
		e.UpdatedAt = now
		_, err = svc.repo.UpdateEvent(ctx, e, exec)
		return errors.Wrap(err, "touching event")
	})
	return saved, err
}

// EditSeries changes the base event ("this and all"). When the schedule changes, exceptions
// of occurrences at or after EffectiveFrom (now when unset) are dropped; earlier ones are kept.
func (svc *Service) EditSeries(ctx context.Context, parishID, eventID string, ue UpdateEvent, viewer access.Viewer) (Event, error) {
	e, err := svc.manageable(ctx, parishID, eventID, viewer)
	if err != nil {
		return Event{}, err
	}

	e, scheduleChanged := ue.apply(e)
	if err := e.Recurrence.Validate(e.StartsAt); err != nil {
		return Event{}, err
	}
	if e.EndsAt.Before(e.StartsAt) {
		return Event{}, core.NewValidationError(nil, core.FieldError{Field: "ends_at", Error: "ends_at must not be before starts_at"})
	}

	from := ue.EffectiveFrom
	if from.IsZero() {
		from = clock.Now()
	}
	e.UpdatedAt = clock.Now()

	var saved Event
	err = svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if saved, err = svc.repo.UpdateEvent(ctx, e, exec); err != nil {
			return errors.Wrap(err, "updating event")
		}
		if scheduleChanged {
			return errors.Wrap(svc.repo.DeleteExceptions(ctx, e.ID, from.UTC(), exec), "dropping exceptions")
		}
		return nil
	})
	return saved, err
}

// Delete removes an event with all its exceptions.
func (svc *Service) Delete(ctx context.Context, parishID, eventID string, viewer access.Viewer) error {
	e, err := svc.manageable(ctx, parishID, eventID, viewer)
	if err != nil {
		return err
	}
	return svc.db.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.repo.DeleteExceptions(ctx, e.ID, time.Time{}, exec); err != nil {
			return errors.Wrap(err, "deleting exceptions")
		}
		return errors.Wrap(svc.repo.DeleteEvent(ctx, e.ID, exec), "deleting event")
	})
}
