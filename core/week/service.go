package week

import (
	"context"
	"fmt"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/clock"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("week")
	// ErrExists is returned by Repository.InsertWeek when (parish, starts_on) is taken.
	ErrExists = errors.New("week already exists")
)

type (
	Repository interface {
		// InsertWeek inserts wk unless a row with the same (ParishID, StartsOn) exists,
		// in which case it returns ErrExists. It must never create a duplicate.
		InsertWeek(ctx context.Context, wk Week, exec ...core.DBExecutor) (Week, error)
		GetWeek(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Week, error)
		QueryWeeks(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Week, error)
	}

	// Locator resolves the time zone of a parish.
	Locator interface {
		Location(ctx context.Context, parishID string) (*time.Location, error)
	}

	Service struct {
		repo    Repository
		locator Locator
	}
)

func NewService(repo Repository, locator Locator) *Service {
	vala.BeginValidation().Validate(
		core.IsProvided(repo, "repo"),
		core.IsProvided(locator, "locator"),
	).CheckAndPanic()
	return &Service{repo: repo, locator: locator}
}

// ensure returns the canonical row starting at localStart, creating it when missing.
// A lost creation race is resolved by fetching the winner's row.
func (svc *Service) ensure(ctx context.Context, parishID string, localStart time.Time) (Week, error) {
	wk, err := svc.repo.InsertWeek(ctx, New(parishID, localStart))
	if err == nil {
		return wk, nil
	}
	if errors.Cause(err) != ErrExists {
		return Week{}, errors.Wrap(err, "inserting week")
	}
	wk, err = svc.repo.GetWeek(ctx, GetFilter{ParishID: parishID, StartsOn: localStart.UTC()})
	return wk, errors.Wrap(err, "fetching existing week")
}

// provision makes sure the week containing now and the one after it exist.
func (svc *Service) provision(ctx context.Context, parishID string, now time.Time) (current, next Week, err error) {
	loc, err := svc.locator.Location(ctx, parishID)
	if err != nil {
		return Week{}, Week{}, errors.Wrap(err, "resolving parish location")
	}
	start, end := Bounds(now, loc)

	if current, err = svc.ensure(ctx, parishID, start); err != nil {
		return Week{}, Week{}, errors.Wrap(err, "ensuring current week")
	}
	if next, err = svc.ensure(ctx, parishID, end); err != nil {
		return Week{}, Week{}, errors.Wrap(err, "ensuring next week")
	}
	return current, next, nil
}

// GetOrCreateCurrent returns the week containing now.
// The following week is created at the same time so that "next week" reads never write.
func (svc *Service) GetOrCreateCurrent(ctx context.Context, parishID string, now time.Time) (Week, error) {
	current, _, err := svc.provision(ctx, parishID, now)
	return current, err
}

func (svc *Service) GetForSelection(ctx context.Context, parishID string, sel Selection, now time.Time) (Week, error) {
	if !sel.Valid() {
		err := fmt.Errorf("unknown week selection %q", sel)
		return Week{}, core.NewValidationError(err, core.FieldError{Field: "selection", Error: err.Error()})
	}
	current, next, err := svc.provision(ctx, parishID, now)
	if err != nil {
		return Week{}, err
	}
	if sel == SelectNext {
		return next, nil
	}
	return current, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Week, error) {
	return svc.repo.GetWeek(ctx, GetFilter{ID: id})
}

// GetForParish returns the week only when it belongs to parishID.
func (svc *Service) GetForParish(ctx context.Context, parishID, id string) (Week, error) {
	wk, err := svc.repo.GetWeek(ctx, GetFilter{ID: id})
	if err != nil {
		return Week{}, err
	}
	if wk.ParishID != parishID {
		return Week{}, ErrNotFound
	}
	return wk, nil
}

// Exists reports whether weekID is a week of parishID.
func (svc *Service) Exists(ctx context.Context, parishID, weekID string) (bool, error) {
	_, err := svc.GetForParish(ctx, parishID, weekID)
	if err == nil {
		return true, nil
	}
	if core.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Week, error) {
	return svc.repo.QueryWeeks(ctx, filter)
}

// Now is the boundary where handlers read the wall clock.
func (svc *Service) Now() time.Time {
	return clock.Now()
}
