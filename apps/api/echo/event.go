package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
)

type eventApi struct {
	svc       *event.Service
	parishSvc *parish.Service
	validate  *validator.Validate
}

func registerEventAPI(g *echo.Group, svc *event.Service, parishSvc *parish.Service, validate *validator.Validate) {
	api := eventApi{
		svc:       svc,
		parishSvc: parishSvc,
		validate:  validate,
	}

	eg := g.Group("/events")
	eg.GET("", api.list)
	eg.GET(".ics", api.calendar)
	eg.POST("", api.create)
	eg.GET("/:eventID", api.retrieve)
	eg.PUT("/:eventID", api.updateSeries)
	eg.DELETE("/:eventID", api.destroy)
	eg.PUT("/:eventID/occurrences/:start", api.updateOccurrence)
}

type InstancesResponse struct {
	Instances []event.Instance `json:"instances"`
	Truncated bool             `json:"truncated"`
}

func (api *eventApi) instances(ctx echo.Context) ([]event.Instance, bool, error) {
	parishID := ctx.Param("parishID")
	loc, err := api.parishSvc.Location(ctx.Request().Context(), parishID)
	if err != nil {
		return nil, false, errors.Wrap(err, "resolving parish location")
	}
	rng, err := new(RangeParams).Bind(ctx, clock.Now(), loc)
	if err != nil {
		return nil, false, err
	}
	return api.svc.ListInstances(ctx.Request().Context(), parishID, rng, contextViewer(ctx))
}

func (api *eventApi) list(ctx echo.Context) error {
	instances, truncated, err := api.instances(ctx)
	if err != nil {
		return err
	}
	if instances == nil {
		instances = []event.Instance{}
	}
	return ctx.JSON(http.StatusOK, InstancesResponse{Instances: instances, Truncated: truncated})
}

func (api *eventApi) calendar(ctx echo.Context) error {
	instances, _, err := api.instances(ctx)
	if err != nil {
		return err
	}
	p, err := api.parishSvc.GetByID(ctx.Request().Context(), ctx.Param("parishID"))
	if err != nil {
		return errors.Wrap(err, "finding parish")
	}
	body := event.ICalendar(p.Name, instances, clock.Now())
	return ctx.Blob(http.StatusOK, "text/calendar; charset=utf-8", []byte(body))
}

func (api *eventApi) create(ctx echo.Context) error {
	var data event.NewEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.Create(ctx.Request().Context(), ctx.Param("parishID"), data, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "creating event")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (api *eventApi) retrieve(ctx echo.Context) error {
	e, err := api.svc.Get(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("eventID"), contextViewer(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, e)
}

// updateSeries edits the whole series ("all events").
func (api *eventApi) updateSeries(ctx echo.Context) error {
	var data event.UpdateEvent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateEvent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	e, err := api.svc.EditSeries(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("eventID"), data, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "editing series")
	}
	return ctx.JSON(http.StatusOK, e)
}

// updateOccurrence edits the occurrence that originally starts at `:start` ("this event only").
func (api *eventApi) updateOccurrence(ctx echo.Context) error {
	originalStart, err := parseInstant("start", ctx.Param("start"))
	if err != nil {
		return err
	}

	var data event.EditOccurrence
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EditOccurrence")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	ex, err := api.svc.EditOccurrence(
		ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("eventID"), originalStart, data, contextViewer(ctx),
	)
	if err != nil {
		return errors.Wrap(err, "editing occurrence")
	}
	return ctx.JSON(http.StatusOK, ex)
}

func (api *eventApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("eventID"), contextViewer(ctx)); err != nil {
		return errors.Wrap(err, "deleting event")
	}
	return ctx.NoContent(http.StatusNoContent)
}
