package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/week"
)

type weekApi struct {
	svc       *week.Service
	parishSvc *parish.Service
	digestSvc *digest.Service
}

func registerWeekAPI(g *echo.Group, svc *week.Service, parishSvc *parish.Service, digestSvc *digest.Service) {
	api := weekApi{
		svc:       svc,
		parishSvc: parishSvc,
		digestSvc: digestSvc,
	}

	g.GET("/weeks/:week", api.retrieve)
	g.GET("/weeks/:week/summary", api.summary)
	g.GET("/ranges/:kind", api.rangeOf)
}

// resolve accepts a week ID or a selection (current|next).
func (api *weekApi) resolve(ctx echo.Context) (week.Week, error) {
	parishID := ctx.Param("parishID")
	param := ctx.Param("week")
	if sel := week.Selection(param); sel.Valid() {
		wk, err := api.svc.GetForSelection(ctx.Request().Context(), parishID, sel, api.svc.Now())
		return wk, errors.Wrap(err, "getting week for selection")
	}
	return api.svc.GetForParish(ctx.Request().Context(), parishID, param)
}

func (api *weekApi) retrieve(ctx echo.Context) error {
	wk, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, wk)
}

func (api *weekApi) summary(ctx echo.Context) error {
	wk, err := api.resolve(ctx)
	if err != nil {
		return err
	}
	summary, err := api.digestSvc.BuildWeekSummary(ctx.Request().Context(), wk.ParishID, wk.ID, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "building week summary")
	}
	return ctx.JSON(http.StatusOK, summary)
}

// rangeOf returns the UTC bounds of the parish week or month containing `at` (default now).
func (api *weekApi) rangeOf(ctx echo.Context) error {
	loc, err := api.parishSvc.Location(ctx.Request().Context(), ctx.Param("parishID"))
	if err != nil {
		return errors.Wrap(err, "resolving parish location")
	}

	at := api.svc.Now()
	if q := ctx.QueryParam("at"); q != "" {
		if at, err = parseInstant("at", q); err != nil {
			return err
		}
	}

	switch ctx.Param("kind") {
	case "week":
		return ctx.JSON(http.StatusOK, week.WeekRange(at, loc))
	case "month":
		return ctx.JSON(http.StatusOK, week.MonthRange(at, loc))
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "kind", Error: "must be one of week or month"})
	}
}
