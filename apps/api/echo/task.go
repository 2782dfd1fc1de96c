package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/task"
)

type taskApi struct {
	svc      *task.Service
	validate *validator.Validate
}

func registerTaskAPI(g *echo.Group, svc *task.Service, validate *validator.Validate) {
	api := taskApi{
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/tasks")
	tg.GET("", api.query)
	tg.POST("", api.create)
	tg.PUT("/:taskID/complete", api.complete)
	tg.PUT("/:taskID/reopen", api.reopen)
	tg.PUT("/:taskID/review", api.review)
}

type ReviewRequest struct {
	ApprovalStatus access.Approval `json:"approval_status"`
}

func (api *taskApi) query(ctx echo.Context) error {
	weekID := ctx.QueryParam("week_id")
	if weekID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "week_id", Error: "this field is required"})
	}
	tasks, err := api.svc.QueryVisible(ctx.Request().Context(), ctx.Param("parishID"), weekID, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying tasks")
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return ctx.JSON(http.StatusOK, tasks)
}

func (api *taskApi) create(ctx echo.Context) error {
	var data task.NewTask
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTask")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	t, err := api.svc.Create(ctx.Request().Context(), ctx.Param("parishID"), data, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "creating task")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *taskApi) complete(ctx echo.Context) error {
	t, err := api.svc.Complete(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("taskID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "completing task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) reopen(ctx echo.Context) error {
	t, err := api.svc.Reopen(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("taskID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "reopening task")
	}
	return ctx.JSON(http.StatusOK, t)
}

func (api *taskApi) review(ctx echo.Context) error {
	var data ReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ReviewRequest")
	}

	t, err := api.svc.Review(
		ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("taskID"), data.ApprovalStatus, contextViewer(ctx),
	)
	if err != nil {
		return errors.Wrap(err, "reviewing task")
	}
	return ctx.JSON(http.StatusOK, t)
}
