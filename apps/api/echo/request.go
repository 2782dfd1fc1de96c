package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core/request"
)

type requestApi struct {
	svc      *request.Service
	validate *validator.Validate
}

func registerRequestAPI(g *echo.Group, svc *request.Service, validate *validator.Validate) {
	api := requestApi{
		svc:      svc,
		validate: validate,
	}

	rg := g.Group("/requests")
	rg.GET("", api.query)
	rg.POST("", api.create)
	rg.GET("/:requestID", api.retrieve)
	rg.PUT("/:requestID/assign", api.assign, leaderMiddleware())
	rg.PUT("/:requestID/close", api.close)
}

type AssignRequest struct {
	AssigneeIDs []string `json:"assignee_ids"`
}

func (api *requestApi) query(ctx echo.Context) error {
	reqs, err := api.svc.QueryVisible(ctx.Request().Context(), ctx.Param("parishID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying requests")
	}
	if reqs == nil {
		reqs = []request.Request{}
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *requestApi) create(ctx echo.Context) error {
	var data request.NewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	r, err := api.svc.Create(ctx.Request().Context(), ctx.Param("parishID"), data, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	return ctx.JSON(http.StatusCreated, r)
}

func (api *requestApi) retrieve(ctx echo.Context) error {
	r, err := api.svc.Get(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("requestID"), contextViewer(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *requestApi) assign(ctx echo.Context) error {
	var data AssignRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignRequest")
	}

	r, err := api.svc.Assign(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("requestID"), data.AssigneeIDs, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "assigning request")
	}
	return ctx.JSON(http.StatusOK, r)
}

func (api *requestApi) close(ctx echo.Context) error {
	r, err := api.svc.Close(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("requestID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "closing request")
	}
	return ctx.JSON(http.StatusOK, r)
}
