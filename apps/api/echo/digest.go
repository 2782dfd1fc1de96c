package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/parish"
)

type digestApi struct {
	svc       *digest.Service
	parishSvc *parish.Service
	validate  *validator.Validate
}

func registerDigestAPI(g *echo.Group, svc *digest.Service, parishSvc *parish.Service, validate *validator.Validate) {
	api := digestApi{
		svc:       svc,
		parishSvc: parishSvc,
		validate:  validate,
	}

	dg := g.Group("/digests")
	dg.POST("", api.generate, leaderMiddleware())
	dg.GET("/:digestID", api.retrieve)
	dg.PUT("/:digestID", api.update, leaderMiddleware())
	dg.POST("/:digestID/publish", api.publish, leaderMiddleware())
	dg.POST("/:digestID/send", api.send, leaderMiddleware())
}

type GenerateDigestRequest struct {
	WeekID string `json:"week_id"`
}

func (api *digestApi) generate(ctx echo.Context) error {
	var data GenerateDigestRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateDigestRequest")
	}
	if data.WeekID == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "week_id", Error: "this field is required"})
	}

	d, err := api.svc.Generate(ctx.Request().Context(), ctx.Param("parishID"), data.WeekID, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "generating digest")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *digestApi) retrieve(ctx echo.Context) error {
	d, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("digestID"), contextViewer(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *digestApi) update(ctx echo.Context) error {
	var data digest.UpdateDigest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateDigest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	d, err := api.svc.Save(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("digestID"), data, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "saving digest")
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *digestApi) publish(ctx echo.Context) error {
	d, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("digestID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "publishing digest")
	}
	return ctx.JSON(http.StatusOK, d)
}

// send emails a published digest to every active member of the parish.
func (api *digestApi) send(ctx echo.Context) error {
	parishID := ctx.Param("parishID")
	d, err := api.svc.GetByID(ctx.Request().Context(), parishID, ctx.Param("digestID"), contextViewer(ctx))
	if err != nil {
		return err
	}
	emails, err := api.parishSvc.MemberEmails(ctx.Request().Context(), parishID)
	if err != nil {
		return errors.Wrap(err, "querying member emails")
	}
	if err = api.svc.Send(ctx.Request().Context(), d, emails); err != nil {
		return errors.Wrap(err, "sending digest")
	}
	return ctx.NoContent(http.StatusAccepted)
}
