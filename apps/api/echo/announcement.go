package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/parokia/core/announcement"
)

type announcementApi struct {
	svc      *announcement.Service
	validate *validator.Validate
}

func registerAnnouncementAPI(g *echo.Group, svc *announcement.Service, validate *validator.Validate) {
	api := announcementApi{
		svc:      svc,
		validate: validate,
	}

	ag := g.Group("/announcements")
	ag.GET("", api.query)
	ag.POST("", api.create)
	ag.GET("/:announcementID", api.retrieve)
	ag.POST("/:announcementID/publish", api.publish)
}

func (api *announcementApi) query(ctx echo.Context) error {
	anns, err := api.svc.QueryVisible(ctx.Request().Context(), ctx.Param("parishID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "querying announcements")
	}
	if anns == nil {
		anns = []announcement.Announcement{}
	}
	return ctx.JSON(http.StatusOK, anns)
}

func (api *announcementApi) create(ctx echo.Context) error {
	var data announcement.NewAnnouncement
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAnnouncement")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	a, err := api.svc.Create(ctx.Request().Context(), ctx.Param("parishID"), data, contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "creating announcement")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *announcementApi) retrieve(ctx echo.Context) error {
	a, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("announcementID"), contextViewer(ctx))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *announcementApi) publish(ctx echo.Context) error {
	a, err := api.svc.Publish(ctx.Request().Context(), ctx.Param("parishID"), ctx.Param("announcementID"), contextViewer(ctx))
	if err != nil {
		return errors.Wrap(err, "publishing announcement")
	}
	return ctx.JSON(http.StatusOK, a)
}
