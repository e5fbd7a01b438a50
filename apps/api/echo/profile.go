package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/ceresdev/academico/core"
	"github.com/ceresdev/academico/core/academic"
	"github.com/ceresdev/academico/core/profile"
	"github.com/ceresdev/academico/core/user"
)

type profileApi struct {
	usrSvc user.Service
	svc    profile.Service
}

func registerProfileAPI(g *echo.Group, jwt echo.MiddlewareFunc, usrSvc user.Service, svc profile.Service) {
	api := profileApi{
		usrSvc: usrSvc,
		svc:    svc,
	}

	pg := g.Group("/profile", jwt)
	pg.GET("/components", api.components)
	pg.GET("/:username", api.retrieve)
}

// Handlers

func (api *profileApi) retrieve(ctx echo.Context) error {
	viewer, err := getContextUser(ctx, api.usrSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	p, err := api.svc.Load(ctx.Request().Context(), viewer, ctx.Param("username"))
	if err != nil {
		switch errors.Cause(err) {
		case profile.ErrNotOwner:
			return echo.NewHTTPError(http.StatusForbidden, profile.ErrNotOwner.Error())
		case user.ErrNotFound:
			return errHttpNotFound
		}
		return errors.Wrap(err, "loading profile")
	}

	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) components(ctx echo.Context) error {
	courseCode := core.CleanString(ctx.QueryParam("curso_id"))
	semester, err := strconv.Atoi(ctx.QueryParam("semestre_id"))
	if err != nil {
		return core.NewValidationError(nil, core.FieldError{Field: "semestre_id", Error: "invalid value"})
	}

	comps, err := api.svc.Components(ctx.Request().Context(), courseCode, semester)
	if err != nil {
		return errors.Wrap(err, "querying curriculum components")
	}
	if comps == nil {
		comps = []academic.CurriculumComponent{}
	}
	return ctx.JSON(http.StatusOK, comps)
}
