package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core/access"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/registry"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/school"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

type recordApi struct {
	c        registry.Collection
	svc      *registry.Service
	auth     *authenticator
	validate *validator.Validate
}

// registerRecordAPI serves every collection under `/<collection>`,
// each route gated by what the role of the user may do on it.
func registerRecordAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	for _, c := range registry.Collections {
		api := recordApi{c: c, svc: deps.RegistrySvc, auth: auth, validate: deps.Validate}
		target := c.Target()
		view := viewMiddleware(auth, target)

		create := access.Create
		switch c {
		case registry.Attendance:
			create = access.MarkAttendance
		case registry.Messages:
			create = access.SendMessage
		}

		rg := g.Group("/"+string(c), jwt, view)
		rg.GET("", api.query)
		rg.POST("", api.create, performMiddleware(auth, target, create))
		rg.GET("/:id", api.retrieve)
		if c != registry.Messages {
			rg.PUT("/:id", api.update, performMiddleware(auth, target, access.Edit))
		}
		rg.DELETE("/:id", api.destroy, performMiddleware(auth, target, access.Delete))
	}
}

// Handlers

func (api *recordApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := bindFilter(ctx)
	var recs []school.Record
	if api.c == registry.Messages && !usr.IsAdmin() {
		recs, err = api.svc.Inbox(usr, filter)
	} else {
		recs, err = api.svc.List(api.c, filter)
	}
	if err != nil {
		return errors.Wrapf(err, "listing %s", api.c)
	}
	return ctx.JSON(http.StatusOK, recs)
}

func (api *recordApi) retrieve(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	rec, err := api.svc.Get(api.c, ctx.Param("id"))
	if err != nil {
		return errors.Wrapf(err, "getting %s record", api.c)
	}
	if api.c == registry.Messages && !isParty(usr, rec) {
		return errHttpNotFound
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) create(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	form, err := api.bindForm(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Create(api.c, form, usr)
	if err != nil {
		return errors.Wrapf(err, "creating %s record", api.c)
	}
	return ctx.JSON(http.StatusCreated, rec)
}

func (api *recordApi) update(ctx echo.Context) error {
	form, err := api.bindForm(ctx)
	if err != nil {
		return err
	}
	rec, err := api.svc.Update(api.c, ctx.Param("id"), form)
	if err != nil {
		return errors.Wrapf(err, "updating %s record", api.c)
	}
	return ctx.JSON(http.StatusOK, rec)
}

func (api *recordApi) destroy(ctx echo.Context) error {
	id := ctx.Param("id")
	if _, err := api.svc.Get(api.c, id); err != nil {
		return errors.Wrapf(err, "getting %s record", api.c)
	}
	if err := api.svc.Delete(api.c, id); err != nil {
		return errors.Wrapf(err, "deleting %s record", api.c)
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *recordApi) bindForm(ctx echo.Context) (registry.Form, error) {
	form, err := registry.NewForm(api.c)
	if err != nil {
		return nil, err
	}
	if err = ctx.Bind(form); err != nil {
		return nil, errors.Wrapf(err, "binding to %T", form)
	}
	if err = form.Validate(api.validate); err != nil {
		return nil, err
	}
	return form, nil
}

// isParty reports whether usr sent or received the message; admins read every message.
func isParty(usr user.User, rec school.Record) bool {
	if usr.IsAdmin() {
		return true
	}
	msg, err := school.NormalizeMessage(rec)
	if err != nil {
		return false
	}
	return msg.Sender.ID == usr.ID || msg.Recipient.ID == usr.ID
}
