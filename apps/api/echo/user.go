package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Message      string        `json:"message"`
		Token        string        `json:"token"`
		RefreshToken string        `json:"refreshToken"`
		User         user.Identity `json:"user"`
	}

	RefreshRequest struct {
		RefreshToken string `json:"refreshToken" validate:"required"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (data *LoginRequest) Validate(validate *validator.Validate) error {
	data.Email = core.CleanString(data.Email, true /* lower */)
	return validate.Struct(data)
}

type userApi struct {
	svc        *user.Service
	auth       *authenticator
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, auth *authenticator, deps ServerDeps) {
	api := userApi{
		svc:        deps.UserSvc,
		auth:       auth,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	// un-authed endpoints
	g.POST("/login", api.login)
	g.POST("/token-refresh", api.refreshToken)

	// authed endpoints
	ug := g.Group("/users", jwt, userMiddleware(auth))
	ug.GET("", api.query)
	ug.POST("", api.create, adminMiddleware(auth))
	ug.GET("/roles", api.queryRoles, adminMiddleware(auth))
	ug.GET("/me", api.me)
	ug.POST("/me/password", api.changePassword)
	ug.DELETE("/:id", api.destroy, adminMiddleware(auth))
}

// adminMiddleware lets the admins through.
func adminMiddleware(auth *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := auth.contextUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if !usr.IsAdmin() {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(data.Email, data.Password)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrWrongPassword:
			return errAuthenticationFailed
		case user.ErrAccountBlocked:
			return errAccountDeactivated
		default:
			return errors.Wrap(err, "authenticating")
		}
	}

	token, refresh, err := api.auth.GenerateTokens(usr)
	if err != nil {
		return errors.Wrap(err, "generating tokens")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{
		Message:      "Login successful",
		Token:        token,
		RefreshToken: refresh,
		User:         usr.Identity(),
	})
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	token, err := api.auth.refresh(data.RefreshToken)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

// query lists the active accounts, eg. to pick the recipient of a message.
// Admins may list inactive accounts too with `?is_active=false`.
func (api *userApi) query(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	filter := new(user.QueryFilter)
	if err = ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []user.Identity{})
	}
	filter.Clean()
	if !usr.IsAdmin() || filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}

	users, err := api.svc.Filter(*filter)
	if err != nil {
		return errors.Wrap(err, "filtering users")
	}
	ids := make([]user.Identity, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.Identity())
	}
	return ctx.JSON(http.StatusOK, ids)
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, usr)
}

func (api *userApi) queryRoles(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, user.Roles)
}

func (api *userApi) me(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	return ctx.JSON(http.StatusOK, usr.Identity())
}

func (api *userApi) changePassword(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	var data user.ChangePassword
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangePassword")
	}
	data.Name = usr.Name
	data.Email = usr.Email
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	if _, err = api.svc.ChangePassword(usr, data); err != nil {
		return errors.Wrap(err, "changing password")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Password has been changed."})
}

func (api *userApi) destroy(ctx echo.Context) error {
	usr, err := api.auth.contextUser(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	id := ctx.Param("id")
	if id == usr.ID {
		return core.NewValidationError(errors.New("you cannot delete your own account"))
	}
	if _, err = api.svc.GetByID(id); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = api.svc.Delete(id); err != nil {
		return errors.Wrap(err, "deleting user")
	}
	return ctx.NoContent(http.StatusNoContent)
}
