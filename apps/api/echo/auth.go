package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/rainbowkidsrealm/jaja2-sub000/core"
	"github.com/rainbowkidsrealm/jaja2-sub000/core/user"
)

const (
	contextTokenKey = "userToken"
	contextUserKey  = "user"
	audience        = "portal"

	// token kinds
	accessToken  = "access"
	refreshToken = "refresh"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Kind         string    `json:"kind"`
	Email        string    `json:"email,omitempty"`
	Name         string    `json:"name,omitempty"`
	Role         user.Role `json:"role"`
}

type authenticator struct {
	conf      *core.Config
	svc       *user.Service
	jwtConfig middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, svc *user.Service) *authenticator {
	a := &authenticator{conf: conf, svc: svc}
	a.jwtConfig = middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
	return a
}

func (a *authenticator) claims(usr user.User, kind string, delta time.Duration, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    a.conf.AppName,
			Subject:   usr.ID,
			Audience:  audience,
			ExpiresAt: now.Add(delta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Kind:         kind,
		Email:        usr.Email,
		Name:         usr.Name,
		Role:         usr.Role,
	}
}

// GenerateTokens returns a signed access token and a signed refresh token for the user.
func (a *authenticator) GenerateTokens(usr user.User, origIat ...int64) (access, refresh string, err error) {
	access, err = a.sign(a.claims(usr, accessToken, a.conf.Server.JWTExpirationDelta, origIat...))
	if err != nil {
		return "", "", err
	}
	refresh, err = a.sign(a.claims(usr, refreshToken, a.conf.Server.JWTRefreshExpirationDelta, origIat...))
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (a *authenticator) sign(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(a.jwtConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(a.jwtConfig.SigningKey)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// parseRefreshToken returns the claims of a valid refresh token.
func (a *authenticator) parseRefreshToken(raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.jwtConfig.SigningMethod {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.jwtConfig.SigningKey, nil
	})
	if err != nil || !token.Valid || claims.Kind != refreshToken {
		return nil, errRefreshInvalid
	}
	return claims, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// contextUser returns the active user the request is authenticated as.
// Refresh tokens do not authenticate requests.
func (a *authenticator) contextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}
	if claims.Kind != accessToken {
		return user.User{}, errUnauthorized
	}
	usr, err := a.svc.GetByID(claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

// refresh issues a new access token for a refresh token, within the refresh window of the first login.
func (a *authenticator) refresh(raw string) (string, error) {
	claims, err := a.parseRefreshToken(raw)
	if err != nil {
		return "", err
	}

	usr, err := a.svc.GetByID(claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return "", errRefreshInvalid
		}
		return "", errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return "", errAccountDeactivated
	}

	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.sign(a.claims(usr, accessToken, a.conf.Server.JWTExpirationDelta, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func newRequestID() string { return uuid.New().String() }
