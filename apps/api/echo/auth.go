package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/sundayschool/core"
	"github.com/trezcool/sundayschool/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"
	tokenAudience   = "SundaySchool"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	Role         string `json:"role,omitempty"`
}

// TokenIssuer signs and refreshes session tokens.
type TokenIssuer struct {
	key               []byte
	method            string
	issuer            string
	expiration        time.Duration
	refreshExpiration time.Duration
}

func NewTokenIssuer(conf *core.Config) *TokenIssuer {
	return &TokenIssuer{
		key:               []byte(conf.SecretKey),
		method:            middleware.AlgorithmHS256,
		issuer:            conf.AppName,
		expiration:        conf.JWTExpirationDelta,
		refreshExpiration: conf.JWTRefreshExpirationDelta,
	}
}

func (ti *TokenIssuer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    ti.key,
		SigningMethod: ti.method,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims returns the claims of a new session of usr.
// origIat keeps the original issue time across refreshes.
func (ti *TokenIssuer) Claims(usr user.User, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.NewString(),
			Issuer:    ti.issuer,
			Subject:   usr.StringID(),
			Audience:  tokenAudience,
			ExpiresAt: now.Add(ti.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Email:        usr.Email,
		Role:         usr.Role,
	}
}

// Token generates a signed JWT token string representing the user Claims.
func (ti *TokenIssuer) Token(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(ti.method), claims)
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti *TokenIssuer) refresh(claims Claims, usr user.User) (string, error) {
	if !usr.IsActive {
		return "", user.ErrAccountDeactivated
	}
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(ti.refreshExpiration)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}
	return ti.Token(ti.Claims(usr, claims.OrigIssuedAt))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextUser returns the session user loaded by sessionMiddleware.
func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// sessionMiddleware resolves the token subject to an active user.
func sessionMiddleware(svc user.ServiceInterface) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			id, err := strconv.Atoi(claims.Subject)
			if err != nil {
				return errUnauthorized
			}
			usr, err := svc.GetByID(ctx.Request().Context(), id)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errUnauthorized
				}
				return errors.Wrap(err, "finding session user")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(userContextKey, usr)
			return next(ctx)
		}
	}
}

type authApi struct {
	tokens *TokenIssuer
	svc    user.ServiceInterface
}

func registerAuthAPI(g *echo.Group, auth []echo.MiddlewareFunc, tokens *TokenIssuer, svc user.ServiceInterface) {
	api := authApi{tokens: tokens, svc: svc}

	ag := g.Group("/auth")
	// TODO: rate limit `/login`
	ag.POST("/login", api.login)
	ag.POST("/token-refresh", api.refreshToken, auth...)
	ag.GET("/me", api.me, auth...)
}

type (
	LoginRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	data.Email = core.CleanString(data.Email, true /* lower */)
	if data.Email == "" || data.Password == "" {
		return user.ErrInvalidCredentials
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Email, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := api.tokens.Token(api.tokens.Claims(usr))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) refreshToken(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	token, err := api.tokens.refresh(claims, usr)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *authApi) me(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}
