package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"localhire/internal/config"
	"localhire/internal/domain"
	"localhire/internal/models"

	"github.com/golang-jwt/jwt/v4"
)

type ctxKey int

const actorKey ctxKey = iota

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid token")
)

// Claims is the bearer token payload. Tokens are issued elsewhere; this
// service only verifies them.
type Claims struct {
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(cfg config.APIAuthConfig) *Authenticator {
	return &Authenticator{secret: []byte(cfg.JWTSecret), issuer: cfg.Issuer}
}

// Sign issues an HS256 token for actor. Used by tooling and tests.
func (a *Authenticator) Sign(actor domain.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  actor.Role,
		Name:  actor.Name,
		Email: actor.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Authenticator) Parse(tokenString string) (domain.Actor, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	if a.issuer != "" && !claims.VerifyIssuer(a.issuer, true) {
		return domain.Actor{}, errInvalidToken
	}
	if claims.Subject == "" {
		return domain.Actor{}, errInvalidToken
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleContractor, models.RoleClient:
	default:
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{ID: claims.Subject, Role: claims.Role, Name: claims.Name, Email: claims.Email}, nil
}

func (a *Authenticator) fromRequest(r *http.Request) (domain.Actor, error) {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return domain.Actor{}, errMissingToken
	}
	tokenString := strings.TrimSpace(header[len(prefix):])
	if tokenString == "" {
		return domain.Actor{}, errMissingToken
	}
	return a.Parse(tokenString)
}

// Require admits authenticated callers whose role is listed. An empty list
// admits any role.
func (a *Authenticator) Require(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			actor, err := a.fromRequest(r)
			if err != nil {
				writeFail(w, http.StatusUnauthorized, "Not Authorized Login Again")
				return
			}
			if len(roles) > 0 && !hasRole(actor.Role, roles) {
				writeFail(w, http.StatusForbidden, "access denied")
				return
			}
			next(w, r.WithContext(context.WithValue(r.Context(), actorKey, actor)))
		}
	}
}

func hasRole(role string, allowed []string) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey).(domain.Actor)
	return actor
}
