package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"courseline/internal/domain"
	"courseline/internal/engine/auth"
)

type AuthConfig struct {
	JWTSecret string
}

type principalKey struct{}

func withPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// principal returns the caller, or the anonymous principal.
func principal(ctx context.Context) domain.Principal {
	p, _ := principalFromContext(ctx)
	return p
}

func requireUser(ctx context.Context) (domain.Principal, huma.StatusError) {
	p := principal(ctx)
	if !p.Authenticated() {
		return p, newAPIError(http.StatusUnauthorized, "unauthorized", "authentication required", nil)
	}
	return p, nil
}

type jwtClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

func authenticateJWT(token string, secret string) (domain.Principal, error) {
	if strings.TrimSpace(secret) == "" {
		return domain.Principal{}, errors.New("jwt secret not configured")
	}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwtClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return domain.Principal{}, err
	}
	if !parsed.Valid {
		return domain.Principal{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return domain.Principal{}, errors.New("subject claim required")
	}
	roles := make([]string, 0, len(claims.Roles))
	for _, r := range claims.Roles {
		role, err := domain.ParseRole(r)
		if err != nil {
			return domain.Principal{}, err
		}
		roles = append(roles, role)
	}
	return domain.Principal{UserID: claims.Subject, Roles: roles}, nil
}

// SignToken mints an HS256 token carrying the user id and roles.
func SignToken(secret, userID string, roles []string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", errors.New("jwt secret required")
	}
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id required")
	}
	now := time.Now()
	claims := jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  userID,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Roles: roles,
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

// newAuthMiddleware resolves the caller from a bearer token or X-Api-Key.
// Requests without credentials continue as anonymous; bad credentials are rejected.
func newAuthMiddleware(basePath string, cfg AuthConfig, keys auth.Service, log logrus.FieldLogger) func(http.Handler) http.Handler {
	healthPath := path.Join(basePath, "health")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if basePath != "" && !strings.HasPrefix(req.URL.Path, basePath) {
				next.ServeHTTP(w, req)
				return
			}
			if req.URL.Path == healthPath {
				next.ServeHTTP(w, req)
				return
			}

			authz := strings.TrimSpace(req.Header.Get("Authorization"))
			apiKeyHeader := strings.TrimSpace(req.Header.Get("X-Api-Key"))

			var (
				p   domain.Principal
				err error
			)
			switch {
			case authz != "":
				token, ok := bearerToken(authz)
				if !ok {
					err = errors.New("malformed authorization header")
					break
				}
				p, err = authenticateJWT(token, cfg.JWTSecret)
			case apiKeyHeader != "":
				p, err = keys.PrincipalForAPIKey(req.Context(), apiKeyHeader)
			}
			if err != nil {
				log.WithFields(logrus.Fields{"path": req.URL.Path, "error": err.Error()}).Info("credentials rejected")
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "invalid credentials", nil))
				return
			}
			noteCaller(req.Context(), p.UserID)
			next.ServeHTTP(w, req.WithContext(withPrincipal(req.Context(), p)))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.GetStatus())
	_ = json.NewEncoder(w).Encode(err)
}
