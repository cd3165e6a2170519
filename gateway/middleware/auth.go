package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jwt "github.com/golang-jwt/jwt/v5"
)

// AuthConfig controls bearer-token verification at the edge. Token issuance
// is owned by the external authentication service; the gateway only verifies
// the HMAC signature and maps the subject claim to a caller identity.
type AuthConfig struct {
	Enabled    bool
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

type contextKey string

// ContextKeyCaller carries the authenticated caller identity ([20]byte).
const ContextKeyCaller contextKey = "gateway.caller"

// devCallerHeader supplies the caller identity when auth is disabled (local
// development and tests).
const devCallerHeader = "X-Caller-Address"

// Authenticator is the chi middleware resolving the caller identity for every
// request.
type Authenticator struct {
	cfg    AuthConfig
	logger *slog.Logger
	secret []byte
}

// NewAuthenticator builds the middleware from static configuration.
func NewAuthenticator(cfg AuthConfig, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 2 * time.Minute
	}
	return &Authenticator{
		cfg:    cfg,
		logger: logger,
		secret: []byte(strings.TrimSpace(cfg.HMACSecret)),
	}
}

// CallerFromContext returns the authenticated caller identity, if any.
func CallerFromContext(ctx context.Context) ([20]byte, bool) {
	caller, ok := ctx.Value(ContextKeyCaller).([20]byte)
	return caller, ok
}

func extractBearer(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func parseCallerAddress(raw string) ([20]byte, bool) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return [20]byte{}, false
	}
	return common.HexToAddress(trimmed), true
}

// Middleware authenticates the request and stores the caller identity in the
// request context. With auth disabled the identity comes from the
// X-Caller-Address header instead.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled {
			if caller, ok := parseCallerAddress(r.Header.Get(devCallerHeader)); ok {
				r = r.WithContext(context.WithValue(r.Context(), ContextKeyCaller, caller))
			}
			next.ServeHTTP(w, r)
			return
		}
		tokenString := extractBearer(r.Header.Get("Authorization"))
		if tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		options := []jwt.ParserOption{
			jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
			jwt.WithLeeway(a.cfg.ClockSkew),
		}
		if a.cfg.Issuer != "" {
			options = append(options, jwt.WithIssuer(a.cfg.Issuer))
		}
		if a.cfg.Audience != "" {
			options = append(options, jwt.WithAudience(a.cfg.Audience))
		}
		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
			return a.secret, nil
		}, options...)
		if err != nil || !token.Valid {
			a.logger.Warn("rejected bearer token", "err", err)
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		caller, ok := parseCallerAddress(claims.Subject)
		if !ok {
			http.Error(w, "token subject is not a caller address", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ContextKeyCaller, caller)))
	})
}
