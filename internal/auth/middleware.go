package auth

import (
	"net/http"

	"go.uber.org/zap"
)

// Gate authenticates conventional HTTP requests. A present, valid bearer
// token attaches the resolved identity to the request context; anything
// else passes the request through unauthenticated — whether anonymous
// access is acceptable is decided per operation, not here.
type Gate struct {
	tokens     *TokenService
	identities IdentityStore
	logger     *zap.Logger
}

// NewGate builds the request authentication middleware.
func NewGate(tokens *TokenService, identities IdentityStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, identities: identities, logger: logger}
}

// Wrap returns the wrapped HTTP handler.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		subject, err := g.tokens.Verify(token)
		if err != nil {
			g.logger.Debug("rejected bearer token", zap.String("remote_addr", r.RemoteAddr))
			next.ServeHTTP(w, r)
			return
		}

		ident, err := g.identities.FindByUsername(r.Context(), subject)
		if err != nil {
			g.logger.Warn("token subject has no user record",
				zap.String("subject", subject),
				zap.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}
