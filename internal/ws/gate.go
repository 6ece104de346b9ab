package ws

import (
	"context"

	"go.uber.org/zap"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
)

// Gate authorizes frames on a session. Policy is a strict allowlist:
// control frames always pass, SEND must target an application destination,
// SUBSCRIBE must target a topic, both require a bound identity, and every
// other frame is denied.
type Gate struct {
	tokens     *auth.TokenService
	identities auth.IdentityStore
	logger     *zap.Logger
}

func NewGate(tokens *auth.TokenService, identities auth.IdentityStore, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{tokens: tokens, identities: identities, logger: logger}
}

// Admit decides whether the frame may proceed on the session. A CONNECT
// carrying credentials binds the session identity as a side effect.
func (g *Gate) Admit(ctx context.Context, sess *Session, f Frame) bool {
	switch f.Type {
	case FrameConnect:
		return g.admitConnect(ctx, sess, f)

	case FrameHeartbeat, FrameUnsubscribe, FrameDisconnect:
		return true

	case FrameSend:
		if !sess.Authenticated() || !IsAppDestination(f.Destination) {
			g.denied(sess, f)
			return false
		}
		return true

	case FrameSubscribe:
		if !sess.Authenticated() || !IsTopicDestination(f.Destination) {
			g.denied(sess, f)
			return false
		}
		return true
	}

	g.denied(sess, f)
	return false
}

// admitConnect verifies the bearer credential in the frame headers and
// binds the resolved identity. A CONNECT with no credential passes as an
// anonymous session; a credential that fails verification rejects the
// frame.
func (g *Gate) admitConnect(ctx context.Context, sess *Session, f Frame) bool {
	token := auth.BearerToken(f.Headers["Authorization"])
	if token == "" {
		return true
	}

	subject, err := g.tokens.Verify(token)
	if err != nil {
		g.logger.Warn("realtime connect rejected: bad token",
			zap.String("session", sess.ID),
		)
		return false
	}

	ident, err := g.identities.FindByUsername(ctx, subject)
	if err != nil {
		g.logger.Warn("realtime connect rejected: unknown subject",
			zap.String("session", sess.ID),
			zap.String("subject", subject),
		)
		return false
	}

	sess.Bind(ident)
	return true
}

func (g *Gate) denied(sess *Session, f Frame) {
	g.logger.Warn("frame denied",
		zap.String("session", sess.ID),
		zap.String("type", string(f.Type)),
		zap.String("destination", f.Destination),
		zap.Bool("authenticated", sess.Authenticated()),
	)
}
