package ws

import (
	"context"
	"testing"
	"time"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
	"github.com/Sauravv193/event-collab-task-management/internal/users"
)

type fakeIdentities map[string]*auth.Identity

func (f fakeIdentities) FindByUsername(_ context.Context, username string) (*auth.Identity, error) {
	if ident, ok := f[username]; ok {
		return ident, nil
	}
	return nil, users.ErrUserNotFound
}

func (f fakeIdentities) FindByID(_ context.Context, id int64) (*auth.Identity, error) {
	for _, ident := range f {
		if ident.ID == id {
			return ident, nil
		}
	}
	return nil, users.ErrUserNotFound
}

func testGate(t *testing.T) (*Gate, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService("gate-test-secret", time.Hour)
	ids := fakeIdentities{"alice": {ID: 10, Username: "alice"}}
	return NewGate(tokens, ids, nil), tokens
}

func authedSession(t *testing.T) *Session {
	t.Helper()
	sess := NewSession()
	if !sess.Bind(&auth.Identity{ID: 10, Username: "alice"}) {
		t.Fatal("bind failed")
	}
	return sess
}

func TestAdmitConnectBindsIdentity(t *testing.T) {
	gate, tokens := testGate(t)
	ctx := context.Background()

	token, err := tokens.Issue(&auth.Identity{ID: 10, Username: "alice"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	sess := NewSession()
	f := Frame{Type: FrameConnect, Headers: map[string]string{"Authorization": "Bearer " + token}}
	if !gate.Admit(ctx, sess, f) {
		t.Fatal("credentialed CONNECT should pass")
	}
	ident := sess.Identity()
	if ident == nil || ident.Username != "alice" {
		t.Fatalf("identity = %+v", ident)
	}
}

func TestAdmitConnectAnonymous(t *testing.T) {
	gate, _ := testGate(t)

	sess := NewSession()
	if !gate.Admit(context.Background(), sess, Frame{Type: FrameConnect}) {
		t.Fatal("anonymous CONNECT should pass")
	}
	if sess.Authenticated() {
		t.Fatal("session must stay anonymous")
	}
}

func TestAdmitConnectBadToken(t *testing.T) {
	gate, _ := testGate(t)

	sess := NewSession()
	f := Frame{Type: FrameConnect, Headers: map[string]string{"Authorization": "Bearer garbage"}}
	if gate.Admit(context.Background(), sess, f) {
		t.Fatal("CONNECT with a bad token must be rejected")
	}
	if sess.Authenticated() {
		t.Fatal("no identity may bind on rejection")
	}
}

func TestAdmitConnectUnknownSubject(t *testing.T) {
	gate, tokens := testGate(t)

	token, err := tokens.Issue(&auth.Identity{ID: 99, Username: "ghost"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sess := NewSession()
	f := Frame{Type: FrameConnect, Headers: map[string]string{"Authorization": "Bearer " + token}}
	if gate.Admit(context.Background(), sess, f) {
		t.Fatal("CONNECT for an unknown subject must be rejected")
	}
}

func TestAdmitControlFramesAlwaysPass(t *testing.T) {
	gate, _ := testGate(t)
	sess := NewSession() // anonymous

	for _, ft := range []FrameType{FrameHeartbeat, FrameUnsubscribe, FrameDisconnect} {
		if !gate.Admit(context.Background(), sess, Frame{Type: ft}) {
			t.Errorf("%s should pass without authentication", ft)
		}
	}
}

func TestAdmitSendPolicy(t *testing.T) {
	gate, _ := testGate(t)
	ctx := context.Background()

	anon := NewSession()
	if gate.Admit(ctx, anon, Frame{Type: FrameSend, Destination: "/app/chat/1"}) {
		t.Error("anonymous SEND must be denied")
	}

	sess := authedSession(t)
	if !gate.Admit(ctx, sess, Frame{Type: FrameSend, Destination: "/app/chat/1"}) {
		t.Error("authenticated SEND to /app/** should pass")
	}
	if gate.Admit(ctx, sess, Frame{Type: FrameSend, Destination: "/topic/chat/1"}) {
		t.Error("SEND to a topic destination must be denied")
	}
	if gate.Admit(ctx, sess, Frame{Type: FrameSend}) {
		t.Error("SEND without a destination must be denied")
	}
}

func TestAdmitSubscribePolicy(t *testing.T) {
	gate, _ := testGate(t)
	ctx := context.Background()

	anon := NewSession()
	if gate.Admit(ctx, anon, Frame{Type: FrameSubscribe, Destination: "/topic/chat/1"}) {
		t.Error("anonymous SUBSCRIBE must be denied")
	}

	sess := authedSession(t)
	if !gate.Admit(ctx, sess, Frame{Type: FrameSubscribe, Destination: "/topic/chat/1"}) {
		t.Error("authenticated SUBSCRIBE to /topic/** should pass")
	}
	if gate.Admit(ctx, sess, Frame{Type: FrameSubscribe, Destination: "/app/chat/1"}) {
		t.Error("SUBSCRIBE to an app destination must be denied")
	}
}

func TestAdmitUnknownFrameDenied(t *testing.T) {
	gate, _ := testGate(t)

	sess := authedSession(t)
	if gate.Admit(context.Background(), sess, Frame{Type: "BEGIN"}) {
		t.Fatal("unknown frame types must be denied even when authenticated")
	}
}
