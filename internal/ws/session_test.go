package ws

import (
	"sync"
	"testing"

	"github.com/Sauravv193/event-collab-task-management/internal/auth"
)

func TestSessionBindOnce(t *testing.T) {
	sess := NewSession()
	if sess.ID == "" {
		t.Fatal("session needs an ID")
	}
	if sess.Authenticated() {
		t.Fatal("fresh session must be anonymous")
	}

	alice := &auth.Identity{ID: 10, Username: "alice"}
	bob := &auth.Identity{ID: 20, Username: "bob"}

	if !sess.Bind(alice) {
		t.Fatal("first bind should win")
	}
	if sess.Bind(bob) {
		t.Fatal("second bind must be rejected")
	}
	if got := sess.Identity(); got != alice {
		t.Fatalf("identity = %+v, want alice", got)
	}
}

func TestSessionBindNil(t *testing.T) {
	sess := NewSession()
	if sess.Bind(nil) {
		t.Fatal("nil identity must not bind")
	}
	if sess.Authenticated() {
		t.Fatal("session must stay anonymous")
	}
}

func TestSessionConcurrentBind(t *testing.T) {
	sess := NewSession()

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan *auth.Identity, n)
	for i := 0; i < n; i++ {
		ident := &auth.Identity{ID: int64(i + 1), Username: "user"}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if sess.Bind(ident) {
				wins <- ident
			}
		}()
	}
	wg.Wait()
	close(wins)

	var winners []*auth.Identity
	for w := range wins {
		winners = append(winners, w)
	}
	if len(winners) != 1 {
		t.Fatalf("winners = %d, want exactly 1", len(winners))
	}
	if sess.Identity() != winners[0] {
		t.Fatal("bound identity must be the single winner")
	}
}
