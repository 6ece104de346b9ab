package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Sauravv193/event-collab-task-management/internal/db"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	sqldb, err := db.Connect("", t.TempDir())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { sqldb.Close() })
	if err := db.Migrate(context.Background(), sqldb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewStore(sqldb)
}

func TestCreateDefaultsStatus(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	task, err := s.Create(ctx, &Task{EventID: 1, Name: "book venue"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	if task.Status != StatusTodo {
		t.Fatalf("status = %q, want TODO", task.Status)
	}
	if task.CreatedAt.IsZero() || task.UpdatedAt.IsZero() {
		t.Fatal("timestamps should be set")
	}
}

func TestCreateRejectsBadStatus(t *testing.T) {
	s := testStore(t)

	_, err := s.Create(context.Background(), &Task{EventID: 1, Name: "x", Status: "BLOCKED"})
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v, want ErrInvalidStatus", err)
	}
}

func TestGetRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	deadline := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	created, err := s.Create(ctx, &Task{
		EventID:     7,
		Name:        "send invites",
		Description: "email the list",
		Status:      StatusInProgress,
		AssignedTo:  "bob",
		Deadline:    &deadline,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.EventID != 7 || got.Name != "send invites" || got.Status != StatusInProgress {
		t.Fatalf("got %+v", got)
	}
	if got.Deadline == nil || !got.Deadline.Equal(deadline) {
		t.Fatalf("deadline = %v, want %v", got.Deadline, deadline)
	}
}

func TestListByEvent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := s.Create(ctx, &Task{EventID: 1, Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := s.Create(ctx, &Task{EventID: 2, Name: "other"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	list, err := s.ListByEvent(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len = %d, want 2", len(list))
	}
	if list[0].Name != "a" || list[1].Name != "b" {
		t.Fatalf("list = %+v", list)
	}
}

func TestUpdate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &Task{EventID: 1, Name: "draft agenda"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	created.Name = "final agenda"
	created.Status = StatusDone
	updated, err := s.Update(ctx, created)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "final agenda" || updated.Status != StatusDone {
		t.Fatalf("updated = %+v", updated)
	}
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		t.Fatal("updated_at should not precede created_at")
	}

	created.ID = 999
	if _, err := s.Update(ctx, created); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("update missing err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &Task{EventID: 1, Name: "tear down"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("get after delete err = %v", err)
	}
	if err := s.Delete(ctx, created.ID); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestDeleteByEvent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		if _, err := s.Create(ctx, &Task{EventID: 5, Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if err := s.DeleteByEvent(ctx, 5); err != nil {
		t.Fatalf("delete by event: %v", err)
	}
	list, err := s.ListByEvent(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("len = %d, want 0", len(list))
	}
}

func TestOwningEvent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &Task{EventID: 42, Name: "belongs"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	eventID, err := s.OwningEvent(ctx, created.ID)
	if err != nil {
		t.Fatalf("owning event: %v", err)
	}
	if eventID != 42 {
		t.Fatalf("eventID = %d, want 42", eventID)
	}

	if _, err := s.OwningEvent(ctx, 999); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("orphan err = %v", err)
	}
}
