//go:build unit

package data

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedMemoryPage(t *testing.T, s *MemoryStore, id, slug string) *Page {
	t.Helper()
	now := time.Now().UTC()
	p := &Page{ID: id, Slug: slug, Title: "Title " + slug, PageType: PageTypeMarketing, CreatedAt: now, UpdatedAt: now}
	if err := s.InsertPage(context.Background(), p); err != nil {
		t.Fatalf("InsertPage failed: %v", err)
	}
	return p
}

func TestMemoryStore_PageConstraints(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedMemoryPage(t, s, "p1", "home")

	t.Run("duplicate slug on insert", func(t *testing.T) {
		err := s.InsertPage(ctx, &Page{ID: "p2", Slug: "home"})
		if !IsDuplicate(err, ConstraintPageSlug) {
			t.Fatalf("expected slug duplicate error, got %v", err)
		}
	})

	t.Run("duplicate slug on update", func(t *testing.T) {
		seedMemoryPage(t, s, "p3", "about")
		err := s.UpdatePage(ctx, &Page{ID: "p3", Slug: "home"})
		if !IsDuplicate(err, ConstraintPageSlug) {
			t.Fatalf("expected slug duplicate error, got %v", err)
		}
	})

	t.Run("missing page", func(t *testing.T) {
		if _, err := s.FindPageByID(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if err := s.DeletePage(ctx, "nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound on delete, got %v", err)
		}
	})

	t.Run("returned rows are copies", func(t *testing.T) {
		p, err := s.FindPageBySlug(ctx, "home")
		if err != nil {
			t.Fatalf("FindPageBySlug failed: %v", err)
		}
		p.Title = "changed"
		again, _ := s.FindPageByID(ctx, "p1")
		if again.Title == "changed" {
			t.Error("mutating a returned page changed the stored row")
		}
	})
}

func TestMemoryStore_Versions(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	seedMemoryPage(t, s, "p1", "home")

	for i := 1; i <= 3; i++ {
		v := &PageVersion{ID: "v" + string(rune('0'+i)), PageID: "p1", VersionNumber: i, ChangeType: ChangeUpdate, CreatedAt: time.Now().UTC()}
		if err := s.InsertPageVersion(ctx, v); err != nil {
			t.Fatalf("InsertPageVersion %d failed: %v", i, err)
		}
	}

	err := s.InsertPageVersion(ctx, &PageVersion{ID: "dup", PageID: "p1", VersionNumber: 2})
	if !IsDuplicate(err, ConstraintVersionNumber) {
		t.Fatalf("expected version duplicate error, got %v", err)
	}

	versions, err := s.ListVersionsByPage(ctx, "p1")
	if err != nil {
		t.Fatalf("ListVersionsByPage failed: %v", err)
	}
	if len(versions) != 3 || versions[0].VersionNumber != 3 || versions[2].VersionNumber != 1 {
		t.Errorf("expected versions 3,2,1, got %d entries", len(versions))
	}

	latest, err := s.FindLatestVersion(ctx, "p1")
	if err != nil || latest.VersionNumber != 3 {
		t.Errorf("expected latest version 3, got %v (err %v)", latest, err)
	}

	if err := s.DeletePage(ctx, "p1"); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}
	versions, _ = s.ListVersionsByPage(ctx, "p1")
	if len(versions) != 0 {
		t.Errorf("expected versions to be deleted with the page, got %d", len(versions))
	}
	if _, err := s.FindVersionByID(ctx, "v1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for cascaded version, got %v", err)
	}
}

func TestMemoryStore_TransactRollback(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Transact(ctx, func(r Repository) error {
		if err := r.InsertPage(ctx, &Page{ID: "p1", Slug: "home"}); err != nil {
			return err
		}
		if err := r.InsertAuditLog(ctx, &AuditLog{ID: "a1", Action: "create"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.FindPageByID(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected page insert to be rolled back, got %v", err)
	}
	logs, _ := s.ListAuditLogs(ctx, AuditFilter{})
	if len(logs) != 0 {
		t.Errorf("expected audit insert to be rolled back, got %d entries", len(logs))
	}
}

func TestMemoryStore_AuditLogs(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	entries := []*AuditLog{
		{ID: "a1", UserID: "alice", Action: "create", Resource: "pages", CreatedAt: base},
		{ID: "a2", UserID: "bob", Action: "update", Resource: "pages", CreatedAt: base.Add(time.Hour)},
		{ID: "a3", UserID: "alice", Action: "delete", Resource: "pages", CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, e := range entries {
		if err := s.InsertAuditLog(ctx, e); err != nil {
			t.Fatalf("InsertAuditLog failed: %v", err)
		}
	}

	logs, err := s.ListAuditLogs(ctx, AuditFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("ListAuditLogs failed: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != "a3" {
		t.Errorf("expected alice's entries newest first, got %+v", logs)
	}

	logs, _ = s.ListAuditLogs(ctx, AuditFilter{Limit: 1})
	if len(logs) != 1 || logs[0].ID != "a3" {
		t.Errorf("expected limit to keep only the newest entry, got %+v", logs)
	}

	n, err := s.DeleteAuditLogsBefore(ctx, base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("DeleteAuditLogsBefore failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 pruned entries, got %d", n)
	}
}
