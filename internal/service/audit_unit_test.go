//go:build unit

package service

import (
	"context"
	"go-cms-app/internal/data"
	"testing"
	"time"
)

func TestAuditService_List(t *testing.T) {
	store := data.NewMemoryStore()
	pages := newTestService(t, store)
	audit := NewAuditService(store, nil)
	ctx := context.Background()

	page := createTestPage(t, pages, "audited")
	if _, err := pages.PublishPage(ctx, page.ID, true, alice); err != nil {
		t.Fatalf("PublishPage failed: %v", err)
	}
	bob := Actor{UserID: "bob"}
	if err := pages.DeletePage(ctx, page.ID, bob); err != nil {
		t.Fatalf("DeletePage failed: %v", err)
	}

	entries, err := audit.List(ctx, data.AuditFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	wantActions := []string{"delete", "publish", "create"}
	if len(entries) != len(wantActions) {
		t.Fatalf("expected %d entries, got %d", len(wantActions), len(entries))
	}
	for i, e := range entries {
		if e.Action != wantActions[i] {
			t.Errorf("entry %d: expected action '%s', got '%s'", i, wantActions[i], e.Action)
		}
		if e.Resource != "pages" || e.ResourceID != page.ID {
			t.Errorf("entry %d: unexpected resource %s/%s", i, e.Resource, e.ResourceID)
		}
	}

	entries, _ = audit.List(ctx, data.AuditFilter{UserID: "bob"})
	if len(entries) != 1 || entries[0].Action != "delete" {
		t.Errorf("expected bob's delete only, got %+v", entries)
	}
}

func TestAuditService_RestoreDetails(t *testing.T) {
	store := data.NewMemoryStore()
	pages := newTestService(t, store)
	audit := NewAuditService(store, nil)
	ctx := context.Background()

	page := createTestPage(t, pages, "restored")
	first, _ := pages.GetLatestVersion(ctx, page.ID)
	if _, err := pages.UpdatePage(ctx, page.ID, PageUpdate{Title: strPtr("Changed")}, alice); err != nil {
		t.Fatalf("UpdatePage failed: %v", err)
	}
	if _, err := pages.RestoreVersion(ctx, page.ID, first.ID, alice); err != nil {
		t.Fatalf("RestoreVersion failed: %v", err)
	}

	entries, _ := audit.List(ctx, data.AuditFilter{Action: "restore"})
	if len(entries) != 1 {
		t.Fatalf("expected one restore entry, got %d", len(entries))
	}
	if entries[0].Details["restoredVersionId"] != first.ID {
		t.Errorf("expected restored version id in details, got %v", entries[0].Details)
	}
}

func TestAuditService_RecordAndPrune(t *testing.T) {
	store := data.NewMemoryStore()
	audit := NewAuditService(store, nil)
	ctx := context.Background()

	old := &data.AuditLog{ID: "old", Action: "login", Resource: "auth", CreatedAt: time.Now().UTC().AddDate(0, 0, -40)}
	if err := store.InsertAuditLog(ctx, old); err != nil {
		t.Fatalf("InsertAuditLog failed: %v", err)
	}
	if err := audit.Record(ctx, Actor{UserID: "carol"}, "login", "auth", "carol", nil); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	n, err := audit.Prune(ctx, 0)
	if err != nil || n != 0 {
		t.Errorf("expected zero retention to keep everything, got %d (err %v)", n, err)
	}

	n, err = audit.Prune(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 pruned entry, got %d", n)
	}
	entries, _ := audit.List(ctx, data.AuditFilter{})
	if len(entries) != 1 || entries[0].UserID != "carol" {
		t.Errorf("expected only the recent entry to remain, got %+v", entries)
	}
}
