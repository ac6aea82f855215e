package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
)

func TestCreateFolderRejectsDuplicateSiblingName(t *testing.T) {
	db := openTestDB(t)
	folders := NewFolderService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	parent, err := folders.Create(ctx, editor, CreateFolderRequest{Name: "docs"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := folders.Create(ctx, editor, CreateFolderRequest{Name: "docs"}); !IsConflict(err) {
		t.Fatalf("expected conflict for duplicate root sibling, got %v", err)
	}

	// Same name under a different parent is fine.
	if _, err := folders.Create(ctx, editor, CreateFolderRequest{Name: "docs", ParentID: &parent.ID}); err != nil {
		t.Fatalf("expected nested duplicate name to be allowed, got %v", err)
	}

	// And another author may reuse the name at root.
	other := newTestUser(t, db, models.UserRoleEditor)
	if _, err := folders.Create(ctx, other, CreateFolderRequest{Name: "docs"}); err != nil {
		t.Fatalf("expected duplicate across authors to be allowed, got %v", err)
	}
}

func TestCreateFolderParentChecks(t *testing.T) {
	db := openTestDB(t)
	folders := NewFolderService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	other := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	missing := uuid.New()
	if _, err := folders.Create(ctx, editor, CreateFolderRequest{Name: "a", ParentID: &missing}); !IsNotFound(err) {
		t.Fatalf("expected not found for missing parent, got %v", err)
	}

	parent, _ := folders.Create(ctx, editor, CreateFolderRequest{Name: "mine"})
	if _, err := folders.Create(ctx, other, CreateFolderRequest{Name: "sneaky", ParentID: &parent.ID}); !IsForbidden(err) {
		t.Fatalf("expected forbidden creating under foreign parent, got %v", err)
	}
}

func TestRenameFolder(t *testing.T) {
	db := openTestDB(t)
	folders := NewFolderService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	other := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	folder, _ := folders.Create(ctx, editor, CreateFolderRequest{Name: "before"})
	sibling, _ := folders.Create(ctx, editor, CreateFolderRequest{Name: "taken"})
	_ = sibling

	if _, err := folders.Rename(ctx, other, folder.ID, "after"); !IsForbidden(err) {
		t.Fatalf("expected forbidden rename by non-owner, got %v", err)
	}
	if _, err := folders.Rename(ctx, editor, folder.ID, "taken"); !IsConflict(err) {
		t.Fatalf("expected conflict renaming onto sibling name, got %v", err)
	}

	renamed, err := folders.Rename(ctx, editor, folder.ID, "after")
	if err != nil {
		t.Fatalf("rename failed: %v", err)
	}
	if renamed.Name != "after" {
		t.Fatalf("expected new name, got %q", renamed.Name)
	}

	// Renaming to its own current name is not a conflict with itself.
	if _, err := folders.Rename(ctx, editor, folder.ID, "after"); err != nil {
		t.Fatalf("expected self-rename to pass, got %v", err)
	}
}
