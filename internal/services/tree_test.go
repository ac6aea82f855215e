package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"gorm.io/datatypes"
)

func TestDeleteFolderRecursiveLeavesNoOrphans(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	root := newTestFolder(t, db, editor, "root", nil)
	child := newTestFolder(t, db, editor, "child", &root.ID)
	grandchild := newTestFolder(t, db, editor, "grandchild", &child.ID)

	rootFile := newTestFile(t, db, editor, "a.md", "root file", &root.ID)
	deepFile := newTestFile(t, db, editor, "b.md", "deep file", &grandchild.ID)
	outside := newTestFile(t, db, editor, "outside.md", "unrelated", nil)

	if err := db.Create(&models.FileVersion{FileID: deepFile.ID, Position: 1, Content: "v1", UpdatedByID: editor.ID}).Error; err != nil {
		t.Fatalf("failed creating version: %v", err)
	}
	if err := db.Create(&models.Edit{FileID: rootFile.ID, EditorID: editor.ID, OriginalContent: "root file", NewContent: "changed", Status: models.EditStatusPending}).Error; err != nil {
		t.Fatalf("failed creating edit: %v", err)
	}
	if err := db.Create(&models.Notification{RecipientID: editor.ID, FileID: &deepFile.ID}).Error; err != nil {
		t.Fatalf("failed creating notification: %v", err)
	}
	// Reference only through meta, the way workflow notifications store it.
	if err := db.Create(&models.Notification{RecipientID: editor.ID, Meta: datatypes.JSONMap{"fileId": rootFile.ID.String()}}).Error; err != nil {
		t.Fatalf("failed creating meta notification: %v", err)
	}
	keep := &models.Notification{RecipientID: editor.ID, FileID: &outside.ID}
	if err := db.Create(keep).Error; err != nil {
		t.Fatalf("failed creating unrelated notification: %v", err)
	}

	result, err := tree.DeleteFolderRecursive(ctx, editor, root.ID)
	if err != nil {
		t.Fatalf("cascade delete failed: %v", err)
	}

	if result.FoldersDeleted != 3 {
		t.Fatalf("expected 3 folders deleted, got %d", result.FoldersDeleted)
	}
	if result.FilesDeleted != 2 {
		t.Fatalf("expected 2 files deleted, got %d", result.FilesDeleted)
	}

	var folders int64
	db.Model(&models.Folder{}).Count(&folders)
	if folders != 0 {
		t.Fatalf("expected no folders left, got %d", folders)
	}

	var files int64
	db.Model(&models.File{}).Count(&files)
	if files != 1 {
		t.Fatalf("expected only the outside file left, got %d", files)
	}

	var versions int64
	db.Model(&models.FileVersion{}).Count(&versions)
	if versions != 0 {
		t.Fatalf("expected no versions left, got %d", versions)
	}

	var edits int64
	db.Model(&models.Edit{}).Count(&edits)
	if edits != 0 {
		t.Fatalf("expected no edits left, got %d", edits)
	}

	var notifications []models.Notification
	db.Find(&notifications)
	if len(notifications) != 1 || notifications[0].ID != keep.ID {
		t.Fatalf("expected only the unrelated notification left, got %d", len(notifications))
	}
}

func TestDeleteFolderRecursiveRequiresOwnership(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	owner := newTestUser(t, db, models.UserRoleEditor)
	other := newTestUser(t, db, models.UserRoleEditor)
	admin := newTestUser(t, db, models.UserRoleAdmin)
	ctx := context.Background()

	folder := newTestFolder(t, db, owner, "private", nil)

	if _, err := tree.DeleteFolderRecursive(ctx, other, folder.ID); !IsForbidden(err) {
		t.Fatalf("expected forbidden error for non-owner, got %v", err)
	}

	if _, err := tree.DeleteFolderRecursive(ctx, admin, folder.ID); err != nil {
		t.Fatalf("expected admin to delete any folder, got %v", err)
	}
}

func TestDeleteFolderRecursiveMissingFolder(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	admin := newTestUser(t, db, models.UserRoleAdmin)

	if _, err := tree.DeleteFolderRecursive(context.Background(), admin, uuid.New()); !IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestBulkPublishTargetsSubtreeOnly(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	admin := newTestUser(t, db, models.UserRoleAdmin)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	target := newTestFolder(t, db, editor, "target", nil)
	nested := newTestFolder(t, db, editor, "nested", &target.ID)
	other := newTestFolder(t, db, editor, "other", nil)

	inTarget := newTestFile(t, db, editor, "in.md", "x", &target.ID)
	inNested := newTestFile(t, db, editor, "nested.md", "x", &nested.ID)
	inOther := newTestFile(t, db, editor, "other.md", "x", &other.ID)
	atRoot := newTestFile(t, db, editor, "root.md", "x", nil)

	modified, err := tree.BulkPublish(ctx, admin, &target.ID, false)
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if modified != 2 {
		t.Fatalf("expected 2 files modified, got %d", modified)
	}

	assertPublished := func(id uuid.UUID, want bool) {
		t.Helper()
		var file models.File
		if err := db.First(&file, "id = ?", id).Error; err != nil {
			t.Fatalf("failed loading file: %v", err)
		}
		if file.Published != want {
			t.Fatalf("file %s: expected published=%v, got %v", file.Name, want, file.Published)
		}
	}

	assertPublished(inTarget.ID, false)
	assertPublished(inNested.ID, false)
	assertPublished(inOther.ID, true)
	assertPublished(atRoot.ID, true)

	// Second run targets the same rows again; SQL reports them all matched.
	again, err := tree.BulkPublish(ctx, admin, &target.ID, false)
	if err != nil {
		t.Fatalf("second bulk publish failed: %v", err)
	}
	if again != modified {
		t.Fatalf("expected idempotent targeting (%d rows), got %d", modified, again)
	}
	assertPublished(inTarget.ID, false)
	assertPublished(inNested.ID, false)
}

func TestBulkPublishNilFolderTargetsRootLevelOnly(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	admin := newTestUser(t, db, models.UserRoleAdmin)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	folder := newTestFolder(t, db, editor, "docs", nil)
	inFolder := newTestFile(t, db, editor, "doc.md", "x", &folder.ID)
	atRoot := newTestFile(t, db, editor, "loose.md", "x", nil)

	modified, err := tree.BulkPublish(ctx, admin, nil, false)
	if err != nil {
		t.Fatalf("bulk publish failed: %v", err)
	}
	if modified != 1 {
		t.Fatalf("expected only the root-level file modified, got %d", modified)
	}

	var file models.File
	db.First(&file, "id = ?", atRoot.ID)
	if file.Published {
		t.Fatal("expected root-level file unpublished")
	}
	file = models.File{}
	db.First(&file, "id = ?", inFolder.ID)
	if !file.Published {
		t.Fatal("expected file inside folder untouched")
	}
}

func TestBulkPublishRequiresAdmin(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)

	if _, err := tree.BulkPublish(context.Background(), editor, nil, true); !IsForbidden(err) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestPublishedFolderClosureIncludesAncestors(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	top := newTestFolder(t, db, editor, "top", nil)
	middle := newTestFolder(t, db, editor, "middle", &top.ID)
	leaf := newTestFolder(t, db, editor, "leaf", &middle.ID)
	empty := newTestFolder(t, db, editor, "empty", nil)
	unpublishedOnly := newTestFolder(t, db, editor, "hidden", nil)

	newTestFile(t, db, editor, "published.md", "x", &leaf.ID)

	hidden := newTestFile(t, db, editor, "secret.md", "x", &unpublishedOnly.ID)
	if err := db.Model(hidden).Update("published", false).Error; err != nil {
		t.Fatalf("failed unpublishing file: %v", err)
	}

	folders, err := tree.PublishedFolderClosure(ctx)
	if err != nil {
		t.Fatalf("closure failed: %v", err)
	}

	got := map[uuid.UUID]bool{}
	for _, folder := range folders {
		got[folder.ID] = true
	}

	for _, want := range []uuid.UUID{top.ID, middle.ID, leaf.ID} {
		if !got[want] {
			t.Fatalf("expected folder %s in closure", want)
		}
	}
	if got[empty.ID] {
		t.Fatal("empty folder must not appear in closure")
	}
	if got[unpublishedOnly.ID] {
		t.Fatal("folder with only unpublished files must not appear in closure")
	}
}

func TestCollectFilesBuildsSubtreePaths(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	root := newTestFolder(t, db, editor, "guide", nil)
	section := newTestFolder(t, db, editor, "advanced", &root.ID)

	newTestFile(t, db, editor, "intro.md", "hello", &root.ID)
	newTestFile(t, db, editor, "deep.md", "deep", &section.ID)

	collected, err := tree.CollectFiles(ctx, root.ID)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(collected) != 2 {
		t.Fatalf("expected 2 files collected, got %d", len(collected))
	}

	paths := map[string]string{}
	for _, item := range collected {
		paths[item.File.Name] = item.Path
	}
	if paths["intro.md"] != "guide" {
		t.Fatalf("expected path 'guide' for intro.md, got %q", paths["intro.md"])
	}
	if paths["deep.md"] != "guide/advanced" {
		t.Fatalf("expected path 'guide/advanced' for deep.md, got %q", paths["deep.md"])
	}
}

func TestBuildTreeNestsFoldersAndFiles(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	other := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	root := newTestFolder(t, db, editor, "notes", nil)
	newTestFolder(t, db, editor, "inner", &root.ID)
	newTestFile(t, db, editor, "todo.md", "todo", &root.ID)
	newTestFile(t, db, editor, "loose.md", "loose", nil)

	// Someone else's content must not leak into this tree.
	newTestFile(t, db, other, "theirs.md", "x", nil)

	nodes, err := tree.BuildTree(ctx, editor.ID)
	if err != nil {
		t.Fatalf("build tree failed: %v", err)
	}

	if len(nodes) != 2 {
		t.Fatalf("expected 2 top-level nodes (folder + loose file), got %d", len(nodes))
	}

	var folderNode *TreeNode
	for i := range nodes {
		if nodes[i].Type == "folder" {
			folderNode = &nodes[i]
		}
	}
	if folderNode == nil || folderNode.Name != "notes" {
		t.Fatalf("expected folder node 'notes', got %+v", nodes)
	}
	if len(folderNode.Children) != 2 {
		t.Fatalf("expected folder to contain subfolder and file, got %d children", len(folderNode.Children))
	}
}

func TestDeleteFileRemovesDependents(t *testing.T) {
	db := openTestDB(t)
	tree := NewTreeService(db)
	editor := newTestUser(t, db, models.UserRoleEditor)
	ctx := context.Background()

	file := newTestFile(t, db, editor, "doc.md", "content", nil)
	if err := db.Create(&models.FileVersion{FileID: file.ID, Position: 1, Content: "content", UpdatedByID: editor.ID}).Error; err != nil {
		t.Fatalf("failed creating version: %v", err)
	}
	if err := db.Create(&models.Edit{FileID: file.ID, EditorID: editor.ID, OriginalContent: "content", NewContent: "new", Status: models.EditStatusPending}).Error; err != nil {
		t.Fatalf("failed creating edit: %v", err)
	}

	result, err := tree.DeleteFile(ctx, editor, file.ID)
	if err != nil {
		t.Fatalf("delete file failed: %v", err)
	}
	if result.FilesDeleted != 1 || result.EditsDeleted != 1 {
		t.Fatalf("unexpected cascade counts: %+v", result)
	}

	var versions int64
	db.Model(&models.FileVersion{}).Count(&versions)
	if versions != 0 {
		t.Fatalf("expected versions removed, got %d", versions)
	}
}
