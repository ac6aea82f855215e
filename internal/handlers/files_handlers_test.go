package handlers

import (
	"net/http"
	"testing"

	"github.com/mdcollab/backend/internal/models"
)

func TestCreateFileRequiresEditorRole(t *testing.T) {
	env := setupTestEnv(t)
	_, viewerToken := createTestUser(t, env.db, "viewer@example.com", "supersecret", models.UserRoleViewer)
	_, editorToken := createTestUser(t, env.db, "editor@example.com", "supersecret", models.UserRoleEditor)

	payload := map[string]any{"name": "doc.md", "content": "hello"}

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/files", payload, authHeaders(viewerToken))
	assertStatus(t, resp, http.StatusForbidden)

	resp = performJSONRequest(t, env.app, http.MethodPost, "/api/files", payload, authHeaders(editorToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusCreated)

	data, _ := body["data"].(map[string]any)
	if data["published"] != true {
		t.Fatalf("expected new file published, got %+v", data)
	}
	if data["status"] != "approved" {
		t.Fatalf("expected approved status, got %v", data["status"])
	}
}

func TestListPublishedHidesUnpublished(t *testing.T) {
	env := setupTestEnv(t)
	editor, editorToken := createTestUser(t, env.db, "editor@example.com", "supersecret", models.UserRoleEditor)
	_, viewerToken := createTestUser(t, env.db, "viewer@example.com", "supersecret", models.UserRoleViewer)

	visible := &models.File{Name: "visible.md", Content: "x", AuthorID: editor.ID, Status: models.FileStatusApproved, Published: true}
	hidden := &models.File{Name: "hidden.md", Content: "x", AuthorID: editor.ID, Status: models.FileStatusApproved, Published: false}
	if err := env.db.Create(visible).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}
	if err := env.db.Create(hidden).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}

	resp := performRequest(t, env.app, http.MethodGet, "/api/files", nil, authHeaders(viewerToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)

	files, _ := body["data"].([]any)
	if len(files) != 1 {
		t.Fatalf("expected only the published file, got %d", len(files))
	}

	// The unpublished file 403s for a viewer but stays visible to its author.
	resp = performRequest(t, env.app, http.MethodGet, "/api/files/"+hidden.ID.String(), nil, authHeaders(viewerToken))
	assertStatus(t, resp, http.StatusForbidden)

	resp = performRequest(t, env.app, http.MethodGet, "/api/files/"+hidden.ID.String(), nil, authHeaders(editorToken))
	assertStatus(t, resp, http.StatusOK)
}

func TestSaveFileArchivesVersions(t *testing.T) {
	env := setupTestEnv(t)
	editor, editorToken := createTestUser(t, env.db, "editor@example.com", "supersecret", models.UserRoleEditor)

	file := &models.File{Name: "doc.md", Content: "v1", AuthorID: editor.ID, Status: models.FileStatusApproved, Published: true}
	if err := env.db.Create(file).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}

	resp := performJSONRequest(t, env.app, http.MethodPut, "/api/files/"+file.ID.String()+"/save", map[string]any{
		"content": "v2",
	}, authHeaders(editorToken))
	assertStatus(t, resp, http.StatusOK)

	resp = performRequest(t, env.app, http.MethodGet, "/api/files/"+file.ID.String()+"/versions", nil, authHeaders(editorToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)

	versions, _ := body["data"].([]any)
	if len(versions) != 1 {
		t.Fatalf("expected one archived version, got %d", len(versions))
	}
	first, _ := versions[0].(map[string]any)
	if first["content"] != "v1" {
		t.Fatalf("expected archived pre-save content, got %v", first["content"])
	}
}

func TestPublishTogglesAreAdminOnly(t *testing.T) {
	env := setupTestEnv(t)
	editor, editorToken := createTestUser(t, env.db, "editor@example.com", "supersecret", models.UserRoleEditor)
	_, adminToken := createTestUser(t, env.db, "admin@example.com", "supersecret", models.UserRoleAdmin)

	file := &models.File{Name: "doc.md", Content: "x", AuthorID: editor.ID, Status: models.FileStatusApproved, Published: true}
	if err := env.db.Create(file).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}

	resp := performJSONRequest(t, env.app, http.MethodPatch, "/api/files/"+file.ID.String()+"/publish", nil, authHeaders(editorToken))
	assertStatus(t, resp, http.StatusForbidden)

	resp = performJSONRequest(t, env.app, http.MethodPatch, "/api/files/"+file.ID.String()+"/publish", nil, authHeaders(adminToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)
	data, _ := body["data"].(map[string]any)
	if data["published"] != false {
		t.Fatalf("expected publish flag flipped off, got %+v", data)
	}

	resp = performJSONRequest(t, env.app, http.MethodPut, "/api/files/"+file.ID.String()+"/publish", map[string]any{
		"published": true,
	}, authHeaders(adminToken))
	body = decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)
	data, _ = body["data"].(map[string]any)
	if data["published"] != true {
		t.Fatalf("expected publish flag set true, got %+v", data)
	}
}

func TestBulkPublishEndpoint(t *testing.T) {
	env := setupTestEnv(t)
	editor, _ := createTestUser(t, env.db, "editor@example.com", "supersecret", models.UserRoleEditor)
	_, adminToken := createTestUser(t, env.db, "admin@example.com", "supersecret", models.UserRoleAdmin)

	folder := &models.Folder{Name: "docs", AuthorID: editor.ID}
	if err := env.db.Create(folder).Error; err != nil {
		t.Fatalf("failed creating folder: %v", err)
	}
	inFolder := &models.File{Name: "in.md", Content: "x", AuthorID: editor.ID, FolderID: &folder.ID, Status: models.FileStatusApproved, Published: true}
	atRoot := &models.File{Name: "root.md", Content: "x", AuthorID: editor.ID, Status: models.FileStatusApproved, Published: true}
	if err := env.db.Create(inFolder).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}
	if err := env.db.Create(atRoot).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}

	resp := performJSONRequest(t, env.app, http.MethodPost, "/api/files/bulk-publish", map[string]any{
		"folderId":  folder.ID.String(),
		"published": false,
	}, authHeaders(adminToken))
	body := decodeJSONMap(t, resp)
	assertStatus(t, resp, http.StatusOK)

	data, _ := body["data"].(map[string]any)
	if data["modifiedCount"] != float64(1) {
		t.Fatalf("expected 1 file modified, got %v", data["modifiedCount"])
	}

	var rootFile models.File
	env.db.First(&rootFile, "id = ?", atRoot.ID)
	if !rootFile.Published {
		t.Fatal("root-level file must be untouched by folder-targeted bulk publish")
	}
}

func TestDeleteFileOwnership(t *testing.T) {
	env := setupTestEnv(t)
	owner, _ := createTestUser(t, env.db, "owner@example.com", "supersecret", models.UserRoleEditor)
	_, otherToken := createTestUser(t, env.db, "other@example.com", "supersecret", models.UserRoleEditor)
	_, adminToken := createTestUser(t, env.db, "admin@example.com", "supersecret", models.UserRoleAdmin)

	file := &models.File{Name: "doc.md", Content: "x", AuthorID: owner.ID, Status: models.FileStatusApproved, Published: true}
	if err := env.db.Create(file).Error; err != nil {
		t.Fatalf("failed creating file: %v", err)
	}

	resp := performRequest(t, env.app, http.MethodDelete, "/api/files/"+file.ID.String(), nil, authHeaders(otherToken))
	assertStatus(t, resp, http.StatusForbidden)

	resp = performRequest(t, env.app, http.MethodDelete, "/api/files/"+file.ID.String(), nil, authHeaders(adminToken))
	assertStatus(t, resp, http.StatusOK)

	resp = performRequest(t, env.app, http.MethodDelete, "/api/files/"+file.ID.String(), nil, authHeaders(adminToken))
	assertStatus(t, resp, http.StatusNotFound)
}
