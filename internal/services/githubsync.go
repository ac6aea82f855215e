package services

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/github"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
	"gorm.io/gorm"
)

// RepoBrowser is the slice of the GitHub client the sync service needs.
// Tests point the real client at an httptest server instead of mocking this.
type RepoBrowser interface {
	Contents(ctx context.Context, owner, repo, path string) ([]github.ContentEntry, error)
	LatestCommitSHA(ctx context.Context, owner, repo string) (string, error)
	Download(ctx context.Context, url string) (string, error)
}

// SyncService imports public GitHub repositories as mirrored folder trees and
// reconciles them against upstream. Only markdown files are mirrored; anything
// a user creates manually inside a mirror is left alone by reconciliation.
type SyncService struct {
	DB     *gorm.DB
	Client RepoBrowser
	Tree   *TreeService
}

func NewSyncService(db *gorm.DB, client RepoBrowser, tree *TreeService) *SyncService {
	return &SyncService{DB: db, Client: client, Tree: tree}
}

func upstreamStatus(err error) int {
	if apiErr, ok := err.(*github.APIError); ok {
		return apiErr.Status
	}
	return 0
}

// ImportResult counts what an import brought in.
type ImportResult struct {
	FilesImported  int `json:"filesImported"`
	FilesSkipped   int `json:"filesSkipped"`
	FoldersCreated int `json:"foldersCreated"`
	Failed         int `json:"failed"`
}

// SyncResult counts what a folder reconciliation changed. UpToDate means the
// commit SHA matched and nothing was fetched.
type SyncResult struct {
	UpToDate       bool `json:"upToDate"`
	FilesCreated   int  `json:"filesCreated"`
	FilesUpdated   int  `json:"filesUpdated"`
	FilesUpToDate  int  `json:"filesUpToDate"`
	FilesFailed    int  `json:"filesFailed"`
	FilesRemoved   int  `json:"filesRemoved"`
	FoldersCreated int  `json:"foldersCreated"`
	FoldersFailed  int  `json:"foldersFailed"`
	FoldersRemoved int  `json:"foldersRemoved"`
}

type syncFrame struct {
	folderID uuid.UUID
	path     string
	entries  []github.ContentEntry // nil means not fetched yet
}

// Import mirrors a repository as a new folder tree owned by the actor. The
// root folder takes the repository name; subdirectories become tagged child
// folders and markdown files become mirrored files with an initial version
// entry. A failing subtree is logged and counted, not fatal.
func (s *SyncService) Import(ctx context.Context, actor *models.User, owner, repo string, parentID *uuid.UUID) (*models.Folder, *ImportResult, error) {
	if !actor.Role.CanWrite() {
		return nil, nil, &ForbiddenError{Message: "editor access required"}
	}
	if err := validation.Validate(owner, validation.Required); err != nil {
		return nil, nil, &ValidationError{Message: "owner: " + err.Error()}
	}
	if err := validation.Validate(repo, validation.Required); err != nil {
		return nil, nil, &ValidationError{Message: "repo: " + err.Error()}
	}

	if parentID != nil {
		var parent models.Folder
		if err := s.DB.WithContext(ctx).First(&parent, "id = ?", *parentID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, nil, &NotFoundError{Resource: "parent folder"}
			}
			return nil, nil, err
		}
		if parent.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
			return nil, nil, &ForbiddenError{Message: "cannot import into folder you do not own"}
		}
	}

	duplicate := s.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("author_id = ? AND name = ?", actor.ID, repo)
	if parentID == nil {
		duplicate = duplicate.Where("parent_id IS NULL")
	} else {
		duplicate = duplicate.Where("parent_id = ?", *parentID)
	}
	var count int64
	if err := duplicate.Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, &ConflictError{Message: "a folder named after this repository already exists here"}
	}

	rootEntries, err := s.Client.Contents(ctx, owner, repo, "")
	if err != nil {
		return nil, nil, &UpstreamError{Op: "list repository", Status: upstreamStatus(err), Err: err}
	}

	// Commit SHA is best effort; a mirror without one just never short-circuits
	// on sync.
	var lastSHA *string
	if sha, err := s.Client.LatestCommitSHA(ctx, owner, repo); err != nil {
		logger.Warn("github_commit_sha_unavailable", map[string]interface{}{
			"owner": owner,
			"repo":  repo,
			"error": err.Error(),
		})
	} else if sha != "" {
		lastSHA = &sha
	}

	root := models.Folder{
		Name:     repo,
		AuthorID: actor.ID,
		ParentID: parentID,
		GithubSource: models.FolderGithubSource{
			Owner:         owner,
			Repo:          repo,
			Path:          "",
			LastCommitSHA: lastSHA,
		},
	}
	if err := s.DB.WithContext(ctx).Create(&root).Error; err != nil {
		return nil, nil, err
	}

	result := &ImportResult{}
	stack := []syncFrame{{folderID: root.ID, path: "", entries: rootEntries}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return &root, result, err
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries := frame.entries
		if entries == nil {
			entries, err = s.Client.Contents(ctx, owner, repo, frame.path)
			if err != nil {
				logger.Warn("github_import_subtree_failed", map[string]interface{}{
					"owner": owner,
					"repo":  repo,
					"path":  frame.path,
					"error": err.Error(),
				})
				result.Failed++
				continue
			}
		}

		for _, entry := range entries {
			switch {
			case entry.IsDir():
				child := models.Folder{
					Name:     entry.Name,
					AuthorID: actor.ID,
					ParentID: &frame.folderID,
					GithubSource: models.FolderGithubSource{
						Owner: owner,
						Repo:  repo,
						Path:  entry.Path,
					},
				}
				if err := s.DB.WithContext(ctx).Create(&child).Error; err != nil {
					return &root, result, err
				}
				result.FoldersCreated++
				stack = append(stack, syncFrame{folderID: child.ID, path: entry.Path})

			case entry.IsMarkdownFile():
				if err := s.importFile(ctx, actor, owner, repo, frame.folderID, entry); err != nil {
					logger.Warn("github_import_file_failed", map[string]interface{}{
						"owner": owner,
						"repo":  repo,
						"path":  entry.Path,
						"error": err.Error(),
					})
					result.Failed++
					continue
				}
				result.FilesImported++

			default:
				result.FilesSkipped++
			}
		}
	}

	logger.InfoWithUser(actor.ID.String(), "github_repo_imported", map[string]interface{}{
		"owner":           owner,
		"repo":            repo,
		"folder_id":       root.ID.String(),
		"files_imported":  result.FilesImported,
		"folders_created": result.FoldersCreated,
		"failed":          result.Failed,
	})

	return &root, result, nil
}

func (s *SyncService) importFile(ctx context.Context, actor *models.User, owner, repo string, folderID uuid.UUID, entry github.ContentEntry) error {
	content, err := s.Client.Download(ctx, entry.DownloadURL)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	file := models.File{
		Name:     entry.Name,
		Content:  content,
		AuthorID: actor.ID,
		FolderID: &folderID,
		Status:   models.FileStatusApproved,
		GithubSource: models.FileGithubSource{
			Owner:        owner,
			Repo:         repo,
			Path:         entry.Path,
			DownloadURL:  entry.DownloadURL,
			LastSyncedAt: &now,
		},
	}
	file.Published = true

	if err := s.DB.WithContext(ctx).Create(&file).Error; err != nil {
		return err
	}
	return pushVersion(ctx, s.DB, &file, actor.ID)
}

// SyncFolder reconciles a mirrored folder tree against its repository. When
// the latest commit SHA matches the stored one, nothing is fetched. Otherwise
// the remote tree is walked in full: missing folders and files are created,
// changed files are overwritten with their prior content archived, and
// mirrored items that no longer exist upstream are removed. Files and folders
// a user created by hand inside the mirror are never touched.
func (s *SyncService) SyncFolder(ctx context.Context, actor *models.User, folderID uuid.UUID) (*SyncResult, error) {
	var folder models.Folder
	if err := s.DB.WithContext(ctx).First(&folder, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "folder"}
		}
		return nil, err
	}

	if folder.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "you can only sync your own folders"}
	}
	if !folder.IsMirror() {
		return nil, &InvalidStateError{Message: "folder is not linked to a github repository"}
	}

	unlock := s.Tree.LockSubtree(folderID)
	defer unlock()

	owner := folder.GithubSource.Owner
	repo := folder.GithubSource.Repo

	remoteSHA, err := s.Client.LatestCommitSHA(ctx, owner, repo)
	if err != nil {
		// SHA lookup failing doesn't block the sync; it only costs the
		// short-circuit.
		logger.Warn("github_commit_sha_unavailable", map[string]interface{}{
			"owner": owner,
			"repo":  repo,
			"error": err.Error(),
		})
		remoteSHA = ""
	}

	result := &SyncResult{}
	if remoteSHA != "" && folder.GithubSource.LastCommitSHA != nil && *folder.GithubSource.LastCommitSHA == remoteSHA {
		result.UpToDate = true
		return result, nil
	}

	stack := []syncFrame{{folderID: folder.ID, path: folder.GithubSource.Path}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := s.Client.Contents(ctx, owner, repo, frame.path)
		if err != nil {
			if frame.folderID == folder.ID {
				return result, &UpstreamError{Op: "list repository", Status: upstreamStatus(err), Err: err}
			}
			logger.Warn("github_sync_subtree_failed", map[string]interface{}{
				"owner": owner,
				"repo":  repo,
				"path":  frame.path,
				"error": err.Error(),
			})
			result.FoldersFailed++
			continue
		}

		seenFolders := map[string]bool{}
		seenFiles := map[string]bool{}

		for _, entry := range entries {
			switch {
			case entry.IsDir():
				seenFolders[entry.Name] = true
				childID, created, err := s.ensureChildFolder(ctx, &folder, frame.folderID, entry)
				if err != nil {
					return result, err
				}
				if created {
					result.FoldersCreated++
				}
				stack = append(stack, syncFrame{folderID: childID, path: entry.Path})

			case entry.IsMarkdownFile():
				seenFiles[entry.Name] = true
				if err := s.reconcileFile(ctx, actor, &folder, frame.folderID, entry, result); err != nil {
					logger.Warn("github_sync_file_failed", map[string]interface{}{
						"owner": owner,
						"repo":  repo,
						"path":  entry.Path,
						"error": err.Error(),
					})
					result.FilesFailed++
				}
			}
		}

		if err := s.removeOrphans(ctx, frame.folderID, seenFolders, seenFiles, result); err != nil {
			return result, err
		}
	}

	if remoteSHA != "" {
		if err := s.DB.WithContext(ctx).Model(&folder).
			Update("github_last_commit_sha", remoteSHA).Error; err != nil {
			return result, err
		}
	}

	logger.InfoWithUser(actor.ID.String(), "github_folder_synced", map[string]interface{}{
		"folder_id":       folderID.String(),
		"owner":           owner,
		"repo":            repo,
		"files_created":   result.FilesCreated,
		"files_updated":   result.FilesUpdated,
		"files_removed":   result.FilesRemoved,
		"folders_created": result.FoldersCreated,
		"folders_removed": result.FoldersRemoved,
	})

	return result, nil
}

func (s *SyncService) ensureChildFolder(ctx context.Context, root *models.Folder, parentID uuid.UUID, entry github.ContentEntry) (uuid.UUID, bool, error) {
	var existing models.Folder
	err := s.DB.WithContext(ctx).
		Where("author_id = ? AND parent_id = ? AND name = ?", root.AuthorID, parentID, entry.Name).
		First(&existing).Error
	if err == nil {
		// Manually created folders that happen to match a remote directory get
		// adopted into the mirror so their contents reconcile too.
		if !existing.IsMirror() {
			if err := s.DB.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
				"github_owner": root.GithubSource.Owner,
				"github_repo":  root.GithubSource.Repo,
				"github_path":  entry.Path,
			}).Error; err != nil {
				return uuid.Nil, false, err
			}
		}
		return existing.ID, false, nil
	}
	if err != gorm.ErrRecordNotFound {
		return uuid.Nil, false, err
	}

	child := models.Folder{
		Name:     entry.Name,
		AuthorID: root.AuthorID,
		ParentID: &parentID,
		GithubSource: models.FolderGithubSource{
			Owner: root.GithubSource.Owner,
			Repo:  root.GithubSource.Repo,
			Path:  entry.Path,
		},
	}
	if err := s.DB.WithContext(ctx).Create(&child).Error; err != nil {
		return uuid.Nil, false, err
	}
	return child.ID, true, nil
}

func (s *SyncService) reconcileFile(ctx context.Context, actor *models.User, root *models.Folder, folderID uuid.UUID, entry github.ContentEntry, result *SyncResult) error {
	var existing models.File
	err := s.DB.WithContext(ctx).
		Where("author_id = ? AND folder_id = ? AND name = ?", root.AuthorID, folderID, entry.Name).
		First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		if err := s.importFile(ctx, actor, root.GithubSource.Owner, root.GithubSource.Repo, folderID, entry); err != nil {
			return err
		}
		result.FilesCreated++
		return nil
	}
	if err != nil {
		return err
	}

	content, err := s.Client.Download(ctx, entry.DownloadURL)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if content == existing.Content {
		if err := s.DB.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
			"github_download_url":   entry.DownloadURL,
			"github_last_synced_at": now,
		}).Error; err != nil {
			return err
		}
		result.FilesUpToDate++
		return nil
	}

	if err := pushVersion(ctx, s.DB, &existing, actor.ID); err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"content":               content,
		"github_owner":          root.GithubSource.Owner,
		"github_repo":           root.GithubSource.Repo,
		"github_path":           entry.Path,
		"github_download_url":   entry.DownloadURL,
		"github_last_synced_at": now,
	}).Error; err != nil {
		return err
	}
	result.FilesUpdated++
	return nil
}

// removeOrphans deletes mirrored files and mirrored subfolders under parentID
// that no longer exist upstream. Items without a github source tag are user
// creations and stay.
func (s *SyncService) removeOrphans(ctx context.Context, parentID uuid.UUID, seenFolders, seenFiles map[string]bool, result *SyncResult) error {
	var localFiles []models.File
	if err := s.DB.WithContext(ctx).
		Where("folder_id = ?", parentID).
		Find(&localFiles).Error; err != nil {
		return err
	}
	for i := range localFiles {
		file := &localFiles[i]
		if !file.IsMirror() || seenFiles[file.Name] {
			continue
		}

		cascade := &CascadeResult{}
		if err := s.Tree.deleteFileDependents(ctx, []uuid.UUID{file.ID}, cascade); err != nil {
			return err
		}
		if err := s.DB.WithContext(ctx).Delete(&models.File{}, "id = ?", file.ID).Error; err != nil {
			return err
		}
		result.FilesRemoved++
	}

	var localFolders []models.Folder
	if err := s.DB.WithContext(ctx).
		Where("parent_id = ?", parentID).
		Find(&localFolders).Error; err != nil {
		return err
	}
	for i := range localFolders {
		sub := &localFolders[i]
		if !sub.IsMirror() || seenFolders[sub.Name] {
			continue
		}
		if err := s.removeSubtree(ctx, sub.ID, result); err != nil {
			return err
		}
	}

	return nil
}

func (s *SyncService) removeSubtree(ctx context.Context, folderID uuid.UUID, result *SyncResult) error {
	ids, err := s.Tree.FolderIDs(ctx, folderID)
	if err != nil {
		return err
	}

	for i := len(ids) - 1; i >= 0; i-- {
		id := ids[i]

		var fileIDs []uuid.UUID
		if err := s.DB.WithContext(ctx).Model(&models.File{}).
			Where("folder_id = ?", id).
			Pluck("id", &fileIDs).Error; err != nil {
			return err
		}

		if len(fileIDs) > 0 {
			cascade := &CascadeResult{}
			if err := s.Tree.deleteFileDependents(ctx, fileIDs, cascade); err != nil {
				return err
			}
			deleted := s.DB.WithContext(ctx).Where("id IN ?", fileIDs).Delete(&models.File{})
			if deleted.Error != nil {
				return deleted.Error
			}
			result.FilesRemoved += int(deleted.RowsAffected)
		}

		if err := s.DB.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id).Error; err != nil {
			return err
		}
		result.FoldersRemoved++
	}

	return nil
}

// SyncFile refreshes a single mirrored file from its stored download URL. An
// id that names a folder is rejected; folder sync is a different operation.
// The bool result reports whether the file was already current.
func (s *SyncService) SyncFile(ctx context.Context, actor *models.User, fileID uuid.UUID) (*models.File, bool, error) {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			return nil, false, err
		}

		var folderCount int64
		if err := s.DB.WithContext(ctx).Model(&models.Folder{}).
			Where("id = ?", fileID).
			Count(&folderCount).Error; err != nil {
			return nil, false, err
		}
		if folderCount > 0 {
			return nil, false, &InvalidStateError{Message: "id refers to a folder; use folder sync"}
		}
		return nil, false, &NotFoundError{Resource: "file"}
	}

	if file.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, false, &ForbiddenError{Message: "you can only sync your own files"}
	}
	if !file.IsMirror() {
		return nil, false, &InvalidStateError{Message: "file is not linked to a github source"}
	}

	content, err := s.Client.Download(ctx, file.GithubSource.DownloadURL)
	if err != nil {
		return nil, false, &UpstreamError{Op: "download file", Status: upstreamStatus(err), Err: err}
	}

	now := time.Now().UTC()
	if content == file.Content {
		if err := s.DB.WithContext(ctx).Model(&file).
			Update("github_last_synced_at", now).Error; err != nil {
			return nil, false, err
		}
		file.GithubSource.LastSyncedAt = &now
		return &file, true, nil
	}

	if err := pushVersion(ctx, s.DB, &file, actor.ID); err != nil {
		return nil, false, err
	}
	if err := s.DB.WithContext(ctx).Model(&file).Updates(map[string]interface{}{
		"content":               content,
		"github_last_synced_at": now,
	}).Error; err != nil {
		return nil, false, err
	}
	file.Content = content
	file.GithubSource.LastSyncedAt = &now

	logger.InfoWithUser(actor.ID.String(), "github_file_synced", map[string]interface{}{
		"file_id": file.ID.String(),
	})

	return &file, false, nil
}
