package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mdcollab/backend/internal/models"
	"github.com/mdcollab/backend/pkg/logger"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TreeService owns every operation that applies to a folder and the full
// transitive closure of its descendants. Walks are iterative over an explicit
// stack, so arbitrarily deep trees never grow the call stack.
//
// The store guarantees the parent relation stays acyclic: a folder's parent
// is validated at creation and no reparent operation exists.
type TreeService struct {
	DB *gorm.DB

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewTreeService(db *gorm.DB) *TreeService {
	return &TreeService{DB: db, locks: make(map[uuid.UUID]*sync.Mutex)}
}

// LockSubtree serializes cascade operations on the same root folder. Locks
// are advisory and retained for the life of the process. Callers must invoke
// the returned unlock.
func (s *TreeService) LockSubtree(rootID uuid.UUID) func() {
	s.mu.Lock()
	lock, ok := s.locks[rootID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[rootID] = lock
	}
	s.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// FolderIDs returns rootID plus every descendant folder id, parents before
// children.
func (s *TreeService) FolderIDs(ctx context.Context, rootID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{rootID}
	queue := []uuid.UUID{rootID}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		var childIDs []uuid.UUID
		if err := s.DB.WithContext(ctx).Model(&models.Folder{}).
			Where("parent_id = ?", current).
			Pluck("id", &childIDs).Error; err != nil {
			return nil, err
		}

		ids = append(ids, childIDs...)
		queue = append(queue, childIDs...)
	}

	return ids, nil
}

// CascadeResult counts what a recursive delete removed.
type CascadeResult struct {
	FoldersDeleted       int64 `json:"foldersDeleted"`
	FilesDeleted         int64 `json:"filesDeleted"`
	EditsDeleted         int64 `json:"editsDeleted"`
	NotificationsDeleted int64 `json:"notificationsDeleted"`
}

// DeleteFolderRecursive removes the folder, its descendant folders, every
// file under them, and all edits and notifications referencing those files.
// Deepest folders are processed first.
//
// There is no transaction around the cascade: a failure mid-walk leaves the
// already-deleted rows gone. The per-root lock only protects against
// concurrent cascades on the same subtree.
func (s *TreeService) DeleteFolderRecursive(ctx context.Context, actor *models.User, folderID uuid.UUID) (*CascadeResult, error) {
	var folder models.Folder
	if err := s.DB.WithContext(ctx).First(&folder, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "folder"}
		}
		return nil, err
	}

	if folder.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "you can only delete your own folders"}
	}

	unlock := s.LockSubtree(folderID)
	defer unlock()

	ids, err := s.FolderIDs(ctx, folderID)
	if err != nil {
		return nil, err
	}

	result := &CascadeResult{}

	// Reverse order: FolderIDs yields parents first, deletion wants children
	// first.
	for i := len(ids) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := ids[i]

		var fileIDs []uuid.UUID
		if err := s.DB.WithContext(ctx).Model(&models.File{}).
			Where("folder_id = ?", id).
			Pluck("id", &fileIDs).Error; err != nil {
			return result, err
		}

		if len(fileIDs) > 0 {
			if err := s.deleteFileDependents(ctx, fileIDs, result); err != nil {
				return result, err
			}

			deleted := s.DB.WithContext(ctx).Where("id IN ?", fileIDs).Delete(&models.File{})
			if deleted.Error != nil {
				return result, deleted.Error
			}
			result.FilesDeleted += deleted.RowsAffected
		}

		if err := s.DB.WithContext(ctx).Delete(&models.Folder{}, "id = ?", id).Error; err != nil {
			return result, err
		}
		result.FoldersDeleted++
	}

	logger.InfoWithUser(actor.ID.String(), "folder_cascade_deleted", map[string]interface{}{
		"folder_id":       folderID.String(),
		"folders_deleted": result.FoldersDeleted,
		"files_deleted":   result.FilesDeleted,
	})

	return result, nil
}

// DeleteFile removes a single file together with its versions, edits, and
// notifications.
func (s *TreeService) DeleteFile(ctx context.Context, actor *models.User, fileID uuid.UUID) (*CascadeResult, error) {
	var file models.File
	if err := s.DB.WithContext(ctx).First(&file, "id = ?", fileID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "file"}
		}
		return nil, err
	}

	if file.AuthorID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, &ForbiddenError{Message: "you can only delete your own files"}
	}

	result := &CascadeResult{}
	if err := s.deleteFileDependents(ctx, []uuid.UUID{fileID}, result); err != nil {
		return result, err
	}

	if err := s.DB.WithContext(ctx).Delete(&models.File{}, "id = ?", fileID).Error; err != nil {
		return result, err
	}
	result.FilesDeleted = 1

	logger.InfoWithUser(actor.ID.String(), "file_deleted", map[string]interface{}{
		"file_id":               fileID.String(),
		"file_name":             file.Name,
		"edits_deleted":         result.EditsDeleted,
		"notifications_deleted": result.NotificationsDeleted,
	})

	return result, nil
}

// deleteFileDependents removes edits, notifications (matched by the fileId
// column or by meta.fileId), and archived versions for the given files.
func (s *TreeService) deleteFileDependents(ctx context.Context, fileIDs []uuid.UUID, result *CascadeResult) error {
	edits := s.DB.WithContext(ctx).Where("file_id IN ?", fileIDs).Delete(&models.Edit{})
	if edits.Error != nil {
		return edits.Error
	}
	result.EditsDeleted += edits.RowsAffected

	byColumn := s.DB.WithContext(ctx).Where("file_id IN ?", fileIDs).Delete(&models.Notification{})
	if byColumn.Error != nil {
		return byColumn.Error
	}
	result.NotificationsDeleted += byColumn.RowsAffected

	for _, id := range fileIDs {
		byMeta := s.DB.WithContext(ctx).
			Where(datatypes.JSONQuery("meta").Equals(id.String(), "fileId")).
			Delete(&models.Notification{})
		if byMeta.Error != nil {
			return byMeta.Error
		}
		result.NotificationsDeleted += byMeta.RowsAffected
	}

	return s.DB.WithContext(ctx).Where("file_id IN ?", fileIDs).Delete(&models.FileVersion{}).Error
}

// BulkPublish sets the published flag on every file in the folder closure.
// A nil folderID targets root-level files only, not the whole forest.
func (s *TreeService) BulkPublish(ctx context.Context, actor *models.User, folderID *uuid.UUID, published bool) (int64, error) {
	if actor.Role != models.UserRoleAdmin {
		return 0, &ForbiddenError{Message: "admin access required"}
	}

	query := s.DB.WithContext(ctx).Model(&models.File{})
	if folderID == nil {
		query = query.Where("folder_id IS NULL")
	} else {
		ids, err := s.FolderIDs(ctx, *folderID)
		if err != nil {
			return 0, err
		}
		query = query.Where("folder_id IN ?", ids)
	}

	update := query.Update("published", published)
	if update.Error != nil {
		return 0, update.Error
	}

	logger.InfoWithUser(actor.ID.String(), "files_bulk_published", map[string]interface{}{
		"published":      published,
		"modified_count": update.RowsAffected,
	})

	return update.RowsAffected, nil
}

// CollectedFile pairs a file with its path inside the subtree, the joined
// ancestor folder names starting at the root folder's own name.
type CollectedFile struct {
	File models.File
	Path string
}

// CollectFiles gathers every file under the folder subtree, depth-first.
func (s *TreeService) CollectFiles(ctx context.Context, folderID uuid.UUID) ([]CollectedFile, error) {
	var root models.Folder
	if err := s.DB.WithContext(ctx).First(&root, "id = ?", folderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, &NotFoundError{Resource: "folder"}
		}
		return nil, err
	}

	type frame struct {
		id   uuid.UUID
		path string
	}

	collected := []CollectedFile{}
	stack := []frame{{id: root.ID, path: root.Name}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var files []models.File
		if err := s.DB.WithContext(ctx).
			Where("folder_id = ?", current.id).
			Order("name ASC").
			Find(&files).Error; err != nil {
			return nil, err
		}
		for _, file := range files {
			collected = append(collected, CollectedFile{File: file, Path: current.path})
		}

		var subfolders []models.Folder
		if err := s.DB.WithContext(ctx).
			Where("parent_id = ?", current.id).
			Order("name ASC").
			Find(&subfolders).Error; err != nil {
			return nil, err
		}
		for _, sub := range subfolders {
			stack = append(stack, frame{id: sub.ID, path: current.path + "/" + sub.Name})
		}
	}

	return collected, nil
}

// PublishedFolderClosure returns every folder that leads to at least one
// published file: the folders containing those files plus all their
// ancestors, so empty intermediate folders still show up in the viewer tree.
func (s *TreeService) PublishedFolderClosure(ctx context.Context) ([]models.Folder, error) {
	var folderIDs []uuid.UUID
	if err := s.DB.WithContext(ctx).Model(&models.File{}).
		Where("published = ? AND status = ? AND folder_id IS NOT NULL", true, models.FileStatusApproved).
		Distinct().
		Pluck("folder_id", &folderIDs).Error; err != nil {
		return nil, err
	}

	closure := make(map[uuid.UUID]bool, len(folderIDs))
	frontier := folderIDs
	for _, id := range folderIDs {
		closure[id] = true
	}

	// Upward walk: add parents in batches until no new ids appear.
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var parents []uuid.UUID
		if err := s.DB.WithContext(ctx).Model(&models.Folder{}).
			Where("id IN ? AND parent_id IS NOT NULL", frontier).
			Pluck("parent_id", &parents).Error; err != nil {
			return nil, err
		}

		frontier = frontier[:0]
		for _, parent := range parents {
			if !closure[parent] {
				closure[parent] = true
				frontier = append(frontier, parent)
			}
		}
	}

	if len(closure) == 0 {
		return []models.Folder{}, nil
	}

	ids := make([]uuid.UUID, 0, len(closure))
	for id := range closure {
		ids = append(ids, id)
	}

	var folders []models.Folder
	if err := s.DB.WithContext(ctx).
		Preload("Author").
		Where("id IN ?", ids).
		Order("name ASC").
		Find(&folders).Error; err != nil {
		return nil, err
	}

	return folders, nil
}

// TreeNode is one entry of the nested folder/file tree for an author.
type TreeNode struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Type     string     `json:"type"` // "folder" or "file"
	Content  string     `json:"content,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// BuildTree assembles the author's full folder/file tree in memory from two
// flat queries, using a child index instead of per-node queries.
func (s *TreeService) BuildTree(ctx context.Context, authorID uuid.UUID) ([]TreeNode, error) {
	var folders []models.Folder
	if err := s.DB.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("name ASC").
		Find(&folders).Error; err != nil {
		return nil, err
	}

	var files []models.File
	if err := s.DB.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("name ASC").
		Find(&files).Error; err != nil {
		return nil, err
	}

	childFolders := make(map[uuid.UUID][]models.Folder)
	rootFolders := []models.Folder{}
	for _, folder := range folders {
		if folder.ParentID == nil {
			rootFolders = append(rootFolders, folder)
		} else {
			childFolders[*folder.ParentID] = append(childFolders[*folder.ParentID], folder)
		}
	}

	childFiles := make(map[uuid.UUID][]models.File)
	rootFiles := []models.File{}
	for _, file := range files {
		if file.FolderID == nil {
			rootFiles = append(rootFiles, file)
		} else {
			childFiles[*file.FolderID] = append(childFiles[*file.FolderID], file)
		}
	}

	var build func(folders []models.Folder, files []models.File) []TreeNode
	build = func(folders []models.Folder, files []models.File) []TreeNode {
		nodes := make([]TreeNode, 0, len(folders)+len(files))
		for _, folder := range folders {
			nodes = append(nodes, TreeNode{
				ID:       folder.ID,
				Name:     folder.Name,
				Type:     "folder",
				Children: build(childFolders[folder.ID], childFiles[folder.ID]),
			})
		}
		for _, file := range files {
			nodes = append(nodes, TreeNode{
				ID:      file.ID,
				Name:    file.Name,
				Type:    "file",
				Content: file.Content,
			})
		}
		return nodes
	}

	return build(rootFolders, rootFiles), nil
}
