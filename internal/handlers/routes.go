package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/mdcollab/backend/internal/middleware"
	"github.com/mdcollab/backend/internal/services"
	"github.com/mdcollab/backend/internal/ws"
	"gorm.io/gorm"
)

// RegisterRoutes wires every API route onto the app. The server and the test
// harness both go through here so they cannot drift apart.
func RegisterRoutes(app *fiber.App, db *gorm.DB, client services.RepoBrowser, hub *ws.Hub) {
	var broadcaster services.Broadcaster
	if hub != nil {
		broadcaster = hub
	}

	treeService := services.NewTreeService(db)
	fileService := services.NewFileService(db)
	folderService := services.NewFolderService(db)
	notificationService := services.NewNotificationService(db, broadcaster)
	workflowService := services.NewWorkflowService(db, notificationService)
	archiveService := services.NewArchiveService(treeService)
	syncService := services.NewSyncService(db, client, treeService)

	authHandler := NewAuthHandler(db)
	userHandler := NewUserHandler(db)
	fileHandler := NewFileHandler(db, fileService, treeService, workflowService)
	folderHandler := NewFolderHandler(db, folderService, treeService, archiveService)
	editHandler := NewEditHandler(db, workflowService)
	notificationHandler := NewNotificationHandler(notificationService)
	githubHandler := NewGithubHandler(client, syncService)

	authMiddleware := middleware.NewAuthMiddleware(db)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)

	userRoutes := api.Group("/users", authMiddleware.RequireAuth, middleware.AdminOnly)
	userRoutes.Get("/", userHandler.List)
	userRoutes.Get("/:id", userHandler.Get)
	userRoutes.Put("/:id/role", userHandler.UpdateRole)
	userRoutes.Delete("/:id", userHandler.Delete)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Get("/", fileHandler.ListPublished)
	fileRoutes.Get("/all", middleware.AdminOnly, fileHandler.ListAll)
	fileRoutes.Get("/my", fileHandler.MyFiles)
	fileRoutes.Post("/", middleware.RequireEditor, fileHandler.Create)
	fileRoutes.Post("/bulk-publish", middleware.AdminOnly, fileHandler.BulkPublish)
	fileRoutes.Get("/:id", fileHandler.Get)
	fileRoutes.Put("/:id/save", middleware.RequireEditor, fileHandler.Save)
	fileRoutes.Put("/:id/publish", middleware.AdminOnly, fileHandler.SetPublish)
	fileRoutes.Patch("/:id/publish", middleware.AdminOnly, fileHandler.TogglePublish)
	fileRoutes.Get("/:id/versions", fileHandler.Versions)
	fileRoutes.Delete("/:id", fileHandler.Delete)

	folderRoutes := api.Group("/folders", authMiddleware.RequireAuth)
	folderRoutes.Get("/", folderHandler.My)
	folderRoutes.Get("/all", middleware.AdminOnly, folderHandler.ListAll)
	folderRoutes.Get("/published", folderHandler.Published)
	folderRoutes.Get("/tree", folderHandler.Tree)
	folderRoutes.Post("/", middleware.RequireEditor, folderHandler.Create)
	folderRoutes.Get("/:id", folderHandler.Get)
	folderRoutes.Put("/:id", middleware.RequireEditor, folderHandler.Rename)
	folderRoutes.Get("/:id/download", folderHandler.Download)
	folderRoutes.Delete("/:id", folderHandler.Delete)

	editRoutes := api.Group("/edits", authMiddleware.RequireAuth)
	editRoutes.Post("/", middleware.RequireEditor, editHandler.Propose)
	editRoutes.Get("/my", editHandler.MyEdits)
	editRoutes.Get("/pending", middleware.AdminOnly, editHandler.Pending)
	editRoutes.Post("/:id/approve", middleware.AdminOnly, editHandler.Approve)
	editRoutes.Post("/:id/reject", middleware.AdminOnly, editHandler.Reject)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationHandler.List)
	notificationRoutes.Get("/unread-count", notificationHandler.UnreadCount)
	notificationRoutes.Patch("/read-all", notificationHandler.MarkAllRead)
	notificationRoutes.Patch("/:id/read", notificationHandler.MarkRead)
	notificationRoutes.Delete("/:id", notificationHandler.Delete)

	githubRoutes := api.Group("/github", authMiddleware.RequireAuth)
	githubRoutes.Get("/repo", githubHandler.Browse)
	githubRoutes.Get("/file-content", githubHandler.FileContent)
	githubRoutes.Post("/import", middleware.RequireEditor, githubHandler.Import)
	githubRoutes.Post("/sync/:fileId", middleware.RequireEditor, githubHandler.SyncFile)
	githubRoutes.Post("/sync-folder/:folderId", middleware.RequireEditor, githubHandler.SyncFolder)

	if hub != nil {
		app.Use("/ws", authMiddleware.RequireAuth, func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws", websocket.New(hub.Handler()))
	}
}
