package handler

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"canvas-backend/internal/cache"
	"canvas-backend/internal/config"
	"canvas-backend/internal/model"
)

// ProjectHandler project CRUD plus the canvas document load/save boundary.
// This is where the shallow document gate runs: a corrupt stored document is
// replaced by the default empty one on load, and a candidate that fails the
// gate is rejected wholesale on save.
type ProjectHandler struct {
	db    *gorm.DB
	cache *cache.RedisClient // nil when Redis is disabled
	cfg   *config.Config
}

// NewProjectHandler creates a ProjectHandler
func NewProjectHandler(db *gorm.DB, redisClient *cache.RedisClient, cfg *config.Config) *ProjectHandler {
	return &ProjectHandler{db: db, cache: redisClient, cfg: cfg}
}

// CreateProjectRequest create payload
type CreateProjectRequest struct {
	Name string `json:"name"`
}

// CreateProject creates a project with the canonical empty document and an
// owner membership row.
func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil || req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "project name is required"})
	}

	doc := model.DefaultDocument(req.Name)
	raw, err := marshalDocument(doc)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build default document"})
	}

	data := string(raw)
	project := model.Project{
		PublicID:   uuid.New().String(),
		OwnerID:    userID,
		Name:       req.Name,
		CanvasData: &data,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		member := model.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      model.MemberRoleOwner.String(),
			Status:    model.MemberStatusActive.String(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create project"})
	}

	return c.Status(fiber.StatusCreated).JSON(project)
}

// GetMyProjects lists projects the caller owns or is an active member of.
func (h *ProjectHandler) GetMyProjects(c *fiber.Ctx) error {
	userID, ok := c.Locals("userID").(int64)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var projects []model.Project
	err := h.db.
		Distinct("projects.*").
		Joins("LEFT JOIN project_members pm ON pm.project_id = projects.id").
		Where("projects.owner_id = ? OR (pm.user_id = ? AND pm.status = ?)",
			userID, userID, model.MemberStatusActive.String()).
		Order("projects.updated_at DESC").
		Find(&projects).Error
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list projects"})
	}

	return c.JSON(fiber.Map{"projects": projects})
}

// GetProject returns project metadata (no document body).
func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	projectID, ok := c.Locals("projectID").(int64)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project ID"})
	}

	var project model.Project
	if err := h.db.Omit("canvas_data").First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "project not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load project"})
	}

	return c.JSON(project)
}

// DeleteProject removes the project, its membership rows and its document
// (the only path that ever deletes a canvas document).
func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	projectID, ok := c.Locals("projectID").(int64)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project ID"})
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Project{}, projectID).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete project"})
	}

	if h.cache != nil {
		h.cache.InvalidateDocument(c.Context(), projectID)
	}

	return c.JSON(fiber.Map{"success": true})
}

// GetCanvas loads the canvas document. A document that fails the shallow
// gate is replaced by the default empty one — the user sees a blank canvas,
// never an error dialog. The corruption itself is only logged.
func (h *ProjectHandler) GetCanvas(c *fiber.Ctx) error {
	projectID, ok := c.Locals("projectID").(int64)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project ID"})
	}

	if h.cache != nil {
		if cached, err := h.cache.GetDocument(c.Context(), projectID); err == nil && cached != nil {
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Send(cached)
		}
	}

	var project model.Project
	if err := h.db.First(&project, projectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "project not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load project"})
	}

	var raw []byte
	if project.CanvasData != nil {
		raw = []byte(*project.CanvasData)
	}

	if !model.ValidateDocument(raw) {
		log.Printf("[Project] Corrupt canvas document for project %d, substituting default", projectID)
		defaultRaw, err := marshalDocument(model.DefaultDocument(project.Name))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to build default document"})
		}
		raw = defaultRaw
	}

	body, err := canvasResponse(raw, project.Version, project.LastSaved)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to encode document"})
	}

	if h.cache != nil {
		h.cache.SetDocument(c.Context(), projectID, body, h.cfg.Canvas.CacheTTL)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(body)
}

// SaveCanvas persists a candidate document. The shallow gate is the
// accept/reject boundary here: a malformed document is rejected wholesale,
// never partially stored. Accepted saves bump version and last_saved.
func (h *ProjectHandler) SaveCanvas(c *fiber.Ctx) error {
	projectID, ok := c.Locals("projectID").(int64)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid project ID"})
	}

	raw := c.Body()
	if len(raw) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "document body is required"})
	}
	if max := h.cfg.Canvas.MaxDocumentBytes; max > 0 && len(raw) > max {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": "document too large"})
	}

	if !model.ValidateDocument(raw) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid canvas document"})
	}

	now := time.Now()
	data := string(raw)

	result := h.db.Model(&model.Project{}).
		Where("id = ?", projectID).
		Updates(map[string]interface{}{
			"canvas_data": data,
			"version":     gorm.Expr("version + 1"),
			"last_saved":  now,
		})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to save document"})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "project not found"})
	}

	if h.cache != nil {
		h.cache.InvalidateDocument(c.Context(), projectID)
	}

	var version int64
	h.db.Table("projects").Where("id = ?", projectID).Select("version").Scan(&version)

	return c.JSON(fiber.Map{
		"success":   true,
		"version":   version,
		"lastSaved": now.Format(time.RFC3339),
	})
}
