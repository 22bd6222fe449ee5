package handler

import (
	"context"
	"fmt"
	"net/http"

	"quest-bot/internal/interfaces"
	"quest-bot/internal/models"
	"quest-bot/internal/service"
	sharedMiddleware "quest-bot/shared/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionAdmin - управление активными сессиями.
type SessionAdmin interface {
	Sessions() []models.SessionInfo
	ShutdownAll(ctx context.Context) error
}

// AchievementStatsProvider - статистика владельцев достижений.
type AchievementStatsProvider interface {
	AllStats(ctx context.Context) ([]service.AchievementStats, error)
}

// AdminHandler обслуживает /api/admin.
type AdminHandler struct {
	sessions SessionAdmin
	stats    AchievementStatsProvider
	branches interfaces.BranchSource
	logger   *zap.Logger
}

// NewAdminHandler создает обработчик админского API.
func NewAdminHandler(sessions SessionAdmin, stats AchievementStatsProvider, branches interfaces.BranchSource, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		stats:    stats,
		branches: branches,
		logger:   logger.Named("AdminHandler"),
	}
}

// RegisterRoutes регистрирует маршруты в переданной группе.
func (h *AdminHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/sessions", h.listSessions)
	group.POST("/sessions/shutdown", h.shutdownSessions)
	group.GET("/achievements", h.listAchievements)
	group.GET("/branches/:id", h.getBranch)
}

type sessionsResponse struct {
	Count    int                  `json:"count"`
	Sessions []models.SessionInfo `json:"sessions"`
}

func (h *AdminHandler) listSessions(c *gin.Context) {
	sessions := h.sessions.Sessions()
	if sessions == nil {
		sessions = []models.SessionInfo{}
	}
	c.JSON(http.StatusOK, sessionsResponse{Count: len(sessions), Sessions: sessions})
}

func (h *AdminHandler) shutdownSessions(c *gin.Context) {
	closed := len(h.sessions.Sessions())
	if err := h.sessions.ShutdownAll(c.Request.Context()); err != nil {
		// Сессии уже закрыты, ошибки касаются только уведомлений.
		h.logger.Warn("Shutdown completed with notification errors", zap.Error(err))
	}
	h.logger.Info("Sessions shut down by admin",
		zap.Int("closed", closed),
		zap.String("admin", c.GetString(sharedMiddleware.AdminSubjectKey)),
	)
	c.JSON(http.StatusOK, gin.H{"closed": closed})
}

func (h *AdminHandler) listAchievements(c *gin.Context) {
	stats, err := h.stats.AllStats(c.Request.Context())
	if err != nil {
		handleServiceError(c, err, h.logger)
		return
	}
	if stats == nil {
		stats = []service.AchievementStats{}
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) getBranch(c *gin.Context) {
	id := c.Param("id")
	branch, ok := h.branches.Get(id)
	if !ok {
		handleServiceError(c, fmt.Errorf("%w: %s", models.ErrBranchNotFound, id), h.logger)
		return
	}
	c.JSON(http.StatusOK, branch)
}
