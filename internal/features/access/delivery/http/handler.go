package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"chart-analyst-bot/internal/common/middleware"
	"chart-analyst-bot/internal/features/access/service"
)

type AccessHandler struct {
	service service.AccessService
	log     zerolog.Logger
}

func NewAccessHandler(service service.AccessService, log zerolog.Logger) *AccessHandler {
	return &AccessHandler{
		service: service,
		log:     log,
	}
}

// RegisterRoutes expects the group to already run TelegramInitData.
func (h *AccessHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	users.Use(middleware.RequireAuth())
	{
		users.GET("/me", h.getMe)
	}

	admin := router.Group("/admin")
	admin.Use(middleware.RequireAdmin(h.service.IsAdmin))
	{
		admin.GET("/users/active", h.listActive)
	}
}

type UserStatusResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username,omitempty"`
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	IsAdmin   bool       `json:"is_admin"`
}

type ActiveUserResponse struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username,omitempty"`
	DisplayName string     `json:"display_name"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type ActiveUsersResponse struct {
	Users []ActiveUserResponse `json:"users"`
	Count int                  `json:"count"`
}

// @Summary Get current user status
// @Description Activation state of the caller identified by Telegram init data.
// @Tags users
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} UserStatusResponse
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid init data"
// @Failure 503 {object} middleware.ErrorResponse "Storage unavailable"
// @Router /users/me [get]
func (h *AccessHandler) getMe(c *gin.Context) {
	id, _ := middleware.CallerID(c)

	active, err := h.service.IsActive(c.Request.Context(), id)
	if err != nil {
		middleware.SendError(c, h.log, err)
		return
	}
	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		middleware.SendError(c, h.log, err)
		return
	}

	resp := UserStatusResponse{
		ID:       id,
		Username: user.Username,
		Active:   active,
		IsAdmin:  h.service.IsAdmin(id),
	}
	if active {
		resp.ExpiresAt = user.ExpiresAt
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary List active users
// @Description Users whose activation has not expired. Same list as the /list_active bot command.
// @Tags admin
// @Produce json
// @Security TelegramInitData
// @Success 200 {object} ActiveUsersResponse
// @Failure 401 {object} middleware.ErrorResponse "Missing or invalid init data"
// @Failure 403 {object} middleware.ErrorResponse "Caller is not an administrator"
// @Failure 503 {object} middleware.ErrorResponse "Storage unavailable"
// @Router /admin/users/active [get]
func (h *AccessHandler) listActive(c *gin.Context) {
	id, _ := middleware.CallerID(c)

	users, err := h.service.ListActive(c.Request.Context(), id)
	if err != nil {
		middleware.SendError(c, h.log, err)
		return
	}

	resp := ActiveUsersResponse{
		Users: make([]ActiveUserResponse, 0, len(users)),
		Count: len(users),
	}
	for _, u := range users {
		resp.Users = append(resp.Users, ActiveUserResponse{
			ID:          u.ID,
			Username:    u.Username,
			DisplayName: service.DisplayName(u),
			ExpiresAt:   u.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
