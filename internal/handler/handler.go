package handler

import (
	"net/http"

	"flashai/internal/middleware"
	"flashai/internal/models"
	"flashai/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	authService       service.AuthService
	generationService service.GenerationService
	logger            *zap.Logger
}

func NewHandler(authService service.AuthService, generationService service.GenerationService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		authService:       authService,
		generationService: generationService,
		logger:            logger.Named("HTTPHandler"),
	}
}

// RegisterRoutes регистрирует маршруты. Авторизация выполняется middleware.Authorizer,
// подключенным на уровне роутера; authLimiter ограничивает вход и регистрацию.
func (h *Handler) RegisterRoutes(router *gin.Engine, authLimiter gin.HandlerFunc) {
	if authLimiter == nil {
		authLimiter = func(c *gin.Context) { c.Next() }
	}

	router.GET("/health", h.health)

	// Страницы. UI отдается фронтендом, здесь только точки входа для редиректов.
	router.GET("/", h.page("home"))
	router.GET("/login", h.page("login"))
	router.GET("/register", h.page("register"))
	router.GET("/generate", h.page("generate"))

	authGroup := router.Group("/api/auth")
	{
		authGroup.POST("/register", authLimiter, h.register)
		authGroup.POST("/login", authLimiter, h.login)
		authGroup.POST("/logout", h.logout)
		authGroup.GET("/me", h.me)
		authGroup.POST("/refresh", h.refresh)
		authGroup.POST("/change-password", h.changePassword)
	}

	router.POST("/api/generations", h.createGeneration)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) page(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resp := gin.H{"page": name}
		if identity, ok := middleware.IdentityFromContext(c.Request.Context()); ok {
			resp["user"] = identity
		}
		c.JSON(http.StatusOK, resp)
	}
}

// currentIdentity достает личность, положенную Authorizer. На защищенных
// API-маршрутах она есть всегда; отсутствие означает ошибку конфигурации роутера.
func (h *Handler) currentIdentity(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.IdentityFromContext(c.Request.Context())
	if !ok {
		h.logger.Error("Identity missing on protected route", zap.String("path", c.FullPath()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Code:    string(models.KindMissingToken),
			Message: "Authentication required",
		})
	}
	return identity, ok
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, models.ErrorResponse{
		Code:    models.ErrCodeBadRequest,
		Message: "Invalid request data: " + err.Error(),
	})
}
