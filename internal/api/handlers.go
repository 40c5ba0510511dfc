package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"lisanchat/internal/auth"
	"lisanchat/internal/chat"
	"lisanchat/internal/i18n"
	"lisanchat/internal/models"
)

// Handler wires HTTP routes to the auth and chat services. Error responses
// carry {"error": <localized string>}; storage errors additionally expose the
// underlying detail under "details" for debuggability.
type Handler struct {
	chat      *chat.Service
	auth      *auth.Service
	rateLimit gin.HandlerFunc
}

// NewHandler constructs a Handler instance. rateLimit may be nil.
func NewHandler(chatService *chat.Service, authService *auth.Service, rateLimit gin.HandlerFunc) *Handler {
	return &Handler{
		chat:      chatService,
		auth:      authService,
		rateLimit: rateLimit,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())

	api := router.Group("/api")
	if h.rateLimit != nil {
		api.Use(h.rateLimit)
	}
	api.POST("/auth/signup", h.signUp)
	api.POST("/auth/signin", h.signIn)

	authMW := h.auth.Middleware()
	chatRoutes := api.Group("/chat", authMW)
	chatRoutes.POST("", h.handleChat)
	chatRoutes.POST("/conversation/:conversationId", h.handleChat)
	chatRoutes.GET("/conversation/:conversationId", h.loadConversation)
	chatRoutes.GET("/user/:userId", h.listConversations)

	api.PUT("/user/:userId", authMW, h.requirePathUser("userId"), h.updateLanguage)
}

// requirePathUser ensures the path user id matches the token user.
func (h *Handler) requirePathUser(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.UserIDFromContext(c)
		if !ok || userID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			return
		}
		paramID, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil || paramID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}
		if paramID != userID {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
			return
		}
		c.Next()
	}
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Language string `json:"language"`
}

func (h *Handler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	lang := req.Language
	if !models.ValidLanguage(lang) {
		lang = models.LanguageEnglish
	}

	user, token, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.Language)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("auth.missingCredentials", lang)})
		case errors.Is(err, auth.ErrInvalidLanguage):
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("errors.invalidLanguage", lang)})
		case errors.Is(err, auth.ErrUserExists):
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("auth.userExists", lang)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   i18n.T("errors.dbError", lang),
				"details": err.Error(),
			})
		}
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user, "token": token})
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, lang, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingCredentials):
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("auth.missingCredentials", lang)})
		case errors.Is(err, auth.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": i18n.T("auth.invalidCredentials", lang)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   i18n.T("errors.dbError", lang),
				"details": err.Error(),
			})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

type chatRequest struct {
	Message string `json:"message"`
	ModelID string `json:"modelId"`
}

func (h *Handler) handleChat(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	lang, err := h.auth.Language(c.Request.Context(), userID)
	if err != nil {
		lang = models.LanguageEnglish
	}

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("chat.missingMessage", lang)})
		return
	}

	var conversationID int64
	if raw := c.Param("conversationId"); raw != "" {
		conversationID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil || conversationID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("errors.missingConversationId", lang)})
			return
		}
	}

	convID, reply, err := h.chat.HandleChat(c.Request.Context(), userID, conversationID, req.Message, req.ModelID)
	if err != nil {
		if errors.Is(err, chat.ErrReplyGeneration) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": i18n.T("chat.aiError", lang)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   i18n.T("errors.dbError", lang),
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversationId": convID, "reply": reply})
}

func (h *Handler) loadConversation(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	lang, err := h.auth.Language(c.Request.Context(), userID)
	if err != nil {
		lang = models.LanguageEnglish
	}

	conversationID, err := strconv.ParseInt(c.Param("conversationId"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("errors.missingConversationId", lang)})
		return
	}

	view, err := h.chat.LoadConversation(c.Request.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, chat.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": i18n.T("errors.conversationNotFound", lang)})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   i18n.T("errors.dbError", lang),
			"details": err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversation": view})
}

func (h *Handler) listConversations(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	lang, err := h.auth.Language(c.Request.Context(), userID)
	if err != nil {
		lang = models.LanguageEnglish
	}

	targetID, err := strconv.ParseInt(c.Param("userId"), 10, 64)
	if err != nil || targetID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	if targetID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "user mismatch"})
		return
	}
	exists, err := h.auth.UserExists(c.Request.Context(), targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   i18n.T("errors.dbError", lang),
			"details": err.Error(),
		})
		return
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": i18n.T("chat.userNotFound", lang)})
		return
	}

	views, err := h.chat.ListConversations(c.Request.Context(), targetID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   i18n.T("errors.serverError", lang),
			"details": err.Error(),
		})
		return
	}
	if views == nil {
		views = make([]*chat.ConversationView, 0)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": views})
}

type updateLanguageRequest struct {
	Language string `json:"language"`
}

func (h *Handler) updateLanguage(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}

	var req updateLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	lang := req.Language
	if !models.ValidLanguage(lang) {
		lang = models.LanguageEnglish
	}

	if err := h.auth.UpdateLanguage(c.Request.Context(), userID, req.Language); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidLanguage):
			c.JSON(http.StatusBadRequest, gin.H{"error": i18n.T("errors.invalidLanguage", lang)})
		case errors.Is(err, auth.ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": i18n.T("chat.userNotFound", lang)})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   i18n.T("errors.dbError", lang),
				"details": err.Error(),
			})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": i18n.T("user.languageUpdated", req.Language)})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
