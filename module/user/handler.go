package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/225715H/chat-app/middleware"
	"github.com/225715H/chat-app/tools/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
}

// RegisterAuthed mounts the routes that require a live session.
func (h *Handler) RegisterAuthed(r gin.IRoutes) {
	r.POST("/logout", h.Logout)
	r.GET("/me", h.Me)
}

type credentialsReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Signup(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	res, err := h.svc.Signup(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *Handler) Login(c *gin.Context) {
	var req credentialsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middleware.Token(c)); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, Identity{ID: middleware.CallerID(c), Name: middleware.CallerName(c)})
}
