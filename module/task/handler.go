package task

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/225715H/chat-app/middleware"
	"github.com/225715H/chat-app/module/user"
	"github.com/225715H/chat-app/tools/errs"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(r gin.IRoutes) {
	r.POST("/tasks", h.Create)
	r.GET("/tasks", h.List)
	r.GET("/tasks/:id", h.Get)
	r.PATCH("/tasks/:id", h.Update)
	r.DELETE("/tasks/:id", h.Delete)
	r.POST("/tasks/:id/toggle", h.ToggleChecklist)
}

func caller(c *gin.Context) user.Identity {
	return user.Identity{ID: middleware.CallerID(c), Name: middleware.CallerName(c)}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.Fail(c, errs.Validation("invalid id"))
		return 0, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	var req struct {
		ThreadID int64  `json:"thread_id"`
		Title    string `json:"title"`
		Note     string `json:"note"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	t, err := h.svc.CreateFromBoard(c.Request.Context(), caller(c), req.ThreadID, req.Title, req.Note)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": t})
}

func (h *Handler) List(c *gin.Context) {
	var f Filter
	if raw := c.Query("status"); raw != "" {
		st := Status(raw)
		f.Status = &st
	}
	if raw := c.Query("channel_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.Fail(c, errs.Validation("invalid channel_id"))
			return
		}
		f.ChannelID = &id
	}
	if raw := c.Query("thread_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			middleware.Fail(c, errs.Validation("invalid thread_id"))
			return
		}
		f.ThreadID = &id
	}
	out, err := h.svc.List(c.Request.Context(), f)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	t, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Title  *string `json:"title"`
		Note   *string `json:"note"`
		Status *Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	t, err := h.svc.Update(c.Request.Context(), caller(c), id, Patch{
		Title:  req.Title,
		Note:   req.Note,
		Status: req.Status,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), caller(c), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) ToggleChecklist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Ordinal *int `json:"ordinal" binding:"required"`
		Checked bool `json:"checked"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("ordinal is required"))
		return
	}
	t, err := h.svc.ToggleNoteChecklist(c.Request.Context(), caller(c), id, *req.Ordinal, req.Checked)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": t})
}
