package chat

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
	r.POST("/channels", h.CreateChannel)
	r.GET("/channels", h.ListChannels)
	r.POST("/channels/:id/threads", h.CreateThread)
	r.GET("/channels/:id/threads", h.ListThreads)
	r.POST("/threads/:id/messages", h.PostMessage)
	r.GET("/threads/:id/messages", h.ListMessages)
	r.POST("/threads/:id/read", h.MarkThreadRead)
	r.GET("/threads/:id/read", h.ReadCursor)
	r.PATCH("/messages/:id", h.EditMessage)
	r.DELETE("/messages/:id", h.DeleteMessage)
	r.POST("/messages/:id/toggle", h.ToggleMessageChecklist)
	r.POST("/messages/:id/replies", h.PostReply)
	r.GET("/messages/:id/replies", h.ListReplies)
	r.PATCH("/replies/:id", h.EditReply)
	r.DELETE("/replies/:id", h.DeleteReply)
	r.POST("/replies/:id/toggle", h.ToggleReplyChecklist)
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

func (h *Handler) CreateChannel(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	ch, th, err := h.svc.CreateChannel(c.Request.Context(), caller(c), req.Name)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"channel": ch, "thread": th})
}

func (h *Handler) ListChannels(c *gin.Context) {
	out, err := h.svc.ListChannels(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": out})
}

func (h *Handler) CreateThread(c *gin.Context) {
	channelID, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	th, err := h.svc.CreateThread(c.Request.Context(), caller(c), channelID, req.Title)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"thread": th})
}

func (h *Handler) ListThreads(c *gin.Context) {
	channelID, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.svc.ListThreads(c.Request.Context(), channelID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": out})
}

type postContentReq struct {
	Content    string `json:"content"`
	CreateTask bool   `json:"create_task"`
}

func (h *Handler) PostMessage(c *gin.Context) {
	threadID, ok := pathID(c)
	if !ok {
		return
	}
	var req postContentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	mv, err := h.svc.PostMessage(c.Request.Context(), caller(c), threadID, req.Content, req.CreateTask)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": mv})
}

func (h *Handler) ListMessages(c *gin.Context) {
	threadID, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.svc.ListMessages(c.Request.Context(), threadID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": out})
}

func (h *Handler) EditMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	mv, err := h.svc.EditMessage(c.Request.Context(), caller(c), id, req.Content)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": mv})
}

func (h *Handler) DeleteMessage(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), caller(c), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type toggleReq struct {
	Ordinal *int `json:"ordinal" binding:"required"`
	Checked bool `json:"checked"`
}

func (h *Handler) ToggleMessageChecklist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("ordinal is required"))
		return
	}
	mv, err := h.svc.ToggleMessageChecklist(c.Request.Context(), caller(c), id, *req.Ordinal, req.Checked)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": mv})
}

func (h *Handler) PostReply(c *gin.Context) {
	messageID, ok := pathID(c)
	if !ok {
		return
	}
	var req postContentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	rv, err := h.svc.PostReply(c.Request.Context(), caller(c), messageID, req.Content, req.CreateTask)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"reply": rv})
}

func (h *Handler) ListReplies(c *gin.Context) {
	messageID, ok := pathID(c)
	if !ok {
		return
	}
	out, err := h.svc.ListReplies(c.Request.Context(), messageID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replies": out})
}

func (h *Handler) EditReply(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	rv, err := h.svc.EditReply(c.Request.Context(), caller(c), id, req.Content)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": rv})
}

func (h *Handler) DeleteReply(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteReply(c.Request.Context(), caller(c), id); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) ToggleReplyChecklist(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req toggleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("ordinal is required"))
		return
	}
	rv, err := h.svc.ToggleReplyChecklist(c.Request.Context(), caller(c), id, *req.Ordinal, req.Checked)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": rv})
}

func (h *Handler) ReadCursor(c *gin.Context) {
	threadID, ok := pathID(c)
	if !ok {
		return
	}
	rc, err := h.svc.ReadCursor(c.Request.Context(), caller(c), threadID)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cursor": rc})
}

func (h *Handler) MarkThreadRead(c *gin.Context) {
	threadID, ok := pathID(c)
	if !ok {
		return
	}
	var req struct {
		LastMessageID int64 `json:"last_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, errs.Validation("invalid request body"))
		return
	}
	if err := h.svc.MarkThreadRead(c.Request.Context(), caller(c), threadID, req.LastMessageID); err != nil {
		middleware.Fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
