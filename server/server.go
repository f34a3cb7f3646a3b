// Package server assembles the application: storage, domain services, the
// event hub, and the gin router.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/225715H/chat-app/config"
	"github.com/225715H/chat-app/logger"
	"github.com/225715H/chat-app/middleware"
	"github.com/225715H/chat-app/module/chat"
	"github.com/225715H/chat-app/module/task"
	"github.com/225715H/chat-app/module/user"
	"github.com/225715H/chat-app/service/stream"
)

type Server struct {
	engine *gin.Engine
	addr   string
}

func New(cfg *config.Config, db *sqlx.DB) *Server {
	hub := stream.NewHub(cfg.Stream.SendQueueSize)

	userRepo := user.NewRepo(db)
	userSvc := user.NewService(userRepo, user.BcryptHasher{}, cfg.Session.TTL)

	chatRepo := chat.NewRepo(db)
	taskRepo := task.NewRepo(db)
	taskSvc := task.NewService(taskRepo, chatRepo, userSvc, hub,
		cfg.Task.Retention, cfg.Task.ListLimit, cfg.Task.BotTemplate)
	chatSvc := chat.NewService(chatRepo, taskSvc, hub)

	wsHandler := stream.NewWSHandler(hub, cfg.Stream)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLog())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	api := r.Group("/api")
	userHandler := user.NewHandler(userSvc)
	userHandler.Register(api)

	authed := api.Group("", middleware.Auth(userSvc))
	userHandler.RegisterAuthed(authed)
	chat.NewHandler(chatSvc).Register(authed)
	task.NewHandler(taskSvc).Register(authed)
	authed.GET("/events", wsHandler.Handle)

	return &Server{engine: r, addr: cfg.Server.Addr}
}

func (s *Server) Run() error {
	logger.Infof("listening on %s", s.addr)
	return s.engine.Run(s.addr)
}
