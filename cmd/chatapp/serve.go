package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/225715H/chat-app/config"
	"github.com/225715H/chat-app/logger"
	"github.com/225715H/chat-app/server"
	"github.com/225715H/chat-app/service/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP and websocket server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger.Init(cfg.Log.Level)

		ctx := context.Background()
		db, err := storage.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := storage.Migrate(ctx, db); err != nil {
			return err
		}
		return server.New(cfg, db).Run()
	},
}
