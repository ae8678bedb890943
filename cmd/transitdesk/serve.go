package main

import (
	"fmt"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/transitdesk/transitdesk/internal/agents"
	"github.com/transitdesk/transitdesk/internal/api"
	"github.com/transitdesk/transitdesk/internal/auth"
	"github.com/transitdesk/transitdesk/internal/chat"
	"github.com/transitdesk/transitdesk/internal/config"
	"github.com/transitdesk/transitdesk/internal/database"
	"github.com/transitdesk/transitdesk/internal/realtime"
	"github.com/transitdesk/transitdesk/internal/registry"
	"github.com/transitdesk/transitdesk/internal/repository"
	"github.com/transitdesk/transitdesk/internal/runner"
	"github.com/transitdesk/transitdesk/internal/runner/tasks"
)

func serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			return serve(cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func serve(cfg *config.Config) error {
	logger := log.New(log.Writer(), "[SERVER] ", log.LstdFlags)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.EnsureSchema(db); err != nil {
		return err
	}

	agentRepo := repository.NewAgentRepository(db)
	chatRepo := repository.NewChatRepository(db)

	reg := registry.New()
	hub := realtime.NewHub(nil)
	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	agentSvc := agents.NewService(agentRepo, reg, jwtManager, cfg.Chat.DefaultMaxSessions)
	chatSvc := chat.NewService(agentRepo, chatRepo, reg, hub)

	if err := agentSvc.LoadRegistry(chatRepo); err != nil {
		return fmt.Errorf("failed to seed agent registry: %w", err)
	}

	r := runner.New()
	if err := r.Register(tasks.NewChatCleanupTask(chatSvc, cfg.Chat.IdleTimeout, cfg.Runner.CleanupInterval)); err != nil {
		return err
	}
	r.Start()
	defer r.Stop()

	engine := gin.Default()
	a := api.New(chatSvc, agentSvc, hub, jwtManager, cfg.Server.AllowedOrigins)
	a.RegisterRoutes(engine, cfg.Server.RateLimit)

	logger.Printf("listening on %s (db driver %s)", cfg.Server.Addr, cfg.Database.Driver)
	return engine.Run(cfg.Server.Addr)
}
