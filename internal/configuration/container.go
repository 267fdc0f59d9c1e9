package configuration

import (
	"context"
	"fmt"
	"time"

	"github.com/mihirKIG/Service-Hub-Backend/internal/db"
	"github.com/mihirKIG/Service-Hub-Backend/internal/handler"
	"github.com/mihirKIG/Service-Hub-Backend/internal/hub"
	"github.com/mihirKIG/Service-Hub-Backend/internal/model"
	"github.com/mihirKIG/Service-Hub-Backend/internal/repo"
	"github.com/mihirKIG/Service-Hub-Backend/internal/service"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Container struct {
	ChatHandler    handler.ChatHandler
	MonitorHandler handler.MonitorHandler
	Hub            *hub.Hub
	Config         Config
	Logger         *zap.Logger

	// private - for cleanup
	mongoClient *mongo.Database
}

func BuildContainer(configPath string) (*Container, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	con, err := db.OpenConnection(config.ChatDatabase.Uri, config.ChatDatabase.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureChatIndexes(ctx, con, config.ChatDatabase.RoomsCollection, config.ChatDatabase.MessagesCollection); err != nil {
		return nil, fmt.Errorf("failed to ensure indexes: %w", err)
	}

	messageMongoRepo := db.NewRepository[model.Message](con, config.ChatDatabase.MessagesCollection)
	userMongoRepo := db.NewRepository[model.User](con, config.ChatDatabase.UsersCollection)

	roomRepo := repo.NewRoomRepository(con, config.ChatDatabase.RoomsCollection, logger)
	messageRepo := repo.NewMessageRepository(con, messageMongoRepo, logger)
	userRepo := repo.NewUserRepository(con, userMongoRepo)

	chatService := service.NewChatService(roomRepo, messageRepo, userRepo, logger)
	chatHandler := handler.NewChatHandler(chatService, logger)

	chatHub := hub.NewHub(roomRepo, messageRepo, userRepo, config.Server.AllowedOrigins, logger)
	monitorHandler := handler.NewMonitorHandler(hub.NewMonitorService(chatHub))

	return &Container{
		ChatHandler:    chatHandler,
		MonitorHandler: monitorHandler,
		Hub:            chatHub,
		Config:         *config,
		Logger:         logger,
		mongoClient:    con,
	}, nil
}

// Close gracefully shuts down all connections
func (c *Container) Close() error {
	// Stop the hub first (closes all WebSocket connections)
	if c.Hub != nil {
		c.Hub.Stop()
	}

	// Sync logger
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}

	// Close MongoDB connection pool
	if c.mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := c.mongoClient.Client().Disconnect(ctx); err != nil {
			return fmt.Errorf("failed to close MongoDB connection: %w", err)
		}
	}

	return nil
}
