package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/projecthub/backend/internal/config"
	"github.com/zhouzirui/projecthub/backend/internal/handler"
	"github.com/zhouzirui/projecthub/backend/internal/logger"
	chatmodel "github.com/zhouzirui/projecthub/backend/internal/model/chat"
	filemodel "github.com/zhouzirui/projecthub/backend/internal/model/file"
	projectmodel "github.com/zhouzirui/projecthub/backend/internal/model/project"
	"github.com/zhouzirui/projecthub/backend/internal/model/reset"
	"github.com/zhouzirui/projecthub/backend/internal/model/user"
	authservice "github.com/zhouzirui/projecthub/backend/internal/service/auth"
	chatservice "github.com/zhouzirui/projecthub/backend/internal/service/chat"
	"github.com/zhouzirui/projecthub/backend/internal/service/mail"
	"github.com/zhouzirui/projecthub/backend/internal/store/mgo"
	redisstore "github.com/zhouzirui/projecthub/backend/internal/store/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		logger.Warnf("failed to load .env file: %v", err)
		logger.Infof("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("failed to load configuration: %v", err)
	}

	// Persistence: MongoDB when configured, in-memory otherwise.
	var (
		users    user.Store
		projects projectmodel.Store
		files    filemodel.Store
		messages chatmodel.MessageStore
		codes    reset.CodeStore
		requests reset.RequestStore
	)
	if cfg.Mongo.Enabled() {
		client, err := mgo.Dial(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			logger.Fatalf("failed to connect mongodb: %v", err)
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Close(closeCtx)
		}()
		users = client.Users()
		projects = client.Projects()
		files = client.Files()
		messages = client.Messages()
		codes = client.ResetCodes()
		requests = client.ResetRequests()
		logger.Infof("mongodb storage enabled, database %s", cfg.Mongo.Database)
	} else {
		users = user.NewMemoryStore()
		projects = projectmodel.NewMemoryStore()
		files = filemodel.NewMemoryStore()
		messages = chatmodel.NewMemoryStore()
		codes = reset.NewMemoryCodeStore()
		requests = reset.NewMemoryRequestStore()
		logger.Infof("MONGO_URI 未配置，使用内存存储")
	}

	// Reset codes move to Redis when configured so key TTLs enforce expiry.
	if cfg.Redis.Enabled() {
		codeStore, err := redisstore.Dial(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("failed to connect redis: %v", err)
		}
		defer codeStore.Close()
		codes = codeStore
		logger.Infof("redis reset code storage enabled at %s", cfg.Redis.Addr)
	}

	var mailer mail.Mailer = mail.NewLogMailer()
	if cfg.Mail.Enabled() {
		mailer = mail.NewSendGridMailer(cfg.Mail.SendGridKey, cfg.Mail.FromEmail)
		logger.Infof("sendgrid mailer enabled, from %s", cfg.Mail.FromEmail)
	} else {
		logger.Infof("SendGrid 凭证未配置，重置码仅记录日志")
	}

	authSvc := authservice.NewService(users, codes, requests, mailer, []byte(cfg.Auth.Secret), cfg.Auth.TokenTTL)

	room := chatservice.NewRoom(chatservice.NewRegistry(), messages, cfg.Chat.HistoryLimit)

	router := handler.NewRouter(authSvc, users, projects, files, requests, room)

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Infof("ProjectHub backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		logger.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
