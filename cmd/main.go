package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"viloai/internal/config"
	"viloai/internal/infrastructure"
	"viloai/internal/interfaces"
	api "viloai/internal/interfaces/http"
	"viloai/internal/repository"
	"viloai/internal/usecases"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// stores groups the persistence ports so Postgres and memory can be swapped.
type stores struct {
	users    interfaces.UserStore
	messages interfaces.MessageStore
	rules    interfaces.RuleStore
	facts    interfaces.BusinessRuleStore
	queue    interfaces.QueueStore
	logs     interfaces.ReplyLogStore
	usage    interfaces.UsageStore
}

func main() {
	configPath := flag.String("config", "", "path to config file (default: ./config.yaml if present)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load config:", err)
		os.Exit(1)
	}

	logger, err := infrastructure.NewLogger(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to create logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	var st stores
	if cfg.Database.UseInMemory {
		logger.Warn("Using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		st = stores{users: mem, messages: mem, rules: mem, facts: mem, queue: mem, logs: mem, usage: mem}
	} else {
		pgClient, err := infrastructure.NewPostgresClient(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pgClient.Close()
		logger.Info("Connected to PostgreSQL")

		st = stores{
			users:    repository.NewUserRepository(pgClient.Pool),
			messages: repository.NewMessageRepository(pgClient.Pool),
			rules:    repository.NewRuleRepository(pgClient.Pool),
			facts:    repository.NewConfigRepository(pgClient.Pool),
			queue:    repository.NewQueueRepository(pgClient.Pool),
			logs:     repository.NewReplyLogRepository(pgClient.Pool),
			usage:    repository.NewUsageRepository(pgClient.Pool),
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := infrastructure.NewPipelineMetrics(registry)

	// Classifier backend
	provider := newProvider(cfg, metrics, logger)

	// Instagram transport
	instagram := infrastructure.NewInstagramClient(cfg.Instagram.GraphBaseURL, cfg.Instagram.APIVersion, cfg.Instagram.FetchLimit, logger)
	messenger := infrastructure.NewThrottledMessenger(instagram, cfg.Instagram.SendRate, cfg.Instagram.SendBurst)

	// Optional owner notifications and live events
	var notifier interfaces.Notifier
	if cfg.Telegram.BotToken != "" {
		tg, err := infrastructure.NewTelegramNotifier(cfg.Telegram.BotToken, logger)
		if err != nil {
			logger.Warn("Telegram notifications disabled", zap.Error(err))
		} else {
			notifier = tg
		}
	} else {
		logger.Info("Telegram notifications disabled (token missing)")
	}

	var events interfaces.EventPublisher
	if cfg.Redis.Addr != "" {
		pub, err := infrastructure.NewRedisEventPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.ChannelPrefix)
		if err != nil {
			logger.Warn("Live events disabled", zap.Error(err))
		} else {
			defer pub.Close()
			events = pub
		}
	}

	// Usecases
	sessions := infrastructure.NewSessionManager()
	usage := usecases.NewUsageService(st.usage)
	classifier := usecases.NewIntentClassifier(provider, st.messages, metrics, logger).
		WithContextWindow(cfg.Pipeline.ContextWindow, cfg.Pipeline.ContextMaxTurns)
	sender := usecases.NewReplySender(messenger, st.logs, events, metrics, logger)

	pipeline := usecases.NewReplyPipeline(usecases.PipelineDeps{
		Users:      st.users,
		Messages:   st.messages,
		Rules:      st.rules,
		Facts:      st.facts,
		Queue:      st.queue,
		Usage:      usage,
		Classifier: classifier,
		Relevance:  usecases.NewRelevanceFilter(provider, metrics, logger),
		Sender:     sender,
		Notifier:   notifier,
		Events:     events,
		Metrics:    metrics,
		Logger:     logger,
	})
	syncService := usecases.NewSyncService(pipeline, instagram, st.users, sessions, logger)
	approvals := usecases.NewApprovalQueue(st.queue, st.messages, st.users, sender, sessions, logger)
	dashboard := usecases.NewDashboardUsecase(st.users, st.messages, st.rules, st.facts, st.queue, st.logs, usage, sender)
	auth := usecases.NewAuthUsecase(st.users, cfg.Server.JWTSecret, cfg.Pipeline.DefaultMonthlyLimit)

	if cfg.Admin.Password != "" {
		if err := auth.EnsureAdmin(ctx, cfg.Admin.Username, cfg.Admin.Password); err != nil {
			logger.Warn("Failed to ensure admin user", zap.Error(err))
		}
	}

	// HTTP server
	if cfg.Log.Mode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), api.RequestLogger(logger))

	middleware := api.NewMiddleware(cfg.Server.JWTSecret, strings.Split(cfg.Server.AllowedOrigins, ","), rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	handler := api.NewHandler(auth, pipeline, syncService, approvals, dashboard, logger)
	webhook := api.NewWebhookHandler(syncService, cfg.Instagram.VerifyToken, cfg.Instagram.AppSecret, logger)
	if cfg.Instagram.AppSecret == "" {
		logger.Warn("instagram.app_secret not set; webhook signatures are not verified")
	}
	api.SetupRoutes(r, handler, webhook, middleware, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			zap.String("addr", cfg.Server.Addr),
			zap.String("ai_provider", cfg.AI.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newProvider(cfg *config.Config, metrics *infrastructure.PipelineMetrics, logger *zap.Logger) interfaces.ClassifierProvider {
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		return usecases.NewPromptProvider(infrastructure.NewOpenAIClient(
			cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.OpenAI.MaxTokens, cfg.OpenAI.Temperature, metrics, logger))
	case config.ProviderAnthropic:
		return usecases.NewPromptProvider(infrastructure.NewAnthropicClient(
			cfg.Anthropic.APIKey, cfg.Anthropic.BaseURL, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, cfg.AI.Timeout, metrics, logger))
	default:
		logger.Info("Using keyword classifier")
		return usecases.NewKeywordProvider()
	}
}
