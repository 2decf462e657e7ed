package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/sentinel/audit"
	"github.com/dev-mohitbeniwal/sentinel/config"
	"github.com/dev-mohitbeniwal/sentinel/controller"
	"github.com/dev-mohitbeniwal/sentinel/dao"
	"github.com/dev-mohitbeniwal/sentinel/db"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/metrics"
	"github.com/dev-mohitbeniwal/sentinel/model"
	"github.com/dev-mohitbeniwal/sentinel/pdp/cache"
	"github.com/dev-mohitbeniwal/sentinel/pdp/engine"
	"github.com/dev-mohitbeniwal/sentinel/pdp/verifier"
	"github.com/dev-mohitbeniwal/sentinel/router"
	"github.com/dev-mohitbeniwal/sentinel/service"
	"github.com/dev-mohitbeniwal/sentinel/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}
	cfg := config.GetConfig()
	engineCfg := config.GetEngineConfig()

	// Initialize logger
	logger.InitLogger(cfg.Log.Dir)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := metrics.NewRegistry()
	m := metrics.New(registry)

	// Initialize EventBus
	eventBus := util.NewEventBus()
	eventBus.Start(ctx)
	util.NewNotificationService().Register(eventBus)

	// Audit sink
	var auditRepository audit.Repository = audit.NewMemoryRepository()
	if cfg.Elasticsearch.Enabled {
		esRepository, err := audit.NewElasticsearchRepository(cfg.Elasticsearch.URL, cfg.Elasticsearch.Index)
		if err != nil {
			logger.Fatal("Failed to initialize Elasticsearch audit repository", zap.Error(err))
		}
		auditRepository = esRepository
	}
	auditService := audit.NewService(auditRepository, engineCfg.AuditQueueSize, m)
	auditService.Start()

	// Policy store, optionally backed by Neo4j
	var policyRepository service.PolicyRepository
	if cfg.Neo4j.Enabled {
		if err := db.InitNeo4j(); err != nil {
			logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
		}
		policyDAO, err := dao.NewPolicyDAO(db.Neo4jDriver, auditService)
		if err != nil {
			logger.Fatal("Failed to initialize policy DAO", zap.Error(err))
		}
		policyRepository = policyDAO
	}
	policyService := service.NewPolicyService(policyRepository, eventBus)
	if n, err := policyService.Restore(ctx); err != nil {
		logger.Fatal("Failed to restore policies", zap.Error(err))
	} else if n > 0 {
		logger.Info("Restored policies from repository", zap.Int("count", n))
	}
	if engineCfg.PolicyFile != "" {
		if err := loadPolicyFile(ctx, policyService, engineCfg.PolicyFile); err != nil {
			logger.Fatal("Failed to load policy file", zap.Error(err), zap.String("path", engineCfg.PolicyFile))
		}
	}

	// Trust cache, optionally snapshotted to Redis
	trustCache := cache.NewTrustCache()
	verifierOpts := []verifier.Option{verifier.WithMetrics(m)}
	if cfg.Redis.Enabled {
		if err := db.InitRedis(); err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		trustStore := db.NewTrustStore(db.RedisClient)
		if entries, err := trustStore.LoadSnapshot(ctx); err != nil {
			logger.Warn("Failed to load trust snapshot", zap.Error(err))
		} else {
			logger.Info("Trust cache restored", zap.Int("entries", trustCache.Restore(entries)))
		}
		verifierOpts = append(verifierOpts, verifier.WithSnapshotStore(trustStore))
	}

	decisionEngine := engine.NewDecisionEngine(policyService, trustCache, engineCfg,
		engine.WithMetrics(m),
		engine.WithAuditSink(auditService),
		engine.WithEvents(eventBus),
	)
	continuousVerifier := verifier.NewContinuousVerifier(decisionEngine.Sessions(), trustCache, eventBus, engineCfg, verifierOpts...)
	continuousVerifier.Start(ctx)

	// Initialize controllers
	services := &service.Services{Policy: policyService, Access: decisionEngine, Audit: auditService}
	controllers := controller.InitializeControllers(services)

	rateLimitWindow, err := time.ParseDuration(cfg.Server.RateLimitWindow)
	if err != nil {
		rateLimitWindow = time.Minute
	}
	limits := cfg.Server
	if !cfg.Redis.Enabled {
		limits.RateLimitRequests = 0
		limits.DecisionRateLimitRequests = 0
		limits.AdminRateLimitRequests = 0
	}

	gin.SetMode(gin.ReleaseMode)
	handler := router.SetupRouter(controllers, router.Options{
		RateLimitRequests:         limits.RateLimitRequests,
		DecisionRateLimitRequests: limits.DecisionRateLimitRequests,
		AdminRateLimitRequests:    limits.AdminRateLimitRequests,
		RateLimitWindow:           rateLimitWindow,
		JWTSecret:                 []byte(cfg.Auth.JWTSecret),
		AdminGroup:                cfg.Auth.AdminGroup,
		Metrics:                   metrics.Handler(registry),
	})

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: handler,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	continuousVerifier.Stop()
	if err := auditService.Close(shutdownCtx); err != nil {
		logger.Error("Audit queue not fully drained", zap.Error(err))
	}
	cancel()
	eventBus.Close()
	db.CloseRedis()
	db.CloseNeo4j()

	logger.Info("Server exiting")
}

func loadPolicyFile(ctx context.Context, policyService *service.PolicyService, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	policies, err := model.ReadPolicies(f)
	if err != nil {
		return err
	}

	// Policies restored from the repository win over the file copy.
	fresh := policies[:0]
	for _, p := range policies {
		if p.ID != "" {
			if _, err := policyService.GetPolicy(ctx, p.ID); err == nil {
				logger.Debug("Policy already restored, skipping file entry", zap.String("policyID", p.ID))
				continue
			}
		}
		fresh = append(fresh, p)
	}

	n, err := policyService.LoadPolicies(ctx, fresh)
	if err != nil {
		return err
	}
	logger.Info("Loaded policy file", zap.String("path", path), zap.Int("count", n))
	return nil
}
