package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	openaiprovider "github.com/adforge-ai/adgen-backend/internal/ai/openai"

	"github.com/adforge-ai/adgen-backend/config"
	"github.com/adforge-ai/adgen-backend/pkg/handler"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/service"

	database "github.com/adforge-ai/adgen-backend/pkg/db"
)

const gracefulShutdownTimeout = 15 * time.Second

func main() {
	if err := config.Init(config.ParseConfigFlag()); err != nil {
		log.Fatal(err.Error())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zapLogger, _ := logger.GetZapLogger(ctx)
	defer func() {
		// can't handle the error due to https://github.com/uber-go/zap/issues/880
		_ = zapLogger.Sync()
	}()

	db := database.GetSharedConnection()
	defer database.Close(db)
	repo := repository.NewRepository(db)

	redisClient := redis.NewClient(&config.Config.Cache.Redis.RedisOptions)
	defer redisClient.Close()
	analysisCache := repository.NewImageAnalysisCache(redisClient)

	vectorDB, err := repository.NewVectorDatabase(ctx, config.Config.Milvus.Host, config.Config.Milvus.Port)
	if err != nil {
		zapLogger.Fatal("failed to connect to vector database", zap.Error(err))
	}
	defer vectorDB.Close()
	if err := vectorDB.EnsureCollections(ctx); err != nil {
		zapLogger.Fatal("failed to ensure vector collections", zap.Error(err))
	}

	aiProvider, err := openaiprovider.NewProvider(ctx, config.Config.OpenAI.APIKey, config.Config.OpenAI.EmbeddingModel)
	if err != nil {
		zapLogger.Fatal("failed to initialize AI provider", zap.Error(err))
	}
	defer aiProvider.Close()

	pipelineCfg := config.Config.Pipeline
	svc := service.NewService(
		repo,
		service.NewLengthSelector(pipelineCfg.LengthRulesPath),
		service.NewImageAnalyzer(analysisCache, aiProvider, config.Config.OpenAI.VisionModel, config.Config.Cache.ImageAnalysisTTL),
		service.NewResearcher(repo, vectorDB, aiProvider,
			pipelineCfg.PracticeTopK, pipelineCfg.ExampleTopK,
			pipelineCfg.PracticeMinSimilarity, pipelineCfg.ExampleMinSimilarity),
		service.NewCreativeGenerator(aiProvider, config.Config.OpenAI.CreativeModel, pipelineCfg.ContextTokenBudget),
		service.NewAnalystScorer(aiProvider, config.Config.OpenAI.AnalystModel),
		service.OrchestratorConfig{
			CallTimeout: pipelineCfg.CallTimeout,
			Costs: service.UnitCosts{
				Vision:    pipelineCfg.Cost.Vision,
				Embedding: pipelineCfg.Cost.Embedding,
				Creative:  pipelineCfg.Cost.Creative,
				Analyst:   pipelineCfg.Cost.Analyst,
			},
		},
	)

	router := handler.SetupRouter(handler.NewAdHandler(svc), vectorDB, config.Config.Server.Debug)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", config.Config.Server.PublicPort),
		Handler: router,
	}

	go func() {
		zapLogger.Info("HTTP server listening", zap.Int("port", config.Config.Server.PublicPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, gracefulShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server shutdown failed", zap.Error(err))
	}
}
