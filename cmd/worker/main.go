package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	temporalclient "go.temporal.io/sdk/client"
	temporalworker "go.temporal.io/sdk/worker"

	openaiprovider "github.com/adforge-ai/adgen-backend/internal/ai/openai"

	"github.com/adforge-ai/adgen-backend/config"
	"github.com/adforge-ai/adgen-backend/pkg/logger"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
	"github.com/adforge-ai/adgen-backend/pkg/worker"

	database "github.com/adforge-ai/adgen-backend/pkg/db"
)

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

	tc, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  config.Config.Temporal.HostPort,
		Namespace: config.Config.Temporal.Namespace,
	})
	if err != nil {
		zapLogger.Fatal("failed to connect to temporal", zap.Error(err))
	}
	defer tc.Close()

	w, err := worker.New(worker.Config{
		Repository: repo,
		VectorDB:   vectorDB,
		AIProvider: aiProvider,
	}, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to create worker", zap.Error(err))
	}

	taskQueue := config.Config.Temporal.TaskQueue
	if taskQueue == "" {
		taskQueue = worker.TaskQueue
	}

	tw := temporalworker.New(tc, taskQueue, temporalworker.Options{})
	tw.RegisterWorkflow(w.KnowledgeBackfillWorkflow)
	tw.RegisterActivity(w.ListMissingKnowledgeActivity)
	tw.RegisterActivity(w.EmbedKnowledgeItemActivity)

	if err := tw.Start(); err != nil {
		zapLogger.Fatal("failed to start temporal worker", zap.Error(err))
	}
	zapLogger.Info("temporal worker started", zap.String("taskQueue", taskQueue))

	// Kick off one backfill run over the current backlog. The fixed workflow
	// ID makes this a no-op when a run is already in flight.
	pipelineCfg := config.Config.Pipeline
	run, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        worker.BackfillWorkflowID,
		TaskQueue: taskQueue,
	}, w.KnowledgeBackfillWorkflow, worker.KnowledgeBackfillWorkflowParam{
		BatchSize: pipelineCfg.BackfillBatchSize,
		ItemDelay: pipelineCfg.BackfillDelay,
	})
	if err != nil {
		zapLogger.Error("failed to start knowledge backfill", zap.Error(err))
	} else {
		zapLogger.Info("knowledge backfill started",
			zap.String("workflowID", run.GetID()),
			zap.Int("batchSize", pipelineCfg.BackfillBatchSize),
			zap.Duration("itemDelay", pipelineCfg.BackfillDelay))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("shutting down")
	tw.Stop()
}
