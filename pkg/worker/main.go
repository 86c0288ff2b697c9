package worker

import (
	"go.uber.org/zap"

	"github.com/adforge-ai/adgen-backend/internal/ai"
	"github.com/adforge-ai/adgen-backend/pkg/repository"
)

// Config defines the configuration for the worker
type Config struct {
	Repository repository.Repository
	VectorDB   repository.VectorDatabase
	AIProvider ai.Provider
}

// Worker implements the Temporal worker with all workflows and activities
type Worker struct {
	repository repository.Repository
	vectorDB   repository.VectorDatabase
	aiProvider ai.Provider
	log        *zap.Logger
}

// New creates a new worker instance
func New(config Config, log *zap.Logger) (*Worker, error) {
	w := &Worker{
		repository: config.Repository,
		vectorDB:   config.VectorDB,
		aiProvider: config.AIProvider,
		log:        log,
	}
	return w, nil
}
