package main

import (
	"github.com/rs/zerolog/log"

	"github.com/lox/tiersolve"
	"github.com/lox/tiersolve/sdk/gameapi"
)

func loadConfig(configFile, sandbox string, memoryLimit, chunkSize int64, workers int) (tiersolve.Config, error) {
	if configFile != "" {
		return tiersolve.LoadRunConfig(configFile, sandbox)
	}

	cfg := tiersolve.DefaultConfig(sandbox)
	if memoryLimit > 0 {
		cfg.MemoryLimit = memoryLimit
	}
	if chunkSize > 0 {
		cfg.DBChunkSize = chunkSize
	}
	if workers > 0 {
		cfg.WorkerCount = workers
	}
	return cfg, cfg.Validate()
}

func newEngine(game gameapi.Game, cfg tiersolve.Config) (*tiersolve.Engine, error) {
	return tiersolve.NewEngine(game, cfg, log.Logger)
}
