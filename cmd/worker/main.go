package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"time"

	"github.com/hibiken/asynq"

	"github.com/reelworks/mediagen/internal/client"
	"github.com/reelworks/mediagen/internal/config"
	"github.com/reelworks/mediagen/internal/dispatch"
	"github.com/reelworks/mediagen/internal/model"
	"github.com/reelworks/mediagen/internal/retry"
	"github.com/reelworks/mediagen/internal/worker"
)

// The worker binary runs in two modes:
//
//	mediagen-worker        consume tasks from the Redis queues
//	mediagen-worker task   run a single task fed as JSON on stdin,
//	                       used by the local dispatch backend
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Object storage (falls back to in-process storage when unconfigured)
	var storage client.StorageClient
	if cfg.Storage.AccessKeyID != "" && cfg.Storage.SecretAccessKey != "" {
		s3Client, err := client.NewS3Client(&cfg.Storage)
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %v", err)
		}
		storage = s3Client
	} else {
		log.Println("Info: object storage not configured, using in-process storage")
		storage = client.NewMemoryStorage()
	}

	keyart := client.NewKeyartClient(&cfg.Keyart)

	retryCfg := retry.Config{
		MaxRetries: cfg.Retry.MaxRetries,
		BaseDelay:  time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:   time.Duration(cfg.Retry.MaxDelayMS) * time.Millisecond,
		JitterMax:  time.Duration(cfg.Retry.JitterMaxMS) * time.Millisecond,
	}

	mediaWorker := worker.NewMediaWorker(storage, keyart, retryCfg)

	if len(os.Args) > 1 && os.Args[1] == "task" {
		runSingleTask(mediaWorker)
		return
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 4,
			Queues: map[string]int{
				string(model.KindTrailer):       3,
				string(model.KindClipExtractor): 2,
				string(model.KindVideoQc):       1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(dispatch.TaskTypeTrailer, mediaWorker.ProcessTask)
	mux.HandleFunc(dispatch.TaskTypeClipExtractor, mediaWorker.ProcessTask)
	mux.HandleFunc(dispatch.TaskTypeVideoQc, mediaWorker.ProcessTask)

	log.Println("Worker starting, consuming task queues")
	if err := srv.Run(mux); err != nil {
		log.Fatalf("Worker error: %v", err)
	}
}

func runSingleTask(w *worker.MediaWorker) {
	var msg dispatch.TaskMessage
	if err := json.NewDecoder(os.Stdin).Decode(&msg); err != nil {
		log.Fatalf("Failed to decode task message from stdin: %v", err)
	}
	if err := w.Run(context.Background(), &msg); err != nil {
		log.Fatalf("Task failed: %v", err)
	}
}
