package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"transcode-pipeline/internal/config"
	"transcode-pipeline/internal/consumer"
	"transcode-pipeline/internal/monitor"
	"transcode-pipeline/internal/queue"
	"transcode-pipeline/internal/registry"
	"transcode-pipeline/internal/scheduler"
	"transcode-pipeline/internal/server"
	"transcode-pipeline/internal/transcoder"
)

func main() {
	// 1. Load Configuration
	// It looks for config.yml in the root directory.
	cfg, err := config.LoadConfig("config.yml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting transcoding pipeline (queue=%s, capacity=%d)", cfg.QueueName, cfg.MaxQueueCapacity)

	// 2. Initialize the Encoder Engine
	// This performs the ffmpeg path lookup and hardware probing.
	engine, err := transcoder.NewEngine(cfg.FFmpegPath)
	if err != nil {
		log.Fatalf("Failed to initialize encoder engine: %v", err)
	}
	log.Printf("Encoder ready: %s (hw_accel=%v)", engine.Codec(), engine.HasHWAccel)

	// 3. Connect the Queue Transport
	// Both the scheduler and the consumer fail fast until this succeeds,
	// so an unreachable broker is fatal at startup.
	transport := queue.NewTransport()
	if err := transport.Connect(cfg.QueueURL, cfg.QueueName); err != nil {
		log.Fatalf("Failed to connect queue transport: %v", err)
	}
	defer transport.Close()

	// 4. Wire up the pipeline
	reg := registry.NewClient(cfg)
	mon := monitor.New()
	orch := transcoder.NewOrchestrator(engine, reg, cfg.OutputDir)
	sched := scheduler.New(cfg, transport, reg, mon)
	cons := consumer.New(orch)

	// 5. Setup Context for Graceful Shutdown
	// We catch SIGINT (Ctrl+C) and SIGTERM (OS shutdown).
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	// 6. Start the Scheduler loop
	sched.Start(ctx)

	// 7. Start consuming jobs (prefetch=1, one job in flight at a time)
	go func() {
		err := transport.Consume(ctx, cfg.QueueName, func(d queue.Delivery) {
			cons.Handle(ctx, d)
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("Consumer stopped: %v", err)
		}
	}()

	// 8. Ops endpoint for health and status
	ops := server.NewOpsServer(cfg.OpsPort, transport, mon, cfg.QueueName, engine.Codec())
	go ops.Start()

	log.Println("Pipeline is online.")

	// 9. Block until shutdown signal
	<-stop
	log.Println("Shutting down pipeline...")
	cancel()
}
