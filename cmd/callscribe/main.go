package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/skillsenselab/callscribe/config"
	"github.com/skillsenselab/callscribe/diarization"
	"github.com/skillsenselab/callscribe/diarization/pyannote"
	"github.com/skillsenselab/callscribe/llm"
	"github.com/skillsenselab/callscribe/llm/groq"
	"github.com/skillsenselab/callscribe/llm/ollama"
	"github.com/skillsenselab/callscribe/llm/vllm"
	"github.com/skillsenselab/callscribe/logger"
	"github.com/skillsenselab/callscribe/observability"
	"github.com/skillsenselab/callscribe/pipeline"
	"github.com/skillsenselab/callscribe/server"
	"github.com/skillsenselab/callscribe/sse"
	"github.com/skillsenselab/callscribe/streaming"
	"github.com/skillsenselab/callscribe/transcode"
	"github.com/skillsenselab/callscribe/transcription"
	"github.com/skillsenselab/callscribe/transcription/whisper"
	"github.com/skillsenselab/callscribe/version"
)

const batchTimeout = 2 * time.Hour

func main() {
	var (
		configFile string
		envFile    string
		inPath     string
		outPath    string
		serve      bool
		language   string
	)
	flag.StringVar(&configFile, "config", "", "Config file path (default: search standard locations)")
	flag.StringVar(&envFile, "env", "", ".env file path (default: search standard locations)")
	flag.StringVar(&inPath, "input", "", "Audio file to process in batch mode (-i)")
	flag.StringVar(&inPath, "i", "", "Audio file to process in batch mode")
	flag.StringVar(&outPath, "output", "", "Result JSON path (-o, default: input name with .json)")
	flag.StringVar(&outPath, "o", "", "Result JSON path")
	flag.BoolVar(&serve, "serve", false, "Run the HTTP and websocket server")
	flag.StringVar(&language, "language", "", "Force the transcription language instead of auto-detecting")
	flag.Parse()

	if inPath == "" && !serve {
		fmt.Fprintln(os.Stderr, "nothing to do: pass -i <audio> for batch mode or -serve for the server")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(config.WithConfigFile(configFile), config.WithEnvFile(envFile))
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if language != "" {
		cfg.Pipeline.Language = language
		cfg.Streaming.Language = language
	}
	if cfg.Version == "" {
		cfg.Version = version.Short()
	}

	log := logger.New(&cfg.Logging, cfg.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	meterProvider := observability.InitMeterProvider()
	defer func() { _ = meterProvider.Shutdown(context.Background()) }()
	metrics, err := observability.NewMetrics()
	if err != nil {
		log.Warn("metrics disabled", logger.Fields(logger.FieldError, err.Error()))
	}

	asr, err := buildASR(cfg)
	if err != nil {
		log.Error("ASR setup failed", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}
	client, err := buildLLM(cfg, log)
	if err != nil {
		log.Error("LLM setup failed", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}
	diarizer, err := buildDiarizer(cfg)
	if err != nil {
		log.Error("diarization setup failed", logger.Fields(logger.FieldError, err.Error()))
		os.Exit(1)
	}

	hub := sse.NewHub(log)
	go hub.Run()
	defer hub.Stop()

	orch := pipeline.NewOrchestrator(ctx, pipeline.Options{
		Config:     cfg.Pipeline,
		Transcoder: transcode.New(log),
		ASR:        asr,
		LLM:        client,
		Diarizer:   diarizer,
		Observer:   publishProgress(hub),
		Metrics:    metrics,
		Logger:     log,
	})

	if inPath != "" {
		os.Exit(runBatch(ctx, orch, log, inPath, outPath))
	}
	os.Exit(runServer(ctx, cfg, orch, asr, client, diarizer, hub, metrics, log))
}

// runBatch processes a single file and reports the outcome on stderr.
func runBatch(ctx context.Context, orch *pipeline.Orchestrator, log *logger.Logger, inPath, outPath string) int {
	if outPath == "" {
		base := strings.TrimSuffix(filepath.Base(inPath), filepath.Ext(inPath))
		outPath = base + ".json"
	}

	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	job := orch.Submit(inPath, outPath)
	result := orch.Process(ctx, job.ID)
	if result.Error != "" {
		log.Error("processing failed", logger.Fields(
			logger.FieldJobID, job.ID,
			logger.FieldError, result.Error,
		))
		return 1
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", outPath)
	return 0
}

// runServer starts the HTTP surface and blocks until a shutdown signal.
func runServer(ctx context.Context, cfg *config.AppConfig, orch *pipeline.Orchestrator,
	asr transcription.Provider, client *llm.Client, diarizer diarization.Provider,
	hub *sse.Hub, metrics *observability.Metrics, log *logger.Logger) int {

	streams := streaming.NewManager(cfg.Streaming, asr, client, metrics, log)

	probes := []server.Probe{
		{Name: "asr", Check: asr.IsAvailable},
		{Name: "llm", Check: client.IsAvailable},
	}
	if diarizer != nil {
		probes = append(probes, server.Probe{Name: "diarization", Check: diarizer.IsAvailable})
	}

	srv := server.New(cfg.Server, log)
	server.NewHandlers(orch, streams, hub, probes, cfg.Server, cfg.Version, log).Register(srv.GinEngine())

	if err := srv.Start(ctx); err != nil {
		log.Error("server start failed", logger.Fields(logger.FieldError, err.Error()))
		return 1
	}

	<-ctx.Done()
	if err := srv.Stop(context.Background()); err != nil {
		log.Error("server stop failed", logger.Fields(logger.FieldError, err.Error()))
		return 1
	}
	return 0
}

// publishProgress forwards stage transitions to the event hub.
func publishProgress(hub *sse.Hub) pipeline.ProgressFunc {
	return func(jobID string, status pipeline.JobStatus, progress int) {
		payload, err := json.Marshal(map[string]any{
			"job_id":   jobID,
			"status":   status,
			"progress": progress,
		})
		if err != nil {
			return
		}
		hub.Broadcast(server.JobTopic(jobID), payload)
	}
}

func buildASR(cfg *config.AppConfig) (transcription.Provider, error) {
	reg := transcription.NewRegistry()
	reg.RegisterFactory(whisper.ProviderName, whisper.Factory())
	return reg.Create(cfg.ASR.Provider, cfg.ASR.Settings)
}

func buildLLM(cfg *config.AppConfig, log *logger.Logger) (*llm.Client, error) {
	reg := llm.NewRegistry()
	reg.RegisterFactory(ollama.ProviderName, ollama.Factory())
	reg.RegisterFactory(groq.ProviderName, groq.Factory())
	reg.RegisterFactory(vllm.ProviderName, vllm.Factory())

	p, err := reg.Create(cfg.LLM.Provider, cfg.LLM.Settings)
	if err != nil {
		return nil, err
	}
	return llm.NewClient(p, nil, log), nil
}

func buildDiarizer(cfg *config.AppConfig) (diarization.Provider, error) {
	if !cfg.Diarization.Enabled {
		return nil, nil
	}
	reg := diarization.NewRegistry()
	reg.RegisterFactory(pyannote.ProviderName, pyannote.Factory())
	return reg.Create(cfg.Diarization.Provider, cfg.Diarization.Settings)
}
