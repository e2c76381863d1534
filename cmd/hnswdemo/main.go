package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fsvxavier/concurrent-hnsw/internal/hnsw"
	"github.com/fsvxavier/concurrent-hnsw/internal/hnswconfig"
	"github.com/fsvxavier/concurrent-hnsw/internal/hnswlog"
)

const version = "0.1.0"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := run(ctx); err != nil {
		log.Fatalf("hnswdemo error: %v", err)
	}

	log.Println("hnswdemo shutdown complete")
}

func run(ctx context.Context) error {
	cfg := hnswconfig.LoadConfig()

	hnswlog.InitWithBuffer(&hnswlog.Config{
		Level:  parseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	}, 1000)
	metrics := hnswlog.NewPerformanceMetrics()

	buildCtx := context.WithValue(ctx, hnswlog.OperationKey, "build")
	hnswlog.InfoContext(buildCtx, "starting concurrent HNSW demo",
		"version", version,
		"dimension", cfg.Dimension,
		"m", cfg.HNSW.M,
		"beam_width", cfg.HNSW.BeamWidth,
	)

	similarity, err := similarityFor(cfg.Similarity)
	if err != nil {
		return err
	}
	encoding, err := encodingFor(cfg.Encoding)
	if err != nil {
		return err
	}

	const datasetSize = 2000
	provider, err := randomProvider(encoding, datasetSize, cfg.Dimension, cfg.HNSW.Seed)
	if err != nil {
		return fmt.Errorf("building demo dataset: %w", err)
	}

	builder, err := hnsw.NewBuilder(provider, encoding, similarity, cfg.HNSW.M, cfg.HNSW.BeamWidth, cfg.HNSW.Seed)
	if err != nil {
		return fmt.Errorf("constructing builder: %w", err)
	}

	parallelism := cfg.HNSW.Parallelism
	if parallelism <= 0 {
		parallelism = max(3, runtime.NumCPU())
	}

	start := time.Now()
	handle := builder.BuildAsync(buildCtx, datasetSize, parallelism)
	buildErr := handle.Wait(ctx)
	metrics.RecordOperation("build", float64(time.Since(start).Milliseconds()))
	if buildErr != nil {
		return fmt.Errorf("building graph: %w", buildErr)
	}
	hnswlog.InfoContext(buildCtx, "graph build complete",
		"nodes", datasetSize,
		"elapsed", time.Since(start).String(),
		"ram_bytes", builder.GetGraph().RamBytesUsed(),
	)

	searchCtx := context.WithValue(ctx, hnswlog.OperationKey, "search")
	searcher := hnsw.NewSearcher(similarity)
	query, err := randomVector(encoding, cfg.Dimension, cfg.HNSW.Seed+1)
	if err != nil {
		return fmt.Errorf("building demo query: %w", err)
	}

	view := builder.GetGraph().GetView()
	searchResult := metrics.TimedOperation("search", func() interface{} {
		results, err := searcher.Search(query, cfg.HNSW.TopK, builder.GetGraph(), view, hnsw.AcceptAll, cfg.HNSW.VisitLimit)
		return searchOutcome{results: results, err: err}
	}).(searchOutcome)
	if searchResult.err != nil {
		return fmt.Errorf("searching graph: %w", searchResult.err)
	}
	results := searchResult.results

	ids, scores := results.Scores()
	hnswlog.InfoContext(searchCtx, "search complete",
		"top_k", cfg.HNSW.TopK,
		"visited", results.VisitedCount(),
		"incomplete", results.Incomplete(),
	)
	for i, id := range ids {
		fmt.Fprintf(os.Stderr, "  #%d node=%d score=%.4f\n", i+1, id, scores[i])
	}

	dashboard := metrics.GetDashboard("all")
	hnswlog.InfoContext(ctx, "performance dashboard",
		"total_operations", dashboard.TotalOperations,
		"avg_duration_ms", dashboard.AvgDuration,
		"p99_duration_ms", dashboard.P99Duration,
	)
	for _, slow := range metrics.AlertSlowOperations(500) {
		hnswlog.WarnContext(ctx, "slow operation", "operation", slow.Operation, "duration_ms", slow.Duration)
	}

	buildLogs := hnswlog.GetLogBuffer().Query(hnswlog.LogFilter{Operation: "build"})
	hnswlog.InfoContext(ctx, "buffered build logs available", "count", len(buildLogs))

	return nil
}

// searchOutcome carries a Search call's two return values through
// PerformanceMetrics.TimedOperation's single-interface-value signature.
type searchOutcome struct {
	results *hnsw.NeighborQueue
	err     error
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func similarityFor(name string) (hnsw.Similarity, error) {
	switch name {
	case "dot":
		return hnsw.DotProduct, nil
	case "euclidean":
		return hnsw.Euclidean, nil
	case "cosine":
		return hnsw.Cosine, nil
	default:
		return nil, fmt.Errorf("unknown similarity: %q (want dot, euclidean, or cosine)", name)
	}
}

func encodingFor(name string) (hnsw.Encoding, error) {
	switch name {
	case "float32":
		return hnsw.EncodingFloat32, nil
	case "byte":
		return hnsw.EncodingByte, nil
	default:
		return 0, fmt.Errorf("unknown encoding: %q (want float32 or byte)", name)
	}
}

func randomProvider(encoding hnsw.Encoding, count, dim int, seed int64) (*hnsw.MemoryProvider, error) {
	rng := rand.New(rand.NewSource(seed))
	vecs := make([]hnsw.Vector, count)
	for i := range vecs {
		v, err := randomVectorFrom(rng, encoding, dim)
		if err != nil {
			return nil, err
		}
		vecs[i] = v
	}
	return hnsw.NewMemoryProvider(encoding, vecs)
}

func randomVector(encoding hnsw.Encoding, dim int, seed int64) (hnsw.Vector, error) {
	rng := rand.New(rand.NewSource(seed))
	return randomVectorFrom(rng, encoding, dim)
}

func randomVectorFrom(rng *rand.Rand, encoding hnsw.Encoding, dim int) (hnsw.Vector, error) {
	switch encoding {
	case hnsw.EncodingFloat32:
		f := make([]float32, dim)
		for i := range f {
			f[i] = rng.Float32()*2 - 1
		}
		return hnsw.F32Vector(f), nil
	case hnsw.EncodingByte:
		b := make([]byte, dim)
		rng.Read(b)
		return hnsw.I8Vector(b), nil
	default:
		return hnsw.Vector{}, fmt.Errorf("unsupported encoding %v", encoding)
	}
}
