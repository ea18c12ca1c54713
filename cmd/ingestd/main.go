// Command ingestd is the long-running ingestion worker: on a fixed
// interval it sweeps every registered doc_version_id and ingests any that
// have no run yet or whose latest run previously failed, then shuts down
// cleanly on SIGINT/SIGTERM. Grounded on cmd/orchestrator/main.go's
// run()-returns-error/signal.NotifyContext shutdown shape and getenv*
// helpers; the teacher's own Kafka consumer loop is not ported since
// campaign/message-bus orchestration across documents is explicitly out
// of scope for this pipeline (see SPEC_FULL.md's dropped-dependency list).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"trialgraph/internal/config"
	"trialgraph/internal/dedupe"
	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
	"trialgraph/internal/embedding"
	"trialgraph/internal/ingestion"
	"trialgraph/internal/llm/providers"
	"trialgraph/internal/llmnorm"
	"trialgraph/internal/logging"
	"trialgraph/internal/store"
	"trialgraph/internal/telemetry"
	"trialgraph/internal/vectorstore"
)

func main() {
	if err := run(); err != nil {
		logging.Log.Fatal().Err(err).Msg("ingestd")
	}
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("POSTGRES_DSN not set (set in .env, environment, or config.yaml)")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := store.OpenPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open postgres pool: %w", err)
	}
	defer pool.Close()

	st, err := store.NewPostgresStore(ctx, pool)
	if err != nil {
		return fmt.Errorf("init postgres store: %w", err)
	}

	httpClient := http.DefaultClient
	var chatter llmnorm.Chatter
	if chatClient, err := providers.Build(cfg.LLM, httpClient); err != nil {
		logging.Log.Warn().Err(err).Msg("llm provider unavailable, normalization disabled")
	} else {
		chatter = llmnorm.ChatterFromClient(chatClient)
	}
	var embedder ingestion.Embedder
	if cfg.Embedding.BaseURL != "" {
		embedder = embedding.New(cfg.Embedding, httpClient)
	}
	var stageTimer *telemetry.StageTimer
	if cfg.Telemetry.Enabled {
		stageTimer = telemetry.NewStageTimer()
	}

	var vectors vectorstore.Store
	if cfg.Qdrant.Enabled {
		v, err := vectorstore.NewQdrant(ctx, cfg.Qdrant, cfg.Embedding.Dimensions, "cosine")
		if err != nil {
			logging.Log.Warn().Err(err).Msg("qdrant vector store unavailable, chunk embeddings stay Postgres-only")
		} else {
			vectors = v
		}
	}

	var dedupeStore dedupe.Store
	if cfg.Redis.Enabled {
		d, err := dedupe.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logging.Log.Warn().Err(err).Msg("redis dedupe cache unavailable, every lookup hits postgres")
		} else {
			dedupeStore = d
			defer d.Close()
		}
	}

	orch := &ingestion.Orchestrator{
		Versions:         st,
		Source:           docxreader.GoDocxOpener{},
		Anchors:          st,
		Chunks:           st.Chunks(),
		HeadingBlocks:    st.HeadingBlocks(),
		Facts:            st.Facts(),
		FactEvidence:     st.FactEvidence(),
		Topics:           st,
		Assignments:      st.Assignments(),
		Runs:             st,
		Embedder:         embedder,
		Chatter:          chatter,
		Telemetry:        stageTimer,
		Vectors:          vectors,
		Dedupe:           dedupeStore,
		Rulebook:         cfg.Rulebook(),
		FactCatalog:      cfg.FactCatalog(),
		RequiredFactKeys: cfg.RequiredFactKeys,
		WorkspaceID:      cfg.WorkspaceID,
	}

	interval := getenvDuration("INGEST_POLL_INTERVAL", 30*time.Second)
	concurrency := getenvInt("INGEST_POLL_CONCURRENCY", 1)

	logging.Log.Info().Dur("interval", interval).Msg("ingestd starting")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx, st, orch, concurrency)
	for {
		select {
		case <-ctx.Done():
			logging.Log.Info().Msg("ingestd stopping")
			return nil
		case <-ticker.C:
			sweep(ctx, st, orch, concurrency)
		}
	}
}

// sweep ingests every registered doc_version_id that has no run yet or
// whose latest run previously failed, fanned out via errgroup per §5's
// "errgroup where the orchestrator fans out independent per-document-
// version ingestions at the caller level" — bounded to concurrency
// simultaneous in-flight ingestions (concurrency=1 keeps the single-
// threaded cooperative stance §5 describes as the default). Each
// document version's own ten-step sequence inside Orchestrator.Ingest
// stays strictly sequential; only the across-version fan-out is
// parallel, and singleflight inside the orchestrator still collapses a
// version that's somehow swept twice in overlapping runs.
func sweep(ctx context.Context, st *store.PostgresStore, orch *ingestion.Orchestrator, concurrency int) {
	ids, err := st.ListVersionIDs(ctx)
	if err != nil {
		logging.Log.Error().Err(err).Msg("sweep: list versions")
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		docVersionID := id
		latest, found, err := st.GetLatest(ctx, docVersionID)
		if err != nil {
			logging.Log.Error().Err(err).Str("doc_version_id", docVersionID).Msg("sweep: get latest run")
			continue
		}
		if found && latest.Status != domain.RunFailed {
			continue
		}
		g.Go(func() error {
			run, err := orch.Ingest(gctx, docVersionID, false)
			if err != nil {
				logging.Log.Error().Err(err).Str("doc_version_id", docVersionID).Msg("ingest failed")
				return nil
			}
			logging.Log.Info().Str("doc_version_id", docVersionID).Str("status", string(run.Status)).Msg("ingest complete")
			return nil
		})
	}
	_ = g.Wait()
}
