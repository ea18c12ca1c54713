// Command ingestctl is the one-shot operator CLI: ingest a single document
// version, or trigger the on-demand C11 (anchor alignment) / C12 (fact
// conflict detection) operations against already-persisted data. Grounded
// on cmd/embedctl/main.go's hand-rolled stdlib flag parsing and log.Fatal
// error style — the teacher's own CLI entrypoints never reach for cobra
// for a surface this thin, so neither does this one (see SPEC_FULL.md §1).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"trialgraph/internal/align"
	"trialgraph/internal/conflicts"
	"trialgraph/internal/config"
	"trialgraph/internal/dedupe"
	"trialgraph/internal/docxreader"
	"trialgraph/internal/embedding"
	"trialgraph/internal/ingestion"
	"trialgraph/internal/llm/providers"
	"trialgraph/internal/llmnorm"
	"trialgraph/internal/store"
	"trialgraph/internal/telemetry"
	"trialgraph/internal/vectorstore"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "ingest":
		err = runIngest(os.Args[2:])
	case "align":
		err = runAlign(os.Args[2:])
	case "conflicts":
		err = runConflicts(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("ingestctl %s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ingestctl <ingest|align|conflicts> [flags]")
}

func openStore(ctx context.Context, cfg config.Config) (*store.PostgresStore, error) {
	if cfg.Postgres.DSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN not set (set in .env, environment, or config.yaml)")
	}
	pool, err := store.OpenPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	st, err := store.NewPostgresStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres store: %w", err)
	}
	return st, nil
}

// buildOrchestrator wires one Orchestrator from config and an already-open
// store, reused by runIngest; the LLM provider, embedder, and Qdrant vector
// store are all optional per §4.9/§4.6 — a configuration error in any of
// them degrades rather than aborts, matching the orchestrator's own
// nil-Embedder/nil-Chatter/nil-Vectors fallback stance.
func buildOrchestrator(cfg config.Config, st *store.PostgresStore) *ingestion.Orchestrator {
	httpClient := http.DefaultClient

	var chatter llmnorm.Chatter
	if chatClient, err := providers.Build(cfg.LLM, httpClient); err != nil {
		log.Printf("llm provider unavailable, normalization disabled: %v", err)
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
		v, err := vectorstore.NewQdrant(context.Background(), cfg.Qdrant, cfg.Embedding.Dimensions, "cosine")
		if err != nil {
			log.Printf("qdrant vector store unavailable, chunk embeddings stay Postgres-only: %v", err)
		} else {
			vectors = v
		}
	}

	var dedupeStore dedupe.Store
	if cfg.Redis.Enabled {
		d, err := dedupe.NewRedis(context.Background(), cfg.Redis)
		if err != nil {
			log.Printf("redis dedupe cache unavailable, every lookup hits postgres: %v", err)
		} else {
			dedupeStore = d
		}
	}

	return &ingestion.Orchestrator{
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
}

func runIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	docVersionID := fs.String("doc-version-id", "", "doc_version_id to ingest (must already be registered)")
	force := fs.Bool("force", false, "re-ingest even if a non-failed run already exists")
	fs.Parse(args)
	if *docVersionID == "" {
		return fmt.Errorf("-doc-version-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	orch := buildOrchestrator(cfg, st)
	run, err := orch.Ingest(ctx, *docVersionID, *force)
	if err != nil {
		return err
	}
	return printJSON(run)
}

func runAlign(args []string) error {
	fs := flag.NewFlagSet("align", flag.ExitOnError)
	documentID := fs.String("document-id", "", "document_id owning both versions")
	fromVersionID := fs.String("from", "", "earlier doc_version_id")
	toVersionID := fs.String("to", "", "later doc_version_id")
	minScore := fs.Float64("min-score", 0, "minimum match score (0 uses the package default)")
	fs.Parse(args)
	if *documentID == "" || *fromVersionID == "" || *toVersionID == "" {
		return fmt.Errorf("-document-id, -from, and -to are all required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	anchorsA, err := st.ListAnchorsByDocVersion(ctx, *fromVersionID)
	if err != nil {
		return fmt.Errorf("list anchors (from): %w", err)
	}
	anchorsB, err := st.ListAnchorsByDocVersion(ctx, *toVersionID)
	if err != nil {
		return fmt.Errorf("list anchors (to): %w", err)
	}
	embeddingsA, err := anchorEmbeddings(ctx, st, *fromVersionID)
	if err != nil {
		return fmt.Errorf("list chunks (from): %w", err)
	}
	embeddingsB, err := anchorEmbeddings(ctx, st, *toVersionID)
	if err != nil {
		return fmt.Errorf("list chunks (to): %w", err)
	}

	matches, stats := align.Align(*documentID, *fromVersionID, *toVersionID, anchorsA, anchorsB, embeddingsA, embeddingsB, *minScore)
	if err := st.SaveAnchorMatches(ctx, matches); err != nil {
		return fmt.Errorf("save anchor matches: %w", err)
	}
	return printJSON(stats)
}

// anchorEmbeddings resolves each chunk's embedding onto every anchor_id it
// covers, first chunk wins per §4.11 step 2's "first wins" resolution rule.
func anchorEmbeddings(ctx context.Context, st *store.PostgresStore, docVersionID string) (map[string][]float32, error) {
	chunks, err := st.ListChunksByDocVersion(ctx, docVersionID)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]float32)
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		for _, anchorID := range c.AnchorIDs {
			if _, ok := out[anchorID]; !ok {
				out[anchorID] = c.Embedding
			}
		}
	}
	return out, nil
}

func runConflicts(args []string) error {
	fs := flag.NewFlagSet("conflicts", flag.ExitOnError)
	studyID := fs.String("study-id", "", "study_id to check for fact conflicts")
	fs.Parse(args)
	if *studyID == "" {
		return fmt.Errorf("-study-id is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := context.Background()
	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	facts, err := st.Facts().ListByStudy(ctx, *studyID)
	if err != nil {
		return fmt.Errorf("list facts: %w", err)
	}
	evidence, err := st.ListEvidenceByStudy(ctx, *studyID)
	if err != nil {
		return fmt.Errorf("list evidence: %w", err)
	}
	matches, err := st.ListAnchorMatchesByStudy(ctx, *studyID)
	if err != nil {
		return fmt.Errorf("list anchor matches: %w", err)
	}
	existingTasks, err := st.ListTasks(ctx, *studyID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	existingConflictIDs := make(map[string]bool, len(existingTasks))
	for _, t := range existingTasks {
		if id, ok := t.Payload["conflict_id"].(string); ok {
			existingConflictIDs[id] = true
		}
	}

	result := conflicts.Detect(*studyID, facts, evidence, matches, existingConflictIDs)
	if err := st.SaveConflicts(ctx, result.Conflicts, result.Items); err != nil {
		return fmt.Errorf("save conflicts: %w", err)
	}
	if len(result.Tasks) > 0 {
		if err := st.SaveTasks(ctx, result.Tasks); err != nil {
			return fmt.Errorf("save tasks: %w", err)
		}
	}
	return printJSON(result)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
