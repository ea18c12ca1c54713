package ingestion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"trialgraph/internal/anchors"
	"trialgraph/internal/chunker"
	"trialgraph/internal/dedupe"
	"trialgraph/internal/docxreader"
	"trialgraph/internal/domain"
	"trialgraph/internal/facts"
	"trialgraph/internal/headingblock"
	"trialgraph/internal/llmnorm"
	"trialgraph/internal/quality"
	"trialgraph/internal/soa"
	"trialgraph/internal/telemetry"
	"trialgraph/internal/topics"
	"trialgraph/internal/vectorstore"
	"trialgraph/internal/zones"
)

// Orchestrator composes C1-C10 and C13 into the ten-step sequential
// ingestion of one document version, per spec §4.14. Grounded on
// original_source/backend/app/services/ingestion/__init__.py's
// IngestionService.ingest: the same cleanup-then-rebuild shape, the same
// SoA-confidence fact-status gate, and the same "unsupported format
// surfaces as a warning, not a fatal error" stance — generalized from
// SQLAlchemy add_all/flush calls to the store interfaces in store.go.
type Orchestrator struct {
	Versions      VersionLookup
	Source        SourceOpener
	Anchors       AnchorStore
	Chunks        ChunkStore
	HeadingBlocks HeadingBlockStore
	Facts         FactStore
	FactEvidence  FactEvidenceStore
	Topics        TopicCatalog
	Assignments   AssignmentStore
	Runs          RunStore

	Embedder Embedder        // nil is valid: chunks/blocks persist without embeddings, per §4.6/§4.10.
	Chatter  llmnorm.Chatter // nil is valid: §4.9 normalization is skipped, facts keep their regex value.

	Telemetry *telemetry.StageTimer // nil is valid: stage histograms are opt-in per SPEC_FULL's domain-stack table.

	// Vectors is an optional write-through sink for chunk embeddings,
	// populated alongside Postgres when an alternate vector-store backend
	// is configured (SPEC_FULL's Qdrant domain-stack entry). nil is valid:
	// Postgres stays the sole system of record and nothing is skipped.
	Vectors vectorstore.Store

	// Dedupe is an optional fast-path cache checked before the Postgres
	// run lookup in the !force idempotency check below. nil is valid:
	// every lookup falls straight through to Postgres.
	Dedupe    dedupe.Store
	DedupeTTL time.Duration

	Rulebook         zones.Rulebook
	FactCatalog      []facts.Rule
	RequiredFactKeys []string
	WorkspaceID      string
	Clock            Clock

	group singleflight.Group
}

func (o *Orchestrator) clock() Clock {
	if o.Clock == nil {
		return SystemClock{}
	}
	return o.Clock
}

// stage starts a C14 stage timer and returns the closure that records it;
// each step calls the returned func explicitly on every one of its return
// paths with the stage's outcome ("ok" or "error") so every step's
// duration lands in the same histogram.
func (o *Orchestrator) stage(name string) func(status string) {
	start := o.clock().Now()
	return func(status string) {
		o.Telemetry.Observe(name, o.clock().Now().Sub(start), status)
	}
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// pipelineConfigHash derives the run's recorded config hash from the zone
// rulebook and fact-rule catalog: editing either changes every
// subsequently recorded run's hash, per §6.
func (o *Orchestrator) pipelineConfigHash() string {
	return o.Rulebook.Hash() + ":" + facts.CatalogHash(o.FactCatalog)
}

// Ingest runs the full §4.14 pipeline for one document version. Concurrent
// calls for the same (docVersionID, force) pair collapse onto a single
// in-flight execution via singleflight, per §5's "collapse duplicate
// concurrent triggers for the same version". Fan-out across independent
// document versions is the caller's concern (typically an errgroup.Group).
func (o *Orchestrator) Ingest(ctx context.Context, docVersionID string, force bool) (domain.IngestionRun, error) {
	key := fmt.Sprintf("%s:%t", docVersionID, force)
	v, err, _ := o.group.Do(key, func() (any, error) {
		return o.ingest(ctx, docVersionID, force)
	})
	run, _ := v.(domain.IngestionRun)
	return run, err
}

func (o *Orchestrator) ingest(ctx context.Context, docVersionID string, force bool) (domain.IngestionRun, error) {
	clk := o.clock()

	// Step 1: validate source file exists.
	version, document, err := o.Versions.Get(ctx, docVersionID)
	if err != nil {
		return domain.IngestionRun{}, fmt.Errorf("resolve document version: %w", err)
	}

	if !force {
		if run, hit := o.dedupeLookup(ctx, docVersionID); hit {
			return run, nil
		}
		if existing, ok, lookupErr := o.Runs.GetLatest(ctx, docVersionID); lookupErr == nil && ok && existing.Status != domain.RunFailed {
			o.dedupeStore(ctx, docVersionID, existing)
			return existing, nil
		}
	}

	doneOpen := o.stage("open")
	doc, openErr := o.Source.Open(ctx, version.SourcePath)
	doneOpen(statusOf(openErr))
	if openErr != nil && !errors.Is(openErr, domain.ErrUnsupportedFormat) {
		return domain.IngestionRun{}, fmt.Errorf("open source: %w", openErr)
	}

	// Step 2: open the run record in "partial" status.
	runID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(docVersionID+"|run|"+clk.Now().Format(time.RFC3339Nano))).String()
	run := domain.NewRun(runID, docVersionID, o.pipelineConfigHash(), clk.Now())
	if err := o.Runs.Create(ctx, run); err != nil {
		return domain.IngestionRun{}, fmt.Errorf("open ingestion run: %w", err)
	}

	if openErr != nil {
		// Unsupported source format: close the run as partial with a
		// warning instead of failing it.
		run.Warnings = append(run.Warnings, openErr.Error())
		run.Status = domain.RunPartial
		run.MappingStatus = "needs_review"
		run.FinishedAt = clk.Now()
		if err := o.Runs.Update(ctx, run); err != nil {
			return run, err
		}
		return run, nil
	}

	fail := func(err error) (domain.IngestionRun, error) {
		run.Status = domain.RunFailed
		run.Errors = append(run.Errors, err.Error())
		run.FinishedAt = clk.Now()
		if updateErr := o.Runs.Update(ctx, run); updateErr != nil {
			return run, updateErr
		}
		return run, err
	}

	// Step 3: cleanup phase — delete existing anchors, chunks, facts (with
	// evidence) for this version, and the heading-block/assignment
	// artifacts derived from them, so re-ingestion is a clean rebuild.
	doneCleanup := o.stage("cleanup")
	cleanupErr := o.cleanup(ctx, docVersionID)
	doneCleanup(statusOf(cleanupErr))
	if cleanupErr != nil {
		return fail(fmt.Errorf("cleanup: %w", cleanupErr))
	}

	// Step 4: parse DOCX -> anchors, persist in bulk.
	doneAnchors := o.stage("anchors")
	bodyAnchors, summary, extractCtx := anchors.Extract(docVersionID, doc, o.Rulebook)
	run.DocxSummary = map[string]any{
		"anchors_created":      summary.AnchorsCreated,
		"body_anchors":         summary.BodyAnchors,
		"footnote_anchors":     summary.FootnoteAnchors,
		"numbering_rejections": summary.NumberingRejections,
	}
	if summary.FootnotesWarning != "" {
		run.Warnings = append(run.Warnings, summary.FootnotesWarning)
	}

	if len(bodyAnchors) == 0 {
		// Open Question resolution: no anchors aborts the remaining steps
		// (SoA/chunking/facts/mapping never run) but the run itself closes
		// as partial/needs_review rather than failed — this is a content
		// signal, not a pipeline error.
		doneAnchors("empty")
		return o.finishEmpty(ctx, &run, clk)
	}

	anchorsErr := o.Anchors.BulkInsert(ctx, bodyAnchors)
	doneAnchors(statusOf(anchorsErr))
	if anchorsErr != nil {
		return fail(fmt.Errorf("persist anchors: %w", anchorsErr))
	}
	run.AnchorsCreated = len(bodyAnchors)

	// Step 5: extract SoA, persist CELL anchors and SoA facts with evidence.
	doneSoA := o.stage("soa")
	nearestHeading := func(t docxreader.Table) (string, string) {
		return extractCtx.SectionPathAt(t.PrecedingParagraphIndex())
	}
	cellAnchors, soaResult := soa.Extract(docVersionID, doc.Tables(), nearestHeading)
	if len(cellAnchors) > 0 {
		if err := o.Anchors.BulkInsert(ctx, cellAnchors); err != nil {
			doneSoA("error")
			return fail(fmt.Errorf("persist SoA cell anchors: %w", err))
		}
		run.AnchorsCreated += len(cellAnchors)
	}
	run.SoAFound = soaResult.Found
	run.Warnings = append(run.Warnings, soaResult.Warnings...)
	if !soaResult.Found && document.DocType == "protocol" {
		run.Warnings = append(run.Warnings, "SoA table not found in protocol (may require manual review)")
	}

	soaFacts, soaEvidence := facts.FromSoA(document.StudyID, docVersionID, soaResult)
	if err := o.persistFacts(ctx, soaFacts, soaEvidence); err != nil {
		doneSoA("error")
		return fail(err)
	}
	run.SoAFactsWritten = len(soaFacts)
	doneSoA("ok")

	// Step 6: build chunks, persist. Chunking is a suspension point when an
	// Embedder is configured, so honor cooperative cancellation here.
	if err := checkCancelled(ctx); err != nil {
		return fail(err)
	}
	doneChunk := o.stage("chunk")
	chunks, err := chunker.Chunk(ctx, docVersionID, bodyAnchors, o.Embedder)
	if err != nil {
		doneChunk("error")
		return fail(fmt.Errorf("build chunks: %w", err))
	}
	if err := o.Chunks.BulkInsert(ctx, chunks); err != nil {
		doneChunk("error")
		return fail(fmt.Errorf("persist chunks: %w", err))
	}
	run.ChunksCreated = len(chunks)
	o.upsertChunkVectors(ctx, docVersionID, chunks)
	doneChunk("ok")

	// Step 7: rules-based fact extraction (§4.8) and, per candidate,
	// optional LLM normalization (§4.9). Persist.
	doneFacts := o.stage("facts")
	extractedFacts, evidence := facts.Extract(document.StudyID, docVersionID, bodyAnchors, o.FactCatalog)
	doneFacts("ok")
	doneNormalize := o.stage("normalize")
	o.normalizeFacts(ctx, extractedFacts, evidence, indexAnchorsByID(bodyAnchors))
	doneNormalize("ok")
	if err := o.persistFacts(ctx, extractedFacts, evidence); err != nil {
		return fail(err)
	}

	// Step 8: build heading blocks and map topics, persist assignments.
	doneHeadingBlocks := o.stage("heading_blocks")
	blocks := headingblock.Build(docVersionID, bodyAnchors)
	if err := o.HeadingBlocks.BulkInsert(ctx, blocks); err != nil {
		doneHeadingBlocks("error")
		return fail(fmt.Errorf("persist heading blocks: %w", err))
	}
	doneHeadingBlocks("ok")

	if err := checkCancelled(ctx); err != nil {
		return fail(err)
	}
	doneTopics := o.stage("topics")
	assignments, mappingMetrics, mappingStatus, err := o.mapTopics(ctx, document, blocks)
	if err != nil {
		doneTopics("error")
		return fail(err)
	}
	if len(assignments) > 0 {
		if err := o.Assignments.BulkInsert(ctx, assignments); err != nil {
			doneTopics("error")
			return fail(fmt.Errorf("persist topic assignments: %w", err))
		}
	}
	doneTopics("ok")
	run.MappingStatus = mappingStatus

	// Step 9: compute metrics & quality gate, update IngestionRun and the
	// version's summary.
	doneQuality := o.stage("quality")
	studyFacts, err := o.Facts.ListByStudy(ctx, document.StudyID)
	if err != nil {
		doneQuality("error")
		return fail(fmt.Errorf("list study facts: %w", err))
	}
	metrics := quality.Metrics{
		Anchors: quality.CollectAnchorMetrics(append(append([]domain.Anchor{}, bodyAnchors...), cellAnchors...)),
		Chunks:  quality.CollectChunkMetrics(chunks),
		Facts:   quality.CollectFactsMetrics(studyFacts, o.RequiredFactKeys),
		SoA:     quality.CollectSoAMetrics(soaResult),
	}
	gateResult := quality.Gate(metrics)
	run.Status = gateResult.Status
	run.Warnings = append(run.Warnings, gateResult.Warnings...)
	run.Metrics = metricsToMap(metrics)
	run.Metrics["mapping"] = mappingMetrics
	doneQuality(string(gateResult.Status))

	// Step 10: commit.
	donePersist := o.stage("persist")
	run.FinishedAt = clk.Now()
	if err := o.Runs.Update(ctx, run); err != nil {
		donePersist("error")
		return run, fmt.Errorf("commit ingestion run: %w", err)
	}
	donePersist("ok")
	o.dedupeStore(ctx, docVersionID, run)
	return run, nil
}

const defaultDedupeTTL = 24 * time.Hour

func dedupeKey(docVersionID string) string {
	return "ingest:run:" + docVersionID
}

// dedupeLookup is the Redis fast path checked ahead of Postgres: a hit
// that deserializes cleanly and isn't itself a failed run short-circuits
// the GetLatest round trip entirely. Any miss, error, or failed-run cache
// entry falls through to Postgres, which stays the system of record.
func (o *Orchestrator) dedupeLookup(ctx context.Context, docVersionID string) (domain.IngestionRun, bool) {
	if o.Dedupe == nil {
		return domain.IngestionRun{}, false
	}
	cached, err := o.Dedupe.Get(ctx, dedupeKey(docVersionID))
	if err != nil || cached == "" {
		return domain.IngestionRun{}, false
	}
	var run domain.IngestionRun
	if json.Unmarshal([]byte(cached), &run) != nil || run.Status == domain.RunFailed {
		return domain.IngestionRun{}, false
	}
	return run, true
}

// dedupeStore populates the fast-path cache after a Postgres lookup or a
// freshly committed run. Best-effort: a cache write failure never fails
// the run, since the cache is a convenience, not the source of truth.
func (o *Orchestrator) dedupeStore(ctx context.Context, docVersionID string, run domain.IngestionRun) {
	if o.Dedupe == nil || run.Status == domain.RunFailed {
		return
	}
	encoded, err := json.Marshal(run)
	if err != nil {
		return
	}
	ttl := o.DedupeTTL
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	_ = o.Dedupe.Set(ctx, dedupeKey(docVersionID), string(encoded), ttl)
}

// finishEmpty closes a run that produced no anchors: quality metrics are
// all-zero, the gate still runs (it will flag missing required facts),
// and the run is marked needs_review without ever invoking SoA, chunking,
// fact extraction, or topic mapping.
func (o *Orchestrator) finishEmpty(ctx context.Context, run *domain.IngestionRun, clk Clock) (domain.IngestionRun, error) {
	run.Warnings = append(run.Warnings, domain.ErrNoAnchors.Error())
	run.MappingStatus = "needs_review"
	metrics := quality.Metrics{Facts: quality.CollectFactsMetrics(nil, o.RequiredFactKeys)}
	gateResult := quality.Gate(metrics)
	run.Status = domain.RunPartial
	run.Warnings = append(run.Warnings, gateResult.Warnings...)
	run.Metrics = metricsToMap(metrics)
	run.FinishedAt = clk.Now()
	if err := o.Runs.Update(ctx, *run); err != nil {
		return *run, err
	}
	return *run, nil
}

func (o *Orchestrator) cleanup(ctx context.Context, docVersionID string) error {
	if err := o.Anchors.DeleteByDocVersion(ctx, docVersionID); err != nil {
		return fmt.Errorf("delete anchors: %w", err)
	}
	if err := o.Chunks.DeleteByDocVersion(ctx, docVersionID); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	if err := o.HeadingBlocks.DeleteByDocVersion(ctx, docVersionID); err != nil {
		return fmt.Errorf("delete heading blocks: %w", err)
	}
	if err := o.Assignments.DeleteByDocVersion(ctx, docVersionID); err != nil {
		return fmt.Errorf("delete topic assignments: %w", err)
	}
	if err := o.Facts.DeleteCreatedFromVersion(ctx, docVersionID); err != nil {
		return fmt.Errorf("delete facts: %w", err)
	}
	if err := o.FactEvidence.DeleteCreatedFromVersion(ctx, docVersionID); err != nil {
		return fmt.Errorf("delete fact evidence: %w", err)
	}
	return nil
}

// upsertChunkVectors mirrors each embedded chunk into the optional
// vector-store sink. It's best-effort and silent on error: Postgres is the
// system of record for chunk embeddings regardless of whether Vectors is
// configured, so a write-through failure here never fails the run.
func (o *Orchestrator) upsertChunkVectors(ctx context.Context, docVersionID string, chunks []domain.Chunk) {
	if o.Vectors == nil {
		return
	}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		_ = o.Vectors.Upsert(ctx, c.ChunkID, c.Embedding, map[string]string{
			"doc_version_id": docVersionID,
			"section_path":   c.SectionPath,
		})
	}
}

func (o *Orchestrator) persistFacts(ctx context.Context, facts []domain.Fact, evidence []domain.FactEvidence) error {
	if len(facts) > 0 {
		if err := o.Facts.BulkInsert(ctx, facts); err != nil {
			return fmt.Errorf("persist facts: %w", err)
		}
	}
	if len(evidence) > 0 {
		if err := o.FactEvidence.BulkInsert(ctx, evidence); err != nil {
			return fmt.Errorf("persist fact evidence: %w", err)
		}
	}
	return nil
}

// normalizeFacts runs §4.9's optional LLM double-check over every
// regex-extracted candidate whose raw span clears the complexity bar.
// extracted and evidence are index-aligned: facts.Extract appends exactly
// one PRIMARY evidence row per fact, in the same order.
func (o *Orchestrator) normalizeFacts(ctx context.Context, extracted []domain.Fact, evidence []domain.FactEvidence, anchorsByID map[string]domain.Anchor) {
	for i := range extracted {
		if ctx.Err() != nil {
			return
		}
		f := &extracted[i]
		if f.Status != domain.FactExtracted || f.ValueJSON == nil || i >= len(evidence) {
			continue
		}
		anchor, ok := anchorsByID[evidence[i].AnchorRef]
		if !ok {
			continue
		}
		rawSpan := anchor.TextNorm
		if !llmnorm.IsComplexValue(rawSpan, f.ValueJSON) {
			continue
		}

		regexValue := f.ValueJSON["value"]
		status, value, err := llmnorm.Normalize(ctx, o.Chatter, f.FactKey, rawSpan, regexValue)
		if err != nil {
			// LLM unavailable or a transport error: keep the
			// regex-extracted value rather than abort the run.
			continue
		}
		f.Status = status
		f.ValueJSON = map[string]any{"value": value}
	}
}

// mapTopics embeds each heading block (if an Embedder is configured),
// computes the optional clustering hint, and scores blocks against the
// workspace's topic catalog. Returns a mapping_status summarizing
// coverage: "unmapped" | "partial" | "complete", or "" when there were no
// heading blocks to map at all.
func (o *Orchestrator) mapTopics(ctx context.Context, document domain.Document, blocks []domain.HeadingBlock) ([]domain.BlockTopicAssignment, topics.Metrics, string, error) {
	if len(blocks) == 0 || o.Topics == nil {
		return nil, topics.Metrics{}, "", nil
	}

	catalog, err := o.Topics.ListTopics(ctx, o.WorkspaceID)
	if err != nil {
		return nil, topics.Metrics{}, "", fmt.Errorf("list topic catalog: %w", err)
	}
	zonePriors, err := o.Topics.ListZonePriors(ctx, o.WorkspaceID)
	if err != nil {
		return nil, topics.Metrics{}, "", fmt.Errorf("list topic zone priors: %w", err)
	}

	blockEmbeddings := o.embedBlocks(ctx, blocks)
	clusterPrior := topics.ClusterPrior(document.Title, blocks, blockEmbeddings, catalog)
	assignments, mappingMetrics := topics.MapDocumentVersion(document.Title, document.DocType, blocks, catalog, zonePriors, blockEmbeddings, clusterPrior)

	status := "unmapped"
	switch {
	case len(assignments) == len(blocks):
		status = "complete"
	case len(assignments) > 0:
		status = "partial"
	}
	return assignments, mappingMetrics, status, nil
}

func (o *Orchestrator) embedBlocks(ctx context.Context, blocks []domain.HeadingBlock) map[string][]float32 {
	if o.Embedder == nil || len(blocks) == 0 {
		return nil
	}
	doneEmbed := o.stage("embed")
	texts := make([]string, len(blocks))
	for i, b := range blocks {
		texts[i] = b.HeadingText + " " + b.TextPreview
	}
	vectors, err := o.Embedder.Embed(ctx, texts)
	if err != nil || len(vectors) != len(blocks) {
		doneEmbed("error")
		return nil
	}
	doneEmbed("ok")
	out := make(map[string][]float32, len(blocks))
	for i, b := range blocks {
		out[b.HeadingBlockID] = vectors[i]
	}
	return out
}

func indexAnchorsByID(anchors []domain.Anchor) map[string]domain.Anchor {
	m := make(map[string]domain.Anchor, len(anchors))
	for _, a := range anchors {
		m[a.AnchorID] = a
	}
	return m
}

// metricsToMap flattens a quality.Metrics tree into the map[string]any
// shape domain.IngestionRun.Metrics carries, via its own JSON tags rather
// than a second hand-maintained field list.
func metricsToMap(m quality.Metrics) map[string]any {
	data, err := json.Marshal(m)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]any{}
	}
	return out
}

var errCancelled = errors.New("cancelled")

// checkCancelled surfaces context cancellation as the "cancelled" failure
// reason §5 names, instead of the context package's own generic message.
func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errCancelled
	}
	return nil
}
