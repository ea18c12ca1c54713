package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"trialgraph/internal/domain"
)

// PostgresStore implements every store interface internal/ingestion and
// cmd/ingestctl need, backed by a single pgxpool.Pool. Table bootstrap and
// the upsert-on-conflict idiom follow
// internal/persistence/databases/postgres_search.go and postgres_vector.go.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore bootstraps every table this store needs (best-effort,
// CREATE IF NOT EXISTS) and returns a ready PostgresStore.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if err := bootstrap(ctx, pool); err != nil {
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *PostgresStore) Close() { s.pool.Close() }

// ListVersionIDs returns every registered doc_version_id, oldest first.
// cmd/ingestd's poll loop uses this to discover document versions that may
// need a run, since registration itself is an external contract this
// pipeline doesn't own (see docxreader's external-reader boundary) — the
// worker only ever decides whether an *already-registered* version needs
// ingesting, never registers one itself.
func (s *PostgresStore) ListVersionIDs(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc_version_id FROM document_versions ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// --- VersionLookup ---

func (s *PostgresStore) Get(ctx context.Context, docVersionID string) (domain.DocumentVersion, domain.Document, error) {
	var v domain.DocumentVersion
	var d domain.Document
	err := s.pool.QueryRow(ctx, `
		SELECT dv.doc_version_id, dv.document_id, dv.source_path, dv.version_no, dv.created_at,
		       doc.document_id, doc.study_id, doc.doc_type, doc.title
		FROM document_versions dv
		JOIN documents doc ON doc.document_id = dv.document_id
		WHERE dv.doc_version_id = $1
	`, docVersionID).Scan(
		&v.DocVersionID, &v.DocumentID, &v.SourcePath, &v.VersionNo, &v.CreatedAt,
		&d.DocumentID, &d.StudyID, &d.DocType, &d.Title,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DocumentVersion{}, domain.Document{}, domain.ErrFileMissing
	}
	if err != nil {
		return domain.DocumentVersion{}, domain.Document{}, fmt.Errorf("look up document version: %w", err)
	}
	return v, d, nil
}

// --- AnchorStore ---

func (s *PostgresStore) DeleteByDocVersion(ctx context.Context, docVersionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM anchors WHERE doc_version_id = $1`, docVersionID)
	return err
}

func (s *PostgresStore) BulkInsert(ctx context.Context, anchors []domain.Anchor) error {
	batch := &pgx.Batch{}
	for _, a := range anchors {
		batch.Queue(`
			INSERT INTO anchors (doc_version_id, anchor_id, section_path, content_type, ordinal,
			                      text_raw, text_norm, text_hash, location, source_zone, language, heading_level)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
			ON CONFLICT (doc_version_id, anchor_id) DO UPDATE SET
				section_path = EXCLUDED.section_path, text_raw = EXCLUDED.text_raw,
				text_norm = EXCLUDED.text_norm, text_hash = EXCLUDED.text_hash,
				location = EXCLUDED.location, source_zone = EXCLUDED.source_zone,
				language = EXCLUDED.language, heading_level = EXCLUDED.heading_level
		`, a.DocVersionID, a.AnchorID, a.SectionPath, string(a.ContentType), a.Ordinal,
			a.TextRaw, a.TextNorm, a.TextHash, a.Location, string(a.SourceZone), string(a.Language), a.HeadingLevel)
	}
	return s.sendBatch(ctx, batch, len(anchors))
}

// --- ChunkStore ---

type chunkStoreImpl struct{ s *PostgresStore }

// Chunks exposes the ChunkStore view of this PostgresStore, since the
// method name DeleteByDocVersion/BulkInsert is shared across several
// interfaces that each target a different table.
func (s *PostgresStore) Chunks() interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, chunks []domain.Chunk) error
} {
	return chunkStoreImpl{s}
}

func (c chunkStoreImpl) DeleteByDocVersion(ctx context.Context, docVersionID string) error {
	_, err := c.s.pool.Exec(ctx, `DELETE FROM chunks WHERE doc_version_id = $1`, docVersionID)
	return err
}

func (c chunkStoreImpl) BulkInsert(ctx context.Context, chunks []domain.Chunk) error {
	batch := &pgx.Batch{}
	for _, ch := range chunks {
		batch.Queue(`
			INSERT INTO chunks (chunk_id, doc_version_id, section_path, anchor_ids, text, embedding,
			                     token_estimate, source_zone, language)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (chunk_id) DO UPDATE SET
				text = EXCLUDED.text, embedding = EXCLUDED.embedding, token_estimate = EXCLUDED.token_estimate
		`, ch.ChunkID, ch.DocVersionID, ch.SectionPath, ch.AnchorIDs, ch.Text, embeddingParam(ch.Embedding),
			ch.TokenEst, string(ch.SourceZone), string(ch.Language))
	}
	return c.s.sendBatch(ctx, batch, len(chunks))
}

func embeddingParam(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return v
}

// --- HeadingBlockStore ---

func (s *PostgresStore) HeadingBlocks() interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, blocks []domain.HeadingBlock) error
} {
	return headingBlockStoreImpl{s}
}

type headingBlockStoreImpl struct{ s *PostgresStore }

func (h headingBlockStoreImpl) DeleteByDocVersion(ctx context.Context, docVersionID string) error {
	_, err := h.s.pool.Exec(ctx, `DELETE FROM heading_blocks WHERE doc_version_id = $1`, docVersionID)
	return err
}

func (h headingBlockStoreImpl) BulkInsert(ctx context.Context, blocks []domain.HeadingBlock) error {
	batch := &pgx.Batch{}
	for _, b := range blocks {
		batch.Queue(`
			INSERT INTO heading_blocks (heading_block_id, doc_version_id, heading_anchor_id, heading_text,
			                             heading_level, content_anchor_ids, text_preview, source_zone, language)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (heading_block_id) DO UPDATE SET
				heading_text = EXCLUDED.heading_text, content_anchor_ids = EXCLUDED.content_anchor_ids,
				text_preview = EXCLUDED.text_preview
		`, b.HeadingBlockID, b.DocVersionID, b.HeadingAnchorID, b.HeadingText,
			b.HeadingLevel, b.ContentAnchorIDs, b.TextPreview, string(b.SourceZone), string(b.Language))
	}
	return h.s.sendBatch(ctx, batch, len(blocks))
}

// --- FactStore ---

func (s *PostgresStore) Facts() interface {
	DeleteCreatedFromVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, facts []domain.Fact) error
	ListByStudy(ctx context.Context, studyID string) ([]domain.Fact, error)
} {
	return factStoreImpl{s}
}

type factStoreImpl struct{ s *PostgresStore }

func (f factStoreImpl) DeleteCreatedFromVersion(ctx context.Context, docVersionID string) error {
	_, err := f.s.pool.Exec(ctx, `DELETE FROM facts WHERE created_from_doc_version_id = $1`, docVersionID)
	return err
}

func (f factStoreImpl) BulkInsert(ctx context.Context, facts []domain.Fact) error {
	batch := &pgx.Batch{}
	for _, fact := range facts {
		batch.Queue(`
			INSERT INTO facts (study_id, fact_type, fact_key, value_json, unit, status, confidence,
			                    created_from_doc_version_id, meta)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
			ON CONFLICT (study_id, fact_type, fact_key) DO UPDATE SET
				value_json = EXCLUDED.value_json, unit = EXCLUDED.unit, status = EXCLUDED.status,
				confidence = EXCLUDED.confidence, created_from_doc_version_id = EXCLUDED.created_from_doc_version_id,
				meta = EXCLUDED.meta
		`, fact.StudyID, fact.FactType, fact.FactKey, jsonParam(fact.ValueJSON), fact.Unit, string(fact.Status),
			fact.Confidence, fact.CreatedFromDocVersionID, jsonParam(fact.Meta))
	}
	return f.s.sendBatch(ctx, batch, len(facts))
}

func (f factStoreImpl) ListByStudy(ctx context.Context, studyID string) ([]domain.Fact, error) {
	rows, err := f.s.pool.Query(ctx, `
		SELECT study_id, fact_type, fact_key, value_json, unit, status, confidence, created_from_doc_version_id, meta
		FROM facts WHERE study_id = $1
	`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Fact
	for rows.Next() {
		var fact domain.Fact
		var status string
		if err := rows.Scan(&fact.StudyID, &fact.FactType, &fact.FactKey, &fact.ValueJSON, &fact.Unit,
			&status, &fact.Confidence, &fact.CreatedFromDocVersionID, &fact.Meta); err != nil {
			return nil, err
		}
		fact.Status = domain.FactStatus(status)
		out = append(out, fact)
	}
	return out, rows.Err()
}

func jsonParam(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

// --- FactEvidenceStore ---

func (s *PostgresStore) FactEvidence() interface {
	DeleteCreatedFromVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, evidence []domain.FactEvidence) error
} {
	return factEvidenceStoreImpl{s}
}

type factEvidenceStoreImpl struct{ s *PostgresStore }

// DeleteCreatedFromVersion deletes evidence transitively, via the facts
// that were just deleted for this version — fact_evidence carries no
// doc_version_id column of its own (it is keyed by (study_id, fact_type,
// fact_key), matching domain.FactEvidence), so this is a join-delete
// against whatever facts this version created that still exist... in
// practice the orchestrator always calls FactStore.DeleteCreatedFromVersion
// first in the same cleanup phase, which leaves no matching fact row
// behind; this call is a defensive no-op covering a caller that deletes
// in the other order, by removing any now-orphaned evidence rows.
func (f factEvidenceStoreImpl) DeleteCreatedFromVersion(ctx context.Context, docVersionID string) error {
	_, err := f.s.pool.Exec(ctx, `
		DELETE FROM fact_evidence fe
		WHERE NOT EXISTS (
			SELECT 1 FROM facts f
			WHERE f.study_id = fe.study_id AND f.fact_type = fe.fact_type AND f.fact_key = fe.fact_key
		)
	`)
	_ = docVersionID
	return err
}

func (f factEvidenceStoreImpl) BulkInsert(ctx context.Context, evidence []domain.FactEvidence) error {
	batch := &pgx.Batch{}
	for _, e := range evidence {
		batch.Queue(`
			INSERT INTO fact_evidence (fact_type, fact_key, study_id, anchor_ref, role)
			VALUES ($1,$2,$3,$4,$5)
		`, e.FactType, e.FactKey, e.StudyID, e.AnchorRef, string(e.Role))
	}
	return f.s.sendBatch(ctx, batch, len(evidence))
}

// ListEvidenceByStudy returns every evidence row for a study, the
// fact->anchor linkage cmd/ingestctl's conflicts subcommand needs to feed
// conflicts.Detect's cross-document comparison.
func (s *PostgresStore) ListEvidenceByStudy(ctx context.Context, studyID string) ([]domain.FactEvidence, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT fact_type, fact_key, study_id, anchor_ref, role
		FROM fact_evidence WHERE study_id = $1
	`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.FactEvidence
	for rows.Next() {
		var e domain.FactEvidence
		var role string
		if err := rows.Scan(&e.FactType, &e.FactKey, &e.StudyID, &e.AnchorRef, &role); err != nil {
			return nil, err
		}
		e.Role = domain.EvidenceRole(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- TopicCatalog ---

func (s *PostgresStore) ListTopics(ctx context.Context, workspaceID string) ([]domain.Topic, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT workspace_id, topic_key, title, title_ru, profile, dissimilar_zones, embedding
		FROM topics WHERE workspace_id = $1
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Topic
	for rows.Next() {
		var t domain.Topic
		var zones []string
		if err := rows.Scan(&t.WorkspaceID, &t.TopicKey, &t.Title, &t.TitleRU, &t.Profile, &zones, &t.Embedding); err != nil {
			return nil, err
		}
		for _, z := range zones {
			t.DissimilarZones = append(t.DissimilarZones, domain.SourceZone(z))
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListZonePriors(ctx context.Context, workspaceID string) ([]domain.TopicZonePrior, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT workspace_id, topic_key, doc_type, zone, weight
		FROM topic_zone_priors WHERE workspace_id = $1
	`, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TopicZonePrior
	for rows.Next() {
		var p domain.TopicZonePrior
		var zone string
		if err := rows.Scan(&p.WorkspaceID, &p.TopicKey, &p.DocType, &zone, &p.Weight); err != nil {
			return nil, err
		}
		p.Zone = domain.SourceZone(zone)
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- AssignmentStore ---

func (s *PostgresStore) Assignments() interface {
	DeleteByDocVersion(ctx context.Context, docVersionID string) error
	BulkInsert(ctx context.Context, assignments []domain.BlockTopicAssignment) error
} {
	return assignmentStoreImpl{s}
}

type assignmentStoreImpl struct{ s *PostgresStore }

func (a assignmentStoreImpl) DeleteByDocVersion(ctx context.Context, docVersionID string) error {
	_, err := a.s.pool.Exec(ctx, `DELETE FROM block_topic_assignments WHERE doc_version_id = $1`, docVersionID)
	return err
}

func (a assignmentStoreImpl) BulkInsert(ctx context.Context, assignments []domain.BlockTopicAssignment) error {
	batch := &pgx.Batch{}
	for _, asg := range assignments {
		batch.Queue(`
			INSERT INTO block_topic_assignments (doc_version_id, heading_block_id, topic_key, confidence, debug)
			VALUES ($1,$2,$3,$4,$5)
			ON CONFLICT (doc_version_id, heading_block_id) DO UPDATE SET
				topic_key = EXCLUDED.topic_key, confidence = EXCLUDED.confidence, debug = EXCLUDED.debug
		`, asg.DocVersionID, asg.HeadingBlockID, asg.TopicKey, asg.Confidence, jsonParam(asg.Debug))
	}
	return a.s.sendBatch(ctx, batch, len(assignments))
}

// --- RunStore ---

func (s *PostgresStore) Create(ctx context.Context, run domain.IngestionRun) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_runs (run_id, doc_version_id, status, anchors_created, soa_found,
		                             soa_facts_written, chunks_created, mapping_status, warnings, errors,
		                             metrics, docx_summary, pipeline_config_hash, started_at, finished_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,NULL)
	`, run.RunID, run.DocVersionID, string(run.Status), run.AnchorsCreated, run.SoAFound,
		run.SoAFactsWritten, run.ChunksCreated, run.MappingStatus, run.Warnings, run.Errors,
		jsonParam(run.Metrics), jsonParam(run.DocxSummary), run.PipelineConfigHash, run.StartedAt)
	return err
}

func (s *PostgresStore) Update(ctx context.Context, run domain.IngestionRun) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE ingestion_runs SET
			status = $2, anchors_created = $3, soa_found = $4, soa_facts_written = $5,
			chunks_created = $6, mapping_status = $7, warnings = $8, errors = $9,
			metrics = $10, docx_summary = $11, finished_at = $12
		WHERE run_id = $1
	`, run.RunID, string(run.Status), run.AnchorsCreated, run.SoAFound, run.SoAFactsWritten,
		run.ChunksCreated, run.MappingStatus, run.Warnings, run.Errors,
		jsonParam(run.Metrics), jsonParam(run.DocxSummary), run.FinishedAt)
	return err
}

func (s *PostgresStore) GetLatest(ctx context.Context, docVersionID string) (domain.IngestionRun, bool, error) {
	var run domain.IngestionRun
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT run_id, doc_version_id, status, anchors_created, soa_found, soa_facts_written,
		       chunks_created, mapping_status, warnings, errors, metrics, docx_summary,
		       pipeline_config_hash, started_at, finished_at
		FROM ingestion_runs WHERE doc_version_id = $1
		ORDER BY started_at DESC LIMIT 1
	`, docVersionID).Scan(&run.RunID, &run.DocVersionID, &status, &run.AnchorsCreated, &run.SoAFound,
		&run.SoAFactsWritten, &run.ChunksCreated, &run.MappingStatus, &run.Warnings, &run.Errors,
		&run.Metrics, &run.DocxSummary, &run.PipelineConfigHash, &run.StartedAt, &run.FinishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.IngestionRun{}, false, nil
	}
	if err != nil {
		return domain.IngestionRun{}, false, err
	}
	run.Status = domain.RunStatus(status)
	return run, true, nil
}

// --- C11/C12 on-demand cross-document operations (cmd/ingestctl) ---

// SaveAnchorMatches appends the aligner's output for one (from, to)
// version pair. Callers that want a clean rebuild should delete matches
// for the pair themselves first; re-running alignment without doing so
// accumulates duplicates, mirroring the orchestrator's own "caller decides
// when to force a rebuild" stance for C14.
func (s *PostgresStore) SaveAnchorMatches(ctx context.Context, matches []domain.AnchorMatch) error {
	batch := &pgx.Batch{}
	for _, m := range matches {
		batch.Queue(`
			INSERT INTO anchor_matches (document_id, from_doc_version_id, to_doc_version_id,
			                             from_anchor_id, to_anchor_id, score, method, meta)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, m.DocumentID, m.FromDocVersionID, m.ToDocVersionID, m.FromAnchorID, m.ToAnchorID,
			m.Score, string(m.Method), jsonParam(matchMetaToMap(m.Meta)))
	}
	return s.sendBatch(ctx, batch, len(matches))
}

// ListAnchorMatchesByStudy unions anchor matches across every document
// belonging to a study, joined through documents.study_id — conflicts.Detect's
// cross-document comparison spans every document pair in the study, not
// just one document's own version history.
func (s *PostgresStore) ListAnchorMatchesByStudy(ctx context.Context, studyID string) ([]domain.AnchorMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT am.document_id, am.from_doc_version_id, am.to_doc_version_id,
		       am.from_anchor_id, am.to_anchor_id, am.score, am.method, am.meta
		FROM anchor_matches am
		JOIN documents d ON d.document_id = am.document_id
		WHERE d.study_id = $1
	`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AnchorMatch
	for rows.Next() {
		var m domain.AnchorMatch
		var method string
		var meta map[string]any
		if err := rows.Scan(&m.DocumentID, &m.FromDocVersionID, &m.ToDocVersionID,
			&m.FromAnchorID, &m.ToAnchorID, &m.Score, &method, &meta); err != nil {
			return nil, err
		}
		m.Method = domain.MatchMethod(method)
		m.Meta = matchMetaFromMap(meta)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListAnchorMatches(ctx context.Context, documentID string) ([]domain.AnchorMatch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT document_id, from_doc_version_id, to_doc_version_id, from_anchor_id, to_anchor_id, score, method, meta
		FROM anchor_matches WHERE document_id = $1
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AnchorMatch
	for rows.Next() {
		var m domain.AnchorMatch
		var method string
		var meta map[string]any
		if err := rows.Scan(&m.DocumentID, &m.FromDocVersionID, &m.ToDocVersionID,
			&m.FromAnchorID, &m.ToAnchorID, &m.Score, &method, &meta); err != nil {
			return nil, err
		}
		m.Method = domain.MatchMethod(method)
		m.Meta = matchMetaFromMap(meta)
		out = append(out, m)
	}
	return out, rows.Err()
}

func matchMetaToMap(m domain.MatchMeta) map[string]any {
	return map[string]any{
		"embedding_score": m.EmbeddingScore, "fuzzy_score": m.FuzzyScore, "zone_score": m.ZoneScore,
		"path_score": m.PathScore, "path_penalty": m.PathPenalty, "zone_bonus": m.ZoneBonus,
		"language_bonus": m.LanguageBonus,
	}
}

func matchMetaFromMap(m map[string]any) domain.MatchMeta {
	f := func(k string) float64 {
		v, _ := m[k].(float64)
		return v
	}
	return domain.MatchMeta{
		EmbeddingScore: f("embedding_score"), FuzzyScore: f("fuzzy_score"), ZoneScore: f("zone_score"),
		PathScore: f("path_score"), PathPenalty: f("path_penalty"), ZoneBonus: f("zone_bonus"),
		LanguageBonus: f("language_bonus"),
	}
}

// SaveConflicts upserts conflicts on their natural ConflictID key and
// appends their items; conflicts.Detect derives ConflictID deterministically,
// so re-running detection for the same inputs is already idempotent here.
func (s *PostgresStore) SaveConflicts(ctx context.Context, conflicts []domain.Conflict, items []domain.ConflictItem) error {
	batch := &pgx.Batch{}
	for _, c := range conflicts {
		batch.Queue(`
			INSERT INTO conflicts (conflict_id, study_id, type, severity, status, title, description)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (conflict_id) DO UPDATE SET
				severity = EXCLUDED.severity, status = EXCLUDED.status,
				title = EXCLUDED.title, description = EXCLUDED.description
		`, c.ConflictID, c.StudyID, string(c.Type), string(c.Severity), string(c.Status), c.Title, c.Description)
	}
	for _, it := range items {
		batch.Queue(`
			INSERT INTO conflict_items (conflict_id, left_anchor_ref, right_anchor_ref, left_fact_key, right_fact_key, evidence)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, it.ConflictID, it.LeftAnchorRef, it.RightAnchorRef, it.LeftFactKey, it.RightFactKey, jsonParam(it.Evidence))
	}
	return s.sendBatch(ctx, batch, len(conflicts)+len(items))
}

func (s *PostgresStore) ListConflicts(ctx context.Context, studyID string) ([]domain.Conflict, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT conflict_id, study_id, type, severity, status, title, description
		FROM conflicts WHERE study_id = $1 ORDER BY conflict_id
	`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Conflict
	for rows.Next() {
		var c domain.Conflict
		var typ, severity, status string
		if err := rows.Scan(&c.ConflictID, &c.StudyID, &typ, &severity, &status, &c.Title, &c.Description); err != nil {
			return nil, err
		}
		c.Type, c.Severity, c.Status = domain.ConflictType(typ), domain.ConflictSeverity(severity), domain.ConflictStatus(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

// SaveTasks upserts tasks raised by the conflict detector on their
// TaskID key.
func (s *PostgresStore) SaveTasks(ctx context.Context, tasks []domain.Task) error {
	batch := &pgx.Batch{}
	for _, t := range tasks {
		batch.Queue(`
			INSERT INTO tasks (task_id, study_id, type, status, assigned_to, payload)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (task_id) DO UPDATE SET
				status = EXCLUDED.status, assigned_to = EXCLUDED.assigned_to, payload = EXCLUDED.payload
		`, t.TaskID, t.StudyID, string(t.Type), string(t.Status), t.AssignedTo, jsonParam(t.Payload))
	}
	return s.sendBatch(ctx, batch, len(tasks))
}

func (s *PostgresStore) ListTasks(ctx context.Context, studyID string) ([]domain.Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT task_id, study_id, type, status, assigned_to, payload
		FROM tasks WHERE study_id = $1 ORDER BY task_id
	`, studyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Task
	for rows.Next() {
		var t domain.Task
		var typ, status string
		if err := rows.Scan(&t.TaskID, &t.StudyID, &typ, &status, &t.AssignedTo, &t.Payload); err != nil {
			return nil, err
		}
		t.Type, t.Status = domain.TaskType(typ), domain.TaskStatus(status)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListAnchorsByDocVersion and ListChunksByDocVersion back cmd/ingestctl's
// on-demand alignment: C11 needs two already-ingested versions' anchors
// (and chunk embeddings, for embedding-based scoring) rather than a live
// re-parse of the source file.
func (s *PostgresStore) ListAnchorsByDocVersion(ctx context.Context, docVersionID string) ([]domain.Anchor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT doc_version_id, anchor_id, section_path, content_type, ordinal,
		       text_raw, text_norm, text_hash, location, source_zone, language, heading_level
		FROM anchors WHERE doc_version_id = $1 ORDER BY ordinal
	`, docVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Anchor
	for rows.Next() {
		var a domain.Anchor
		var contentType, sourceZone, language string
		if err := rows.Scan(&a.DocVersionID, &a.AnchorID, &a.SectionPath, &contentType, &a.Ordinal,
			&a.TextRaw, &a.TextNorm, &a.TextHash, &a.Location, &sourceZone, &language, &a.HeadingLevel); err != nil {
			return nil, err
		}
		a.ContentType, a.SourceZone, a.Language = domain.ContentType(contentType), domain.SourceZone(sourceZone), domain.Language(language)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListChunksByDocVersion(ctx context.Context, docVersionID string) ([]domain.Chunk, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, doc_version_id, section_path, anchor_ids, text, embedding, token_estimate, source_zone, language
		FROM chunks WHERE doc_version_id = $1
	`, docVersionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Chunk
	for rows.Next() {
		var c domain.Chunk
		var sourceZone, language string
		if err := rows.Scan(&c.ChunkID, &c.DocVersionID, &c.SectionPath, &c.AnchorIDs, &c.Text, &c.Embedding,
			&c.TokenEst, &sourceZone, &language); err != nil {
			return nil, err
		}
		c.SourceZone, c.Language = domain.SourceZone(sourceZone), domain.Language(language)
		out = append(out, c)
	}
	return out, rows.Err()
}

// sendBatch executes a batch of n statements and drains every result,
// surfacing the first error encountered. A zero-length batch is a no-op.
func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	if n == 0 {
		return nil
	}
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch statement %d: %w", i, err)
		}
	}
	return nil
}
