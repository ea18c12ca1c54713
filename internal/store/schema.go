package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// bootstrap creates every table this package's PostgresStore depends on,
// following internal/persistence/databases/postgres_search.go's and
// postgres_vector.go's "best-effort CREATE IF NOT EXISTS for dev" stance
// rather than an external migration tool. JSONB carries every
// nested/variable-shape field (Location, ValueJSON, Meta, Metrics,
// Debug, Evidence, Payload); TEXT[] carries ordered string lists.
func bootstrap(ctx context.Context, p *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			document_id TEXT PRIMARY KEY,
			study_id TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			title TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS document_versions (
			doc_version_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL REFERENCES documents(document_id),
			source_path TEXT NOT NULL,
			version_no INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS anchors (
			doc_version_id TEXT NOT NULL,
			anchor_id TEXT NOT NULL,
			section_path TEXT NOT NULL,
			content_type TEXT NOT NULL,
			ordinal INT NOT NULL,
			text_raw TEXT NOT NULL,
			text_norm TEXT NOT NULL,
			text_hash TEXT NOT NULL,
			location JSONB NOT NULL DEFAULT '{}'::jsonb,
			source_zone TEXT NOT NULL,
			language TEXT NOT NULL,
			heading_level INT NOT NULL DEFAULT 0,
			PRIMARY KEY (doc_version_id, anchor_id)
		)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			chunk_id TEXT PRIMARY KEY,
			doc_version_id TEXT NOT NULL,
			section_path TEXT NOT NULL,
			anchor_ids TEXT[] NOT NULL DEFAULT '{}',
			text TEXT NOT NULL,
			embedding JSONB,
			token_estimate INT NOT NULL DEFAULT 0,
			source_zone TEXT NOT NULL,
			language TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS heading_blocks (
			heading_block_id TEXT PRIMARY KEY,
			doc_version_id TEXT NOT NULL,
			heading_anchor_id TEXT NOT NULL,
			heading_text TEXT NOT NULL,
			heading_level INT NOT NULL,
			content_anchor_ids TEXT[] NOT NULL DEFAULT '{}',
			text_preview TEXT NOT NULL,
			source_zone TEXT NOT NULL,
			language TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS facts (
			study_id TEXT NOT NULL,
			fact_type TEXT NOT NULL,
			fact_key TEXT NOT NULL,
			value_json JSONB,
			unit TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_from_doc_version_id TEXT NOT NULL,
			meta JSONB,
			PRIMARY KEY (study_id, fact_type, fact_key)
		)`,
		`CREATE TABLE IF NOT EXISTS fact_evidence (
			fact_type TEXT NOT NULL,
			fact_key TEXT NOT NULL,
			study_id TEXT NOT NULL,
			anchor_ref TEXT NOT NULL,
			role TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS topics (
			workspace_id TEXT NOT NULL,
			topic_key TEXT NOT NULL,
			title TEXT NOT NULL,
			title_ru TEXT NOT NULL DEFAULT '',
			profile JSONB NOT NULL DEFAULT '{}'::jsonb,
			dissimilar_zones TEXT[] NOT NULL DEFAULT '{}',
			embedding JSONB,
			PRIMARY KEY (workspace_id, topic_key)
		)`,
		`CREATE TABLE IF NOT EXISTS topic_zone_priors (
			workspace_id TEXT NOT NULL,
			topic_key TEXT NOT NULL,
			doc_type TEXT NOT NULL,
			zone TEXT NOT NULL,
			weight DOUBLE PRECISION NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS block_topic_assignments (
			doc_version_id TEXT NOT NULL,
			heading_block_id TEXT NOT NULL,
			topic_key TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			debug JSONB,
			PRIMARY KEY (doc_version_id, heading_block_id)
		)`,
		`CREATE TABLE IF NOT EXISTS ingestion_runs (
			run_id TEXT PRIMARY KEY,
			doc_version_id TEXT NOT NULL,
			status TEXT NOT NULL,
			anchors_created INT NOT NULL DEFAULT 0,
			soa_found BOOLEAN NOT NULL DEFAULT FALSE,
			soa_facts_written INT NOT NULL DEFAULT 0,
			chunks_created INT NOT NULL DEFAULT 0,
			mapping_status TEXT NOT NULL DEFAULT '',
			warnings TEXT[] NOT NULL DEFAULT '{}',
			errors TEXT[] NOT NULL DEFAULT '{}',
			metrics JSONB,
			docx_summary JSONB,
			pipeline_config_hash TEXT NOT NULL DEFAULT '',
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS ingestion_runs_doc_version_idx ON ingestion_runs (doc_version_id, started_at DESC)`,
		// C11/C12 on-demand cross-document operations persist here; C14
		// itself never touches these tables.
		`CREATE TABLE IF NOT EXISTS anchor_matches (
			document_id TEXT NOT NULL,
			from_doc_version_id TEXT NOT NULL,
			to_doc_version_id TEXT NOT NULL,
			from_anchor_id TEXT NOT NULL,
			to_anchor_id TEXT NOT NULL,
			score DOUBLE PRECISION NOT NULL,
			method TEXT NOT NULL,
			meta JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			conflict_id TEXT PRIMARY KEY,
			study_id TEXT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			status TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS conflict_items (
			conflict_id TEXT NOT NULL REFERENCES conflicts(conflict_id),
			left_anchor_ref TEXT NOT NULL DEFAULT '',
			right_anchor_ref TEXT NOT NULL DEFAULT '',
			left_fact_key TEXT NOT NULL DEFAULT '',
			right_fact_key TEXT NOT NULL DEFAULT '',
			evidence JSONB
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			task_id TEXT PRIMARY KEY,
			study_id TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			assigned_to TEXT NOT NULL DEFAULT '',
			payload JSONB
		)`,
	}
	for _, stmt := range stmts {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
