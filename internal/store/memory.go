package store

import (
	"context"
	"sort"
	"sync"

	"trialgraph/internal/domain"
)

// MemoryStore is a mutex-guarded, slice/map-backed implementation of every
// store interface internal/ingestion and cmd/ingestctl need. Grounded on
// internal/persistence/databases/memory_search.go's and memory_vector.go's
// "plain Go maps behind a mutex" shape, generalized from that package's
// generic FullTextSearch/VectorStore contract to this repo's typed
// domain tables. Intended for tests, local development without a
// database, and the in-process default for cmd/ingestctl.
type MemoryStore struct {
	mu sync.RWMutex

	documents  map[string]domain.Document
	versions   map[string]domain.DocumentVersion
	anchors    map[string][]domain.Anchor // keyed by doc_version_id
	chunks     map[string][]domain.Chunk
	blocks     map[string][]domain.HeadingBlock
	facts      map[string]domain.Fact // keyed by Fact.Key()
	evidence   []domain.FactEvidence
	topics     map[string][]domain.Topic         // keyed by workspace_id
	zonePriors map[string][]domain.TopicZonePrior // keyed by workspace_id
	assigns    map[string][]domain.BlockTopicAssignment
	runs       []domain.IngestionRun

	anchorMatches []domain.AnchorMatch
	conflicts     map[string]domain.Conflict
	conflictItems []domain.ConflictItem
	tasks         map[string]domain.Task
}

// NewMemoryStore returns an empty MemoryStore, ready to have Documents and
// DocumentVersions seeded via PutDocument/PutDocumentVersion before use.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:  map[string]domain.Document{},
		versions:   map[string]domain.DocumentVersion{},
		anchors:    map[string][]domain.Anchor{},
		chunks:     map[string][]domain.Chunk{},
		blocks:     map[string][]domain.HeadingBlock{},
		facts:      map[string]domain.Fact{},
		topics:     map[string][]domain.Topic{},
		zonePriors: map[string][]domain.TopicZonePrior{},
		assigns:    map[string][]domain.BlockTopicAssignment{},
		conflicts:  map[string]domain.Conflict{},
		tasks:      map[string]domain.Task{},
	}
}

// PutDocument and PutDocumentVersion seed the catalog rows a real database
// would already hold; ingestion only ever reads these, it never writes
// them back.
func (m *MemoryStore) PutDocument(d domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[d.DocumentID] = d
}

func (m *MemoryStore) PutDocumentVersion(v domain.DocumentVersion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.versions[v.DocVersionID] = v
}

// ListVersionIDs mirrors PostgresStore.ListVersionIDs, sorted for
// deterministic test/worker-loop iteration order.
func (m *MemoryStore) ListVersionIDs(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.versions))
	for id := range m.versions {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// PutTopic and PutZonePrior seed the workspace topic catalog.
func (m *MemoryStore) PutTopic(t domain.Topic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.topics[t.WorkspaceID] = append(m.topics[t.WorkspaceID], t)
}

func (m *MemoryStore) PutZonePrior(p domain.TopicZonePrior) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zonePriors[p.WorkspaceID] = append(m.zonePriors[p.WorkspaceID], p)
}

// --- VersionLookup ---

func (m *MemoryStore) Get(_ context.Context, docVersionID string) (domain.DocumentVersion, domain.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.versions[docVersionID]
	if !ok {
		return domain.DocumentVersion{}, domain.Document{}, domain.ErrFileMissing
	}
	d, ok := m.documents[v.DocumentID]
	if !ok {
		return domain.DocumentVersion{}, domain.Document{}, domain.ErrFileMissing
	}
	return v, d, nil
}

// --- AnchorStore ---

func (m *MemoryStore) DeleteByDocVersion(_ context.Context, docVersionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.anchors, docVersionID)
	return nil
}

func (m *MemoryStore) BulkInsert(_ context.Context, anchors []domain.Anchor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range anchors {
		m.anchors[a.DocVersionID] = append(m.anchors[a.DocVersionID], a)
	}
	return nil
}

// --- ChunkStore ---

func (m *MemoryStore) Chunks() memChunkStore { return memChunkStore{m} }

type memChunkStore struct{ m *MemoryStore }

func (c memChunkStore) DeleteByDocVersion(_ context.Context, docVersionID string) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	delete(c.m.chunks, docVersionID)
	return nil
}

func (c memChunkStore) BulkInsert(_ context.Context, chunks []domain.Chunk) error {
	c.m.mu.Lock()
	defer c.m.mu.Unlock()
	for _, ch := range chunks {
		c.m.chunks[ch.DocVersionID] = append(c.m.chunks[ch.DocVersionID], ch)
	}
	return nil
}

// --- HeadingBlockStore ---

func (m *MemoryStore) HeadingBlocks() memHeadingBlockStore { return memHeadingBlockStore{m} }

type memHeadingBlockStore struct{ m *MemoryStore }

func (h memHeadingBlockStore) DeleteByDocVersion(_ context.Context, docVersionID string) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	delete(h.m.blocks, docVersionID)
	return nil
}

func (h memHeadingBlockStore) BulkInsert(_ context.Context, blocks []domain.HeadingBlock) error {
	h.m.mu.Lock()
	defer h.m.mu.Unlock()
	for _, b := range blocks {
		h.m.blocks[b.DocVersionID] = append(h.m.blocks[b.DocVersionID], b)
	}
	return nil
}

// --- FactStore ---

func (m *MemoryStore) Facts() memFactStore { return memFactStore{m} }

type memFactStore struct{ m *MemoryStore }

func (f memFactStore) DeleteCreatedFromVersion(_ context.Context, docVersionID string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for key, fact := range f.m.facts {
		if fact.CreatedFromDocVersionID == docVersionID {
			delete(f.m.facts, key)
		}
	}
	return nil
}

func (f memFactStore) BulkInsert(_ context.Context, facts []domain.Fact) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	for _, fact := range facts {
		f.m.facts[fact.Key()] = fact
	}
	return nil
}

func (f memFactStore) ListByStudy(_ context.Context, studyID string) ([]domain.Fact, error) {
	f.m.mu.RLock()
	defer f.m.mu.RUnlock()
	var out []domain.Fact
	for _, fact := range f.m.facts {
		if fact.StudyID == studyID {
			out = append(out, fact)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

// --- FactEvidenceStore ---

func (m *MemoryStore) FactEvidence() memFactEvidenceStore { return memFactEvidenceStore{m} }

type memFactEvidenceStore struct{ m *MemoryStore }

// DeleteCreatedFromVersion drops evidence whose owning fact no longer
// exists, mirroring PostgresStore's orphan-sweep (fact_evidence carries no
// doc_version_id column of its own; see domain.FactEvidence).
func (f memFactEvidenceStore) DeleteCreatedFromVersion(_ context.Context, _ string) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	out := f.m.evidence[:0]
	for _, e := range f.m.evidence {
		if _, ok := f.m.facts[e.StudyID+"\x00"+e.FactType+"\x00"+e.FactKey]; ok {
			out = append(out, e)
		}
	}
	f.m.evidence = out
	return nil
}

func (f memFactEvidenceStore) BulkInsert(_ context.Context, evidence []domain.FactEvidence) error {
	f.m.mu.Lock()
	defer f.m.mu.Unlock()
	f.m.evidence = append(f.m.evidence, evidence...)
	return nil
}

// ListEvidenceByStudy mirrors PostgresStore.ListEvidenceByStudy for the
// in-memory backend.
func (m *MemoryStore) ListEvidenceByStudy(_ context.Context, studyID string) ([]domain.FactEvidence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.FactEvidence
	for _, e := range m.evidence {
		if e.StudyID == studyID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- TopicCatalog ---

func (m *MemoryStore) ListTopics(_ context.Context, workspaceID string) ([]domain.Topic, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Topic{}, m.topics[workspaceID]...), nil
}

func (m *MemoryStore) ListZonePriors(_ context.Context, workspaceID string) ([]domain.TopicZonePrior, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.TopicZonePrior{}, m.zonePriors[workspaceID]...), nil
}

// --- AssignmentStore ---

func (m *MemoryStore) Assignments() memAssignmentStore { return memAssignmentStore{m} }

type memAssignmentStore struct{ m *MemoryStore }

func (a memAssignmentStore) DeleteByDocVersion(_ context.Context, docVersionID string) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	delete(a.m.assigns, docVersionID)
	return nil
}

func (a memAssignmentStore) BulkInsert(_ context.Context, assignments []domain.BlockTopicAssignment) error {
	a.m.mu.Lock()
	defer a.m.mu.Unlock()
	for _, asg := range assignments {
		a.m.assigns[asg.DocVersionID] = append(a.m.assigns[asg.DocVersionID], asg)
	}
	return nil
}

// --- RunStore ---

func (m *MemoryStore) Create(_ context.Context, run domain.IngestionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryStore) Update(_ context.Context, run domain.IngestionRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.runs {
		if existing.RunID == run.RunID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *MemoryStore) GetLatest(_ context.Context, docVersionID string) (domain.IngestionRun, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest domain.IngestionRun
	found := false
	for _, run := range m.runs {
		if run.DocVersionID == docVersionID && (!found || run.StartedAt.After(latest.StartedAt)) {
			latest = run
			found = true
		}
	}
	return latest, found, nil
}

// --- cross-document operations (C11/C12, via cmd/ingestctl) ---

// SaveAnchorMatches appends the aligner's output for one (from, to)
// version pair. Re-running alignment for the same pair is expected to
// accumulate duplicates unless the caller clears first; callers that want
// a clean rebuild should filter by FromDocVersionID/ToDocVersionID before
// calling this, mirroring how C14's cleanup phase handles anchors/facts.
func (m *MemoryStore) SaveAnchorMatches(_ context.Context, matches []domain.AnchorMatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anchorMatches = append(m.anchorMatches, matches...)
	return nil
}

// ListAnchorMatchesByStudy mirrors PostgresStore.ListAnchorMatchesByStudy,
// resolving each match's document_id against the owning study in-memory.
func (m *MemoryStore) ListAnchorMatchesByStudy(_ context.Context, studyID string) ([]domain.AnchorMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AnchorMatch
	for _, match := range m.anchorMatches {
		if doc, ok := m.documents[match.DocumentID]; ok && doc.StudyID == studyID {
			out = append(out, match)
		}
	}
	return out, nil
}

func (m *MemoryStore) ListAnchorMatches(_ context.Context, documentID string) ([]domain.AnchorMatch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.AnchorMatch
	for _, match := range m.anchorMatches {
		if match.DocumentID == documentID {
			out = append(out, match)
		}
	}
	return out, nil
}

// SaveConflicts upserts conflicts and appends their items; ConflictID is
// the natural upsert key (conflicts.detect.go derives it deterministically
// from study/type/title/description, so re-running detection is already
// idempotent at this layer).
func (m *MemoryStore) SaveConflicts(_ context.Context, conflicts []domain.Conflict, items []domain.ConflictItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range conflicts {
		m.conflicts[c.ConflictID] = c
	}
	m.conflictItems = append(m.conflictItems, items...)
	return nil
}

func (m *MemoryStore) ListConflicts(_ context.Context, studyID string) ([]domain.Conflict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Conflict
	for _, c := range m.conflicts {
		if c.StudyID == studyID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConflictID < out[j].ConflictID })
	return out, nil
}

// SaveTasks upserts tasks raised by the conflict detector.
func (m *MemoryStore) SaveTasks(_ context.Context, tasks []domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tasks {
		m.tasks[t.TaskID] = t
	}
	return nil
}

func (m *MemoryStore) ListTasks(_ context.Context, studyID string) ([]domain.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Task
	for _, t := range m.tasks {
		if t.StudyID == studyID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out, nil
}

// ListAnchorsByDocVersion and ListChunksByDocVersion back cmd/ingestctl's
// on-demand alignment: C11 needs two versions' already-persisted anchors
// (and, for embedding-based scoring, their chunk embeddings) rather than a
// live parse.
func (m *MemoryStore) ListAnchorsByDocVersion(_ context.Context, docVersionID string) ([]domain.Anchor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Anchor{}, m.anchors[docVersionID]...), nil
}

func (m *MemoryStore) ListChunksByDocVersion(_ context.Context, docVersionID string) ([]domain.Chunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.Chunk{}, m.chunks[docVersionID]...), nil
}
