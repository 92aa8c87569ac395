// Package vectorstore implements the per-project vector index (§4.4/§4.5),
// grounded on the teacher's internal/store/local.go (SQLite via
// mattn/go-sqlite3, one store per database file) and
// internal/store/vector_store.go (StoreVectorWithEmbedding /
// vectorRecallVec). When the sqlite-vec extension is compiled in (via the
// sqlite_vec build tag, as in the teacher's internal/store/init_vec.go),
// search uses its vec0 virtual table; otherwise it falls back to an
// in-process brute-force cosine scan, matching the teacher's graceful
// degradation when the CGo extension isn't available.
package vectorstore

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	_ "github.com/mattn/go-sqlite3"

	"github.com/codebase-gardener/gardener/internal/errs"
	"github.com/codebase-gardener/gardener/internal/gardenertypes"
	"github.com/codebase-gardener/gardener/internal/logging"
)

// Store is a single project's vector index, backed by one SQLite file.
type Store struct {
	db        *sql.DB
	dim       int
	hasVecExt bool
	path      string
}

// Open creates or reopens the vector store at path, sized for vectors of
// `dim` dimensions. Schema creation is idempotent.
func Open(path string, dim int) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // single-writer per project (§5 concurrency model)

	s := &Store{db: db, dim: dim, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	if initVecIndex(db, dim) {
		s.hasVecExt = true
		logging.Get(logging.CategoryVectorStore).Info("sqlite-vec ANN index enabled for %s", path)
	} else {
		logging.Get(logging.CategoryVectorStore).Info("sqlite-vec unavailable, using brute-force search for %s", path)
	}

	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS vectors (
	chunk_id   TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	file_path  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	embedding  BLOB NOT NULL,
	metadata   TEXT NOT NULL,
	text       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_file_path ON vectors(file_path);
`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Upsert stores or replaces one chunk's vector and metadata.
func (s *Store) Upsert(chunk gardenertypes.Chunk, vector []float32, metadata map[string]interface{}) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "marshal metadata", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO vectors (chunk_id, project_id, file_path, kind, embedding, metadata, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET
			project_id=excluded.project_id, file_path=excluded.file_path, kind=excluded.kind,
			embedding=excluded.embedding, metadata=excluded.metadata, text=excluded.text`,
		chunk.ID, chunk.ProjectID, chunk.FilePath, string(chunk.Kind),
		encodeFloat32Slice(vector), string(metaJSON), chunk.Text,
	)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "upsert vector", err)
	}

	if s.hasVecExt {
		if err := upsertVecIndex(s.db, chunk.ID, vector, chunk.Text, string(metaJSON)); err != nil {
			logging.Get(logging.CategoryVectorStore).Warn("vec_index upsert failed for %s: %v", chunk.ID, err)
		}
	}
	return nil
}

// UpsertBatch stores many chunks within a single transaction.
func (s *Store) UpsertBatch(items []BatchItem) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO vectors (chunk_id, project_id, file_path, kind, embedding, metadata, text)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET
			project_id=excluded.project_id, file_path=excluded.file_path, kind=excluded.kind,
			embedding=excluded.embedding, metadata=excluded.metadata, text=excluded.text`)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "prepare batch upsert", err)
	}
	defer stmt.Close()

	for _, item := range items {
		metaJSON, err := json.Marshal(item.Metadata)
		if err != nil {
			return errs.Wrap(errs.KindPersistence, "marshal metadata", err)
		}
		if _, err := stmt.Exec(item.Chunk.ID, item.Chunk.ProjectID, item.Chunk.FilePath, string(item.Chunk.Kind),
			encodeFloat32Slice(item.Vector), string(metaJSON), item.Chunk.Text); err != nil {
			return errs.Wrap(errs.KindPersistence, "batch upsert row", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.KindPersistence, "commit batch upsert", err)
	}

	if s.hasVecExt {
		for _, item := range items {
			metaJSON, _ := json.Marshal(item.Metadata)
			if err := upsertVecIndex(s.db, item.Chunk.ID, item.Vector, item.Chunk.Text, string(metaJSON)); err != nil {
				logging.Get(logging.CategoryVectorStore).Warn("vec_index batch upsert failed for %s: %v", item.Chunk.ID, err)
			}
		}
	}
	return nil
}

// BatchItem is one row of a UpsertBatch call.
type BatchItem struct {
	Chunk    gardenertypes.Chunk
	Vector   []float32
	Metadata map[string]interface{}
}

// Delete removes a chunk's vector and metadata. Deleting an id that is not
// present is not an error (§4.4 idempotence).
func (s *Store) Delete(chunkID string) error {
	if _, err := s.db.Exec(`DELETE FROM vectors WHERE chunk_id = ?`, chunkID); err != nil {
		return errs.Wrap(errs.KindPersistence, "delete vector", err)
	}
	if s.hasVecExt {
		if err := deleteVecIndex(s.db, chunkID); err != nil {
			logging.Get(logging.CategoryVectorStore).Warn("vec_index delete failed for %s: %v", chunkID, err)
		}
	}
	return nil
}

// DeleteByFilePath removes every chunk recorded for a file, used when a
// file is deleted or re-chunked from scratch.
func (s *Store) DeleteByFilePath(filePath string) error {
	rows, err := s.db.Query(`SELECT chunk_id FROM vectors WHERE file_path = ?`, filePath)
	if err != nil {
		return errs.Wrap(errs.KindPersistence, "query chunk ids for delete", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	rows.Close()

	if _, err := s.db.Exec(`DELETE FROM vectors WHERE file_path = ?`, filePath); err != nil {
		return errs.Wrap(errs.KindPersistence, "delete vectors by file", err)
	}
	if s.hasVecExt {
		for _, id := range ids {
			_ = deleteVecIndex(s.db, id)
		}
	}
	return nil
}

// Count returns the number of chunks currently indexed.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&n)
	return n, err
}

// Search finds the topK chunks most similar to query, optionally
// restricted by an exact-match metadata filter. Results are ordered by
// descending similarity with chunk id as a lexicographic tiebreak, so a
// repeated search over an unchanged index is deterministic.
func (s *Store) Search(query []float32, topK int, minScore float64, metadataFilter map[string]string) ([]gardenertypes.RetrievedChunk, error) {
	if s.hasVecExt {
		results, err := searchVecIndex(s.db, query, topK, metadataFilter)
		if err == nil {
			return filterAndSort(results, minScore), nil
		}
		logging.Get(logging.CategoryVectorStore).Warn("vec_index search failed, falling back to brute force: %v", err)
	}
	return s.bruteForceSearch(query, topK, minScore, metadataFilter)
}

func (s *Store) bruteForceSearch(query []float32, topK int, minScore float64, metadataFilter map[string]string) ([]gardenertypes.RetrievedChunk, error) {
	rows, err := s.db.Query(`SELECT chunk_id, embedding, metadata FROM vectors`)
	if err != nil {
		return nil, errs.Wrap(errs.KindPersistence, "scan vectors", err)
	}
	defer rows.Close()

	var results []gardenertypes.RetrievedChunk
	for rows.Next() {
		var chunkID, metaJSON string
		var blob []byte
		if err := rows.Scan(&chunkID, &blob, &metaJSON); err != nil {
			continue
		}

		var meta map[string]interface{}
		_ = json.Unmarshal([]byte(metaJSON), &meta)
		if !matchesFilter(meta, metadataFilter) {
			continue
		}

		vec := decodeFloat32Slice(blob)
		score := cosineSimilarity(query, vec)
		results = append(results, gardenertypes.RetrievedChunk{ChunkID: chunkID, Score: score, Metadata: meta})
	}

	sorted := filterAndSort(results, minScore)
	if topK > 0 && topK < len(sorted) {
		sorted = sorted[:topK]
	}
	return sorted, nil
}

func filterAndSort(results []gardenertypes.RetrievedChunk, minScore float64) []gardenertypes.RetrievedChunk {
	filtered := results[:0]
	for _, r := range results {
		if r.Score >= minScore {
			filtered = append(filtered, r)
		}
	}
	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Score != filtered[j].Score {
			return filtered[i].Score > filtered[j].Score
		}
		return filtered[i].ChunkID < filtered[j].ChunkID
	})
	return filtered
}

func decodeMetadata(metaJSON string) map[string]interface{} {
	var meta map[string]interface{}
	_ = json.Unmarshal([]byte(metaJSON), &meta)
	return meta
}

func matchesFilter(meta map[string]interface{}, filter map[string]string) bool {
	for k, v := range filter {
		got, ok := meta[k]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != v {
			return false
		}
	}
	return true
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// encodeFloat32Slice packs a vector into little-endian bytes, matching the
// teacher's encodeFloat32Slice in internal/store/vector_store.go.
func encodeFloat32Slice(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeFloat32Slice(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}
