//go:build sqlite_vec && cgo

// This file wires the sqlite-vec virtual table, grounded on the teacher's
// internal/store/init_vec.go (vec.Auto() driver registration) and the
// initVecIndex/vectorRecallVec functions in
// internal/store/vector_store.go.
package vectorstore

import (
	"database/sql"
	"fmt"

	vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
)

func init() {
	vec.Auto()
}

// HasVectorExtension reports whether this build links the sqlite-vec ANN
// extension, making the component registry's vector_storage capability
// available.
func HasVectorExtension() bool { return true }

func initVecIndex(db *sql.DB, dim int) bool {
	_, err := db.Exec(fmt.Sprintf(
		`CREATE VIRTUAL TABLE IF NOT EXISTS vec_index USING vec0(chunk_id TEXT PRIMARY KEY, embedding float[%d], content TEXT, metadata TEXT)`, dim))
	return err == nil
}

func upsertVecIndex(db *sql.DB, chunkID string, vector []float32, content, metadataJSON string) error {
	_, err := db.Exec(
		`INSERT INTO vec_index (chunk_id, embedding, content, metadata) VALUES (?, ?, ?, ?)
		 ON CONFLICT(chunk_id) DO UPDATE SET embedding=excluded.embedding, content=excluded.content, metadata=excluded.metadata`,
		chunkID, encodeFloat32Slice(vector), content, metadataJSON)
	return err
}

func deleteVecIndex(db *sql.DB, chunkID string) error {
	_, err := db.Exec(`DELETE FROM vec_index WHERE chunk_id = ?`, chunkID)
	return err
}

func searchVecIndex(db *sql.DB, query []float32, topK int, metadataFilter map[string]string) ([]gardenertypes.RetrievedChunk, error) {
	rows, err := db.Query(
		`SELECT chunk_id, metadata, 1 - vec_distance_cosine(embedding, ?) AS score
		 FROM vec_index ORDER BY score DESC LIMIT ?`,
		encodeFloat32Slice(query), topK*4+topK) // overfetch to allow post-filtering
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []gardenertypes.RetrievedChunk
	for rows.Next() {
		var chunkID, metaJSON string
		var score float64
		if err := rows.Scan(&chunkID, &metaJSON, &score); err != nil {
			continue
		}
		meta := decodeMetadata(metaJSON)
		if !matchesFilter(meta, metadataFilter) {
			continue
		}
		out = append(out, gardenertypes.RetrievedChunk{ChunkID: chunkID, Score: score, Metadata: meta})
		if len(out) >= topK {
			break
		}
	}
	return out, nil
}
