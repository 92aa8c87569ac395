//go:build !(sqlite_vec && cgo)

// Without the sqlite_vec CGo extension, Store falls back entirely to the
// brute-force cosine scan in store.go, matching the teacher's graceful
// degradation when internal/store/init_vec.go's build tag is absent.
package vectorstore

import (
	"database/sql"

	"github.com/codebase-gardener/gardener/internal/gardenertypes"
)

// HasVectorExtension reports whether this build links the sqlite-vec ANN
// extension. Built without the sqlite_vec+cgo tags, Store always falls back
// to the brute-force scan, so the component registry's vector_storage
// capability reports unavailable.
func HasVectorExtension() bool { return false }

func initVecIndex(db *sql.DB, dim int) bool { return false }

func upsertVecIndex(db *sql.DB, chunkID string, vector []float32, content, metadataJSON string) error {
	return nil
}

func deleteVecIndex(db *sql.DB, chunkID string) error { return nil }

func searchVecIndex(db *sql.DB, query []float32, topK int, metadataFilter map[string]string) ([]gardenertypes.RetrievedChunk, error) {
	return nil, nil
}
