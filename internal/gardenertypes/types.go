// Package gardenertypes holds the shared value types of the data model
// (§3 of the specification). They carry no behavior beyond small helpers,
// which keeps internal/projects, internal/projectcontext, internal/chunker,
// and internal/vectorstore free of import cycles.
package gardenertypes

import "time"

// TrainingStatus is the lifecycle state of a Project's adapter.
type TrainingStatus string

const (
	TrainingNotStarted TrainingStatus = "not_started"
	TrainingInProgress TrainingStatus = "training"
	TrainingCompleted  TrainingStatus = "completed"
	TrainingFailed     TrainingStatus = "failed"
)

// Project is a registered codebase with its own vector store, adapter, and
// context.
type Project struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	SourcePath       string         `json:"source_path"`
	CreatedAt        time.Time      `json:"created_at"`
	LastUpdated      time.Time      `json:"last_updated"`
	TrainingStatus   TrainingStatus `json:"training_status"`
	TrainingReason   string         `json:"training_reason,omitempty"`
	AdapterPath      string         `json:"adapter_path"`
	VectorStorePath  string         `json:"vector_store_path"`
}

// RegistryState is the single durable object owned by the Project Registry.
type RegistryState struct {
	Version  int                 `json:"version"`
	Projects map[string]*Project `json:"projects"`
	ActiveID string              `json:"active_id"`
}

// SourceFile is a file discovered while walking a codebase. It is a
// derived, non-persisted value.
type SourceFile struct {
	Path     string
	Language string
	Size     int64
	ModTime  time.Time
}

// ChunkKind classifies a semantic chunk.
type ChunkKind string

const (
	ChunkFunction ChunkKind = "function"
	ChunkClass    ChunkKind = "class"
	ChunkModule   ChunkKind = "module"
	ChunkImport   ChunkKind = "import"
	ChunkBlock    ChunkKind = "block"
)

// Chunk is a semantic unit of source code with metadata (§4.3).
type Chunk struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	FilePath     string    `json:"file_path"`
	Language     string    `json:"language"`
	Kind         ChunkKind `json:"kind"`
	StartByte    int       `json:"start_byte"`
	EndByte      int       `json:"end_byte"`
	StartLine    int       `json:"start_line"`
	EndLine      int       `json:"end_line"`
	Complexity   int       `json:"complexity"`
	Dependencies []string  `json:"dependencies"`
	Text         string    `json:"text"`
}

// MessageRole identifies who produced a ConversationMessage.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// ConversationMessage is one turn in a project's chat history.
type ConversationMessage struct {
	Role      MessageRole            `json:"role"`
	Content   string                 `json:"content"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// ProjectContext is the durable per-project conversation history and
// scratch analysis state owned exclusively by the Context Manager.
type ProjectContext struct {
	ProjectID string                 `json:"project_id"`
	Messages  []ConversationMessage  `json:"messages"`
	Scratch   map[string]interface{} `json:"scratch"`
}

// AdapterMetrics captures the training metrics produced by the Trainer.
type AdapterMetrics struct {
	Loss       float64   `json:"loss"`
	Steps      int       `json:"steps"`
	Duration   time.Duration `json:"duration"`
	FinishedAt time.Time `json:"finished_at"`
}

// RetrievedChunk pairs a chunk id with its similarity score and metadata,
// as returned by the vector index's search operation.
type RetrievedChunk struct {
	ChunkID  string
	Score    float64
	Metadata map[string]interface{}
}
