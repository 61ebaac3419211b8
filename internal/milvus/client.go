// Package milvus wraps the Milvus SDK behind a small interface and exposes it
// to tool handlers as a request-scoped namespace.
package milvus

import (
	"context"
	"time"

	"github.com/radutopala/milvus-mcp/internal/embedder"
)

// Field names of the collections this server creates.
const (
	FieldID        = "id"
	FieldEmbedding = "embedding"
	FieldText      = "text"
	FieldDocID     = "doc_id"

	TextMaxLength  = 1024
	DocIDMaxLength = 128
)

// Config holds the connection settings for Milvus.
type Config struct {
	Address          string        `mapstructure:"address"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	Pooled           bool          `mapstructure:"pooled"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	DefaultDimension int           `mapstructure:"default_dimension"`

	Embedding embedder.Config `mapstructure:"embedding"`
}

// CollectionSpec describes a collection to create.
type CollectionSpec struct {
	Name         string
	Dimension    int
	WithMetadata bool // Adds the text and doc_id fields used by document upload
	Description  string
}

// IndexSpec describes an IVF_FLAT index on the embedding field.
type IndexSpec struct {
	Metric string // L2, IP or COSINE
	NList  int
}

// Document is one embedded chunk of text.
type Document struct {
	Embedding []float32
	Text      string
	DocID     string
}

// Hit is one search result. Text and DocID are set by SearchDocuments.
type Hit struct {
	ID    int64   `json:"id"`
	Score float32 `json:"score"`
	Text  string  `json:"text,omitempty"`
	DocID string  `json:"doc_id,omitempty"`
}

// Client is the subset of Milvus operations the tools need.
type Client interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)
	CreateCollection(ctx context.Context, spec CollectionSpec) error
	DropCollection(ctx context.Context, name string) error
	InsertVectors(ctx context.Context, collection string, vectors [][]float32) (int, error)
	InsertDocuments(ctx context.Context, collection string, docs []Document) (int, error)
	CreateIndex(ctx context.Context, collection string, spec IndexSpec) error
	LoadCollection(ctx context.Context, name string) error
	Search(ctx context.Context, collection string, query []float32, topK int, metric string) ([]Hit, error)
	SearchDocuments(ctx context.Context, collection string, query []float32, topK int, metric string) ([]Hit, error)
	Health(ctx context.Context) error
	Close() error
}
