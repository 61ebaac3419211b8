package milvustools

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/google/uuid"

	"github.com/radutopala/milvus-mcp/internal/embedder"
	"github.com/radutopala/milvus-mcp/internal/extract"
	"github.com/radutopala/milvus-mcp/internal/milvus"
	"github.com/radutopala/milvus-mcp/internal/namespace"
	"github.com/radutopala/milvus-mcp/internal/schema"
)

type handlers struct {
	dimension int
	embedder  embedding.Embedder
	files     *extract.Extractor
}

func client(ctx context.Context, scope *namespace.Scope) (milvus.Client, error) {
	return namespace.Use[milvus.Client](ctx, scope, milvus.NamespaceKey)
}

// positiveInt reads a number parameter that must be a whole number in [1, limit].
func positiveInt(args schema.Args, name string, limit int) (int, error) {
	f := args.Number(name)
	if f != math.Trunc(f) || f < 1 || f > float64(limit) {
		return 0, fmt.Errorf("%s must be a whole number between 1 and %d, got %v", name, limit, f)
	}
	return int(f), nil
}

func (h *handlers) createCollection(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	name := args.String("name")
	if name == "" {
		return nil, errors.New("name cannot be empty")
	}
	dim, err := positiveInt(args, "dimension", maxDimension)
	if err != nil {
		return nil, err
	}

	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	exists, err := c.HasCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if exists {
		return fmt.Sprintf("Collection '%s' already exists.", name), nil
	}

	if err := c.CreateCollection(ctx, milvus.CollectionSpec{
		Name:         name,
		Dimension:    dim,
		WithMetadata: args.Bool("with_metadata"),
	}); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Collection '%s' created with dimension %d.", name, dim), nil
}

func (h *handlers) listCollections(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	names, err := c.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"collections": names}, nil
}

func (h *handlers) dropCollection(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	name := args.String("name")
	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	exists, err := c.HasCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("collection '%s' does not exist", name)
	}
	if err := c.DropCollection(ctx, name); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Collection '%s' dropped.", name), nil
}

func (h *handlers) insertVectors(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	collection := args.String("collection_name")
	vectors := args.Float32Matrix("vectors")
	if len(vectors) == 0 {
		return nil, errors.New("vectors cannot be empty")
	}

	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	n, err := c.InsertVectors(ctx, collection, vectors)
	if err != nil {
		return nil, err
	}
	return fmt.Sprintf("Inserted %d vectors into '%s'.", n, collection), nil
}

func (h *handlers) createIndex(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	collection := args.String("collection_name")
	nlist, err := positiveInt(args, "nlist", 65536)
	if err != nil {
		return nil, err
	}

	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	if err := c.CreateIndex(ctx, collection, milvus.IndexSpec{Metric: args.String("metric_type"), NList: nlist}); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Index created on '%s'.", collection), nil
}

func (h *handlers) loadCollection(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	collection := args.String("collection_name")
	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	if err := c.LoadCollection(ctx, collection); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Collection '%s' loaded.", collection), nil
}

func (h *handlers) search(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	collection := args.String("collection_name")
	query := args.Float32s("query_vector")
	if len(query) == 0 {
		return nil, errors.New("query_vector cannot be empty")
	}
	topK, err := positiveInt(args, "top_k", 16384)
	if err != nil {
		return nil, err
	}

	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	// Loading an already loaded collection is a no-op.
	if err := c.LoadCollection(ctx, collection); err != nil {
		return nil, err
	}
	hits, err := c.Search(ctx, collection, query, topK, args.String("metric_type"))
	if err != nil {
		return nil, err
	}
	return hits, nil
}

func (h *handlers) uploadDocument(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	collection := args.String("collection_name")
	docID, n, err := h.storeDocument(ctx, scope, collection, args.String("text"), args.String("doc_id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Uploaded document with %d chunks to '%s'.", n, collection),
		"doc_id":  docID,
		"chunks":  n,
	}, nil
}

// storeDocument chunks and embeds text, inserts the chunks under docID and
// indexes the collection. An empty docID is replaced by a random one.
func (h *handlers) storeDocument(ctx context.Context, scope *namespace.Scope, collection, text, docID string) (string, int, error) {
	chunks := milvus.Chunk(text, milvus.DefaultChunkSize)
	if len(chunks) == 0 {
		return "", 0, errors.New("text cannot be empty")
	}
	if docID == "" {
		docID = uuid.NewString()
	}

	vectors, err := embedder.Embed(ctx, h.embedder, chunks, h.dimension)
	if err != nil {
		return "", 0, err
	}
	docs := make([]milvus.Document, len(chunks))
	for i, chunk := range chunks {
		docs[i] = milvus.Document{Embedding: vectors[i], Text: chunk, DocID: docID}
	}

	c, err := client(ctx, scope)
	if err != nil {
		return "", 0, err
	}
	n, err := c.InsertDocuments(ctx, collection, docs)
	if err != nil {
		return "", 0, err
	}
	if err := c.CreateIndex(ctx, collection, milvus.IndexSpec{Metric: defaultMetric, NList: defaultNList}); err != nil {
		return "", 0, err
	}
	return docID, n, nil
}

func (h *handlers) queryDocuments(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	collection := args.String("collection_name")
	query := strings.TrimSpace(args.String("query"))
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	topK, err := positiveInt(args, "top_k", 16384)
	if err != nil {
		return nil, err
	}

	vectors, err := embedder.Embed(ctx, h.embedder, []string{query}, h.dimension)
	if err != nil {
		return nil, err
	}

	c, err := client(ctx, scope)
	if err != nil {
		return nil, err
	}
	if err := c.LoadCollection(ctx, collection); err != nil {
		return nil, err
	}
	hits, err := c.SearchDocuments(ctx, collection, vectors[0], topK, args.String("metric_type"))
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No matching excerpts in '%s'.", collection), nil
	}

	texts := make([]string, len(hits))
	for i, hit := range hits {
		texts[i] = hit.Text
	}
	return fmt.Sprintf("Top %d matching excerpts:\n%s", len(hits), strings.Join(texts, "\n---\n")), nil
}

func (h *handlers) extractText(_ context.Context, args schema.Args, _ *namespace.Scope) (any, error) {
	text, err := h.files.Extract(args.String("file_path"))
	if err != nil {
		return nil, err
	}
	return text, nil
}

func (h *handlers) ingestFile(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	path := args.String("file_path")
	collection := args.String("collection_name")
	text, err := h.files.Extract(path)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text found in %s", path)
	}

	docID, n, err := h.storeDocument(ctx, scope, collection, text, args.String("doc_id"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"message": fmt.Sprintf("Ingested %d chunks from '%s' into '%s'.", n, path, collection),
		"doc_id":  docID,
		"chunks":  n,
	}, nil
}

func (h *handlers) healthCheck(ctx context.Context, args schema.Args, scope *namespace.Scope) (any, error) {
	c, err := client(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("milvus connection error: %w", err)
	}
	if err := c.Health(ctx); err != nil {
		return nil, fmt.Errorf("milvus connection error: %w", err)
	}
	return "Milvus is connected and ready!", nil
}
