// Package milvustools registers the Milvus tools with a tool registry.
package milvustools

import (
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/radutopala/milvus-mcp/internal/embedder"
	"github.com/radutopala/milvus-mcp/internal/extract"
	"github.com/radutopala/milvus-mcp/internal/schema"
	"github.com/radutopala/milvus-mcp/internal/tools"
)

const (
	category = "milvus"

	DefaultDimension = 1536
	maxDimension     = 32768
	defaultTopK      = 5
	defaultNList     = 128
	defaultMetric    = "L2"
)

var metrics = []string{"L2", "IP", "COSINE"}

// Options configures the registered tools.
type Options struct {
	// DefaultDimension is the size of the vectors Embedder returns.
	DefaultDimension int
	// Embedder embeds document chunks and queries. Nil means embedder.ASCII.
	Embedder embedding.Embedder
	// Extractor reads files for the file tools. Nil allows any readable path.
	Extractor *extract.Extractor
}

// Register adds every Milvus tool to reg.
func Register(reg *tools.Registry, opts Options) error {
	if opts.DefaultDimension <= 0 {
		opts.DefaultDimension = DefaultDimension
	}
	if opts.Embedder == nil {
		opts.Embedder = embedder.NewASCII(opts.DefaultDimension)
	}
	if opts.Extractor == nil {
		files, err := extract.New(extract.Config{})
		if err != nil {
			return err
		}
		opts.Extractor = files
	}
	h := &handlers{
		dimension: opts.DefaultDimension,
		embedder:  opts.Embedder,
		files:     opts.Extractor,
	}

	collectionName := schema.Param{
		Type:        schema.TypeString,
		Required:    true,
		Description: "Name of the collection",
	}
	filePath := schema.Param{
		Type:        schema.TypeString,
		Required:    true,
		Description: "Path of a .txt, .pdf or .docx file",
	}
	topK := schema.Param{
		Type:        schema.TypeNumber,
		Default:     defaultTopK,
		Description: "Number of results to return",
	}
	metricType := schema.Param{
		Type:        schema.TypeEnum,
		Enum:        metrics,
		Default:     defaultMetric,
		Description: "Distance metric",
	}

	for _, tool := range []*tools.Tool{
		{
			Name:        "milvus_create_collection",
			Description: "Create a new Milvus collection with an auto-id primary key and a float vector field",
			Params: schema.Schema{
				"name": {
					Type:        schema.TypeString,
					Required:    true,
					Description: "Name of the collection to create",
				},
				"dimension": {
					Type:        schema.TypeNumber,
					Default:     DefaultDimension,
					Description: "Number of dimensions for the vectors",
				},
				"with_metadata": {
					Type:        schema.TypeBoolean,
					Default:     false,
					Description: "Also create text and doc_id fields for document upload",
				},
			},
			Handler: h.createCollection,
		},
		{
			Name:        "milvus_list_collections",
			Description: "List all Milvus collections",
			Handler:     h.listCollections,
		},
		{
			Name:        "milvus_drop_collection",
			Description: "Drop a Milvus collection and all of its data",
			Params: schema.Schema{
				"name": {
					Type:        schema.TypeString,
					Required:    true,
					Description: "Name of the collection to drop",
				},
			},
			Handler: h.dropCollection,
		},
		{
			Name:        "milvus_insert_vectors",
			Description: "Insert vector data into a collection",
			Params: schema.Schema{
				"collection_name": collectionName,
				"vectors": {
					Type:        schema.TypeArray,
					Required:    true,
					Items:       &schema.Param{Type: schema.TypeArray, Items: &schema.Param{Type: schema.TypeNumber}},
					Description: "Vectors to insert, each matching the collection dimension",
				},
			},
			Handler: h.insertVectors,
		},
		{
			Name:        "milvus_create_index",
			Description: "Create an IVF_FLAT search index on the embedding field",
			Params: schema.Schema{
				"collection_name": collectionName,
				"metric_type":     metricType,
				"nlist": {
					Type:        schema.TypeNumber,
					Default:     defaultNList,
					Description: "Number of cluster units",
				},
			},
			Handler: h.createIndex,
		},
		{
			Name:        "milvus_load_collection",
			Description: "Load a collection into memory",
			Params: schema.Schema{
				"collection_name": collectionName,
			},
			Handler: h.loadCollection,
		},
		{
			Name:        "milvus_search",
			Description: "Search a collection with a query vector",
			Params: schema.Schema{
				"collection_name": collectionName,
				"query_vector": {
					Type:        schema.TypeArray,
					Required:    true,
					Items:       &schema.Param{Type: schema.TypeNumber},
					Description: "Query vector",
				},
				"top_k":       topK,
				"metric_type": metricType,
			},
			Handler: h.search,
		},
		{
			Name:        "milvus_upload_document",
			Description: "Split a document into chunks, embed them and store them with their text and doc_id",
			Params: schema.Schema{
				"collection_name": collectionName,
				"text": {
					Type:        schema.TypeString,
					Required:    true,
					Description: "Document text",
				},
				"doc_id": {
					Type:        schema.TypeString,
					Description: "Document identifier; generated when omitted",
				},
			},
			Handler: h.uploadDocument,
		},
		{
			Name:        "milvus_query_documents",
			Description: "Embed a query and return the text of the closest document chunks",
			Params: schema.Schema{
				"collection_name": collectionName,
				"query": {
					Type:        schema.TypeString,
					Required:    true,
					Description: "Question or search text",
				},
				"top_k":       topK,
				"metric_type": metricType,
			},
			Handler: h.queryDocuments,
		},
		{
			Name:        "milvus_extract_text",
			Description: "Extract the text of a .txt, .pdf or .docx file",
			Params: schema.Schema{
				"file_path": filePath,
			},
			Handler: h.extractText,
		},
		{
			Name:        "milvus_ingest_file",
			Description: "Extract a file's text, then chunk, embed and store it like milvus_upload_document",
			Params: schema.Schema{
				"file_path":       filePath,
				"collection_name": collectionName,
				"doc_id": {
					Type:        schema.TypeString,
					Description: "Document identifier; generated when omitted",
				},
			},
			Handler: h.ingestFile,
		},
		{
			Name:        "milvus_health_check",
			Description: "Check that Milvus is reachable",
			Handler:     h.healthCheck,
		},
	} {
		tool.Category = category
		if err := reg.Register(tool); err != nil {
			return fmt.Errorf("register %s: %w", tool.Name, err)
		}
	}
	return nil
}
