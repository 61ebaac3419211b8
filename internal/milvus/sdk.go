package milvus

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// searchClusters is the number of IVF clusters visited per query.
const searchClusters = 10

// sdkClient implements Client on top of milvus-sdk-go.
type sdkClient struct {
	cli mclient.Client
}

// Dial connects to Milvus using cfg.
func Dial(ctx context.Context, cfg Config) (Client, error) {
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	cli, err := mclient.NewClient(ctx, mclient.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to milvus at %s: %w", cfg.Address, err)
	}
	return &sdkClient{cli: cli}, nil
}

func (c *sdkClient) HasCollection(ctx context.Context, name string) (bool, error) {
	return c.cli.HasCollection(ctx, name)
}

func (c *sdkClient) ListCollections(ctx context.Context) ([]string, error) {
	cols, err := c.cli.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (c *sdkClient) CreateCollection(ctx context.Context, spec CollectionSpec) error {
	return c.cli.CreateCollection(ctx, collectionSchema(spec), entity.DefaultShardNumber)
}

func collectionSchema(spec CollectionSpec) *entity.Schema {
	description := spec.Description
	if description == "" {
		description = "Default schema"
	}

	fields := []*entity.Field{
		{
			Name:       FieldID,
			DataType:   entity.FieldTypeInt64,
			PrimaryKey: true,
			AutoID:     true,
		},
		{
			Name:       FieldEmbedding,
			DataType:   entity.FieldTypeFloatVector,
			TypeParams: map[string]string{entity.TypeParamDim: strconv.Itoa(spec.Dimension)},
		},
	}
	if spec.WithMetadata {
		fields = append(fields,
			&entity.Field{
				Name:       FieldText,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(TextMaxLength)},
			},
			&entity.Field{
				Name:       FieldDocID,
				DataType:   entity.FieldTypeVarChar,
				TypeParams: map[string]string{"max_length": strconv.Itoa(DocIDMaxLength)},
			},
		)
	}

	return &entity.Schema{
		CollectionName: spec.Name,
		Description:    description,
		AutoID:         true,
		Fields:         fields,
	}
}

func (c *sdkClient) DropCollection(ctx context.Context, name string) error {
	return c.cli.DropCollection(ctx, name)
}

func (c *sdkClient) InsertVectors(ctx context.Context, collection string, vectors [][]float32) (int, error) {
	dim, err := uniformDimension(vectors)
	if err != nil {
		return 0, err
	}
	if _, err := c.cli.Insert(ctx, collection, "", entity.NewColumnFloatVector(FieldEmbedding, dim, vectors)); err != nil {
		return 0, err
	}
	return len(vectors), nil
}

func (c *sdkClient) InsertDocuments(ctx context.Context, collection string, docs []Document) (int, error) {
	vectors := make([][]float32, 0, len(docs))
	texts := make([]string, 0, len(docs))
	docIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		vectors = append(vectors, d.Embedding)
		texts = append(texts, d.Text)
		docIDs = append(docIDs, d.DocID)
	}

	dim, err := uniformDimension(vectors)
	if err != nil {
		return 0, err
	}
	_, err = c.cli.Insert(
		ctx,
		collection,
		"",
		entity.NewColumnFloatVector(FieldEmbedding, dim, vectors),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnVarChar(FieldDocID, docIDs),
	)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (c *sdkClient) CreateIndex(ctx context.Context, collection string, spec IndexSpec) error {
	idx, err := entity.NewIndexIvfFlat(entity.MetricType(spec.Metric), spec.NList)
	if err != nil {
		return fmt.Errorf("build index params: %w", err)
	}
	return c.cli.CreateIndex(ctx, collection, FieldEmbedding, idx, false)
}

func (c *sdkClient) LoadCollection(ctx context.Context, name string) error {
	return c.cli.LoadCollection(ctx, name, false)
}

func (c *sdkClient) Search(ctx context.Context, collection string, query []float32, topK int, metric string) ([]Hit, error) {
	return c.search(ctx, collection, query, topK, metric, nil)
}

func (c *sdkClient) SearchDocuments(ctx context.Context, collection string, query []float32, topK int, metric string) ([]Hit, error) {
	return c.search(ctx, collection, query, topK, metric, []string{FieldText, FieldDocID})
}

func (c *sdkClient) search(ctx context.Context, collection string, query []float32, topK int, metric string, outputFields []string) ([]Hit, error) {
	sp, err := entity.NewIndexIvfFlatSearchParam(searchClusters)
	if err != nil {
		return nil, err
	}

	res, err := c.cli.Search(
		ctx,
		collection,
		nil,
		"",
		outputFields,
		[]entity.Vector{entity.FloatVector(query)},
		FieldEmbedding,
		entity.MetricType(metric),
		topK,
		sp,
	)
	if err != nil {
		return nil, err
	}
	if len(res) == 0 {
		return []Hit{}, nil
	}
	return parseSearchResult(res[0])
}

func parseSearchResult(sr mclient.SearchResult) ([]Hit, error) {
	if sr.Err != nil {
		return nil, sr.Err
	}

	column := func(name string) entity.Column {
		for _, col := range sr.Fields {
			if col.Name() == name {
				return col
			}
		}
		return nil
	}
	textCol := column(FieldText)
	docIDCol := column(FieldDocID)

	hits := make([]Hit, 0, sr.ResultCount)
	for i := 0; i < sr.ResultCount; i++ {
		id, err := sr.IDs.GetAsInt64(i)
		if err != nil {
			return nil, fmt.Errorf("read hit %d id: %w", i, err)
		}
		hit := Hit{ID: id}
		if i < len(sr.Scores) {
			hit.Score = sr.Scores[i]
		}
		if textCol != nil {
			if hit.Text, err = textCol.GetAsString(i); err != nil {
				return nil, fmt.Errorf("read hit %d %s: %w", i, FieldText, err)
			}
		}
		if docIDCol != nil {
			if hit.DocID, err = docIDCol.GetAsString(i); err != nil {
				return nil, fmt.Errorf("read hit %d %s: %w", i, FieldDocID, err)
			}
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (c *sdkClient) Health(ctx context.Context) error {
	_, err := c.cli.ListCollections(ctx)
	return err
}

func (c *sdkClient) Close() error {
	return c.cli.Close()
}

func uniformDimension(vectors [][]float32) (int, error) {
	if len(vectors) == 0 {
		return 0, errors.New("no vectors to insert")
	}
	dim := len(vectors[0])
	if dim == 0 {
		return 0, errors.New("vectors cannot be empty")
	}
	for i, v := range vectors {
		if len(v) != dim {
			return 0, fmt.Errorf("vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return dim, nil
}
