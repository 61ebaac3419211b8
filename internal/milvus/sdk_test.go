package milvus

import (
	"errors"
	"testing"

	mclient "github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/require"
)

func TestCollectionSchema(t *testing.T) {
	s := collectionSchema(CollectionSpec{Name: "demo", Dimension: 8})
	require.Equal(t, "demo", s.CollectionName)
	require.Len(t, s.Fields, 2)
	require.Equal(t, FieldID, s.Fields[0].Name)
	require.True(t, s.Fields[0].PrimaryKey)
	require.True(t, s.Fields[0].AutoID)
	require.Equal(t, entity.FieldTypeFloatVector, s.Fields[1].DataType)
	require.Equal(t, "8", s.Fields[1].TypeParams[entity.TypeParamDim])

	s = collectionSchema(CollectionSpec{Name: "docs", Dimension: 1536, WithMetadata: true})
	require.Len(t, s.Fields, 4)
	require.Equal(t, FieldText, s.Fields[2].Name)
	require.Equal(t, "1024", s.Fields[2].TypeParams["max_length"])
	require.Equal(t, FieldDocID, s.Fields[3].Name)
	require.Equal(t, "128", s.Fields[3].TypeParams["max_length"])
}

func TestUniformDimension(t *testing.T) {
	dim, err := uniformDimension([][]float32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	require.Equal(t, 2, dim)

	_, err = uniformDimension(nil)
	require.Error(t, err)

	_, err = uniformDimension([][]float32{{}})
	require.Error(t, err)

	_, err = uniformDimension([][]float32{{1, 2}, {3}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "vector 1 has dimension 1, want 2")
}

func TestParseSearchResult(t *testing.T) {
	hits, err := parseSearchResult(mclient.SearchResult{
		ResultCount: 2,
		IDs:         entity.NewColumnInt64(FieldID, []int64{42, 7}),
		Scores:      []float32{0.5, 1.25},
	})
	require.NoError(t, err)
	require.Equal(t, []Hit{{ID: 42, Score: 0.5}, {ID: 7, Score: 1.25}}, hits)

	hits, err = parseSearchResult(mclient.SearchResult{
		ResultCount: 1,
		IDs:         entity.NewColumnInt64(FieldID, []int64{3}),
		Scores:      []float32{0.1},
		Fields: []entity.Column{
			entity.NewColumnVarChar(FieldText, []string{"Milvus stores vectors."}),
			entity.NewColumnVarChar(FieldDocID, []string{"doc-1"}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, []Hit{{ID: 3, Score: 0.1, Text: "Milvus stores vectors.", DocID: "doc-1"}}, hits)

	_, err = parseSearchResult(mclient.SearchResult{Err: errors.New("shard unavailable")})
	require.EqualError(t, err, "shard unavailable")
}
