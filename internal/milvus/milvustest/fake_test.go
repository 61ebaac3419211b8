package milvustest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/radutopala/milvus-mcp/internal/milvus"
)

func loadedFake(t *testing.T, vectors [][]float32) *Fake {
	t.Helper()
	ctx := context.Background()
	f := New()
	require.NoError(t, f.CreateCollection(ctx, milvus.CollectionSpec{Name: "c", Dimension: 2}))
	_, err := f.InsertVectors(ctx, "c", vectors)
	require.NoError(t, err)
	require.NoError(t, f.CreateIndex(ctx, "c", milvus.IndexSpec{Metric: "L2", NList: 1}))
	require.NoError(t, f.LoadCollection(ctx, "c"))
	return f
}

func TestSearch_Metrics(t *testing.T) {
	f := loadedFake(t, [][]float32{{1, 0}, {0, 2}, {3, 4}})
	ctx := context.Background()

	tests := []struct {
		metric string
		query  []float32
		want   []milvus.Hit
	}{
		{"L2", []float32{0, 0}, []milvus.Hit{{ID: 1, Score: 1}, {ID: 2, Score: 4}}},
		{"IP", []float32{1, 1}, []milvus.Hit{{ID: 3, Score: 7}, {ID: 2, Score: 2}}},
		{"COSINE", []float32{1, 0}, []milvus.Hit{{ID: 1, Score: 1}, {ID: 3, Score: 0.6}}},
	}

	for _, tt := range tests {
		hits, err := f.Search(ctx, "c", tt.query, 2, tt.metric)
		require.NoError(t, err, tt.metric)
		require.Len(t, hits, 2, tt.metric)
		for i := range tt.want {
			require.Equal(t, tt.want[i].ID, hits[i].ID, tt.metric)
			require.InDelta(t, tt.want[i].Score, hits[i].Score, 1e-6, tt.metric)
		}
	}
}

func TestSearch_RequiresLoad(t *testing.T) {
	ctx := context.Background()
	f := New()
	require.NoError(t, f.CreateCollection(ctx, milvus.CollectionSpec{Name: "c", Dimension: 2}))

	_, err := f.Search(ctx, "c", []float32{0, 0}, 1, "L2")
	require.ErrorContains(t, err, "not loaded")

	require.Error(t, f.LoadCollection(ctx, "c"), "loading needs an index")
}

func TestFailOn(t *testing.T) {
	f := New()
	f.FailOn("Health", errors.New("down"))
	require.EqualError(t, f.Health(context.Background()), "down")

	require.NoError(t, f.Close())
	require.Equal(t, 1, f.Closed())
}

func TestSearchDocuments(t *testing.T) {
	ctx := context.Background()
	f := New()
	require.NoError(t, f.CreateCollection(ctx, milvus.CollectionSpec{Name: "docs", Dimension: 2, WithMetadata: true}))
	_, err := f.InsertDocuments(ctx, "docs", []milvus.Document{
		{Embedding: []float32{0, 1}, Text: "far", DocID: "a"},
		{Embedding: []float32{1, 0}, Text: "near", DocID: "b"},
	})
	require.NoError(t, err)
	require.NoError(t, f.CreateIndex(ctx, "docs", milvus.IndexSpec{Metric: "L2", NList: 1}))
	require.NoError(t, f.LoadCollection(ctx, "docs"))

	hits, err := f.SearchDocuments(ctx, "docs", []float32{1, 0}, 1, "L2")
	require.NoError(t, err)
	require.Equal(t, []milvus.Hit{{ID: 2, Score: 0, Text: "near", DocID: "b"}}, hits)

	plain, err := f.Search(ctx, "docs", []float32{1, 0}, 1, "L2")
	require.NoError(t, err)
	require.Empty(t, plain[0].Text)

	vf := loadedFake(t, [][]float32{{1, 0}})
	_, err = vf.SearchDocuments(ctx, "c", []float32{1, 0}, 1, "L2")
	require.ErrorContains(t, err, "field text not exist")
}

func TestFailOn_Close(t *testing.T) {
	f := New()
	f.FailOn("Close", errors.New("close failed"))
	require.EqualError(t, f.Close(), "close failed")
	require.Equal(t, 1, f.Closed())
}
