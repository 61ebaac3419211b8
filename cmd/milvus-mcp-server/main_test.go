package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"

	"github.com/radutopala/milvus-mcp/internal/config"
	"github.com/radutopala/milvus-mcp/internal/milvus"
	"github.com/radutopala/milvus-mcp/internal/milvus/milvustest"
	"github.com/radutopala/milvus-mcp/internal/tools"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func TestToolsCommand_JSON(t *testing.T) {
	out, err := run(t, "", "tools", "--json")
	require.NoError(t, err)

	var list []tools.Metadata
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 12)

	var names []string
	for _, md := range list {
		names = append(names, md.Name)
	}
	require.Contains(t, names, "milvus_create_collection")
	require.Contains(t, names, "milvus_health_check")
	require.Contains(t, names, "milvus_query_documents")
	require.Contains(t, names, "milvus_ingest_file")
}

func TestToolsCommand_Table(t *testing.T) {
	out, err := run(t, "", "tools")
	require.NoError(t, err)
	require.Contains(t, out, "milvus_create_collection")
	require.Contains(t, out, "default=1536")
	require.Contains(t, out, "required")
}

func TestServeCommand_JSONLinesValidation(t *testing.T) {
	input := `{"id":"1","tool":"milvus_create_collection","arguments":{}}` + "\n" +
		`{"id":"2","tool":"milvus_create_colection","arguments":{"name":"demo"}}` + "\n"

	out, err := run(t, input, "serve", "--transport", "jsonl")
	require.NoError(t, err)

	responses := map[string]map[string]any{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var resp map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &resp))
		responses[resp["id"].(string)] = resp
	}
	require.Len(t, responses, 2)

	missing := responses["1"]["error"].(map[string]any)
	require.Equal(t, "MissingParameter", missing["kind"])

	unknown := responses["2"]["error"].(map[string]any)
	require.Equal(t, "UnknownTool", unknown["kind"])
	require.Contains(t, unknown["message"], "milvus_create_collection")
}

func TestServeCommand_InvalidTransport(t *testing.T) {
	_, err := run(t, "", "serve", "--transport", "carrier-pigeon")
	require.ErrorContains(t, err, "server.transport")
}

func TestApp_ServeJSONLines(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("server.transport", config.TransportJSONL)
	v.Set("logging.level", "error")

	fake := milvustest.New()
	var stderr bytes.Buffer
	a, err := newApp(context.Background(), v, &stderr, milvus.WithDialer(func(ctx context.Context, cfg milvus.Config) (milvus.Client, error) {
		return fake, nil
	}))
	require.NoError(t, err)

	input := `{"id":"t1","tool":"milvus_create_collection","arguments":{"name":"demo","dimension":4}}` + "\n"
	var out bytes.Buffer
	require.NoError(t, a.serve(context.Background(), strings.NewReader(input), &out))
	require.NoError(t, a.Close())

	var resp struct {
		ID     string `json:"id"`
		Result string `json:"result"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	require.Equal(t, "t1", resp.ID)
	require.Equal(t, "Collection 'demo' created with dimension 4.", resp.Result)

	coll, ok := fake.Collection("demo")
	require.True(t, ok)
	require.Equal(t, 4, coll.Spec.Dimension)
	require.Equal(t, 1, fake.Closed(), "the shared client is closed with the app")
}

func TestRunServe_CloseError(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("server.transport", config.TransportJSONL)
	v.Set("milvus.pooled", true)
	v.Set("logging.level", "error")

	fake := milvustest.New()
	fake.FailOn("Close", errors.New("close failed"))
	dialer := milvus.WithDialer(func(ctx context.Context, cfg milvus.Config) (milvus.Client, error) {
		return fake, nil
	})

	input := `{"id":"l1","tool":"milvus_list_collections","arguments":{}}` + "\n"
	var out, stderr bytes.Buffer
	err := runServe(context.Background(), v, strings.NewReader(input), &out, &stderr, dialer)
	require.ErrorContains(t, err, "close failed")
	require.Contains(t, out.String(), `"collections":[]`)
	require.Equal(t, 1, fake.Closed())
}

func TestNewApp_EmbeddingProvider(t *testing.T) {
	v := viper.New()
	config.SetDefaults(v)
	v.Set("logging.level", "error")
	v.Set("milvus.embedding.provider", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	var stderr bytes.Buffer
	_, err := newApp(context.Background(), v, &stderr)
	require.ErrorContains(t, err, "api key")
}
