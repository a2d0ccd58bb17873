package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docq-ai/docq/internal/models"
	"github.com/docq-ai/docq/pkg/loader"
	"github.com/docq-ai/docq/pkg/rag"
	"github.com/docq-ai/docq/pkg/splitter"
	"github.com/docq-ai/docq/pkg/store"
)

type stubEmbedder struct{}

func (stubEmbedder) embed(text string) []float32 {
	return []float32{float32(len(text)), float32(len(strings.Fields(text))), 1}
}

func (s stubEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = s.embed(text)
	}
	return vectors, nil
}

func (s stubEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return s.embed(text), nil
}

func (stubEmbedder) Model() string  { return "stub-embedder" }
func (stubEmbedder) Dimension() int { return 3 }

type stubChat struct{}

func (stubChat) Chat(ctx context.Context, question string, chunks []models.ScoredChunk) (string, error) {
	return fmt.Sprintf("answer from %d chunks", len(chunks)), nil
}

func (stubChat) ChatStream(ctx context.Context, question string, chunks []models.ScoredChunk) (<-chan string, error) {
	ch := make(chan string, 2)
	ch <- "streamed "
	ch <- "answer"
	close(ch)
	return ch, nil
}

func (stubChat) Model() string { return "stub-model" }

func newTestServer(t *testing.T, streaming bool) (*httptest.Server, *rag.Engine) {
	t.Helper()

	engine := rag.New(loader.New(), splitter.New(), stubEmbedder{}, store.NewMemoryStore(), stubChat{}, 4)
	srv := New(Config{UploadDir: t.TempDir(), Streaming: streaming}, engine)

	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)

	return ts, engine
}

func uploadFile(t *testing.T, url, field, name, content string) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	resp, err := http.Post(url+"/upload", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUpload(t *testing.T) {
	ts, engine := newTestServer(t, false)

	resp := uploadFile(t, ts.URL, "files", "notes.txt", "The deploy runs every night at midnight.")
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, float64(1), result["files_loaded"])
	assert.Equal(t, float64(1), result["chunks_stored"])

	stats, err := engine.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"notes.txt"}, stats.SourceFiles)
}

func TestUploadSingleFileField(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp := uploadFile(t, ts.URL, "file", "single.txt", "One file under the singular field name.")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadNoFiles(t *testing.T) {
	ts, _ := newTestServer(t, false)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.Close())

	resp, err := http.Post(ts.URL+"/upload", writer.FormDataContentType(), &body)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp, err := http.Get(ts.URL + "/upload")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestQuery(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp := uploadFile(t, ts.URL, "files", "notes.txt", "The deploy runs every night at midnight.")
	resp.Body.Close()

	body, _ := json.Marshal(map[string]interface{}{"question": "When does the deploy run?"})
	queryResp, err := http.Post(ts.URL+"/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer queryResp.Body.Close()
	require.Equal(t, http.StatusOK, queryResp.StatusCode)

	var answer models.Answer
	require.NoError(t, json.NewDecoder(queryResp.Body).Decode(&answer))
	assert.Equal(t, "answer from 1 chunks", answer.Text)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "notes.txt", answer.Sources[0].File)
}

func TestQueryEmptyIndex(t *testing.T) {
	ts, _ := newTestServer(t, false)

	body, _ := json.Marshal(map[string]interface{}{"question": "Anything?"})
	resp, err := http.Post(ts.URL+"/query", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var answer models.Answer
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&answer))
	assert.Contains(t, answer.Text, "No documents have been indexed")
}

func TestQueryValidation(t *testing.T) {
	ts, _ := newTestServer(t, false)

	t.Run("missing question", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader(`{"question":"  "}`))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid json", func(t *testing.T) {
		resp, err := http.Post(ts.URL+"/query", "application/json", strings.NewReader("{not json"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/query")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestStatsAndClear(t *testing.T) {
	ts, _ := newTestServer(t, false)

	resp := uploadFile(t, ts.URL, "files", "notes.txt", "Some indexed content here.")
	resp.Body.Close()

	statsResp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer statsResp.Body.Close()

	var stats models.IndexStats
	require.NoError(t, json.NewDecoder(statsResp.Body).Decode(&stats))
	assert.Equal(t, 1, stats.ChunkCount)
	assert.Equal(t, "stub-model", stats.ChatModel)

	clearResp, err := http.Post(ts.URL+"/clear", "application/json", nil)
	require.NoError(t, err)
	clearResp.Body.Close()
	require.Equal(t, http.StatusOK, clearResp.StatusCode)

	afterResp, err := http.Get(ts.URL + "/stats")
	require.NoError(t, err)
	defer afterResp.Body.Close()

	var after models.IndexStats
	require.NoError(t, json.NewDecoder(afterResp.Body).Decode(&after))
	assert.Equal(t, 0, after.ChunkCount)
}

func TestWebSocketStreamingQuery(t *testing.T) {
	ts, _ := newTestServer(t, true)

	resp := uploadFile(t, ts.URL, "files", "notes.txt", "The deploy runs every night at midnight.")
	resp.Body.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "query", Content: "When does the deploy run?"}))

	var (
		types  []string
		tokens string
	)
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		types = append(types, msg.Type)
		if msg.Type == "stream" {
			tokens += msg.Content
		}
		if msg.Type == "done" || msg.Type == "error" {
			break
		}
	}

	assert.Equal(t, "status", types[0])
	assert.Contains(t, types, "sources")
	assert.Equal(t, "done", types[len(types)-1])
	assert.Equal(t, "streamed answer", tokens)
}

func TestWebSocketUnknownMessageType(t *testing.T) {
	ts, _ := newTestServer(t, true)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: "ping"}))

	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, "unknown message type")
}
