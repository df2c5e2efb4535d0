package llamacpp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, status int, reply interface{}) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req ChatCompletionRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Messages, 1)

		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content interface{}) ChatCompletionResponse {
	return ChatCompletionResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: content}}},
	}
}

func TestNewClientRejectsScheme(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
}

func TestLocateFaces(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, completion(
		"```json\n{\"faces\":[{\"box\":{\"x\":0.1,\"y\":0.1,\"w\":0.2,\"h\":0.3},\"confidence\":0.8},{\"box\":{\"x\":0.6,\"y\":0.2,\"w\":0.2,\"h\":0.2},\"confidence\":0.6}]}\n```"))

	c, err := NewClient(srv.URL + "/")
	require.NoError(t, err)

	report, err := c.LocateFaces(context.Background(), "gemma3", "find faces", "aGVsbG8=")
	require.NoError(t, err)
	require.Len(t, report.Faces, 2)
	assert.Equal(t, 0.6, report.Faces[1].Confidence)
}

func TestLocateFacesContentParts(t *testing.T) {
	reply := `{"faces":[{"box":{"x":0.1,"y":0.2,"w":0.3,"h":0.4},"confidence":0.9}]}`
	srv := newTestServer(t, http.StatusOK, completion([]map[string]string{{"type": "text", "text": reply}}))

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	report, err := c.LocateFaces(context.Background(), "gemma3", "find faces", "")
	require.NoError(t, err)
	require.Len(t, report.Faces, 1)
	assert.InDelta(t, 0.4, report.Faces[0].Box.H, 1e-9)
}

func TestServerError(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, map[string]string{"error": "boom"})

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.LocateFaces(context.Background(), "gemma3", "find faces", "aGVsbG8=")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestNoChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, ChatCompletionResponse{})

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.LocateFaces(context.Background(), "gemma3", "find faces", "")
	assert.Error(t, err)
}
