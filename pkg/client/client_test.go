package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"moral-torture-machine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dilemmaHandler(t *testing.T, failures int32, calls *int32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(calls, 1)
		assert.Equal(t, PathGetDilemma, r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(SessionHeader))
		if n <= failures {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(models.Dilemma{ID: "d1-en", Dilemma: "Lie?", FirstAnswer: "Yes", SecondAnswer: "No"})
	}
}

func TestGetDilemma_SucceedsOnFifthAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(dilemmaHandler(t, 4, &calls))
	defer srv.Close()

	c := New(srv.URL)
	d, err := c.GetDilemma(context.Background(), "en", nil)
	require.NoError(t, err)
	assert.Equal(t, "d1-en", d.ID)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestGetDilemma_MaxRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(dilemmaHandler(t, 100, &calls))
	defer srv.Close()

	c := New(srv.URL)
	_, err := c.GetDilemma(context.Background(), "en", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxRetries)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestGetDilemma_DecodeFailureCountsAsAttempt(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := New(srv.URL, WithMaxAttempts(2)).GetDilemma(context.Background(), "en", nil)
	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGetDilemma_SendsLanguageAndExclude(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "it", r.URL.Query().Get("language"))
		assert.Equal(t, "a-it,b-it", r.URL.Query().Get("exclude"))
		_ = json.NewEncoder(w).Encode(models.Dilemma{ID: "c-it"})
	}))
	defer srv.Close()

	d, err := New(srv.URL).GetDilemma(context.Background(), "it", []string{"a-it", "b-it"})
	require.NoError(t, err)
	assert.Equal(t, "c-it", d.ID)
}

func TestGetDilemma_CancelledContextStops(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(dilemmaHandler(t, 100, &calls))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL).GetDilemma(ctx, "en", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGenerateDilemma_RetriesUnparsableContent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		content := "nonsense"
		if atomic.AddInt32(&calls, 1) == 3 {
			content = "```json\n{\"dilemma\":\" Save one? \",\"firstAnswer\":\"Yes\",\"secondAnswer\":\"No\",\"teaseOption1\":\"a\",\"teaseOption2\":\"b\"}\n```"
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]string{"role": "assistant", "content": content}}},
		})
	}))
	defer srv.Close()

	gen, err := New(srv.URL).GenerateDilemma(context.Background(), "en")
	require.NoError(t, err)
	assert.Equal(t, "Save one?", gen.Dilemma)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestParseGeneratedDilemma_MissingFields(t *testing.T) {
	_, err := ParseGeneratedDilemma(`{"dilemma":"x"}`)
	assert.ErrorIs(t, err, models.ErrAIBadResponse)
}

func TestVote_SingleAttemptAPIError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"dilemma not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Vote(context.Background(), "x", true)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Contains(t, apiErr.Body, "NOT_FOUND")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestStoryNodeVote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trolley", body["flowId"])
		assert.Equal(t, "1", body["nodeId"])
		assert.Equal(t, "second", body["vote"])
		_, _ = w.Write([]byte(`{"currentNode":{"dilemma":"x"},"nextNodeId":"3","nextNode":{"dilemma":"y"},"isComplete":false}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL).StoryNodeVote(context.Background(), "trolley", "1", false)
	require.NoError(t, err)
	require.NotNil(t, res.NextNodeID)
	assert.Equal(t, "3", *res.NextNodeID)
	assert.Equal(t, "y", res.NextNode.Dilemma)
}

func TestResetSession(t *testing.T) {
	c := New("http://x", WithSessionID("fixed"))
	assert.Equal(t, "fixed", c.SessionID())
	id := c.ResetSession()
	assert.NotEqual(t, "fixed", id)
	assert.Equal(t, id, c.SessionID())
}
