package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/types"
)

func TestRemoteEvaluator_Evaluate(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var tc TaskContext
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tc))
		assert.Equal(t, "t-1", tc.TaskID)

		eval := Evaluation{
			Summary: "looks fine",
			Opinions: []Opinion{
				{Attribute: "storage", Value: "sqlite", Confidence: 0.8},
			},
		}
		_ = json.NewEncoder(w).Encode(eval)
	}))
	defer srv.Close()

	e := NewRemoteEvaluator("security", srv.URL, 5*time.Second, zap.NewNop())
	eval, err := e.Evaluate(context.Background(), &TaskContext{TaskID: "t-1"})
	require.NoError(t, err)
	assert.Equal(t, "security", eval.AgentID, "agent id filled in when omitted")
	require.Len(t, eval.Opinions, 1)
	assert.Equal(t, "sqlite", eval.Opinions[0].Value)
}

func TestRemoteEvaluator_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	e := NewRemoteEvaluator("security", srv.URL, 5*time.Second, zap.NewNop())
	_, err := e.Evaluate(context.Background(), &TaskContext{TaskID: "t-1"})
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentInvocation, types.GetErrorCode(err))
	assert.True(t, types.IsRetryable(err))
}

func TestRemoteEvaluator_DeadlineExceeded(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	e := NewRemoteEvaluator("security", srv.URL, 5*time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := e.Evaluate(ctx, &TaskContext{TaskID: "t-1"})
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentTimeout, types.GetErrorCode(err))
}

func TestRemoteEvaluator_Unreachable(t *testing.T) {
	t.Parallel()
	e := NewRemoteEvaluator("security", "http://127.0.0.1:1", time.Second, zap.NewNop())
	_, err := e.Evaluate(context.Background(), &TaskContext{TaskID: "t-1"})
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentInvocation, types.GetErrorCode(err))
}

func TestRemoteEvaluator_BadJSON(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	e := NewRemoteEvaluator("security", srv.URL, time.Second, zap.NewNop())
	_, err := e.Evaluate(context.Background(), &TaskContext{TaskID: "t-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode evaluation")
}
