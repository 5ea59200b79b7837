package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const okBody = `{
	"food": "pizza",
	"confidence": 0.93,
	"nutrients": {"calories": 285.4, "protein": 12, "carbs": 36, "fat": 10},
	"advice": "Limit portions",
	"substitute": "Whole-wheat flatbread",
	"risk_level": "🟡 Medium Risk",
	"risk_score": 0.55,
	"predictions": [{"label": "pizza", "confidence": 0.93}, {"label": "flatbread", "confidence": 0.04}]
}`

func serve(t *testing.T, status int, body string, check func(r *http.Request)) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return New(srv.URL, time.Second)
}

func TestAnalyze_OK(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, okBody, func(r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req analyzeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "aGVsbG8=", req.Image)
		require.Equal(t, []string{"diabetes"}, req.Conditions)
	})

	a, err := c.Analyze(context.Background(), "aGVsbG8=", []string{"diabetes"})
	require.NoError(t, err)

	require.Equal(t, "pizza", a.Food)
	require.InDelta(t, 0.93, a.Confidence, 1e-9)
	kcal, ok := a.Nutrients.Number("calories")
	require.True(t, ok)
	require.InDelta(t, 285.4, kcal, 1e-9)
	require.Equal(t, "Limit portions", a.Advice)
	require.Equal(t, "Whole-wheat flatbread", a.Substitute)
	require.Equal(t, "🟡 Medium Risk", a.RiskLevel)
	require.NotNil(t, a.RiskScore)
	require.InDelta(t, 0.55, *a.RiskScore, 1e-9)
	require.Len(t, a.Predictions, 2)
}

func TestAnalyze_NilConditionsSentAsEmptyArray(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, okBody, func(r *http.Request) {
		var raw map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		require.JSONEq(t, `[]`, string(raw["conditions"]))
	})

	_, err := c.Analyze(context.Background(), "aGVsbG8=", nil)
	require.NoError(t, err)
}

func TestAnalyze_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"non-2xx", http.StatusBadGateway, `{"detail":"down"}`, ErrStatus},
		{"remote error field", http.StatusOK, `{"error":"model not loaded"}`, ErrRemote},
		{"remote error flag", http.StatusOK, `{"error":true,"food":"x","confidence":1,"nutrients":{},"advice":"a","substitute":"s"}`, ErrRemote},
		{"remote error object", http.StatusOK, `{"error":{"detail":"oom"}}`, ErrRemote},
		{"not json", http.StatusOK, `<html>`, ErrMalformed},
		{"missing food", http.StatusOK, `{"confidence":1,"nutrients":{},"advice":"","substitute":""}`, ErrMalformed},
		{"confidence as string", http.StatusOK, `{"food":"x","confidence":"high","nutrients":{},"advice":"","substitute":""}`, ErrMalformed},
		{"nutrients as array", http.StatusOK, `{"food":"x","confidence":1,"nutrients":[],"advice":"","substitute":""}`, ErrMalformed},
		{"null advice", http.StatusOK, `{"food":"x","confidence":1,"nutrients":{},"advice":null,"substitute":""}`, ErrMalformed},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			client := serve(t, c.status, c.body, nil)
			_, err := client.Analyze(context.Background(), "aGVsbG8=", nil)
			require.ErrorIs(t, err, c.want)
		})
	}
}

func TestAnalyze_FalsyErrorFieldIgnored(t *testing.T) {
	t.Parallel()

	for _, v := range []string{`null`, `false`, `0`, `""`} {
		v := v
		t.Run(v, func(t *testing.T) {
			t.Parallel()

			c := serve(t, http.StatusOK, `{"error":`+v+`,"food":"x","confidence":1,"nutrients":{},"advice":"a","substitute":"s"}`, nil)
			a, err := c.Analyze(context.Background(), "aGVsbG8=", nil)
			require.NoError(t, err)
			require.Equal(t, "x", a.Food)
			require.Nil(t, a.RiskScore)
		})
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, 50*time.Millisecond)
	_, err := c.Analyze(context.Background(), "aGVsbG8=", nil)
	require.Error(t, err)
}

func TestAnalyze_ContextCanceled(t *testing.T) {
	t.Parallel()

	c := serve(t, http.StatusOK, okBody, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Analyze(ctx, "aGVsbG8=", nil)
	require.ErrorIs(t, err, context.Canceled)
}
