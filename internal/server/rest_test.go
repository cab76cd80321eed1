package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truthseekerlabs/truthseeker/internal/search"
	"github.com/truthseekerlabs/truthseeker/internal/verdict"
)

type stubProvider struct {
	name string
	resp *search.Response
	err  error
}

func (s *stubProvider) Name() string      { return s.name }
func (s *stubProvider) IsAvailable() bool { return true }

func (s *stubProvider) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

// markerGen routes prompts to canned responses by template marker phrases.
type markerGen struct{}

func (markerGen) Generate(ctx context.Context, prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "generate search queries"):
		return `{"queries": ["q1", "q2", "q3"]}`, nil
	case strings.Contains(prompt, "synthesize the findings"):
		return "synthesized", nil
	case strings.Contains(prompt, "last judge"):
		return `{"decision": "true", "reason": "agreed", "confidence": 90, "key_evidence": ["e"]}`, nil
	default:
		return `{"decision": "true", "reason": "evidence", "confidence": 80, "key_evidence": ["e"]}`, nil
	}
}

func testHandler(t *testing.T, withEngine bool) http.HandlerFunc {
	t.Helper()
	svc := search.NewService()
	require.NoError(t, svc.Register(&stubProvider{
		name: search.ProviderTavily,
		resp: &search.Response{
			Provider: search.ProviderTavily,
			Results: []search.Result{
				{Title: "Hit", URL: "https://h.example", Content: strings.Repeat("text ", 50), Score: 0.9, Source: search.ProviderTavily},
			},
		},
	}))

	services := Services{Search: svc}
	if withEngine {
		services.Engine = verdict.NewEngine(svc, markerGen{})
	}
	return CreateRESTHandler(services)
}

func do(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CORSPreflight(t *testing.T) {
	rec := do(testHandler(t, false), "OPTIONS", "/api/search", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHandler_UnknownPathIs404(t *testing.T) {
	rec := do(testHandler(t, false), "GET", "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := do(testHandler(t, false), "GET", "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestProviders_ListsRegisteredNames(t *testing.T) {
	rec := do(testHandler(t, false), "GET", "/api/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{search.ProviderTavily}, body.Providers)
}

func TestSearch_RequiresQuery(t *testing.T) {
	rec := do(testHandler(t, false), "GET", "/api/search", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearch_FanOutByDefault(t *testing.T) {
	rec := do(testHandler(t, false), "GET", "/api/search?q=hello", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var agg search.Aggregated
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &agg))
	assert.Equal(t, search.ProviderAll, agg.Provider)
	assert.Equal(t, []string{search.ProviderTavily}, agg.UsedProviders)
	require.Len(t, agg.CombinedResults, 1)
	assert.Equal(t, "Hit", agg.CombinedResults[0].Title)
}

func TestSearch_NamedUnknownProviderIs503(t *testing.T) {
	rec := do(testHandler(t, false), "GET", "/api/search?q=hello&provider=exa", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerify_DisabledWithoutEngine(t *testing.T) {
	rec := do(testHandler(t, false), "POST", "/api/verify", `{"claim": "x"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestVerify_RequiresClaim(t *testing.T) {
	rec := do(testHandler(t, true), "POST", "/api/verify", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerify_RequiresPOST(t *testing.T) {
	rec := do(testHandler(t, true), "GET", "/api/verify", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestVerify_SyncReturnsResult(t *testing.T) {
	rec := do(testHandler(t, true), "POST", "/api/verify", `{"claim": "the earth is round"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result verdict.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "the earth is round", result.Claim)
	assert.Equal(t, "true", result.Final.Decision)
	assert.Equal(t, verdict.FlexInt(90), result.Final.Confidence)
}

func TestVerifyAsync_TracksUntilCompletion(t *testing.T) {
	handler := testHandler(t, true)

	rec := do(handler, "POST", "/api/verify/async", `{"claim": "water is wet"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	id := accepted["verificationId"]
	require.NotEmpty(t, id)

	deadline := time.Now().Add(5 * time.Second)
	var status struct {
		Completed bool            `json:"completed"`
		Logs      []string        `json:"logs"`
		Result    *verdict.Result `json:"result"`
	}
	for {
		srec := do(handler, "GET", "/api/verify/status?id="+id, "")
		require.Equal(t, http.StatusOK, srec.Code)
		require.NoError(t, json.Unmarshal(srec.Body.Bytes(), &status))
		if status.Completed {
			break
		}
		require.True(t, time.Now().Before(deadline), "verification never completed")
		time.Sleep(20 * time.Millisecond)
	}

	require.NotNil(t, status.Result)
	assert.Equal(t, "true", status.Result.Final.Decision)
}

func TestVerifyStatus_UnknownIdIs404(t *testing.T) {
	rec := do(testHandler(t, true), "GET", "/api/verify/status?id=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerifyStatus_RequiresId(t *testing.T) {
	rec := do(testHandler(t, true), "GET", "/api/verify/status", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryHandler_CatchesPanic(t *testing.T) {
	h := CreateRecoveryHandler(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})
	rec := do(h, "GET", "/anything", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTracker_LogsDrainOnRead(t *testing.T) {
	tr := newTracker()
	tr.start("id1")
	tr.appendLog("id1", "blue", "first")
	tr.appendLog("id1", "blue", "second")

	_, logs, _, _, ok := tr.status("id1")
	require.True(t, ok)
	assert.Equal(t, []string{"[blue] first", "[blue] second"}, logs)

	_, logs, _, _, ok = tr.status("id1")
	require.True(t, ok)
	assert.Empty(t, logs)
}

func TestTracker_CompletedEntryExpires(t *testing.T) {
	tr := newTracker()
	tr.retention = 20 * time.Millisecond
	tr.start("id1")
	tr.complete("id1", &verdict.Result{Claim: "c"}, nil)

	completed, _, result, _, ok := tr.status("id1")
	require.True(t, ok)
	assert.True(t, completed)
	require.NotNil(t, result)

	assert.Eventually(t, func() bool {
		_, _, _, _, ok := tr.status("id1")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
