package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/truthseekerlabs/truthseeker/internal/search"
	"github.com/truthseekerlabs/truthseeker/internal/store"
	"github.com/truthseekerlabs/truthseeker/internal/verdict"
)

// Services groups all service dependencies for REST handlers
type Services struct {
	Search *search.Service
	Engine *verdict.Engine
	Store  *store.PostgresStore
}

// CreateRESTHandler creates REST API endpoints
func CreateRESTHandler(services Services) http.HandlerFunc {
	tr := newTracker()

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		switch r.URL.Path {
		case "/api/verify":
			handleVerify(w, r, services.Engine)
		case "/api/verify/async":
			handleVerifyAsync(w, r, services.Engine, services.Store, tr)
		case "/api/verify/status":
			handleVerifyStatus(w, r, tr, services.Store)
		case "/api/search":
			handleSearch(w, r, services.Search)
		case "/api/providers":
			handleProviders(w, r, services.Search)
		case "/api/health":
			handleHealth(w, r, services.Store)
		default:
			http.NotFound(w, r)
		}
	}
}

type verifyRequest struct {
	Claim string `json:"claim"`
}

func handleVerify(w http.ResponseWriter, r *http.Request, engine *verdict.Engine) {
	if r.Method != "POST" {
		http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	if engine == nil {
		http.Error(w, `{"error": "verification is disabled - no LLM configured"}`, http.StatusServiceUnavailable)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Claim == "" {
		http.Error(w, `{"error": "claim is required"}`, http.StatusBadRequest)
		return
	}

	log.Printf("[REST] Verifying claim: %s", req.Claim)
	result, err := engine.Verify(r.Context(), req.Claim, nil)
	if err != nil {
		log.Printf("[REST] Verification failed: %v", err)
		http.Error(w, `{"error": "`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func handleVerifyAsync(w http.ResponseWriter, r *http.Request, engine *verdict.Engine, st *store.PostgresStore, tr *tracker) {
	if r.Method != "POST" {
		http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	if engine == nil {
		http.Error(w, `{"error": "verification is disabled - no LLM configured"}`, http.StatusServiceUnavailable)
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Claim == "" {
		http.Error(w, `{"error": "claim is required"}`, http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	tr.start(id)
	if st != nil {
		if err := st.CreateVerification(r.Context(), id, req.Claim); err != nil {
			log.Printf("[REST] Failed to persist verification %s: %v", id, err)
		}
	}

	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		log.Printf("[REST] Starting background verification %s", id)
		logFn := func(team, message string) {
			tr.appendLog(id, team, message)
		}
		result, err := engine.Verify(bgCtx, req.Claim, logFn)
		tr.complete(id, result, err)

		if st == nil {
			return
		}
		if err != nil {
			if ferr := st.FailVerification(bgCtx, id, err.Error()); ferr != nil {
				log.Printf("[REST] Failed to record failure for %s: %v", id, ferr)
			}
			return
		}
		if cerr := st.CompleteVerification(bgCtx, id, result.Final.Decision, int(result.Final.Confidence), result.Final.Reason, result); cerr != nil {
			log.Printf("[REST] Failed to record result for %s: %v", id, cerr)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"verificationId": id})
}

func handleVerifyStatus(w http.ResponseWriter, r *http.Request, tr *tracker, st *store.PostgresStore) {
	if r.Method != "GET" {
		http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, `{"error": "id query parameter is required"}`, http.StatusBadRequest)
		return
	}

	completed, logs, result, errMsg, ok := tr.status(id)
	if !ok {
		// The tracker drops finished entries quickly; fall back to the store.
		if st != nil {
			if v, err := st.GetVerification(r.Context(), id); err == nil {
				writeStoredStatus(w, v)
				return
			}
		}
		http.Error(w, `{"error": "verification not found"}`, http.StatusNotFound)
		return
	}
	if logs == nil {
		logs = []string{}
	}

	resp := map[string]any{
		"completed": completed,
		"logs":      logs,
	}
	if result != nil {
		resp["result"] = result
	}
	if errMsg != "" {
		resp["error"] = errMsg
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeStoredStatus(w http.ResponseWriter, v *store.Verification) {
	resp := map[string]any{
		"completed": v.Status == store.StatusCompleted || v.Status == store.StatusFailed,
		"logs":      []string{},
		"status":    v.Status,
	}
	if len(v.Result) > 0 {
		resp["result"] = json.RawMessage(v.Result)
	}
	if v.Error != "" {
		resp["error"] = v.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

func handleSearch(w http.ResponseWriter, r *http.Request, svc *search.Service) {
	if r.Method != "GET" {
		http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error": "q query parameter is required"}`, http.StatusBadRequest)
		return
	}

	provider := r.URL.Query().Get("provider")
	if provider == "" {
		provider = search.ProviderAll
	}

	agg, err := svc.Search(r.Context(), query, search.Options{Provider: provider})
	if err != nil {
		log.Printf("[REST] Search failed for provider %q: %v", provider, err)
		status := http.StatusInternalServerError
		if errors.Is(err, search.ErrNoProviders) || errors.Is(err, search.ErrProviderUnavailable) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, `{"error": "`+err.Error()+`"}`, status)
		return
	}

	writeJSON(w, http.StatusOK, agg)
}

func handleProviders(w http.ResponseWriter, r *http.Request, svc *search.Service) {
	if r.Method != "GET" {
		http.Error(w, `{"error": "method not allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": svc.Providers()})
}

func handleHealth(w http.ResponseWriter, r *http.Request, st *store.PostgresStore) {
	resp := map[string]any{"status": "ok"}
	if st != nil {
		if n, err := st.CountPending(r.Context()); err == nil {
			resp["pendingVerifications"] = n
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[REST] Failed to encode response: %v", err)
	}
}
