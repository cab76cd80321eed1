package server

import (
	"sync"
	"time"

	"github.com/truthseekerlabs/truthseeker/internal/verdict"
)

// verification is the in-memory progress record for one async verification.
type verification struct {
	logs      []string
	completed bool
	result    *verdict.Result
	err       string
	updatedAt time.Time
}

// tracker holds in-progress verifications for the async endpoint. Completed
// entries linger briefly so the frontend can fetch the final status.
type tracker struct {
	mu            sync.Mutex
	verifications map[string]*verification
	retention     time.Duration
}

func newTracker() *tracker {
	return &tracker{
		verifications: make(map[string]*verification),
		retention:     5 * time.Second,
	}
}

func (t *tracker) start(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.verifications[id] = &verification{updatedAt: time.Now()}
}

// appendLog records one progress line, tagged with the emitting team.
func (t *tracker) appendLog(id, team, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.verifications[id]
	if !ok {
		return
	}
	v.logs = append(v.logs, "["+team+"] "+message)
	v.updatedAt = time.Now()
}

func (t *tracker) complete(id string, result *verdict.Result, err error) {
	t.mu.Lock()
	v, ok := t.verifications[id]
	if ok {
		v.completed = true
		v.result = result
		if err != nil {
			v.err = err.Error()
			v.logs = append(v.logs, "[final] Error: "+err.Error())
		}
		v.updatedAt = time.Now()
	}
	t.mu.Unlock()

	if ok {
		time.AfterFunc(t.retention, func() {
			t.mu.Lock()
			delete(t.verifications, id)
			t.mu.Unlock()
		})
	}
}

// status drains accumulated logs and reports completion state. The second
// return value is false for unknown ids.
func (t *tracker) status(id string) (completed bool, logs []string, result *verdict.Result, errMsg string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, found := t.verifications[id]
	if !found {
		return false, nil, nil, "", false
	}
	logs = v.logs
	v.logs = nil
	return v.completed, logs, v.result, v.err, true
}
