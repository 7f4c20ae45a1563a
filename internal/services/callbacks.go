package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/desertthunder/edjs/internal/metrics"
	"github.com/desertthunder/edjs/internal/shared"
)

// CallbackPrefix starts every generated callback name.
const CallbackPrefix = "authCallback_"

// CallbackRegistry holds one-time callback registrations for padded status responses.
//
// A registration accepts at most one payload. Payloads for names that were never registered,
// or were already released, are dropped.
type CallbackRegistry struct {
	mu      sync.Mutex
	pending map[string]chan json.RawMessage
	metrics *metrics.Metrics
}

func NewCallbackRegistry(m *metrics.Metrics) *CallbackRegistry {
	return &CallbackRegistry{pending: make(map[string]chan json.RawMessage), metrics: m}
}

// Register reserves a fresh callback name. The returned release func must be called on every
// exit path and is safe to call more than once.
func (r *CallbackRegistry) Register() (string, <-chan json.RawMessage, func()) {
	name := CallbackPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	ch := make(chan json.RawMessage, 1)

	r.mu.Lock()
	r.pending[name] = ch
	r.mu.Unlock()
	r.metrics.CallbackRegistered()

	var once sync.Once
	release := func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.pending, name)
			r.mu.Unlock()
			r.metrics.CallbackReleased()
		})
	}
	return name, ch, release
}

// Deliver hands payload to the registration for name and consumes it.
func (r *CallbackRegistry) Deliver(name string, payload json.RawMessage) error {
	r.mu.Lock()
	ch, ok := r.pending[name]
	if ok {
		delete(r.pending, name)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrCallbackUnknown, name)
	}
	ch <- payload
	return nil
}

// Len returns the number of live registrations.
func (r *CallbackRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

var paddedBody = regexp.MustCompile(`(?s)^([A-Za-z_$][A-Za-z0-9_$]*)\s*\((.*)\)$`)

// ParsePadded splits a body of the form name({...}); into the callback name and its JSON argument.
func ParsePadded(body []byte) (string, json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(body))
	trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))

	m := paddedBody.FindStringSubmatch(trimmed)
	if m == nil {
		return "", nil, fmt.Errorf("%w: body is not a callback invocation", shared.ErrStatusResponse)
	}

	payload := json.RawMessage(strings.TrimSpace(m[2]))
	if !json.Valid(payload) {
		return "", nil, fmt.Errorf("%w: callback argument is not JSON", shared.ErrStatusResponse)
	}
	return m[1], payload, nil
}
