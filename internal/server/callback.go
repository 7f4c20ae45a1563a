package server

import (
	"context"
	"html/template"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/edjs/internal/auth"
	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/shared"
)

// CallbackPath is where the auth service sends the visitor back.
const CallbackPath = "/callback"

// Reconciler is the part of auth.Reconciler the listener needs.
type Reconciler interface {
	Reconcile(ctx context.Context, loc auth.Location, now time.Time) models.AuthState
	State() models.AuthState
}

// CallbackResult is the outcome of a login return.
type CallbackResult struct {
	State    models.AuthState
	CleanURL string
}

// CallbackHandler consumes login return parameters on /callback.
//
// Every return is reconciled, but only the first result is published on [CallbackHandler.Result].
type CallbackHandler struct {
	reconciler Reconciler
	now        func() time.Time
	logger     *log.Logger
	resultChan chan CallbackResult
	once       sync.Once
}

func NewCallbackHandler(r Reconciler, now func() time.Time, logger *log.Logger) *CallbackHandler {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &CallbackHandler{
		reconciler: r,
		now:        now,
		logger:     logger,
		resultChan: make(chan CallbackResult, 1),
	}
}

func (h *CallbackHandler) Routes() []string {
	return []string{CallbackPath}
}

// ServeHTTP reconciles a return carrying auth parameters and answers 303 to the same URL without
// them. Without parameters it renders the current state.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !auth.HasAuthParams(r.URL) {
		h.renderState(w, h.reconciler.State())
		return
	}

	loc := auth.NewPageLocationFromURL(requestURL(r))
	state := h.reconciler.Reconcile(r.Context(), loc, h.now())
	clean := auth.StripAuthParams(loc.URL())

	h.logger.Info("login return received", "authenticated", state.Authenticated)
	h.Send(CallbackResult{State: state, CleanURL: clean.String()})

	http.Redirect(w, r, clean.RequestURI(), http.StatusSeeOther)
}

// Send publishes result if nothing was published yet.
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

func requestURL(r *http.Request) *url.URL {
	u := *r.URL
	u.Scheme = "http"
	if r.TLS != nil {
		u.Scheme = "https"
	}
	u.Host = r.Host
	return &u
}

var statePage = template.Must(template.New("state").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>EDJS</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { margin: 0 0 1rem 0; }
        .ok { color: #28a745; }
        .out { color: #666; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
    {{- if .Authenticated }}
        <h1 class="ok">✓ Connecté</h1>
        <p>{{ .User.Label }} ({{ .User.Email }})</p>
        <p>Vous pouvez fermer cette fenêtre et revenir au terminal.</p>
    {{- else }}
        <h1 class="out">Non connecté</h1>
        <p>Aucune session active.</p>
    {{- end }}
    </div>
</body>
</html>
`))

func (h *CallbackHandler) renderState(w http.ResponseWriter, state models.AuthState) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := statePage.Execute(w, state.Normalize()); err != nil {
		h.logger.Warn("failed to render state page", "error", err)
	}
}
