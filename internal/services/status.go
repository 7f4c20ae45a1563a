package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/edjs/internal/metrics"
	"github.com/desertthunder/edjs/internal/models"
	"github.com/desertthunder/edjs/internal/shared"
)

// DefaultStatusTimeout bounds a single remote status check.
const DefaultStatusTimeout = 10 * time.Second

const maxStatusBody = 1 << 20

// StatusFetcher asks the remote auth service whether the visitor is logged in.
//
// Fetch never fails: every error path resolves to [models.LoggedOut].
type StatusFetcher interface {
	Fetch(ctx context.Context) models.AuthState
}

// StatusServiceOpts configures a [StatusService]. Zero values get defaults.
type StatusServiceOpts struct {
	BaseURL    string
	Mode       string
	Credential string
	Timeout    time.Duration
	Client     *http.Client
	Registry   *CallbackRegistry
	Logger     *log.Logger
	Metrics    *metrics.Metrics
}

// StatusService implements [StatusFetcher] against GET {base}/api/auth/status.
type StatusService struct {
	endpoints  Endpoints
	mode       string
	credential string
	timeout    time.Duration
	httpClient *http.Client
	registry   *CallbackRegistry
	logger     *log.Logger
	metrics    *metrics.Metrics
}

// NewStatusService resolves the base URL and request mode once.
//
// Mode auto becomes credentialed when a credential is configured and callback otherwise.
func NewStatusService(opts StatusServiceOpts) *StatusService {
	if opts.BaseURL == "" {
		opts.BaseURL = shared.ProductionRemoteURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultStatusTimeout
	}
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Registry == nil {
		opts.Registry = NewCallbackRegistry(opts.Metrics)
	}

	mode := opts.Mode
	if mode == "" || mode == shared.ModeAuto {
		mode = shared.ModeCallback
		if opts.Credential != "" {
			mode = shared.ModeCredentialed
		}
	}

	return &StatusService{
		endpoints:  NewEndpoints(opts.BaseURL),
		mode:       mode,
		credential: opts.Credential,
		timeout:    opts.Timeout,
		httpClient: opts.Client,
		registry:   opts.Registry,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
	}
}

func (s *StatusService) Mode() string { return s.mode }

func (s *StatusService) Endpoints() Endpoints { return s.endpoints }

func (s *StatusService) Registry() *CallbackRegistry { return s.registry }

// Fetch reports the remote state, collapsing every failure to logged out.
func (s *StatusService) Fetch(ctx context.Context) models.AuthState {
	state, err := s.Check(ctx)
	if err != nil {
		s.logger.Warn("auth status check failed, treating as logged out", "mode", s.mode, "error", err)
		return models.LoggedOut()
	}
	return state
}

// Check is Fetch with the failure reported. The returned state is logged out whenever err != nil.
func (s *StatusService) Check(ctx context.Context) (models.AuthState, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	var (
		state models.AuthState
		err   error
	)
	switch s.mode {
	case shared.ModeCredentialed:
		state, err = s.fetchCredentialed(ctx)
	case shared.ModeCallback:
		state, err = s.fetchCallback(ctx)
	default:
		err = fmt.Errorf("%w: unknown status mode %q", shared.ErrInvalidConfig, s.mode)
	}

	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, shared.ErrTimeout) {
		err = fmt.Errorf("%w after %s: %v", shared.ErrTimeout, s.timeout, err)
	}
	s.metrics.ObserveStatusFetch(s.mode, outcome(state, err), time.Since(start))

	if err != nil {
		return models.LoggedOut(), err
	}
	s.logger.Debug("auth status checked", "mode", s.mode, "authenticated", state.Authenticated)
	return state, nil
}

func outcome(state models.AuthState, err error) string {
	switch {
	case errors.Is(err, shared.ErrTimeout):
		return metrics.OutcomeTimeout
	case err != nil:
		return metrics.OutcomeError
	case state.Authenticated:
		return metrics.OutcomeAuthenticated
	default:
		return metrics.OutcomeUnauthenticated
	}
}

func (s *StatusService) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", shared.ErrStatusRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	if s.mode == shared.ModeCredentialed && s.credential != "" {
		req.Header.Set("Cookie", s.credential)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrStatusRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", shared.ErrStatusResponse, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", shared.ErrStatusRequest, err)
	}
	return body, nil
}

func decodeStatus(payload []byte) (models.AuthState, error) {
	var resp models.StatusResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return models.LoggedOut(), fmt.Errorf("%w: failed to decode response: %v", shared.ErrStatusResponse, err)
	}
	state, err := resp.State()
	if err != nil {
		return models.LoggedOut(), fmt.Errorf("%w: %v", shared.ErrStatusResponse, err)
	}
	return state, nil
}

func (s *StatusService) fetchCredentialed(ctx context.Context) (models.AuthState, error) {
	body, err := s.get(ctx, s.endpoints.StatusURL())
	if err != nil {
		return models.LoggedOut(), err
	}
	return decodeStatus(body)
}

// fetchCallback loads the padded status body in the background and waits for it to invoke the
// registered callback. The registration and the in-flight request are both torn down on return.
func (s *StatusService) fetchCallback(ctx context.Context) (models.AuthState, error) {
	name, delivered, release := s.registry.Register()
	defer release()

	loadCtx, cancelLoad := context.WithCancel(ctx)
	defer cancelLoad()

	failed := make(chan error, 1)
	go func() {
		body, err := s.get(loadCtx, s.endpoints.CallbackStatusURL(name))
		if err != nil {
			failed <- err
			return
		}
		invoked, payload, err := ParsePadded(body)
		if err != nil {
			failed <- err
			return
		}
		if err := s.registry.Deliver(invoked, payload); err != nil {
			s.logger.Debug("dropping status payload", "callback", invoked, "error", err)
			if invoked != name {
				failed <- fmt.Errorf("%w: response invoked %s", shared.ErrStatusResponse, invoked)
			}
		}
	}()

	select {
	case payload := <-delivered:
		return decodeStatus(payload)
	case err := <-failed:
		return models.LoggedOut(), err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return models.LoggedOut(), fmt.Errorf("%w after %s", shared.ErrTimeout, s.timeout)
		}
		return models.LoggedOut(), fmt.Errorf("%w: %v", shared.ErrStatusRequest, ctx.Err())
	}
}
