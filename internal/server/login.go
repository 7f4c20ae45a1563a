package server

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/edjs/internal/shared"
)

// DefaultLoginTimeout bounds how long a login flow waits for the return.
const DefaultLoginTimeout = 5 * time.Minute

// LoginFlowOpts configures a [LoginFlow].
type LoginFlowOpts struct {
	Server    *Server
	Handler   *CallbackHandler
	Navigator shared.Navigator
	LoginURL  string
	Timeout   time.Duration
	Logger    *log.Logger
	// OpenFailed is called when the navigator could not open LoginURL so the caller can print it.
	OpenFailed func(loginURL string, err error)
}

// LoginFlow opens the remote login page and waits for the first return on the local listener.
type LoginFlow struct {
	opts LoginFlowOpts
}

func NewLoginFlow(opts LoginFlowOpts) *LoginFlow {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLoginTimeout
	}
	if opts.Logger == nil {
		opts.Logger = shared.DiscardLogger()
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.BrowserNavigator{}
	}
	return &LoginFlow{opts: opts}
}

// Run starts the listener, opens the login page and blocks until a return arrives, the
// listener fails, the timeout passes or ctx ends. The listener is shut down before returning.
//
// A return that does not authenticate yields its result together with [shared.ErrLoginIncomplete].
func (f *LoginFlow) Run(ctx context.Context) (CallbackResult, error) {
	if err := f.opts.Server.Start(); err != nil {
		return CallbackResult{}, err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := f.opts.Server.Shutdown(shutdownCtx); err != nil {
			f.opts.Logger.Warn("error shutting down server", "error", err)
		}
	}()

	if err := f.opts.Navigator.Open(f.opts.LoginURL); err != nil {
		f.opts.Logger.Warnf("failed to open browser automatically %v", err)
		if f.opts.OpenFailed != nil {
			f.opts.OpenFailed(f.opts.LoginURL, err)
		}
	}

	timeout := time.NewTimer(f.opts.Timeout)
	defer timeout.Stop()

	select {
	case result, ok := <-f.opts.Handler.Result():
		if !ok {
			return CallbackResult{}, fmt.Errorf("%w: callback already consumed", shared.ErrLoginIncomplete)
		}
		if !result.State.Authenticated {
			return result, fmt.Errorf("%w: returned without a session", shared.ErrLoginIncomplete)
		}
		return result, nil
	case err := <-f.opts.Server.Errors():
		return CallbackResult{}, fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	case <-timeout.C:
		return CallbackResult{}, fmt.Errorf("%w: login timed out after %s", shared.ErrTimeout, f.opts.Timeout)
	case <-ctx.Done():
		return CallbackResult{}, ctx.Err()
	}
}
