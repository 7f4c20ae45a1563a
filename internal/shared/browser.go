package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

var getRuntime = func() string { return runtime.GOOS }

var startCommand = func(cmd *exec.Cmd) error { return cmd.Start() }

// Navigator opens navigation targets (login, logout, reservation pages) outside this process.
type Navigator interface {
	Open(url string) error
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(url string) error

func (f NavigatorFunc) Open(url string) error { return f(url) }

// BrowserNavigator opens targets in the default system browser.
type BrowserNavigator struct{}

func (BrowserNavigator) Open(url string) error { return OpenBrowser(url) }

// OpenBrowser opens the default system browser to the specified URL.
//
// Supports macOS, Linux, and Windows platforms.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	rt := getRuntime()
	switch rt {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux", "freebsd", "openbsd":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("%w: unsupported platform: %s", ErrNavigation, rt)
	}

	if err := startCommand(cmd); err != nil {
		return fmt.Errorf("%w: failed to open browser: %v", ErrNavigation, err)
	}
	return nil
}
