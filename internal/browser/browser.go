// Package browser opens the chat page in the user's default browser.
package browser

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"time"
)

// Opener launches a URL.
type Opener func(url string) error

// Open opens url in the default browser for the current OS.
func Open(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	// Reap the launcher so it does not linger as a zombie.
	go func() { _ = cmd.Wait() }()
	return nil
}

// OpenAfter calls open(url) once after delay on a background timer. Failures are
// logged; there is no retry. The returned timer can be stopped before it fires.
func OpenAfter(delay time.Duration, url string, open Opener) *time.Timer {
	if open == nil {
		open = Open
	}
	return time.AfterFunc(delay, func() {
		if err := open(url); err != nil {
			slog.Warn("Failed to open browser", "url", url, "error", err)
			return
		}
		slog.Info("Browser opened", "url", url)
	})
}
