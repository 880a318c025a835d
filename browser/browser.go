// Package browser opens URLs in the local default browser. It is used for
// unsubscribe pages that need a human to finish the flow.
package browser

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// OpenURL opens an http(s) URL in the platform default browser.
func OpenURL(url string) error {
	if strings.TrimSpace(url) == "" {
		return errors.New("browser: url is required")
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("browser: refusing to open non-http url %q", url)
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: opening %s failed: %w", url, err)
	}
	return nil
}
