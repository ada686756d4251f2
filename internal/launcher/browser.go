package launcher

import (
	"context"
	"runtime"
	"strings"
)

// Browser opens links in the desktop's default browser.
type Browser struct {
	procs Processes
	goos  string
}

func NewBrowser(procs Processes) *Browser {
	return &Browser{procs: procs, goos: runtime.GOOS}
}

func (b *Browser) OpenURL(ctx context.Context, url string) error {
	url = withScheme(url)

	switch b.goos {
	case "windows":
		return b.procs.Spawn(ctx, "rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		return b.procs.Spawn(ctx, "open", url)
	default:
		return b.procs.Spawn(ctx, "xdg-open", url)
	}
}

// withScheme turns www.google.com into https://www.google.com.
func withScheme(url string) string {
	url = strings.TrimSpace(url)
	if strings.Contains(url, "://") {
		return url
	}
	return "https://" + url
}
