package handlers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaydesk/telephony/pkg/logging"
)

// LegacyProxy keeps deprecated webhook URLs working by replaying the full
// request against the canonical endpoint and returning the upstream response
// unmodified. It never validates or parses the payload itself.
type LegacyProxy struct {
	upstream string
	client   *http.Client
	logger   *logging.Logger
}

// NewLegacyProxy builds a proxy that forwards to paths under upstream,
// typically the service's own base URL.
func NewLegacyProxy(upstream string, logger *logging.Logger) *LegacyProxy {
	if logger == nil {
		logger = logging.Default()
	}
	return &LegacyProxy{
		upstream: strings.TrimRight(upstream, "/"),
		client:   &http.Client{Timeout: 15 * time.Second},
		logger:   logger,
	}
}

// Forward returns a handler that replays requests against targetPath,
// preserving method, headers, query string, and body.
func (p *LegacyProxy) Forward(targetPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := p.upstream + targetPath
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		// The canonical handler verifies the provider signature against the
		// URL the provider called, so the original scheme, host, and URI must
		// survive the path rewrite.
		req.Header = r.Header.Clone()
		if req.Header.Get("X-Forwarded-Host") == "" {
			req.Header.Set("X-Forwarded-Host", r.Host)
		}
		if req.Header.Get("X-Forwarded-Proto") == "" {
			proto := "http"
			if r.TLS != nil {
				proto = "https"
			}
			req.Header.Set("X-Forwarded-Proto", proto)
		}
		req.Header.Set("X-Forwarded-Uri", r.URL.RequestURI())

		resp, err := p.client.Do(req)
		if err != nil {
			p.logger.Error("legacy webhook forward failed", "path", r.URL.Path, "target", targetPath, "error", err)
			http.Error(w, "bad gateway", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		for key, values := range resp.Header {
			for _, value := range values {
				w.Header().Add(key, value)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			p.logger.Warn("truncated legacy webhook response", "path", r.URL.Path, "error", err)
		}
	}
}
