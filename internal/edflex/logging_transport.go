package edflex

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openlms/edflex-connector/internal/logging"
)

// authBodyAllowlist keeps the client_secret out of request logs for the
// token endpoint; only these fields are logged verbatim.
var authBodyAllowlist = []string{"grant_type", "client_id"}

// LoggingTransport wraps an http.RoundTripper and logs all API interactions.
// Authorization headers and the client secret are masked before logging.
type LoggingTransport struct {
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	var reqBodyBytes []byte
	if req.Body != nil {
		var err error
		reqBodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		// Restore body for transport
		req.Body = io.NopCloser(bytes.NewReader(reqBodyBytes))
	}

	reqHeaders := make(map[string]string)
	for k, v := range req.Header {
		reqHeaders[k] = logging.MaskHeader(k, strings.Join(v, ", "))
	}

	loggedBody := reqBodyBytes
	if strings.HasSuffix(req.URL.Path, authPath) {
		loggedBody = logging.MaskJSONBody(reqBodyBytes, authBodyAllowlist)
	}

	t.logger().Debug("api request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", reqHeaders,
		"body", string(loggedBody),
	)

	resp, err := t.transport().RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		t.logger().Error("api request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	t.logger().Debug("api response",
		"method", req.Method,
		"url", req.URL.String(),
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
	)

	return resp, nil
}

func (t *LoggingTransport) transport() http.RoundTripper {
	if t.Transport != nil {
		return t.Transport
	}
	return http.DefaultTransport
}

func (t *LoggingTransport) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
