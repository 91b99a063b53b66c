package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// loggingTransport logs one line per request. Bodies and tokens are never logged.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func (t loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	start := time.Now()
	resp, err := next.RoundTrip(req)

	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", req.Header.Get(RequestIDHeader)),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.log.Debug("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
