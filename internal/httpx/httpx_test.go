package httpx

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func fastRetry() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 3
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

func get(url string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Encoding", AcceptEncoding)
		return req, nil
	}
}

func TestDoWithRetry(t *testing.T) {
	tests := map[string]struct {
		statuses   []int
		wantStatus int
		wantCalls  int32
		wantErr    bool
	}{
		"success":                {statuses: []int{200}, wantStatus: 200, wantCalls: 1},
		"retry then success":     {statuses: []int{503, 429, 200}, wantStatus: 200, wantCalls: 3},
		"not found is final":     {statuses: []int{404}, wantStatus: 404, wantCalls: 1, wantErr: true},
		"unauthorized is final":  {statuses: []int{401}, wantStatus: 401, wantCalls: 1, wantErr: true},
		"gives up after retries": {statuses: []int{500, 500, 500, 500}, wantCalls: 3, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				w.WriteHeader(tt.statuses[n-1])
				_, _ = io.WriteString(w, `{"ok":true}`)
			}))
			defer srv.Close()

			resp, body, err := DoWithRetry(context.Background(), srv.Client(), get(srv.URL), fastRetry())
			if (err != nil) != tt.wantErr {
				t.Fatalf("DoWithRetry() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("calls = %d, want %d", got, tt.wantCalls)
			}
			if tt.wantStatus != 0 {
				if resp == nil || resp.StatusCode != tt.wantStatus {
					t.Fatalf("status = %v, want %d", resp, tt.wantStatus)
				}
				if string(body) != `{"ok":true}` {
					t.Errorf("body = %q", body)
				}
			}
			var herr *HTTPError
			if tt.wantErr && !errors.As(err, &herr) {
				t.Errorf("error %T is not an *HTTPError", err)
			}
		})
	}
}

func TestDoWithRetryHonorsCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	cfg := fastRetry()
	cfg.MaxDelay = time.Minute
	_, _, err := DoWithRetry(ctx, srv.Client(), get(srv.URL), cfg)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("DoWithRetry() error = %v, want deadline exceeded", err)
	}
}

func TestDoWithRetryDecodesBody(t *testing.T) {
	const payload = `[{"id":1,"title":"Syllabus"}]`

	encoders := map[string]func(io.Writer) io.WriteCloser{
		"br":   func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) },
		"gzip": func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) },
	}

	for encoding, newWriter := range encoders {
		t.Run(encoding, func(t *testing.T) {
			var compressed bytes.Buffer
			zw := newWriter(&compressed)
			if _, err := io.WriteString(zw, payload); err != nil {
				t.Fatal(err)
			}
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", encoding)
				_, _ = w.Write(compressed.Bytes())
			}))
			defer srv.Close()

			_, body, err := DoWithRetry(context.Background(), srv.Client(), get(srv.URL), fastRetry())
			if err != nil {
				t.Fatalf("DoWithRetry() error = %v", err)
			}
			if string(body) != payload {
				t.Errorf("body = %q, want %q", body, payload)
			}
		})
	}
}

func TestIsRetryableStatus(t *testing.T) {
	cfg := DefaultRetryConfig()
	for _, code := range []int{429, 408, 500, 502, 503, 504} {
		if !isRetryableStatus(code, cfg) {
			t.Errorf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{400, 401, 403, 404, 422} {
		if isRetryableStatus(code, cfg) {
			t.Errorf("status %d should not be retryable", code)
		}
	}
	cfg.Retry5xx = false
	if isRetryableStatus(500, cfg) {
		t.Error("500 should not be retryable when Retry5xx is false")
	}
}

func TestIsRetryableNetErr(t *testing.T) {
	tests := map[string]struct {
		err  error
		want bool
	}{
		"canceled":         {err: context.Canceled, want: false},
		"deadline":         {err: context.DeadlineExceeded, want: false},
		"timeout":          {err: timeoutError{}, want: true},
		"connection reset": {err: errors.New("read: connection reset by peer"), want: true},
		"unexpected eof":   {err: errors.New("unexpected EOF"), want: true},
		"other":            {err: errors.New("certificate signed by unknown authority"), want: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if got := isRetryableNetErr(tt.err); got != tt.want {
				t.Errorf("isRetryableNetErr(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := map[string]struct {
		header string
		want   time.Duration
	}{
		"seconds":   {header: "30", want: 30 * time.Second},
		"past date": {header: time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat), want: 0},
		"invalid":   {header: "soon", want: 0},
		"missing":   {header: "", want: 0},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set("Retry-After", tt.header)
			}
			if got := ParseRetryAfter(resp); got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHTTPError(t *testing.T) {
	err := &HTTPError{Method: "GET", URL: "https://canvas.test/api/v1/courses/1", StatusCode: 404, Body: []byte(`{"errors":[{"message":"not found"}]}`)}
	want := `http error: GET https://canvas.test/api/v1/courses/1 status=404 body={"errors":[{"message":"not found"}]}`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if got := Snippet([]byte("  abcdef  "), 3); got != "abc…" {
		t.Errorf("Snippet() = %q", got)
	}
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }
