package runner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Doer sends one HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// newHTTPClient builds the client shared by every request of a run.
func newHTTPClient(cfg Config) *http.Client {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = cfg.Concurrency
	t.MaxIdleConnsPerHost = cfg.Concurrency
	t.MaxConnsPerHost = cfg.Concurrency
	t.ResponseHeaderTimeout = cfg.Timeout
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify}

	return &http.Client{
		Timeout:   cfg.Timeout,
		Transport: t,
	}
}

// newLimiter returns nil when no rate cap is configured.
func newLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(perSec), 1)
}

// execute issues request seq and classifies it. It never fails: every
// fault becomes a non-success Outcome.
func (r *Runner) execute(ctx context.Context, lim *rate.Limiter, runID string, seq int) Outcome {
	o := Outcome{Seq: seq}

	if err := ctx.Err(); err != nil {
		o.Kind, o.Err = KindCanceled, err
		return o
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			o.Kind, o.Err = KindCanceled, err
			return o
		}
	}

	req, err := r.newRequest(ctx, runID, seq)
	if err != nil {
		o.Kind, o.Err = KindRequest, err
		return o
	}

	r.inflight.Add(1)
	r.metrics.InflightAdd(1)
	defer func() {
		r.inflight.Add(-1)
		r.metrics.InflightAdd(-1)
	}()

	start := time.Now()
	resp, err := r.client.Do(req)
	o.Elapsed = time.Since(start)
	if err != nil {
		o.Kind, o.Err = classifyError(err), err
		return o
	}

	o.Status = resp.StatusCode
	_, err = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if err != nil {
		o.Kind, o.Err = classifyError(err), fmt.Errorf("reading response body: %w", err)
		return o
	}

	if !r.Cfg.Policy.Accepts(resp.StatusCode) {
		o.Kind, o.Err = KindStatus, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return o
}

func (r *Runner) newRequest(ctx context.Context, runID string, seq int) (*http.Request, error) {
	data := TemplateData{Seq: seq, RunID: runID, UUID: uuid.NewString()}

	target, err := r.templates.Render(r.urlTmpl, r.Cfg.URL, data)
	if err != nil {
		return nil, fmt.Errorf("rendering url: %w", err)
	}
	body, err := r.templates.Render(r.bodyTmpl, r.Cfg.Body, data)
	if err != nil {
		return nil, fmt.Errorf("rendering body: %w", err)
	}

	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Cfg.Method, target, bodyReader)
	if err != nil {
		return nil, err
	}

	for k, v := range r.Cfg.Headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("X-Request-Id") == "" {
		req.Header.Set("X-Request-Id", data.UUID)
	}
	return req, nil
}

// classifyError maps a transport error to an ErrorKind.
func classifyError(err error) ErrorKind {
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return KindDNS
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return KindConnRefused
	}

	var (
		certErr      *tls.CertificateVerificationError
		recordErr    tls.RecordHeaderError
		unknownAuth  x509.UnknownAuthorityError
		hostnameErr  x509.HostnameError
		invalidCert  x509.CertificateInvalidError
		alertErr     tls.AlertError
		echRejectErr *tls.ECHRejectionError
	)
	switch {
	case errors.As(err, &certErr),
		errors.As(err, &recordErr),
		errors.As(err, &unknownAuth),
		errors.As(err, &hostnameErr),
		errors.As(err, &invalidCert),
		errors.As(err, &alertErr),
		errors.As(err, &echRejectErr):
		return KindTLS
	}

	return KindTransport
}
