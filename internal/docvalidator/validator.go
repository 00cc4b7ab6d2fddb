// Package docvalidator performs the pre-flight check that a submitted
// document is reachable, of a supported type, and within size limits before
// the pipeline spends money on OCR and model calls.
package docvalidator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Validator probes document URLs. It never mutates anything remote; the only
// request issued is a HEAD.
type Validator struct {
	allowedExtensions []string
	maxFileSizeMB     int
	client            *http.Client
}

// New constructs a Validator. A nil client falls back to a 10 second timeout,
// which bounds the pre-flight probe independently of the pipeline budget.
func New(allowedExtensions []string, maxFileSizeMB int, client *http.Client) *Validator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Validator{
		allowedExtensions: allowedExtensions,
		maxFileSizeMB:     maxFileSizeMB,
		client:            client,
	}
}

// Validate reports whether the document at fileURL is processable. Expected
// failure modes return (false, message) rather than an error; only the
// message distinguishes DNS, timeout and generic connection failures so
// operators can diagnose rejected submissions.
func (v *Validator) Validate(ctx context.Context, fileURL, fileName string) (bool, string) {
	if fileURL == "" {
		return false, "document URL not provided"
	}

	resp, err := v.head(ctx, fileURL)
	if err != nil {
		return false, connectionErrorMessage(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Sprintf("document URL not accessible (status code: %d)", resp.StatusCode)
	}

	if !v.supportedFileType(fileName) {
		return false, fmt.Sprintf("unsupported file type: %s", fileName)
	}

	if !v.withinSizeLimit(resp.Header.Get("Content-Length")) {
		return false, fmt.Sprintf("file too large (maximum %dMB)", v.maxFileSizeMB)
	}

	return true, "document valid"
}

func (v *Validator) head(ctx context.Context, fileURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return nil, err
	}
	return v.client.Do(req)
}

func (v *Validator) supportedFileType(fileName string) bool {
	lower := strings.ToLower(fileName)
	for _, ext := range v.allowedExtensions {
		if strings.HasSuffix(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}

// withinSizeLimit is best-effort: a missing or malformed Content-Length
// passes, leaving oversized downloads to the OCR stage's own limits.
func (v *Validator) withinSizeLimit(contentLength string) bool {
	if contentLength == "" {
		return true
	}
	size, err := strconv.ParseInt(contentLength, 10, 64)
	if err != nil {
		return true
	}
	return size <= int64(v.maxFileSizeMB)*1024*1024
}

func connectionErrorMessage(err error) string {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "document URL not accessible (domain not found)"
	}
	if isTimeout(err) {
		return "document URL not accessible (request timed out)"
	}
	return "document URL not accessible"
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
