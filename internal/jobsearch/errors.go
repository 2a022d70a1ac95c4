package jobsearch

import (
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ProviderError is a failed call to the job provider.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("job provider %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("job provider %s: status %d", e.Op, e.StatusCode)
	default:
		return fmt.Sprintf("job provider %s: %v", e.Op, e.Err)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Temporary reports whether retrying later may succeed.
func (e *ProviderError) Temporary() bool {
	if e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500 {
		return true
	}
	if e.StatusCode != 0 {
		return false
	}
	var netErr net.Error
	if errors.As(e.Err, &netErr) {
		return netErr.Timeout()
	}
	return e.Op == opRateLimit
}

// MalformedRecordError describes one provider record that could not be used.
// Such records are skipped and the rest of the batch is kept.
type MalformedRecordError struct {
	Index  int
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record %d: %s: %v", e.Index, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed record %d: %s", e.Index, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error {
	return e.Err
}
