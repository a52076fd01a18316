package remote

import (
	"fmt"
	"time"
)

// FetchError reports a failed download of a remote table.
type FetchError struct {
	URL        string
	StatusCode int
	// RetryAfter is the server-requested wait on 429 responses.
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode == 429 && e.RetryAfter > 0:
		return fmt.Sprintf("fetch %s: rate limited: wait about %ds before retrying", e.URL, int(e.RetryAfter.Seconds()))
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("fetch %s: status=%d: %v", e.URL, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status=%d", e.URL, e.StatusCode)
	default:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Temporary reports whether retrying later may succeed.
func (e *FetchError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500 || (e.StatusCode == 0 && isRetryableNetErr(e.Err))
}
