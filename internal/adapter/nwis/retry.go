package nwis

import (
	"fmt"
	"net/http"
	"time"

	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// classifyStatus maps an HTTP status to the error taxonomy: nil for 200,
// permanent for 4xx (retrying a bad request cannot help), transient for
// everything else. Pure so retry behavior is unit-testable without I/O.
func classifyStatus(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		// The one 4xx a retry can fix: backing off is exactly the right
		// response to being throttled.
		return fmt.Errorf("status %d", status)
	case status >= 400 && status < 500:
		return domain.Permanent(fmt.Errorf("status %d: %s", status, truncateBody(body)))
	default:
		return fmt.Errorf("status %d", status)
	}
}

// backoffFor returns the delay before retrying after the given attempt:
// base doubled per attempt, capped.
func backoffFor(attempt int, base, maxDelay time.Duration) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxDelay {
			return maxDelay
		}
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}

// truncateBody bounds error messages; NWIS 4xx bodies include a human-readable
// explanation but can run long.
func truncateBody(body []byte) string {
	const limit = 256
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
