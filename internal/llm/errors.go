package llm

import "fmt"

// HTTPError is a non-2xx response from an LLM API, grounded on the
// teacher's providers.HTTPError.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("llm: http %d: %s", e.Status, e.Body)
}

// isRetryable matches the teacher's retry policy: 429 and 5xx are
// transient, everything else (auth, bad request) is not.
func isRetryable(err error) bool {
	httpErr, ok := err.(*HTTPError)
	if !ok {
		return true // network-level errors (timeouts, resets) are transient
	}
	return httpErr.Status == 429 || httpErr.Status >= 500
}
