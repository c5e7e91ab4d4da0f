package domain

import "fmt"

// UpstreamError reports a non-2xx response (or a timeout, status 0) from one
// of the downstream services. The body is never parsed on failure.
type UpstreamError struct {
	Service string
	Status  int
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Status == 0 && e.Err != nil {
		return fmt.Sprintf("%s service: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s service returned status %d", e.Service, e.Status)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
