package harvest

import "fmt"

// CircuitOpenError is returned when the circuit breaker for a domain rejects
// a fetch without attempting the network.
type CircuitOpenError struct {
	Domain string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for domain %s", e.Domain)
}

// RobotsDisallowedError is returned when robots.txt forbids the requested URL.
// It is a policy refusal, never retried.
type RobotsDisallowedError struct {
	URL string
}

func (e *RobotsDisallowedError) Error() string {
	return fmt.Sprintf("robots.txt disallows %s", e.URL)
}
