package fetch

import "sync/atomic"

// defaultUserAgents is the built-in rotation pool used when the operator has
// not supplied custom identities.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
}

// UserAgentPool hands out outbound identities. With rotation disabled it
// always returns the first agent.
type UserAgentPool struct {
	agents []string
	rotate bool
	next   atomic.Uint64
}

// NewUserAgentPool builds a pool from custom agents, falling back to the
// built-in list when none are given.
func NewUserAgentPool(rotate bool, custom []string) *UserAgentPool {
	agents := custom
	if len(agents) == 0 {
		agents = defaultUserAgents
	}
	return &UserAgentPool{agents: agents, rotate: rotate}
}

// Next returns the user agent for the next outbound request.
func (p *UserAgentPool) Next() string {
	if !p.rotate {
		return p.agents[0]
	}
	n := p.next.Add(1) - 1
	return p.agents[n%uint64(len(p.agents))]
}

// Primary returns the pool's first agent without advancing the rotation.
// Policy checks that need a stable identity use this.
func (p *UserAgentPool) Primary() string {
	return p.agents[0]
}
