package fetch

import (
	"net/url"
	"sync"
	"time"

	"github.com/cenk/backoff"
	circuit "github.com/rubyist/circuitbreaker"
)

// breakerThreshold is the number of consecutive failures that opens a host's circuit.
const breakerThreshold = 5

// breakers hands out one circuit breaker per source host.
type breakers struct {
	mu     sync.RWMutex
	byHost map[string]*circuit.Breaker
}

func newBreakers() *breakers {
	return &breakers{byHost: make(map[string]*circuit.Breaker)}
}

// forURL returns the breaker for the host of rawURL, creating it on first use.
func (b *breakers) forURL(rawURL string) (*circuit.Breaker, string) {
	host := hostOf(rawURL)

	b.mu.RLock()
	breaker, ok := b.byHost[host]
	b.mu.RUnlock()
	if ok {
		return breaker, host
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if breaker, ok := b.byHost[host]; ok {
		return breaker, host
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 30 * time.Second
	expBackoff.MaxInterval = 5 * time.Minute
	expBackoff.Multiplier = 2.0
	expBackoff.Reset()

	breaker = circuit.NewBreakerWithOptions(&circuit.Options{
		BackOff:    expBackoff,
		ShouldTrip: circuit.ThresholdTripFunc(breakerThreshold),
	})
	b.byHost[host] = breaker
	return breaker, host
}

// states reports "open" or "closed" per host.
func (b *breakers) states() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]string, len(b.byHost))
	for host, breaker := range b.byHost {
		if breaker.Tripped() {
			out[host] = "open"
		} else {
			out[host] = "closed"
		}
	}
	return out
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return rawURL
	}
	return parsed.Host
}
