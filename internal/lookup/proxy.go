package lookup

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrNoRetry marks an error as a definitive answer from the remote service.
// A 4xx response is the service saying "no", not the proxy failing, so the
// pool must not burn further attempts on it.
var ErrNoRetry = errors.New("definitive remote answer")

const attemptsPerProxy = 2

// ProxyPool owns a rotating list of forward-proxy HTTP clients and the
// rotation cursor. Concurrent callers interleave rotation; that jitter is
// acceptable, the pool only guarantees each proxy gets its attempt budget.
type ProxyPool struct {
	mu      sync.Mutex
	clients []*http.Client
	idx     int
}

// NewProxyPool builds a pool from proxy URLs. With no proxies configured it
// degrades to a single direct client.
func NewProxyPool(proxies []string, timeout time.Duration) (*ProxyPool, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	if len(proxies) == 0 {
		return &ProxyPool{clients: []*http.Client{{Timeout: timeout}}}, nil
	}

	clients := make([]*http.Client, 0, len(proxies))
	for _, raw := range proxies {
		proxyURL, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy url %q: %w", raw, err)
		}
		clients = append(clients, &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(proxyURL),
			},
		})
	}
	return &ProxyPool{clients: clients}, nil
}

func (p *ProxyPool) current() *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients[p.idx]
}

func (p *ProxyPool) rotate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idx = (p.idx + 1) % len(p.clients)
}

// Size returns the number of proxies in the pool.
func (p *ProxyPool) Size() int {
	return len(p.clients)
}

// Do runs fn against the pool, giving each proxy up to two attempts before
// rotating, for at most one full turn of the pool. An error wrapping
// ErrNoRetry stops immediately and is returned as-is.
func (p *ProxyPool) Do(fn func(client *http.Client) error) error {
	var lastErr error

	for proxyTry := 0; proxyTry < len(p.clients); proxyTry++ {
		client := p.current()
		for attempt := 0; attempt < attemptsPerProxy; attempt++ {
			lastErr = fn(client)
			if lastErr == nil {
				return nil
			}
			if errors.Is(lastErr, ErrNoRetry) {
				return lastErr
			}
		}
		p.rotate()
	}

	return fmt.Errorf("all proxies exhausted: %w", lastErr)
}
