package base

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// clientRateLimitInterval is the window ClientRateLimitRPM is measured over
const clientRateLimitInterval = time.Minute

// newClientLimiter builds the client-side limiter for backends that publish no
// rate limit headers. A non-positive rpm disables pacing.
func newClientLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	// Burst defaults to the RPM limit
	return rate.NewLimiter(rate.Every(clientRateLimitInterval/time.Duration(rpm)), rpm)
}

// waitForSlot blocks until the limiter admits one request
func (p *BaseProvider) waitForSlot(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}
	return nil
}

// newTransport returns a pooled transport owned by one provider. Stop closes
// its idle connections.
func newTransport() *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxIdleConnsPerHost = 10
	transport.IdleConnTimeout = 90 * time.Second
	return transport
}
