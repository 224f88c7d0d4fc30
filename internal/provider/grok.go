package provider

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bizclone/pkg/grok"
)

const grokName = "grok"

// Breaker defaults: xAI outages tend to be brief but bursty, so trip fast
// and recover fast.
const (
	grokBreakerThreshold = 3
	grokBreakerWindow    = 2 * time.Minute
	grokBreakerCooldown  = 5 * time.Minute
)

// GrokProvider generates structured content through the xAI API. A small
// circuit breaker sheds calls during sustained outages so the fallback chain
// advances immediately instead of burning retry budget.
type GrokProvider struct {
	client  grok.Client
	breaker *circuitBreaker
}

// NewGrokProvider wraps a Grok client as a Provider.
func NewGrokProvider(client grok.Client) *GrokProvider {
	return &GrokProvider{
		client:  client,
		breaker: newCircuitBreaker(grokBreakerThreshold, grokBreakerWindow, grokBreakerCooldown),
	}
}

func (p *GrokProvider) Name() string { return grokName }

func (p *GrokProvider) Generate(ctx context.Context, req Request) (*Result, error) {
	if p.breaker.isOpen() {
		return nil, &Error{
			Provider: grokName,
			Class:    ClassNetwork,
			err:      eris.New("grok: circuit breaker open"),
		}
	}

	messages := make([]grok.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, grok.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, grok.Message{Role: "user", Content: req.Prompt})

	chatReq := grok.ChatCompletionRequest{
		Messages:       messages,
		Temperature:    req.Temperature,
		ResponseFormat: &grok.ResponseFormat{Type: "json_object"},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = &req.MaxTokens
	}

	resp, err := p.client.ChatCompletion(ctx, chatReq)
	if err != nil {
		classified := Classify(grokName, err)
		// Auth and validation failures are caller problems, not outages.
		if classified.Class == ClassNetwork || classified.Class == ClassTimeout {
			p.breaker.recordFailure()
		}
		return nil, classified
	}
	p.breaker.recordSuccess()

	if len(resp.Choices) == 0 {
		return nil, &Error{
			Provider: grokName,
			Class:    ClassValidation,
			err:      eris.New("grok: response has no choices"),
		}
	}

	raw := resp.Choices[0].Message.Content
	content, err := DecodeContent(raw)
	if err != nil {
		return nil, Classify(grokName, err)
	}

	return &Result{
		Provider: grokName,
		Model:    resp.Model,
		Raw:      raw,
		Content:  content,
	}, nil
}

type circuitBreaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	openUntil   time.Time
	threshold   int           // consecutive failures to trip
	window      time.Duration // failures must occur within this window
	cooldown    time.Duration // how long the circuit stays open
}

func newCircuitBreaker(threshold int, window, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
	}
}

func (cb *circuitBreaker) isOpen() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return time.Now().Before(cb.openUntil)
}

func (cb *circuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	now := time.Now()
	if now.Sub(cb.lastFailure) > cb.window {
		cb.failures = 0
	}
	cb.failures++
	cb.lastFailure = now
	if cb.failures >= cb.threshold {
		cb.openUntil = now.Add(cb.cooldown)
		zap.L().Warn("grok: circuit breaker opened",
			zap.Int("failures", cb.failures),
			zap.Duration("cooldown", cb.cooldown),
		)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.openUntil = time.Time{}
}
