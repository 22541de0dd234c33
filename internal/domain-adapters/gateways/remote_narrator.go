package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/ochairo/roaster/internal/domain/entities"
	"github.com/ochairo/roaster/internal/domain/interfaces"
	"github.com/ochairo/roaster/internal/domain/interfaces/gateways"
)

const (
	// Max retries for throttled or failing completions
	maxRetries = 2
	// Initial backoff duration
	initialBackoff = 500 * time.Millisecond
	// Max backoff duration
	maxBackoff = 8 * time.Second

	narratorMaxTokens   = 1024
	narratorTemperature = 0.8
	maxCompletionBytes  = 1 << 20

	narratorSystemPrompt = "You are a witty security expert who delivers harsh but helpful code reviews with humor."
)

// Well-known OpenAI-compatible providers
const (
	GrokBaseURL   = "https://api.x.ai/v1"
	GrokModel     = "grok-beta"
	OpenAIBaseURL = "https://api.openai.com/v1"
	OpenAIModel   = "gpt-4o"
)

const roastPromptTemplate = `You are a savage but helpful security expert.

Your task: Turn these raw vulnerability findings into a SHORT, HILARIOUS roast (max 3 sentences) followed by specific one-line fixes.

Be funny, sarcastic, and memorable - but stay accurate and helpful. Use metaphors and exaggeration.

Findings:
%s

Format your response as:
ROAST: [3 sentences of savage but funny commentary]

FIXES:
1. [Finding type]: [One-line fix suggestion]
2. [Finding type]: [One-line fix suggestion]
...

Go!`

// FixSuggester supplies the static fix list used when a reply carries no fixes
type FixSuggester interface {
	SuggestFixes(findings []entities.Finding) []entities.SuggestedFix
}

// RemoteNarratorConfig describes one OpenAI-compatible chat completions backend
type RemoteNarratorConfig struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// RemoteNarrator asks a hosted language model for the roast and delegates to next on any failure
type RemoteNarrator struct {
	config RemoteNarratorConfig
	client *http.Client
	next   gateways.Narrator
	fixes  FixSuggester
	logger interfaces.Logger
	// sleep waits between retries; replaced in tests
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRemoteNarrator creates a narrator backed by a chat completions endpoint
func NewRemoteNarrator(
	config RemoteNarratorConfig,
	next gateways.Narrator,
	fixes FixSuggester,
	logger interfaces.Logger,
) *RemoteNarrator {
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &RemoteNarrator{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		next:   next,
		fixes:  fixes,
		logger: logger,
		sleep:  sleepContext,
	}
}

// NewNarratorChain wires the configured remote providers in order in front of fallback.
// Providers without an API key are skipped.
func NewNarratorChain(
	fallback gateways.Narrator,
	fixes FixSuggester,
	logger interfaces.Logger,
	providers ...RemoteNarratorConfig,
) gateways.Narrator {
	chain := fallback
	for i := len(providers) - 1; i >= 0; i-- {
		if providers[i].APIKey == "" {
			continue
		}
		chain = NewRemoteNarrator(providers[i], chain, fixes, logger)
	}
	return chain
}

// Narrate implements gateways.Narrator
func (n *RemoteNarrator) Narrate(ctx context.Context, findings []entities.Finding) (string, []entities.SuggestedFix) {
	if len(findings) == 0 {
		return n.next.Narrate(ctx, findings)
	}

	reply, err := n.complete(ctx, BuildRoastPrompt(findings))
	if err != nil {
		n.logger.Warn("remote narration failed, falling back",
			interfaces.Err(&entities.NarrationError{Provider: n.config.Provider, Err: err}))
		return n.next.Narrate(ctx, findings)
	}

	roast, fixes := ParseRoastReply(reply)
	if roast == "" {
		n.logger.Warn("remote narration reply had no roast, falling back",
			interfaces.F("provider", n.config.Provider))
		return n.next.Narrate(ctx, findings)
	}
	if len(fixes) == 0 && n.fixes != nil {
		fixes = n.fixes.SuggestFixes(findings)
	}

	return roast, fixes
}

// BuildRoastPrompt lists findings as "N. kind (severity) in path: description"
func BuildRoastPrompt(findings []entities.Finding) string {
	lines := make([]string, 0, len(findings))
	for i, f := range findings {
		lines = append(lines, fmt.Sprintf("%d. %s (%s) in %s: %s", i+1, f.Kind, f.Severity, f.FilePath, f.Description))
	}
	return fmt.Sprintf(roastPromptTemplate, strings.Join(lines, "\n"))
}

// ParseRoastReply extracts the ROAST text and numbered FIXES from a model reply.
// Fixes are deduplicated by finding type, first occurrence wins.
func ParseRoastReply(reply string) (string, []entities.SuggestedFix) {
	var roast strings.Builder
	fixes := make([]entities.SuggestedFix, 0)
	seen := make(map[string]struct{})
	inRoast, inFixes := false, false

	for _, raw := range strings.Split(strings.TrimSpace(reply), "\n") {
		line := strings.TrimSpace(raw)

		switch {
		case strings.HasPrefix(line, "ROAST:"):
			roast.Reset()
			roast.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "ROAST:")))
			inRoast, inFixes = true, false
		case strings.HasPrefix(line, "FIXES"):
			inRoast, inFixes = false, true
		case inRoast:
			if line != "" {
				if roast.Len() > 0 {
					roast.WriteByte(' ')
				}
				roast.WriteString(line)
			}
		case inFixes && line != "" && unicode.IsDigit(rune(line[0])):
			kind, fix, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			if _, rest, found := strings.Cut(kind, "."); found {
				kind = rest
			}
			kind, fix = strings.TrimSpace(kind), strings.TrimSpace(fix)
			if kind == "" || fix == "" {
				continue
			}
			if _, dup := seen[kind]; dup {
				continue
			}
			seen[kind] = struct{}{}
			fixes = append(fixes, entities.SuggestedFix{FindingType: kind, Fix: fix})
		}
	}

	return strings.TrimSpace(roast.String()), fixes
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (n *RemoteNarrator) complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(chatCompletionRequest{
		Model: n.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: narratorSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   narratorMaxTokens,
		Temperature: narratorTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := n.doWithRetry(ctx, body)
	if err != nil {
		return "", err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxCompletionBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, firstLine(data))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("failed to parse completion: %w", err)
	}
	if len(completion.Choices) == 0 || strings.TrimSpace(completion.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("completion has no content")
	}

	return completion.Choices[0].Message.Content, nil
}

// isRetryableError checks if an HTTP status code is retryable
func isRetryableError(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(attempt int) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// doWithRetry executes the completion request with exponential backoff retry
func (n *RemoteNarrator) doWithRetry(ctx context.Context, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			if err := n.sleep(ctx, calculateBackoff(attempt-1)); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.config.BaseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+n.config.APIKey)

		resp, err := n.client.Do(req)
		if err != nil {
			// Network errors are retryable unless the caller gave up
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if !isRetryableError(resp.StatusCode) || attempt == maxRetries {
			return resp, nil
		}

		//nolint:errcheck,gosec // G104: Best effort close before retry
		resp.Body.Close()
		lastErr = fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("completion request failed after %d attempts: %w", maxRetries+1, lastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
