// Package llm talks to an OpenAI-compatible chat-completions server (vLLM,
// Ollama, OpenAI) and turns its free-text answers into candidate batches.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/rcliao/kg-course/internal/logger"
	"github.com/rcliao/kg-course/internal/observability"
)

// Defaults for a zero-valued Config.
const (
	DefaultBaseURL     = "http://localhost:8000/v1"
	DefaultModel       = "google/gemma-3-27b-it"
	DefaultMaxTokens   = 8192
	DefaultTemperature = 0.3
	DefaultMaxFailures = 3
)

// Completer sends one system/user exchange and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	// MaxFailures is the number of consecutive failed calls that opens the
	// circuit breaker.
	MaxFailures int
	// Cooldown is how long the breaker stays open before a trial call.
	Cooldown   time.Duration
	HTTPClient *http.Client
}

// Client is a chat-completions client guarded by a circuit breaker. Calls
// made while the breaker is open fail immediately with
// gobreaker.ErrOpenState.
type Client struct {
	baseURL     string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	log         *logger.Logger
	metrics     *observability.Collector
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// NewClient creates a client. An empty BaseURL falls back to $VLLM_BASE_URL
// and then to DefaultBaseURL.
func NewClient(cfg Config, log *logger.Logger, metrics *observability.Collector) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv("VLLM_BASE_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxFailures := cfg.MaxFailures
	if maxFailures <= 0 {
		maxFailures = DefaultMaxFailures
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
		client:      httpClient,
		log:         log,
		metrics:     metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "chat-completions",
		Timeout: cfg.Cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(maxFailures)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a server failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return c
}

// Model returns the model name sent with every request.
func (c *Client) Model() string { return c.model }

// State reports the circuit breaker state.
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// Complete sends a chat completion. maxTokens <= 0 uses the client default.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	ctx, span := observability.Tracer().Start(ctx, "llm.chat_completion")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", c.model))

	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	var messages []chatMessage
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: system})
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	start := time.Now()
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, chatRequest{
			Model:       c.model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: c.temperature,
		})
	})
	c.metrics.RecordCall("chat_completion", time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chat completion")
		return "", err
	}

	text := out.(string)
	span.SetAttributes(attribute.Int("llm.response_chars", len(text)))
	c.log.Debug("chat completion", "model", c.model, "max_tokens", maxTokens, "chars", len(text))
	return text, nil
}

func (c *Client) do(ctx context.Context, body chatRequest) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return "", fmt.Errorf("chat error %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	for _, ch := range result.Choices {
		if strings.TrimSpace(ch.Message.Content) != "" {
			return ch.Message.Content, nil
		}
		if strings.TrimSpace(ch.Text) != "" {
			return ch.Text, nil
		}
	}
	return "", errors.New("empty completion")
}
