// Package openaichat implements ports.ChatClient against an OpenAI-compatible
// chat completions endpoint.
package openaichat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/user/frame2prompt/pkg/adapters/logger"
	"github.com/user/frame2prompt/pkg/ports"
)

const (
	DefaultBaseURL        = "https://api.openai.com/v1"
	DefaultModel          = "gpt-4o"
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 2 * time.Second
	DefaultTimeout        = 120 * time.Second
)

var ErrNoChoices = errors.New("openaichat: response has no choices")

// APIError is a non-retryable error returned by the API.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai api error (%d %s): %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("openai api error (%d): %s", e.StatusCode, e.Message)
}

// Options configures a Client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	MaxRetries     int           // Retries after the first attempt for 429 and 5xx
	InitialBackoff time.Duration // Doubled after every retry without Retry-After
}

// Client sends chat completion requests.
type Client struct {
	apiKey         string
	baseURL        string
	httpClient     *http.Client
	maxRetries     int
	initialBackoff time.Duration
	logger         ports.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a Client with defaults applied for zero options.
func New(opts Options, log ports.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = DefaultInitialBackoff
	}
	if log == nil {
		log = logger.NewNoop()
	}

	return &Client{
		apiKey:         opts.APIKey,
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		httpClient:     opts.HTTPClient,
		maxRetries:     opts.MaxRetries,
		initialBackoff: opts.InitialBackoff,
		logger:         log.WithComponent("chat"),
		sleep:          sleepContext,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func toWire(req ports.ChatRequest) chatRequest {
	model := req.Model
	if model == "" {
		model = DefaultModel
	}

	out := chatRequest{
		Model:       model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		msg := chatMessage{Role: string(m.Role), Content: make([]contentPart, 0, len(m.Parts))}
		for _, p := range m.Parts {
			if p.ImageURL != "" {
				msg.Content = append(msg.Content, contentPart{Type: "image_url", ImageURL: &imageURL{URL: p.ImageURL}})
			} else {
				msg.Content = append(msg.Content, contentPart{Type: "text", Text: p.Text})
			}
		}
		out.Messages = append(out.Messages, msg)
	}
	return out
}

// Complete sends the full message history and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, req ports.ChatRequest) (ports.ChatResponse, error) {
	jsonData, err := json.Marshal(toWire(req))
	if err != nil {
		return ports.ChatResponse{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	backoff := c.initialBackoff
	for attempt := 0; ; attempt++ {
		resp, retryAfter, err := c.do(ctx, jsonData)
		if err == nil {
			return resp, nil
		}

		var retry *retryableError
		if !errors.As(err, &retry) || attempt >= c.maxRetries {
			if retry != nil {
				return ports.ChatResponse{}, retry.apiError
			}
			return ports.ChatResponse{}, err
		}

		wait := backoff
		if retryAfter > 0 {
			wait = retryAfter
		} else {
			backoff *= 2
		}
		c.logger.Warn("Chat request failed with status %d, retrying in %s (%d/%d)", retry.apiError.StatusCode, wait, attempt+1, c.maxRetries)

		if err := c.sleep(ctx, wait); err != nil {
			return ports.ChatResponse{}, err
		}
	}
}

// retryableError wraps a 429 or 5xx response.
type retryableError struct {
	apiError *APIError
}

func (e *retryableError) Error() string { return e.apiError.Error() }

func (c *Client) do(ctx context.Context, body []byte) (ports.ChatResponse, time.Duration, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return ports.ChatResponse{}, 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ports.ChatResponse{}, 0, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return ports.ChatResponse{}, 0, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(data))}
		if parseErr == nil && parsed.Error != nil {
			apiErr.Type = parsed.Error.Type
			apiErr.Message = parsed.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return ports.ChatResponse{}, parseRetryAfter(resp.Header.Get("Retry-After")), &retryableError{apiError: apiErr}
		}
		return ports.ChatResponse{}, 0, apiErr
	}

	if parseErr != nil {
		return ports.ChatResponse{}, 0, fmt.Errorf("failed to unmarshal response: %w", parseErr)
	}
	if parsed.Error != nil {
		return ports.ChatResponse{}, 0, &APIError{StatusCode: resp.StatusCode, Type: parsed.Error.Type, Message: parsed.Error.Message}
	}
	if len(parsed.Choices) == 0 {
		return ports.ChatResponse{}, 0, ErrNoChoices
	}

	return ports.ChatResponse{
		Content:          parsed.Choices[0].Message.Content,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
	}, 0, nil
}

// parseRetryAfter reads a delay in whole seconds. HTTP dates are ignored.
func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var _ ports.ChatClient = (*Client)(nil)
