// Package llm wraps the language-model provider behind a small client
// interface with synchronous and token-streaming completion modes. The
// provider is treated as a black-box text generator.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opsvista/incident-analyzer/internal/utils"
)

// ErrRateLimited reports that the provider rejected the request with a 429.
var ErrRateLimited = errors.New("model provider rate limited")

// Fragment is one streamed text chunk. Err, when set, is the terminal
// transport failure; the channel closes right after it.
type Fragment struct {
	Text string
	Err  error
}

// Client abstracts the model provider for both pipeline variants.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (<-chan Fragment, error)
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewHTTPClient constructs a client for the configured provider.
func NewHTTPClient(baseURL, apiKey, model string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete issues one blocking completion request and returns the full text.
func (c *HTTPClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.post(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return payload.Choices[0].Message.Content, nil
}

// Stream issues a streaming completion request and returns an ordered channel
// of text fragments. The channel is closed when the provider finishes or a
// transport error occurs; a transport error arrives as the last fragment.
func (c *HTTPClient) Stream(ctx context.Context, prompt string) (<-chan Fragment, error) {
	resp, err := c.post(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	out := make(chan Fragment)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				// Skip malformed keep-alive noise; the parser downstream
				// decides whether the overall payload was usable.
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			select {
			case out <- Fragment{Text: chunk.Choices[0].Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- Fragment{Err: fmt.Errorf("model stream: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}

func (c *HTTPClient) post(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("model base URL not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	op := utils.OpModelComplete
	if stream {
		op = utils.OpModelStream
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError(op, "transport failure", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		resp.Body.Close()
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, utils.NewAppError(op, "unexpected status "+resp.Status+": "+strings.TrimSpace(string(data)), nil)
	}
	return resp, nil
}
