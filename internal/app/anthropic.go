package app

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// AnthropicClient talks to an Anthropic-style messages endpoint, both
// streaming (SSE) and one-shot. Title and suggestion generation reuse the
// one-shot path.
type AnthropicClient struct {
	APIKey    string
	BaseURL   string
	MaxTokens int
	HTTP      *http.Client
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens,omitempty"`
	Stream    bool         `json:"stream,omitempty"`
	System    string       `json:"system,omitempty"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text,omitempty"`
	} `json:"content"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type sseEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type     string `json:"type"`
		Text     string `json:"text,omitempty"`
		Thinking string `json:"thinking,omitempty"`
	} `json:"delta"`
	Error *apiError `json:"error,omitempty"`
}

func NewAnthropicClient(apiKey, baseURL string, maxTokens int) *AnthropicClient {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com/v1/messages"
	}
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	httpClient := &http.Client{Timeout: 300 * time.Second}
	// Skip TLS verification if AGENTUI_SKIP_TLS_VERIFY is set (for container environments)
	if os.Getenv("AGENTUI_SKIP_TLS_VERIFY") == "1" || os.Getenv("AGENTUI_SKIP_TLS_VERIFY") == "true" {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &AnthropicClient{
		APIKey:    apiKey,
		BaseURL:   baseURL,
		MaxTokens: maxTokens,
		HTTP:      httpClient,
	}
}

// Stream opens an SSE generation stream for the request.
func (c *AnthropicClient) Stream(ctx context.Context, req GenerateRequest) (DeltaStream, error) {
	if c.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	body := apiRequest{
		Model:     req.Model,
		MaxTokens: c.MaxTokens,
		Stream:    true,
		Messages:  buildAPIMessages(req),
	}
	resp, err := c.post(ctx, body, "text/event-stream")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, c.statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &sseStream{body: resp.Body, scanner: scanner}, nil
}

// sseStream parses "data:" lines off the response body into deltas.
// Thinking output accumulates into a single think step that is re-emitted
// as a full replacement each time, matching the steps-delta contract.
type sseStream struct {
	body     io.ReadCloser
	scanner  *bufio.Scanner
	thinking strings.Builder
	closed   bool
}

func (s *sseStream) Recv() (Delta, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var ev sseEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}
		switch ev.Type {
		case "error":
			return nil, sseErrorOf(ev.Error)
		case "message_stop":
			return nil, io.EOF
		case "content_block_delta":
			switch ev.Delta.Type {
			case "text_delta":
				if ev.Delta.Text != "" {
					return TextDelta{Content: ev.Delta.Text}, nil
				}
			case "thinking_delta":
				if ev.Delta.Thinking != "" {
					s.thinking.WriteString(ev.Delta.Thinking)
					return StepsDelta{Steps: []StepRecord{{
						Kind:   "think",
						Title:  "Thinking",
						Detail: s.thinking.String(),
					}}}, nil
				}
			}
		}
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *sseStream) Close() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.body.Close()
}

// GenerateTitle asks for a short conversation title.
func (c *AnthropicClient) GenerateTitle(ctx context.Context, model, prompt string) (string, error) {
	out, err := c.complete(ctx, model,
		"Reply with a conversation title of at most six words. No quotes, no punctuation at the end.",
		fmt.Sprintf("Generate a title for a conversation that starts with:\n\n%s", prompt))
	if err != nil {
		return "", err
	}
	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"'`))
	if title == "" {
		return "", errors.New("empty title")
	}
	return title, nil
}

// SuggestFollowups asks for follow-up prompts, one per line.
func (c *AnthropicClient) SuggestFollowups(ctx context.Context, req GenerateRequest, finalText string) ([]string, error) {
	out, err := c.complete(ctx, req.Model,
		"Suggest exactly 3 short follow-up prompts the user might send next, one per line. No numbering, no bullets.",
		fmt.Sprintf("The user asked:\n%s\n\nThe assistant replied:\n%s", req.Prompt, finalText))
	if err != nil {
		return nil, err
	}
	var suggestions []string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•0123456789. "))
		if line == "" {
			continue
		}
		suggestions = append(suggestions, line)
		if len(suggestions) == 3 {
			break
		}
	}
	return suggestions, nil
}

func (c *AnthropicClient) complete(ctx context.Context, model, system, prompt string) (string, error) {
	if c.APIKey == "" {
		return "", errors.New("api key is required")
	}
	body := apiRequest{
		Model:     model,
		MaxTokens: 256,
		System:    system,
		Messages:  []apiMessage{{Role: "user", Content: prompt}},
	}
	resp, err := c.post(ctx, body, "application/json")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %v", err)
	}
	if resp.StatusCode >= 300 {
		return "", statusErrorFromBody(resp.StatusCode, bodyBytes)
	}

	var parsed apiResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return "", fmt.Errorf("invalid api response: %v", err)
	}
	if parsed.Error != nil {
		return "", sseErrorOf(parsed.Error)
	}
	for _, block := range parsed.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", errors.New("empty api response")
}

func (c *AnthropicClient) post(ctx context.Context, body apiRequest, accept string) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", accept)
	request.Header.Set("x-api-key", c.APIKey)
	request.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.HTTP.Do(request)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %v", err)
	}
	return resp, nil
}

func (c *AnthropicClient) statusError(resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
	return statusErrorFromBody(resp.StatusCode, bodyBytes)
}

func statusErrorFromBody(status int, body []byte) error {
	var parsed struct {
		Error *apiError `json:"error"`
	}
	_ = json.Unmarshal(body, &parsed)

	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrQuotaExceeded, status)
	}
	if parsed.Error != nil {
		return sseErrorOf(parsed.Error)
	}
	return fmt.Errorf("api error: status %d: %s", status, strings.TrimSpace(string(body)))
}

func sseErrorOf(e *apiError) error {
	if e == nil {
		return errors.New("api error")
	}
	if e.Type == "rate_limit_error" || e.Type == "overloaded_error" {
		return fmt.Errorf("%w: %s", ErrQuotaExceeded, e.Message)
	}
	return fmt.Errorf("api error: %s: %s", e.Type, e.Message)
}

func buildAPIMessages(req GenerateRequest) []apiMessage {
	msgs := make([]apiMessage, 0, len(req.History)+1)
	for _, turn := range req.History {
		if turn.Content == "" {
			continue
		}
		msgs = append(msgs, apiMessage{Role: turn.Role, Content: turn.Content})
	}

	prompt := req.Prompt
	if len(req.Attachments) > 0 {
		var b strings.Builder
		b.WriteString(prompt)
		for _, att := range req.Attachments {
			b.WriteString("\n\n--- attachment: ")
			b.WriteString(att.Name)
			b.WriteString(" ---\n")
			if att.Content != "" {
				b.WriteString(att.Content)
			} else {
				b.WriteString(att.Ref)
			}
		}
		prompt = b.String()
	}
	msgs = append(msgs, apiMessage{Role: "user", Content: prompt})
	return msgs
}
