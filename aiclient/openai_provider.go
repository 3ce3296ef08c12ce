package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/itsneelabh/agentctl/core"
)

// openAIProvider speaks the OpenAI chat-completions wire format. Adapted
// from the teacher's ai package OpenAI client shape (config-driven base URL
// + API key, JSON request/response), using net/http directly since no
// third-party HTTP client library appears anywhere in the example corpus —
// every provider implementation examined (openai, anthropic, gemini,
// bedrock) builds its own request with net/http and only reaches for a
// library at the transport/SDK layer (aws-sdk-go-v2 for Bedrock).
type openAIProvider struct {
	cfg        *Config
	httpClient *http.Client
}

func newOpenAIProvider(cfg *Config) *openAIProvider {
	return &openAIProvider{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (p *openAIProvider) call(ctx context.Context, system, user string) (string, error) {
	body := chatRequest{
		Model: p.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", core.NewFrameworkError("openAIProvider.call", "ai", err)
	}

	baseURL := p.cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", core.NewFrameworkError("openAIProvider.call", "ai", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrModelCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: status %d", core.ErrModelCallFailed, resp.StatusCode)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	if len(out.Choices) == 0 {
		return "", core.ErrMalformedResponse
	}
	return out.Choices[0].Message.Content, nil
}

func (p *openAIProvider) Plan(ctx context.Context, req Request) (*PlanResponse, error) {
	text, err := p.call(ctx, planningSystemPrompt, buildPromptText("planning", req))
	if err != nil {
		return nil, err
	}
	return &PlanResponse{Text: text}, nil
}

func (p *openAIProvider) Ground(ctx context.Context, req Request) (*GroundResponse, error) {
	text, err := p.call(ctx, groundingSystemPrompt, buildPromptText("grounding", req))
	if err != nil {
		return nil, err
	}
	return parseGroundResponse(text)
}

func (p *openAIProvider) Judge(ctx context.Context, req Request) (*JudgeResponse, error) {
	text, err := p.call(ctx, judgmentSystemPrompt, buildPromptText("judgment", req))
	if err != nil {
		return nil, err
	}
	return parseJudgeResponse(text)
}

const (
	planningSystemPrompt  = "You are a web automation planner. Respond with free-text reasoning about the next step."
	groundingSystemPrompt = "You are a web automation grounder. Respond with JSON: {\"element\":\"<letter or none>\",\"action\":\"<ACTION>\",\"value\":\"<optional>\",\"explanation\":\"<one sentence>\"}."
	judgmentSystemPrompt  = "You are a safety judge. Respond with JSON: {\"severity\":\"<SAFE|LOW|MEDIUM|HIGH|CATASTROPHIC>\",\"explanation\":\"<reason>\"}."
)

type groundWire struct {
	Element     string `json:"element"`
	Action      string `json:"action"`
	Value       string `json:"value"`
	Explanation string `json:"explanation"`
}

func parseGroundResponse(text string) (*GroundResponse, error) {
	var wire groundWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	resp := &GroundResponse{
		Action:      core.ActionKind(wire.Action),
		Value:       wire.Value,
		Explanation: wire.Explanation,
	}
	if wire.Element == "" || wire.Element == "none" || wire.Element == "none of the above" {
		resp.NoneOfTheAbove = true
	} else {
		resp.ElementLetter = wire.Element
	}
	return resp, nil
}

type judgeWire struct {
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
}

func parseJudgeResponse(text string) (*JudgeResponse, error) {
	var wire judgeWire
	if err := json.Unmarshal([]byte(text), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrMalformedResponse, err)
	}
	sev, ok := core.ParseSeverity(wire.Severity)
	if !ok {
		return nil, fmt.Errorf("%w: unknown severity %q", core.ErrMalformedResponse, wire.Severity)
	}
	return &JudgeResponse{Severity: sev, Explanation: wire.Explanation}, nil
}
