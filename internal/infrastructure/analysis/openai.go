// Package analysis provides the OpenAI-backed implementation of the email
// analysis port. Failures are returned as errors; the application layer
// degrades to the heuristic fallback.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/briefing/backend/internal/domain/briefing"
)

// Constants for the OpenAI API
const (
	// OpenAIProductionAPIURL is the production API endpoint
	OpenAIProductionAPIURL = "https://api.openai.com/v1"
	// DefaultModel balances quality against per-email analysis cost
	DefaultModel = "gpt-4o-mini"
	// maxOpenAIResponseSize limits the response body size to prevent memory exhaustion
	maxOpenAIResponseSize = 1 * 1024 * 1024 // 1MB max response

	// analysisTemperature keeps judgments consistent across identical inputs
	analysisTemperature = 0.3
	// analysisMaxTokens bounds the generated judgment
	analysisMaxTokens = 500
)

// Errors for the OpenAI analyzer
var (
	ErrOpenAIConfigMissingAPIKey = errors.New("openai: API key is required")
	ErrOpenAIUnavailable         = errors.New("openai: service unavailable")
	ErrOpenAIRequestFailed       = errors.New("openai: request failed")
	ErrOpenAIInvalidResponse     = errors.New("openai: invalid response")
)

// OpenAIConfig holds configuration for the OpenAI analysis backend
type OpenAIConfig struct {
	// BaseURL is the API base URL (production or a compatible gateway)
	BaseURL string
	// APIKey authorizes API calls
	APIKey string
	// Model is the chat completion model used for analysis
	Model string
	// Timeout is the HTTP request timeout
	Timeout time.Duration
	// MaxBodySize bounds the email body characters sent for analysis
	MaxBodySize int
}

// NewOpenAIConfig creates an OpenAI configuration with defaults
func NewOpenAIConfig(apiKey string) *OpenAIConfig {
	return &OpenAIConfig{
		BaseURL:     OpenAIProductionAPIURL,
		APIKey:      apiKey,
		Model:       DefaultModel,
		Timeout:     30 * time.Second,
		MaxBodySize: briefing.MaxAnalysisBodyLength,
	}
}

// Validate validates the OpenAI configuration
func (c *OpenAIConfig) Validate() error {
	if c.APIKey == "" {
		return ErrOpenAIConfigMissingAPIKey
	}
	if c.BaseURL == "" {
		c.BaseURL = OpenAIProductionAPIURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = briefing.MaxAnalysisBodyLength
	}
	return nil
}

// OpenAIAnalyzer implements the briefing.Analyzer port against the OpenAI
// chat completions API. Responses are requested as JSON objects and
// normalized so downstream code never sees partial judgments.
type OpenAIAnalyzer struct {
	config     *OpenAIConfig
	httpClient *http.Client
}

// NewOpenAIAnalyzer creates an analyzer with the given configuration
func NewOpenAIAnalyzer(config *OpenAIConfig) (*OpenAIAnalyzer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &OpenAIAnalyzer{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// ---------------------------------------------------------------------------
// Chat completion types
// ---------------------------------------------------------------------------

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ---------------------------------------------------------------------------
// Analysis
// ---------------------------------------------------------------------------

const systemPrompt = "You are an AI assistant that analyzes emails for executive briefing. " +
	"Always respond with valid JSON only, no markdown formatting or code blocks."

// AnalyzeEmail sends one email to the model and returns the structured
// judgment. The body is truncated before sending to keep token usage bounded.
func (a *OpenAIAnalyzer) AnalyzeEmail(ctx context.Context, email briefing.EmailContent) (briefing.Analysis, error) {
	reqBody := chatCompletionRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: a.buildPrompt(email)},
		},
		Temperature:    analysisTemperature,
		MaxTokens:      analysisMaxTokens,
		ResponseFormat: responseFormat{Type: "json_object"},
	}

	respBody, err := a.doRequest(ctx, "/chat/completions", reqBody)
	if err != nil {
		return briefing.Analysis{}, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return briefing.Analysis{}, fmt.Errorf("%w: %v", ErrOpenAIInvalidResponse, err)
	}
	if resp.Error != nil {
		return briefing.Analysis{}, fmt.Errorf("%w: %s", ErrOpenAIRequestFailed, resp.Error.Message)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return briefing.Analysis{}, fmt.Errorf("%w: no completion content", ErrOpenAIInvalidResponse)
	}

	var analysis briefing.Analysis
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &analysis); err != nil {
		return briefing.Analysis{}, fmt.Errorf("%w: completion is not valid JSON: %v", ErrOpenAIInvalidResponse, err)
	}

	return analysis.Normalize(email), nil
}

// buildPrompt renders the analysis instructions for one email
func (a *OpenAIAnalyzer) buildPrompt(email briefing.EmailContent) string {
	importance := email.Importance
	if importance == "" {
		importance = "normal"
	}

	return fmt.Sprintf(`Analyze the following email and provide a structured analysis:

Email Subject: %s
From: %s
Received: %s
Importance: %s

Email Body:
%s

Please analyze this email and respond with a JSON object containing:
1. "summary": A concise 2-3 sentence summary of the email's main points
2. "priority": One of "low", "medium", or "high" based on urgency and importance
3. "needsResponse": A boolean indicating if this email requires a response (consider if it asks questions, requests action, or is from a supervisor)
4. "actionItems": An array of specific action items extracted from the email (empty array if none)
5. "category": A single word category like "meeting", "request", "question", "update", "notification", etc.

Consider these factors for priority:
- High: Urgent requests, issues requiring immediate attention, emails from executives/supervisors, deadlines
- Medium: Requests without urgency, follow-ups, standard communications
- Low: Informational emails, newsletters, automated notifications

Consider these factors for needsResponse:
- Contains questions (explicit or implicit)
- Requests action, decision, or approval
- From supervisor, executive, or important stakeholder
- Requires confirmation or acknowledgment
- Is part of an active conversation thread

Respond ONLY with valid JSON, no additional text or explanation.`,
		email.Subject,
		email.From,
		email.ReceivedAt.Format(time.RFC1123),
		importance,
		briefing.TruncateBody(email.Body, a.config.MaxBodySize),
	)
}

// doRequest performs an HTTP request to the OpenAI API
func (a *OpenAIAnalyzer) doRequest(ctx context.Context, path string, payload any) ([]byte, error) {
	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpenAIUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxOpenAIResponseSize))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrOpenAIRequestFailed, resp.StatusCode)
	}

	return body, nil
}

// Ensure OpenAIAnalyzer implements the briefing.Analyzer interface
var _ briefing.Analyzer = (*OpenAIAnalyzer)(nil)
