package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const (
	// DefaultBaseURL is the generative language REST endpoint
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	// DefaultModel is tried first during initialization
	DefaultModel = "models/gemini-2.5-flash"
	// DefaultFallbackModel is used when the primary model cannot be reached
	DefaultFallbackModel = "models/gemini-pro"
	// DefaultProbeModel answers connectivity probes
	DefaultProbeModel = "models/gemini-pro-latest"
	// DefaultTimeout bounds a single completion request
	DefaultTimeout = 60 * time.Second

	// ProbePrompt is sent by Ping
	ProbePrompt = "Hello, please respond with 'API is working' if you can receive this message."
)

// Roles understood by the REST API
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one entry of a conversation sent to the model
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Result is a successful completion
type Result struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds configuration for the completion client
type Config struct {
	APIKey        string
	BaseURL       string
	Model         string
	FallbackModel string
	ProbeModel    string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client talks to the Gemini generateContent API.
// The first completion lazily selects a reachable model; a successful
// selection is kept for the lifetime of the client.
type Client struct {
	apiKey        string
	baseURL       string
	model         string
	fallbackModel string
	probeModel    string
	httpClient    *http.Client

	mu          sync.Mutex
	ready       bool
	activeModel string
}

// NewClient creates a new completion client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.FallbackModel == "" {
		config.FallbackModel = DefaultFallbackModel
	}
	if config.ProbeModel == "" {
		config.ProbeModel = DefaultProbeModel
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}

	return &Client{
		apiKey:        config.APIKey,
		baseURL:       strings.TrimRight(config.BaseURL, "/"),
		model:         config.Model,
		fallbackModel: config.FallbackModel,
		probeModel:    config.ProbeModel,
		httpClient:    httpClient,
	}
}

// Init selects the model used for completions. It is safe to call
// concurrently; once it has succeeded further calls do nothing.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ready {
		return nil
	}
	if c.apiKey == "" {
		return &ServiceError{Kind: KindAuthFailure, Message: "API key is not configured"}
	}

	var lastErr error
	for _, candidate := range []string{c.model, c.fallbackModel} {
		if candidate == "" {
			continue
		}
		if err := c.describeModel(ctx, candidate); err != nil {
			log.Warnf("gemini: model %s unavailable: %v", candidate, err)
			lastErr = err
			continue
		}
		c.activeModel = candidate
		c.ready = true
		log.Infof("gemini: using model %s", candidate)
		return nil
	}

	return &ServiceError{Kind: KindModelUnavailable, Message: "no usable model", Err: lastErr}
}

// ActiveModel returns the model selected by Init, or "" before initialization
func (c *Client) ActiveModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeModel
}

// Complete continues history with a new user message
func (c *Client) Complete(ctx context.Context, history []Turn, message string) (*Result, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	turns := make([]Turn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, Turn{Role: RoleUser, Text: message})
	return c.generate(ctx, c.ActiveModel(), turns)
}

// GenerateOneShot sends turns as a complete conversation
func (c *Client) GenerateOneShot(ctx context.Context, turns []Turn) (*Result, error) {
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.generate(ctx, c.ActiveModel(), turns)
}

// Ping sends the probe prompt to the probe model and returns its reply.
// It does not depend on Init.
func (c *Client) Ping(ctx context.Context) (string, error) {
	if c.apiKey == "" {
		return "", &ServiceError{Kind: KindAuthFailure, Message: "API key is not configured"}
	}
	res, err := c.generate(ctx, c.probeModel, []Turn{{Role: RoleUser, Text: ProbePrompt}})
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
	SafetySettings   []safetySetting  `json:"safetySettings"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
	UsageMetadata struct {
		TotalTokenCount int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

var defaultGenerationConfig = generationConfig{
	Temperature:     0.7,
	TopP:            0.95,
	TopK:            40,
	MaxOutputTokens: 1024,
}

var defaultSafetySettings = []safetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// apiRole maps stored roles to the roles the REST API accepts
func apiRole(role string) string {
	if role == "assistant" || role == RoleModel {
		return RoleModel
	}
	return RoleUser
}

func (c *Client) modelURL(model, suffix string) string {
	return fmt.Sprintf("%s/%s%s?key=%s", c.baseURL, model, suffix, url.QueryEscape(c.apiKey))
}

func (c *Client) generate(ctx context.Context, model string, turns []Turn) (*Result, error) {
	reqBody := generateRequest{
		Contents:         make([]content, 0, len(turns)),
		GenerationConfig: defaultGenerationConfig,
		SafetySettings:   defaultSafetySettings,
	}
	for _, t := range turns {
		reqBody.Contents = append(reqBody.Contents, content{Role: apiRole(t.Role), Parts: []part{{Text: t.Text}}})
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, &ServiceError{Kind: KindUnknown, Message: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.modelURL(model, ":generateContent"), bytes.NewReader(jsonBody))
	if err != nil {
		return nil, &ServiceError{Kind: KindUnknown, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ServiceError{Kind: KindUnknown, Message: "decode response", Err: err}
	}

	if len(resp.Candidates) == 0 {
		msg := "no candidates in response"
		if resp.PromptFeedback.BlockReason != "" {
			msg = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return nil, &ServiceError{Kind: KindUnknown, Message: msg}
	}

	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return nil, &ServiceError{Kind: KindUnknown, Message: "empty completion (finish reason " + resp.Candidates[0].FinishReason + ")"}
	}

	return &Result{
		Text:       text.String(),
		Model:      model,
		TokensUsed: resp.UsageMetadata.TotalTokenCount,
	}, nil
}

func (c *Client) describeModel(ctx context.Context, model string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.modelURL(model, ""), nil)
	if err != nil {
		return &ServiceError{Kind: KindUnknown, Message: "create request", Err: err}
	}
	_, err = c.do(req)
	return err
}

// do executes req and returns the body of a 200 response
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
			if apiErr.Error.Status != "" {
				msg = apiErr.Error.Status + ": " + msg
			}
		}
		return nil, &ServiceError{
			Kind:       classifyStatus(resp.StatusCode, msg),
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}

	return body, nil
}
