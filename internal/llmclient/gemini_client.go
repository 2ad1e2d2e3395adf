// internal/llmclient/gemini_client.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/network"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// GeminiClient implements schemas.LLMClient against the Generative Language REST API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
	limiter    *rate.Limiter

	// backoffFactory builds the retry policy for a single call. Tests swap it.
	backoffFactory func() backoff.BackOff
}

// -- Gemini API Request/Response Structures --

type GeminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type GeminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *GeminiBlob `json:"inlineData,omitempty"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type GeminiSafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type GeminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type GeminiGenerationConfig struct {
	Temperature      *float32        `json:"temperature,omitempty"`
	CandidateCount   int             `json:"candidateCount,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   *schemas.Schema `json:"responseSchema,omitempty"`
}

type GeminiRequestPayload struct {
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"systemInstruction,omitempty"`
	SafetySettings    []GeminiSafetySetting   `json:"safetySettings,omitempty"`
	Tools             []GeminiTool            `json:"tools,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type GeminiPromptFeedback struct {
	BlockReason        string `json:"blockReason"`
	BlockReasonMessage string `json:"blockReasonMessage"`
}

type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type GeminiResponsePayload struct {
	Candidates     []GeminiCandidate     `json:"candidates"`
	PromptFeedback *GeminiPromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  GeminiUsageMetadata   `json:"usageMetadata"`
}

type GeminiModel struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	InputTokenLimit            int      `json:"inputTokenLimit"`
	OutputTokenLimit           int      `json:"outputTokenLimit"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

type GeminiModelList struct {
	Models        []GeminiModel `json:"models"`
	NextPageToken string        `json:"nextPageToken"`
}

// NewGeminiClient initializes the client. cfg.APIKey must already be resolved.
func NewGeminiClient(cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: Gemini API Key is required", config.ErrConfigMissing)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	maxElapsed := cfg.MaxRetryElapsed
	if maxElapsed <= 0 {
		maxElapsed = 2 * time.Minute
	}

	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: endpoint,
		config:  cfg,
		httpClient: network.NewAPIClient(cfg.APITimeout, logger),
		limiter: limiter,
		logger:  logger.Named("llm_client.gemini").With(zap.String("model", cfg.Model)),
		backoffFactory: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = maxElapsed
			b.MaxInterval = 30 * time.Second
			return b
		},
	}, nil
}

// GenerateContent sends the conversation to the model and returns every candidate.
// A response with zero candidates is returned as-is; callers inspect BlockReason.
func (c *GeminiClient) GenerateContent(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, url.PathEscape(c.config.Model))

	var payload GeminiResponsePayload
	startTime := time.Now()
	if err := c.do(ctx, http.MethodPost, endpoint, body, &payload); err != nil {
		return nil, err
	}

	c.logger.Info("LLM generation complete (Gemini)",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("candidates", len(payload.Candidates)),
		zap.Int("prompt_tokens", payload.UsageMetadata.PromptTokenCount),
		zap.Int("completion_tokens", payload.UsageMetadata.CandidatesTokenCount),
		zap.Int("total_tokens", payload.UsageMetadata.TotalTokenCount),
	)

	return convertResponse(payload), nil
}

// ListModels pages through the models endpoint.
func (c *GeminiClient) ListModels(ctx context.Context) ([]schemas.ModelInfo, error) {
	var models []schemas.ModelInfo
	pageToken := ""
	for {
		q := url.Values{}
		q.Set("pageSize", "100")
		if pageToken != "" {
			q.Set("pageToken", pageToken)
		}

		var page GeminiModelList
		if err := c.do(ctx, http.MethodGet, c.baseURL+"/models?"+q.Encode(), nil, &page); err != nil {
			return nil, err
		}
		for _, m := range page.Models {
			models = append(models, schemas.ModelInfo{
				Name:             m.Name,
				DisplayName:      m.DisplayName,
				Description:      m.Description,
				InputTokenLimit:  m.InputTokenLimit,
				OutputTokenLimit: m.OutputTokenLimit,
				Methods:          m.SupportedGenerationMethods,
			})
		}
		if page.NextPageToken == "" {
			return models, nil
		}
		pageToken = page.NextPageToken
	}
}

// Close releases idle connections.
func (c *GeminiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// do runs one API call with pacing and retries, decoding a 200 body into out.
func (c *GeminiClient) do(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	operation := func() error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(fmt.Errorf("rate limiter wait failed: %w", err))
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
		}
		if body != nil {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		httpReq.Header.Set("x-goog-api-key", c.apiKey)

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			c.logger.Warn("Network error during LLM request, retrying...", zap.Error(err))
			return fmt.Errorf("failed to execute HTTP request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			return c.handleAPIError(resp.StatusCode, respBody)
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
		}
		return nil
	}

	return backoff.Retry(operation, backoff.WithContext(c.backoffFactory(), ctx))
}

func (c *GeminiClient) buildRequestPayload(req schemas.GenerationRequest) GeminiRequestPayload {
	payload := GeminiRequestPayload{
		Contents:       make([]GeminiContent, 0, len(req.Contents)),
		SafetySettings: c.safetySettings(req.SafetySettings),
	}

	for _, content := range req.Contents {
		payload.Contents = append(payload.Contents, toGeminiContent(content))
	}

	if req.SystemInstruction != "" {
		payload.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: req.SystemInstruction}},
		}
	}

	for _, tool := range req.Tools {
		if tool == schemas.ToolGoogleSearch {
			payload.Tools = append(payload.Tools, GeminiTool{GoogleSearch: &struct{}{}})
		}
	}

	opts := req.Options
	if opts.Temperature != nil || opts.CandidateCount > 0 || opts.ForceJSONFormat {
		genConfig := &GeminiGenerationConfig{
			Temperature:    opts.Temperature,
			CandidateCount: opts.CandidateCount,
		}
		if opts.ForceJSONFormat {
			genConfig.ResponseMimeType = "application/json"
			genConfig.ResponseSchema = opts.ResponseSchema
		}
		payload.GenerationConfig = genConfig
	}
	return payload
}

func (c *GeminiClient) handleAPIError(statusCode int, body []byte) error {
	c.logger.Error("Gemini API returned error status", zap.Int("status", statusCode), zap.String("response", string(body)))
	err := fmt.Errorf("gemini API error: status %d, body: %s", statusCode, string(body))

	switch statusCode {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusInternalServerError:
		return err // Transient errors, retry.
	default:
		return backoff.Permanent(err)
	}
}

// safetySettings prefers per-request settings and falls back to the configured filters.
func (c *GeminiClient) safetySettings(requested []schemas.SafetySetting) []GeminiSafetySetting {
	if len(requested) > 0 {
		settings := make([]GeminiSafetySetting, 0, len(requested))
		for _, s := range requested {
			settings = append(settings, GeminiSafetySetting{Category: s.Category, Threshold: s.Threshold})
		}
		return settings
	}

	settings := make([]GeminiSafetySetting, 0, len(c.config.SafetyFilters))
	for _, s := range configuredSafety(c.config.SafetyFilters) {
		settings = append(settings, GeminiSafetySetting{Category: s.Category, Threshold: s.Threshold})
	}
	return settings
}

// configuredSafety normalizes the config map (viper lower-cases keys) into a
// sorted slice of settings.
func configuredSafety(filters map[string]string) []schemas.SafetySetting {
	settings := make([]schemas.SafetySetting, 0, len(filters))
	for category, threshold := range filters {
		settings = append(settings, schemas.SafetySetting{
			Category:  strings.ToUpper(category),
			Threshold: strings.ToUpper(threshold),
		})
	}
	sort.Slice(settings, func(i, j int) bool { return settings[i].Category < settings[j].Category })
	return settings
}

func toGeminiContent(content schemas.Content) GeminiContent {
	gc := GeminiContent{Role: string(content.Role), Parts: make([]GeminiPart, 0, len(content.Parts))}
	for _, p := range content.Parts {
		part := GeminiPart{Text: p.Text}
		if p.InlineData != nil {
			part.InlineData = &GeminiBlob{MimeType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		gc.Parts = append(gc.Parts, part)
	}
	return gc
}

func convertResponse(payload GeminiResponsePayload) *schemas.GenerationResponse {
	resp := &schemas.GenerationResponse{
		Candidates: make([]schemas.Candidate, 0, len(payload.Candidates)),
		Usage: schemas.UsageMetadata{
			PromptTokens:     payload.UsageMetadata.PromptTokenCount,
			CandidatesTokens: payload.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      payload.UsageMetadata.TotalTokenCount,
		},
	}
	if payload.PromptFeedback != nil {
		resp.PromptFeedback = &schemas.PromptFeedback{
			BlockReason:        payload.PromptFeedback.BlockReason,
			BlockReasonMessage: payload.PromptFeedback.BlockReasonMessage,
		}
	}
	for _, cand := range payload.Candidates {
		content := schemas.Content{Role: schemas.Role(cand.Content.Role)}
		for _, p := range cand.Content.Parts {
			part := schemas.Part{Text: p.Text}
			if p.InlineData != nil {
				part.InlineData = &schemas.Blob{MIMEType: p.InlineData.MimeType, Data: p.InlineData.Data}
			}
			content.Parts = append(content.Parts, part)
		}
		resp.Candidates = append(resp.Candidates, schemas.Candidate{Content: content, FinishReason: cand.FinishReason})
	}
	return resp
}
