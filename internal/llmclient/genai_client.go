// internal/llmclient/genai_client.go
package llmclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
)

// GenAIClient implements schemas.LLMClient on top of the google.golang.org/genai SDK.
type GenAIClient struct {
	client *genai.Client
	model  string
	config config.LLMConfig
	logger *zap.Logger
}

// NewGenAIClient creates the SDK client. cfg.APIKey must already be resolved.
func NewGenAIClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: GenAI API Key is required", config.ErrConfigMissing)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIClient{
		client: client,
		model:  cfg.Model,
		config: cfg,
		logger: logger.Named("llm_client.genai").With(zap.String("model", cfg.Model)),
	}, nil
}

// GenerateContent sends the conversation through the SDK.
func (g *GenAIClient) GenerateContent(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	if g.config.APITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.APITimeout)
		defer cancel()
	}

	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, c := range req.Contents {
		contents = append(contents, toGenAIContent(c))
	}

	startTime := time.Now()
	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, g.buildConfig(req))
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	resp := fromGenAIResponse(result)
	g.logger.Info("LLM generation complete (GenAI)",
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("candidates", len(resp.Candidates)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)
	return resp, nil
}

// ListModels pages through the SDK's model listing.
func (g *GenAIClient) ListModels(ctx context.Context) ([]schemas.ModelInfo, error) {
	var models []schemas.ModelInfo
	listCfg := &genai.ListModelsConfig{PageSize: 100}
	for {
		page, err := g.client.Models.List(ctx, listCfg)
		if err != nil {
			return nil, fmt.Errorf("GenAI list models failed: %w", err)
		}
		for _, m := range page.Items {
			if m == nil {
				continue
			}
			models = append(models, schemas.ModelInfo{
				Name:             m.Name,
				DisplayName:      m.DisplayName,
				Description:      m.Description,
				InputTokenLimit:  int(m.InputTokenLimit),
				OutputTokenLimit: int(m.OutputTokenLimit),
				Methods:          m.SupportedActions,
			})
		}
		if page.NextPageToken == "" {
			return models, nil
		}
		listCfg.PageToken = page.NextPageToken
	}
}

// Close is a no-op; the SDK shares the default HTTP transport.
func (g *GenAIClient) Close() error {
	return nil
}

func (g *GenAIClient) buildConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		Temperature:    req.Options.Temperature,
		CandidateCount: int32(req.Options.CandidateCount),
	}

	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	safety := req.SafetySettings
	if len(safety) == 0 {
		safety = configuredSafety(g.config.SafetyFilters)
	}
	for _, s := range safety {
		cfg.SafetySettings = append(cfg.SafetySettings, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}

	for _, tool := range req.Tools {
		if tool == schemas.ToolGoogleSearch {
			cfg.Tools = append(cfg.Tools, &genai.Tool{GoogleSearch: &genai.GoogleSearch{}})
		}
	}

	if req.Options.ForceJSONFormat {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = toGenAISchema(req.Options.ResponseSchema)
	}
	return cfg
}

func toGenAIContent(c schemas.Content) *genai.Content {
	out := &genai.Content{Role: string(c.Role)}
	for _, p := range c.Parts {
		part := &genai.Part{Text: p.Text}
		if p.InlineData != nil {
			part.InlineData = &genai.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
		}
		out.Parts = append(out.Parts, part)
	}
	return out
}

func toGenAISchema(s *schemas.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Type:        genai.Type(s.Type),
		Description: s.Description,
		Items:       toGenAISchema(s.Items),
		Required:    s.Required,
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = toGenAISchema(prop)
		}
	}
	return out
}

func fromGenAIResponse(r *genai.GenerateContentResponse) *schemas.GenerationResponse {
	resp := &schemas.GenerationResponse{}
	if r == nil {
		return resp
	}
	if r.PromptFeedback != nil {
		resp.PromptFeedback = &schemas.PromptFeedback{
			BlockReason:        string(r.PromptFeedback.BlockReason),
			BlockReasonMessage: r.PromptFeedback.BlockReasonMessage,
		}
	}
	if r.UsageMetadata != nil {
		resp.Usage = schemas.UsageMetadata{
			PromptTokens:     int(r.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(r.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(r.UsageMetadata.TotalTokenCount),
		}
	}
	for _, cand := range r.Candidates {
		if cand == nil {
			continue
		}
		candidate := schemas.Candidate{FinishReason: string(cand.FinishReason)}
		if cand.Content != nil {
			candidate.Content.Role = schemas.Role(cand.Content.Role)
			for _, p := range cand.Content.Parts {
				if p == nil {
					continue
				}
				part := schemas.Part{Text: p.Text}
				if p.InlineData != nil {
					part.InlineData = &schemas.Blob{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
				}
				candidate.Content.Parts = append(candidate.Content.Parts, part)
			}
		}
		resp.Candidates = append(resp.Candidates, candidate)
	}
	return resp
}
