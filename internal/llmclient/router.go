package llmclient

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
)

// LLMRouter implements the LLMClient interface and routes requests by tier.
type LLMRouter struct {
	logger  *zap.Logger
	clients map[schemas.ModelTier]schemas.LLMClient
}

// NewLLMRouter creates a new router with the specified clients for each tier.
func NewLLMRouter(logger *zap.Logger, fastClient, powerfulClient schemas.LLMClient) (*LLMRouter, error) {
	if fastClient == nil || powerfulClient == nil {
		return nil, fmt.Errorf("both fast and powerful tier clients must be provided")
	}

	return &LLMRouter{
		logger: logger.Named("llm_router"),
		clients: map[schemas.ModelTier]schemas.LLMClient{
			schemas.TierFast:     fastClient,
			schemas.TierPowerful: powerfulClient,
		},
	}, nil
}

// GenerateContent selects the appropriate client based on the request's Tier.
func (r *LLMRouter) GenerateContent(ctx context.Context, req schemas.GenerationRequest) (*schemas.GenerationResponse, error) {
	tier := req.Tier
	if tier == "" {
		tier = schemas.TierPowerful // Default to the powerful tier if unspecified.
	}

	client, ok := r.clients[tier]
	if !ok {
		return nil, fmt.Errorf("no LLM client configured for tier: %s", tier)
	}

	r.logger.Debug("Routing LLM request", zap.String("tier", string(tier)))
	return client.GenerateContent(ctx, req)
}

// ListModels asks the powerful tier; both tiers share credentials.
func (r *LLMRouter) ListModels(ctx context.Context) ([]schemas.ModelInfo, error) {
	return r.clients[schemas.TierPowerful].ListModels(ctx)
}

// Close closes both tier clients.
func (r *LLMRouter) Close() error {
	return errors.Join(
		r.clients[schemas.TierFast].Close(),
		r.clients[schemas.TierPowerful].Close(),
	)
}
