package evolver

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/codevolver/api/schemas"
)

// buildRequest assembles the generation request for the current history.
// The candidate count always equals the number of slots.
func (e *Evolver) buildRequest() schemas.GenerationRequest {
	req := schemas.GenerationRequest{
		Contents:          e.history.Contents(),
		SystemInstruction: e.opts.SystemInstruction,
		SafetySettings:    e.opts.SafetySettings,
		Tier:              schemas.TierPowerful,
		Options: schemas.GenerationOptions{
			CandidateCount: len(e.slots),
		},
	}
	if e.opts.EnableSearch {
		req.Tools = []schemas.Tool{schemas.ToolGoogleSearch}
	}
	return req
}

// invoke sends the history and returns the first candidate. A response with
// no candidates yields ErrNoCandidates carrying the block reason.
func (e *Evolver) invoke(ctx context.Context) (schemas.Content, *schemas.GenerationResponse, error) {
	resp, err := e.llm.GenerateContent(ctx, e.buildRequest())
	if err != nil {
		return schemas.Content{}, nil, fmt.Errorf("generation request failed: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		if reason := resp.BlockReason(); reason != "" {
			return schemas.Content{}, resp, fmt.Errorf("%w (block reason: %s)", ErrNoCandidates, reason)
		}
		return schemas.Content{}, resp, ErrNoCandidates
	}
	content := resp.Candidates[0].Content
	if content.Role == "" {
		content.Role = schemas.RoleModel
	}
	return content, resp, nil
}
