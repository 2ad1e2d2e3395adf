package schemas

import (
	"context"
)

// -- Centralized Core Service Interfaces --

// ModelTier allows for selecting a large language model based on a preference
// for speed versus advanced capabilities.
type ModelTier string

const (
	TierFast     ModelTier = "fast"     // Prefers a faster, potentially less capable model.
	TierPowerful ModelTier = "powerful" // Prefers a more capable, potentially slower model.
)

// Tool is a server-side capability the model may use while generating.
type Tool string

const (
	// ToolGoogleSearch enables search grounding for the request.
	ToolGoogleSearch Tool = "google_search"
)

// SafetySetting sets the blocking threshold for one harm category.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// GenerationOptions provides detailed parameters to control the text generation
// process of the LLM, such as creativity (temperature) and output format.
type GenerationOptions struct {
	Temperature     *float32 `json:"temperature,omitempty"`       // Controls randomness. Lower is more deterministic.
	CandidateCount  int      `json:"candidate_count,omitempty"`   // Number of candidates the model should return.
	ForceJSONFormat bool     `json:"force_json_format,omitempty"` // If true, forces the model to output valid JSON.
	ResponseSchema  *Schema  `json:"response_schema,omitempty"`   // Shape of the JSON output when ForceJSONFormat is set.
}

// GenerationRequest encapsulates a complete request to the LLM: the
// conversation so far, an optional system instruction, and generation options.
type GenerationRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction string            `json:"system_instruction,omitempty"`
	SafetySettings    []SafetySetting   `json:"safety_settings,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	Tier              ModelTier         `json:"tier,omitempty"`
	Options           GenerationOptions `json:"options"`
}

// Candidate is one alternative reply produced by the model.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finish_reason,omitempty"`
}

// PromptFeedback explains why a prompt produced no candidates.
type PromptFeedback struct {
	BlockReason        string `json:"block_reason,omitempty"`
	BlockReasonMessage string `json:"block_reason_message,omitempty"`
}

// UsageMetadata reports token accounting for a call.
type UsageMetadata struct {
	PromptTokens     int `json:"prompt_tokens"`
	CandidatesTokens int `json:"candidates_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResponse is the provider-neutral reply to a GenerationRequest.
// Zero candidates is a valid response (e.g. the prompt was blocked).
type GenerationResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"prompt_feedback,omitempty"`
	Usage          UsageMetadata   `json:"usage"`
}

// BlockReason returns the prompt feedback block reason, or "" when absent.
func (r *GenerationResponse) BlockReason() string {
	if r == nil || r.PromptFeedback == nil {
		return ""
	}
	return r.PromptFeedback.BlockReason
}

// ModelInfo describes a model available to the configured key.
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"display_name"`
	Description      string   `json:"description,omitempty"`
	InputTokenLimit  int      `json:"input_token_limit,omitempty"`
	OutputTokenLimit int      `json:"output_token_limit,omitempty"`
	Methods          []string `json:"methods,omitempty"`
}

// LLMClient defines a standard interface for interacting with a Large Language
// Model, abstracting the specifics of the underlying provider (e.g., Gemini).
type LLMClient interface {
	// GenerateContent sends the conversation and returns every candidate.
	GenerateContent(ctx context.Context, req GenerationRequest) (*GenerationResponse, error)
	// ListModels returns the models visible to the configured credentials.
	ListModels(ctx context.Context) ([]ModelInfo, error)
	// Close cleans up any resources held by the client (e.g., network connections, SDK resources).
	Close() error
}
