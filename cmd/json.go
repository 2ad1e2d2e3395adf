// File: cmd/json.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/llmutil"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

const recipePrompt = `List a few popular cookie recipes in JSON with the following format:

## JSON Format:
{
    recipes: [
        {
            name: 'Chocolate Chip Cookies',
            ingredients: ['flour', 'sugar', 'chocolate chips'],
            instructions: [
                'Mix flour and sugar',
                'Add chocolate chips',
                'Bake'
            ]
        }
    ]
}`

type recipe struct {
	Name         string   `json:"name"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
}

type recipeList struct {
	Recipes []recipe `json:"recipes"`
}

func stringArray() *schemas.Schema {
	return &schemas.Schema{Type: "ARRAY", Items: &schemas.Schema{Type: "STRING"}}
}

// recipeSchema mirrors recipeList for JSON-mode requests.
var recipeSchema = &schemas.Schema{
	Type: "OBJECT",
	Properties: map[string]*schemas.Schema{
		"recipes": {
			Type: "ARRAY",
			Items: &schemas.Schema{
				Type: "OBJECT",
				Properties: map[string]*schemas.Schema{
					"name":         {Type: "STRING"},
					"ingredients":  stringArray(),
					"instructions": stringArray(),
				},
				Required: []string{"name", "ingredients", "instructions"},
			},
		},
	},
	Required: []string{"recipes"},
}

func newJSONCmd() *cobra.Command {
	var prompt string

	cmd := &cobra.Command{
		Use:   "json",
		Short: "Requests cookie recipes in JSON mode and prints them.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			llmClient, err := service.InitializeLLMClient(ctx, cfg.LLM(), logger)
			if err != nil {
				return err
			}
			defer llmClient.Close()
			return runJSON(ctx, logger, cmd.OutOrStdout(), prompt, llmClient)
		},
	}
	cmd.Flags().StringVarP(&prompt, "prompt", "p", recipePrompt, "Prompt describing the recipes to list.")
	return cmd
}

func runJSON(ctx context.Context, logger *zap.Logger, out io.Writer, prompt string, llmClient schemas.LLMClient) error {
	req := schemas.GenerationRequest{
		Contents: []schemas.Content{schemas.NewTextContent(schemas.RoleUser, prompt)},
		Tier:     schemas.TierFast,
		Options: schemas.GenerationOptions{
			ForceJSONFormat: true,
			ResponseSchema:  recipeSchema,
		},
	}
	reply, err := firstReply(ctx, llmClient, req)
	if err != nil {
		logger.Error("JSON request failed.", zap.Error(err))
		return err
	}

	list, err := llmutil.ParseJSONResponse[recipeList](reply)
	if err != nil {
		return fmt.Errorf("failed to decode recipes: %w", err)
	}
	logger.Debug("Recipes decoded", zap.Int("count", len(list.Recipes)))

	for _, r := range list.Recipes {
		fmt.Fprintf(out, "%s\n", r.Name)
		fmt.Fprintf(out, "  ingredients: %s\n", strings.Join(r.Ingredients, ", "))
		for i, step := range r.Instructions {
			fmt.Fprintf(out, "  %d. %s\n", i+1, step)
		}
	}
	return nil
}
