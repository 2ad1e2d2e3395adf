// File: cmd/helpers_test.go
package cmd

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/codevolver/api/schemas"
	"github.com/xkilldash9x/codevolver/internal/config"
	"github.com/xkilldash9x/codevolver/internal/observability"
	"github.com/xkilldash9x/codevolver/internal/service"
)

const validShader = `Shader "Custom/Test" {
	SubShader {
		Pass {
			CGPROGRAM
			#pragma vertex vert
			#pragma fragment frag
			ENDCG
		}
	}
}`

// resetForTest provides the single source of truth for resetting test state.
func resetForTest(t *testing.T) {
	t.Helper()
	viper.Reset()
	cfgFile = ""
	osExit = os.Exit
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
}

// newTestConfig builds a validated config for a throwaway project with
// timings short enough for tests.
func newTestConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("CODEVOLVER_LLM_API_KEY", "")
	v := viper.New()
	config.SetDefaults(v)
	v.Set("evolver.project_root", root)
	v.Set("evolver.slots", 2)
	v.Set("evolver.parents", []string{"Variant1", "Variant2"})
	v.Set("evolver.watch", false)
	v.Set("evolver.poll_interval", "5ms")
	v.Set("evolver.max_attempts", 1000)
	v.Set("evolver.settle_delay", "0s")
	v.Set("evolver.directory_settle", "0s")
	v.Set("llm.env_file", "")
	cfg, err := config.NewConfigFromViper(v)
	require.NoError(t, err)
	return cfg
}

func shaderResponse(src string) *schemas.GenerationResponse {
	return textResponse("```shader\n" + src + "\n```")
}

func textResponse(text string) *schemas.GenerationResponse {
	return &schemas.GenerationResponse{
		Candidates: []schemas.Candidate{{Content: schemas.NewTextContent(schemas.RoleModel, text)}},
	}
}

// failingFactory is a ComponentFactory whose Create always fails.
type failingFactory struct{}

var errFactory = errors.New("factory exploded")

func (failingFactory) Create(context.Context, config.Interface, schemas.LLMClient, *zap.Logger) (*service.Components, error) {
	return nil, errFactory
}
