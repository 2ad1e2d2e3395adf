package evolver

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/codevolver/api/schemas"
)

func TestEffectivePrompt(t *testing.T) {
	assert.Equal(t, DefaultEvolvePrompt, EffectivePrompt(""))
	assert.Equal(t, DefaultEvolvePrompt, EffectivePrompt(" \n\t"))
	assert.Equal(t, "Make it wobble.", EffectivePrompt("Make it wobble."))
}

func TestComposePrompt(t *testing.T) {
	tests := []struct {
		name        string
		index       int
		base        string
		previous    string
		contains    []string
		notContains []string
	}{
		{
			name:        "instruction only",
			index:       0,
			notContains: []string{"starting point", "immediately preceding"},
		},
		{
			name:        "base attached",
			index:       0,
			base:        "Shader \"Base\" {}",
			contains:    []string{"starting point", "```shader\nShader \"Base\" {}\n```"},
			notContains: []string{"immediately preceding"},
		},
		{
			name:        "blank base ignored",
			index:       0,
			base:        "   ",
			notContains: []string{"starting point"},
		},
		{
			name:     "differentiation",
			index:    2,
			previous: "Shader \"Prev\" {}",
			contains: []string{"Variant 3", "preceding* Variant 2", "Shader \"Prev\" {}", "something new and different"},
		},
		{
			name:        "empty previous skips differentiation",
			index:       1,
			notContains: []string{"immediately preceding"},
		},
		{
			name:        "first slot never differentiates",
			index:       0,
			previous:    "Shader \"Prev\" {}",
			notContains: []string{"immediately preceding"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComposePrompt("Evolve!", tt.base, tt.index, tt.previous)
			assert.True(t, strings.HasPrefix(got, "Evolve!\n"))
			for _, s := range tt.contains {
				assert.Contains(t, got, s)
			}
			for _, s := range tt.notContains {
				assert.NotContains(t, got, s)
			}
		})
	}
}

func TestComposePrompt_BaseBeforeDifferentiation(t *testing.T) {
	got := ComposePrompt("Evolve!", "BASE {}", 1, "PREV {}")
	base := strings.Index(got, "BASE {}")
	prev := strings.Index(got, "PREV {}")
	assert.Greater(t, base, 0)
	assert.Greater(t, prev, base)
}

func TestHistory(t *testing.T) {
	var h History
	h.Append(schemas.NewTextContent(schemas.RoleUser, "make a shader"))
	h.Append(schemas.NewTextContent(schemas.RoleModel, "Shader \"X\" {}"))
	h.Append(schemas.NewContent(schemas.RoleUser, "", schemas.Blob{MIMEType: "audio/wav", Data: make([]byte, 12)}))
	assert.Equal(t, 3, h.Len())

	transcript := h.Transcript()
	assert.Contains(t, transcript, "[user]\nmake a shader\n")
	assert.Contains(t, transcript, "[model]\nShader \"X\" {}\n")
	assert.Contains(t, transcript, "<audio/wav, 12 bytes>")

	contents := h.Contents()
	contents[0].Role = schemas.RoleModel
	assert.Equal(t, schemas.RoleUser, h.Contents()[0].Role, "Contents returns a copy")

	h.Truncate(1)
	assert.Equal(t, 1, h.Len())
	h.Truncate(5)
	assert.Equal(t, 1, h.Len())
	h.Truncate(-1)
	assert.Zero(t, h.Len())

	h.Append(schemas.NewTextContent(schemas.RoleUser, "again"))
	h.Reset()
	assert.Empty(t, h.Transcript())
}
