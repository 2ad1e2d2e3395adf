package llmutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleShader = `Shader "Custom/Glow" {
    Properties { _Color ("Color", Color) = (1,1,1,1) }
    SubShader {
        Pass {
            HLSLPROGRAM
            ENDHLSL
        }
    }
}`

func fence(tag, body string) string {
	return "\x60\x60\x60" + tag + "\n" + body + "\n\x60\x60\x60"
}

func TestExtractShaderSource_Fenced(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"untagged", fence("", sampleShader)},
		{"shader tag", "Here you go:\n" + fence("shader", sampleShader) + "\nEnjoy!"},
		{"shaderlab tag", fence("shaderlab", sampleShader)},
		{"upper-case hlsl tag", fence("HLSL", sampleShader)},
		{"padded body", fence("cg", "\n\n   "+sampleShader+"   \n\n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractShaderSource(tt.raw)
			assert.Equal(t, MethodFence, got.Method)
			assert.Equal(t, sampleShader, got.Source)
			assert.Empty(t, got.Rejected)
		})
	}
}

func TestExtractShaderSource_FirstFenceWins(t *testing.T) {
	other := strings.Replace(sampleShader, "Custom/Glow", "Custom/Other", 1)
	raw := fence("shader", sampleShader) + "\nor\n" + fence("shader", other)

	got := ExtractShaderSource(raw)
	assert.Equal(t, sampleShader, got.Source)
}

func TestExtractShaderSource_DeclarationFallback(t *testing.T) {
	t.Run("no fence", func(t *testing.T) {
		raw := "Sure! The shader below pulses.\n\n" + sampleShader + "\n"
		got := ExtractShaderSource(raw)
		assert.Equal(t, MethodDeclaration, got.Method)
		assert.Equal(t, sampleShader, got.Source)
	})

	t.Run("fence without shader", func(t *testing.T) {
		raw := fence("", "just an explanation") + "\n" + sampleShader
		got := ExtractShaderSource(raw)
		assert.Equal(t, MethodDeclaration, got.Method)
		assert.Equal(t, sampleShader, got.Source)
		assert.Equal(t, "just an explanation", got.Rejected)
	})

	t.Run("keeps trailing text", func(t *testing.T) {
		raw := "Intro " + sampleShader + "\nHope that helps."
		got := ExtractShaderSource(raw)
		assert.True(t, strings.HasPrefix(got.Source, `Shader "Custom/Glow"`))
		assert.True(t, strings.HasSuffix(got.Source, "Hope that helps."))
	})
}

func TestExtractShaderSource_RawFallback(t *testing.T) {
	t.Run("looks like shader", func(t *testing.T) {
		// The opener has no quote, so the declaration tier does not apply.
		raw := "  Shader Custom { SubShader {} }  "
		got := ExtractShaderSource(raw)
		assert.Equal(t, MethodRaw, got.Method)
		assert.Equal(t, "Shader Custom { SubShader {} }", got.Source)
	})

	t.Run("declaration without braces", func(t *testing.T) {
		got := ExtractShaderSource(`Shader "A" is what I would call it`)
		assert.Equal(t, MethodUnrecognized, got.Method)
		assert.Equal(t, `Shader "A" is what I would call it`, got.Source)
	})

	t.Run("no structure at all", func(t *testing.T) {
		got := ExtractShaderSource("\n  I cannot help with that.  \n")
		assert.Equal(t, MethodUnrecognized, got.Method)
		assert.Equal(t, "I cannot help with that.", got.Source)
	})

	t.Run("empty", func(t *testing.T) {
		got := ExtractShaderSource("   ")
		assert.Equal(t, "", got.Source)
		assert.Equal(t, MethodUnrecognized, got.Method)
	})
}

func TestShaderNameAndRename(t *testing.T) {
	name, ok := ShaderName(sampleShader)
	require.True(t, ok)
	assert.Equal(t, "Custom/Glow", name)

	renamed := RenameShader(sampleShader, "Custom/EvolvedShader_0_deadbeef")
	name, ok = ShaderName(renamed)
	require.True(t, ok)
	assert.Equal(t, "Custom/EvolvedShader_0_deadbeef", name)
	assert.Equal(t, strings.Count(sampleShader, "\n"), strings.Count(renamed, "\n"))
	assert.Contains(t, renamed, "SubShader {")

	_, ok = ShaderName("SubShader \"nope\" { }")
	assert.False(t, ok, "SubShader must not be taken as the declaration")

	assert.Equal(t, "no declaration", RenameShader("no declaration", "X"))
}

func FuzzExtractShaderSource(f *testing.F) {
	f.Add(fence("shader", sampleShader))
	f.Add(sampleShader)
	f.Add("plain prose")
	f.Add("\x60\x60\x60\x60\x60\x60")
	f.Add(`Shader "` + "\x60\x60\x60{}")

	f.Fuzz(func(t *testing.T, raw string) {
		got := ExtractShaderSource(raw)
		trimmed := strings.TrimSpace(raw)

		if got.Source != strings.TrimSpace(got.Source) {
			t.Fatalf("source is not trimmed: %q", got.Source)
		}
		if !strings.Contains(trimmed, got.Source) {
			t.Fatalf("source %q is not a substring of the input", got.Source)
		}
		switch got.Method {
		case MethodFence:
			if !LooksLikeShader(got.Source) {
				t.Fatalf("fenced source failed the structural check: %q", got.Source)
			}
		case MethodRaw, MethodUnrecognized:
			if got.Source != trimmed {
				t.Fatalf("fallback must return the trimmed input")
			}
		}
	})
}
