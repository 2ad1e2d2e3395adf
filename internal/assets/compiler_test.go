package assets

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validShader = `// generated
Shader "Custom/Pulse" {
    Properties { _Color ("Color { brace in string }", Color) = (1,1,1,1) }
    SubShader {
        Tags { "RenderType"="Opaque" }
        Pass {
            HLSLPROGRAM
            /* } stray brace in a comment */
            float4 frag() : SV_Target { return 1; }
            ENDHLSL
        }
    }
}
`

func TestShaderLabCompiler_Valid(t *testing.T) {
	res, err := ShaderLabCompiler{}.Compile(context.Background(), "x.shader", []byte(validShader))
	require.NoError(t, err)
	assert.Equal(t, "Custom/Pulse", res.Name)
	assert.Empty(t, res.Errors)
}

func TestShaderLabCompiler_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantName string
		wantErr  string
	}{
		{"missing declaration", "SubShader { Pass { } }", "", `expected Shader "name" declaration`},
		{"unclosed brace", "Shader \"A\" {\n SubShader {\n", "A", "line 2: unclosed '{'"},
		{"extra closing brace", "Shader \"A\" { SubShader { } } }", "A", "line 1: unexpected '}'"},
		{"no subshader", `Shader "A" { Properties { } }`, "A", "no SubShader block"},
		{"open program", "Shader \"A\" { SubShader { Pass {\nCGPROGRAM\n } } }", "A", "line 2: CGPROGRAM without ENDCG"},
		{"mismatched program", `Shader "A" { SubShader { Pass { CGPROGRAM ENDHLSL } } }`, "A", "ENDHLSL without matching program block"},
		{"unterminated string", "Shader \"A { SubShader { } }", "", "line 1: unterminated string"},
		{"unterminated comment", `Shader "A" { SubShader { } } /* trailing`, "A", "unterminated comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ShaderLabCompiler{}.Compile(context.Background(), "x.shader", []byte(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, res.Name)
			require.NotEmpty(t, res.Errors)
			assert.True(t, hasDiagnostic(res.Errors, tt.wantErr), "diagnostics %v lack %q", res.Errors, tt.wantErr)
		})
	}
}

func hasDiagnostic(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestCommandCompiler(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on POSIX shell utilities")
	}
	ctx := context.Background()

	t.Run("passing command", func(t *testing.T) {
		c := CommandCompiler{Command: []string{"true"}}
		res, err := c.Compile(ctx, "x.shader", []byte(validShader))
		require.NoError(t, err)
		assert.Empty(t, res.Errors)
	})

	t.Run("failing command adds output", func(t *testing.T) {
		c := CommandCompiler{Command: []string{"sh", "-c", "echo 'bad shader' >&2; exit 3", "validator"}}
		res, err := c.Compile(ctx, "x.shader", []byte(validShader))
		require.NoError(t, err)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "sh: bad shader", res.Errors[0])
	})

	t.Run("missing binary", func(t *testing.T) {
		c := CommandCompiler{Command: []string{"/nonexistent/validator"}}
		_, err := c.Compile(ctx, "x.shader", []byte(validShader))
		require.Error(t, err)
	})

	t.Run("no command uses base only", func(t *testing.T) {
		res, err := CommandCompiler{}.Compile(ctx, "x.shader", []byte("garbage"))
		require.NoError(t, err)
		assert.NotEmpty(t, res.Errors)
	})
}
