package llmutil

import (
	"regexp"
	"strings"
)

// ExtractionMethod records which heuristic produced an extracted source.
type ExtractionMethod string

const (
	// MethodFence means a fenced block passed the structural check.
	MethodFence ExtractionMethod = "fence"
	// MethodDeclaration means the text from the first `Shader "` onward was used.
	MethodDeclaration ExtractionMethod = "declaration"
	// MethodRaw means the whole trimmed text looked like a shader.
	MethodRaw ExtractionMethod = "raw"
	// MethodUnrecognized means nothing looked like a shader; the raw text is returned anyway.
	MethodUnrecognized ExtractionMethod = "unrecognized"
)

const declarationOpener = `Shader "`

var (
	// shaderFenceRegex matches the first fenced block, with an optional shader
	// language tag. Longer tags come first so "shaderlab" is not split.
	shaderFenceRegex = regexp.MustCompile("(?is)\x60\x60\x60(?:shaderlab|shader|hlsl|glsl|cg|unityshader)?\\s*(.+?)\\s*\x60\x60\x60")

	// shaderNameRegex matches the declaration and captures its quoted name.
	shaderNameRegex = regexp.MustCompile(`\bShader\s*"([^"]*)"`)
)

// Extraction is the result of ExtractShaderSource.
type Extraction struct {
	Source string
	Method ExtractionMethod
	// Rejected holds a fenced block that failed the structural check, if any.
	Rejected string
}

// LooksLikeShader is the structural check applied to every candidate: the
// declaration keyword and both braces must appear.
func LooksLikeShader(s string) bool {
	return strings.Contains(s, "Shader") && strings.Contains(s, "{") && strings.Contains(s, "}")
}

// ExtractShaderSource recovers shader source from free-form model output.
// It never fails; the first heuristic to succeed wins:
//
//  1. the first fenced block, if it passes LooksLikeShader;
//  2. everything from the first `Shader "` onward, if that contains braces;
//  3. the trimmed input.
func ExtractShaderSource(raw string) Extraction {
	raw = strings.TrimSpace(raw)
	var result Extraction

	if m := shaderFenceRegex.FindStringSubmatch(raw); len(m) > 1 {
		block := strings.TrimSpace(m[1])
		if LooksLikeShader(block) {
			return Extraction{Source: block, Method: MethodFence}
		}
		result.Rejected = block
	}

	if idx := strings.Index(raw, declarationOpener); idx != -1 {
		rest := raw[idx:]
		if strings.Contains(rest, "{") && strings.Contains(rest, "}") {
			result.Source = strings.TrimSpace(rest)
			result.Method = MethodDeclaration
			return result
		}
	}

	result.Source = raw
	result.Method = MethodUnrecognized
	if LooksLikeShader(raw) {
		result.Method = MethodRaw
	}
	return result
}

// ShaderName returns the name in the first `Shader "..."` declaration.
func ShaderName(src string) (string, bool) {
	m := shaderNameRegex.FindStringSubmatch(src)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// RenameShader rewrites the first declaration to use name. Source without a
// declaration is returned unchanged.
func RenameShader(src, name string) string {
	loc := shaderNameRegex.FindStringIndex(src)
	if loc == nil {
		return src
	}
	return src[:loc[0]] + `Shader "` + name + `"` + src[loc[1]:]
}
