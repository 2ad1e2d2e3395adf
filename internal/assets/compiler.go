package assets

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"unicode"
)

// CompileResult is the outcome of compiling one shader source.
type CompileResult struct {
	// Name is the declared shader name, or "" when no declaration was found.
	Name string
	// Errors holds diagnostics; an empty slice means the shader compiled.
	Errors []string
}

// Compiler turns shader source into a CompileResult. A returned error means
// the compiler itself could not run, not that the shader is invalid.
type Compiler interface {
	Compile(ctx context.Context, path string, src []byte) (CompileResult, error)
}

// ShaderLabCompiler performs a structural check of ShaderLab source: a leading
// `Shader "name"` declaration, balanced braces, at least one SubShader and
// paired program blocks. Strings and comments are ignored.
type ShaderLabCompiler struct{}

var programPairs = map[string]string{
	"CGPROGRAM":   "ENDCG",
	"HLSLPROGRAM": "ENDHLSL",
	"GLSLPROGRAM": "ENDGLSL",
}

func (ShaderLabCompiler) Compile(_ context.Context, _ string, src []byte) (CompileResult, error) {
	toks := tokenize(string(src))
	var res CompileResult

	if len(toks) < 2 || toks[0].text != "Shader" || toks[1].kind != tokString {
		res.Errors = append(res.Errors, `line 1: expected Shader "name" declaration`)
	} else {
		res.Name = toks[1].text
	}

	var braces []int
	openProgram, openedAt := "", 0
	subShaders := 0

	for _, tok := range toks {
		if tok.kind == tokUnterminated {
			res.Errors = append(res.Errors, fmt.Sprintf("line %d: unterminated %s", tok.line, tok.text))
			continue
		}
		if tok.kind != tokWord && tok.kind != tokPunct {
			continue
		}
		switch tok.text {
		case "{":
			braces = append(braces, tok.line)
		case "}":
			if len(braces) == 0 {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: unexpected '}'", tok.line))
				continue
			}
			braces = braces[:len(braces)-1]
		case "SubShader":
			subShaders++
		case "CGPROGRAM", "HLSLPROGRAM", "GLSLPROGRAM":
			if openProgram != "" {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: %s inside %s opened at line %d", tok.line, tok.text, openProgram, openedAt))
			}
			openProgram, openedAt = tok.text, tok.line
		case "ENDCG", "ENDHLSL", "ENDGLSL":
			if openProgram == "" || programPairs[openProgram] != tok.text {
				res.Errors = append(res.Errors, fmt.Sprintf("line %d: %s without matching program block", tok.line, tok.text))
				continue
			}
			openProgram = ""
		}
	}

	if openProgram != "" {
		res.Errors = append(res.Errors, fmt.Sprintf("line %d: %s without %s", openedAt, openProgram, programPairs[openProgram]))
	}
	for _, line := range braces {
		res.Errors = append(res.Errors, fmt.Sprintf("line %d: unclosed '{'", line))
	}
	if subShaders == 0 {
		res.Errors = append(res.Errors, "no SubShader block")
	}
	return res, nil
}

type tokKind int

const (
	tokWord tokKind = iota
	tokString
	tokPunct
	tokUnterminated
)

type token struct {
	kind tokKind
	text string
	line int
}

// tokenize splits ShaderLab into words, quoted strings and punctuation,
// dropping comments. Only what the structural check needs is kept.
func tokenize(src string) []token {
	var toks []token
	line := 1
	rs := []rune(src)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\n':
			line++
		case unicode.IsSpace(r):
		case r == '/' && i+1 < len(rs) && rs[i+1] == '/':
			for i+1 < len(rs) && rs[i+1] != '\n' {
				i++
			}
		case r == '/' && i+1 < len(rs) && rs[i+1] == '*':
			start := line
			i += 2
			for ; i < len(rs) && !(rs[i] == '*' && i+1 < len(rs) && rs[i+1] == '/'); i++ {
				if rs[i] == '\n' {
					line++
				}
			}
			if i >= len(rs) {
				toks = append(toks, token{kind: tokUnterminated, text: "comment", line: start})
			}
			i++
		case r == '"':
			start := line
			var sb strings.Builder
			i++
			for ; i < len(rs) && rs[i] != '"' && rs[i] != '\n'; i++ {
				sb.WriteRune(rs[i])
			}
			if i >= len(rs) || rs[i] == '\n' {
				toks = append(toks, token{kind: tokUnterminated, text: "string", line: start})
				if i < len(rs) {
					line++
				}
				continue
			}
			toks = append(toks, token{kind: tokString, text: sb.String(), line: start})
		case unicode.IsLetter(r) || r == '_':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_') {
				j++
			}
			toks = append(toks, token{kind: tokWord, text: string(rs[i:j]), line: line})
			i = j - 1
		default:
			toks = append(toks, token{kind: tokPunct, text: string(r), line: line})
		}
	}
	return toks
}

// CommandCompiler runs the structural check and then an external validator
// command with the source path appended. A non-zero exit adds the command's
// output as a diagnostic.
type CommandCompiler struct {
	Base    Compiler
	Command []string
}

func (c CommandCompiler) Compile(ctx context.Context, path string, src []byte) (CompileResult, error) {
	base := c.Base
	if base == nil {
		base = ShaderLabCompiler{}
	}
	res, err := base.Compile(ctx, path, src)
	if err != nil || len(c.Command) == 0 {
		return res, err
	}

	args := append(append([]string{}, c.Command[1:]...), path)
	cmd := exec.CommandContext(ctx, c.Command[0], args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return res, fmt.Errorf("failed to run compiler command %q: %w", c.Command[0], err)
		}
		msg := strings.TrimSpace(out.String())
		if msg == "" {
			msg = err.Error()
		}
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", c.Command[0], msg))
	}
	return res, nil
}
