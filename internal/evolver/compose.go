package evolver

import (
	"fmt"
	"strings"
)

// DefaultEvolvePrompt replaces a blank evolve instruction.
const DefaultEvolvePrompt = "Generate a new interesting shader."

const fence = "```"

// EffectivePrompt returns instruction, or DefaultEvolvePrompt when it is blank.
func EffectivePrompt(instruction string) string {
	if strings.TrimSpace(instruction) == "" {
		return DefaultEvolvePrompt
	}
	return instruction
}

// ComposePrompt builds the request text for slot index. The instruction is
// always present; a non-blank base source is attached as a reference block;
// for index > 0 a non-empty previous source adds a differentiation request.
func ComposePrompt(instruction, baseSource string, index int, previousSource string) string {
	var sb strings.Builder
	line := func(s string) {
		sb.WriteString(s)
		sb.WriteString("\n")
	}

	line(instruction)
	line("\n---")

	if strings.TrimSpace(baseSource) != "" {
		line("Use the following shader code as a starting point or inspiration for the evolutions:")
		line(fence + "shader")
		line(baseSource)
		line(fence)
	}

	if index > 0 && previousSource != "" {
		line("\n---")
		line(fmt.Sprintf("For this new Variant %d, please ensure it is distinct and offers a different approach or visual style compared to the *immediately preceding* Variant %d which was:", index+1, index))
		line(fence + "shader")
		line(previousSource)
		line(fence)
		line("Focus on creating something new and different while still adhering to the main goal.")
	}
	return sb.String()
}
