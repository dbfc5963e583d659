package ai

import (
	"fmt"
	"strings"
)

// promptTemplate is the per-item correction contract. The model must answer
// with a single JSON object so the response parses deterministically. The
// first slot carries task-specific instructions, the second the item text.
const promptTemplate = `You are a careful proofreader. Correct spelling, grammar and punctuation
in the text below. Preserve the meaning, tone, line breaks and any markup,
placeholders or variables (such as %%s, {name}, <b>, &amp;) exactly as they are.
Do not rephrase, shorten or expand the text beyond what the corrections require.
%s
Respond with only a JSON object in this exact form, no markdown fences,
no commentary:
{"corrected": "<the corrected text>", "summary": "<one short sentence listing what changed, or empty if nothing>"}

If the text needs no corrections, return it unchanged with an empty summary.

Text:
%s`

// maxPromptChars bounds the assembled prompt; texts that pass the per-model
// character limit but blow up the full prompt are rejected separately.
const maxPromptChars = 120000

// BuildPrompt assembles the correction prompt for one item's text. The task
// description, when present, is injected as additional instructions.
func BuildPrompt(instructions, text string) string {
	extra := ""
	if s := strings.TrimSpace(instructions); s != "" {
		extra = "\nAdditional instructions for this task:\n" + s + "\n"
	}
	return fmt.Sprintf(promptTemplate, extra, strings.TrimRight(text, "\n"))
}

// PromptTooLong reports whether the assembled prompt exceeds the hard bound.
func PromptTooLong(prompt string) bool {
	return len(prompt) > maxPromptChars
}
