package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mikey/chatguard/internal/core"
)

// ClassifierPrompt is the prompt sent to every provider. It is filled with
// the rule instruction and the player text.
const ClassifierPrompt = `You are a moderation system for a multiplayer game server. Decide whether the player text below matches this rule:
%s

Respond with a JSON object containing:
- matches: boolean (true if the text matches the rule)
- score: number between 0 and 1 (higher means more likely to match)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of your decision)

Player text:
%s

Respond only with the JSON object and nothing else.`

// SystemPrompt is used by providers that take a separate system message
const SystemPrompt = "You are a chat moderation system. Respond only with JSON."

// BuildPrompt formats ClassifierPrompt
func BuildPrompt(instruction, text string) string {
	return fmt.Sprintf(ClassifierPrompt, instruction, text)
}

// ParseVerdict decodes the JSON object of a model response. Models often wrap
// the object in prose or code fences, so the outermost braces are tried
// when the response is not valid JSON as a whole.
func ParseVerdict(responseText string) (*core.Verdict, error) {
	var verdict core.Verdict
	if err := json.Unmarshal([]byte(responseText), &verdict); err == nil {
		return &verdict, nil
	}

	start := strings.IndexByte(responseText, '{')
	end := strings.LastIndexByte(responseText, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(responseText[start:end+1]), &verdict); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &verdict, nil
}
