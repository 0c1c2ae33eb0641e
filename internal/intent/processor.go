// Copyright (C) 2025 the deskhand authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package intent

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"deskhand/internal/risk"
)

const extractFunctionName = "extract_intent"

// Processor extracts intents, refining the keyword pass through an LLM
// when one is configured. A Processor with no client is valid and runs
// keywords only.
type Processor struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

// NewProcessor builds a Processor. An empty apiKey disables the LLM
// path entirely; apiURL overrides the default endpoint when set.
func NewProcessor(apiKey, apiURL, model string, logger zerolog.Logger) *Processor {
	p := &Processor{
		model: model,
		log:   logger.With().Str("component", "intent").Logger(),
	}
	if apiKey == "" {
		return p
	}
	cfg := openai.DefaultConfig(apiKey)
	if apiURL != "" {
		cfg.BaseURL = apiURL
	}
	p.client = openai.NewClientWithConfig(cfg)
	return p
}

// Parse extracts a structured intent from text. LLM failures are never
// surfaced: the keyword result is returned instead, so a network outage
// degrades accuracy, not availability.
func (p *Processor) Parse(ctx context.Context, text string) Intent {
	fallback := ParseKeywords(text)
	if p.client == nil {
		return fallback
	}

	extracted, err := p.extract(ctx, text)
	if err != nil {
		p.log.Debug().Err(err).Msg("intent extraction fell back to keywords")
		return fallback
	}

	parsed := Intent{
		Operation:    risk.ParseOperation(extracted.Action),
		Action:       extracted.Action,
		Target:       extracted.Target,
		Destination:  extracted.Destination,
		Strategy:     extracted.Strategy,
		Recursive:    extracted.Recursive,
		Confidence:   0.9,
		OriginalText: text,
	}
	if parsed.Operation == risk.OpUnknown && fallback.Operation != risk.OpUnknown {
		// The keyword pass recognized something the model did not;
		// prefer the recognized operation.
		return fallback
	}
	return parsed
}

func (p *Processor) extract(ctx context.Context, text string) (*extractedIntent, error) {
	params, err := schemaParametersFor[extractedIntent]()
	if err != nil {
		return nil, err
	}

	prompt, err := SystemPrompt()
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        extractFunctionName,
				Description: "Extract the structured file operation intent from the user's command.",
				Parameters:  params,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: extractFunctionName},
		},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || len(resp.Choices[0].Message.ToolCalls) == 0 {
		return nil, errNoToolCall
	}

	var extracted extractedIntent
	args := resp.Choices[0].Message.ToolCalls[0].Function.Arguments
	if err := json.Unmarshal([]byte(args), &extracted); err != nil {
		return nil, err
	}
	return &extracted, nil
}
