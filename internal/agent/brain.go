package agent

import (
	"context"
	"fmt"
	"log"

	"github.com/rahul/taskbreak/internal/observability"
	"github.com/rahul/taskbreak/internal/plan"
	"github.com/rahul/taskbreak/internal/tools"
	"github.com/tmc/langchaingo/llms"
)

// Generator is the contract between the pipeline and the generative service.
// Calls are independent of each other; no conversation state is shared.
type Generator interface {
	// StepBreakdown returns candidate steps for a task. A response that
	// cannot be read as steps yields an empty slice and a nil error.
	StepBreakdown(ctx context.Context, task string) ([]plan.Draft, error)
	// StepContent writes markdown content for a single step.
	StepContent(ctx context.Context, title, description string) (string, error)
}

// Options fixes the sampling parameters of both calls.
type Options struct {
	BreakdownTemperature float64
	ContentTemperature   float64
	TopP                 float64
	// MaxToolRounds bounds how many times the model may call tools before
	// it has to answer.
	MaxToolRounds int
}

func DefaultOptions() Options {
	return Options{
		BreakdownTemperature: 0.7,
		ContentTemperature:   0.8,
		TopP:                 0.95,
		MaxToolRounds:        5,
	}
}

// Brain implements Generator on top of a langchaingo model. When Tools is
// non-empty, step content is grounded: the model may search the web and the
// pages it found are cited under the content.
type Brain struct {
	Model   llms.Model
	Prompts *PromptManager
	Tools   *tools.Registry
	Logger  *observability.Logger
	Options Options
}

func NewBrain(model llms.Model, prompts *PromptManager, registry *tools.Registry, logger *observability.Logger, opts Options) *Brain {
	return &Brain{
		Model:   model,
		Prompts: prompts,
		Tools:   registry,
		Logger:  logger,
		Options: opts,
	}
}

var proposeSteps = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "propose_steps",
		Description: "Submit the ordered list of steps that breaks the task down.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"steps": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"title": map[string]any{
								"type":        "string",
								"description": "A short, punchy step title",
							},
							"description": map[string]any{
								"type":        "string",
								"description": "Detailed, concrete instructions with practical tips, examples or suggestions",
							},
						},
						"required": []string{"title", "description"},
					},
				},
			},
			"required": []string{"steps"},
		},
	},
}

func (b *Brain) StepBreakdown(ctx context.Context, task string) ([]plan.Draft, error) {
	prompt, err := b.Prompts.BreakdownPrompt(task)
	if err != nil {
		return nil, &GenerationError{Op: OpBreakdown, Err: err}
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	resp, err := b.Model.GenerateContent(ctx, messages,
		llms.WithTools([]llms.Tool{proposeSteps}),
		llms.WithTemperature(b.Options.BreakdownTemperature),
		llms.WithTopP(b.Options.TopP),
	)
	if err != nil {
		return nil, &GenerationError{Op: OpBreakdown, Err: err}
	}
	if len(resp.Choices) == 0 {
		log.Printf("breakdown: model returned no choices")
		return nil, nil
	}

	choice := resp.Choices[0]
	b.Logger.LogLLM(string(OpBreakdown), prompt, choice.Content, choice.ToolCalls)
	b.logUsage(choice)

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != proposeSteps.Function.Name {
			continue
		}
		drafts := parseProposal(tc.FunctionCall.Arguments)
		if len(drafts) == 0 {
			log.Printf("breakdown: propose_steps arguments not in the expected format: %s", tc.FunctionCall.Arguments)
		}
		return drafts, nil
	}

	drafts := parseDrafts(choice.Content)
	if len(drafts) == 0 {
		log.Printf("breakdown: response not in the expected format: %s", choice.Content)
	}
	return drafts, nil
}

func (b *Brain) StepContent(ctx context.Context, title, description string) (string, error) {
	defs := b.Tools.Definitions()
	grounded := len(defs) > 0

	prompt, err := b.Prompts.ContentPrompt(title, description, grounded)
	if err != nil {
		return "", &GenerationError{Op: OpContent, Err: err}
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(prompt)},
		},
	}

	var sources []tools.Source

	for round := 0; ; round++ {
		if err := ctx.Err(); err != nil {
			return "", &GenerationError{Op: OpContent, Err: err}
		}

		// The last round withholds the tools so the model has to answer.
		withTools := grounded && round < b.Options.MaxToolRounds
		opts := []llms.CallOption{
			llms.WithTemperature(b.Options.ContentTemperature),
			llms.WithTopP(b.Options.TopP),
		}
		if withTools {
			opts = append(opts, llms.WithTools(defs))
		}

		resp, err := b.Model.GenerateContent(ctx, messages, opts...)
		if err != nil {
			return "", &GenerationError{Op: OpContent, Err: err}
		}
		if len(resp.Choices) == 0 {
			return "", &GenerationError{Op: OpContent, Err: ErrEmptyResponse}
		}

		choice := resp.Choices[0]
		b.Logger.LogLLM(string(OpContent), title, choice.Content, choice.ToolCalls)
		b.logUsage(choice)

		// An empty answer is kept as is; exports show it as "No content yet."
		if len(choice.ToolCalls) == 0 {
			return AppendSources(choice.Content, sources), nil
		}
		if !withTools {
			return "", &GenerationError{Op: OpContent, Err: ErrToolLoop}
		}

		var assistantParts []llms.ContentPart
		if choice.Content != "" {
			assistantParts = append(assistantParts, llms.TextContent{Text: choice.Content})
		}
		for _, tc := range choice.ToolCalls {
			assistantParts = append(assistantParts, tc)
		}
		messages = append(messages, llms.MessageContent{
			Role:  llms.ChatMessageTypeAI,
			Parts: assistantParts,
		})

		for _, tc := range choice.ToolCalls {
			result, cited := b.runTool(ctx, tc)
			sources = append(sources, cited...)
			var name string
			if tc.FunctionCall != nil {
				name = tc.FunctionCall.Name
			}
			messages = append(messages, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{
					llms.ToolCallResponse{
						ToolCallID: tc.ID,
						Name:       name,
						Content:    result,
					},
				},
			})
		}
	}
}

func (b *Brain) runTool(ctx context.Context, tc llms.ToolCall) (string, []tools.Source) {
	if tc.FunctionCall == nil {
		return "Error: malformed tool call", nil
	}
	tool := b.Tools.Get(tc.FunctionCall.Name)
	if tool == nil {
		return fmt.Sprintf("Error: Tool %s not found", tc.FunctionCall.Name), nil
	}

	b.Logger.LogToolCall(tool.Name(), tc.FunctionCall.Arguments)
	res, err := tool.Execute(ctx, tc.FunctionCall.Arguments)
	if err != nil {
		log.Printf("tool %s failed: %v", tool.Name(), err)
		return fmt.Sprintf("Error: %v", err), nil
	}

	var cited []tools.Source
	if c, ok := tool.(tools.Citer); ok {
		cited = c.Citations(res)
	}
	return res, cited
}

// Providers report usage under different keys.
func (b *Brain) logUsage(choice *llms.ContentChoice) {
	if b.Logger == nil || choice == nil {
		return
	}
	prompt := intInfo(choice.GenerationInfo, "PromptTokens", "input_tokens", "InputTokens")
	completion := intInfo(choice.GenerationInfo, "CompletionTokens", "output_tokens", "OutputTokens")
	if prompt == 0 && completion == 0 {
		return
	}
	model, _ := choice.GenerationInfo["model"].(string)
	b.Logger.LogCost(prompt, completion, model)
}

func intInfo(info map[string]any, keys ...string) int {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v
		case int32:
			return int(v)
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return 0
}
