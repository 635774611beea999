// Package agent wires the fuel price and directions assistants to a Gemini
// model. The model runtime is an external collaborator: text goes in, tool
// calls are executed locally, text comes out.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sunmkim/nsw-fuel-agent/pkg/fuelapi"
	"github.com/sunmkim/nsw-fuel-agent/pkg/geocode"
)

const (
	modelName = "gemini-1.5-flash-latest"

	// maxToolCalls bounds one assistant turn; a runaway tool loop ends with
	// whatever text the model produced last.
	maxToolCalls = 8
)

// assistant is one specialized agent: a model with a system prompt and a
// set of locally-executed tools.
type assistant struct {
	name  string
	model *genai.GenerativeModel
	tools *toolSet
	log   *slog.Logger
}

// Orchestrator routes user queries to the fuel price assistant or the
// directions assistant and returns a natural-language answer.
type Orchestrator struct {
	client     *genai.Client
	router     *assistant
	fuel       *assistant
	directions *assistant
	log        *slog.Logger
}

// New creates the orchestrator and its sub-assistants. The mapbox client may
// be nil when no token is configured; direction queries then degrade to an
// apologetic answer instead of failing.
func New(ctx context.Context, apiKey string, fuelClient *fuelapi.Client, geo geocode.Geocoder, mapbox *geocode.Mapbox, logger *slog.Logger) (*Orchestrator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	o := &Orchestrator{client: client, log: logger}
	o.fuel = o.newAssistant("fuel_assistant", fuelAssistantPrompt, fuelToolSet(fuelClient, geo))
	if mapbox != nil {
		o.directions = o.newAssistant("directions_assistant", directionsAssistantPrompt, directionsToolSet(mapbox, geo))
	}
	o.router = o.newAssistant("orchestrator", orchestratorPrompt, o.routerToolSet())

	return o, nil
}

// Close releases the connection to the model provider.
func (o *Orchestrator) Close() error {
	return o.client.Close()
}

func (o *Orchestrator) newAssistant(name, systemPrompt string, tools *toolSet) *assistant {
	model := o.client.GenerativeModel(modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.Tools = tools.genaiTools()

	return &assistant{
		name:  name,
		model: model,
		tools: tools,
		log:   o.log.With("assistant", name),
	}
}

// routerToolSet exposes the two sub-assistants as tools of the orchestrator.
func (o *Orchestrator) routerToolSet() *toolSet {
	tools := newToolSet()

	queryParam := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"query": {Type: genai.TypeString, Description: "The user's question, including any location they provided"},
		},
		Required: []string{"query"},
	}

	tools.add(&genai.FunctionDeclaration{
		Name:        "fuel_query",
		Description: "Answer a question about fuel prices in NSW",
		Parameters:  queryParam,
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		return o.delegate(ctx, o.fuel, args)
	})

	tools.add(&genai.FunctionDeclaration{
		Name:        "directions_query",
		Description: "Answer a question about driving directions in NSW",
		Parameters:  queryParam,
	}, func(ctx context.Context, args json.RawMessage) (string, error) {
		return o.delegate(ctx, o.directions, args)
	})

	return tools
}

func (o *Orchestrator) delegate(ctx context.Context, a *assistant, args json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("invalid arguments: %w", err)
	}
	if a == nil {
		return "directions are not available: no Mapbox access token is configured", nil
	}
	return a.run(ctx, in.Query)
}

// Ask answers a user query, routing it through the orchestrator model.
func (o *Orchestrator) Ask(ctx context.Context, query string) (string, error) {
	return o.router.run(ctx, query)
}

// run sends a prompt through a chat session, executing tool calls until the
// model produces text. Tool failures are reported back to the model so it
// can apologise or retry rather than crashing the conversation.
func (a *assistant) run(ctx context.Context, prompt string) (string, error) {
	a.log.Debug("executing task", "prompt", prompt)

	session := a.model.StartChat()
	resp, err := session.SendMessage(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	for i := 0; i < maxToolCalls; i++ {
		call := firstFunctionCall(resp)
		if call == nil {
			break
		}

		result := a.execute(ctx, call)
		resp, err = session.SendMessage(ctx, genai.FunctionResponse{
			Name:     call.Name,
			Response: map[string]any{"result": result},
		})
		if err != nil {
			return "", fmt.Errorf("failed to send tool response: %w", err)
		}
	}

	if text := firstText(resp); text != "" {
		return text, nil
	}
	return "", errors.New("no text response from model")
}

func (a *assistant) execute(ctx context.Context, call *genai.FunctionCall) string {
	fn, exists := a.tools.funcs[call.Name]
	if !exists {
		return fmt.Sprintf("error: tool %q not found", call.Name)
	}

	args, err := json.Marshal(call.Args)
	if err != nil {
		return fmt.Sprintf("error: could not marshal tool arguments: %v", err)
	}

	a.log.Debug("calling tool", "tool", call.Name)
	result, err := fn(ctx, json.RawMessage(args))
	if err != nil {
		a.log.Warn("tool execution failed", "tool", call.Name, "error", err)
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

func firstFunctionCall(resp *genai.GenerateContentResponse) *genai.FunctionCall {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if fc, ok := part.(genai.FunctionCall); ok {
			return &fc
		}
	}
	return nil
}

func firstText(resp *genai.GenerateContentResponse) string {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return ""
}
