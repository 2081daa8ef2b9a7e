// Package intent turns free-form utterances into either a direct answer
// or a structured tool-call proposal using a local Ollama model.
package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kaptinlin/jsonrepair"

	"hark/internal/config"
	"hark/internal/tool"
)

// Apology is spoken whenever the model call fails. Resolution errors
// never propagate out of the resolver.
const Apology = "I'm sorry, I encountered an error."

const systemPrompt = "You are Hark, a helpful voice assistant. Your primary function is to provide direct, " +
	"natural language answers. Only use a tool if the user's request *explicitly and clearly* " +
	"matches one of the available tool descriptions. For simple conversational queries that do not " +
	"match any tool (like 'what is your name?' or 'give me a random number'), you MUST provide a " +
	"direct text-based answer and MUST NOT call a tool. When asked to 'open' something, prioritize " +
	"using the `find_application` tool for application names over `open_website`."

// Kind discriminates the two mutually exclusive result variants.
type Kind int

const (
	KindText Kind = iota
	KindToolCall
)

// Result is one resolver outcome: plain text or a tool-call proposal.
type Result struct {
	Kind   Kind
	Text   string
	Name   string
	Params tool.Args
}

// Resolver wraps the chat endpoint of a local Ollama server.
type Resolver struct {
	http     *http.Client
	host     string
	model    string
	registry *tool.Registry
	logger   *slog.Logger
}

// New builds a resolver for the configured model server.
func New(cfg config.OllamaConfig, registry *tool.Registry, logger *slog.Logger) *Resolver {
	return &Resolver{
		http:     &http.Client{Timeout: 2 * time.Minute},
		host:     strings.TrimRight(cfg.Host, "/"),
		model:    cfg.Model,
		registry: registry,
		logger:   logger,
	}
}

type chatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []toolCall `json:"tool_calls,omitempty"`
}

type toolCall struct {
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Tools    []chatTool    `json:"tools,omitempty"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
}

type chatTool struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type toolFunction struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Parameters  toolSchema `json:"parameters"`
}

type toolSchema struct {
	Type       string                  `json:"type"`
	Properties map[string]toolProperty `json:"properties"`
}

type toolProperty struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Resolve submits the utterance with zero-temperature decoding so tool
// selection stays reproducible. useTools=false is the paraphrase pass:
// the model sees no tool schemas and must answer in plain text.
func (r *Resolver) Resolve(ctx context.Context, utterance string, useTools bool) Result {
	request := chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: utterance},
		},
		Stream:  false,
		Options: chatOptions{Temperature: 0},
	}
	if useTools {
		request.Tools = r.toolDefinitions()
	}

	response, err := r.chat(ctx, request)
	if err != nil {
		r.log("model call failed", "error", err.Error())
		return Result{Kind: KindText, Text: Apology}
	}

	for _, call := range response.Message.ToolCalls {
		name := call.Function.Name
		if _, known := r.registry.Lookup(name); !known {
			continue
		}
		params, err := decodeArguments(call.Function.Arguments)
		if err != nil {
			r.log("tool arguments undecodable", "tool", name, "error", err.Error())
			continue
		}
		r.log("model chose tool", "tool", name)
		return Result{Kind: KindToolCall, Name: name, Params: params}
	}

	return Result{Kind: KindText, Text: strings.TrimSpace(response.Message.Content)}
}

func (r *Resolver) chat(ctx context.Context, request chatRequest) (chatResponse, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return chatResponse{}, fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.host+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return chatResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return chatResponse{}, fmt.Errorf("call ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return chatResponse{}, fmt.Errorf("ollama status %d (%s)", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return chatResponse{}, fmt.Errorf("decode chat response: %w", err)
	}
	return response, nil
}

// toolDefinitions derives the schema payload from the registry's
// declared descriptions and parameter maps.
func (r *Resolver) toolDefinitions() []chatTool {
	tools := r.registry.All()
	defs := make([]chatTool, 0, len(tools))
	for _, t := range tools {
		properties := make(map[string]toolProperty, len(t.Params))
		for _, p := range t.Params {
			properties[p.Name] = toolProperty{Type: "string", Description: p.Desc}
		}
		defs = append(defs, chatTool{
			Type: "function",
			Function: toolFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  toolSchema{Type: "object", Properties: properties},
			},
		})
	}
	return defs
}

// decodeArguments accepts the argument payload as a JSON object or as a
// string-wrapped object, repairing malformed JSON before giving up.
// Model output is untrusted; anything undecodable fails the call.
func decodeArguments(raw json.RawMessage) (tool.Args, error) {
	if len(raw) == 0 {
		return tool.Args{}, nil
	}

	var object map[string]any
	if err := json.Unmarshal(raw, &object); err == nil {
		return stringifyArgs(object), nil
	}

	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		wrapped = string(raw)
	}
	if err := json.Unmarshal([]byte(wrapped), &object); err == nil {
		return stringifyArgs(object), nil
	}

	repaired, err := jsonrepair.JSONRepair(wrapped)
	if err != nil {
		return nil, fmt.Errorf("repair arguments: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), &object); err != nil {
		return nil, fmt.Errorf("decode repaired arguments: %w", err)
	}
	return stringifyArgs(object), nil
}

// stringifyArgs flattens model-typed values into the string parameter
// map the tool contract declares.
func stringifyArgs(object map[string]any) tool.Args {
	args := make(tool.Args, len(object))
	for key, value := range object {
		switch v := value.(type) {
		case string:
			args[key] = v
		case float64:
			args[key] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			args[key] = strconv.FormatBool(v)
		case nil:
			args[key] = ""
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				args[key] = fmt.Sprintf("%v", v)
				continue
			}
			args[key] = string(encoded)
		}
	}
	return args
}

func (r *Resolver) log(msg string, fields ...any) {
	if r.logger == nil {
		return
	}
	r.logger.Debug(msg, fields...)
}
