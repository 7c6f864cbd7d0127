package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

type inputText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type inputMessage struct {
	Role    string      `json:"role"`
	Content []inputText `json:"content"`
}

type responsesReply struct {
	ID     string `json:"id"`
	Model  string `json:"model"`
	Output []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// outputText concatenates the output_text parts of every message item, skipping tool calls.
func (r responsesReply) outputText() string {
	var b strings.Builder
	for _, item := range r.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" {
				b.WriteString(part.Text)
			}
		}
	}
	return b.String()
}

// respond is complete for the Responses API, the endpoint that accepts mcp connector tools.
func (c *Client) respond(
	ctx context.Context,
	model string,
	temperature float32,
	system, user string,
	schemaName string,
	schema map[string]any,
	tools []map[string]any,
	sanitize func([]byte) ([]byte, []string, error),
) (completion, error) {
	body := map[string]any{
		"model":       model,
		"temperature": temperature,
		"input": []inputMessage{
			{Role: "system", Content: []inputText{{Type: "input_text", Text: system}}},
			{Role: "user", Content: []inputText{{Type: "input_text", Text: user}}},
		},
		"text": map[string]any{
			"format": map[string]any{
				"type":   "json_schema",
				"name":   schemaName,
				"schema": schema,
				"strict": llm.IsStrictSchema(schema),
			},
		},
		"tools": tools,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/responses", body, headers, c.logger)
	if err != nil {
		return completion{}, err
	}

	var rr responsesReply
	if err := json.Unmarshal(raw, &rr); err != nil {
		return completion{}, common.OutputValidationError("decode openai response", err)
	}
	text := rr.outputText()
	if text == "" {
		return completion{}, common.OutputValidationError("openai response", fmt.Errorf("no output_text"))
	}
	content, err := c.conform(text, schemaName, schema, sanitize)
	if err != nil {
		return completion{}, err
	}
	return completion{content: content, model: rr.Model, id: rr.ID}, nil
}

// AppliedTools implements llm.ToolReporter.
func (c *Client) AppliedTools() []string { return llm.ConnectorNames(c.cfg.Connectors) }
