package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// completion is a schema-validated chat/completions reply.
type completion struct {
	content []byte
	model   string
	id      string
}

// WriteListing implements llm.ListingWriter.
func (c *Client) WriteListing(ctx context.Context, req llm.ListingRequest) (llm.ListingResponse, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	start := time.Now()
	c.logger.Info("llm.listing.start", "req_id", rid, "model", c.cfg.Model, "temp", c.cfg.Temperature,
		"text_len", len(req.OCR.RawText), "compatibility", len(req.Compatibility))

	schema := llm.BuildListingJSONSchema()
	prompt := llm.BuildListingPrompt(req)
	tools := llm.MCPTools(c.cfg.Connectors)

	var (
		out completion
		err error
	)
	if len(tools) > 0 {
		out, err = c.respond(ctx, c.cfg.Model, c.cfg.Temperature, llm.ListingSystemPrompt, prompt,
			llm.ListingSchemaName, schema, tools, llm.SanitizeListingJSON)
	} else {
		msgs := []message{
			{Role: "system", Content: llm.ListingSystemPrompt},
			{Role: "user", Content: prompt},
		}
		out, err = c.complete(ctx, c.cfg.Model, c.cfg.Temperature, msgs, llm.ListingSchemaName, schema, llm.SanitizeListingJSON)
	}
	if err != nil {
		c.logger.Error("llm.listing.failed", "req_id", rid, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return llm.ListingResponse{}, err
	}

	var fields llm.ListingFields
	if err := json.Unmarshal(out.content, &fields); err != nil {
		return llm.ListingResponse{}, common.OutputValidationError("unmarshal listing", err)
	}
	model := out.model
	if model == "" {
		model = c.cfg.Model
	}
	c.logger.Info("llm.listing.ok", "req_id", rid, "model", model, "response_id", out.id,
		"prices", len(fields.SuggestedPrices), "elapsed_ms", time.Since(start).Milliseconds())
	return llm.ListingResponse{
		Fields:       fields,
		Model:        model,
		Raw:          out.content,
		ResponseID:   out.id,
		AppliedTools: c.AppliedTools(),
	}, nil
}

// PickPartNumber implements llm.PartNumberArbiter. The returned part number is trimmed and
// upper-cased; empty means the model declined to choose.
func (c *Client) PickPartNumber(ctx context.Context, req llm.PartNumberRequest) (llm.PartNumberChoice, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	c.logger.Debug("llm.partnumber.start", "req_id", rid, "candidates", len(req.Candidates))

	msgs := []message{
		{Role: "system", Content: llm.PartNumberSystemPrompt},
		{Role: "user", Content: llm.BuildPartNumberPrompt(req)},
	}
	out, err := c.complete(ctx, c.cfg.Model, c.cfg.PartNumberTemperature, msgs,
		llm.PartNumberSchemaName, llm.BuildPartNumberJSONSchema(), nil)
	if err != nil {
		return llm.PartNumberChoice{}, err
	}
	var choice llm.PartNumberChoice
	if err := json.Unmarshal(out.content, &choice); err != nil {
		return llm.PartNumberChoice{}, common.OutputValidationError("unmarshal part number", err)
	}
	choice.PartNumber = strings.ToUpper(strings.TrimSpace(choice.PartNumber))
	c.logger.Info("llm.partnumber.ok", "req_id", rid, "part_number", choice.PartNumber, "confidence", choice.Confidence)
	return choice, nil
}

// ReadImage implements llm.VisionReader with a single image_url message.
func (c *Client) ReadImage(ctx context.Context, name string, data []byte) (llm.VisionText, error) {
	ctx, rid := common.EnsureRequestID(ctx)
	url, mt := llm.DataURL(data)
	c.logger.Debug("llm.vision.start", "req_id", rid, "image", name, "mime", mt, "bytes", len(data))

	msgs := []message{
		{Role: "system", Content: llm.VisionSystemPrompt},
		{Role: "user", Content: []map[string]any{
			{"type": "text", "text": llm.VisionUserPrompt},
			{"type": "image_url", "image_url": map[string]any{"url": url}},
		}},
	}
	out, err := c.complete(ctx, c.cfg.VisionModel, 0, msgs, llm.VisionSchemaName, llm.BuildVisionJSONSchema(), nil)
	if err != nil {
		return llm.VisionText{}, err
	}
	var vt llm.VisionText
	if err := json.Unmarshal(out.content, &vt); err != nil {
		return llm.VisionText{}, common.OutputValidationError("unmarshal vision text", err)
	}
	return vt, nil
}

// complete sends one chat/completions request constrained by schema and returns content that
// validates against it.
func (c *Client) complete(
	ctx context.Context,
	model string,
	temperature float32,
	msgs []message,
	schemaName string,
	schema map[string]any,
	sanitize func([]byte) ([]byte, []string, error),
) (completion, error) {
	body := map[string]any{
		"model":       model,
		"temperature": temperature,
		"messages":    msgs,
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   schemaName,
				"schema": schema,
				"strict": llm.IsStrictSchema(schema),
			},
		},
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
	raw, _, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/chat/completions", body, headers, c.logger)
	if err != nil {
		return completion{}, err
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return completion{}, common.OutputValidationError("decode openai response", err)
	}
	if len(cc.Choices) == 0 {
		return completion{}, common.OutputValidationError("openai response", fmt.Errorf("no choices"))
	}
	content, err := c.conform(cc.Choices[0].Message.Content, schemaName, schema, sanitize)
	if err != nil {
		return completion{}, err
	}
	return completion{content: content, model: cc.Model, id: cc.ID}, nil
}

// conform extracts the JSON payload from reply text and returns it once it validates against
// schema. sanitize, when set, gets one chance to repair near-miss output.
func (c *Client) conform(text, schemaName string, schema map[string]any, sanitize func([]byte) ([]byte, []string, error)) ([]byte, error) {
	content := llm.ExtractJSONContent(text)
	if len(content) == 0 {
		return nil, common.OutputValidationError("openai response", fmt.Errorf("empty content"))
	}
	if err := llm.ValidateJSONAgainstSchema(schema, content); err != nil {
		if sanitize == nil {
			return nil, common.OutputValidationError(schemaName, err)
		}
		cleaned, changed, sErr := sanitize(content)
		if sErr != nil {
			return nil, common.OutputValidationError(schemaName, sErr)
		}
		if vErr := llm.ValidateJSONAgainstSchema(schema, cleaned); vErr != nil {
			return nil, common.OutputValidationError(schemaName, vErr)
		}
		c.logger.Warn("llm.response.sanitized", "schema", schemaName, "changed", changed)
		content = cleaned
	}
	return content, nil
}
