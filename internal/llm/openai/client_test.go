package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/joseph-ayodele/partlister/internal/common"
	"github.com/joseph-ayodele/partlister/internal/entity"
	"github.com/joseph-ayodele/partlister/internal/llm"
)

const validListing = `{"title":"2018 Chevrolet Equinox Front Left Hub GM-45123-789","description":"Genuine GM front left hub assembly, part GM-45123-789, removed from a 2018 Equinox.","suggestedPrices":[59.99,74.99]}`

// fakeAPI serves chat/completions with the given content and records the last request body.
func fakeAPI(t *testing.T, status int, content string) (*httptest.Server, *map[string]any, *atomic.Int32) {
	t.Helper()
	var last map[string]any
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("authorization = %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &last)

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
			return
		}
		resp := map[string]any{
			"id":    "chatcmpl-1",
			"model": "gpt-4.1-mini-2025",
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv, &last, &calls
}

func newTestClient(t *testing.T, baseURL string, connectors ...string) *Client {
	t.Helper()
	c, err := NewClient(Config{APIKey: "sk-test", BaseURL: baseURL + "/", Temperature: 0.4, Connectors: connectors}, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{}, nil)
	if !errors.Is(err, common.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
}

func TestWriteListing(t *testing.T) {
	t.Parallel()

	srv, last, _ := fakeAPI(t, http.StatusOK, validListing)
	c := newTestClient(t, srv.URL, "ebay-catalog")

	resp, err := c.WriteListing(context.Background(), llm.ListingRequest{
		OCR:        entity.OCRResult{RawText: "P/N: GM-45123-789"},
		PartNumber: "GM-45123-789",
	})
	if err != nil {
		t.Fatalf("WriteListing: %v", err)
	}
	if resp.Model != "gpt-4.1-mini-2025" {
		t.Errorf("model = %q, want the model reported by the response", resp.Model)
	}
	if len(resp.Fields.SuggestedPrices) != 2 || resp.Fields.SuggestedPrices[1] != 74.99 {
		t.Errorf("prices = %v", resp.Fields.SuggestedPrices)
	}

	body := *last
	rf, _ := body["response_format"].(map[string]any)
	js, _ := rf["json_schema"].(map[string]any)
	if rf["type"] != "json_schema" || js["name"] != llm.ListingSchemaName || js["strict"] != true {
		t.Errorf("response_format = %v", rf)
	}
	if _, ok := body["tools"]; ok {
		t.Errorf("chat/completions request carries tools: %v", body["tools"])
	}
	if len(resp.AppliedTools) != 0 {
		t.Errorf("applied tools = %v, want none", resp.AppliedTools)
	}
}

// fakeResponsesAPI serves the Responses endpoint with content as output_text.
func fakeResponsesAPI(t *testing.T, content string) (*httptest.Server, *map[string]any) {
	t.Helper()
	var last map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/responses" {
			t.Errorf("path = %s, want /responses", r.URL.Path)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &last)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "resp_1",
			"model": "gpt-4.1-mini-2025",
			"output": []map[string]any{
				{"type": "mcp_list_tools", "server_label": "ebay-catalog"},
				{"type": "message", "content": []map[string]any{{"type": "output_text", "text": content}}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &last
}

func TestWriteListingWithConnectorsUsesResponses(t *testing.T) {
	t.Parallel()

	srv, last := fakeResponsesAPI(t, validListing)
	c := newTestClient(t, srv.URL, " ebay-catalog ", "", "parts.db")

	resp, err := c.WriteListing(context.Background(), llm.ListingRequest{
		OCR:        entity.OCRResult{RawText: "P/N: GM-45123-789"},
		PartNumber: "GM-45123-789",
	})
	if err != nil {
		t.Fatalf("WriteListing: %v", err)
	}
	if resp.Model != "gpt-4.1-mini-2025" || resp.ResponseID != "resp_1" {
		t.Errorf("model = %q, id = %q", resp.Model, resp.ResponseID)
	}
	if len(resp.AppliedTools) != 2 || resp.AppliedTools[0] != "ebay-catalog" || resp.AppliedTools[1] != "parts.db" {
		t.Errorf("applied tools = %v", resp.AppliedTools)
	}

	body := *last
	if _, ok := body["response_format"]; ok {
		t.Error("responses request carries chat response_format")
	}
	format, _ := body["text"].(map[string]any)["format"].(map[string]any)
	if format["type"] != "json_schema" || format["name"] != llm.ListingSchemaName || format["strict"] != true {
		t.Errorf("text.format = %v", format)
	}
	tools, _ := body["tools"].([]any)
	if len(tools) != 2 {
		t.Fatalf("tools = %v, want two mcp connectors", body["tools"])
	}
	second, _ := tools[1].(map[string]any)
	if second["type"] != "mcp" || second["connector_id"] != "parts.db" || second["server_label"] != "parts_db" {
		t.Errorf("tool = %v", second)
	}
}

func TestWriteListingResponsesWithoutText(t *testing.T) {
	t.Parallel()

	srv, _ := fakeResponsesAPI(t, "")
	c := newTestClient(t, srv.URL, "ebay-catalog")

	_, err := c.WriteListing(context.Background(), llm.ListingRequest{PartNumber: "X"})
	if !errors.Is(err, common.ErrOutputValidation) {
		t.Fatalf("err = %v, want ErrOutputValidation", err)
	}
}

func TestWriteListingSchemaFailure(t *testing.T) {
	t.Parallel()

	srv, _, _ := fakeAPI(t, http.StatusOK, `{"title":"short","description":"x","suggestedPrices":[]}`)
	c := newTestClient(t, srv.URL)

	_, err := c.WriteListing(context.Background(), llm.ListingRequest{PartNumber: "X"})
	if !errors.Is(err, common.ErrOutputValidation) {
		t.Fatalf("err = %v, want ErrOutputValidation", err)
	}
}

func TestWriteListingHTTPError(t *testing.T) {
	t.Parallel()

	srv, _, _ := fakeAPI(t, http.StatusTooManyRequests, "")
	c := newTestClient(t, srv.URL)

	_, err := c.WriteListing(context.Background(), llm.ListingRequest{PartNumber: "X"})
	if !errors.Is(err, common.ErrBackendCall) {
		t.Fatalf("err = %v, want ErrBackendCall", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("error should mention the status: %v", err)
	}
}

func TestPickPartNumberNormalizes(t *testing.T) {
	t.Parallel()

	srv, last, _ := fakeAPI(t, http.StatusOK, "```json\n{\"partNumber\":\" gm-45123-789 \",\"confidence\":87}\n```")
	c := newTestClient(t, srv.URL)

	choice, err := c.PickPartNumber(context.Background(), llm.PartNumberRequest{Candidates: []string{"GM-45123-789"}})
	if err != nil {
		t.Fatalf("PickPartNumber: %v", err)
	}
	if choice.PartNumber != "GM-45123-789" || choice.Confidence != 87 {
		t.Errorf("choice = %+v", choice)
	}
	rf := (*last)["response_format"].(map[string]any)
	if rf["json_schema"].(map[string]any)["strict"] != false {
		t.Error("part number schema sent as strict")
	}
}

func TestReadImageSendsDataURL(t *testing.T) {
	t.Parallel()

	srv, last, _ := fakeAPI(t, http.StatusOK, `{"text":"P/N 12345-ABC","confidence":70}`)
	c := newTestClient(t, srv.URL)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	vt, err := c.ReadImage(context.Background(), "label.png", png)
	if err != nil {
		t.Fatalf("ReadImage: %v", err)
	}
	if vt.Text != "P/N 12345-ABC" || vt.Confidence == nil || *vt.Confidence != 70 {
		t.Errorf("vision text = %+v", vt)
	}
	raw, _ := json.Marshal((*last)["messages"])
	if !strings.Contains(string(raw), "data:image/png;base64,") {
		t.Errorf("messages missing image data url: %s", raw)
	}
}

func TestProviderBuildsOnce(t *testing.T) {
	t.Parallel()

	srv, _, calls := fakeAPI(t, http.StatusOK, `{"partNumber":"AB-1234","confidence":50}`)
	p := NewProvider(Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	if !p.Enabled() {
		t.Fatal("provider with key should be enabled")
	}
	c1, err := p.Client()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.PickPartNumber(context.Background(), llm.PartNumberRequest{Candidates: []string{"AB-1234"}}); err != nil {
		t.Fatal(err)
	}
	c2, _ := p.Client()
	if c1 != c2 {
		t.Error("provider built more than one client")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d", calls.Load())
	}

	off := NewProvider(Config{}, nil)
	if off.Enabled() {
		t.Error("provider without key should be disabled")
	}
	if _, err := off.WriteListing(context.Background(), llm.ListingRequest{}); !errors.Is(err, common.ErrBackendUnavailable) {
		t.Errorf("disabled provider err = %v", err)
	}
}
