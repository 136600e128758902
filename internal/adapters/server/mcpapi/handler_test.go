package mcpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/evanschultz/crave/internal/adapters/server/common"
	"github.com/evanschultz/crave/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
)

// stubDeckService provides deterministic deck responses for MCP tool tests.
type stubDeckService struct {
	state       common.DeckState
	result      common.ActionResult
	err         error
	lastSwipe   common.SwipeRequest
	lastGesture common.GestureRequest
	reloads     int
}

// DeckState returns the configured state.
func (s *stubDeckService) DeckState(context.Context) (common.DeckState, error) {
	if s.err != nil {
		return common.DeckState{}, s.err
	}
	return s.state, nil
}

// Swipe records the request and returns the configured result.
func (s *stubDeckService) Swipe(_ context.Context, req common.SwipeRequest) (common.ActionResult, error) {
	s.lastSwipe = req
	if s.err != nil {
		return common.ActionResult{}, s.err
	}
	return s.result, nil
}

// Gesture records the request and returns the configured result.
func (s *stubDeckService) Gesture(_ context.Context, req common.GestureRequest) (common.ActionResult, error) {
	s.lastGesture = req
	if s.err != nil {
		return common.ActionResult{}, s.err
	}
	return s.result, nil
}

// Reload counts reloads and returns the configured state.
func (s *stubDeckService) Reload(context.Context) (common.DeckState, error) {
	s.reloads++
	if s.err != nil {
		return common.DeckState{}, s.err
	}
	return s.state, nil
}

// stubSavedService provides deterministic saved-collection responses.
type stubSavedService struct {
	saved   []domain.SavedRecipe
	recipes map[string]domain.Recipe
}

// ListSaved returns the fixture collection.
func (s *stubSavedService) ListSaved(context.Context) ([]domain.SavedRecipe, error) {
	return append([]domain.SavedRecipe(nil), s.saved...), nil
}

// GetRecipe returns one fixture recipe.
func (s *stubSavedService) GetRecipe(_ context.Context, id string) (domain.Recipe, error) {
	recipe, ok := s.recipes[id]
	if !ok {
		return domain.Recipe{}, fmt.Errorf("get recipe %q: %w", id, common.ErrNotFound)
	}
	return recipe, nil
}

// jsonRPCResponse stores the subset of JSON-RPC response fields used by tests.
type jsonRPCResponse struct {
	ID     float64        `json:"id"`
	Result map[string]any `json:"result"`
}

// callToolRequest constructs one deterministic tools/call JSON-RPC request payload.
func callToolRequest(id int, toolName string, arguments map[string]any) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	}
}

// toolResultText decodes the first text entry from one tool-call result payload.
func toolResultText(t *testing.T, result map[string]any) string {
	t.Helper()

	contentRaw, ok := result["content"].([]any)
	if !ok || len(contentRaw) == 0 {
		t.Fatalf("content missing in tool result: %#v", result)
	}
	first, ok := contentRaw[0].(map[string]any)
	if !ok {
		t.Fatalf("first content entry has unexpected type: %#v", contentRaw[0])
	}
	text, ok := first["text"].(string)
	if !ok {
		t.Fatalf("content text missing in tool result: %#v", first)
	}
	return text
}

// postJSONRPC sends one JSON-RPC payload and decodes the response body.
func postJSONRPC(t *testing.T, client *http.Client, url string, payload any) (*http.Response, jsonRPCResponse) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	var decoded jsonRPCResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if err := resp.Body.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return resp, decoded
}

// initializeRequest builds a deterministic MCP initialize request payload.
func initializeRequest() map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
			"clientInfo": map[string]any{
				"name":    "crave-test",
				"version": "1.0.0",
			},
		},
	}
}

// startServer builds one handler behind an httptest server and runs initialize.
func startServer(t *testing.T, deck common.DeckService, saved common.SavedService) *httptest.Server {
	t.Helper()
	handler, err := NewHandler(Config{}, deck, saved)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	_, _ = postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	return server
}

// listToolNames returns the names advertised by tools/list.
func listToolNames(t *testing.T, server *httptest.Server) []string {
	t.Helper()
	_, toolsResp := postJSONRPC(t, server.Client(), server.URL, map[string]any{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "tools/list",
	})
	toolsRaw, ok := toolsResp.Result["tools"].([]any)
	if !ok {
		t.Fatalf("tools list payload missing tools: %#v", toolsResp.Result)
	}
	names := make([]string, 0, len(toolsRaw))
	for _, toolRaw := range toolsRaw {
		toolMap, ok := toolRaw.(map[string]any)
		if !ok {
			continue
		}
		name, _ := toolMap["name"].(string)
		names = append(names, name)
	}
	return names
}

// TestNewHandlerRequiresDeck verifies the deck service is mandatory.
func TestNewHandlerRequiresDeck(t *testing.T) {
	if _, err := NewHandler(Config{}, nil, nil); err == nil {
		t.Fatal("NewHandler(nil deck) error = nil, want error")
	}
}

// TestHandlerUsesStatelessTransport verifies MCP transport does not issue session ids.
func TestHandlerUsesStatelessTransport(t *testing.T) {
	handler, err := NewHandler(Config{}, &stubDeckService{}, nil)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, decoded := postJSONRPC(t, server.Client(), server.URL, initializeRequest())
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if decoded.ID != 1 {
		t.Fatalf("id = %v, want 1", decoded.ID)
	}
	if got := resp.Header.Get("Mcp-Session-Id"); got != "" {
		t.Fatalf("Mcp-Session-Id header = %q, want empty (stateless transport)", got)
	}
}

// TestHandlerRegistersDeckTools verifies saved tools only appear when a saved service is wired.
func TestHandlerRegistersDeckTools(t *testing.T) {
	names := listToolNames(t, startServer(t, &stubDeckService{}, nil))
	for _, required := range []string{"crave.deck_state", "crave.swipe", "crave.gesture", "crave.reload"} {
		if !slices.Contains(names, required) {
			t.Fatalf("tool list missing %s: %#v", required, names)
		}
	}
	if slices.Contains(names, "crave.list_saved") {
		t.Fatalf("unexpected saved tool without saved service: %#v", names)
	}

	names = listToolNames(t, startServer(t, &stubDeckService{}, &stubSavedService{}))
	for _, required := range []string{"crave.list_saved", "crave.get_recipe"} {
		if !slices.Contains(names, required) {
			t.Fatalf("tool list missing %s: %#v", required, names)
		}
	}
}

// TestDeckStateTool verifies deck state is returned as JSON text.
func TestDeckStateTool(t *testing.T) {
	deck := &stubDeckService{state: common.DeckState{StateHash: "abc123", Cursor: 2, Total: 5, Remaining: 3}}
	server := startServer(t, deck, nil)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "crave.deck_state", map[string]any{}))
	if isErr, _ := resp.Result["isError"].(bool); isErr {
		t.Fatalf("isError = true, result = %#v", resp.Result)
	}
	var got common.DeckState
	if err := json.Unmarshal([]byte(toolResultText(t, resp.Result)), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got.StateHash != "abc123" || got.Cursor != 2 || got.Remaining != 3 {
		t.Fatalf("state = %#v", got)
	}
}

// TestSwipeToolForwardsDirection verifies the direction argument reaches the deck.
func TestSwipeToolForwardsDirection(t *testing.T) {
	deck := &stubDeckService{result: common.ActionResult{Accepted: true, Outcome: "like"}}
	server := startServer(t, deck, nil)

	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "crave.swipe", map[string]any{"direction": "like"}))
	if isErr, _ := resp.Result["isError"].(bool); isErr {
		t.Fatalf("isError = true, result = %#v", resp.Result)
	}
	if deck.lastSwipe.Direction != "like" {
		t.Fatalf("direction = %q, want like", deck.lastSwipe.Direction)
	}
	if text := toolResultText(t, resp.Result); !strings.Contains(text, `"accepted":true`) {
		t.Fatalf("result text = %s, want accepted", text)
	}
}

// TestGestureToolParsesNumbers verifies numeric drag arguments and the optional index.
func TestGestureToolParsesNumbers(t *testing.T) {
	deck := &stubDeckService{result: common.ActionResult{Accepted: true}}
	server := startServer(t, deck, nil)

	_, _ = postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "crave.gesture", map[string]any{
		"phase": "update",
		"dx":    172.5,
		"dy":    -12,
	}))
	if deck.lastGesture.Phase != "update" || deck.lastGesture.DX != 172.5 || deck.lastGesture.DY != -12 {
		t.Fatalf("gesture = %#v", deck.lastGesture)
	}
	if deck.lastGesture.Index != nil {
		t.Fatalf("index = %v, want nil when omitted", *deck.lastGesture.Index)
	}

	_, _ = postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "crave.gesture", map[string]any{
		"phase": "begin",
		"index": 3,
	}))
	if deck.lastGesture.Index == nil || *deck.lastGesture.Index != 3 {
		t.Fatalf("index = %v, want 3", deck.lastGesture.Index)
	}
}

// TestGestureToolRequiresPhase verifies missing required arguments surface as tool errors.
func TestGestureToolRequiresPhase(t *testing.T) {
	server := startServer(t, &stubDeckService{}, nil)
	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "crave.gesture", map[string]any{"dx": 10}))
	if isErr, _ := resp.Result["isError"].(bool); !isErr {
		t.Fatalf("isError = false, want true: %#v", resp.Result)
	}
}

// TestReloadTool verifies reload reaches the deck service.
func TestReloadTool(t *testing.T) {
	deck := &stubDeckService{state: common.DeckState{Total: 8, Remaining: 8}}
	server := startServer(t, deck, nil)
	_, resp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "crave.reload", map[string]any{}))
	if isErr, _ := resp.Result["isError"].(bool); isErr {
		t.Fatalf("isError = true, result = %#v", resp.Result)
	}
	if deck.reloads != 1 {
		t.Fatalf("reloads = %d, want 1", deck.reloads)
	}
}

// TestSavedTools verifies list_saved and get_recipe payloads.
func TestSavedTools(t *testing.T) {
	recipe := domain.Recipe{ID: "shakshuka", Name: "Shakshuka"}
	saved := &stubSavedService{
		saved:   []domain.SavedRecipe{{ID: "s1", Recipe: recipe}},
		recipes: map[string]domain.Recipe{"shakshuka": recipe},
	}
	server := startServer(t, &stubDeckService{}, saved)

	_, listResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(3, "crave.list_saved", map[string]any{}))
	if text := toolResultText(t, listResp.Result); !strings.Contains(text, `"count":1`) {
		t.Fatalf("list_saved text = %s, want count 1", text)
	}

	_, getResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(4, "crave.get_recipe", map[string]any{"recipe_id": "shakshuka"}))
	if text := toolResultText(t, getResp.Result); !strings.Contains(text, "Shakshuka") {
		t.Fatalf("get_recipe text = %s, want recipe name", text)
	}

	_, missResp := postJSONRPC(t, server.Client(), server.URL, callToolRequest(5, "crave.get_recipe", map[string]any{"recipe_id": "nope"}))
	if text := toolResultText(t, missResp.Result); !strings.HasPrefix(text, "not_found:") {
		t.Fatalf("missing recipe text = %q, want not_found prefix", text)
	}
}

// TestToolResultFromErrorPrefixes verifies error classes map to stable prefixes.
func TestToolResultFromErrorPrefixes(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{err: fmt.Errorf("bad: %w", common.ErrInvalidRequest), want: "invalid_request:"},
		{err: fmt.Errorf("gone: %w", common.ErrNotFound), want: "not_found:"},
		{err: fmt.Errorf("down: %w", common.ErrUnavailable), want: "service_unavailable:"},
		{err: errors.New("boom"), want: "internal_error:"},
	}
	for _, tc := range tests {
		result := toolResultFromError(tc.err)
		if !result.IsError {
			t.Fatalf("IsError = false for %v", tc.err)
		}
		text, ok := result.Content[0].(mcp.TextContent)
		if !ok {
			t.Fatalf("content[0] has unexpected type %T", result.Content[0])
		}
		if !strings.HasPrefix(text.Text, tc.want) {
			t.Fatalf("text = %q, want prefix %q", text.Text, tc.want)
		}
	}
}

// TestNormalizeConfigDefaults verifies endpoint and name defaults.
func TestNormalizeConfigDefaults(t *testing.T) {
	cfg := normalizeConfig(Config{EndpointPath: "tools/mcp/"})
	if cfg.ServerName != "crave" || cfg.ServerVersion != "dev" {
		t.Fatalf("cfg = %#v", cfg)
	}
	if cfg.EndpointPath != "/tools/mcp" {
		t.Fatalf("endpoint = %q, want /tools/mcp", cfg.EndpointPath)
	}
}
