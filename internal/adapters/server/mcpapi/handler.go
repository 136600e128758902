// Package mcpapi provides a stateless MCP streamable-HTTP adapter.
package mcpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/evanschultz/crave/internal/adapters/server/common"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Config captures MCP transport configuration.
type Config struct {
	ServerName    string
	ServerVersion string
	EndpointPath  string
}

// Handler wraps one stateless MCP streamable HTTP handler.
type Handler struct {
	httpHandler http.Handler
}

// NewHandler builds one stateless MCP adapter with deck tools and optional saved-collection tools.
func NewHandler(cfg Config, deck common.DeckService, saved common.SavedService) (*Handler, error) {
	if deck == nil {
		return nil, fmt.Errorf("deck service is required")
	}
	cfg = normalizeConfig(cfg)

	mcpSrv := mcpserver.NewMCPServer(
		cfg.ServerName,
		cfg.ServerVersion,
		mcpserver.WithToolCapabilities(false),
	)
	registerDeckTools(mcpSrv, deck)
	if saved != nil {
		registerSavedTools(mcpSrv, saved)
	}

	streamable := mcpserver.NewStreamableHTTPServer(
		mcpSrv,
		mcpserver.WithEndpointPath(cfg.EndpointPath),
		mcpserver.WithStateLess(true),
	)
	return &Handler{httpHandler: streamable}, nil
}

// ServeHTTP handles one MCP streamable HTTP request.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.httpHandler == nil {
		http.Error(w, "mcp handler unavailable", http.StatusServiceUnavailable)
		return
	}
	h.httpHandler.ServeHTTP(w, r)
}

// normalizeConfig applies deterministic defaults to MCP adapter config.
func normalizeConfig(cfg Config) Config {
	cfg.ServerName = strings.TrimSpace(cfg.ServerName)
	if cfg.ServerName == "" {
		cfg.ServerName = "crave"
	}
	cfg.ServerVersion = strings.TrimSpace(cfg.ServerVersion)
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	cfg.EndpointPath = strings.TrimSpace(cfg.EndpointPath)
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/mcp"
	}
	cfg.EndpointPath = "/" + strings.Trim(cfg.EndpointPath, "/")
	return cfg
}

// registerDeckTools registers the deck read, swipe, gesture, and reload tools.
func registerDeckTools(srv *mcpserver.MCPServer, deck common.DeckService) {
	srv.AddTool(
		mcp.NewTool(
			"crave.deck_state",
			mcp.WithDescription("Return the current swipe deck: cursor, visible cards with their stacked visuals, and the drag pose."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := deck.DeckState(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("deck_state", state)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"crave.swipe",
			mcp.WithDescription("Like or skip the top card, as if the corresponding button was pressed."),
			mcp.WithString("direction", mcp.Required(), mcp.Description("like or skip"), mcp.Enum(common.DirectionLike, common.DirectionSkip)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			direction, err := req.RequireString("direction")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			result, err := deck.Swipe(ctx, common.SwipeRequest{Direction: direction})
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("swipe", result)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"crave.gesture",
			mcp.WithDescription("Feed one drag event to the top card. A drag ending beyond 150 units horizontally commits the card."),
			mcp.WithString("phase", mcp.Required(), mcp.Description("begin, update, or end"), mcp.Enum(common.PhaseBegin, common.PhaseUpdate, common.PhaseEnd)),
			mcp.WithNumber("dx", mcp.Description("Horizontal translation since the drag began")),
			mcp.WithNumber("dy", mcp.Description("Vertical translation since the drag began")),
			mcp.WithNumber("index", mcp.Description("Card index a begin event binds to; defaults to the top card")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			phase, err := req.RequireString("phase")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			gesture := common.GestureRequest{
				Phase: phase,
				DX:    req.GetFloat("dx", 0),
				DY:    req.GetFloat("dy", 0),
			}
			if _, ok := req.GetArguments()["index"]; ok {
				index := req.GetInt("index", 0)
				gesture.Index = &index
			}
			result, err := deck.Gesture(ctx, gesture)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("gesture", result)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"crave.reload",
			mcp.WithDescription("Reload the feed from the catalog and restart the deck at the first card."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := deck.Reload(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("reload", state)
		},
	)
}

// registerSavedTools registers saved-collection and recipe lookup tools.
func registerSavedTools(srv *mcpserver.MCPServer, saved common.SavedService) {
	srv.AddTool(
		mcp.NewTool(
			"crave.list_saved",
			mcp.WithDescription("List liked recipes in the order they were saved."),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			items, err := saved.ListSaved(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("list_saved", map[string]any{
				"items": items,
				"count": len(items),
			})
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"crave.get_recipe",
			mcp.WithDescription("Return one catalog recipe by id."),
			mcp.WithString("recipe_id", mcp.Required(), mcp.Description("Recipe identifier")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			recipeID, err := req.RequireString("recipe_id")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			recipe, err := saved.GetRecipe(ctx, recipeID)
			if err != nil {
				return toolResultFromError(err), nil
			}
			return jsonResult("get_recipe", recipe)
		},
	)
}

// jsonResult encodes one tool payload as structured JSON content.
func jsonResult(tool string, payload any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s result: %w", tool, err)
	}
	return result, nil
}

// toolResultFromError maps adapter errors onto stable tool error prefixes.
func toolResultFromError(err error) *mcp.CallToolResult {
	switch {
	case err == nil:
		return mcp.NewToolResultError("unknown error")
	case errors.Is(err, common.ErrInvalidRequest):
		return mcp.NewToolResultError("invalid_request: " + err.Error())
	case errors.Is(err, common.ErrNotFound):
		return mcp.NewToolResultError("not_found: " + err.Error())
	case errors.Is(err, common.ErrUnavailable):
		return mcp.NewToolResultError("service_unavailable: " + err.Error())
	default:
		return mcp.NewToolResultError("internal_error: " + err.Error())
	}
}
