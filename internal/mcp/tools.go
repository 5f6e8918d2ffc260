package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/keybrdist/makiso/internal/core"
	"github.com/keybrdist/makiso/internal/db"
	"github.com/keybrdist/makiso/internal/types"
	mcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolContext provides shared tool resources.
type ToolContext struct {
	Agent  string
	DB     *sql.DB
	Config *core.Config
}

type pushArgs struct {
	Topic    string `json:"topic" jsonschema:"Topic to publish to."`
	Body     string `json:"body" jsonschema:"Event body. Supports @mentions like @alice."`
	Metadata string `json:"metadata,omitempty" jsonschema:"Optional JSON metadata attached to the event."`
}

type pullArgs struct {
	Topic     string `json:"topic" jsonschema:"Topic to claim from."`
	Handoff   bool   `json:"handoff,omitempty" jsonschema:"Only claim events addressed to the recipient."`
	Recipient string `json:"recipient,omitempty" jsonschema:"Handoff recipient (default: this agent)."`
}

type replyArgs struct {
	EventID string `json:"event_id" jsonschema:"Event to resolve."`
	Body    string `json:"body" jsonschema:"Reply body."`
	Status  string `json:"status,omitempty" jsonschema:"Resolution status: completed (default) or failed."`
}

type searchArgs struct {
	Query string `json:"query" jsonschema:"Full-text query over event bodies."`
	Limit int    `json:"limit,omitempty" jsonschema:"Maximum results (default: 10)."`
}

// RegisterTools registers the queue tools on the MCP server.
func RegisterTools(server *mcp.Server, ctx *ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "makiso_push",
		Description: "Publish an event to a topic on the shared queue.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args pushArgs) (*mcp.CallToolResult, any, error) {
		return handlePush(*ctx, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "makiso_pull",
		Description: "Claim the next pending event on a topic. Each event is delivered to exactly one claimant.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args pullArgs) (*mcp.CallToolResult, any, error) {
		return handlePull(*ctx, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "makiso_reply",
		Description: "Resolve a claimed event and publish a correlated reply.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args replyArgs) (*mcp.CallToolResult, any, error) {
		return handleReply(*ctx, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "makiso_search",
		Description: "Full-text search over event bodies.",
	}, func(_ context.Context, _ *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
		return handleSearch(*ctx, args), nil, nil
	})
}

func toolScope(ctx ToolContext) (types.Scope, error) {
	return db.ResolveScope(ctx.DB, ctx.Config, types.ScopeOverrides{}, core.NoProbe{}, ".")
}

func handlePush(ctx ToolContext, args pushArgs) *mcp.CallToolResult {
	if strings.TrimSpace(args.Body) == "" {
		return toolError("Error: event body cannot be empty")
	}
	if args.Topic == "" {
		return toolError("Error: topic is required")
	}

	scope, err := toolScope(ctx)
	if err != nil {
		return toolError(err.Error())
	}

	input := types.NewEventInput{
		Topic:  args.Topic,
		Body:   strings.TrimSpace(args.Body),
		Source: ctx.Agent,
		Scope:  scope,
	}
	if args.Metadata != "" {
		input.Metadata = &args.Metadata
	}

	event, indexErr, err := db.PublishEvent(ctx.DB, input)
	if err != nil {
		return toolError(err.Error())
	}
	if indexErr != nil {
		logf("indexing failed for %s: %v", event.ID, indexErr)
	}
	core.TouchTrigger(ctx.Config.TriggerPath())

	return toolResult(fmt.Sprintf("Pushed %s to %s", event.ID, event.Topic), false)
}

func handlePull(ctx ToolContext, args pullArgs) *mcp.CallToolResult {
	if args.Topic == "" {
		return toolError("Error: topic is required")
	}

	scope, err := toolScope(ctx)
	if err != nil {
		return toolError(err.Error())
	}

	opts := types.ClaimOptions{Topic: args.Topic, Agent: ctx.Agent, Scope: scope}

	var event *types.Event
	if args.Handoff {
		recipient := args.Recipient
		if recipient == "" {
			recipient = ctx.Agent
		}
		event, err = db.ClaimNextHandoffEvent(ctx.DB, types.HandoffClaimOptions{
			ClaimOptions: opts,
			Recipient:    recipient,
		})
	} else {
		event, err = db.ClaimNextEvent(ctx.DB, opts)
	}
	if err != nil {
		return toolError(err.Error())
	}
	if event == nil {
		return toolResult("No pending events.", false)
	}

	claimed := types.ClaimedEvent{Event: *event}
	if topic, err := db.GetTopicByName(ctx.DB, event.Topic); err == nil && topic != nil {
		claimed.SystemPrompt = topic.SystemPrompt
	}

	payload, err := json.Marshal(claimed)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(string(payload), false)
}

func handleReply(ctx ToolContext, args replyArgs) *mcp.CallToolResult {
	if args.EventID == "" || strings.TrimSpace(args.Body) == "" {
		return toolError("Error: event_id and body are required")
	}
	status := types.EventStatus(args.Status)
	if args.Status == "" {
		status = types.StatusCompleted
	}
	if !status.IsValid() {
		return toolError(fmt.Sprintf("Error: invalid status: %s", args.Status))
	}

	original, err := db.GetEvent(ctx.DB, args.EventID)
	if err != nil {
		return toolError(err.Error())
	}
	if original == nil {
		return toolError(fmt.Sprintf("Error: event not found: %s", args.EventID))
	}

	if _, err := db.UpdateEventStatus(ctx.DB, original.ID, status, nil); err != nil {
		return toolError(err.Error())
	}

	correlationID := original.ID
	if original.CorrelationID != nil {
		correlationID = *original.CorrelationID
	}
	orgID := core.DefaultOrg
	if original.OrgID != nil {
		orgID = *original.OrgID
	}

	reply, indexErr, err := db.PublishEvent(ctx.DB, types.NewEventInput{
		Topic:         original.Topic,
		Body:          strings.TrimSpace(args.Body),
		CorrelationID: &correlationID,
		ParentID:      &original.ID,
		Source:        ctx.Agent,
		Scope: types.Scope{
			OrgID:       orgID,
			WorkspaceID: original.WorkspaceID,
			ProjectID:   original.ProjectID,
			RepoID:      original.RepoID,
		},
	})
	if err != nil {
		return toolError(err.Error())
	}
	if indexErr != nil {
		logf("indexing failed for %s: %v", reply.ID, indexErr)
	}
	core.TouchTrigger(ctx.Config.TriggerPath())

	return toolResult(fmt.Sprintf("Marked %s %s, replied as %s", original.ID, status, reply.ID), false)
}

func handleSearch(ctx ToolContext, args searchArgs) *mcp.CallToolResult {
	if strings.TrimSpace(args.Query) == "" {
		return toolError("Error: query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	scope, err := toolScope(ctx)
	if err != nil {
		return toolError(err.Error())
	}

	events, err := db.SearchEvents(ctx.DB, args.Query, &scope, "", false)
	if err != nil {
		return toolError(err.Error())
	}
	if len(events) > limit {
		events = events[:limit]
	}
	if len(events) == 0 {
		return toolResult("No matches.", false)
	}

	payload, err := json.Marshal(events)
	if err != nil {
		return toolError(err.Error())
	}
	return toolResult(string(payload), false)
}

func toolResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func toolError(text string) *mcp.CallToolResult {
	return toolResult(text, true)
}
