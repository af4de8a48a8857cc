// Package mcp exposes read-only planner operations as MCP tools over stdio.
package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wneill3333/neill-planner-sub008/internal/clock"
	"github.com/wneill3333/neill-planner-sub008/internal/legacy"
	"github.com/wneill3333/neill-planner-sub008/internal/materialize"
	"github.com/wneill3333/neill-planner-sub008/internal/migrate"
	"github.com/wneill3333/neill-planner-sub008/internal/preview"
	"github.com/wneill3333/neill-planner-sub008/internal/repo"
)

// Deps is what the tools run against.
type Deps struct {
	Docs        repo.DocumentStore
	Rules       *legacy.Validator
	Location    *time.Location
	HorizonDays int
	BatchSize   int
	Clock       clock.Clock
	Logger      *slog.Logger
}

// NewServer creates the MCP server. Every tool is read-only: migration and
// refresh only ever run in dry-run mode here.
func NewServer(version string, d Deps) *server.MCPServer {
	if d.Location == nil {
		d.Location = time.Local
	}
	s := server.NewMCPServer("planner", version)

	s.AddTool(mcp.NewTool("preview_occurrences",
		mcp.WithDescription("List the dates a recurrence rule selects in a window. Nothing is written."),
		mcp.WithString("rule", mcp.Description(`Recurrence as JSON, e.g. {"type":"weekly","daysOfWeek":[1,3]}`), mcp.Required()),
		mcp.WithString("anchor", mcp.Description("Anchor (pattern start) date, YYYY-MM-DD"), mcp.Required()),
		mcp.WithString("to", mcp.Description("Last date of the window, YYYY-MM-DD"), mcp.Required()),
		mcp.WithString("from", mcp.Description("First date of the window (defaults to anchor)")),
	), previewHandler(d))

	s.AddTool(mcp.NewTool("migration_dry_run",
		mcp.WithDescription("Report what migrating legacy recurring tasks would do. Nothing is written."),
		mcp.WithString("user_id", mcp.Description("Limit to one user (defaults to all users)")),
		mcp.WithNumber("horizon_days", mcp.Description("Days to materialize, today included")),
	), migrationDryRunHandler(d))

	s.AddTool(mcp.NewTool("refresh_dry_run",
		mcp.WithDescription("Report what advancing every pattern's horizon would create or unlink. Nothing is written."),
		mcp.WithString("user_id", mcp.Description("Limit to one user (defaults to all users)")),
		mcp.WithNumber("horizon_days", mcp.Description("Days to materialize, today included")),
	), refreshDryRunHandler(d))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func previewHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := preview.Occurrences(d.Rules, preview.Request{
			Rule:   mcp.ParseString(request, "rule", ""),
			Anchor: mcp.ParseString(request, "anchor", ""),
			From:   mcp.ParseString(request, "from", ""),
			To:     mcp.ParseString(request, "to", ""),
		}, d.Location)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func migrationDryRunHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		driver := migrate.New(d.Docs, d.Rules, migrate.Options{
			DryRun:      true,
			UserID:      mcp.ParseString(request, "user_id", ""),
			HorizonDays: mcp.ParseInt(request, "horizon_days", d.HorizonDays),
			BatchSize:   d.BatchSize,
			Location:    d.Location,
			Clock:       d.Clock,
			Logger:      d.Logger,
		})
		res, err := driver.Run(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return writeJSON(res.Report.WriteJSON)
	}
}

func refreshDryRunHandler(d Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		r := materialize.New(d.Docs, d.Rules, materialize.Options{
			DryRun:      true,
			UserID:      mcp.ParseString(request, "user_id", ""),
			HorizonDays: mcp.ParseInt(request, "horizon_days", d.HorizonDays),
			BatchSize:   d.BatchSize,
			Location:    d.Location,
			Clock:       d.Clock,
			Logger:      d.Logger,
		})
		rep, err := r.Run(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return writeJSON(rep.WriteJSON)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func writeJSON(write func(io.Writer) error) (*mcp.CallToolResult, error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(buf.String()), nil
}
