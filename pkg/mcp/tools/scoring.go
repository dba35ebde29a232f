package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/sqleval/pkg/models"
)

// Evaluator is the scoring surface used by the tools.
type Evaluator interface {
	ScorePair(ctx context.Context, sample models.Sample) models.SampleResult
	Canonicalize(dbID, sqlQuery string) (*models.Query, error)
	Databases() []string
}

type canonicalizeResult struct {
	DBID  string        `json:"db_id"`
	Query *models.Query `json:"query"`
}

// RegisterScoringTools adds compare_sql and canonicalize_sql.
func RegisterScoringTools(s *server.MCPServer, eval Evaluator) {
	registerCompareTool(s, eval)
	registerCanonicalizeTool(s, eval)
}

func registerCompareTool(s *server.MCPServer, eval Evaluator) {
	tool := mcp.NewTool(
		"compare_sql",
		mcp.WithDescription(
			"Scores a predicted SQL query against a gold query clause by clause. "+
				"Returns precision, recall and F1 per clause plus an exact-match flag. "+
				"Both queries must be SELECT statements over the named database."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("db_id", mcp.Required(), mcp.Description("Database id whose schema resolves both queries")),
		mcp.WithString("gold", mcp.Required(), mcp.Description("Reference SQL")),
		mcp.WithString("predicted", mcp.Required(), mcp.Description("SQL to score")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sample := models.Sample{}
		var err error
		if sample.DBID, err = req.RequireString("db_id"); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if sample.Gold, err = req.RequireString("gold"); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if sample.Predicted, err = req.RequireString("predicted"); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		result := eval.ScorePair(ctx, sample)
		if result.Failed() {
			details := map[string]any{"side": result.Side}
			if result.ErrorKind == "unknown_database" {
				details["databases"] = eval.Databases()
			}
			return NewErrorResultWithDetails(result.ErrorKind, result.Error, details), nil
		}

		out, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal compare result: %w", err)
		}
		return mcp.NewToolResultText(string(out)), nil
	})
}

func registerCanonicalizeTool(s *server.MCPServer, eval Evaluator) {
	tool := mcp.NewTool(
		"canonicalize_sql",
		mcp.WithDescription(
			"Parses a SELECT statement and returns its canonical, schema-resolved form "+
				"with tables and columns replaced by their schema ids."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithString("db_id", mcp.Required(), mcp.Description("Database id whose schema resolves the query")),
		mcp.WithString("sql", mcp.Required(), mcp.Description("SQL to canonicalize")),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbID, err := req.RequireString("db_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		sqlQuery, err := req.RequireString("sql")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		q, err := eval.Canonicalize(dbID, sqlQuery)
		if err != nil {
			if IsUserError(err) {
				return NewErrorResultFromErr(err, nil), nil
			}
			return nil, err
		}

		out, err := json.Marshal(canonicalizeResult{DBID: dbID, Query: q})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal canonical query: %w", err)
		}
		return mcp.NewToolResultText(string(out)), nil
	})
}
