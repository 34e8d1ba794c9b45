package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-reliability/pkg/models"
	"github.com/ekaya-inc/ekaya-reliability/pkg/scoring"
	"github.com/ekaya-inc/ekaya-reliability/pkg/services"
)

// MCPActorService is recorded as the acting service for changes made over MCP
// when the caller does not name one.
const MCPActorService = "mcp"

// ReliabilityToolDeps contains the dependencies of the reliability tools.
type ReliabilityToolDeps struct {
	ReliabilityService services.ReliabilityService
	Logger             *zap.Logger
}

// fieldScoreArg is one element of the record_score_change "fields" argument.
type fieldScoreArg struct {
	Field    string   `json:"field"`
	Score    float64  `json:"score"`
	Weight   float64  `json:"weight"`
	MaxScore *float64 `json:"max_score"`
	Notes    *string  `json:"notes"`
}

// historyResult is the get_score_history payload.
type historyResult struct {
	Model      string                  `json:"model"`
	ForeignKey string                  `json:"foreign_key"`
	Entries    []services.LogEntryView `json:"entries"`
}

// fieldStatsResult is the get_field_stats payload.
type fieldStatsResult struct {
	Model string                      `json:"model"`
	Stats map[string]models.FieldStat `json:"stats"`
}

// RegisterReliabilityTools registers the scoring and audit log tools.
func RegisterReliabilityTools(s *server.MCPServer, deps *ReliabilityToolDeps) {
	registerScoreContentTool(s, deps)
	registerRecordScoreChangeTool(s, deps)
	registerVerifyLogChecksumTool(s, deps)
	registerGetFieldStatsTool(s, deps)
	registerGetScoreHistoryTool(s, deps)
}

// serviceFailure turns a service error into either an in-band tool error or
// a protocol error for system failures.
func serviceFailure(deps *ReliabilityToolDeps, tool string, err error) (*mcp.CallToolResult, error) {
	if result := ServiceErrorResult(err); result != nil {
		return result, nil
	}
	deps.Logger.Error("Reliability tool failed", zap.String("tool", tool), zap.Error(err))
	return nil, fmt.Errorf("%s failed: %w", tool, err)
}

func registerScoreContentTool(s *server.MCPServer, deps *ReliabilityToolDeps) {
	tool := mcp.NewTool(
		"score_content",
		mcp.WithDescription(
			"Scores unsaved entity data against the model's scoring profile without recording anything. "+
				"Returns the total score, completeness, a per-field breakdown and, when the score is low, "+
				"improvement suggestions."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name (e.g., 'Products')")),
		mcp.WithObject("data", mcp.Required(), mcp.Description("Entity field values keyed by field name")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		model, err := requireTrimmedString(req, "model")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		var data map[string]json.RawMessage
		present, err := decodeArgument(req, "data", &data)
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		if !present {
			return NewErrorResult("invalid_parameters", "data is required"), nil
		}

		score, err := deps.ReliabilityService.ComputeProvisionalScore(ctx, model, data)
		if err != nil {
			return serviceFailure(deps, "score_content", err)
		}
		return jsonResult(score)
	})
}

func registerRecordScoreChangeTool(s *server.MCPServer, deps *ReliabilityToolDeps) {
	tool := mcp.NewTool(
		"record_score_change",
		mcp.WithDescription(
			"Records a score change for one entity and appends a tamper-evident entry to its reliability log. "+
				"Pass either explicit field scores or raw entity data to be evaluated with the model's profile. "+
				"Fields not mentioned keep their previous scores."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name (e.g., 'Products')")),
		mcp.WithString("foreign_key", mcp.Required(), mcp.Description("Identifier of the entity within the model")),
		mcp.WithArray("fields",
			mcp.Description("Field scores to set. Scores are normally between 0 and 1."),
			mcp.Items(map[string]any{
				"type": "object",
				"properties": map[string]any{
					"field":     map[string]any{"type": "string", "description": "Field name"},
					"score":     map[string]any{"type": "number", "description": "Score between 0 and max_score"},
					"weight":    map[string]any{"type": "number", "description": "Relative weight, 0 or more"},
					"max_score": map[string]any{"type": "number", "description": "Maximum score (default 1)"},
					"notes":     map[string]any{"type": "string", "description": "Optional reviewer notes"},
				},
				"required": []string{"field", "score", "weight"},
			}),
		),
		mcp.WithObject("data", mcp.Description("Raw entity data to evaluate instead of explicit fields")),
		mcp.WithString("source", mcp.Description("One of user, ai, admin, system (default: ai)")),
		mcp.WithString("actor_service", mcp.Description("Name of the acting service (default: mcp)")),
		mcp.WithString("actor_user_id", mcp.Description("Acting user; mutually exclusive with actor_service")),
		mcp.WithString("message", mcp.Description("Optional note stored with the log entry")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		model, err := requireTrimmedString(req, "model")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		foreignKey, err := requireTrimmedString(req, "foreign_key")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		var fieldArgs []fieldScoreArg
		if _, err := decodeArgument(req, "fields", &fieldArgs); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		var data map[string]json.RawMessage
		if _, err := decodeArgument(req, "data", &data); err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		fields := make([]models.FieldScoreRecord, 0, len(fieldArgs))
		for _, f := range fieldArgs {
			maxScore := 1.0
			if f.MaxScore != nil {
				maxScore = *f.MaxScore
			}
			fields = append(fields, models.FieldScoreRecord{
				Field:    f.Field,
				Score:    f.Score,
				Weight:   f.Weight,
				MaxScore: maxScore,
				Notes:    f.Notes,
			})
		}

		var source models.Source
		if v := getOptionalString(req, "source"); v != nil {
			source = models.Source(*v)
		}

		ctx = models.WithServiceProvenance(ctx, models.SourceAI, MCPActorService)

		entry, err := deps.ReliabilityService.RecordScoreChange(ctx, &services.RecordScoreChangeRequest{
			Model:      model,
			ForeignKey: foreignKey,
			Fields:     fields,
			Data:       data,
			Source:     source,
			Actor: models.Actor{
				UserID:  getOptionalString(req, "actor_user_id"),
				Service: getOptionalString(req, "actor_service"),
			},
			Message: getOptionalString(req, "message"),
		})
		if err != nil {
			return serviceFailure(deps, "record_score_change", err)
		}
		return jsonResult(services.NewLogEntryView(entry))
	})
}

func registerVerifyLogChecksumTool(s *server.MCPServer, deps *ReliabilityToolDeps) {
	tool := mcp.NewTool(
		"verify_log_checksum",
		mcp.WithDescription(
			"Recomputes the checksum of one reliability log entry and compares it with the stored value. "+
				"checksum_valid is false when the entry was altered after it was written."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
		mcp.WithString("foreign_key", mcp.Required(), mcp.Description("Identifier of the entity within the model")),
		mcp.WithString("log_id", mcp.Required(), mcp.Description("ID of the log entry to verify")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		model, err := requireTrimmedString(req, "model")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		foreignKey, err := requireTrimmedString(req, "foreign_key")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		logID, err := requireTrimmedString(req, "log_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		result, err := deps.ReliabilityService.VerifyChecksum(ctx, model, foreignKey, logID)
		if err != nil {
			return serviceFailure(deps, "verify_log_checksum", err)
		}
		return jsonResult(result)
	})
}

func registerGetFieldStatsTool(s *server.MCPServer, deps *ReliabilityToolDeps) {
	tool := mcp.NewTool(
		"get_field_stats",
		mcp.WithDescription(
			"Returns per-field statistics across all entities of a model: how many entities carry "+
				"the field with their average, minimum and maximum score and average weight."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		model, err := requireTrimmedString(req, "model")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		stats, err := deps.ReliabilityService.GetFieldStats(ctx, model)
		if err != nil {
			return serviceFailure(deps, "get_field_stats", err)
		}
		return jsonResult(fieldStatsResult{Model: scoring.NormalizeModel(model), Stats: stats})
	})
}

func registerGetScoreHistoryTool(s *server.MCPServer, deps *ReliabilityToolDeps) {
	tool := mcp.NewTool(
		"get_score_history",
		mcp.WithDescription("Returns the most recent reliability log entries of one entity, newest first."),
		mcp.WithString("model", mcp.Required(), mcp.Description("Model name")),
		mcp.WithString("foreign_key", mcp.Required(), mcp.Description("Identifier of the entity within the model")),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum entries to return (default %d, max %d)",
				services.DefaultHistoryLimit, services.MaxHistoryLimit))),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		model, err := requireTrimmedString(req, "model")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		foreignKey, err := requireTrimmedString(req, "foreign_key")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		limit := req.GetInt("limit", 0)

		entries, err := deps.ReliabilityService.GetHistory(ctx, model, foreignKey, limit)
		if err != nil {
			return serviceFailure(deps, "get_score_history", err)
		}
		return jsonResult(historyResult{
			Model:      model,
			ForeignKey: foreignKey,
			Entries:    services.NewLogEntryViews(entries),
		})
	})
}
