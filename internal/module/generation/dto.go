package generation

import "encoding/json"

// GenerateRequest is the inbound payload for POST /generate.
type GenerateRequest struct {
	ToolType string          `json:"tool_type" binding:"required"`
	Language string          `json:"language"`
	Input    json.RawMessage `json:"input" binding:"required"`
}
