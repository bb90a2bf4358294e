package generation

import (
	"context"
	"encoding/json"
)

// ToolType names a content-generation tool.
type ToolType string

const (
	ToolBlogPost    ToolType = "blog_post"
	ToolTagline     ToolType = "tagline"
	ToolProductCopy ToolType = "product_copy"
	ToolSocialPost  ToolType = "social_post"
)

// ValidTool reports whether the tool type is recognized.
func ValidTool(t ToolType) bool {
	switch t {
	case ToolBlogPost, ToolTagline, ToolProductCopy, ToolSocialPost:
		return true
	}
	return false
}

// ProviderRequest is the payload sent to the upstream model provider.
type ProviderRequest struct {
	ToolType ToolType        `json:"tool_type"`
	Language string          `json:"language"`
	Input    json.RawMessage `json:"input"`
}

// ProviderResult is the provider's successful response.
type ProviderResult struct {
	Content   string `json:"content"`
	Model     string `json:"model"`
	LatencyMs int64  `json:"latency_ms"`
}

// Provider is the upstream model provider contract.
// Implementations must honor ctx cancellation and deadlines.
type Provider interface {
	Generate(ctx context.Context, req *ProviderRequest) (*ProviderResult, error)
}
