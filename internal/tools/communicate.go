package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/samsaffron/term-agent/internal/llm"
)

// CommunicateTool lets the model send a short aside to the user while it
// keeps working. The result is the message itself; the display renders it
// as inline text instead of a result panel.
type CommunicateTool struct{}

// NewCommunicateTool creates a new CommunicateTool.
func NewCommunicateTool() *CommunicateTool {
	return &CommunicateTool{}
}

// CommunicateArgs are the arguments for communicate.
type CommunicateArgs struct {
	Message string `json:"message"`
}

func (t *CommunicateTool) Spec() llm.ToolSpec {
	return llm.ToolSpec{
		Name:        CommunicateToolName,
		Description: "Send a short progress note to the user while continuing to work. Use for status updates, not for the final answer.",
		Schema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The note to show the user",
				},
			},
			"required":             []string{"message"},
			"additionalProperties": false,
		},
	}
}

func (t *CommunicateTool) Preview(args json.RawMessage) string {
	var a CommunicateArgs
	if err := json.Unmarshal(args, &a); err != nil || a.Message == "" {
		return ""
	}
	first := a.Message
	if idx := strings.IndexByte(first, '\n'); idx >= 0 {
		first = first[:idx]
	}
	return previewEllipsis(first, 60)
}

func (t *CommunicateTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var a CommunicateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return "", NewToolError(ErrInvalidParams, err.Error())
	}
	if a.Message == "" {
		return "", NewToolError(ErrInvalidParams, "message is required")
	}
	warning := WarnUnknownParams(args, "message")
	return warning + a.Message, nil
}
