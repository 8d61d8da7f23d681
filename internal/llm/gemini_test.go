package llm

import (
	"encoding/json"
	"testing"

	"google.golang.org/genai"
)

func TestBuildGeminiContents_ToolRoundTrip(t *testing.T) {
	sig := []byte("thought-sig")
	system, contents := buildGeminiContents([]Message{
		SystemText("Be helpful."),
		UserText("Run shell"),
		{
			Role: RoleAssistant,
			Parts: []Part{
				{Type: PartText, Text: "Working"},
				{
					Type: PartToolCall,
					ToolCall: &ToolCall{
						ID:         "call-1",
						Name:       "shell",
						Arguments:  []byte(`{"command":"ls"}`),
						ThoughtSig: sig,
					},
				},
			},
		},
		{
			Role: RoleTool,
			Parts: []Part{
				{Type: PartToolResult, ToolResult: &ToolResult{
					ID:         "call-1",
					Name:       "shell",
					Content:    "go.mod\n(exit code: 0)",
					ThoughtSig: sig,
				}},
			},
		},
	})

	if system != "Be helpful." {
		t.Errorf("system = %q", system)
	}
	if len(contents) != 3 {
		t.Fatalf("expected 3 contents, got %d", len(contents))
	}

	assistant := contents[1]
	if assistant.Role != genai.RoleModel {
		t.Fatalf("expected role model, got %q", assistant.Role)
	}
	var call *genai.FunctionCall
	for _, part := range assistant.Parts {
		if part.FunctionCall != nil {
			call = part.FunctionCall
			if string(part.ThoughtSignature) != "thought-sig" {
				t.Errorf("thought signature not carried on function call part")
			}
		}
	}
	if call == nil {
		t.Fatal("expected function call part")
	}
	if call.Args["command"] != "ls" {
		t.Errorf("args = %v", call.Args)
	}

	result := contents[2]
	if result.Role != genai.RoleUser {
		t.Fatalf("tool results must be sent with the user role, got %q", result.Role)
	}
	var resp *genai.FunctionResponse
	for _, part := range result.Parts {
		if part.FunctionResponse != nil {
			resp = part.FunctionResponse
			if string(part.ThoughtSignature) != "thought-sig" {
				t.Errorf("thought signature not carried on function response part")
			}
		}
	}
	if resp == nil {
		t.Fatal("expected function response part")
	}
	if resp.Response["output"] != "go.mod\n(exit code: 0)" {
		t.Errorf("response output = %v", resp.Response["output"])
	}
}

func TestToolArgsToMap(t *testing.T) {
	args := toolArgsToMap(json.RawMessage(`{"path":"go.mod"}`))
	if args["path"] != "go.mod" {
		t.Errorf("args = %v", args)
	}

	if args := toolArgsToMap(nil); args != nil {
		t.Errorf("expected nil for empty args, got %v", args)
	}

	// Invalid JSON falls back to a raw wrapper instead of dropping data.
	args = toolArgsToMap(json.RawMessage(`not json`))
	if args["_raw"] != "not json" {
		t.Errorf("fallback args = %v", args)
	}
}

func TestGeminiSchema(t *testing.T) {
	schema := geminiSchema(map[string]interface{}{
		"type":        "object",
		"description": "shell params",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "command to run",
			},
			"timeout": map[string]interface{}{
				"type":    "integer",
				"format":  "int32",
				"minimum": 1,
			},
		},
	})

	if schema.Type != genai.TypeObject {
		t.Errorf("type = %v", schema.Type)
	}
	if len(schema.Properties) != 2 {
		t.Fatalf("expected 2 properties, got %d", len(schema.Properties))
	}
	if schema.Properties["command"].Type != genai.TypeString {
		t.Errorf("command type = %v", schema.Properties["command"].Type)
	}
	if schema.Properties["timeout"].Type != genai.TypeInteger {
		t.Errorf("timeout type = %v", schema.Properties["timeout"].Type)
	}
	// Gemini wants every declared property required.
	if len(schema.Required) != 2 {
		t.Errorf("required = %v, want both properties", schema.Required)
	}
}

func TestGeminiSchemaNil(t *testing.T) {
	schema := geminiSchema(nil)
	if schema.Type != genai.TypeString {
		t.Errorf("nil schema should default to string, got %v", schema.Type)
	}
}
