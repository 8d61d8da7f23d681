package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func mustMarshalAskArgs(t *testing.T, args AskUserArgs) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("marshal args: %v", err)
	}
	return data
}

func TestAskUserTool_Spec(t *testing.T) {
	tool := NewAskUserTool()
	spec := tool.Spec()

	if spec.Name != AskUserToolName {
		t.Errorf("expected name %q, got %q", AskUserToolName, spec.Name)
	}
	required, ok := spec.Schema["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "question" {
		t.Errorf("expected required [question], got %v", spec.Schema["required"])
	}
}

func TestAskUserTool_Preview(t *testing.T) {
	tool := NewAskUserTool()

	if got := tool.Preview(mustMarshalAskArgs(t, AskUserArgs{Question: "Which database?"})); got != "Which database?" {
		t.Errorf("expected question preview, got %q", got)
	}

	long := strings.Repeat("q", 70)
	got := tool.Preview(mustMarshalAskArgs(t, AskUserArgs{Question: long}))
	if len(got) != 60 || !strings.HasSuffix(got, "...") {
		t.Errorf("expected 60 char preview ending in ellipsis, got %q (%d)", got, len(got))
	}
}

func TestAskUserTool_ChoicesPassedToUI(t *testing.T) {
	var gotQuestion string
	var gotChoices []string
	SetAskUserUI(func(question string, choices []string) (string, error) {
		gotQuestion = question
		gotChoices = choices
		return "Blue", nil
	})
	defer SetAskUserUI(nil)

	tool := NewAskUserTool()
	result, err := tool.Execute(context.Background(), mustMarshalAskArgs(t, AskUserArgs{
		Question: "Favorite color?",
		Choices:  []string{"Red", "Blue"},
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result != "Blue" {
		t.Errorf("expected answer passed through, got %q", result)
	}
	if gotQuestion != "Favorite color?" {
		t.Errorf("unexpected question %q", gotQuestion)
	}
	if len(gotChoices) != 2 || gotChoices[0] != "Red" || gotChoices[1] != "Blue" {
		t.Errorf("unexpected choices %v", gotChoices)
	}
}

func TestAskUserTool_FreeText(t *testing.T) {
	SetAskUserUI(func(question string, choices []string) (string, error) {
		if choices != nil {
			t.Errorf("expected no choices for free text, got %v", choices)
		}
		return "use postgres 16", nil
	})
	defer SetAskUserUI(nil)

	tool := NewAskUserTool()
	result, err := tool.Execute(context.Background(), mustMarshalAskArgs(t, AskUserArgs{
		Question: "Which version?",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "use postgres 16" {
		t.Errorf("expected typed answer, got %q", result)
	}
}

func TestAskUserTool_Cancelled(t *testing.T) {
	SetAskUserUI(func(question string, choices []string) (string, error) {
		return "", errAskCancelled
	})
	defer SetAskUserUI(nil)

	tool := NewAskUserTool()
	_, err := tool.Execute(context.Background(), mustMarshalAskArgs(t, AskUserArgs{
		Question: "Proceed?",
	}))
	if err == nil || !strings.Contains(err.Error(), "user cancelled the question") {
		t.Errorf("expected cancellation error, got %v", err)
	}
}

func TestAskUserTool_Validation(t *testing.T) {
	tool := NewAskUserTool()

	tests := []struct {
		name string
		args AskUserArgs
		want string
	}{
		{"missing question", AskUserArgs{}, "question is required"},
		{
			"single choice",
			AskUserArgs{Question: "?", Choices: []string{"only"}},
			"choices needs at least two entries",
		},
		{
			"too many choices",
			AskUserArgs{Question: "?", Choices: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"}},
			"maximum 8 choices allowed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tool.Execute(context.Background(), mustMarshalAskArgs(t, tt.args))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
