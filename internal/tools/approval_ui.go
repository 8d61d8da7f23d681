package tools

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
)

// approvalOption pairs a menu entry with the outcome it resolves to. The
// pattern, when set, overrides the request's suggested pattern.
type approvalOption struct {
	label   string
	outcome ConfirmOutcome
	pattern string
}

// RunApprovalPrompt asks the user to decide an approval request on the
// terminal. It satisfies PromptFunc; callers release the live display
// before a prompt runs.
func RunApprovalPrompt(req *ApprovalRequest) (ConfirmOutcome, string) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return Cancel, ""
	}
	defer tty.Close()

	selected, err := selectApprovalOption(tty, req, buildApprovalOptions(req))
	if err != nil {
		return Cancel, ""
	}
	return selected.outcome, selected.pattern
}

// buildApprovalOptions derives the menu for a request. Shell requests
// offer pattern and exact-command approvals; write requests approve the
// directory. The remembered options only appear inside a git repository,
// where a project approvals file makes sense.
func buildApprovalOptions(req *ApprovalRequest) []approvalOption {
	if req.Command != "" {
		options := []approvalOption{
			{label: "Allow once", outcome: ProceedOnce},
			{
				label:   fmt.Sprintf("Allow %q for this session", req.Pattern),
				outcome: ProceedAlways,
				pattern: req.Pattern,
			},
			{
				label:   "Allow this exact command for this session",
				outcome: ProceedAlways,
				pattern: req.Command,
			},
		}
		if repo := DetectGitRepo("."); repo.IsRepo {
			options = append(options, approvalOption{
				label:   fmt.Sprintf("Allow %q in %s (remembered)", req.Pattern, repo.RepoName),
				outcome: ProceedAlwaysAndSave,
				pattern: req.Pattern,
			})
		}
		return append(options, approvalOption{label: "Deny", outcome: Cancel})
	}

	repo := DetectGitRepo(req.Path)
	dirLabel := req.Path
	if repo.IsRepo {
		if rel := RelativeToRoot(req.Path, repo.Root); rel != "." {
			dirLabel = rel
		}
	}
	options := []approvalOption{
		{label: "Allow once", outcome: ProceedOnce},
		{
			label:   fmt.Sprintf("Allow writes under %s for this session", dirLabel),
			outcome: ProceedAlways,
		},
	}
	if repo.IsRepo {
		options = append(options, approvalOption{
			label:   fmt.Sprintf("Allow writes in %s (remembered)", repo.RepoName),
			outcome: ProceedAlwaysAndSave,
		})
	}
	return append(options, approvalOption{label: "Deny", outcome: Cancel})
}

func selectApprovalOption(tty *os.File, req *ApprovalRequest, options []approvalOption) (approvalOption, error) {
	huhOptions := make([]huh.Option[int], 0, len(options))
	for i, opt := range options {
		huhOptions = append(huhOptions, huh.NewOption(opt.label, i))
	}

	var choice int
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title(req.Description).
				Options(huhOptions...).
				Value(&choice),
		),
	).WithShowHelp(false).WithInput(tty).WithOutput(tty)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return approvalOption{}, errAskCancelled
		}
		return approvalOption{}, err
	}
	return options[choice], nil
}
