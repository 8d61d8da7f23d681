package tools

// OutputLimits bounds tool output so a single call cannot flood the model
// context.
type OutputLimits struct {
	MaxLines   int   // Max lines for read_file (default 2000)
	MaxBytes   int64 // Max bytes per tool output (default 50KB)
	MaxResults int   // Max results for grep (default 100)
}

// DefaultOutputLimits returns the default output limits.
func DefaultOutputLimits() OutputLimits {
	return OutputLimits{
		MaxLines:   2000,
		MaxBytes:   50 * 1024,
		MaxResults: 100,
	}
}

// truncateBytes caps s at max bytes, appending a notice when content was
// dropped.
func truncateBytes(s string, max int64) string {
	if max <= 0 || int64(len(s)) <= max {
		return s
	}
	return s[:max] + "\n... [output truncated]"
}
