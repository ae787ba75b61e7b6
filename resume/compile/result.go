package compile

import "time"

// Status tracks a document through compilation.
type Status string

const (
	StatusPending              Status = "pending"
	StatusCompiling            Status = "compiling"
	StatusSucceeded            Status = "succeeded"
	StatusCompiledWithWarnings Status = "compiled_with_warnings"
	StatusFailed               Status = "failed"
	// StatusMarkupOnly is the degraded outcome: both attempts failed and the
	// caller gets the markup without a compiled file.
	StatusMarkupOnly Status = "markup_only"
)

// Compiled reports whether a compiled file is available.
func (s Status) Compiled() bool {
	return s == StatusSucceeded || s == StatusCompiledWithWarnings
}

// Result is the outcome of Compile. Markup is always the caller's input,
// unchanged, even when a retry compiled a reduced copy.
type Result struct {
	Status   Status
	Markup   string
	PDFPath  string
	Pages    int
	Attempts int
	// StrippedBlock names the block removed for the retry, if one was.
	StrippedBlock string
	Warnings      []string
	Log           string
	ExitCode      int
	TimedOut      bool
	Duration      time.Duration
}
