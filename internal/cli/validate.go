package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/settle/internal/parser"
)

// ValidationResult is the outcome of validating one batch file.
type ValidationResult struct {
	File    string   `json:"file"`
	Valid   bool     `json:"valid"`
	Updates int      `json:"updates"`
	Code    string   `json:"code,omitempty"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <batch-file>...",
		Short: "Check batch files without running them",
		Long: `Parse each batch file and check it against the update schema.

Reports every schema violation rather than stopping at the first, so a
batch can be fixed in one pass. Nothing is dispatched.

Examples:
  settle validate ./updates.json
  settle validate --format json ./a.yaml ./b.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	results := make([]ValidationResult, 0, len(files))
	var firstInvalid *ValidationResult
	for _, file := range files {
		formatter.VerboseLog("Validating %s", file)
		res := validateFile(file)
		results = append(results, res)
		if !res.Valid && firstInvalid == nil {
			firstInvalid = &results[len(results)-1]
		}
	}

	if formatter.JSON() {
		if firstInvalid != nil {
			_ = formatter.Failure(firstInvalid.Code, firstInvalid.Message, results)
		} else if err := formatter.Success(results); err != nil {
			return err
		}
	} else {
		writeValidationText(formatter, results)
	}

	if firstInvalid != nil {
		// Invalid input is a command-level error (exit code 2).
		return NewExitError(ExitCommandError,
			fmt.Sprintf("%s: %s: %s", firstInvalid.Code, firstInvalid.File, firstInvalid.Message))
	}
	return nil
}

func validateFile(file string) ValidationResult {
	updates, err := parser.ParseFile(file)
	if err == nil {
		return ValidationResult{File: file, Valid: true, Updates: len(updates)}
	}

	res := ValidationResult{File: file, Code: ErrCodeRunFailed, Message: err.Error()}
	var inputErr *parser.InputError
	if errors.As(err, &inputErr) {
		res.Code = inputErr.Code
		res.Message = inputErr.Message
		res.Errors = inputErr.Details
	}
	return res
}

func writeValidationText(formatter *OutputFormatter, results []ValidationResult) {
	w := formatter.Writer
	for _, res := range results {
		if res.Valid {
			fmt.Fprintf(w, "✓ %s (%d updates)\n", res.File, res.Updates)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", res.File)
		fmt.Fprintf(w, "  [%s] %s\n", res.Code, res.Message)
		for _, e := range res.Errors {
			fmt.Fprintf(w, "    - %s\n", e)
		}
	}
}
