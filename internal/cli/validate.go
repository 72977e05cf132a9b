package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dual/doubletake/internal/category"
)

// ValidationResult holds schema validation results.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Records    []string `json:"records,omitempty"`
	Categories []string `json:"categories,omitempty"`
	Unknown    []string `json:"unknown_categories,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema-path>",
		Short: "Validate a CUE schema",
		Long: `Validate compiles a CUE schema file or directory and checks that every
@pii category it declares is registered. Catches schema errors before a
scrub run touches data.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(rootOpts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	loaded, err := LoadSchema(schemaPath)
	if err != nil {
		code := loadErrorCode(err)
		formatter.Error(code, err.Error(), nil)
		exitCode := ExitFailure
		if code == ErrCodeNotFound {
			exitCode = ExitCommandError
		}
		return WrapExitError(exitCode, code, err)
	}

	formatter.VerboseLog("Compiled %d CUE file(s) from %s", loaded.FileCount, schemaPath)

	result := ValidationResult{
		Valid:      true,
		Records:    loaded.Schema.Records(),
		Categories: loaded.Schema.Categories(),
	}

	reg := category.NewBuiltinRegistry(0)
	for _, tag := range result.Categories {
		if _, err := reg.Resolve(tag); err != nil {
			result.Unknown = append(result.Unknown, tag)
		}
	}

	if len(result.Unknown) > 0 {
		result.Valid = false
		msg := fmt.Sprintf("unregistered categories: %s", strings.Join(result.Unknown, ", "))
		formatter.Error(ErrCodeUnknownCategory, msg, result)
		return NewExitError(ExitFailure, msg)
	}

	if rootOpts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ Schema valid: %d record(s), %d categor(ies)",
		len(result.Records), len(result.Categories)))
}
