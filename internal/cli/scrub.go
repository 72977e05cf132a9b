package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dual/doubletake/internal/classify"
	"github.com/dual/doubletake/internal/schema"
	"github.com/dual/doubletake/internal/session"
	"github.com/dual/doubletake/internal/store"
	"github.com/dual/doubletake/internal/synth"
)

// ScrubOptions holds flags for the scrub command.
type ScrubOptions struct {
	SchemaPath   string
	RecordType   string
	Overrides    []string
	Seed         uint64
	Locale       string
	CachePath    string
	MaxDepth     int
	PatternsPath string
	OutputPath   string
}

// scrubResponse is the JSON payload of a successful scrub.
type scrubResponse struct {
	Output json.RawMessage `json:"output"`
	Audit  session.Audit   `json:"audit"`
}

// NewScrubCommand creates the scrub command.
func NewScrubCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScrubOptions{}

	cmd := &cobra.Command{
		Use:   "scrub <input-file>",
		Short: "Scrub PII out of a JSON dataset",
		Long: `Scrub reads a JSON document, replaces every classified field value with
a synthetic substitute, and writes the scrubbed document. Pass "-" to
read from stdin.

Fields are classified by --override flags, by @pii attributes in the
schema (--schema with --record), and by field-name heuristics, in that
order of precedence. Identical originals map to identical substitutes
within one invocation; add --cache to extend that guarantee across
invocations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrub(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.SchemaPath, "schema", "", "CUE schema file or directory")
	cmd.Flags().StringVar(&opts.RecordType, "record", "", "record type the input conforms to")
	cmd.Flags().StringArrayVar(&opts.Overrides, "override", nil, "field=category override (repeatable; empty category suppresses)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "seed for reproducible synthesis (0 = random)")
	cmd.Flags().StringVar(&opts.Locale, "locale", "", "default locale for synthesized values")
	cmd.Flags().StringVar(&opts.CachePath, "cache", "", "sqlite cache path for cross-invocation consistency")
	cmd.Flags().IntVar(&opts.MaxDepth, "max-depth", 0, "traversal depth bound (0 = default)")
	cmd.Flags().StringVar(&opts.PatternsPath, "patterns", "", "YAML file of extra field-name heuristics")
	cmd.Flags().StringVarP(&opts.OutputPath, "output", "o", "", "output file (default stdout)")
	cmd.MarkFlagsRequiredTogether("schema", "record")

	return cmd
}

func runScrub(rootOpts *RootOptions, opts *ScrubOptions, inputPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	input, err := readInput(inputPath, cmd.InOrStdin())
	if err != nil {
		formatter.Error(ErrCodeNotFound, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading input", err)
	}

	overrides, err := parseOverrides(opts.Overrides)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "parsing overrides", err)
	}

	var sch *schema.Schema
	if opts.SchemaPath != "" {
		loaded, err := LoadSchema(opts.SchemaPath)
		if err != nil {
			formatter.Error(loadErrorCode(err), err.Error(), nil)
			return WrapExitError(ExitCommandError, "loading schema", err)
		}
		formatter.VerboseLog("Loaded %d CUE file(s) from %s", loaded.FileCount, opts.SchemaPath)
		sch = loaded.Schema
	}

	sessionOpts, err := buildSessionOptions(opts)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "configuring session", err)
	}

	s, err := session.New(sessionOpts...)
	if err != nil {
		formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "opening session", err)
	}
	defer s.Close()

	formatter.VerboseLog("Session %s scrubbing %s", s.ID(), inputPath)

	out, audit, err := s.ScrubJSON(cmd.Context(), input, sch, opts.RecordType, overrides)
	if err != nil {
		code := MapScrubError(err)
		if code == ErrCodeGeneric && isDecodeError(err) {
			code = ErrCodeInvalidInput
		}
		formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitFailure, "scrub failed", err)
	}

	formatter.VerboseLog("Substituted %d value(s) across %d categories", audit.Total, len(audit.Substitutions))

	if opts.OutputPath != "" {
		if err := os.WriteFile(opts.OutputPath, append(out, '\n'), 0o644); err != nil {
			formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "writing output", err)
		}
		return formatter.Success(fmt.Sprintf("Scrubbed %d value(s), output written to %s", audit.Total, opts.OutputPath))
	}

	if rootOpts.Format == "json" {
		payload, err := json.Marshal(scrubResponse{Output: json.RawMessage(out), Audit: *audit})
		if err != nil {
			return WrapExitError(ExitCommandError, "encoding response", err)
		}
		return formatter.SuccessJSON(payload)
	}
	return formatter.SuccessJSON(out)
}

// buildSessionOptions translates flags into session options. The
// locale is validated and the patterns file loaded before the sqlite
// backend opens, so a flag error cannot leak an open store (the session
// closes the backend once it owns it).
func buildSessionOptions(opts *ScrubOptions) ([]session.Option, error) {
	var sessionOpts []session.Option

	if opts.Seed != 0 {
		sessionOpts = append(sessionOpts, session.WithSeed(opts.Seed))
	}
	if opts.Locale != "" {
		if err := synth.ValidateLocale(opts.Locale); err != nil {
			return nil, err
		}
		sessionOpts = append(sessionOpts, session.WithLocale(opts.Locale))
	}
	if opts.MaxDepth > 0 {
		sessionOpts = append(sessionOpts, session.WithMaxDepth(opts.MaxDepth))
	}
	if opts.PatternsPath != "" {
		patterns, err := classify.LoadPatterns(opts.PatternsPath)
		if err != nil {
			return nil, err
		}
		sessionOpts = append(sessionOpts, session.WithPatterns(patterns))
	}
	if opts.CachePath != "" {
		st, err := store.Open(opts.CachePath)
		if err != nil {
			return nil, err
		}
		sessionOpts = append(sessionOpts, session.WithCacheBackend(st))
	}
	return sessionOpts, nil
}

// parseOverrides turns repeated "field=category" flags into the
// override map. "field=" (empty category) suppresses classification.
func parseOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		field, tag, found := strings.Cut(pair, "=")
		if !found || field == "" {
			return nil, fmt.Errorf("invalid override %q: expected field=category", pair)
		}
		overrides[field] = tag
	}
	return overrides, nil
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func loadErrorCode(err error) string {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code
	}
	return ErrCodeGeneric
}

func isDecodeError(err error) bool {
	return strings.Contains(err.Error(), "decode input")
}
