package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dual/doubletake/internal/category"
)

// CategoryInfo describes one registered category.
type CategoryInfo struct {
	Tag  string `json:"tag"`
	Kind string `json:"kind"`
}

// NewCategoriesCommand creates the categories command.
func NewCategoriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the built-in PII categories",
		Long: `Categories lists every built-in category tag usable in @pii schema
attributes and --override flags, with the scalar kind each synthesizes.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCategories(rootOpts, cmd)
		},
	}

	return cmd
}

func runCategories(rootOpts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	reg := category.NewBuiltinRegistry(0)

	var infos []CategoryInfo
	for _, tag := range reg.Tags() {
		entry, err := reg.Resolve(tag)
		if err != nil {
			return WrapExitError(ExitCommandError, "resolving category", err)
		}
		infos = append(infos, CategoryInfo{Tag: tag, Kind: entry.Kind.String()})
	}

	if rootOpts.Format == "json" {
		return formatter.Success(infos)
	}

	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(&b, "%-16s %s\n", info.Tag, info.Kind)
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), b.String())
	return err
}
