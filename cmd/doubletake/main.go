// Package main provides the doubletake CLI.
package main

import (
	"fmt"
	"os"

	"github.com/dual/doubletake/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()

	cfg, err := loadConfig(configDir())
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(cli.ExitCommandError)
	}
	applyConfigDefaults(cmd, cfg)

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
