package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/mediagit/pkg/mediagit"
)

func newInitCommand(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Initialize a new repository",
		Long:  "Create an empty MediaGit repository at path; fails if a repository already exists there",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			repo, err := mediagit.Init(path, newLogger(*verbose))
			if err != nil {
				return fmt.Errorf("failed to initialize repository: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty MediaGit repository in %s\n", filepath.Join(repo.MetaDir()))
			return nil
		},
	}
}
