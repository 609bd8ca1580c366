package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/pkg/mediagit"
)

func newHashObjectCommand(verbose *bool) *cobra.Command {
	var write bool
	var stdin bool

	cmd := &cobra.Command{
		Use:   "hash-object [file...]",
		Short: "Compute an object's Oid and optionally write it to the object database",
		Long:  "Computes the content-addressed Oid for blob data and, with --write, stores it",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			var repo *mediagit.Repository
			if write {
				var err error
				repo, err = mediagit.Open(".", newLogger(*verbose))
				if err != nil {
					return fmt.Errorf("not in a mediagit repository: %w", err)
				}
			}

			if stdin || len(args) == 0 {
				id, err := hashObject(ctx, repo, cmd.InOrStdin(), write)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			for _, path := range args {
				file, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", path, err)
				}
				id, err := hashObject(ctx, repo, file, write)
				file.Close()
				if err != nil {
					return fmt.Errorf("failed to hash %s: %w", path, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the object into the object database")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "read content from stdin instead of a file")
	return cmd
}

func hashObject(ctx context.Context, repo *mediagit.Repository, r io.Reader, write bool) (oid.Oid, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return oid.Oid{}, fmt.Errorf("failed to read data: %w", err)
	}
	if repo != nil && write {
		return repo.HashObject(ctx, data, true)
	}
	return oid.FromBytes(data), nil
}
