package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fenilsonani/mediagit/internal/oid"
	"github.com/fenilsonani/mediagit/pkg/mediagit"
)

func newCatFileCommand(verbose *bool) *cobra.Command {
	var showSize bool
	var showExists bool
	var pretty bool

	cmd := &cobra.Command{
		Use:   "cat-file [options] <object>",
		Short: "Provide content or size information for a repository object",
		Long:  "Display the content, size, or existence of an object in the object database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			repo, err := mediagit.Open(".", newLogger(*verbose))
			if err != nil {
				return fmt.Errorf("not in a mediagit repository: %w", err)
			}

			id, err := oid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid object id: %w", err)
			}

			switch {
			case showExists:
				exists, err := repo.Odb().Exists(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to check object: %w", err)
				}
				if !exists {
					return fmt.Errorf("object %s does not exist", id)
				}
				return nil
			case showSize:
				size, err := repo.Odb().GetObjectSize(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to read object size: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), size)
				return nil
			case pretty:
				data, err := repo.ReadObject(ctx, id)
				if err != nil {
					return fmt.Errorf("failed to read object: %w", err)
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			default:
				return fmt.Errorf("must specify one of -s, -e, or -p")
			}
		},
	}

	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "show object size")
	cmd.Flags().BoolVarP(&showExists, "exist", "e", false, "exit with zero status if object exists")
	cmd.Flags().BoolVarP(&pretty, "pretty-print", "p", false, "print object content")
	return cmd
}
