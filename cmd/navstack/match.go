package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/manifest"
	"github.com/vango-dev/navstack/pkg/navstack"
)

func matchCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "match LOCATION",
		Short: "Resolve a location against the route tree",
		Long:  `Run a location through the full match and redirect pipeline and print the resolved match stack.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(file)
			if err != nil {
				return err
			}
			nav, err := navstack.New(navstack.Config{
				Routes:        m.Build(),
				RedirectLimit: m.RedirectLimit,
			})
			if err != nil {
				return err
			}

			list := nav.Go(cmd.Context(), args[0])
			if list.IsError() {
				return fmt.Errorf("%s: %w", args[0], list.Err())
			}

			cmd.Printf("location: %s\n", list.Location())
			for i, mt := range list.Matches() {
				cmd.Printf("%2d  %-30s  %s\n", i, mt.Key, mt.FullPattern)
				for k, v := range mt.Params {
					cmd.Printf("      %s = %s\n", k, v)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "routes.toml", "Route manifest file")

	return cmd
}
