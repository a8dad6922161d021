package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/navstack/internal/manifest"
	"github.com/vango-dev/navstack/pkg/route"
)

func routesCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the compiled route tree",
		Long:  `Load a route manifest and print the validated tree: full patterns, names, scopes and branch defaults.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(file)
			if err != nil {
				return err
			}
			tree, err := route.NewTree(m.Build())
			if err != nil {
				return err
			}

			printRoutes(cmd, tree, tree.Routes(), 0)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "routes.toml", "Route manifest file")

	return cmd
}

func printRoutes(cmd *cobra.Command, tree *route.Tree, routes []route.Route, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, r := range routes {
		switch r := r.(type) {
		case *route.Leaf:
			line := indent + tree.FullPattern(r)
			if r.Name != "" {
				line += fmt.Sprintf("  (name: %s)", r.Name)
			}
			if r.Scope != "" {
				line += fmt.Sprintf("  (scope: %s)", r.Scope)
			}
			if r.Redirect != nil {
				line += "  [redirect]"
			}
			cmd.Println(line)
			printRoutes(cmd, tree, r.Children, depth+1)

		case *route.Shell:
			cmd.Println(indent + "<shell>")
			printRoutes(cmd, tree, r.Children, depth+1)

		case *route.StatefulShell:
			cmd.Println(indent + "<stateful shell>")
			for i, b := range r.Branches {
				cmd.Printf("%s  branch %d (default: %s)\n", indent, i, tree.DefaultLocation(b))
				printRoutes(cmd, tree, b.Routes, depth+2)
			}
		}
	}
}
