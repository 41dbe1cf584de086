package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

// newDocsCmd writes reference pages for the command tree. It is hidden
// because only packaging uses it.
func newDocsCmd() *cobra.Command {
	var dir, format string
	cmd := &cobra.Command{
		Use:    "gen-docs",
		Short:  "Write man, markdown or reST pages for migrate",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeDocs(cmd.Root(), dir, format)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "docs", "output directory")
	cmd.Flags().StringVar(&format, "format", "man", "output format: man, markdown or rest")
	return cmd
}

func writeDocs(root *cobra.Command, dir, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	root.DisableAutoGenTag = true

	switch format {
	case "man":
		return doc.GenManTree(root, &doc.GenManHeader{
			Title:   "MIGRATE",
			Section: "1",
			Source:  "migrate " + version,
			Manual:  "User Commands",
		}, dir)
	case "markdown":
		return doc.GenMarkdownTree(root, dir)
	case "rest":
		return doc.GenReSTTree(root, dir)
	default:
		return fmt.Errorf("unknown format %q (use man, markdown or rest)", format)
	}
}
