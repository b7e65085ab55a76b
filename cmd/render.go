// File: cmd/render.go
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/webbridge/internal/htmlnode"
)

type renderOptions struct {
	tag    string
	id     string
	class  string
	inner  string
	css    []string
	attrs  []string
	markup string
	file   string
}

func newRenderCmd() *cobra.Command {
	opts := &renderOptions{}

	renderCmd := &cobra.Command{
		Use:   "render",
		Short: "Build an HTML node and print its markup",
		Long: `Builds a node from flags, or parses an existing fragment with --markup or
--file ('-' reads stdin), and prints the markup the bridge would inject.

  webbridge render --tag p --id intro --css color=red --inner Hello`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := buildNode(opts, cmd.InOrStdin())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), node.Get())
			return nil
		},
	}

	f := renderCmd.Flags()
	f.StringVar(&opts.tag, "tag", "div", "tag name")
	f.StringVar(&opts.id, "id", "", "id attribute")
	f.StringVar(&opts.class, "class", "", "class attribute")
	f.StringVar(&opts.inner, "inner", "", "inner HTML")
	f.StringArrayVar(&opts.css, "css", nil, "CSS rule as property=value (repeatable)")
	f.StringArrayVar(&opts.attrs, "attr", nil, "attribute as name=value (repeatable)")
	f.StringVar(&opts.markup, "markup", "", "parse this HTML fragment instead of building from flags")
	f.StringVar(&opts.file, "file", "", "parse the HTML fragment in this file")
	renderCmd.MarkFlagsMutuallyExclusive("markup", "file")
	return renderCmd
}

func buildNode(opts *renderOptions, stdin io.Reader) (*htmlnode.Node, error) {
	markup := opts.markup
	if opts.file != "" {
		var (
			data []byte
			err  error
		)
		if opts.file == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(opts.file)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read markup: %w", err)
		}
		markup = string(data)
	}

	var node *htmlnode.Node
	if markup != "" {
		parsed, err := htmlnode.Parse(markup)
		if err != nil {
			return nil, err
		}
		node = parsed
	} else {
		if strings.TrimSpace(opts.tag) == "" {
			return nil, fmt.Errorf("--tag must not be empty")
		}
		node = htmlnode.NewWithInner(opts.tag, opts.inner)
	}

	// Flags apply on top of parsed markup too.
	if opts.id != "" {
		node.SetID(opts.id)
	}
	if opts.class != "" {
		node.SetClass(opts.class)
	}
	for _, a := range opts.attrs {
		name, value, ok := strings.Cut(a, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --attr '%s', want name=value", a)
		}
		node.SetAttribute(name, value)
	}
	for _, c := range opts.css {
		prop, value, ok := strings.Cut(c, "=")
		if !ok || prop == "" {
			return nil, fmt.Errorf("invalid --css '%s', want property=value", c)
		}
		node.SetCSS(prop, value)
	}
	return node, nil
}
