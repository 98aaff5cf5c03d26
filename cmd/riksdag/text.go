package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/riksdag-client/pkg/client"
)

func newTextCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "text <document-url | dok_id>",
		Short: "Print the full text of a document",
		Long: `Print the full text of a document. The argument is either the document URL
of a search hit (e.g. //data.riksdagen.se/dokument/H9023456) or a bare
document id, which is resolved against the base URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := documentURL(a.settings.API.BaseURL, args[0])
			body, err := a.api.Client().FetchDocument(cmd.Context(), target, format)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(cmd.OutOrStdout(), body); err != nil {
				return fmt.Errorf("write document: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", client.FormatText, "document format (text, html)")
	return cmd
}

// documentURL turns a bare document id into a URL below baseURL.
func documentURL(baseURL, arg string) string {
	if strings.Contains(arg, "/") {
		return arg
	}
	return strings.TrimRight(baseURL, "/") + "/dokument/" + arg
}
