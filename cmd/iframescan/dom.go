package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/grez-lucas/iframe-scanner/internal/dom"
	"github.com/grez-lucas/iframe-scanner/internal/report"
)

func newDOMCmd(_ *app) *cobra.Command {
	var htmlFile, text, format string

	cmd := &cobra.Command{
		Use:   "dom",
		Short: "List XPaths of iframes whose attributes or srcdoc contain text",
		Long: `Parses the HTML without a browser and returns /html/body//iframe[k]
for every iframe whose attribute values or inline srcdoc contain the search
text. Nothing is fetched: frames loaded from a URL only match on their
attributes.`,
		Example: `  iframescan dom --html-file page.html --text payment
  pbpaste | iframescan dom --html-file - --text payment --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			writer, err := report.New(format, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			markup, err := readMarkup(cmd, htmlFile)
			if err != nil {
				return err
			}

			lookup, err := dom.Find(markup, text)
			if err != nil {
				return err
			}
			if _, err := writer.WriteLookup(lookup); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&htmlFile, "html-file", "f", "", `HTML file to parse ("-" reads stdin)`)
	cmd.Flags().StringVarP(&text, "text", "t", "", "text to search for")
	cmd.Flags().StringVarP(&format, "format", "o", report.FormatText, "report format: text, json or markdown")
	_ = cmd.MarkFlagRequired("html-file")
	_ = cmd.MarkFlagRequired("text")
	return cmd
}
