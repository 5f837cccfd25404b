package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mempirate/trawl/crawler"
	"github.com/mempirate/trawl/store"
)

func newCrawlCmd(a *app) *cobra.Command {
	var (
		depth     int
		format    string
		outputDir string
	)

	cmd := &cobra.Command{
		Use:   "crawl <url>",
		Short: "Crawl a site and print its pages as markdown or JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("depth") {
				depth = a.cfg.Crawl.MaxDepth
			}

			f, err := crawler.ParseFormat(format)
			if err != nil {
				return err
			}

			// Exporting needs the individual pages, so crawl structured and
			// join the markdown here.
			crawlFormat := f
			if outputDir != "" {
				crawlFormat = crawler.FormatStructured
			}

			result, err := a.newCrawler().Crawl(cmd.Context(), args[0], depth, crawlFormat)
			if err != nil {
				return err
			}

			for _, failure := range result.Failures {
				a.log.Warn().Str("url", failure.URL).Int("depth", failure.Depth).Err(failure.Err).Msg("Page skipped")
			}

			if outputDir != "" {
				fs := store.NewFileStore(outputDir)
				if err := fs.Init(); err != nil {
					return errors.Wrap(err, "failed to create output directory")
				}

				if err := fs.StorePages(cmd.Context(), result.Ordered()); err != nil {
					return err
				}

				a.log.Info().Str("dir", outputDir).Int("pages", result.Len()).Msg("Pages exported")
			}

			out := cmd.OutOrStdout()

			if f == crawler.FormatMarkdown {
				markdown := result.Markdown
				if crawlFormat != f {
					markdown = crawler.JoinMarkdown(result.Ordered())
				}

				_, err = fmt.Fprintln(out, markdown)
				return err
			}

			data, err := json.MarshalIndent(result.Pages, "", "  ")
			if err != nil {
				return errors.Wrap(err, "failed to encode pages")
			}

			_, err = fmt.Fprintln(out, string(data))
			return err
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", crawler.DefaultMaxDepth, "Maximum link depth from the base URL")
	cmd.Flags().StringVarP(&format, "format", "f", string(crawler.FormatMarkdown), "Output format: markdown, structured or json")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Also write one markdown file per page to this directory")

	return cmd
}
