package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/openai/openai-go/option"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/mempirate/trawl/backend"
	"github.com/mempirate/trawl/extract"
)

func newExtractCmd(a *app) *cobra.Command {
	var (
		schemaPath  string
		name        string
		depth       int
		model       string
		temperature float64
		apiKey      string
		quiet       bool
	)

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Crawl a site and extract data matching a JSON schema from it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(schemaPath)
			if err != nil {
				return errors.Wrap(err, "failed to read schema")
			}

			schema, err := extract.LoadSchema(data)
			if err != nil {
				return err
			}

			if name == "" {
				name = strings.TrimSuffix(filepath.Base(schemaPath), filepath.Ext(schemaPath))
			}

			openaiCfg := a.cfg.OpenAI
			if cmd.Flags().Changed("model") {
				openaiCfg.Model = model
			}
			if cmd.Flags().Changed("temperature") {
				openaiCfg.Temperature = temperature
			}
			if apiKey != "" {
				openaiCfg.APIKey = apiKey
			}

			var opts []option.RequestOption
			if openaiCfg.BaseURL != "" {
				opts = append(opts, option.WithBaseURL(openaiCfg.BaseURL))
			}

			completer, err := backend.NewOpenAI(openaiCfg.APIKey, opts...)
			if err != nil {
				return err
			}

			x, err := extract.New(a.newCrawler(), completer,
				extract.WithModel(openaiCfg.Model),
				extract.WithTemperature(openaiCfg.Temperature),
			)
			if err != nil {
				return err
			}

			var s *spinner.Spinner
			if !quiet {
				s = spinner.New(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
				s.Suffix = " Extracting: " + args[0]
				s.Start()
			}

			raw, err := x.ExtractRaw(cmd.Context(), args[0], schema, name, depth)

			if s != nil {
				if err == nil {
					s.FinalMSG = "✔ Extracted: " + args[0] + "\n"
				}
				s.Stop()
			}

			if err != nil {
				return err
			}

			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				return errors.Wrap(err, "failed to format result")
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), buf.String())
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&schemaPath, "schema", "s", "", "Path to the JSON schema file")
	flags.StringVar(&name, "name", "", "Schema name sent to the model (default: schema file name)")
	flags.IntVarP(&depth, "depth", "d", extract.DefaultMaxDepth, "Maximum link depth from the base URL")
	flags.StringVar(&model, "model", backend.DefaultModel, "Model used for extraction")
	flags.Float64Var(&temperature, "temperature", backend.DefaultTemperature, "Sampling temperature")
	flags.StringVar(&apiKey, "api-key", "", "OpenAI API key (default: $OPENAI_API_KEY)")
	flags.BoolVarP(&quiet, "quiet", "q", false, "Don't show a progress spinner")

	_ = cmd.MarkFlagRequired("schema")

	return cmd
}
