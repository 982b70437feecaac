package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/MimeLyc/xieyin/internal/config"
	"github.com/MimeLyc/xieyin/internal/service"
)

func newTranslateCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Rewrite text once and print the result",
		Long: `Rewrite the given text, or standard input when no arguments are given,
using the same cache as the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, cleanup, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer cleanup()

			text := strings.Join(args, " ")
			if len(args) == 0 {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(raw), "\r\n")
			}
			return translateOnce(cmd.Context(), cfg, text, cmd.OutOrStdout(), asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print words and translations as JSON")
	return cmd
}

func translateOnce(ctx context.Context, cfg *config.Config, text string, out io.Writer, asJSON bool) (err error) {
	a, err := newApp(ctx, cfg, noop.NewMeterProvider())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	res, err := a.service.Translate(ctx, text)
	if err != nil {
		return err
	}
	if asJSON {
		return writeResult(out, res)
	}
	_, err = fmt.Fprintln(out, res.AssembledResult)
	return err
}

func writeResult(out io.Writer, res *service.Result) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"originalArticle":  res.OriginalArticle,
		"originalWords":    res.OriginalWords,
		"translatedWords":  res.TranslatedWords,
		"assembledResult":  res.AssembledResult,
		"detectedLanguage": res.DetectedLanguage,
	})
}
