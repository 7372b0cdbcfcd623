package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"webmake/internal/auth"
	"webmake/internal/copywriter"
	"webmake/internal/copywriter/llm"
	"webmake/internal/domain"
	"webmake/internal/publish"
	"webmake/internal/site"
)

const cliTimeout = 2 * time.Minute

func newRenderCmd(a *app) *cobra.Command {
	var contentPath, out string
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render SiteContent JSON to a single HTML page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := loadContent(cmd, contentPath)
			if err != nil {
				return err
			}
			html := site.Render(content)
			a.logger.Debug("rendered page", "bytes", len(html), "etag", site.ETag(html))
			return writeOutput(cmd, out, []byte(html))
		},
	}
	cmd.Flags().StringVarP(&contentPath, "content", "c", "", "SiteContent JSON file ('-' for stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("content")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var src pageSource
	out := "webmake-site.zip"
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Package a page as a deployable ZIP archive",
		RunE: func(cmd *cobra.Command, _ []string) error {
			html, err := src.page(cmd)
			if err != nil {
				return err
			}
			archive, err := site.BuildArchive(html)
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, archive); err != nil {
				return err
			}
			a.logger.Info("archive written", "path", out, "bytes", len(archive))
			return nil
		},
	}
	src.register(cmd.Flags())
	cmd.Flags().StringVarP(&out, "out", "o", out, "archive path ('-' for stdout)")
	return cmd
}

func newPublishCmd(a *app) *cobra.Command {
	var (
		src      pageSource
		provider string
		out      = "webmake-site.zip"
	)
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Deploy a page to Netlify or Vercel, or write the archive when unconfigured",
		RunE: func(cmd *cobra.Command, _ []string) error {
			html, err := src.page(cmd)
			if err != nil {
				return err
			}

			orch := publish.New(a.cfg.Publish,
				publish.WithHTTPClient(&http.Client{Timeout: cliTimeout}),
				publish.WithLogger(a.logger),
			)
			res := orch.Publish(cmd.Context(), domain.PublishRequest{Provider: provider, HTML: html})

			w := cmd.OutOrStdout()
			switch res.Kind {
			case domain.ResultSuccess:
				_, _ = fmt.Fprintln(w, res.URL)
				return nil
			case domain.ResultFallback:
				if err := writeOutput(cmd, out, res.Archive); err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), res.Message)
				if out != "" && out != "-" {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "archive written to %s\n", out)
				}
				return nil
			default:
				return fmt.Errorf("%s: %s", res.ErrorKind, res.Details)
			}
		},
	}
	src.register(cmd.Flags())
	cmd.Flags().StringVarP(&provider, "provider", "p", "", "deployment provider (netlify or vercel)")
	cmd.Flags().StringVarP(&out, "out", "o", out, "archive path used when the provider is not configured")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var briefPath, out string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate SiteContent JSON from a BusinessBrief JSON file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := readInput(cmd, briefPath)
			if err != nil {
				return err
			}
			var brief domain.BusinessBrief
			if err := json.Unmarshal(b, &brief); err != nil {
				return fmt.Errorf("parse %s: %w", briefPath, err)
			}

			var provider llm.Provider
			if a.cfg.LLM.APIKey != "" {
				provider = llm.NewOpenAIProvider(a.cfg.LLM, &http.Client{Timeout: cliTimeout})
			}
			content, err := copywriter.NewService(provider, a.logger).Generate(cmd.Context(), brief)
			if errors.Is(err, copywriter.ErrUnavailable) {
				return fmt.Errorf("%w (set WEBMAKE_LLM_API_KEY)", err)
			}
			if err != nil {
				return err
			}

			data, err := json.MarshalIndent(content, "", "  ")
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, append(data, '\n'))
		},
	}
	cmd.Flags().StringVarP(&briefPath, "brief", "b", "", "BusinessBrief JSON file ('-' for stdin)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	_ = cmd.MarkFlagRequired("brief")
	return cmd
}

func newKeygenCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate access keys for WEBMAKE_API_KEYS",
		// keygen needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return errors.New("--count must be at least 1")
			}
			for i := 0; i < count; i++ {
				key, err := auth.GenerateKey()
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of keys to generate")
	return cmd
}
