package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"webmake/internal/config"
	"webmake/internal/domain"
	"webmake/internal/observability"
	"webmake/internal/site"
)

// app carries state shared by subcommands once the root has loaded config.
type app struct {
	cfgFile string
	cfg     *config.Config
	logger  observability.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "webmake-cli",
		Short: "Build and publish one-page small business websites",
		Long: `webmake-cli renders site content to HTML, packages it as a deployable
archive, and publishes it to Netlify or Vercel. Without provider credentials
publish writes the archive locally for manual upload.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.cfgFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logCfg := cfg.Log
			logCfg.Output = cmd.ErrOrStderr()
			a.logger = observability.NewLogger(logCfg)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default $WEBMAKE_CONFIG)")

	root.AddCommand(
		newRenderCmd(a),
		newExportCmd(a),
		newPublishCmd(a),
		newGenerateCmd(a),
		newKeygenCmd(),
	)
	return root
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// pageSource holds the flags that choose where a page comes from: a content
// JSON file rendered on the fly, or a ready-made HTML file.
type pageSource struct {
	contentPath string
	htmlPath    string
}

func (p *pageSource) register(fs *pflag.FlagSet) {
	fs.StringVarP(&p.contentPath, "content", "c", "", "SiteContent JSON file to render ('-' for stdin)")
	fs.StringVar(&p.htmlPath, "html", "", "ready-made HTML file ('-' for stdin)")
}

// page returns the HTML to package. A ready-made HTML file is used verbatim.
func (p *pageSource) page(cmd *cobra.Command) (string, error) {
	switch {
	case p.htmlPath != "" && p.contentPath != "":
		return "", errors.New("--html and --content are mutually exclusive")
	case p.htmlPath != "":
		b, err := readInput(cmd, p.htmlPath)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case p.contentPath != "":
		content, err := loadContent(cmd, p.contentPath)
		if err != nil {
			return "", err
		}
		return site.Render(content), nil
	default:
		return "", errors.New("one of --html or --content is required")
	}
}

func loadContent(cmd *cobra.Command, path string) (domain.SiteContent, error) {
	var content domain.SiteContent
	b, err := readInput(cmd, path)
	if err != nil {
		return content, err
	}
	if err := json.Unmarshal(b, &content); err != nil {
		return content, fmt.Errorf("parse %s: %w", path, err)
	}
	if strings.TrimSpace(content.Headline) == "" {
		return content, fmt.Errorf("%s: headline is required", path)
	}
	return content, nil
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return b, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}

// writeOutput writes data to path, or to the command's stdout when path is
// empty or "-".
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
