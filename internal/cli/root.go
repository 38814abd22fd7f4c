// Package cli implements the alertsc command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ab0utbla-k/cloudwatch-alerts/internal/alerts"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/dashboard"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/env"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/service"
	"github.com/ab0utbla-k/cloudwatch-alerts/internal/template"
)

const defaultDescription = "The AWS CloudFormation template for this Serverless application"

type options struct {
	manifest string
	stage    string
	region   string
	base     string
	logLevel string
}

// NewRootCommand builds the alertsc command tree.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "alertsc",
		Short:         "Compile alerts configs into CloudFormation resources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.manifest, "file", "f", "serverless.yml", "service manifest")
	flags.StringVarP(&opts.stage, "stage", "s", "", "stage, overrides the manifest")
	flags.StringVarP(&opts.region, "region", "r", "", "region, overrides the manifest")
	flags.StringVarP(&opts.base, "template", "t", "", "CloudFormation template to add the alerts to")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level")

	root.AddCommand(newCompileCommand(opts), newVerifyCommand(opts))

	return root
}

func (o *options) logger(w io.Writer) (*slog.Logger, error) {
	level, err := env.ParseLevel(o.logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

type compiled struct {
	template *template.Template
	summary  *alerts.Summary
}

// compile runs the compiler over the manifest and base template of opts.
func (o *options) compile(ctx context.Context, logger *slog.Logger) (*compiled, error) {
	m, err := service.LoadManifest(o.manifest, o.stage, o.region)
	if err != nil {
		return nil, err
	}

	tmpl, err := o.loadTemplate()
	if err != nil {
		return nil, err
	}

	compiler := alerts.NewCompiler(m, dashboard.NewRenderer(), logger, m.Options())
	summary, err := compiler.Compile(ctx, m.Alerts(), tmpl)
	if err != nil {
		return nil, err
	}

	return &compiled{template: tmpl, summary: summary}, nil
}

func (o *options) loadTemplate() (*template.Template, error) {
	if o.base == "" {
		return template.New(defaultDescription), nil
	}

	b, err := os.ReadFile(o.base)
	if err != nil {
		return nil, fmt.Errorf("cannot read template: %w", err)
	}

	var tmpl template.Template
	if err := json.Unmarshal(b, &tmpl); err != nil {
		return nil, fmt.Errorf("cannot parse template %s: %w", o.base, err)
	}
	return &tmpl, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
