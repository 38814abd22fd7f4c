package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newCompileCommand(opts *options) *cobra.Command {
	var output, externalDir string

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Write the template with the compiled alert resources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := opts.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			out, err := opts.compile(cmd.Context(), logger)
			if err != nil {
				return err
			}

			if err := writeFile(cmd.OutOrStdout(), output, out.template); err != nil {
				return err
			}

			if external := out.summary.ExternalStack; external != nil {
				path := filepath.Join(externalDir, external.StackName+".template.json")
				if err := writeFile(cmd.OutOrStdout(), path, external.Template()); err != nil {
					return err
				}
				logger.InfoContext(
					cmd.Context(),
					"external stack written",
					slog.String("stackName", external.StackName),
					slog.String("path", path),
				)
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "template output file, - for stdout")
	cmd.Flags().StringVar(&externalDir, "external-dir", ".", "directory for external stack templates")

	return cmd
}

func writeFile(stdout io.Writer, path string, v any) error {
	if path == "-" {
		return writeJSON(stdout, v)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create %s: %w", path, err)
	}
	defer f.Close()

	if err := writeJSON(f, v); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return f.Close()
}
