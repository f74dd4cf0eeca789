package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/AnCIity/importlyrical/pkg/observability"
	"github.com/AnCIity/importlyrical/pkg/ondemand"
)

const stdinArg = "-"

type transformFlags struct {
	command   string
	filename  string
	diff      bool
	sourcemap bool
	noColor   bool
}

// NewTransformCommand creates the single-module transform command.
func NewTransformCommand(flags *GlobalFlags) *cobra.Command {
	tf := &transformFlags{}

	cmd := &cobra.Command{
		Use:   "transform <file|->",
		Short: "Print the rewritten form of one module",
		Long: `Run the transform hook on one module and print the result. Use "-" to
read from stdin; --filename then names the module for grammar selection and
package resolution.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			command, err := ondemand.ParseCommand(tf.command)
			if err != nil {
				return err
			}

			code, id, err := readModule(cmd.InOrStdin(), args[0], tf.filename)
			if err != nil {
				return err
			}

			a, err := loadApp(flags, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer a.close()

			plugin, err := ondemand.New(a.plugin, a.pluginOptions()...)
			if err != nil {
				return err
			}

			env := ondemand.Env{Command: command, Sourcemap: tf.sourcemap}
			env.CombinedSourcemap = func() (*ondemand.SourceMap, error) {
				return ondemand.IdentitySourceMap(id, code), nil
			}

			res, err := plugin.Transform(cmd.Context(), code, id, env)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if !tf.diff {
				return writeCode(out, res)
			}

			if tf.noColor {
				color.NoColor = true //nolint:reassign // intentional override of library global
			}

			renderDiff(out, code, res.Code)

			return nil
		},
	}

	cmd.Flags().StringVar(&tf.command, "command", string(ondemand.CommandServe), "host command: build or serve")
	cmd.Flags().StringVar(&tf.filename, "filename", "stdin.js", "module name when reading stdin")
	cmd.Flags().BoolVar(&tf.diff, "diff", false, "print a line diff instead of the code")
	cmd.Flags().BoolVar(&tf.sourcemap, "sourcemap", false, "append an inline source map to processed modules")
	cmd.Flags().BoolVar(&tf.noColor, "no-color", false, "disable colored diff output")

	return cmd
}

// writeCode writes the transformed code, followed by its source map as an
// inline sourceMappingURL comment when one was produced.
func writeCode(w io.Writer, res ondemand.Result) error {
	code := res.Code

	if res.Map != nil {
		comment, err := res.Map.InlineComment()
		if err != nil {
			return err
		}

		if code != "" && !strings.HasSuffix(code, "\n") {
			code += "\n"
		}

		code += comment + "\n"
	}

	_, err := io.WriteString(w, code)

	return err
}

// readModule returns the code and absolute module id for arg.
func readModule(stdin io.Reader, arg, stdinName string) (string, string, error) {
	name := arg

	var (
		data []byte
		err  error
	)

	if arg == stdinArg {
		name = stdinName
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(arg)
	}

	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", name, err)
	}

	id, err := filepath.Abs(name)
	if err != nil {
		return "", "", fmt.Errorf("resolve %s: %w", name, err)
	}

	return string(data), id, nil
}

// renderDiff writes a line diff of before and after, added lines in green and
// removed lines in red.
func renderDiff(w io.Writer, before, after string) {
	dmp := diffmatchpatch.New()

	beforeChars, afterChars, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lines)

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			line = strings.TrimSuffix(line, "\n")

			switch d.Type {
			case diffmatchpatch.DiffInsert:
				added.Fprintf(w, "+ %s\n", line)
			case diffmatchpatch.DiffDelete:
				removed.Fprintf(w, "- %s\n", line)
			case diffmatchpatch.DiffEqual:
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
}
