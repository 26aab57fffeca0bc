package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/meikuraledutech/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newCompileCmd(c *cli) *cobra.Command {
	var (
		name   string
		out    string
		indent bool
	)

	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Compile a workflow diagram into a template",
		Long:  "Compile reads a workflow diagram from file, or stdin when no file or \"-\" is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := c.compile(cmd, args, name)
			if err != nil {
				return err
			}

			var data []byte
			if indent {
				data, err = json.MarshalIndent(tmpl, "", "  ")
			} else {
				data, err = json.Marshal(tmpl)
			}
			if err != nil {
				return fmt.Errorf("encode template: %w", err)
			}
			data = append(data, '\n')

			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write template: %w", err)
			}
			c.log.Info("template written", zap.String("file", out))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "template name (default: workflow name or id)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the template to this file instead of stdout")
	cmd.Flags().BoolVar(&indent, "indent", false, "indent the JSON output")
	return cmd
}

func newFingerprintCmd(c *cli) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "fingerprint [file]",
		Short: "Print the SHA-256 fingerprint of the compiled template",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := c.compile(cmd, args, name)
			if err != nil {
				return err
			}
			fp, err := tmpl.Fingerprint()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), fp)
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "template name (default: workflow name or id)")
	return cmd
}

// compile reads the diagram named by args (or stdin) and compiles it.
func (c *cli) compile(cmd *cobra.Command, args []string, name string) (*workflow.Template, error) {
	var r io.Reader = cmd.InOrStdin()
	source := "stdin"
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("open workflow: %w", err)
		}
		defer f.Close()
		r, source = f, args[0]
	}

	var w workflow.Workflow
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode workflow %s: %w", source, err)
	}

	opts := []workflow.Option{workflow.WithEntryID(c.cfg.EntryNode), workflow.WithLogger(c.log)}
	if name != "" {
		opts = append(opts, workflow.WithName(name))
	}
	tmpl, err := workflow.CompileWorkflow(&w, opts...)
	if err != nil {
		c.log.Error("compile failed", zap.String("source", source), zap.Error(err))
		return nil, err
	}
	c.log.Debug("compiled", zap.String("source", source), zap.Int("groups", len(tmpl.ExecutionPlan)))
	return tmpl, nil
}
