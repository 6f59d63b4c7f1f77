package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ocv/internal/config"
	"ocv/internal/session"
	"ocv/internal/workspace"
)

var errAlreadyOpen = errors.New("a workspace is already open (use --force to replace it)")

func newNewCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Start an empty CV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreLenient, func(ctx context.Context, sess *session.Session) error {
				if sess.Opened() && !force {
					return errAlreadyOpen
				}
				ws, err := sess.Create(ctx)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(summarizeWorkspace(ws))
				}
				return writePlain("created empty CV\n")
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "discard the current workspace")
	return cmd
}

func newOpenCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "open <file.ocv>",
		Short: "Open a .ocv file as the current workspace",
		Args:  requireExactlyArgs(1, "file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, cfg, restoreLenient, func(ctx context.Context, sess *session.Session) error {
				if sess.Opened() && !force {
					return errAlreadyOpen
				}
				ws, err := sess.Open(ctx, data)
				if err != nil {
					if ws == nil {
						return fmt.Errorf("open %s: %w", args[0], err)
					}
					return err
				}
				summary := summarizeWorkspace(ws)
				if *jsonOutput {
					return writeJSON(summary)
				}
				if len(summary.Missing) > 0 {
					fmt.Fprintf(os.Stderr, "warning: %d attachment(s) have no bytes in %s\n", len(summary.Missing), args[0])
				}
				return writeWorkspaceSummary(summary)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace the current workspace")
	return cmd
}

func newExportCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the current workspace to a .ocv file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(ctx context.Context, sess *session.Session) error {
				ws, err := sess.Workspace()
				if err != nil {
					return err
				}
				path := chooseFirst(outPath, session.ExportName(ws.CV.Name, cfg.ExportName))
				if !force {
					if _, err := os.Stat(path); err == nil {
						return fmt.Errorf("output file exists (use --force to overwrite)")
					}
				}

				data, err := sess.ExportTo(ctx, func(data []byte) error {
					return os.WriteFile(path, data, 0o644)
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"path": path, "bytes": len(data)})
				}
				return writePlain("%s\n", path)
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default derived from the CV name)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func newCloseCmd(cfg *config.Config) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "close",
		Short: "Discard the current workspace and its saved state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "Discard the current CV? Changes not exported are lost. [y/N] ")
				if err != nil {
					return err
				}
				if !ok {
					return writePlain("aborted\n")
				}
			}
			return withSession(cmd, cfg, restoreLenient, func(ctx context.Context, sess *session.Session) error {
				if err := sess.Close(ctx); err != nil {
					return err
				}
				return writePlain("closed\n")
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newShowCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the CV document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.View(func(ws *workspace.Workspace) error {
					if *jsonOutput {
						return writeJSON(ws.CV)
					}
					return writeCVDetail(ws.CV)
				})
			})
		},
	}
}

func newInfoCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show manifest details of the current workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.View(func(ws *workspace.Workspace) error {
					summary := summarizeWorkspace(ws)
					if *jsonOutput {
						return writeJSON(summary)
					}
					return writeWorkspaceSummary(summary)
				})
			})
		},
	}
}

func newInspectCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.ocv>",
		Short: "List the members of a .ocv file without opening it",
		Args:  requireExactlyArgs(1, "file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			summary, err := newCodec(cfg).Inspect(data)
			if err != nil {
				return fmt.Errorf("inspect %s: %w", args[0], err)
			}
			if *jsonOutput {
				return writeJSON(summary)
			}

			lines := []string{}
			for _, member := range summary.Members {
				lines = append(lines, fmt.Sprintf("%10d  %s", member.Size, member.Name))
			}
			if summary.Valid {
				lines = append(lines, fmt.Sprintf("valid: version %d, %d record(s)", summary.Version, summary.Records))
			} else {
				lines = append(lines, fmt.Sprintf("invalid: %s", summary.Problem))
			}
			for _, fp := range summary.MissingMembers {
				lines = append(lines, fmt.Sprintf("missing payload: %s", fp))
			}
			for _, name := range summary.OrphanMembers {
				lines = append(lines, fmt.Sprintf("unreferenced member: %s", name))
			}
			return writePlain("%s\n", strings.Join(lines, "\n"))
		},
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	if _, err := fmt.Fprint(out, prompt); err != nil {
		return false, err
	}
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
