package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ocv/internal/config"
	"ocv/internal/extract"
	"ocv/internal/fingerprint"
	"ocv/internal/session"
	"ocv/internal/workspace"
)

func newAttachCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "attach", Short: "Manage attachments"}
	cmd.AddCommand(
		newAttachAddCmd(cfg, jsonOutput),
		newAttachListCmd(cfg, jsonOutput),
		newAttachGetCmd(cfg),
		newAttachRemoveCmd(cfg),
		newAttachTextCmd(cfg),
	)
	return cmd
}

func newAttachAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		name      string
		mediaType string
	)

	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Attach a local file",
		Args:  requireExactlyArgs(1, "path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			payload, fp, err := readAttachmentFile(path, cfg.Attachments.MaxBytes)
			if err != nil {
				return err
			}
			resolvedType := extract.MediaType(mediaType, payload)
			if !cfg.MediaTypeAllowed(resolvedType) {
				return fmt.Errorf("media type %s is not allowed (allowed: %s)", resolvedType, strings.Join(cfg.Attachments.AllowedMediaTypes, ", "))
			}
			originalName := chooseFirst(name, filepath.Base(path))

			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				var existing bool
				err := sess.Edit(func(ws *workspace.Workspace) error {
					existing = ws.Manifest.HasFile(fp)
					ws.AddAttachment(originalName, resolvedType, payload)
					return nil
				})
				if err != nil {
					return err
				}
				ws, err := sess.Workspace()
				if err != nil {
					return err
				}
				record, _ := ws.Manifest.File(fp)
				if *jsonOutput {
					return writeJSON(map[string]any{"record": record, "existing": existing})
				}
				if existing {
					return writePlain("%s already attached as %s\n", fp.Short(), record.OriginalName)
				}
				return writePlain("%s\n", fp)
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "original file name to record (default: base name of path)")
	cmd.Flags().StringVar(&mediaType, "media-type", "", "media type (default: sniffed from content)")
	return cmd
}

func newAttachListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.View(func(ws *workspace.Workspace) error {
					statuses := ws.AttachmentStatuses()
					if *jsonOutput {
						return writeJSON(statuses)
					}
					for _, status := range statuses {
						if err := writePlain("%s\n", formatAttachmentLine(status)); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}

func newAttachGetCmd(cfg *config.Config) *cobra.Command {
	var (
		outPath string
		force   bool
	)

	cmd := &cobra.Command{
		Use:   "get <fingerprint>",
		Short: "Save attachment content to a file",
		Args:  requireFingerprint,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.View(func(ws *workspace.Workspace) error {
					fp, err := ws.ResolveFingerprint(args[0])
					if err != nil {
						return err
					}
					record, payload, err := ws.Attachment(fp)
					if err != nil {
						return err
					}
					path := chooseFirst(outPath, filepath.Base(record.OriginalName))
					if path == "" || path == "." || path == string(filepath.Separator) {
						path = string(fp)
					}
					if !force {
						if _, err := os.Stat(path); err == nil {
							return fmt.Errorf("output file exists (use --force to overwrite)")
						}
					}
					if err := os.WriteFile(path, payload, 0o644); err != nil {
						return err
					}
					return writePlain("%s\n", path)
				})
			})
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output path (default: the recorded file name)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite output path if it exists")
	return cmd
}

func newAttachRemoveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <fingerprint>",
		Short: "Remove an attachment",
		Args:  requireFingerprint,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				var removed fingerprint.Fingerprint
				err := sess.Edit(func(ws *workspace.Workspace) error {
					fp, err := ws.ResolveFingerprint(args[0])
					if err != nil {
						return err
					}
					ws.RemoveAttachment(fp)
					removed = fp
					return nil
				})
				if err != nil {
					return err
				}
				return writePlain("%s\n", removed)
			})
		},
	}
}

func newAttachTextCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "text <fingerprint>",
		Short: "Print the text of a PDF or plain-text attachment",
		Args:  requireFingerprint,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(ctx context.Context, sess *session.Session) error {
				return sess.View(func(ws *workspace.Workspace) error {
					fp, err := ws.ResolveFingerprint(args[0])
					if err != nil {
						return err
					}
					record, payload, err := ws.Attachment(fp)
					if err != nil {
						return err
					}
					text, err := extract.Text(ctx, payload, record.MediaType)
					if err != nil {
						return fmt.Errorf("%s: %w", record.OriginalName, err)
					}
					return writePlain("%s\n", strings.TrimRight(text, "\n"))
				})
			})
		},
	}
}

// readAttachmentFile hashes path while enforcing maxBytes, then loads it.
func readAttachmentFile(path string, maxBytes int64) ([]byte, fingerprint.Fingerprint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, "", err
	}
	if info.IsDir() {
		return nil, "", fmt.Errorf("%s is a directory", path)
	}

	fp, size, err := fingerprint.OfReader(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if size > maxBytes {
		return nil, "", fmt.Errorf("%s exceeds the attachment limit of %s", path, formatBytes(maxBytes))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	payload, err := io.ReadAll(io.LimitReader(f, size))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if fingerprint.Of(payload) != fp {
		return nil, "", fmt.Errorf("%s changed while being read", path)
	}
	return payload, fp, nil
}
