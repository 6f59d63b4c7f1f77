package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"ocv/internal/config"
	"ocv/internal/models"
	"ocv/internal/session"
	"ocv/internal/workspace"
)

func newCVCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "cv", Short: "Edit the CV document"}
	cmd.AddCommand(
		newCVSetCmd(cfg),
		newCVAddCmd(cfg),
		newCVRemoveCmd(cfg),
		newCVSkillCmd(cfg, jsonOutput),
		newCVImportCmd(cfg),
		newCVDumpCmd(cfg),
	)
	return cmd
}

func newCVSetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "set <field> <value>",
		Short: "Set name, email, phone, location or summary",
		Args:  requireExactlyArgs(2, "field and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			field, err := models.ParseField(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.Edit(func(ws *workspace.Workspace) error {
					return ws.SetField(field, args[1])
				})
			})
		},
	}
}

func newCVAddCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "add <section> key=value [key=value...]",
		Short: "Append an experience, education, course or certificate entry",
		Args:  requireAtLeastArgs(2, "section and at least one key=value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := models.ParseSection(args[0])
			if err != nil {
				return err
			}
			values, err := parseKeyValues(args[1:])
			if err != nil {
				return err
			}
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				var index int
				err := sess.Edit(func(ws *workspace.Workspace) error {
					if err := ws.AddEntry(section, values); err != nil {
						return err
					}
					index = ws.CV.Len(section)
					return nil
				})
				if err != nil {
					return err
				}
				return writePlain("%s %d\n", section, index)
			})
		},
	}
}

func newCVRemoveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <section> <index>",
		Short: "Remove an entry by its position as listed by ocv show",
		Args:  requireExactlyArgs(2, "section and index are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, err := models.ParseSection(args[0])
			if err != nil {
				return err
			}
			position, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil || position < 1 {
				return fmt.Errorf("index must be a positive integer")
			}
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.Edit(func(ws *workspace.Workspace) error {
					return ws.RemoveEntry(section, position-1)
				})
			})
		},
	}
}

func newCVSkillCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{Use: "skill", Short: "Add or remove skills"}

	add := &cobra.Command{
		Use:   "add <skill>[,<skill>...] [<skill>...]",
		Short: "Add skills; duplicates and blanks are ignored",
		Args:  requireAtLeastArgs(1, "at least one skill is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			skills := splitCommaList(args...)
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				var added int
				var all []string
				err := sess.Edit(func(ws *workspace.Workspace) error {
					added = ws.AddSkills(skills...)
					all = append([]string{}, ws.CV.Skills...)
					return nil
				})
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"added": added, "skills": all})
				}
				return writePlain("added %d skill(s)\n", added)
			})
		},
	}

	remove := &cobra.Command{
		Use:   "rm <skill> [<skill>...]",
		Short: "Remove skills",
		Args:  requireAtLeastArgs(1, "at least one skill is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			skills := splitCommaList(args...)
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				var removed int
				err := sess.Edit(func(ws *workspace.Workspace) error {
					for _, skill := range skills {
						if ws.RemoveSkill(skill) {
							removed++
						}
					}
					return nil
				})
				if err != nil {
					return err
				}
				return writePlain("removed %d skill(s)\n", removed)
			})
		},
	}

	cmd.AddCommand(add, remove)
	return cmd
}

func newCVImportCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json|file.yaml>",
		Short: "Replace the CV document with one read from JSON or YAML",
		Args:  requireExactlyArgs(1, "file path is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			cv, err := parseCVDocument(args[0], data)
			if err != nil {
				return fmt.Errorf("import %s: %w", args[0], err)
			}
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.Edit(func(ws *workspace.Workspace) error {
					ws.ReplaceCV(cv)
					return nil
				})
			})
		},
	}
}

func newCVDumpCmd(cfg *config.Config) *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the CV document as JSON or YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, cfg, restoreStrict, func(_ context.Context, sess *session.Session) error {
				return sess.View(func(ws *workspace.Workspace) error {
					if asYAML {
						return writeYAML(ws.CV)
					}
					return writeJSON(ws.CV)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "output YAML")
	return cmd
}

func parseKeyValues(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		key = strings.ToLower(strings.TrimSpace(key))
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		if _, dup := values[key]; dup {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		values[key] = strings.TrimSpace(value)
	}
	return values, nil
}

// parseCVDocument reads a CV from YAML when the extension says so and
// from JSON otherwise. Unknown keys are rejected in both.
func parseCVDocument(path string, data []byte) (models.CV, error) {
	var cv models.CV
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cv); err != nil {
			return models.CV{}, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cv); err != nil {
			return models.CV{}, err
		}
	}
	cv.Normalize()
	return cv, nil
}
