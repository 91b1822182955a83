package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/JonMunkholm/supportlog/internal/application"
	"github.com/JonMunkholm/supportlog/internal/core"
)

// opener builds the application on demand so help output needs no database.
type opener func(ctx context.Context) (*application.App, error)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(open opener) *cli.App {
	app := &cli.App{
		Name:    "supportlog",
		Usage:   "Import, export and inspect support-log records",
		Version: Version,
		Commands: []*cli.Command{
			importCmd(open),
			exportCmd(open),
			listCmd(open),
			deleteCmd(open),
			schemaCmd(open),
			migrateCmd(open),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// withApp opens the application for the duration of one command.
func withApp(c *cli.Context, open opener, fn func(*application.App) error) error {
	a, err := open(c.Context)
	if err != nil {
		return outputError(err)
	}
	defer a.Close()
	return fn(a)
}

// importCmd creates the import command.
func importCmd(open opener) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Import records from a CSV or JSON file (use - for stdin)",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv|json (default: from file extension)"},
			&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero when any record is skipped"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return cli.Exit("import requires exactly one file argument", 1)
			}
			path := c.Args().First()

			format, err := importFormat(c.String("format"), path)
			if err != nil {
				return outputError(err)
			}

			data, err := readInput(c, path)
			if err != nil {
				return outputError(err)
			}

			return withApp(c, open, func(a *application.App) error {
				report, err := a.Service.Import(c.Context, data, format)
				if report != nil {
					if werr := outputJSON(c, report); werr != nil {
						return werr
					}
				}
				if err != nil {
					return outputError(err)
				}
				if c.Bool("strict") && report.Skipped > 0 {
					return cli.Exit(fmt.Sprintf("%d of %d records skipped", report.Skipped, report.Processed), 2)
				}
				return nil
			})
		},
	}
}

// exportCmd creates the export command.
func exportCmd(open opener) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export every record, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "csv", Usage: "csv|json"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output file, or a directory to use a timestamped name (default: stdout)"},
		},
		Action: func(c *cli.Context) error {
			format, err := core.ParseFormat(c.String("format"))
			if err != nil {
				return outputError(err)
			}

			return withApp(c, open, func(a *application.App) error {
				data, err := a.Service.Export(c.Context, format)
				if err != nil {
					return outputError(err)
				}

				out := c.String("out")
				if out == "" {
					_, err := c.App.Writer.Write(data)
					return err
				}
				if info, err := os.Stat(out); err == nil && info.IsDir() {
					out = filepath.Join(out, core.ExportFilename(format, nowUTC()))
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return outputError(fmt.Errorf("write export: %w", err))
				}
				fmt.Fprintln(c.App.ErrWriter, "wrote", out)
				return nil
			})
		},
	}
}

// listCmd creates the list command.
func listCmd(open opener) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List records matching the given filters, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "Substring of summary, plugin name or error logs"},
			&cli.StringFlag{Name: "status", Usage: "Status"},
			&cli.StringFlag{Name: "plugin", Usage: "Plugin name"},
			&cli.StringFlag{Name: "category", Usage: "Issue category"},
			&cli.StringFlag{Name: "type", Usage: "Issue type"},
			&cli.StringFlag{Name: "recurring", Usage: "Recurring flag: yes|no"},
			&cli.StringFlag{Name: "escalated", Usage: "Escalated flag: yes|no"},
		},
		Action: func(c *cli.Context) error {
			f := core.Filter{
				Search:    c.String("search"),
				Status:    c.String("status"),
				Plugin:    c.String("plugin"),
				Category:  c.String("category"),
				IssueType: c.String("type"),
			}
			var err error
			if f.Recurring, err = parseFlagOption(c, "recurring"); err != nil {
				return outputError(err)
			}
			if f.Escalated, err = parseFlagOption(c, "escalated"); err != nil {
				return outputError(err)
			}

			return withApp(c, open, func(a *application.App) error {
				records, err := a.Service.ListRecords(c.Context, f)
				if err != nil {
					return outputError(err)
				}
				objs := make([]core.OrderedObject, 0, len(records))
				for i := range records {
					objs = append(objs, a.Service.RecordObject(&records[i]))
				}
				return outputJSON(c, objs)
			})
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(open opener) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete a record by ID",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := strconv.ParseInt(c.Args().First(), 10, 64)
			if err != nil || id < 1 {
				return outputError(fmt.Errorf("invalid id %q", c.Args().First()))
			}

			return withApp(c, open, func(a *application.App) error {
				if err := a.Service.DeleteRecord(c.Context, id); err != nil {
					return outputError(err)
				}
				return outputJSON(c, map[string]any{"deleted": id})
			})
		},
	}
}

// schemaCmd creates the schema command.
func schemaCmd(open opener) *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Show the active variant and its CSV header",
		Action: func(c *cli.Context) error {
			return withApp(c, open, func(a *application.App) error {
				s := a.Service.Schema()
				return outputJSON(c, map[string]any{
					"variant":    s.Key,
					"label":      s.Label,
					"csv_header": a.Service.Mapper().CSVHeader(),
					"variants":   core.Variants(),
				})
			})
		},
	}
}

// migrateCmd creates the migrate command. Opening the store applies pending
// migrations, so this only reports the resulting version.
func migrateCmd(open opener) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Bring the database schema up to date and print its version",
		Action: func(c *cli.Context) error {
			return withApp(c, open, func(a *application.App) error {
				version, err := a.Store.SchemaVersion(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, map[string]any{"schema_version": version})
			})
		},
	}
}

// Helper functions

// outputJSON writes v to the app's writer as indented JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI as "[CODE] message".
func outputError(err error) error {
	msg := core.MapError(err)
	return cli.Exit(fmt.Sprintf("[%s] %s: %v", msg.Code, msg.Message, err), 1)
}

// importFormat resolves the format from the flag or the file extension.
func importFormat(flag, path string) (core.Format, error) {
	if flag != "" {
		return core.ParseFormat(flag)
	}
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: pass --format for %q", core.ErrUnsupportedFormat, path)
	}
	return core.ParseFormat(ext)
}

// readInput reads the named file, or the app's reader for "-".
func readInput(c *cli.Context, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(c.App.Reader)
	}
	return os.ReadFile(path)
}

// parseFlagOption reads a yes/no style option; unset means no condition.
func parseFlagOption(c *cli.Context, name string) (*bool, error) {
	if !c.IsSet(name) {
		return nil, nil
	}
	v := strings.TrimSpace(c.String(name))
	switch {
	case strings.EqualFold(v, core.FlagYes):
		b := true
		return &b, nil
	case strings.EqualFold(v, core.FlagNo):
		b := false
		return &b, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("--%s must be yes or no, got %q", name, v)
	}
	return &b, nil
}
