package command

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

// QueryCommand runs an arbitrary operation and prints the data.
func QueryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a GraphQL operation",
		ArgsUsage: "<document | @file | ->",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "var",
				Usage: "variable as name=json (repeatable)",
			},
			&cli.BoolFlag{
				Name:  "timing",
				Usage: "print the Server-Timing header to stderr",
			},
		},
		Action: func(c *cli.Context) error {
			doc, err := readDocument(c.Args().First(), c.App.Reader)
			if err != nil {
				return err
			}
			vars, err := parseVars(c.StringSlice("var"))
			if err != nil {
				return err
			}

			start := time.Now()
			resp, err := newClient(c).Query(c.Context, doc, vars)
			if err != nil {
				return err
			}
			if c.Bool("timing") {
				fmt.Fprintf(c.App.ErrWriter, "server-timing: %s (round trip %s)\n", resp.Timing, time.Since(start).Round(time.Millisecond))
			}
			if err := resp.Err(); err != nil {
				return cli.Exit(err.Error(), 1)
			}
			var data any
			if len(resp.Data) > 0 {
				if err := json.Unmarshal(resp.Data, &data); err != nil {
					return err
				}
			}
			return render(c, data)
		},
	}
}

func readDocument(arg string, stdin io.Reader) (string, error) {
	switch {
	case arg == "":
		return "", cli.Exit("a document is required", 2)
	case arg == "-":
		b, err := io.ReadAll(stdin)
		return string(b), err
	case strings.HasPrefix(arg, "@"):
		b, err := os.ReadFile(arg[1:])
		return string(b), err
	default:
		return arg, nil
	}
}

func parseVars(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	vars := make(map[string]any, len(pairs))
	for _, p := range pairs {
		name, raw, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			return nil, cli.Exit(fmt.Sprintf("invalid --var %q, want name=value", p), 2)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		vars[name] = v
	}
	return vars, nil
}
