package command

import (
	"github.com/urfave/cli/v2"

	"github.com/educationelly/educationelly-graphql/internal/cli/client"
	"github.com/educationelly/educationelly-graphql/internal/cli/output"
	"github.com/educationelly/educationelly-graphql/internal/infra/buildinfo"
)

// App creates the ellyctl application.
func App() *cli.App {
	return &cli.App{
		Name:    "ellyctl",
		Usage:   "EducationELLy gateway command-line tool",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			HealthCommand(),
			QueryCommand(),
			SignInCommand(),
			StudentsCommand(),
			TokenCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "gateway address",
			EnvVars: []string{"ELLY_SERVER"},
			Value:   "localhost:8000",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "session token sent as x-token",
			EnvVars: []string{"ELLY_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   "table",
		},
		&cli.BoolFlag{
			Name:    "wide",
			Aliases: []string{"w"},
			Usage:   "show all columns",
		},
	}
}

func newClient(c *cli.Context) *client.Client {
	return client.New(c.String("server"), c.String("token"))
}

// render writes data in the --output format.
func render(c *cli.Context, data any) error {
	f, err := output.ParseFormat(c.String("output"))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	return output.NewFormatter(f, c.Bool("wide")).Format(c.App.Writer, data)
}
