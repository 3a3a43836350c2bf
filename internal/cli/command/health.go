package command

import (
	"github.com/urfave/cli/v2"
)

// HealthCommand checks /health and exits non-zero unless the status is OK.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check gateway health",
		Action: func(c *cli.Context) error {
			h, err := newClient(c).Health(c.Context)
			if err != nil {
				return err
			}
			if err := render(c, h); err != nil {
				return err
			}
			if h.Status != "OK" {
				return cli.Exit("", 1)
			}
			return nil
		},
	}
}
