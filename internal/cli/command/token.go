package command

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/educationelly/educationelly-graphql/internal/core/service"
	"github.com/educationelly/educationelly-graphql/internal/server/config"
)

// TokenCommand groups the offline token tools.
func TokenCommand() *cli.Command {
	secretFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "secret",
			Usage:   "signing secret",
			EnvVars: []string{"JWT_SECRET", "ELLY_AUTH__JWT_SECRET"},
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "read the secret from a server config file",
		},
	}
	return &cli.Command{
		Name:  "token",
		Usage: "issue and inspect session tokens",
		Subcommands: []*cli.Command{
			{
				Name:  "issue",
				Usage: "sign a token",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "user id", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.DurationFlag{Name: "ttl", Usage: "lifetime", Value: config.DefaultJWTExpiry},
				}, secretFlags...),
				Action: issueToken,
			},
			{
				Name:      "verify",
				Usage:     "check a token's signature and expiry",
				ArgsUsage: "<token>",
				Flags:     secretFlags,
				Action:    verifyToken,
			},
			{
				Name:      "decode",
				Usage:     "print a token's claims without verifying it",
				ArgsUsage: "<token>",
				Action:    decodeToken,
			},
		},
	}
}

func tokenService(c *cli.Context, ttl time.Duration) (*service.TokenService, error) {
	secret := c.String("secret")
	if secret == "" && c.String("config") != "" {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return nil, err
		}
		secret = cfg.Auth.JWTSecret
	}
	if secret == "" {
		return nil, cli.Exit("a signing secret is required (--secret, JWT_SECRET or --config)", 2)
	}
	return service.NewTokenService(service.TokenConfig{Secret: secret, TTL: ttl}, nil)
}

func issueToken(c *cli.Context) error {
	tokens, err := tokenService(c, c.Duration("ttl"))
	if err != nil {
		return err
	}
	tok, err := tokens.Issue(c.String("id"), c.String("email"))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, tok)
	return err
}

func verifyToken(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("exactly one token is required", 2)
	}
	tokens, err := tokenService(c, 0)
	if err != nil {
		return err
	}
	id, err := tokens.Verify(c.Args().First())
	if err != nil {
		return cli.Exit("invalid: "+err.Error(), 1)
	}
	return render(c, id)
}

func decodeToken(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return cli.Exit("exactly one token is required", 2)
	}
	id := service.DecodeToken(c.Args().First())
	if id == nil {
		return cli.Exit("not a token", 1)
	}
	return render(c, id)
}
