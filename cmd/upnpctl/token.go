package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/nerrad567/gray-logic-upnp/internal/api"
)

var (
	subjectFlag = &cli.StringFlag{
		Name:  "subject",
		Usage: "Token subject, usually the client name",
		Value: "upnpctl",
	}
	roleFlag = &cli.StringFlag{
		Name:  "role",
		Usage: "Token role: viewer or operator",
		Value: string(api.RoleViewer),
	}
	ttlFlag = &cli.DurationFlag{
		Name:  "ttl",
		Usage: "Token lifetime (default security.jwt.access_token_ttl)",
	}
	secretFlag = &cli.StringFlag{
		Name:    "secret",
		Usage:   "Signing secret (default security.jwt.secret)",
		EnvVars: []string{"GRAYLOGIC_JWT_SECRET"},
	}
)

var tokenCommand = &cli.Command{
	Name:   "token",
	Usage:  "Mints a bearer token for the inventory API",
	Flags:  []cli.Flag{subjectFlag, roleFlag, ttlFlag, secretFlag},
	Action: mintToken,
}

func mintToken(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	secret := ctx.String(secretFlag.Name)
	if secret == "" {
		secret = cfg.Security.JWT.Secret
	}
	if secret == "" {
		return errors.New("no signing secret: set security.jwt.secret or pass --secret")
	}

	ttl := ctx.Duration(ttlFlag.Name)
	if ttl <= 0 {
		ttl = time.Duration(cfg.Security.JWT.AccessTokenTTL) * time.Minute
	}

	token, err := api.GenerateToken(ctx.String(subjectFlag.Name), api.Role(ctx.String(roleFlag.Name)), secret, ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, token)
	return nil
}
