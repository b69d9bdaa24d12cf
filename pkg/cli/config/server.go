package config

import (
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/urfave/cli/v3"
)

// Server holds server configuration
type Server struct {
	Addr      string
	APISecret string
}

// Flags returns CLI flags for server configuration
func (c *Server) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "Server address",
			Value:       "localhost:8080",
			Destination: &c.Addr,
			Sources:     cli.EnvVars("KBAI_ADDR"),
		},
		&cli.StringFlag{
			Name:        "api-secret",
			Usage:       "Shared secret of the X-Kbai-Signature-256 request signature. Verification is disabled if empty",
			Destination: &c.APISecret,
			Sources:     cli.EnvVars("KBAI_API_SECRET"),
		},
	}
}

// Secret returns the API secret
func (c *Server) Secret() types.Secret {
	return types.Secret(c.APISecret)
}
