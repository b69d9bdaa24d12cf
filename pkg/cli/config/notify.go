package config

import (
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/infra/slack"
	"github.com/urfave/cli/v3"
)

// Notify holds job notification configuration
type Notify struct {
	SlackWebhookURL string
}

// Flags returns CLI flags for notification configuration
func (c *Notify) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL notified when a fetch job finishes",
			Destination: &c.SlackWebhookURL,
			Sources:     cli.EnvVars("KBAI_SLACK_WEBHOOK_URL"),
		},
	}
}

// NewNotifier returns the Slack notifier, or nil if no webhook URL is set
func (c *Notify) NewNotifier() interfaces.Notifier {
	if c.SlackWebhookURL == "" {
		return nil
	}
	return slack.New(types.Secret(c.SlackWebhookURL))
}
