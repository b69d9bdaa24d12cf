package slack

import (
	"context"
	"fmt"
	"strings"

	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/slack-go/slack"
)

const maxListedEntries = 10

// Notifier posts finished fetch jobs to a Slack incoming webhook
type Notifier struct {
	webhookURL types.Secret
}

var _ interfaces.Notifier = (*Notifier)(nil)

// New creates a Notifier for webhookURL
func New(webhookURL types.Secret) *Notifier {
	return &Notifier{webhookURL: webhookURL}
}

func (x *Notifier) NotifyJob(ctx context.Context, job *model.FetchJob) error {
	msg := &slack.WebhookMessage{
		Text: jobSummary(job),
		Attachments: []slack.Attachment{
			{
				Color: jobColor(job.Status),
				Fields: []slack.AttachmentField{
					{Title: "Source", Value: job.Request.SourceURL},
					{Title: "Destination", Value: job.Request.Destination, Short: true},
					{Title: "Job ID", Value: job.ID.String(), Short: true},
				},
			},
		},
	}

	if err := slack.PostWebhookContext(ctx, x.webhookURL.Unsafe(), msg); err != nil {
		return goerr.Wrap(err, "failed to post Slack message", goerr.V("job_id", job.ID))
	}
	return nil
}

func jobSummary(job *model.FetchJob) string {
	switch job.Status {
	case model.JobStatusSucceeded:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Fetched and extracted %d entries", len(job.Entries)))
		for i, name := range job.Entries {
			if i == maxListedEntries {
				sb.WriteString(fmt.Sprintf("\n• ... and %d more", len(job.Entries)-maxListedEntries))
				break
			}
			sb.WriteString(fmt.Sprintf("\n• `%s`", name))
		}
		return sb.String()
	case model.JobStatusSkipped:
		return "Destination is not empty, fetch skipped"
	case model.JobStatusFailed:
		return fmt.Sprintf("Fetch failed (%s): %s", job.ErrorKind, job.Error)
	default:
		return fmt.Sprintf("Fetch job is %s", job.Status)
	}
}

func jobColor(status model.FetchJobStatus) string {
	switch status {
	case model.JobStatusSucceeded:
		return "good"
	case model.JobStatusFailed:
		return "danger"
	default:
		return "warning"
	}
}
