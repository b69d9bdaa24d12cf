package slack_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/leoric/kbai/pkg/infra/slack"
	"github.com/m-mizutani/gt"
)

type webhookPayload struct {
	Text        string `json:"text"`
	Attachments []struct {
		Color string `json:"color"`
	} `json:"attachments"`
}

func newWebhookServer(t *testing.T, status int) (*httptest.Server, chan webhookPayload) {
	t.Helper()

	received := make(chan webhookPayload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload webhookPayload
		gt.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, received
}

func newJob(status model.FetchJobStatus) *model.FetchJob {
	req := model.NewFetchRequest("https://example.com/data.zip", "/data/wiki")
	job := model.NewFetchJob(*req, time.Now())
	job.Status = status
	return job
}

func TestNotifier_Succeeded(t *testing.T) {
	server, received := newWebhookServer(t, http.StatusOK)

	job := newJob(model.JobStatusSucceeded)
	for i := 0; i < 12; i++ {
		job.Entries = append(job.Entries, fmt.Sprintf("file%02d.txt", i))
	}

	notifier := slack.New(types.Secret(server.URL))
	gt.NoError(t, notifier.NotifyJob(context.Background(), job))

	payload := <-received
	gt.String(t, payload.Text).Contains("Fetched and extracted 12 entries")
	gt.String(t, payload.Text).Contains("file00.txt")
	gt.String(t, payload.Text).Contains("... and 2 more")
	gt.A(t, payload.Attachments).Length(1)
	gt.Value(t, payload.Attachments[0].Color).Equal("good")
}

func TestNotifier_Failed(t *testing.T) {
	server, received := newWebhookServer(t, http.StatusOK)

	job := newJob(model.JobStatusFailed)
	job.Error = "unexpected HTTP status"
	job.ErrorKind = types.ErrorKindNetwork

	notifier := slack.New(types.Secret(server.URL))
	gt.NoError(t, notifier.NotifyJob(context.Background(), job))

	payload := <-received
	gt.String(t, payload.Text).Contains("Fetch failed (network)")
	gt.Value(t, payload.Attachments[0].Color).Equal("danger")
}

func TestNotifier_ServerError(t *testing.T) {
	server, _ := newWebhookServer(t, http.StatusInternalServerError)

	notifier := slack.New(types.Secret(server.URL))
	gt.Error(t, notifier.NotifyJob(context.Background(), newJob(model.JobStatusSkipped)))
}
