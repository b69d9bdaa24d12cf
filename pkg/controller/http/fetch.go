package http

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
)

// maxRequestBody bounds the size of a fetch request body
const maxRequestBody = 1 << 20

// fetchHandler serves the fetch job API
type fetchHandler struct {
	jobUC     interfaces.JobUseCase
	validator *requestValidator
	secret    types.Secret
}

func newFetchHandler(jobUC interfaces.JobUseCase, validator *requestValidator, secret types.Secret) *fetchHandler {
	return &fetchHandler{
		jobUC:     jobUC,
		validator: validator,
		secret:    secret,
	}
}

// fetchRequestBody keeps skip_if_not_empty optional so that it defaults to true
type fetchRequestBody struct {
	URL            string `json:"url"`
	Destination    string `json:"destination"`
	SkipIfNotEmpty *bool  `json:"skip_if_not_empty"`
}

// Submit accepts a fetch request and starts a job for it
func (h *fetchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := ctxlog.From(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		logger.Error("Failed to read request body", "error", err)
		writeError(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if !verifySignature(h.secret, body, r.Header.Get(SignatureHeader)) {
		logger.Warn("Invalid request signature")
		writeError(ctx, w, goerr.New("invalid signature"), http.StatusUnauthorized)
		return
	}

	if err := h.validator.Validate("FetchRequest", body); err != nil {
		logger.Info("Rejected fetch request", "error", err)
		writeError(ctx, w, err, http.StatusBadRequest)
		return
	}

	var input fetchRequestBody
	if err := json.Unmarshal(body, &input); err != nil {
		writeError(ctx, w, goerr.Wrap(err, "invalid JSON payload"), http.StatusBadRequest)
		return
	}

	req := model.NewFetchRequest(input.URL, input.Destination)
	if input.SkipIfNotEmpty != nil {
		req.SkipIfNotEmpty = *input.SkipIfNotEmpty
	}

	job, err := h.jobUC.Submit(ctx, req)
	if err != nil {
		if types.IsInvalidRequestError(err) {
			writeError(ctx, w, err, http.StatusBadRequest)
			return
		}
		logger.Error("Failed to submit fetch job", "error", err)
		writeError(ctx, w, err, http.StatusInternalServerError)
		return
	}

	writeJSON(ctx, w, job, http.StatusAccepted)
}

// Get returns the state of a fetch job
func (h *fetchHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := types.JobID(chi.URLParam(r, "id"))
	if err := id.Validate(); err != nil {
		writeError(ctx, w, goerr.Wrap(err, "invalid job ID"), http.StatusBadRequest)
		return
	}

	job, err := h.jobUC.Get(ctx, id)
	if err != nil {
		ctxlog.From(ctx).Error("Failed to get fetch job", "error", err, "job_id", id)
		writeError(ctx, w, err, http.StatusInternalServerError)
		return
	}
	if job == nil {
		writeError(ctx, w, goerr.New("job not found", goerr.V("job_id", id)), http.StatusNotFound)
		return
	}

	writeJSON(ctx, w, job, http.StatusOK)
}
