package firestore

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	"github.com/leoric/kbai/pkg/domain/model"
	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// DefaultCollection is the collection storing fetch jobs unless WithCollection is given
const DefaultCollection = "fetch_jobs"

type config struct {
	databaseID string
	collection string
	clientOpts []option.ClientOption
}

// Option configures the Firestore repository
type Option func(*config)

// WithDatabaseID selects a named Firestore database
func WithDatabaseID(id string) Option {
	return func(c *config) {
		c.databaseID = id
	}
}

// WithCollection sets the collection storing jobs
func WithCollection(name string) Option {
	return func(c *config) {
		c.collection = name
	}
}

// WithClientOptions passes options (credentials, endpoint) to the Firestore client
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *config) {
		c.clientOpts = append(c.clientOpts, opts...)
	}
}

// Repository stores fetch jobs in a Firestore collection, one document per job
type Repository struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.JobRepository = (*Repository)(nil)

// New connects to Firestore in projectID
func New(ctx context.Context, projectID string, opts ...Option) (*Repository, error) {
	cfg := &config{
		databaseID: firestore.DefaultDatabaseID,
		collection: DefaultCollection,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, cfg.databaseID, cfg.clientOpts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project_id", projectID),
			goerr.V("database_id", cfg.databaseID),
		)
	}

	return &Repository{
		client:     client,
		collection: cfg.collection,
	}, nil
}

// Close releases the client
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) PutJob(ctx context.Context, job *model.FetchJob) error {
	if _, err := r.client.Collection(r.collection).Doc(job.ID.String()).Set(ctx, job); err != nil {
		return goerr.Wrap(err, "failed to put fetch job",
			goerr.V("job_id", job.ID),
			goerr.V("collection", r.collection),
		)
	}
	return nil
}

func (r *Repository) GetJob(ctx context.Context, id types.JobID) (*model.FetchJob, error) {
	doc, err := r.client.Collection(r.collection).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, goerr.Wrap(err, "failed to get fetch job",
			goerr.V("job_id", id),
			goerr.V("collection", r.collection),
		)
	}

	var job model.FetchJob
	if err := doc.DataTo(&job); err != nil {
		return nil, goerr.Wrap(err, "failed to decode fetch job", goerr.V("job_id", id))
	}
	return &job, nil
}
