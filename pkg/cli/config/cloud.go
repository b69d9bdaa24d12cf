package config

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/leoric/kbai/pkg/domain/interfaces"
	fsrepo "github.com/leoric/kbai/pkg/infra/firestore"
	"github.com/leoric/kbai/pkg/infra/memory"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"google.golang.org/api/option"
)

// Cloud holds Google Cloud configuration of the job repository
type Cloud struct {
	FirestoreProject    string
	FirestoreDatabase   string
	FirestoreCollection string
	CredentialsFile     string
}

// Flags returns CLI flags for Google Cloud configuration
func (c *Cloud) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "firestore-project",
			Usage:       "Google Cloud project of the Firestore job repository. Jobs are kept in memory if empty",
			Destination: &c.FirestoreProject,
			Sources:     cli.EnvVars("KBAI_FIRESTORE_PROJECT"),
		},
		&cli.StringFlag{
			Name:        "firestore-database",
			Usage:       "Firestore database ID",
			Value:       firestore.DefaultDatabaseID,
			Destination: &c.FirestoreDatabase,
			Sources:     cli.EnvVars("KBAI_FIRESTORE_DATABASE"),
		},
		&cli.StringFlag{
			Name:        "firestore-collection",
			Usage:       "Firestore collection of fetch jobs",
			Value:       fsrepo.DefaultCollection,
			Destination: &c.FirestoreCollection,
			Sources:     cli.EnvVars("KBAI_FIRESTORE_COLLECTION"),
		},
		&cli.StringFlag{
			Name:        "google-credentials",
			Usage:       "Service account key file (default: application default credentials)",
			Destination: &c.CredentialsFile,
			Sources:     cli.EnvVars("KBAI_GOOGLE_CREDENTIALS"),
		},
	}
}

// NewRepository returns the Firestore repository when a project is set, or
// an in-memory one. The returned function releases the client.
func (c *Cloud) NewRepository(ctx context.Context) (interfaces.JobRepository, func(), error) {
	logger := ctxlog.From(ctx)

	if c.FirestoreProject == "" {
		logger.Info("Using in-memory job repository")
		return memory.New(), func() {}, nil
	}

	var clientOpts []option.ClientOption
	if c.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(c.CredentialsFile))
	}

	repo, err := fsrepo.New(ctx, c.FirestoreProject,
		fsrepo.WithDatabaseID(c.FirestoreDatabase),
		fsrepo.WithCollection(c.FirestoreCollection),
		fsrepo.WithClientOptions(clientOpts...),
	)
	if err != nil {
		return nil, nil, goerr.Wrap(err, "failed to create firestore repository",
			goerr.V("project", c.FirestoreProject),
			goerr.V("database", c.FirestoreDatabase),
		)
	}

	logger.Info("Using firestore job repository",
		"project", c.FirestoreProject,
		"database", c.FirestoreDatabase,
		"collection", c.FirestoreCollection,
	)

	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Warn("Failed to close firestore client", "error", err)
		}
	}, nil
}
