package types

import "github.com/google/uuid"

// JobID identifies a fetch job submitted through the HTTP API
type JobID string

// NewJobID returns a new random JobID
func NewJobID() JobID {
	return JobID(uuid.NewString())
}

func (x JobID) String() string {
	return string(x)
}

// Validate checks that the ID is a well formed UUID
func (x JobID) Validate() error {
	_, err := uuid.Parse(string(x))
	return err
}
