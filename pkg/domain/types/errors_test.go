package types_test

import (
	"errors"
	"testing"

	"github.com/leoric/kbai/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "",
		},
		{
			name: "network",
			err:  goerr.New("connection refused", goerr.T(types.ErrTagNetwork)),
			want: types.ErrorKindNetwork,
		},
		{
			name: "corrupt archive wrapped",
			err: goerr.Wrap(
				goerr.New("zip: not a valid zip file", goerr.T(types.ErrTagCorruptArchive)),
				"failed to extract",
			),
			want: types.ErrorKindCorruptArchive,
		},
		{
			name: "filesystem",
			err:  goerr.Wrap(errors.New("permission denied"), "failed to create", goerr.T(types.ErrTagFilesystem)),
			want: types.ErrorKindFilesystem,
		},
		{
			name: "invalid request",
			err:  goerr.New("bad url", goerr.T(types.ErrTagInvalidRequest)),
			want: types.ErrorKindInvalidRequest,
		},
		{
			name: "plain error",
			err:  errors.New("something"),
			want: types.ErrorKindUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, types.ErrorKind(tt.err)).Equal(tt.want)
		})
	}
}

func TestJobID(t *testing.T) {
	id := types.NewJobID()
	gt.NoError(t, id.Validate())
	gt.Value(t, id.String()).NotEqual("")
	gt.Value(t, types.NewJobID()).NotEqual(id)

	gt.Error(t, types.JobID("not-a-uuid").Validate())
}

func TestSecret_LogValue(t *testing.T) {
	gt.Value(t, types.Secret("xoxb-123").LogValue().String()).Equal("[REDACTED]")
	gt.Value(t, types.Secret("").LogValue().String()).Equal("")
	gt.Value(t, types.Secret("xoxb-123").Unsafe()).Equal("xoxb-123")
}
