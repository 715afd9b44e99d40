package rpc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/friconhq/fricon/internal/ferr"
)

func TestToStatusMapsKnownCodes(t *testing.T) {
	cases := []struct {
		code ferr.Code
		want codes.Code
	}{
		{ferr.CodeNotFound, codes.NotFound},
		{ferr.CodeInvalidToken, codes.Unauthenticated},
		{ferr.CodeIllegalState, codes.FailedPrecondition},
		{ferr.CodeSchemaMismatch, codes.FailedPrecondition},
		{ferr.CodeNotReadable, codes.FailedPrecondition},
		{ferr.CodeConflict, codes.AlreadyExists},
		{ferr.CodeInvalidWorkspace, codes.FailedPrecondition},
		{ferr.CodeWorkspaceLocked, codes.FailedPrecondition},
		{ferr.CodeMigrationMismatch, codes.FailedPrecondition},
		{ferr.CodeStorage, codes.Internal},
		{ferr.CodeTransport, codes.Unavailable},
	}

	for _, tc := range cases {
		err := toStatus(ferr.New(tc.code, "boom"))
		assert.Equal(t, tc.want, status.Code(err), tc.code.String())
	}
}

func TestToStatusNilIsNil(t *testing.T) {
	assert.NoError(t, toStatus(nil))
}

func TestToStatusUnknownCodeMapsUnknown(t *testing.T) {
	err := toStatus(ferr.New(ferr.CodeUnknown, "mystery"))
	assert.Equal(t, codes.Unknown, status.Code(err))
}
