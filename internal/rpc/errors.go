package rpc

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/friconhq/fricon/internal/ferr"
)

// toStatus converts a domain error into a transport status error with the
// reason string preserved. A nil err returns nil.
func toStatus(err error) error {
	if err == nil {
		return nil
	}

	var grpcCode codes.Code
	switch ferr.CodeOf(err) {
	case ferr.CodeNotFound:
		grpcCode = codes.NotFound
	case ferr.CodeInvalidToken:
		grpcCode = codes.Unauthenticated
	case ferr.CodeIllegalState:
		grpcCode = codes.FailedPrecondition
	case ferr.CodeSchemaMismatch:
		grpcCode = codes.FailedPrecondition
	case ferr.CodeNotReadable:
		grpcCode = codes.FailedPrecondition
	case ferr.CodeConflict:
		grpcCode = codes.AlreadyExists
	case ferr.CodeInvalidWorkspace, ferr.CodeWorkspaceLocked, ferr.CodeMigrationMismatch:
		grpcCode = codes.FailedPrecondition
	case ferr.CodeStorage:
		grpcCode = codes.Internal
	case ferr.CodeTransport:
		grpcCode = codes.Unavailable
	default:
		grpcCode = codes.Unknown
	}

	return status.Error(grpcCode, err.Error())
}
