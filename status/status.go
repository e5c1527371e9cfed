// Package status carries the outcome of an RPC operation: a grpc status
// code plus a human readable message. It is used both for synchronous
// returns and for asynchronous error notifications.
package status

import (
	"fmt"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Status is immutable once constructed.
type Status struct {
	Code    codes.Code
	Message string
}

// OK is the zero-cost success status.
var OK = Status{Code: codes.OK}

func New(code codes.Code, message string) Status {
	return Status{Code: code, Message: message}
}

func Newf(code codes.Code, format string, a ...interface{}) Status {
	return Status{Code: code, Message: fmt.Sprintf(format, a...)}
}

// FromError maps an error to a Status. Errors produced by
// google.golang.org/grpc/status keep their code, everything else becomes
// Unknown. A nil error is OK.
func FromError(err error) Status {
	if err == nil {
		return OK
	}
	if st, ok := grpcstatus.FromError(err); ok {
		return Status{Code: st.Code(), Message: st.Message()}
	}
	return Status{Code: codes.Unknown, Message: err.Error()}
}

func (s Status) Ok() bool {
	return s.Code == codes.OK
}

// Err converts the status back to an error, nil for OK.
func (s Status) Err() error {
	if s.Code == codes.OK {
		return nil
	}
	return grpcstatus.New(s.Code, s.Message).Err()
}

func (s Status) String() string {
	if s.Message == "" {
		return s.Code.String()
	}
	return fmt.Sprintf("%s: %s", s.Code, s.Message)
}
