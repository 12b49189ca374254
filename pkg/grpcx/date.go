package grpcx

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD request field. Empty input yields the zero
// time.
func ParseDate(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s: expected YYYY-MM-DD, got %q", field, value)
	}
	return t, nil
}

// ParseOptionalDate is ParseDate returning nil for empty input.
func ParseOptionalDate(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDate(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
