package auth

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/pkg/middleware"
	"google.golang.org/grpc/metadata"
)

// GetUserID returns the acting user for audit columns. The interceptor
// normally places it on the context; metadata is the fallback.
func GetUserID(ctx context.Context) string {
	if id := middleware.UserID(ctx); id != "" {
		return id
	}

	md, ok := metadata.FromIncomingContext(ctx)
	if ok {
		if val := md.Get("x-user-id"); len(val) > 0 {
			return val[0]
		}
	}
	return ""
}
