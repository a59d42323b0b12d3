package middleware

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/toolink/throttle/limiter"
)

// metadataAPIKey is the incoming metadata key carrying the api key.
const metadataAPIKey = "x-api-key"

// UnaryServerInterceptor enforces admission on unary gRPC calls. Calls
// without an api key in the metadata pass through; rejected calls fail with
// ResourceExhausted and the algorithm/remaining detail in the message.
func UnaryServerInterceptor(rl *limiter.RateLimiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		apiKey := apiKeyFromMetadata(ctx)
		if apiKey == "" {
			return handler(ctx, req)
		}

		decision := rl.Decide(ctx, apiKey, info.FullMethod)
		if !decision.Allowed {
			return nil, status.Error(codes.ResourceExhausted,
				fmt.Sprintf("rate limit exceeded: algorithm=%s remaining=%d", decision.Algorithm, decision.Remaining))
		}
		return handler(withDecision(ctx, decision), req)
	}
}

func apiKeyFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(metadataAPIKey)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
