// Package correlation carries the client-visible ID that ties a request,
// its retries and the usage events they record to the same log lines.
package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

// HeaderName is echoed on every response.
const HeaderName = "X-Correlation-Id"

const maxIDLength = 128

type ctxKey struct{}

func ExtractCorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, id)
}

// Resolve keeps an inbound ID when it is safe to log and otherwise mints a
// ULID, so IDs sort by arrival time.
func Resolve(ctx context.Context, inbound string) (context.Context, string) {
	id := strings.TrimSpace(inbound)
	if !acceptable(id) {
		id = ulid.Make().String()
	}
	return ContextWithCorrelationID(ctx, id), id
}

func acceptable(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}
	for _, r := range id {
		if r <= ' ' || r > '~' {
			return false
		}
	}
	return true
}
