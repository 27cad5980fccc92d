package service

import (
	"context"
	"fmt"
)

// Revalidator marks a rendered view path as stale after a mutation.
type Revalidator interface {
	Revalidate(ctx context.Context, path string)
}

// FeedPath is the view that lists top-level threads.
const FeedPath = "/"

// ThreadPath is the detail view of thread id.
func ThreadPath(id uint) string {
	return fmt.Sprintf("/thread/%d", id)
}

// ProfilePath is the profile view of the user with externalID.
func ProfilePath(externalID string) string {
	return "/profile/" + externalID
}

type noopRevalidator struct{}

func (noopRevalidator) Revalidate(context.Context, string) {}

func orNoop(r Revalidator) Revalidator {
	if r == nil {
		return noopRevalidator{}
	}
	return r
}

// revalidateAll revalidates each distinct non-empty path once, in order.
func revalidateAll(ctx context.Context, r Revalidator, paths ...string) {
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		r.Revalidate(ctx, p)
	}
}
