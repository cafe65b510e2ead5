// internal/domain/membership/directory.go
package membership

import "context"

// Directory answers group membership questions from the external permissions
// directory. Queries are read-only and eventually consistent; an empty
// result means a zero-member group, not an error.
type Directory interface {
	ListGroups(ctx context.Context) ([]string, error)
	MemberCount(ctx context.Context, groupName string) (int, error)
	PlayerGroups(ctx context.Context, playerID string) ([]string, error)
	// DisplayName resolves a group's human-readable name; implementations
	// fall back to the raw name when none is configured.
	DisplayName(ctx context.Context, groupName string) string
}
