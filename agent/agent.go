package agent

import "context"

// Agent defines the interface for content post-processing agents.
// Agents transform an item's extracted content, e.g. into a short
// summary, before it lands in the digest.
type Agent interface {
	// Process takes content and returns the processed text
	Process(ctx context.Context, content string) (string, error)

	// Name returns the agent identifier (e.g., "summary")
	Name() string
}
