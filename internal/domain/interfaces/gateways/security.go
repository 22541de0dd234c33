package gateways

import (
	"context"

	"github.com/ochairo/roaster/internal/domain/entities"
)

// ScannerGateway wraps one external analysis tool.
// Scan never panics on tool output; a non-nil error is always a soft *entities.ScanError
// returned alongside an empty finding list.
type ScannerGateway interface {
	// Name identifies the scanner in logs and reports
	Name() string

	// Scan runs the tool against a read-only working tree rooted at root
	Scan(ctx context.Context, root string) ([]entities.Finding, error)
}

// RepositoryGateway materializes and removes working trees
type RepositoryGateway interface {
	// Acquire clones url into a fresh working tree.
	// The returned tree is non-nil whenever a directory was created, even if err != nil,
	// so the caller can always Release it.
	Acquire(ctx context.Context, url string) (*entities.WorkingTree, error)

	// Release deletes the working tree. Safe to call more than once.
	Release(tree *entities.WorkingTree) error
}

// Narrator turns findings into roast text and suggested fixes.
// Implementations never fail; remote backends fall back to a deterministic narrator.
type Narrator interface {
	Narrate(ctx context.Context, findings []entities.Finding) (string, []entities.SuggestedFix)
}

// EventPublisher announces finished scans
type EventPublisher interface {
	PublishScanCompleted(ctx context.Context, event *entities.ScanCompletedEvent) error
}

// SecretInspector labels leaked credentials it recognises (e.g. key fingerprints)
type SecretInspector interface {
	Describe(raw string) (string, bool)
}
