package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Scope is the ownership boundary an entry id sequence runs in. Exactly one
// field is set, mirroring the source document's ownership.
type Scope struct {
	OrgID   *snowflake.ID
	OwnerID *string
}

type Repository interface {
	Create(ctx context.Context, entry *LedgerEntry) error
	Get(ctx context.Context, id snowflake.ID) (*LedgerEntry, error)
	FindByInvoice(ctx context.Context, invoiceID snowflake.ID) (*LedgerEntry, error)
	FindByPayable(ctx context.Context, payableID snowflake.ID) (*LedgerEntry, error)
	SetStatus(ctx context.Context, id snowflake.ID, status string) error
	List(ctx context.Context, scope Scope, limit int) ([]LedgerEntry, error)

	// LatestSeq returns the highest numeric suffix among entry ids starting
	// with prefix inside scope, 0 when none exist.
	LatestSeq(ctx context.Context, scope Scope, prefix string) (int, error)
	// EntryIDExists probes a candidate id inside scope before insert. There is
	// no storage uniqueness constraint behind it; concurrent writers can still
	// collide and the sweep tolerates the result.
	EntryIDExists(ctx context.Context, scope Scope, entryID string) (bool, error)
}
