package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// staleSeqRepo reports a fixed latest sequence regardless of stored rows,
// modeling a concurrent writer that inserted entries between our sequence
// read and the probe.
type staleSeqRepo struct {
	domain.Repository
	seq int
}

func (r staleSeqRepo) LatestSeq(ctx context.Context, scope domain.Scope, prefix string) (int, error) {
	return r.seq, nil
}

func (f *fixture) insertEntry(t *testing.T, scope domain.Scope, entryID string) {
	t.Helper()
	require.NoError(t, f.repo.Create(context.Background(), &domain.LedgerEntry{
		ID:       f.node.Generate(),
		EntryID:  entryID,
		Type:     domain.EntryTypePayable,
		OrgID:    scope.OrgID,
		OwnerID:  scope.OwnerID,
		Amount:   100,
		Currency: "USD",
		Status:   "approved",
	}))
}

func TestNextEntryIDProbesPastCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()
	scope := domain.Scope{OrgID: &orgID}

	// Candidates 0001-0003 are taken by the time we probe.
	for i := 1; i <= 3; i++ {
		f.insertEntry(t, scope, fmt.Sprintf("PAY-202609-%04d", i))
	}

	stale := NewService(Params{
		Log: zap.NewNop(), Clock: f.clk, GenID: f.node,
		Repo:         staleSeqRepo{Repository: f.repo, seq: 0},
		DocumentRepo: f.docs, WorkflowRepo: f.wfs,
	}).(*service)

	entryID, err := stale.nextEntryID(ctx, scope, domain.EntryTypePayable)
	require.NoError(t, err)
	assert.Equal(t, "PAY-202609-0004", entryID)
}

func TestNextEntryIDExhaustsAfterFiveOccupiedSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgID := f.node.Generate()
	scope := domain.Scope{OrgID: &orgID}

	for i := 1; i <= 5; i++ {
		f.insertEntry(t, scope, fmt.Sprintf("PAY-202609-%04d", i))
	}

	stale := NewService(Params{
		Log: zap.NewNop(), Clock: f.clk, GenID: f.node,
		Repo:         staleSeqRepo{Repository: f.repo, seq: 0},
		DocumentRepo: f.docs, WorkflowRepo: f.wfs,
	}).(*service)

	_, err := stale.nextEntryID(ctx, scope, domain.EntryTypePayable)
	assert.ErrorIs(t, err, domain.ErrEntryIDExhausted)
}

func TestNextEntryIDUnaffectedByOtherScopes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	orgA := f.node.Generate()
	orgB := f.node.Generate()

	f.insertEntry(t, domain.Scope{OrgID: &orgB}, "PAY-202609-0001")

	stale := NewService(Params{
		Log: zap.NewNop(), Clock: f.clk, GenID: f.node,
		Repo:         staleSeqRepo{Repository: f.repo, seq: 0},
		DocumentRepo: f.docs, WorkflowRepo: f.wfs,
	}).(*service)

	entryID, err := stale.nextEntryID(ctx, domain.Scope{OrgID: &orgA}, domain.EntryTypePayable)
	require.NoError(t, err)
	assert.Equal(t, "PAY-202609-0001", entryID)
}
