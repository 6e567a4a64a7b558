package service

import (
	"context"
	"fmt"

	"github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
)

// entryIDMaxAttempts bounds the probe loop. Collisions require another writer
// inserting the same candidate inside the same scope in the same instant, so
// a handful of retries is plenty.
const entryIDMaxAttempts = 5

// nextEntryID produces the next human-readable id in the scope's monthly
// sequence, e.g. PAY-202609-0007. The sequence restarts every calendar month
// and is probed, not locked: the candidate is re-checked before use and bumped
// on collision.
func (s *service) nextEntryID(ctx context.Context, scope domain.Scope, entryType domain.EntryType) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", entryType.EntryIDPrefix(), s.clock.Now().Format("200601"))

	seq, err := s.repo.LatestSeq(ctx, scope, prefix)
	if err != nil {
		return "", err
	}

	for attempt := 0; attempt < entryIDMaxAttempts; attempt++ {
		seq++
		candidate := fmt.Sprintf("%s%04d", prefix, seq)
		exists, err := s.repo.EntryIDExists(ctx, scope, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", domain.ErrEntryIDExhausted
}
