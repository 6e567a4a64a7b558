package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/ledgersync/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, entry *domain.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repo) Get(ctx context.Context, id snowflake.ID) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByInvoice and FindByPayable return the entry projected FROM the given
// document. The type filter matters: a payable's entry also carries its
// related invoice id for cross-reference.

func (r *repo) FindByInvoice(ctx context.Context, invoiceID snowflake.ID) (*domain.LedgerEntry, error) {
	return r.findByRef(ctx, "related_invoice_id = ? AND type = ?", invoiceID, domain.EntryTypeReceivable)
}

func (r *repo) FindByPayable(ctx context.Context, payableID snowflake.ID) (*domain.LedgerEntry, error) {
	return r.findByRef(ctx, "related_payable_id = ? AND type = ?", payableID, domain.EntryTypePayable)
}

func (r *repo) findByRef(ctx context.Context, cond string, args ...any) (*domain.LedgerEntry, error) {
	var entry domain.LedgerEntry
	err := r.db.WithContext(ctx).
		Where(cond, args...).
		Order("created_at asc, id asc").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repo) SetStatus(ctx context.Context, id snowflake.ID, status string) error {
	return r.db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repo) List(ctx context.Context, scope domain.Scope, limit int) ([]domain.LedgerEntry, error) {
	stmt := scoped(r.db.WithContext(ctx).Model(&domain.LedgerEntry{}), scope).
		Order("created_at desc, id desc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var entries []domain.LedgerEntry
	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repo) LatestSeq(ctx context.Context, scope domain.Scope, prefix string) (int, error) {
	var ids []string
	err := scoped(r.db.WithContext(ctx).Model(&domain.LedgerEntry{}), scope).
		Where("entry_id LIKE ?", prefix+"%").
		Pluck("entry_id", &ids).Error
	if err != nil {
		return 0, err
	}
	// Parse instead of trusting lexical order: suffixes longer than the
	// zero-padded width would sort wrong.
	max := 0
	for _, id := range ids {
		n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max, nil
}

func (r *repo) EntryIDExists(ctx context.Context, scope domain.Scope, entryID string) (bool, error) {
	var count int64
	err := scoped(r.db.WithContext(ctx).Model(&domain.LedgerEntry{}), scope).
		Where("entry_id = ?", entryID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func scoped(stmt *gorm.DB, scope domain.Scope) *gorm.DB {
	if scope.OrgID != nil {
		return stmt.Where("org_id = ?", *scope.OrgID)
	}
	if scope.OwnerID != nil {
		return stmt.Where("owner_id = ?", *scope.OwnerID)
	}
	return stmt
}
