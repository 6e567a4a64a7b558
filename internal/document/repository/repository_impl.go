package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/document/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, doc *domain.FinancialDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repo) Get(ctx context.Context, id snowflake.ID) (*domain.FinancialDocument, error) {
	var doc domain.FinancialDocument
	if err := r.db.WithContext(ctx).First(&doc, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repo) List(ctx context.Context, filter domain.ListFilter) ([]domain.FinancialDocument, error) {
	stmt := r.db.WithContext(ctx).Model(&domain.FinancialDocument{})
	if filter.OrgID != 0 {
		stmt = stmt.Where("org_id = ?", filter.OrgID)
	}
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.ApprovalStatus != "" {
		stmt = stmt.Where("approval_status = ?", filter.ApprovalStatus)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	var docs []domain.FinancialDocument
	if err := stmt.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) SetApprovalStatus(ctx context.Context, id snowflake.ID, status domain.ApprovalStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.FinancialDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{"approval_status": status, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repo) TransitionApprovalStatus(ctx context.Context, id snowflake.ID, from, to domain.ApprovalStatus) error {
	result := r.db.WithContext(ctx).
		Model(&domain.FinancialDocument{}).
		Where("id = ? AND approval_status = ?", id, from).
		Updates(map[string]any{"approval_status": to, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *repo) MarkPaid(ctx context.Context, id snowflake.ID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.FinancialDocument{}).
		Where("id = ? AND payment_status <> ?", id, domain.PaymentStatusPaid).
		Updates(map[string]any{
			"payment_status":  domain.PaymentStatusPaid,
			"approval_status": domain.ApprovalStatusPaid,
			"updated_at":      time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) SetLedgerStatus(ctx context.Context, id snowflake.ID, status domain.LedgerStatus) error {
	return r.db.WithContext(ctx).
		Model(&domain.FinancialDocument{}).
		Where("id = ?", id).
		Update("ledger_status", status).Error
}

func (r *repo) SetWorkflowID(ctx context.Context, id, workflowID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.FinancialDocument{}).
		Where("id = ?", id).
		Update("workflow_id", workflowID).Error
}

func (r *repo) FindByRelatedInvoice(ctx context.Context, invoiceID snowflake.ID) (*domain.FinancialDocument, error) {
	var doc domain.FinancialDocument
	err := r.db.WithContext(ctx).
		First(&doc, "related_invoice_id = ?", invoiceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repo) FindByRelatedPayable(ctx context.Context, payableID snowflake.ID) (*domain.FinancialDocument, error) {
	var doc domain.FinancialDocument
	err := r.db.WithContext(ctx).
		First(&doc, "related_payable_id = ?", payableID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repo) ListLedgerPending(ctx context.Context, limit int) ([]domain.FinancialDocument, error) {
	stmt := r.db.WithContext(ctx).
		Where("ledger_status = ?", domain.LedgerStatusPending).
		Order("created_at asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}
	var docs []domain.FinancialDocument
	if err := stmt.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repo) ListAll(ctx context.Context) ([]domain.FinancialDocument, error) {
	var docs []domain.FinancialDocument
	if err := r.db.WithContext(ctx).Order("created_at asc, id asc").Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
