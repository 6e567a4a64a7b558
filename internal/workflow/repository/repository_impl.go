package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/chriis-fr/global-sub005/internal/workflow/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) Create(ctx context.Context, wf *domain.ApprovalWorkflow, steps []domain.ApprovalStep) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(wf).Error; err != nil {
			return err
		}
		if len(steps) == 0 {
			return nil
		}
		return tx.Create(&steps).Error
	})
}

func (r *repo) Get(ctx context.Context, id snowflake.ID) (*domain.ApprovalWorkflow, error) {
	var wf domain.ApprovalWorkflow
	if err := r.db.WithContext(ctx).First(&wf, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

func (r *repo) GetByDocument(ctx context.Context, documentID snowflake.ID) (*domain.ApprovalWorkflow, error) {
	var wf domain.ApprovalWorkflow
	err := r.db.WithContext(ctx).
		Order("submitted_at desc, id desc").
		First(&wf, "document_id = ?", documentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &wf, nil
}

func (r *repo) Steps(ctx context.Context, workflowID snowflake.ID) ([]domain.ApprovalStep, error) {
	var steps []domain.ApprovalStep
	err := r.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("step_number asc").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (r *repo) Step(ctx context.Context, workflowID snowflake.ID, stepNumber int) (*domain.ApprovalStep, error) {
	var step domain.ApprovalStep
	err := r.db.WithContext(ctx).
		First(&step, "workflow_id = ? AND step_number = ?", workflowID, stepNumber).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &step, nil
}

func (r *repo) ListAll(ctx context.Context) ([]domain.ApprovalWorkflow, error) {
	var wfs []domain.ApprovalWorkflow
	if err := r.db.WithContext(ctx).Order("submitted_at asc, id asc").Find(&wfs).Error; err != nil {
		return nil, err
	}
	return wfs, nil
}

// DecideStep, Advance and Finish re-check their preconditions inside the
// UPDATE itself. Zero rows affected means another decision won the race and
// this one is rejected, never retried.

func (r *repo) DecideStep(ctx context.Context, stepID snowflake.ID, status domain.StepStatus, decidedAt time.Time, reason string) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ApprovalStep{}).
		Where("id = ? AND status = ?", stepID, domain.StepStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_at": decidedAt,
			"reason":     reason,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *repo) Advance(ctx context.Context, workflowID snowflake.ID, fromStep int) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ApprovalWorkflow{}).
		Where("id = ? AND status = ? AND current_step = ?", workflowID, domain.StatusPending, fromStep).
		Updates(map[string]any{
			"current_step": fromStep + 1,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}

func (r *repo) Finish(ctx context.Context, workflowID snowflake.ID, fromStep int, status domain.Status) error {
	result := r.db.WithContext(ctx).
		Model(&domain.ApprovalWorkflow{}).
		Where("id = ? AND status = ? AND current_step = ?", workflowID, domain.StatusPending, fromStep).
		Updates(map[string]any{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrInvalidState
	}
	return nil
}
