// Package seed bootstraps the default organization so a fresh deployment can
// accept documents immediately.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/chriis-fr/global-sub005/internal/organization/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultOrgName = "Main"
	defaultOrgSlug = "main"
)

// EnsureMainOrg seeds the default organization when none exists.
func EnsureMainOrg(db *gorm.DB) error {
	return ensure(db, 0)
}

// EnsureMainOrgWithID seeds the default organization with a fixed id, used
// when DEFAULT_ORG pins the tenant for single-org deployments.
func EnsureMainOrgWithID(db *gorm.DB, id int64) error {
	return ensure(db, snowflake.ID(id))
}

func ensure(db *gorm.DB, id snowflake.ID) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var org organizationdomain.Organization
		err := tx.WithContext(ctx).Where("slug = ?", defaultOrgSlug).First(&org).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if id == 0 {
			id = node.Generate()
		}
		now := time.Now().UTC()
		org = organizationdomain.Organization{
			ID:        id,
			Name:      defaultOrgName,
			Slug:      defaultOrgSlug,
			Metadata:  datatypes.JSONMap{},
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&org).Error
	})
}
