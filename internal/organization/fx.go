package organization

import (
	"github.com/chriis-fr/global-sub005/internal/organization/repository"
	"github.com/chriis-fr/global-sub005/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
