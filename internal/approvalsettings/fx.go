package approvalsettings

import (
	"github.com/chriis-fr/global-sub005/internal/approvalsettings/repository"
	"github.com/chriis-fr/global-sub005/internal/approvalsettings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("approvalsettings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
