package audit

import (
	"github.com/chriis-fr/global-sub005/internal/audit/repository"
	"github.com/chriis-fr/global-sub005/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
