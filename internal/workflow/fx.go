package workflow

import (
	"github.com/chriis-fr/global-sub005/internal/workflow/repository"
	"github.com/chriis-fr/global-sub005/internal/workflow/service"
	"go.uber.org/fx"
)

var Module = fx.Module("workflow.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
