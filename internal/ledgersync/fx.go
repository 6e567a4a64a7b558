package ledgersync

import (
	"github.com/chriis-fr/global-sub005/internal/ledgersync/repository"
	"github.com/chriis-fr/global-sub005/internal/ledgersync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ledgersync.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
