package document

import (
	"github.com/chriis-fr/global-sub005/internal/document/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("document.repository",
	fx.Provide(repository.Provide),
)
