package observability

import (
	"github.com/chriis-fr/global-sub005/internal/observability/metrics"
	"go.uber.org/fx"
)

var Module = fx.Module("observability",
	fx.Provide(metrics.New),
)
