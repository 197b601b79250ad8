package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"coinvest-platform/internal/httpapi"
	"coinvest-platform/pkg/config"
	"coinvest-platform/pkg/db"
	"coinvest-platform/pkg/featureflags"
	"coinvest-platform/pkg/gen"
	"coinvest-platform/pkg/health"
	"coinvest-platform/pkg/logger"
	"coinvest-platform/pkg/otelcol"
	"coinvest-platform/pkg/redis"
	"coinvest-platform/pkg/sequence"
	"coinvest-platform/pkg/server"
	"coinvest-platform/pkg/task"
	"coinvest-platform/services/account"
	"coinvest-platform/services/investment"
	"coinvest-platform/services/plan"
	"coinvest-platform/services/portfolio"
	"coinvest-platform/services/referral"
)

func main() {
	opts := []fx.Option{
		config.Module,
		logger.Module,
		db.Module,
		redis.Module,
		task.Client,
		sequence.Module,
		gen.Module,
		featureflags.Module,
		otelcol.Module,
		health.Module,
		plan.Module,
		account.Module,
		portfolio.Module,
		investment.Module,
		referral.Module,
		httpapi.Module,
		server.ProvideHTTPServer,
		fx.Invoke(db.Otel, db.Metric, autoMigrate),
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func autoMigrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&account.Account{},
		&investment.Investment{},
		&referral.Code{},
		&referral.Usage{},
		&portfolio.Entry{},
		&portfolio.Balance{},
	)
}
