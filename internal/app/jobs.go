package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/openshelf/prodsync/internal/domain"
)

// workbenchMaxIdle is how long an editing workbench may sit unused before
// its store subscription is reclaimed.
const workbenchMaxIdle = 30 * time.Minute

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	_, err = a.sched.AddFunc("@every 5m", func() {
		a.workbenches.Sweep(workbenchMaxIdle)
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@hourly", func() {
		a.authSvc.PurgeExpiredTokens(context.Background())
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		a.SchedCatalogStatsTask()
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// SchedCatalogStatsTask logs a daily size line for the catalog.
func (a *Application) SchedCatalogStatsTask() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()

	var products, accounts int64
	a.gormDB.Model(&domain.Product{}).Count(&products)
	a.gormDB.Model(&domain.AuthUser{}).Count(&accounts)
	zap.L().Info("catalog stats",
		zap.Int64("products", products),
		zap.Int64("accounts", accounts),
	)
}
