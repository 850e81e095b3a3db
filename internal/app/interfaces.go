package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/openshelf/prodsync/config"
	"github.com/openshelf/prodsync/internal/auth"
	"github.com/openshelf/prodsync/internal/catalog"
	"github.com/openshelf/prodsync/internal/store"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// StoreProvider provides the catalog record store
type StoreProvider interface {
	Store() store.RecordStore
}

// AuthProvider provides the account/session service
type AuthProvider interface {
	Auth() *auth.Service
}

// WorkbenchProvider provides the per-user controller manager
type WorkbenchProvider interface {
	Workbenches() *catalog.Manager
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// AppContext combines all provider interfaces for full application context.
// Services should depend on specific providers or this combined interface.
type AppContext interface {
	DBProvider
	ConfigProvider
	StoreProvider
	AuthProvider
	WorkbenchProvider
	SchedulerProvider

	MigrateDB() error
	Release()
}
