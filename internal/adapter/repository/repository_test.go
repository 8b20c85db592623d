package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wekeepgrowing/semo-keyhub/internal/domain/model"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens a private in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.Platform{},
		&model.Project{},
		&model.Tier{},
		&model.BillingEvent{},
		&model.ProcessorToken{},
		&model.Customer{},
		&model.UsageRecord{},
		&model.KeyLock{},
	))
	return db
}
