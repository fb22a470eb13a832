package dao

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "dao.db")
	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, InitTables(db))

	return db
}

func seedAccount(t *testing.T, d *AccountDAO, userName string, balance int64) Account {
	t.Helper()

	a, err := d.Insert(context.Background(), Account{
		Name:     "Name " + userName,
		UserName: userName,
		Password: "hashed",
		Balance:  balance,
	})
	require.NoError(t, err)

	return a
}

func seedItem(t *testing.T, d *ItemDAO, name string, price int64, ownerID uint) Item {
	t.Helper()

	it, err := d.Insert(context.Background(), Item{Name: name, Price: price, OwnerID: ownerID})
	require.NoError(t, err)

	return it
}
