package repository

import (
	"context"
	"testing"

	"threads/internal/models"
	"threads/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}

func seedUser(t *testing.T, db *gorm.DB, externalID, username, name string) *models.User {
	t.Helper()
	u := &models.User{ExternalID: externalID, Username: username, Name: name, Onboarded: true}
	require.NoError(t, NewUserRepository(db).Upsert(context.Background(), u))
	return u
}

func seedThread(t *testing.T, db *gorm.DB, authorID uint, text string, parentID *uint) *models.Thread {
	t.Helper()
	th := &models.Thread{Text: text, AuthorID: authorID, ParentID: parentID}
	require.NoError(t, NewThreadRepository(db).Create(context.Background(), th))
	return th
}
