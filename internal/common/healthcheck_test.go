package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
	})
	require.NoError(t, err)
	return db, mock
}

func serve(handler http.Handler, path string) int {
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w.Code
}

func TestHealthCheckHandler(t *testing.T) {
	db, mock := newMockDB(t)
	handler := NewHealthCheckHandler(db, nil)

	assert.Equal(t, http.StatusOK, serve(handler, "/livez"))

	mock.ExpectPing()
	assert.Equal(t, http.StatusOK, serve(handler, "/readyz"))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Equal(t, http.StatusServiceUnavailable, serve(handler, "/readyz"))

	assert.Equal(t, http.StatusOK, serve(handler, "/metrics"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateSecret(t *testing.T) {
	a, err := GenerateSecret(32)
	require.NoError(t, err)
	b, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
