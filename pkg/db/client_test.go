package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

type ledgerRow struct {
	ID     int64
	Serial string
}

func openTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.DBConfig{
		Driver: DriverSQLite,
		DSN:    "file:db_" + uuid.NewString() + "?mode=memory&cache=shared",
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.DB().AutoMigrate(&ledgerRow{}))
	return client
}

func countRows(t *testing.T, client *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, client.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.DBConfig{Driver: "oracle", DSN: "x"}, nil)
	require.Error(t, err)
	_, err = New(context.Background(), config.DBConfig{Driver: DriverSQLite}, nil)
	require.Error(t, err)
}

func TestWithTxCommitRollbackAndPanic(t *testing.T) {
	client := openTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Serial: "SN-1"}).Error
	}))
	assert.EqualValues(t, 1, countRows(t, client))

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Serial: "SN-2"}).Error)
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")
	assert.EqualValues(t, 1, countRows(t, client))

	assert.Panics(t, func() {
		_ = client.WithTx(ctx, func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Serial: "SN-3"}).Error)
			panic("crash mid-transaction")
		})
	})
	assert.EqualValues(t, 1, countRows(t, client))
	require.NoError(t, client.Ping(ctx))
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "db-test", Level: zerolog.DebugLevel, Output: &buf})
	ql := newQueryLogger(logg, 10*time.Millisecond)
	ctx := context.Background()
	stmt := func() (string, int64) { return "SELECT * FROM units", 3 }

	ql.Trace(ctx, time.Now(), stmt, nil)
	assert.Empty(t, buf.String(), "fast successful queries stay quiet")

	ql.Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String(), "record not found is not a failure")

	ql.Trace(ctx, time.Now().Add(-50*time.Millisecond), stmt, nil)
	assert.Contains(t, buf.String(), "slow query")
	buf.Reset()

	ql.Trace(ctx, time.Now(), stmt, errors.New("deadlock"))
	assert.True(t, strings.Contains(buf.String(), "query failed") && strings.Contains(buf.String(), "SELECT * FROM units"))
	buf.Reset()

	ql.LogMode(gormlogger.Silent).Trace(ctx, time.Now(), stmt, errors.New("deadlock"))
	assert.Empty(t, buf.String())
}
