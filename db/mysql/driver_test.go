package mysql

import (
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN_ForcesParseTime(t *testing.T) {
	out, err := normalizeDSN("plates:secret@tcp(db:3306)/ledger")
	require.NoError(t, err)

	cfg, err := gomysql.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "ledger", cfg.DBName)
	assert.Equal(t, "db:3306", cfg.Addr)
}

func TestNormalizeDSN_OverridesParseTimeFalse(t *testing.T) {
	out, err := normalizeDSN("u:p@tcp(db:3306)/ledger?parseTime=false&timeout=5s")
	require.NoError(t, err)

	cfg, err := gomysql.ParseDSN(out)
	require.NoError(t, err)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
}

func TestOpen_RejectsBadDSN(t *testing.T) {
	_, err := Open("", Pool{})
	assert.Error(t, err)

	_, err = Open("not a dsn", Pool{})
	assert.Error(t, err)
}
