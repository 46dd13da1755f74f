package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn := buildDSN(Config{Path: "/tmp/app.db"})
	assert.Contains(t, dsn, "file:/tmp/app.db?")
	assert.Contains(t, dsn, "_busy_timeout=5000")
	assert.Contains(t, dsn, "_foreign_keys=on")
	assert.Contains(t, dsn, "_journal_mode=WAL")
	assert.Contains(t, dsn, "_txlock=immediate")

	dsn = buildDSN(Config{Path: "/tmp/app.db", BusyTimeout: 250 * time.Millisecond})
	assert.Contains(t, dsn, "_busy_timeout=250")
}

func TestNew_EnforcesForeignKeys(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec(`CREATE TABLE parents (id INTEGER PRIMARY KEY);
		CREATE TABLE children (id INTEGER PRIMARY KEY, parent_id INTEGER NOT NULL REFERENCES parents(id));`)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO children (parent_id) VALUES (42)")
	assert.Error(t, err)
}

func TestDB_BeginTxKeepsContextSignature(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := db.BeginTx(ctx, &sql.TxOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExecTx_RollsBackOnError(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("CREATE TABLE items (name TEXT NOT NULL)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = db.execTx(context.Background(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO items (name) VALUES ('lost')"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	require.NoError(t, db.execTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO items (name) VALUES ('kept')")
		return err
	}))

	var names []string
	rows, err := db.Query("SELECT name FROM items")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"kept"}, names)
}

func TestExecTx_PanicRollsBack(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Exec("CREATE TABLE items (name TEXT NOT NULL)")
	require.NoError(t, err)

	assert.Panics(t, func() {
		_ = db.execTx(context.Background(), func(tx *sql.Tx) error {
			_, _ = tx.Exec("INSERT INTO items (name) VALUES ('lost')")
			panic("migration exploded")
		})
	})

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM items").Scan(&count))
	assert.Zero(t, count)
}
