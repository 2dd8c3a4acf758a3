package warehouse

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/malbeclabs/warehouse-gateway/internal/config"
)

func TestWarehouse_ManagerConfig_Validate(t *testing.T) {
	t.Parallel()

	t.Run("requires logger", func(t *testing.T) {
		t.Parallel()

		cfg := ManagerConfig{Config: testConfig, Opener: SnowflakeOpener}
		require.EqualError(t, cfg.Validate(), "logger is required")
	})

	t.Run("requires opener", func(t *testing.T) {
		t.Parallel()

		cfg := ManagerConfig{Logger: testLogger(t), Config: testConfig}
		require.EqualError(t, cfg.Validate(), "opener is required")
	})

	t.Run("defaults to a single connect attempt", func(t *testing.T) {
		t.Parallel()

		cfg := ManagerConfig{Logger: testLogger(t), Config: testConfig, Opener: SnowflakeOpener}
		require.NoError(t, cfg.Validate())
		require.Equal(t, uint(1), cfg.ConnectAttempts)
	})
}

func TestWarehouse_Manager_DB(t *testing.T) {
	t.Parallel()

	t.Run("reuses the handle across calls", func(t *testing.T) {
		t.Parallel()

		first := &countingDB{}
		opener := &countingOpener{dbs: []*countingDB{first, {}}}
		m := testManager(t, opener.open)
		require.Equal(t, StateAbsent, m.State())

		db1, err := m.DB(t.Context())
		require.NoError(t, err)
		db2, err := m.DB(t.Context())
		require.NoError(t, err)

		require.Same(t, first, db1)
		require.Same(t, db1, db2)
		require.Equal(t, 1, opener.count())
		require.Equal(t, StateOpen, m.State())
	})

	t.Run("replaces a handle whose ping fails", func(t *testing.T) {
		t.Parallel()

		first, second := &countingDB{}, &countingDB{}
		opener := &countingOpener{dbs: []*countingDB{first, second}}
		m := testManager(t, opener.open)

		db, err := m.DB(t.Context())
		require.NoError(t, err)
		require.Same(t, first, db)

		first.setPingErr(errors.New("connection closed"))

		db, err = m.DB(t.Context())
		require.NoError(t, err)
		require.Same(t, second, db)
		require.Equal(t, 2, opener.count())
		require.Equal(t, int32(1), first.closes.Load())
		require.Zero(t, second.closes.Load())
	})

	t.Run("keeps the handle when the caller's context is cancelled", func(t *testing.T) {
		t.Parallel()

		first := &countingDB{}
		opener := &countingOpener{dbs: []*countingDB{first, {}}}
		m := testManager(t, opener.open)

		db, err := m.DB(t.Context())
		require.NoError(t, err)
		require.Same(t, first, db)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err = m.DB(ctx)
		require.ErrorIs(t, err, context.Canceled)
		require.Equal(t, ErrorKindConnectivity, KindOf(err))
		require.Equal(t, StateOpen, m.State())
		require.Zero(t, first.closes.Load())
		require.Equal(t, 1, opener.count())

		db, err = m.DB(t.Context())
		require.NoError(t, err)
		require.Same(t, first, db)
	})

	t.Run("returns config error when credentials are missing", func(t *testing.T) {
		t.Parallel()

		opener := &countingOpener{dbs: []*countingDB{{}}}
		m, err := NewManager(ManagerConfig{
			Logger: testLogger(t),
			Config: func() config.Snowflake { return config.Snowflake{Account: "acct", User: "user"} },
			Opener: opener.open,
		})
		require.NoError(t, err)

		_, err = m.DB(t.Context())
		require.ErrorIs(t, err, config.ErrMissingCredentials)
		require.Equal(t, ErrorKindConfig, KindOf(err))
		require.Equal(t, "missing required Snowflake connection parameters", Message(err))
		require.Zero(t, opener.count())
	})

	t.Run("returns connectivity error and stays absent when connect fails", func(t *testing.T) {
		t.Parallel()

		opener := &countingOpener{err: errors.New("dial tcp: connection refused")}
		m := testManager(t, opener.open)

		_, err := m.DB(t.Context())
		require.Error(t, err)
		require.Equal(t, ErrorKindConnectivity, KindOf(err))
		require.Equal(t, "dial tcp: connection refused", Message(err))
		require.Equal(t, StateAbsent, m.State())
		require.Equal(t, 1, opener.count())

		_, err = m.DB(t.Context())
		require.Error(t, err)
		require.Equal(t, 2, opener.count())
	})

	t.Run("closes a freshly opened handle whose ping fails", func(t *testing.T) {
		t.Parallel()

		bad := &countingDB{pingErr: errors.New("authentication failed")}
		opener := &countingOpener{dbs: []*countingDB{bad}}
		m := testManager(t, opener.open)

		_, err := m.DB(t.Context())
		require.Equal(t, ErrorKindConnectivity, KindOf(err))
		require.Equal(t, int32(1), bad.closes.Load())
		require.Equal(t, StateAbsent, m.State())
	})

	t.Run("retries connect up to the configured attempts", func(t *testing.T) {
		t.Parallel()

		good := &countingDB{}
		opener := &countingOpener{dbs: []*countingDB{{pingErr: errors.New("timeout")}, good}}
		m, err := NewManager(ManagerConfig{
			Logger:          testLogger(t),
			Config:          testConfig,
			Opener:          opener.open,
			ConnectAttempts: 3,
		})
		require.NoError(t, err)

		db, err := m.DB(t.Context())
		require.NoError(t, err)
		require.Same(t, good, db)
		require.Equal(t, 2, opener.count())
	})

	t.Run("concurrent callers share one connect", func(t *testing.T) {
		t.Parallel()

		opener := &countingOpener{dbs: []*countingDB{{}, {}, {}}}
		m := testManager(t, opener.open)

		var wg sync.WaitGroup
		results := make([]DB, 16)
		errs := make([]error, len(results))
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = m.DB(context.Background())
			}(i)
		}
		wg.Wait()

		require.Equal(t, 1, opener.count())
		for i, db := range results {
			require.NoError(t, errs[i])
			require.Same(t, results[0], db)
		}
	})
}

func TestWarehouse_Manager_Close(t *testing.T) {
	t.Parallel()

	first, second := &countingDB{}, &countingDB{}
	opener := &countingOpener{dbs: []*countingDB{first, second}}
	m := testManager(t, opener.open)

	require.NoError(t, m.Close())

	_, err := m.DB(t.Context())
	require.NoError(t, err)
	require.NoError(t, m.Close())
	require.Equal(t, int32(1), first.closes.Load())
	require.Equal(t, StateAbsent, m.State())

	db, err := m.DB(t.Context())
	require.NoError(t, err)
	require.Same(t, second, db)
}
