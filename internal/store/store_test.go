package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchtrace/lbrd/internal/engine"
	"github.com/branchtrace/lbrd/internal/hw"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendAndList(t *testing.T) {
	s := openTestStore(t)

	snap := &engine.Snapshot{
		Pid:    100,
		Filter: 0x1c4,
		Tos:    2,
		CPU:    1,
		Time:   time.Now(),
		Entries: []hw.Entry{
			{From: 0x400000, To: 0x401000},
			{From: 0x401000, To: 0x402000},
		},
	}
	require.NoError(t, s.Append(snap))

	got, err := s.ListByPid(100, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint32(100), got[0].Pid)
	assert.Equal(t, uint64(0x1c4), got[0].Filter)
	assert.Equal(t, uint64(2), got[0].Tos)
	assert.Equal(t, 1, got[0].CPU)
	assert.Equal(t, snap.Entries, got[0].Entries)
}

func TestListNewestFirst(t *testing.T) {
	s := openTestStore(t)

	for tos := uint64(1); tos <= 3; tos++ {
		require.NoError(t, s.Append(&engine.Snapshot{
			Pid: 100, Tos: tos, Time: time.Now(), Entries: []hw.Entry{},
		}))
	}

	got, err := s.ListByPid(100, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(3), got[0].Tos)
	assert.Equal(t, uint64(2), got[1].Tos)
}

func TestListOtherPidEmpty(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Append(&engine.Snapshot{
		Pid: 100, Time: time.Now(), Entries: []hw.Entry{},
	}))

	got, err := s.ListByPid(200, 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
