package daemon

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/branchtrace/lbrd/internal/engine"
	"github.com/branchtrace/lbrd/internal/hw"
	"github.com/branchtrace/lbrd/internal/registry"
	"github.com/branchtrace/lbrd/internal/store"
)

// startTestServer brings up a daemon over a tempdir socket and returns a
// client plus the bank for branch injection.
func startTestServer(t *testing.T) (*Client, *hw.SimBank) {
	t.Helper()

	bank := hw.NewSimBank(1, 8)
	bank.Flush(0, true)
	eng := engine.New(registry.New(8), bank)

	snapshots, err := store.Open(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { snapshots.Close() })

	sock := filepath.Join(t.TempDir(), "lbrd.sock")
	srv := NewServer(sock, eng, snapshots, bank.CPUs())
	require.NoError(t, srv.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	return NewClient(sock), bank
}

func TestHealth(t *testing.T) {
	client, _ := startTestServer(t)

	health, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8, health.Capacity)
	assert.Equal(t, 1, health.CPUs)
	assert.Equal(t, 0, health.Traced)
}

func TestEnableDumpDisable(t *testing.T) {
	client, bank := startTestServer(t)
	ctx := context.Background()

	require.NoError(t, client.Enable(ctx, 100, 0xf))

	// The live filter took effect immediately.
	assert.Equal(t, uint64(0xf), bank.Snapshot(0).Select)

	bank.Branch(0, 0x400000, 0x401000)

	snap, err := client.Dump(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), snap.Pid)
	assert.Equal(t, uint64(0xf), snap.Filter)
	assert.Equal(t, hw.Entry{From: 0x400000, To: 0x401000}, snap.Entries[1])

	infos, err := client.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, uint32(100), infos[0].Pid)

	require.NoError(t, client.Disable(ctx, 100))

	infos, err = client.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, infos)
	assert.False(t, bank.Enabled(0), "hardware still enabled after last disable")
}

func TestSetFilter(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	require.NoError(t, client.Enable(ctx, 100, 0xf))
	require.NoError(t, client.SetFilter(ctx, 100, 0x1c4))

	snap, err := client.Dump(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1c4), snap.Filter)
}

func TestErrorMapping(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	// Untracked pid surfaces the not-found status.
	err := client.Disable(ctx, 999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = client.Dump(ctx, 999)
	require.Error(t, err)

	err = client.SetFilter(ctx, 999, 0x1)
	require.Error(t, err)

	// Duplicate enable is an invalid argument, not a shadow record.
	require.NoError(t, client.Enable(ctx, 100, 0xf))
	err = client.Enable(ctx, 100, 0xf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid argument")
}

func TestDispatchEndpoint(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	resp, err := client.Dispatch(ctx, engine.Request{Code: engine.CodeEnable, Pid: 100})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOK, resp.Status)

	resp, err = client.Dispatch(ctx, engine.Request{Code: engine.CodeDump, Pid: 100})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusOK, resp.Status)
	require.NotNil(t, resp.Snapshot)
	assert.Equal(t, hw.DefaultFilter, resp.Snapshot.Filter)

	// Incomplete payload never reaches the registry.
	resp, err = client.Dispatch(ctx, engine.Request{Code: engine.CodeDisable})
	require.NoError(t, err)
	assert.Equal(t, engine.StatusBadRequest, resp.Status)
}

func TestMalformedJSONRejected(t *testing.T) {
	client, _ := startTestServer(t)

	// Raw request with a truncated body, bypassing the typed client.
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", client.sockPath)
			},
		},
	}
	resp, err := httpClient.Post("http://lbrd/v1/traces", "application/json",
		bytes.NewReader([]byte(`{"pid":`)))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Nothing was traced by the rejected request.
	infos, err := client.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestInvalidPidPath(t *testing.T) {
	client, _ := startTestServer(t)

	err := client.Disable(context.Background(), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid pid")
}
