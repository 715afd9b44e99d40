package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/friconhq/fricon/internal/rpc"
	"github.com/friconhq/fricon/internal/workspace"
)

func TestOpenServesAndShutsDownGracefully(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	ws, err := workspace.Init(root)
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	a, err := Open(Config{WorkspaceRoot: root})
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	serveErr := make(chan error, 1)
	go func() { serveErr <- a.Serve(ctx) }()

	client, err := rpc.Dial(ws.SocketPath())
	require.NoError(t, err)
	defer client.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	_, err = client.Create(callCtx, &rpc.CreateDatasetRequest{Name: "t", IndexColumns: []string{"t"}})
	require.NoError(t, err)

	cancel()

	select {
	case err := <-serveErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down in time")
	}
}

func TestManagerExposesInProcessAccess(t *testing.T) {
	root := filepath.Join(t.TempDir(), "ws")
	ws, err := workspace.Init(root)
	require.NoError(t, err)
	require.NoError(t, ws.Close())

	a, err := Open(Config{WorkspaceRoot: root})
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Manager())
}
