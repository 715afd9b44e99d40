package rpc

import (
	"fmt"
	"net"
	"os"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/dataset"
)

// Transport binds a DatasetServer to a Unix domain socket. There is no TLS:
// the socket's filesystem permissions are the access boundary, since only
// processes that can already open the workspace can reach it. Nothing here
// is exposed over the network.
type Transport struct {
	grpc   *grpc.Server
	listen net.Listener
	log    zerolog.Logger
}

// Listen creates the gRPC server and binds it to socketPath, replacing any
// stale socket file left behind by a prior process (the workspace lock in
// internal/workspace already guarantees only one live process reaches
// here).
func Listen(socketPath string, mgr *dataset.Manager) (*Transport, error) {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket %s: %w", socketPath, err)
	}

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", socketPath, err)
	}

	srv := grpc.NewServer()
	RegisterDatasetServer(srv, NewServer(mgr))

	return &Transport{
		grpc:   srv,
		listen: lis,
		log:    applog.WithComponent("rpc"),
	}, nil
}

// Serve blocks, accepting connections until Stop is called. It always
// returns a non-nil error, per grpc.Server.Serve's contract; a clean
// shutdown reports grpc.ErrServerStopped.
func (t *Transport) Serve() error {
	t.log.Info().Str("addr", t.listen.Addr().String()).Msg("rpc transport listening")
	return t.grpc.Serve(t.listen)
}

// Stop gracefully drains in-flight RPCs and stops accepting new ones.
func (t *Transport) Stop() {
	t.grpc.GracefulStop()
}

// Addr returns the bound socket path.
func (t *Transport) Addr() string {
	return t.listen.Addr().String()
}
