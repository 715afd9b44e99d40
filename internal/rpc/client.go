package rpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// dialUnix is the contextDialer grpc.Dial needs to reach a Unix domain
// socket instead of a TCP address.
func dialUnix(ctx context.Context, socketPath string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", socketPath)
}

// Client is a thin wrapper over a *grpc.ClientConn to the Dataset service.
// There is no generated DatasetClient stub (see codec.go and DESIGN.md), so
// every method below issues its RPC directly through conn.Invoke/NewStream
// against the hand-written ServiceName paths.
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to the Dataset service over the Unix socket at socketPath.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix:"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return dialUnix(ctx, socketPath)
		}),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(jsonCodec{}.Name())),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Create(ctx context.Context, req *CreateDatasetRequest) (*CreateDatasetResponse, error) {
	out := new(CreateDatasetResponse)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Create", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, req *GetDatasetRequest) (*DatasetWire, error) {
	out := new(DatasetWire)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Get", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, req *UpdateDatasetRequest) (*DatasetWire, error) {
	out := new(DatasetWire)
	if err := c.conn.Invoke(ctx, "/"+ServiceName+"/Update", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Delete(ctx context.Context, req *DeleteDatasetRequest) error {
	return c.conn.Invoke(ctx, "/"+ServiceName+"/Delete", req, new(Empty))
}

// WriteStream is the client side of the client-streaming Write RPC.
type WriteStream struct {
	stream grpc.ClientStream
}

// Write opens a Write stream. The caller must Send the first BatchMessage
// carrying the write token before any subsequent batches.
func (c *Client) Write(ctx context.Context) (*WriteStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Write", ClientStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/Write")
	if err != nil {
		return nil, err
	}
	return &WriteStream{stream: stream}, nil
}

func (w *WriteStream) Send(msg *BatchMessage) error {
	return w.stream.SendMsg(msg)
}

// CloseAndRecv half-closes the send side and waits for the server's
// WriteSummary.
func (w *WriteStream) CloseAndRecv() (*WriteSummary, error) {
	if err := w.stream.CloseSend(); err != nil {
		return nil, err
	}
	out := new(WriteSummary)
	if err := w.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListStream is the client side of the server-streaming List RPC.
type ListStream struct {
	stream grpc.ClientStream
}

func (c *Client) List(ctx context.Context, req *ListDatasetsRequest) (*ListStream, error) {
	desc := &grpc.StreamDesc{StreamName: "List", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/List")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &ListStream{stream: stream}, nil
}

// Recv returns io.EOF once the server has sent every dataset.
func (l *ListStream) Recv() (*DatasetWire, error) {
	out := new(DatasetWire)
	if err := l.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// EventStream is the client side of the server-streaming Subscribe RPC.
type EventStream struct {
	stream grpc.ClientStream
}

func (c *Client) Subscribe(ctx context.Context) (*EventStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Subscribe", ServerStreams: true}
	stream, err := c.conn.NewStream(ctx, desc, "/"+ServiceName+"/Subscribe")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&SubscribeRequest{}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &EventStream{stream: stream}, nil
}

func (e *EventStream) Recv() (*EventWire, error) {
	out := new(EventWire)
	if err := e.stream.RecvMsg(out); err != nil {
		return nil, err
	}
	return out, nil
}

// defaultCallTimeout is the deadline WithCallTimeout applies. The Client
// methods do not apply it themselves; a call made with a context that has
// no deadline is not bounded.
const defaultCallTimeout = 10 * time.Second

// WithCallTimeout returns a context carrying the default unary-call
// deadline alongside its cancel func.
func WithCallTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, defaultCallTimeout)
}
