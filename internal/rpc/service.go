package rpc

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/friconhq/fricon/internal/applog"
	"github.com/friconhq/fricon/internal/batch"
	"github.com/friconhq/fricon/internal/dataset"
	"github.com/friconhq/fricon/internal/ferr"
)

// DatasetServer is the interface the hand-written ServiceDesc dispatches
// onto; Server below is its sole implementation. Splitting the interface
// out mirrors what protoc-gen-go-grpc generates for a service named
// "Dataset".
type DatasetServer interface {
	Create(ctx context.Context, req *CreateDatasetRequest) (*CreateDatasetResponse, error)
	Write(stream Dataset_WriteServer) error
	Get(ctx context.Context, req *GetDatasetRequest) (*DatasetWire, error)
	List(req *ListDatasetsRequest, stream Dataset_ListServer) error
	Update(ctx context.Context, req *UpdateDatasetRequest) (*DatasetWire, error)
	Delete(ctx context.Context, req *DeleteDatasetRequest) (*Empty, error)
	Subscribe(req *SubscribeRequest, stream Dataset_SubscribeServer) error
}

// Server implements DatasetServer by translating each RPC 1:1 onto a
// dataset.Manager operation and converting domain errors to transport
// status codes.
type Server struct {
	manager *dataset.Manager
	log     zerolog.Logger
}

// NewServer wraps an already-recovered dataset.Manager.
func NewServer(mgr *dataset.Manager) *Server {
	return &Server{manager: mgr, log: applog.WithComponent("rpc")}
}

func (s *Server) Create(ctx context.Context, req *CreateDatasetRequest) (*CreateDatasetResponse, error) {
	created, err := s.manager.Create(ctx, dataset.CreateRequest{
		Name:         req.Name,
		Description:  req.Description,
		Tags:         req.Tags,
		IndexColumns: req.IndexColumns,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &CreateDatasetResponse{Token: created.Token, Dataset: datasetToWire(created.Dataset)}, nil
}

// batchStreamSource adapts the Write RPC's incoming stream to
// dataset.BatchSource. The first message (carrying the write token) may
// already hold the first batch, so it is buffered and replayed once before
// falling through to the stream for every subsequent call.
type batchStreamSource struct {
	stream  Dataset_WriteServer
	pending *BatchMessage
}

func (b *batchStreamSource) Recv(ctx context.Context) (batch.Batch, error) {
	if b.pending != nil {
		msg := b.pending
		b.pending = nil
		return batchFromWire(msg), nil
	}
	msg, err := b.stream.Recv()
	if err != nil {
		return batch.Batch{}, err
	}
	return batchFromWire(msg), nil
}

func (s *Server) Write(stream Dataset_WriteServer) error {
	first, err := stream.Recv()
	if err == io.EOF {
		return toStatus(ferr.New(ferr.CodeTransport, "write stream closed before any message"))
	}
	if err != nil {
		return toStatus(ferr.Wrap(ferr.CodeTransport, "receive write header", err))
	}

	src := &batchStreamSource{stream: stream}
	if len(first.Columns) > 0 {
		src.pending = first
	}

	summary, err := s.manager.Write(stream.Context(), first.Token, src)
	if err != nil {
		return toStatus(err)
	}
	return stream.SendAndClose(&WriteSummary{Rows: summary.Rows, Chunks: summary.Chunks})
}

func (s *Server) Get(ctx context.Context, req *GetDatasetRequest) (*DatasetWire, error) {
	var result dataset.Result
	var err error
	if req.UUID != "" {
		id, parseErr := uuid.Parse(req.UUID)
		if parseErr != nil {
			return nil, toStatus(ferr.Wrap(ferr.CodeNotFound, "parse dataset uuid", parseErr))
		}
		result, err = s.manager.GetByUUID(ctx, id)
	} else {
		result, err = s.manager.GetByID(ctx, req.ID)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	wire := datasetToWire(result.Dataset)
	return &wire, nil
}

func (s *Server) List(req *ListDatasetsRequest, stream Dataset_ListServer) error {
	rows, err := s.manager.List(stream.Context(), listParamsFromWire(req))
	if err != nil {
		return toStatus(err)
	}
	for _, ds := range rows {
		wire := datasetToWire(ds)
		if err := stream.Send(&wire); err != nil {
			return toStatus(ferr.Wrap(ferr.CodeTransport, "send list item", err))
		}
	}
	return nil
}

func (s *Server) Update(ctx context.Context, req *UpdateDatasetRequest) (*DatasetWire, error) {
	ds, err := s.manager.Update(ctx, req.ID, metadataPatchFromWire(req))
	if err != nil {
		return nil, toStatus(err)
	}
	wire := datasetToWire(ds)
	return &wire, nil
}

func (s *Server) Delete(ctx context.Context, req *DeleteDatasetRequest) (*Empty, error) {
	if err := s.manager.Delete(ctx, req.ID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (s *Server) Subscribe(req *SubscribeRequest, stream Dataset_SubscribeServer) error {
	sub := s.manager.Subscribe()
	defer s.manager.Unsubscribe(sub)

	ctx := stream.Context()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return nil
			}
			wire := eventToWire(ev)
			if err := stream.Send(&wire); err != nil {
				return toStatus(ferr.Wrap(ferr.CodeTransport, "send event", err))
			}
		case <-ctx.Done():
			return nil
		}
	}
}
