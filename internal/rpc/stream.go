package rpc

import "google.golang.org/grpc"

// The three interfaces below are the hand-written equivalents of what
// protoc-gen-go-grpc emits per streaming method: a typed Send/Recv view
// over the untyped grpc.ServerStream, so handler bodies never touch
// SendMsg/RecvMsg directly.

// Dataset_WriteServer is the server-side view of the client-streaming
// Write RPC.
type Dataset_WriteServer interface {
	Recv() (*BatchMessage, error)
	SendAndClose(*WriteSummary) error
	grpc.ServerStream
}

type datasetWriteServer struct {
	grpc.ServerStream
}

func (s *datasetWriteServer) Recv() (*BatchMessage, error) {
	m := new(BatchMessage)
	if err := s.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *datasetWriteServer) SendAndClose(resp *WriteSummary) error {
	return s.SendMsg(resp)
}

// Dataset_ListServer is the server-side view of the server-streaming List
// RPC.
type Dataset_ListServer interface {
	Send(*DatasetWire) error
	grpc.ServerStream
}

type datasetListServer struct {
	grpc.ServerStream
}

func (s *datasetListServer) Send(d *DatasetWire) error {
	return s.SendMsg(d)
}

// Dataset_SubscribeServer is the server-side view of the server-streaming
// Subscribe RPC.
type Dataset_SubscribeServer interface {
	Send(*EventWire) error
	grpc.ServerStream
}

type datasetSubscribeServer struct {
	grpc.ServerStream
}

func (s *datasetSubscribeServer) Send(ev *EventWire) error {
	return s.SendMsg(ev)
}
