package grpccodec

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// Stub is an RPC client stub that sends and receives records.
type Stub struct {
	channel grpc.ClientConnInterface
	opts    []grpc.CallOption
}

// NewStub creates a new RPC stub that uses the given channel for dispatching
// RPCs.
func NewStub(channel grpc.ClientConnInterface, opts ...StubOption) *Stub {
	stub := &Stub{channel: channel}
	for _, opt := range opts {
		opt.apply(stub)
	}
	return stub
}

// StubOption is an option that can be used to customize behavior when
// creating a Stub.
type StubOption interface {
	apply(*Stub)
}

type stubOptionFunc func(*Stub)

func (s stubOptionFunc) apply(stub *Stub) {
	s(stub)
}

// WithCallOptions returns a StubOption that adds the given call options to
// every RPC the stub sends.
func WithCallOptions(opts ...grpc.CallOption) StubOption {
	return stubOptionFunc(func(s *Stub) {
		s.opts = append(s.opts, opts...)
	})
}

func (s *Stub) callOptions(opts []grpc.CallOption) []grpc.CallOption {
	all := make([]grpc.CallOption, 0, 1+len(s.opts)+len(opts))
	all = append(all, grpc.CallContentSubtype(Name))
	all = append(all, s.opts...)
	return append(all, opts...)
}

// checkMethod verifies that method looks like "/package.Service/Method".
func checkMethod(method string) error {
	svc, name, ok := strings.Cut(strings.TrimPrefix(method, "/"), "/")
	if !strings.HasPrefix(method, "/") || !ok || svc == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("invalid method name %q: want /package.Service/Method", method)
	}
	return nil
}

// Invoke sends a unary RPC and decodes the response into resp. Use this for
// unary methods.
func (s *Stub) Invoke(ctx context.Context, method string, req, resp any, opts ...grpc.CallOption) error {
	if err := checkMethod(method); err != nil {
		return err
	}
	return s.channel.Invoke(ctx, method, req, resp, s.callOptions(opts)...)
}

// InvokeServerStream sends a request and returns the response stream. Use
// this for server-streaming methods.
func (s *Stub) InvokeServerStream(ctx context.Context, method string, req any, opts ...grpc.CallOption) (*ServerStream, error) {
	if err := checkMethod(method); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sd := grpc.StreamDesc{
		StreamName:    method[strings.LastIndexByte(method, '/')+1:],
		ServerStreams: true,
	}
	cs, err := s.channel.NewStream(ctx, &sd, method, s.callOptions(opts)...)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		cancel()
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		cancel()
		return nil, err
	}
	go func() {
		// when the new stream is finished, also cleanup the parent context
		<-cs.Context().Done()
		cancel()
	}()
	return &ServerStream{stream: cs}, nil
}

// InvokeBidiStream opens a stream on which records are both sent and
// received. Use this for client-streaming and bidi-streaming methods.
func (s *Stub) InvokeBidiStream(ctx context.Context, method string, opts ...grpc.CallOption) (*BidiStream, error) {
	if err := checkMethod(method); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	sd := grpc.StreamDesc{
		StreamName:    method[strings.LastIndexByte(method, '/')+1:],
		ServerStreams: true,
		ClientStreams: true,
	}
	cs, err := s.channel.NewStream(ctx, &sd, method, s.callOptions(opts)...)
	if err != nil {
		cancel()
		return nil, err
	}
	go func() {
		<-cs.Context().Done()
		cancel()
	}()
	return &BidiStream{stream: cs}, nil
}

// ServerStream represents a response stream from a server.
type ServerStream struct {
	stream grpc.ClientStream
}

// Header returns any header metadata sent by the server (blocks if necessary
// until headers are received).
func (s *ServerStream) Header() (metadata.MD, error) {
	return s.stream.Header()
}

// Trailer returns the trailer metadata sent by the server. It must only be
// called after RecvMsg returns a non-nil error (which may be EOF for normal
// completion of stream).
func (s *ServerStream) Trailer() metadata.MD {
	return s.stream.Trailer()
}

// Context returns the context associated with this streaming operation.
func (s *ServerStream) Context() context.Context {
	return s.stream.Context()
}

// RecvMsg decodes the next response into resp. It returns io.EOF when the
// stream completes successfully.
func (s *ServerStream) RecvMsg(resp any) error {
	return s.stream.RecvMsg(resp)
}

// BidiStream represents a stream on which records are sent and received.
type BidiStream struct {
	stream grpc.ClientStream
}

// Header returns any header metadata sent by the server (blocks if necessary
// until headers are received).
func (s *BidiStream) Header() (metadata.MD, error) {
	return s.stream.Header()
}

// Trailer returns the trailer metadata sent by the server. It must only be
// called after RecvMsg returns a non-nil error (which may be EOF for normal
// completion of stream).
func (s *BidiStream) Trailer() metadata.MD {
	return s.stream.Trailer()
}

// Context returns the context associated with this streaming operation.
func (s *BidiStream) Context() context.Context {
	return s.stream.Context()
}

// SendMsg sends a request message to the server.
func (s *BidiStream) SendMsg(req any) error {
	return s.stream.SendMsg(req)
}

// CloseSend indicates the request stream has ended. Invoke this after all
// request messages are sent (even if there are zero such messages).
func (s *BidiStream) CloseSend() error {
	return s.stream.CloseSend()
}

// RecvMsg decodes the next response into resp. It returns io.EOF when the
// stream completes successfully.
func (s *BidiStream) RecvMsg(resp any) error {
	return s.stream.RecvMsg(resp)
}
