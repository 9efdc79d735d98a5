package mcp

import (
	"context"
	"io"
	"os"

	"github.com/sourcegraph/jsonrpc2"
)

// Server speaks newline-delimited JSON-RPC 2.0 to one MCP client
type Server struct {
	handler *Handler
}

// NewServer creates a server for the dispatcher's tools
func NewServer(dispatcher ToolDispatcher, info Implementation) *Server {
	return &Server{handler: NewHandler(dispatcher, info)}
}

// Serve answers requests on rwc until the peer disconnects or ctx is done.
// Requests are handled concurrently.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.PlainObjectCodec{})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(s.handler))

	s.handler.log.Info().Str("server", s.handler.info.Name).Str("version", s.handler.info.Version).Msg("MCP server listening")

	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.DisconnectNotify()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		s.handler.log.Info().Msg("client disconnected")
		return nil
	}
}

// ServeStdio serves on the process's stdin and stdout
func (s *Server) ServeStdio(ctx context.Context) error {
	return s.Serve(ctx, &stdioReadWriteCloser{reader: os.Stdin, writer: os.Stdout})
}

type stdioReadWriteCloser struct {
	reader io.ReadCloser
	writer io.WriteCloser
}

func (s *stdioReadWriteCloser) Read(p []byte) (int, error) {
	return s.reader.Read(p)
}

func (s *stdioReadWriteCloser) Write(p []byte) (int, error) {
	return s.writer.Write(p)
}

func (s *stdioReadWriteCloser) Close() error {
	rerr := s.reader.Close()
	werr := s.writer.Close()
	if rerr != nil {
		return rerr
	}
	return werr
}
