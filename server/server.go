// Package server exposes program execution as a Connect service. Each
// request runs on a fresh machine; the server owns the journal and the
// worker that serializes runs.
package server

import (
	"context"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/icvm/store"
)

// RunnerServer serves the runner service over Connect (HTTP/JSON and
// HTTP/CBOR on the same port).
type RunnerServer struct {
	worker  *Worker
	service *RunnerService
	journal *store.Store
	mux     *http.ServeMux
	httpSrv *http.Server
	log     commonlog.Logger
}

// ServerOption configures a RunnerServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	journal   *store.Store
	stepLimit uint64
}

// WithJournal records every completed run in the given store.
func WithJournal(s *store.Store) ServerOption {
	return func(c *serverConfig) { c.journal = s }
}

// WithStepLimit bounds the instruction count of every run the server
// executes. Without this, submitted programs may run forever.
func WithStepLimit(n uint64) ServerOption {
	return func(c *serverConfig) { c.stepLimit = n }
}

// New creates a RunnerServer.
func New(opts ...ServerOption) (*RunnerServer, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	cborCodec, err := newCBORCodec()
	if err != nil {
		return nil, err
	}
	codecs := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithCodec(cborCodec),
	}

	worker := NewWorker()
	svc := NewRunnerService(worker, cfg.journal, cfg.stepLimit)

	s := &RunnerServer{
		worker:  worker,
		service: svc,
		journal: cfg.journal,
		mux:     http.NewServeMux(),
		log:     commonlog.GetLogger("icvm.server"),
	}

	s.mux.Handle(RunProcedure, connect.NewUnaryHandler(RunProcedure, svc.Run, codecs...))
	s.mux.Handle(DisassembleProcedure, connect.NewUnaryHandler(DisassembleProcedure, svc.Disassemble, codecs...))
	s.mux.Handle(ChainProcedure, connect.NewUnaryHandler(ChainProcedure, svc.Chain, codecs...))

	return s, nil
}

// Handler returns the server's HTTP handler, for embedding in another
// mux or a test server.
func (s *RunnerServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address. The
// address should be in the form "host:port" or ":port".
func (s *RunnerServer) ListenAndServe(addr string) error {
	s.log.Noticef("runner service listening on %s", addr)
	s.log.Infof("POST http://%s%s", addr, RunProcedure)
	s.httpSrv = &http.Server{Addr: addr, Handler: s.mux}
	return s.httpSrv.ListenAndServe()
}

// Stop shuts down the server and its worker.
func (s *RunnerServer) Stop() {
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			s.log.Errorf("shutdown: %s", err.Error())
		}
	}
	s.worker.Stop()
}
