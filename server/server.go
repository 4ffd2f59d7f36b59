package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/chazu/oops/vm"
)

// Procedure paths. Every procedure takes and returns a
// google.protobuf.Struct.
const (
	EvaluateProcedure    = "/oops.v1.EvaluationService/Evaluate"
	CheckSyntaxProcedure = "/oops.v1.EvaluationService/CheckSyntax"

	CreateSessionProcedure  = "/oops.v1.SessionService/CreateSession"
	DestroySessionProcedure = "/oops.v1.SessionService/DestroySession"
	ListSessionsProcedure   = "/oops.v1.SessionService/ListSessions"
	CompleteProcedure       = "/oops.v1.SessionService/Complete"

	ListClassesProcedure      = "/oops.v1.BrowsingService/ListClasses"
	GetClassProcedure         = "/oops.v1.BrowsingService/GetClass"
	GetMethodProcedure        = "/oops.v1.BrowsingService/GetMethod"
	FindImplementorsProcedure = "/oops.v1.BrowsingService/FindImplementors"

	CreateClassProcedure   = "/oops.v1.ModificationService/CreateClass"
	CompileMethodProcedure = "/oops.v1.ModificationService/CompileMethod"
	SaveImageProcedure     = "/oops.v1.ModificationService/SaveImage"
	LoadImageProcedure     = "/oops.v1.ModificationService/LoadImage"

	InspectProcedure       = "/oops.v1.InspectionService/Inspect"
	SendMessageProcedure   = "/oops.v1.InspectionService/SendMessage"
	ReleaseHandleProcedure = "/oops.v1.InspectionService/ReleaseHandle"
)

const (
	handleSweepInterval = 5 * time.Minute
	handleTTL           = 30 * time.Minute
)

// Server exposes interpreter sessions over Connect (HTTP/JSON and
// binary protobuf on the same port).
type Server struct {
	handles  *HandleStore
	sessions *SessionStore
	mux      *http.ServeMux
	log      commonlog.Logger

	stopSweeper func()
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	vmOpts []vm.Option
	log    commonlog.Logger
}

// WithInterpreterOptions sets the options every session's interpreter is
// built with.
func WithInterpreterOptions(opts ...vm.Option) Option {
	return func(c *serverConfig) { c.vmOpts = append(c.vmOpts, opts...) }
}

// WithLogger replaces the default "oops.server" logger.
func WithLogger(log commonlog.Logger) Option {
	return func(c *serverConfig) { c.log = log }
}

type unaryFunc func(context.Context, *connect.Request[structpb.Struct]) (*connect.Response[structpb.Struct], error)

// New creates a Server with a default session.
func New(opts ...Option) *Server {
	cfg := &serverConfig{log: commonlog.GetLogger("oops.server")}
	for _, opt := range opts {
		opt(cfg)
	}

	handles := NewHandleStore()
	sessions := NewSessionStore(handles, cfg.vmOpts...)

	s := &Server{
		handles:  handles,
		sessions: sessions,
		mux:      http.NewServeMux(),
		log:      cfg.log,
	}

	evalSvc := NewEvalService(sessions, handles)
	sessionSvc := NewSessionService(sessions, cfg.log)
	browseSvc := NewBrowseService(sessions)
	modifySvc := NewModifyService(sessions)
	inspectSvc := NewInspectService(sessions, handles)

	routes := map[string]unaryFunc{
		EvaluateProcedure:    evalSvc.Evaluate,
		CheckSyntaxProcedure: evalSvc.CheckSyntax,

		CreateSessionProcedure:  sessionSvc.CreateSession,
		DestroySessionProcedure: sessionSvc.DestroySession,
		ListSessionsProcedure:   sessionSvc.ListSessions,
		CompleteProcedure:       sessionSvc.Complete,

		ListClassesProcedure:      browseSvc.ListClasses,
		GetClassProcedure:         browseSvc.GetClass,
		GetMethodProcedure:        browseSvc.GetMethod,
		FindImplementorsProcedure: browseSvc.FindImplementors,

		CreateClassProcedure:   modifySvc.CreateClass,
		CompileMethodProcedure: modifySvc.CompileMethod,
		SaveImageProcedure:     modifySvc.SaveImage,
		LoadImageProcedure:     modifySvc.LoadImage,

		InspectProcedure:       inspectSvc.Inspect,
		SendMessageProcedure:   inspectSvc.SendMessage,
		ReleaseHandleProcedure: inspectSvc.ReleaseHandle,
	}
	for procedure, fn := range routes {
		s.mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn))
	}

	s.stopSweeper = handles.StartSweeper(handleSweepInterval, handleTTL)
	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Sessions returns the server's session store.
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// ListenAndServe serves on addr ("host:port" or ":port") until the
// listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Infof("listening on %s", addr)
	s.log.Infof("Connect (HTTP/JSON): http://%s%s", addr, EvaluateProcedure)
	err := http.ListenAndServe(addr, s.mux)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the handle sweeper and every session.
func (s *Server) Stop() {
	if s.stopSweeper != nil {
		s.stopSweeper()
	}
	s.sessions.StopAll()
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client calls a Server's procedures.
type Client struct {
	httpClient connect.HTTPClient
	baseURL    string
}

// NewClient creates a client for the server at baseURL, such as
// "http://127.0.0.1:7117".
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// Call invokes procedure with a request built from req, a JSON-shaped
// map. Errors carry the server's Connect code.
func (c *Client) Call(ctx context.Context, procedure string, req map[string]any) (map[string]any, error) {
	msg, err := structpb.NewStruct(req)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	client := connect.NewClient[structpb.Struct, structpb.Struct](c.httpClient, c.baseURL+procedure)
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg.AsMap(), nil
}

// Evaluate runs source in a session ("" for the default one).
func (c *Client) Evaluate(ctx context.Context, session, source string) (map[string]any, error) {
	req := map[string]any{"source": source}
	if session != "" {
		req["session"] = session
	}
	return c.Call(ctx, EvaluateProcedure, req)
}
