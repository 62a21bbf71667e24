package lsp

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/leapstack-labs/batonlint/internal/config"
	"github.com/leapstack-labs/batonlint/pkg/lint"
	_ "github.com/leapstack-labs/batonlint/pkg/lint/rules" // Register lint rules
	"github.com/leapstack-labs/batonlint/pkg/sqlast"
)

// Server implements the Language Server Protocol for batonlint.
type Server struct {
	// Document management
	documents *DocumentStore
	scheduler *scheduler
	fixes     *fixCache

	// Lint engine and the configuration it was built from
	engine *lint.Engine
	cfg    *config.Config
	mu     sync.RWMutex

	// Project context
	projectRoot string
	initialized bool
	watcher     *fsnotify.Watcher
	loadConfig  func(root string) (*config.Config, error)

	// I/O
	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	// Logging
	logger *slog.Logger

	// Shutdown state
	shutdown   bool
	shutdownMu sync.RWMutex
	exit       func(code int)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithConfig sets the configuration used until the client names a project root.
func WithConfig(cfg *config.Config) Option {
	return func(s *Server) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithConfigLoader replaces how the project configuration is loaded.
func WithConfigLoader(fn func(root string) (*config.Config, error)) Option {
	return func(s *Server) { s.loadConfig = fn }
}

// NewServer creates a new LSP server instance.
func NewServer(reader io.Reader, writer io.Writer, opts ...Option) *Server {
	s := &Server{
		documents:  NewDocumentStore(),
		fixes:      newFixCache(),
		cfg:        config.Default(),
		loadConfig: config.LoadFromDir,
		reader:     bufio.NewReader(reader),
		writer:     writer,
		logger:     slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})),
		exit:       os.Exit,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.scheduler = newScheduler(s.cfg.Debounce)
	if err := s.applyConfig(s.cfg); err != nil {
		s.logger.Error("Invalid configuration, using defaults", "error", err)
		_ = s.applyConfig(config.Default())
	}
	return s
}

// Run starts the server's main loop, processing JSON-RPC messages.
func (s *Server) Run() error {
	s.logger.Info("batonlint LSP server starting")
	defer s.closeWatcher()

	for {
		s.shutdownMu.RLock()
		if s.shutdown {
			s.shutdownMu.RUnlock()
			return nil
		}
		s.shutdownMu.RUnlock()

		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("Client disconnected")
				return nil
			}
			s.logger.Error("Error reading message", "error", err)
			continue
		}

		if err := s.handleMessage(msg); err != nil {
			s.logger.Error("Error handling message", "method", msg.Method, "error", err)
		}
	}
}

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// readMessage reads a JSON-RPC message from the input stream.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		if lengthStr, ok := strings.CutPrefix(line, "Content-Length: "); ok {
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}
	return &msg, nil
}

// sendResponse sends a JSON-RPC response.
func (s *Server) sendResponse(id *json.RawMessage, result any, err *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}

	if err != nil {
		msg.Error = err
	} else {
		resultBytes, _ := json.Marshal(result)
		msg.Result = resultBytes
	}

	s.writeMessage(&msg)
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsBytes, _ := json.Marshal(params)
		msg.Params = paramsBytes
	}

	s.writeMessage(&msg)
}

// writeMessage writes a JSON-RPC message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("Error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := io.WriteString(s.writer, header); err != nil {
		s.logger.Error("Error writing message", "error", err)
		return
	}
	if _, err := s.writer.Write(body); err != nil {
		s.logger.Error("Error writing message", "error", err)
	}
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(msg *JSONRPCMessage) error {
	s.logger.Debug("Received", "method", msg.Method)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return s.handleInitialized(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		return s.handleExit(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	default:
		if msg.ID != nil {
			// Unknown method with ID - respond with method not found
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    -32601,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

// --- Lifecycle handlers ---

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: -32602, Message: err.Error()})
		return err
	}

	s.projectRoot = URIToPath(params.RootURI)
	if s.projectRoot == "" {
		s.projectRoot = params.RootPath
	}
	s.logger.Info("Project root", "path", s.projectRoot)

	if s.projectRoot != "" {
		if err := s.reloadConfig(); err != nil {
			s.logger.Warn("Could not load project configuration", "error", err)
		}
	}

	result := InitializeResult{
		Capabilities: ServerCapabilities{
			TextDocumentSync: &TextDocumentSyncOptions{
				OpenClose: true,
				Change:    TextDocumentSyncKindFull,
				Save: &SaveOptions{
					IncludeText: true,
				},
			},
			CodeActionProvider: &CodeActionOptions{
				CodeActionKinds: []CodeActionKind{CodeActionKindQuickFix},
			},
		},
		ServerInfo: &ServerInfo{Name: "batonlint"},
	}

	s.sendResponse(msg.ID, result, nil)
	return nil
}

func (s *Server) handleInitialized(_ *JSONRPCMessage) error {
	s.initialized = true
	s.logger.Info("Server initialized")

	if s.projectRoot != "" {
		if err := s.watchConfig(s.projectRoot); err != nil {
			s.logger.Warn("Config file watching disabled", "error", err)
		}
	}
	return nil
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()

	s.closeWatcher()
	s.sendResponse(msg.ID, nil, nil)
	s.logger.Info("Server shutdown")
	return nil
}

func (s *Server) handleExit(_ *JSONRPCMessage) error {
	s.logger.Info("Server exit")
	s.shutdownMu.RLock()
	code := 1
	if s.shutdown {
		code = 0
	}
	s.shutdownMu.RUnlock()
	s.exit(code)
	return nil
}

// --- Document handlers ---

func (s *Server) handleDidOpen(msg *JSONRPCMessage) error {
	var params DidOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.documents.Open(uri, params.TextDocument.Text, params.TextDocument.Version)
	s.logger.Info("Opened", "uri", uri)

	s.publishDiagnostics(uri, true)
	return nil
}

func (s *Server) handleDidClose(msg *JSONRPCMessage) error {
	var params DidCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.scheduler.cancel(uri)
	s.documents.Close(uri)
	s.fixes.clearURI(uri)
	engine, _ := s.current()
	engine.ForgetDocument(uri)
	s.logger.Info("Closed", "uri", uri)

	s.clearDiagnostics(uri)
	return nil
}

func (s *Server) handleDidChange(msg *JSONRPCMessage) error {
	var params DidChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	// We use full sync, so take the last change
	if len(params.ContentChanges) == 0 {
		return nil
	}
	uri := params.TextDocument.URI
	lastChange := params.ContentChanges[len(params.ContentChanges)-1]
	if !s.documents.Update(uri, lastChange.Text, params.TextDocument.Version) {
		return nil
	}

	s.scheduler.schedule(uri, func() { s.publishDiagnostics(uri, false) })
	return nil
}

func (s *Server) handleDidSave(msg *JSONRPCMessage) error {
	var params DidSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}

	uri := params.TextDocument.URI
	s.logger.Info("Saved", "path", URIToPath(uri))

	if params.Text != nil {
		doc := s.documents.Get(uri)
		if doc != nil {
			s.documents.Update(uri, *params.Text, doc.Version)
		}
	}
	s.scheduler.cancel(uri)
	s.publishDiagnostics(uri, false)
	return nil
}

func (s *Server) handleDidChangeConfiguration(_ *JSONRPCMessage) error {
	if err := s.reloadConfig(); err != nil {
		s.notifyConfigError(err)
		return err
	}
	s.revalidateAll()
	return nil
}

// --- Configuration ---

// current returns the engine and configuration in use.
func (s *Server) current() (*lint.Engine, *config.Config) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine, s.cfg
}

// applyConfig installs cfg. The engine is rebuilt when the parser backend
// changes; otherwise its rule configuration is replaced, which also clears
// its caches.
func (s *Server) applyConfig(cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil || s.engine.Parser().Name() != cfg.Parser {
		p, err := sqlast.Get(cfg.Parser)
		if err != nil {
			return err
		}
		s.engine = lint.NewEngine(
			lint.WithParser(p),
			lint.WithConfig(cfg.ToLintConfig()),
			lint.WithLogger(s.logger),
		)
	} else {
		s.engine.SetConfig(cfg.ToLintConfig())
	}
	s.cfg = cfg
	s.scheduler.setDelay(cfg.Debounce)
	return nil
}

// reloadConfig loads the project configuration again.
func (s *Server) reloadConfig() error {
	if s.projectRoot == "" {
		return nil
	}
	cfg, err := s.loadConfig(s.projectRoot)
	if err != nil {
		return err
	}
	if err := s.applyConfig(cfg); err != nil {
		return err
	}
	s.logger.Info("Configuration loaded", "file", cfg.File, "parser", cfg.Parser)
	return nil
}

// revalidateAll publishes fresh diagnostics for every open document.
func (s *Server) revalidateAll() {
	for _, uri := range s.documents.List() {
		s.publishDiagnostics(uri, true)
	}
}

func (s *Server) notifyConfigError(err error) {
	s.logger.Error("Configuration reload failed", "error", err)
	s.sendNotification("window/showMessage", &ShowMessageParams{
		Type:    MessageTypeError,
		Message: "batonlint: " + err.Error(),
	})
}
