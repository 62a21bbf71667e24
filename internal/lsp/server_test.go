package lsp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/batonlint/internal/config"
	"github.com/leapstack-labs/batonlint/internal/testutil"
)

const missingCommaDoc = `resource_types:
  user:
    list:
      query: |
        SELECT
          id,
          name
          email
        FROM users
`

type harness struct {
	t   *testing.T
	out *bytes.Buffer
	srv *Server
	id  int
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	out := &bytes.Buffer{}
	cfg := config.Default()
	cfg.Debounce = 10 * time.Millisecond
	opts = append([]Option{
		WithLogger(testutil.NewTestLogger(t)),
		WithConfig(cfg),
	}, opts...)
	return &harness{t: t, out: out, srv: NewServer(strings.NewReader(""), out, opts...)}
}

func (h *harness) call(method string, params any) {
	h.t.Helper()
	h.id++
	id := json.RawMessage(fmt.Sprint(h.id))
	h.send(&JSONRPCMessage{JSONRPC: "2.0", ID: &id, Method: method, Params: mustJSON(h.t, params)})
}

func (h *harness) notify(method string, params any) {
	h.t.Helper()
	h.send(&JSONRPCMessage{JSONRPC: "2.0", Method: method, Params: mustJSON(h.t, params)})
}

func (h *harness) send(msg *JSONRPCMessage) {
	h.t.Helper()
	_ = h.srv.handleMessage(msg)
}

// drain decodes every message written so far.
func (h *harness) drain() []*JSONRPCMessage {
	h.t.Helper()
	h.srv.writeMu.Lock()
	data := bytes.Clone(h.out.Bytes())
	h.out.Reset()
	h.srv.writeMu.Unlock()

	reader := NewServer(bytes.NewReader(data), io.Discard, WithLogger(slog.New(slog.DiscardHandler)))
	var msgs []*JSONRPCMessage
	for {
		msg, err := reader.readMessage()
		if err != nil {
			break
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func lastPublished(t *testing.T, msgs []*JSONRPCMessage) PublishDiagnosticsParams {
	t.Helper()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Method == "textDocument/publishDiagnostics" {
			var p PublishDiagnosticsParams
			require.NoError(t, json.Unmarshal(msgs[i].Params, &p))
			return p
		}
	}
	t.Fatal("no publishDiagnostics notification")
	return PublishDiagnosticsParams{}
}

func openDoc(h *harness, uri, text string) {
	h.notify("textDocument/didOpen", DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{URI: uri, LanguageID: "yaml", Version: 1, Text: text},
	})
}

func TestServer_Initialize(t *testing.T) {
	h := newHarness(t)
	h.call("initialize", InitializeParams{ProcessID: 1})

	msgs := h.drain()
	require.Len(t, msgs, 1)
	require.Nil(t, msgs[0].Error)

	var result InitializeResult
	require.NoError(t, json.Unmarshal(msgs[0].Result, &result))
	require.NotNil(t, result.Capabilities.TextDocumentSync)
	assert.Equal(t, TextDocumentSyncKindFull, result.Capabilities.TextDocumentSync.Change)
	assert.True(t, result.Capabilities.TextDocumentSync.Save.IncludeText)
	require.NotNil(t, result.Capabilities.CodeActionProvider)
	assert.Equal(t, []CodeActionKind{CodeActionKindQuickFix}, result.Capabilities.CodeActionProvider.CodeActionKinds)
	assert.Equal(t, "batonlint", result.ServerInfo.Name)
}

func TestServer_InitializeLoadsProjectConfig(t *testing.T) {
	var root string
	h := newHarness(t, WithConfigLoader(func(dir string) (*config.Config, error) {
		root = dir
		cfg := config.Default()
		cfg.Lint.Disabled = []string{"missing-comma"}
		return cfg, nil
	}))
	h.call("initialize", InitializeParams{RootURI: "file:///work/connector"})
	assert.Equal(t, "/work/connector", root)

	_, cfg := h.srv.current()
	assert.Equal(t, []string{"missing-comma"}, cfg.Lint.Disabled)
}

func TestServer_PublishesDiagnosticsOnOpen(t *testing.T) {
	h := newHarness(t)
	openDoc(h, "file:///baton.yaml", missingCommaDoc)

	p := lastPublished(t, h.drain())
	assert.Equal(t, "file:///baton.yaml", p.URI)
	require.NotNil(t, p.Version)
	assert.Equal(t, 1, *p.Version)

	var found []Diagnostic
	for _, d := range p.Diagnostics {
		if d.Code == "missing-comma" {
			found = append(found, d)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, "batonlint", found[0].Source)
	assert.Equal(t, uint32(6), found[0].Range.Start.Line)
}

func TestServer_NonYAMLDocumentGetsNoDiagnostics(t *testing.T) {
	h := newHarness(t)
	openDoc(h, "file:///notes.txt", missingCommaDoc)

	p := lastPublished(t, h.drain())
	assert.Empty(t, p.Diagnostics)
}

func TestServer_CodeActionReturnsCachedFix(t *testing.T) {
	h := newHarness(t)
	openDoc(h, "file:///baton.yaml", missingCommaDoc)

	var diag Diagnostic
	for _, d := range lastPublished(t, h.drain()).Diagnostics {
		if d.Code == "missing-comma" {
			diag = d
		}
	}
	require.Equal(t, "missing-comma", diag.Code)

	h.call("textDocument/codeAction", CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: "file:///baton.yaml"},
		Range:        diag.Range,
		Context:      CodeActionContext{Diagnostics: []Diagnostic{diag}},
	})
	msgs := h.drain()
	require.Len(t, msgs, 1)

	var actions []CodeAction
	require.NoError(t, json.Unmarshal(msgs[0].Result, &actions))
	require.Len(t, actions, 1)
	assert.Equal(t, CodeActionKindQuickFix, actions[0].Kind)
	assert.True(t, actions[0].IsPreferred)
	edits := actions[0].Edit.Changes["file:///baton.yaml"]
	require.Len(t, edits, 1)
	assert.Equal(t, ",", edits[0].NewText)
	assert.Equal(t, Position{Line: 6, Character: 14}, edits[0].Range.Start)

	// Only restricting to another kind yields nothing
	h.call("textDocument/codeAction", CodeActionParams{
		TextDocument: TextDocumentIdentifier{URI: "file:///baton.yaml"},
		Context:      CodeActionContext{Diagnostics: []Diagnostic{diag}, Only: []CodeActionKind{"refactor"}},
	})
	msgs = h.drain()
	require.Len(t, msgs, 1)
	require.NoError(t, json.Unmarshal(msgs[0].Result, &actions))
	assert.Empty(t, actions)
}

func TestServer_DidChangeIsDebounced(t *testing.T) {
	// Publishing happens on a timer goroutine that may outlive the test.
	h := newHarness(t, WithLogger(slog.New(slog.DiscardHandler)))
	openDoc(h, "file:///baton.yaml", "query: SELECT 1\n")
	h.drain()

	for v := 2; v <= 4; v++ {
		h.notify("textDocument/didChange", DidChangeTextDocumentParams{
			TextDocument:   VersionedTextDocumentIdentifier{TextDocumentIdentifier: TextDocumentIdentifier{URI: "file:///baton.yaml"}, Version: v},
			ContentChanges: []TextDocumentContentChangeEvent{{Text: missingCommaDoc}},
		})
	}

	var p PublishDiagnosticsParams
	require.Eventually(t, func() bool {
		msgs := h.drain()
		for _, m := range msgs {
			if m.Method == "textDocument/publishDiagnostics" {
				p = lastPublished(t, msgs)
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, p.Version)
	assert.Equal(t, 4, *p.Version)
	assert.NotEmpty(t, p.Diagnostics)
}

func TestServer_DidCloseClearsDiagnostics(t *testing.T) {
	h := newHarness(t)
	openDoc(h, "file:///baton.yaml", missingCommaDoc)
	h.drain()

	h.notify("textDocument/didClose", DidCloseTextDocumentParams{
		TextDocument: TextDocumentIdentifier{URI: "file:///baton.yaml"},
	})
	p := lastPublished(t, h.drain())
	assert.Empty(t, p.Diagnostics)
	assert.Nil(t, h.srv.documents.Get("file:///baton.yaml"))
	assert.Empty(t, h.srv.fixes.lookup("file:///baton.yaml", Diagnostic{Code: "missing-comma"}))
}

func TestServer_UnknownMethod(t *testing.T) {
	h := newHarness(t)
	h.call("textDocument/hover", map[string]any{})

	msgs := h.drain()
	require.Len(t, msgs, 1)
	require.NotNil(t, msgs[0].Error)
	assert.Equal(t, -32601, msgs[0].Error.Code)

	// Notifications for unknown methods are ignored
	h.notify("$/cancelRequest", map[string]any{"id": 1})
	assert.Empty(t, h.drain())
}

func TestServer_ShutdownAndExit(t *testing.T) {
	code := -1
	h := newHarness(t)
	h.srv.exit = func(c int) { code = c }

	h.call("shutdown", nil)
	msgs := h.drain()
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].Error)

	h.notify("exit", nil)
	assert.Equal(t, 0, code)
}

func TestServer_ConfigReloadFailureNotifiesClient(t *testing.T) {
	calls := 0
	h := newHarness(t, WithConfigLoader(func(string) (*config.Config, error) {
		calls++
		if calls > 1 {
			return nil, fmt.Errorf("invalid configuration: bad parser")
		}
		return config.Default(), nil
	}))
	h.call("initialize", InitializeParams{RootURI: "file:///work"})
	h.drain()

	h.notify("workspace/didChangeConfiguration", DidChangeConfigurationParams{})
	msgs := h.drain()
	require.Len(t, msgs, 1)
	assert.Equal(t, "window/showMessage", msgs[0].Method)

	var p ShowMessageParams
	require.NoError(t, json.Unmarshal(msgs[0].Params, &p))
	assert.Equal(t, MessageTypeError, p.Type)
	assert.Contains(t, p.Message, "bad parser")
}

func TestServer_RunReadsFramedMessages(t *testing.T) {
	var in bytes.Buffer
	for _, m := range []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","id":2,"method":"shutdown"}`,
	} {
		fmt.Fprintf(&in, "Content-Length: %d\r\n\r\n%s", len(m), m)
	}
	out := &bytes.Buffer{}
	srv := NewServer(&in, out, WithLogger(slog.New(slog.DiscardHandler)))
	require.NoError(t, srv.Run())

	r := bufio.NewReader(out)
	header, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(header, "Content-Length: "))
}

func TestScheduler_CancelDropsPending(t *testing.T) {
	s := newScheduler(20 * time.Millisecond)
	ran := make(chan struct{}, 1)
	s.schedule("a", func() { ran <- struct{}{} })
	s.cancel("a")

	select {
	case <-ran:
		t.Fatal("cancelled request ran")
	case <-time.After(80 * time.Millisecond):
	}
}

func TestScheduler_RunsLatest(t *testing.T) {
	s := newScheduler(20 * time.Millisecond)
	got := make(chan int, 3)
	for i := 1; i <= 3; i++ {
		s.schedule("a", func() { got <- i })
	}
	select {
	case v := <-got:
		assert.Equal(t, 3, v)
	case <-time.After(time.Second):
		t.Fatal("scheduled request did not run")
	}
}

func TestFixTitle(t *testing.T) {
	at := func(line, char uint32) Position { return Position{Line: line, Character: char} }
	tests := []struct {
		name string
		edit TextEdit
		want string
	}{
		{"insert", TextEdit{Range: Range{Start: at(1, 2), End: at(1, 2)}, NewText: ","}, `Insert "," (r)`},
		{"remove", TextEdit{Range: Range{Start: at(1, 2), End: at(1, 3)}}, "Remove text (r)"},
		{"replace", TextEdit{Range: Range{Start: at(1, 2), End: at(1, 8)}, NewText: "static_entitlements"}, `Replace with "static_entitlements" (r)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, fixTitle(cachedFix{rule: "r", edit: tt.edit}))
		})
	}
}
