package lsp

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/leapstack-labs/batonlint/internal/diagnostics"
)

// cachedFix is a suggested fix published alongside a diagnostic.
type cachedFix struct {
	rule    string
	message string
	start   Position
	edit    TextEdit
}

// fixCache stores fixes for published diagnostics, keyed by URI.
type fixCache struct {
	mu    sync.RWMutex
	fixes map[string][]cachedFix
}

func newFixCache() *fixCache {
	return &fixCache{fixes: make(map[string][]cachedFix)}
}

// store replaces the fixes for a URI.
func (c *fixCache) store(uri string, diags []diagnostics.Diagnostic) {
	var fixes []cachedFix
	for _, d := range diags {
		if d.Fix == nil {
			continue
		}
		fixes = append(fixes, cachedFix{
			rule:    d.Rule,
			message: d.Message,
			start:   toPosition(d.Range.Start),
			edit:    TextEdit{Range: toRange(d.Fix.Range), NewText: d.Fix.NewText},
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(fixes) == 0 {
		delete(c.fixes, uri)
		return
	}
	c.fixes[uri] = fixes
}

// lookup returns the fixes matching a diagnostic's rule and start.
func (c *fixCache) lookup(uri string, diag Diagnostic) []cachedFix {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []cachedFix
	for _, f := range c.fixes[uri] {
		if f.rule == diag.Code && f.start == diag.Range.Start {
			out = append(out, f)
		}
	}
	return out
}

// clearURI removes all cached fixes for a URI.
func (c *fixCache) clearURI(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.fixes, uri)
}

// handleCodeAction handles the textDocument/codeAction request.
func (s *Server) handleCodeAction(msg *JSONRPCMessage) error {
	var params CodeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: -32602, Message: err.Error()})
		return err
	}

	actions := s.getCodeActions(params)
	s.sendResponse(msg.ID, actions, nil)
	return nil
}

// getCodeActions returns quick fixes for the diagnostics in the request.
func (s *Server) getCodeActions(params CodeActionParams) []CodeAction {
	actions := []CodeAction{}

	if len(params.Context.Only) > 0 && !containsKind(params.Context.Only, CodeActionKindQuickFix) {
		return actions
	}

	for _, diag := range params.Context.Diagnostics {
		fixes := s.fixes.lookup(params.TextDocument.URI, diag)
		for _, fix := range fixes {
			actions = append(actions, CodeAction{
				Title:       fixTitle(fix),
				Kind:        CodeActionKindQuickFix,
				Diagnostics: []Diagnostic{diag},
				IsPreferred: len(fixes) == 1,
				Edit: &WorkspaceEdit{
					Changes: map[string][]TextEdit{
						params.TextDocument.URI: {fix.edit},
					},
				},
			})
		}
	}

	return actions
}

func containsKind(kinds []CodeActionKind, want CodeActionKind) bool {
	for _, k := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

// fixTitle describes an edit for the client's quick fix menu.
func fixTitle(f cachedFix) string {
	e := f.edit
	switch {
	case e.Range.Start == e.Range.End:
		return fmt.Sprintf("Insert %q (%s)", e.NewText, f.rule)
	case e.NewText == "":
		return fmt.Sprintf("Remove text (%s)", f.rule)
	default:
		return fmt.Sprintf("Replace with %q (%s)", e.NewText, f.rule)
	}
}
