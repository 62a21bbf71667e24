package lsp

import (
	"github.com/leapstack-labs/batonlint/internal/diagnostics"
	"github.com/leapstack-labs/batonlint/pkg/lint"
)

// diagnosticSource is reported as the Source of every diagnostic.
const diagnosticSource = "batonlint"

// publishDiagnostics lints the document and publishes the findings. Unless
// force is set, a document whose content has not changed since the last
// pass is skipped.
func (s *Server) publishDiagnostics(uri string, force bool) {
	doc := s.documents.Get(uri)
	if doc == nil {
		return
	}

	// Only YAML documents carry baton-sql queries
	if !IsYAML(uri) {
		s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
			URI:         uri,
			Diagnostics: []Diagnostic{},
		})
		return
	}

	engine, cfg := s.current()
	if !engine.DocumentChanged(uri, doc.Content) && !force {
		s.logger.Debug("Document unchanged, skipping", "uri", uri)
		return
	}

	found := diagnostics.Collect(engine, doc.Content, cfg.Discovery.Fields)
	s.fixes.store(uri, found)

	out := make([]Diagnostic, 0, len(found))
	for _, d := range found {
		out = append(out, toLSPDiagnostic(d))
	}

	version := doc.Version
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Version:     &version,
		Diagnostics: out,
	})
	s.logger.Debug("Published diagnostics", "uri", uri, "count", len(out))
}

// clearDiagnostics publishes an empty list for uri.
func (s *Server) clearDiagnostics(uri string) {
	s.sendNotification("textDocument/publishDiagnostics", &PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []Diagnostic{},
	})
}

// toLSPDiagnostic converts a positioned finding to the wire format.
func toLSPDiagnostic(d diagnostics.Diagnostic) Diagnostic {
	return Diagnostic{
		Range:    toRange(d.Range),
		Severity: toLSPSeverity(d.Severity),
		Code:     d.Rule,
		Source:   diagnosticSource,
		Message:  d.Message,
	}
}

func toPosition(p lint.Position) Position {
	return Position{
		Line:      uint32(max(0, p.Line)),      //nolint:gosec // G115: clamped to non-negative
		Character: uint32(max(0, p.Character)), //nolint:gosec // G115: clamped to non-negative
	}
}

func toRange(r lint.Range) Range {
	return Range{Start: toPosition(r.Start), End: toPosition(r.End)}
}

// toLSPSeverity converts lint.Severity to LSP DiagnosticSeverity.
func toLSPSeverity(s lint.Severity) DiagnosticSeverity {
	switch s {
	case lint.SeverityError:
		return DiagnosticSeverityError
	case lint.SeverityWarning:
		return DiagnosticSeverityWarning
	case lint.SeverityInfo:
		return DiagnosticSeverityInformation
	case lint.SeverityHint:
		return DiagnosticSeverityHint
	default:
		return DiagnosticSeverityWarning
	}
}
