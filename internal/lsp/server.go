package lsp

import (
	"path/filepath"

	"github.com/jsvensson/tokentheme/internal/config"
	"github.com/spf13/afero"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const serverName = "tokentheme-lsp"

var log = commonlog.GetLogger("tokentheme.lsp")

type Server struct {
	handler protocol.Handler
	docs    *DocumentStore
	version string

	// Fs is where manifests are looked up. Open documents are always read
	// from the editor.
	Fs afero.Fs
}

func NewServer(version string) *Server {
	s := &Server{
		docs:    NewDocumentStore(),
		version: version,
		Fs:      afero.NewOsFs(),
	}

	s.handler = protocol.Handler{
		Initialize:                     s.initialize,
		Initialized:                    s.initialized,
		Shutdown:                       s.shutdown,
		SetTrace:                       s.setTrace,
		TextDocumentDidOpen:            s.textDocumentDidOpen,
		TextDocumentDidChange:          s.textDocumentDidChange,
		TextDocumentDidClose:           s.textDocumentDidClose,
		TextDocumentHover:              s.textDocumentHover,
		TextDocumentColor:              s.textDocumentDocumentColor,
		TextDocumentColorPresentation:  s.textDocumentColorPresentation,
		TextDocumentFormatting:         s.textDocumentFormatting,
		TextDocumentSemanticTokensFull: s.textDocumentSemanticTokensFull,
		TextDocumentCompletion:         s.textDocumentCompletion,
		TextDocumentDefinition:         s.textDocumentDefinition,
		WorkspaceDidChangeWatchedFiles: s.workspaceDidChangeWatchedFiles,
	}

	return s
}

// Run serves the protocol over stdio. Logging is configured by the caller.
func (s *Server) Run() error {
	srv := server.NewServer(&s.handler, serverName, false)
	return srv.RunStdio()
}

func (s *Server) initialize(_ *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: &protocol.True,
		Change:    &syncKind,
	}
	capabilities.SemanticTokensProvider = &protocol.SemanticTokensOptions{
		Legend: protocol.SemanticTokensLegend{
			TokenTypes:     semanticTokenTypes,
			TokenModifiers: semanticTokenModifiers,
		},
		Full: true,
	}
	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{".", "$"},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    serverName,
			Version: &s.version,
		},
	}, nil
}

func (s *Server) initialized(_ *glsp.Context, _ *protocol.InitializedParams) error {
	return nil
}

func (s *Server) shutdown(_ *glsp.Context) error {
	protocol.SetTraceValue(protocol.TraceValueOff)
	return nil
}

func (s *Server) setTrace(_ *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (s *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	s.analyze(ctx, string(params.TextDocument.URI), params.TextDocument.Text)
	return nil
}

func (s *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	for _, change := range params.ContentChanges {
		if c, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.analyze(ctx, string(params.TextDocument.URI), c.Text)
		}
	}
	return nil
}

func (s *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI
	s.docs.Close(string(uri))
	// Clear diagnostics of the closed file
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// workspaceDidChangeWatchedFiles reanalyzes every open document, since an
// edited manifest changes which palette references resolve.
func (s *Server) workspaceDidChangeWatchedFiles(ctx *glsp.Context, _ *protocol.DidChangeWatchedFilesParams) error {
	for _, uri := range s.docs.URIs() {
		if content, _, ok := s.docs.Get(uri); ok {
			s.analyze(ctx, uri, content)
		}
	}
	return nil
}

// analyze checks a document against the manifest governing its directory,
// stores the result and publishes its diagnostics.
func (s *Server) analyze(ctx *glsp.Context, uri, content string) {
	result := s.analyzeDocument(uri, content)
	s.docs.Set(uri, content, result)

	diagnostics := result.Diagnostics
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: diagnostics,
	})
}

func (s *Server) analyzeDocument(uri, content string) *AnalysisResult {
	path := uriToPath(uri)
	if filepath.Base(path) == config.DefaultPath {
		return AnalyzeManifest(path, content)
	}

	var m *Manifest
	if manifestPath, ok := findManifest(s.Fs, filepath.Dir(path)); ok {
		loaded, err := loadManifest(s.Fs, manifestPath)
		if err != nil {
			log.Warningf("manifest %s: %s", manifestPath, err)
		} else {
			m = loaded
		}
	}

	return Analyze(path, content, m)
}
