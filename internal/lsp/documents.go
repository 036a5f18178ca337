package lsp

import "sync"

// document is an open file and its latest analysis.
type document struct {
	content string
	result  *AnalysisResult
}

// DocumentStore holds open document contents and their analysis, keyed by URI.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]document)}
}

// Set stores content and the analysis made from it.
func (s *DocumentStore) Set(uri, content string, result *AnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = document{content: content, result: result}
}

func (s *DocumentStore) Close(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}

func (s *DocumentStore) Get(uri string) (string, *AnalysisResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc.content, doc.result, ok
}

// URIs returns the URIs of all open documents.
func (s *DocumentStore) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	return uris
}
