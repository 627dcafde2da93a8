// Package prismictest runs an in-process fake content repository for tests.
package prismictest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/eringen/spacetraveling/prismic"
)

// Token is the access token the fake repository expects.
const Token = "test-token"

// MasterRef is the ref the fake repository advertises as published content.
const MasterRef = "master-ref"

var reAt = regexp.MustCompile(`at\(([^,]+),"((?:[^"\\]|\\.)*)"\)`)

// Server is a fake repository serving the API root and documents/search.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	docs     []prismic.Document
	refs     map[string][]prismic.Document // preview refs
	failures []int

	searches atomic.Int64
	roots    atomic.Int64
}

// NewServer starts a fake repository holding docs in the given order.
func NewServer(docs ...prismic.Document) *Server {
	s := &Server{docs: docs, refs: make(map[string][]prismic.Document)}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", s.handleRoot)
	mux.HandleFunc("/api/v2/documents/search", s.handleSearch)
	s.Server = httptest.NewServer(mux)
	return s
}

// Endpoint is the API endpoint to put in prismic.Config.
func (s *Server) Endpoint() string {
	return s.URL + "/api/v2"
}

// Config returns a valid client config for this server.
func (s *Server) Config() prismic.Config {
	return prismic.Config{Endpoint: s.Endpoint(), AccessToken: Token}
}

// SetDocuments replaces the published documents.
func (s *Server) SetDocuments(docs ...prismic.Document) {
	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
}

// AddRef makes docs visible under an extra ref, e.g. a preview token.
func (s *Server) AddRef(ref string, docs ...prismic.Document) {
	s.mu.Lock()
	s.refs[ref] = docs
	s.mu.Unlock()
}

// FailNext makes the next search respond with status.
func (s *Server) FailNext(status int) {
	s.mu.Lock()
	s.failures = append(s.failures, status)
	s.mu.Unlock()
}

// Searches returns how many search requests reached the server.
func (s *Server) Searches() int {
	return int(s.searches.Load())
}

// RootFetches returns how many times the API root was requested.
func (s *Server) RootFetches() int {
	return int(s.roots.Load())
}

func (s *Server) authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.URL.Query().Get("access_token") != Token {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid access token"})
		return false
	}
	return true
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.roots.Add(1)
	if !s.authorized(w, r) {
		return
	}
	writeJSON(w, prismic.API{Refs: []prismic.Ref{
		{ID: "master", Ref: MasterRef, Label: "Master", IsMasterRef: true},
	}})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.searches.Add(1)
	if !s.authorized(w, r) {
		return
	}

	s.mu.Lock()
	if len(s.failures) > 0 {
		status := s.failures[0]
		s.failures = s.failures[1:]
		s.mu.Unlock()
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": http.StatusText(status)})
		return
	}
	q := r.URL.Query()
	docs := s.docs
	if ref := q.Get("ref"); ref != MasterRef {
		extra, ok := s.refs[ref]
		if !ok {
			s.mu.Unlock()
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Ref not found"})
			return
		}
		docs = extra
	}
	s.mu.Unlock()

	matched := filter(docs, q.Get("q"))
	pageSize := atoi(q.Get("pageSize"), 20)
	page := atoi(q.Get("page"), 1)

	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	totalPages := (len(matched) + pageSize - 1) / pageSize

	resp := prismic.Response{
		Page:             page,
		ResultsPerPage:   pageSize,
		ResultsSize:      end - start,
		TotalResultsSize: len(matched),
		TotalPages:       totalPages,
		Results:          append([]prismic.Document{}, matched[start:end]...),
	}
	if end < len(matched) {
		next := url.Values{}
		for k, v := range q {
			if k != "access_token" {
				next[k] = v
			}
		}
		next.Set("page", strconv.Itoa(page+1))
		resp.NextPage = s.Endpoint() + "/documents/search?" + next.Encode()
	}
	writeJSON(w, resp)
}

func filter(docs []prismic.Document, q string) []prismic.Document {
	var out []prismic.Document
	conds := reAt.FindAllStringSubmatch(q, -1)
	for _, d := range docs {
		ok := true
		for _, c := range conds {
			value, err := strconv.Unquote(`"` + c[2] + `"`)
			if err != nil {
				value = c[2]
			}
			switch path := c[1]; {
			case path == "document.type":
				ok = ok && d.Type == value
			case path == "document.id":
				ok = ok && d.ID == value
			case path == "my."+d.Type+".uid":
				ok = ok && d.UID == value
			default:
				ok = false
			}
		}
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func atoi(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
