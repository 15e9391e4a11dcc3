package txtest

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/gofhir/fhir/r4"

	txclient "github.com/gofhir/txclient"
	"github.com/gofhir/txclient/params"
)

// Request is a request received by the fake server.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Server is a fake terminology server backed by a Store.
type Server struct {
	*Store
	srv *httptest.Server

	mu       sync.Mutex
	requests []Request
}

// NewServer starts a fake terminology server and stops it when t ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{Store: NewStore()}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

// URL returns the server base URL.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close stops the server.
func (s *Server) Close() {
	s.srv.Close()
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestCount returns the number of requests received so far.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/ValueSet", func(r chi.Router) {
		r.Post("/$expand", s.handleExpand)
		r.Post("/$validate-code", s.handleValidateCode)
		r.Post("/{id}/$expand", s.handleExpand)
		r.Post("/{id}/$validate-code", s.handleValidateCode)
	})
	r.Post("/CodeSystem/$lookup", s.handleLookup)
	r.Post("/CodeSystem/$validate-code", s.handleCodeSystemValidateCode)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeOutcome(w, http.StatusNotFound, txclient.IssueTypeNotSupported,
			fmt.Sprintf("unsupported request %s %s", r.Method, r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeOutcome(w, http.StatusMethodNotAllowed, txclient.IssueTypeNotSupported,
			fmt.Sprintf("method %s not allowed on %s", r.Method, r.URL.Path))
	})
	return r
}

// record stores the request and restores its body for the handler.
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))

		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Header: r.Header.Clone(),
			Body:   body,
		})
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// resolve reads the request parameters and finds the addressed ValueSet.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request) (*r4.ValueSet, *params.Map, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeInvalid, err.Error())
		return nil, nil, false
	}
	in := params.NewMap()
	if len(body) > 0 {
		if in, err = params.Unmarshal(body); err != nil {
			writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeInvalid, err.Error())
			return nil, nil, false
		}
	}

	if id := chi.URLParam(r, "id"); id != "" {
		vs, ok := s.ValueSetByID(id)
		if !ok {
			writeOutcome(w, http.StatusNotFound, txclient.IssueTypeNotFound,
				fmt.Sprintf("ValueSet/%s not found", id))
			return nil, nil, false
		}
		return vs, in, true
	}

	url, ok := in.String("url")
	if !ok {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeRequired,
			"a url parameter is required at type level")
		return nil, nil, false
	}
	version, _ := in.String("valueSetVersion")
	vs, ok := s.ValueSetByURL(url, version)
	if !ok {
		writeOutcome(w, http.StatusNotFound, txclient.IssueTypeNotFound,
			fmt.Sprintf("ValueSet %s not found", url))
		return nil, nil, false
	}
	return vs, in, true
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	vs, in, ok := s.resolve(w, r)
	if !ok {
		return
	}

	contains := s.Expand(vs)
	if paged(in) {
		contains = page(contains, in)
	}

	out := *vs
	out.Compose = nil
	out.Expansion = &r4.ValueSetExpansion{Contains: contains}
	writeResource(w, http.StatusOK, &out)
}

func (s *Server) handleValidateCode(w http.ResponseWriter, r *http.Request) {
	vs, in, ok := s.resolve(w, r)
	if !ok {
		return
	}

	var candidates []r4.Coding
	if c, ok := in.Coding("coding"); ok {
		candidates = append(candidates, c)
	}
	if v, ok := in.Get("codeableConcept"); ok {
		if cc, ok := v.(r4.CodeableConcept); ok {
			candidates = append(candidates, cc.Coding...)
		}
	}
	if code, ok := in.String("code"); ok {
		system, _ := in.String("system")
		candidates = append(candidates, r4.Coding{System: ptr(system), Code: ptr(code)})
	}
	if len(candidates) == 0 {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeRequired,
			"one of coding, codeableConcept or code is required")
		return
	}

	out := params.NewMap()
	for _, c := range candidates {
		if c.Code == nil {
			continue
		}
		system := ""
		if c.System != nil {
			system = *c.System
		}
		if entry, found := s.Lookup(vs, system, *c.Code); found {
			out.Set("result", true)
			if entry.Display != nil {
				out.Set("display", *entry.Display)
			}
			out.Set("code", params.Code(*c.Code))
			if entry.System != nil {
				out.Set("system", params.URI(*entry.System))
			}
			writeParameters(w, out)
			return
		}
	}

	first := candidates[0]
	out.Set("result", false)
	out.Set("message", fmt.Sprintf("code '%s' not found in ValueSet", valueOr(first.Code)))
	writeParameters(w, out)
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	in, err := params.Unmarshal(body)
	if err != nil {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeInvalid, err.Error())
		return
	}

	system, _ := in.String("system")
	code, ok := in.String("code")
	if c, found := in.Coding("coding"); found && c.Code != nil {
		system, code, ok = valueOr(c.System), *c.Code, true
	}
	if !ok {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeRequired, "code or coding is required")
		return
	}

	concept, found := s.Concept(system, code)
	if !found {
		writeOutcome(w, http.StatusNotFound, txclient.IssueTypeNotFound,
			fmt.Sprintf("code '%s' not found in %s", code, system))
		return
	}

	out := params.NewMap().Set("name", system)
	if concept.Display != nil {
		out.Set("display", *concept.Display)
	}
	writeParameters(w, out)
}

func (s *Server) handleCodeSystemValidateCode(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	in, err := params.Unmarshal(body)
	if err != nil {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeInvalid, err.Error())
		return
	}

	system, _ := in.String("url")
	code, ok := in.String("code")
	if !ok || system == "" {
		writeOutcome(w, http.StatusBadRequest, txclient.IssueTypeRequired, "url and code are required")
		return
	}

	out := params.NewMap()
	if concept, found := s.Concept(system, code); found {
		out.Set("result", true)
		if concept.Display != nil {
			out.Set("display", *concept.Display)
		}
	} else {
		out.Set("result", false)
		out.Set("message", fmt.Sprintf("code '%s' not found in %s", code, system))
	}
	writeParameters(w, out)
}

func paged(in *params.Map) bool {
	return in.Has("count") || in.Has("offset") || in.Has("filter")
}

// page flattens contains and applies filter, offset and count.
func page(contains []r4.ValueSetExpansionContains, in *params.Map) []r4.ValueSetExpansionContains {
	filter, _ := in.String("filter")
	filter = strings.ToLower(filter)

	var flat []r4.ValueSetExpansionContains
	var collect func([]r4.ValueSetExpansionContains)
	collect = func(nodes []r4.ValueSetExpansionContains) {
		for i := range nodes {
			n := nodes[i]
			if filter == "" || strings.Contains(strings.ToLower(valueOr(n.Display)), filter) {
				flat = append(flat, r4.ValueSetExpansionContains{System: n.System, Code: n.Code, Display: n.Display})
			}
			collect(n.Contains)
		}
	}
	collect(contains)

	offset, _ := in.Int("offset")
	if offset < 0 {
		offset = 0
	}
	if offset > len(flat) {
		offset = len(flat)
	}
	flat = flat[offset:]

	if count, ok := in.Int("count"); ok && count >= 0 && count < len(flat) {
		flat = flat[:count]
	}
	return flat
}

func valueOr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeResource(w http.ResponseWriter, status int, resource any) {
	data, err := json.Marshal(resource)
	if err != nil {
		writeOutcome(w, http.StatusInternalServerError, txclient.IssueTypeException, err.Error())
		return
	}
	writeJSON(w, status, data)
}

func writeParameters(w http.ResponseWriter, m *params.Map) {
	data, err := params.Marshal(m)
	if err != nil {
		writeOutcome(w, http.StatusInternalServerError, txclient.IssueTypeException, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func writeOutcome(w http.ResponseWriter, status int, code txclient.IssueType, diagnostics string) {
	oo := txclient.NewOperationOutcome(txclient.Error(code).Diagnostics(diagnostics).Build())
	data, _ := json.Marshal(oo)
	writeJSON(w, status, data)
}

func writeJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", txclient.MIMETypeFHIRJSON)
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
