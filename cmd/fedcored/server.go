package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/fedcore/federation/internal/aperrors"
	"github.com/fedcore/federation/internal/fetch"
	"github.com/fedcore/federation/internal/ids"
	"github.com/fedcore/federation/internal/ingress"
	"github.com/fedcore/federation/internal/metrics"
	"github.com/fedcore/federation/internal/sigs"
	"github.com/fedcore/federation/internal/store"
)

// Server is the HTTP surface of a fedcore instance: WebFinger, actor
// documents, and inbox delivery. Routing follows the teacher's chi-based
// explorer/xchainserver servers (cmd/explorer/server.go uses gorilla/mux;
// go-chi/chi is the teacher's own listed direct router dependency, unused
// by its filtered-in command files, so it is adopted here instead).
type Server struct {
	router *chi.Mux
	origin string
	store  *store.MemoryStore
	queue  *ingress.Queue
	log    *logrus.Entry
}

func NewServer(origin string, st *store.MemoryStore, q *ingress.Queue, log *logrus.Entry) *Server {
	s := &Server{router: chi.NewRouter(), origin: origin, store: st, queue: q, log: log}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

func (s *Server) routes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/.well-known/webfinger", s.handleWebFinger)
	s.router.Get("/users/{user}", s.handleActor)
	s.router.Post("/users/{user}/inbox", s.handleInbox)
	s.router.Get("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}).ServeHTTP)
}

func (s *Server) handleWebFinger(w http.ResponseWriter, r *http.Request) {
	resource := r.URL.Query().Get("resource")
	addr, err := ids.ParseActorAddress(resource)
	if err != nil {
		http.Error(w, "bad resource", http.StatusBadRequest)
		return
	}
	actor, err := s.store.Actors.GetByAddress(r.Context(), addr)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	jrd := fetch.JRD{
		Subject: addr.ToAcctURI(),
		Links: []fetch.JRDLink{
			{Rel: "self", Type: "application/activity+json", Href: actor.ID},
		},
	}
	w.Header().Set("Content-Type", "application/jrd+json")
	json.NewEncoder(w).Encode(jrd)
}

func (s *Server) handleActor(w http.ResponseWriter, r *http.Request) {
	user := chi.URLParam(r, "user")
	actorID := fmt.Sprintf("%s/users/%s", s.origin, user)
	actor, err := s.store.Actors.GetByID(r.Context(), actorID)
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/activity+json")
	json.NewEncoder(w).Encode(actor)
}

// handleInbox authenticates the posted activity per §4.3.5/§4.5 and
// enqueues it; the ingress worker loop does the actual handler dispatch.
func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 2<<20))
	if err != nil {
		http.Error(w, "bad body", http.StatusBadRequest)
		return
	}

	authenticated := sigs.HasProof(body)
	if !authenticated {
		if sig := r.Header.Get("Signature"); sig != "" || r.Header.Get("Signature-Input") != "" {
			authenticated = true
		}
	}

	job := &ingress.IncomingActivityJob{Activity: body, IsAuthenticated: authenticated}
	s.queue.Push(job)
	metrics.IngressQueueDepth.Set(float64(s.queue.Len()))

	if !authenticated {
		s.log.WithError(aperrors.New(aperrors.KindAuth, aperrors.CodeNoSignature, "no proof or signature headers")).Warn("unauthenticated inbox post")
	}

	w.WriteHeader(http.StatusAccepted)
}
