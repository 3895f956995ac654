package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonwraymond/permcache/health"
)

// routes builds the server's handler tree: cache.Facade's domain
// operations under /items and /collections, backprop admin under /admin,
// the /substrate/* routes substrate/remote.Client talks to, and liveness/
// readiness/detailed health endpoints, grounded on the teacher's
// Node.Routes (a single ServeMux with method-pattern registration wrapped
// in a request-logging middleware).
func (s *server) routes(agg *health.Aggregator) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /items/{key}", s.handleGetItem)
	mux.HandleFunc("PUT /items/{key}", s.handleSetItem)
	mux.HandleFunc("GET /collections/{key}", s.handleGetCollection)
	mux.HandleFunc("PUT /collections/{key}", s.handleSetCollection)
	mux.HandleFunc("POST /admin/backprop", s.handleSetBackpropagation)
	mux.HandleFunc("POST /admin/union", s.handleSetPermissionUnion)

	mux.HandleFunc("GET /substrate/string/{key}", s.handleSubstrateGetString)
	mux.HandleFunc("PUT /substrate/string/{key}", s.handleSubstrateSetString)
	mux.HandleFunc("HEAD /substrate/string/{key}", s.handleSubstrateExists)
	mux.HandleFunc("POST /substrate/expire/{key}", s.handleSubstrateExpire)
	mux.HandleFunc("POST /substrate/set/{key}/add", s.handleSubstrateSAdd)
	mux.HandleFunc("GET /substrate/set/inter", s.handleSubstrateSInter)
	mux.HandleFunc("GET /substrate/set/{key}/card", s.handleSubstrateSCard)
	mux.HandleFunc("GET /substrate/set/{key}/ismember", s.handleSubstrateSMIsMember)
	mux.HandleFunc("GET /substrate/set/{key}", s.handleSubstrateSMembers)
	mux.HandleFunc("GET /substrate/keys", s.handleSubstrateKeys)

	health.RegisterHandlers(mux, agg)

	return requestLogger(mux)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rr, r)
		log.Printf("%s %s -> %d (%s)", r.Method, r.URL.Path, rr.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *server) clientIDOrError(w http.ResponseWriter, r *http.Request) (string, bool) {
	clientID, err := s.resolveClientID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return "", false
	}
	return clientID, true
}

// --- /items ---

func (s *server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientIDOrError(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	result, err := s.facade.Get(r.Context(), clientID, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !result.Hit {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Value)
}

func parseDurationQS(v string, fallback time.Duration) (time.Duration, error) {
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func (s *server) handleSetItem(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientIDOrError(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	value, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	ttl, err := parseDurationQS(r.URL.Query().Get("ttl"), 0)
	if err != nil {
		http.Error(w, "bad ttl: "+err.Error(), http.StatusBadRequest)
		return
	}
	var perms []string
	if p := r.URL.Query().Get("perms"); p != "" {
		perms = strings.Split(p, ",")
	}

	if err := s.facade.Set(r.Context(), key, value, ttl, clientID, perms...); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// --- /collections ---

func (s *server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientIDOrError(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")
	result, err := s.facade.GetCollection(r.Context(), clientID, key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !result.Hit {
		http.NotFound(w, r)
		return
	}
	values := make([]string, len(result.Values))
	for i, v := range result.Values {
		values[i] = string(v)
	}
	writeJSON(w, http.StatusOK, map[string]any{"hit": true, "values": values})
}

type setCollectionRequest struct {
	ItemKeys []string `json:"item_keys"`
	Filter   string   `json:"filter"`
}

func (s *server) handleSetCollection(w http.ResponseWriter, r *http.Request) {
	clientID, ok := s.clientIDOrError(w, r)
	if !ok {
		return
	}
	key := r.PathValue("key")

	var req setCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ttl, err := parseDurationQS(r.URL.Query().Get("ttl"), 0)
	if err != nil {
		http.Error(w, "bad ttl: "+err.Error(), http.StatusBadRequest)
		return
	}

	variantID, err := s.facade.SetCollection(r.Context(), clientID, key, req.ItemKeys, ttl, req.Filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"variant_id": variantID})
}

// --- /admin ---

type backpropRequest struct {
	CollectionKey string `json:"collection_key"`
	TypeToken     string `json:"type_token"`
	TargetItemKey string `json:"target_item_key"`
}

func (s *server) handleSetBackpropagation(w http.ResponseWriter, r *http.Request) {
	var req backpropRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.facade.SetBackpropagation(r.Context(), req.CollectionKey, req.TypeToken, req.TargetItemKey); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type unionRequest struct {
	ItemKeys []string `json:"item_keys"`
}

func (s *server) handleSetPermissionUnion(w http.ResponseWriter, r *http.Request) {
	var req unionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.facade.SetPermissionUnion(r.Context(), req.ItemKeys...); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- /substrate (the wire protocol substrate/remote.Client speaks) ---

type stringBody struct {
	Value []byte `json:"value"`
	OK    bool   `json:"ok"`
}

func (s *server) handleSubstrateGetString(w http.ResponseWriter, r *http.Request) {
	value, ok := s.store.GetString(r.Context(), r.PathValue("key"))
	writeJSON(w, http.StatusOK, stringBody{Value: value, OK: ok})
}

func (s *server) handleSubstrateSetString(w http.ResponseWriter, r *http.Request) {
	var body stringBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	ttl := ttlFromMillisParam(r.URL.Query().Get("ttl_ms"))
	if err := s.store.SetString(r.Context(), r.PathValue("key"), body.Value, ttl); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSubstrateExists(w http.ResponseWriter, r *http.Request) {
	if !s.store.Exists(r.Context(), r.PathValue("key")) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *server) handleSubstrateExpire(w http.ResponseWriter, r *http.Request) {
	ttl := ttlFromMillisParam(r.URL.Query().Get("ttl_ms"))
	if err := s.store.Expire(r.Context(), r.PathValue("key"), ttl); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setBody struct {
	Members []string `json:"members"`
}

func (s *server) handleSubstrateSAdd(w http.ResponseWriter, r *http.Request) {
	var body setBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.store.SAdd(r.Context(), r.PathValue("key"), body.Members...); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleSubstrateSMembers(w http.ResponseWriter, r *http.Request) {
	members := s.store.SMembers(r.Context(), r.PathValue("key"))
	writeJSON(w, http.StatusOK, setBody{Members: members})
}

func (s *server) handleSubstrateSInter(w http.ResponseWriter, r *http.Request) {
	keys := r.URL.Query()["key"]
	members := s.store.SInter(r.Context(), keys...)
	writeJSON(w, http.StatusOK, setBody{Members: members})
}

func (s *server) handleSubstrateSCard(w http.ResponseWriter, r *http.Request) {
	count := s.store.SCard(r.Context(), r.PathValue("key"))
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

func (s *server) handleSubstrateSMIsMember(w http.ResponseWriter, r *http.Request) {
	members := r.URL.Query()["member"]
	present := s.store.SMIsMember(r.Context(), r.PathValue("key"), members...)
	writeJSON(w, http.StatusOK, map[string][]bool{"present": present})
}

func (s *server) handleSubstrateKeys(w http.ResponseWriter, r *http.Request) {
	keys := s.store.Keys(r.Context(), r.URL.Query().Get("prefix"))
	writeJSON(w, http.StatusOK, map[string][]string{"keys": keys})
}

func ttlFromMillisParam(v string) time.Duration {
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}
