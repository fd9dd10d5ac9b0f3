// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpapi is the HTTP face of a catalog: a handler serving
// file listings and pieces, and a client that fetches and verifies
// them. Responses are JSON by default and CBOR on request
// (Accept: application/cbor), optionally zstd-compressed
// (Accept-Encoding: zstd). The two encodings carry the same data;
// CBOR trades readability for compact hashes and raw chunk bytes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bureau-foundation/courier/lib/catalog"
	"github.com/bureau-foundation/courier/lib/codec"
)

const (
	contentTypeJSON = "application/json"
	contentTypeCBOR = "application/cbor"
)

// errorBody is the error payload for non-200 responses.
type errorBody struct {
	Error string `json:"error"`
}

// pieceKey identifies one cached piece encoding. The format is part
// of the key: the same piece has distinct JSON and CBOR encodings.
type pieceKey struct {
	hash   string
	index  int
	format string
}

// Server is an http.Handler over a read-only catalog.
type Server struct {
	catalog *catalog.Catalog
	logger  *slog.Logger
	mux     *http.ServeMux

	// cache holds encoded piece response bodies. The catalog never
	// changes while serving, so entries cannot go stale; the cache
	// only bounds memory. Compression happens after the cache, so
	// one entry serves both plain and zstd requests.
	cache *lru.Cache[pieceKey, []byte]
}

// ServerConfig configures a Server.
type ServerConfig struct {
	// Catalog is the file index to serve. Required. The server
	// only reads it; the caller must not mutate it while serving.
	Catalog *catalog.Catalog

	// Logger is the structured logger for request logging. Required.
	Logger *slog.Logger

	// PieceCacheSize bounds the encoded-piece response cache. Zero
	// disables caching.
	PieceCacheSize int
}

// NewServer builds the catalog handler.
func NewServer(config ServerConfig) *Server {
	if config.Catalog == nil {
		panic("httpapi.Server: Catalog is required")
	}
	if config.Logger == nil {
		panic("httpapi.Server: Logger is required")
	}

	s := &Server{
		catalog: config.Catalog,
		logger:  config.Logger,
		mux:     http.NewServeMux(),
	}

	if config.PieceCacheSize > 0 {
		cache, err := lru.New[pieceKey, []byte](config.PieceCacheSize)
		if err != nil {
			panic("httpapi.Server: piece cache: " + err.Error())
		}
		s.cache = cache
	}

	s.mux.HandleFunc("GET /hashes", s.handleHashes)
	s.mux.HandleFunc("GET /piece/{hash}/{index}", s.handlePiece)
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	return s
}

// ServeHTTP dispatches the request and writes one access log line.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	s.mux.ServeHTTP(recorder, r)

	s.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", recorder.status,
		"duration", time.Since(start),
	)
}

func (s *Server) handleHashes(w http.ResponseWriter, r *http.Request) {
	s.writeBody(w, r, http.StatusOK, s.catalog.List())
}

func (s *Server) handlePiece(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		s.writeError(w, r, http.StatusBadRequest,
			fmt.Sprintf("piece index %q is not a non-negative integer", r.PathValue("index")))
		return
	}

	format := responseFormat(r)
	key := pieceKey{hash: hash, index: index, format: format}
	if s.cache != nil {
		if body, ok := s.cache.Get(key); ok {
			s.writeRaw(w, r, http.StatusOK, format, body)
			return
		}
	}

	piece, err := s.catalog.Piece(hash, index)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound,
				fmt.Sprintf("no piece %d under hash %s", index, hash))
			return
		}
		s.logger.Error("piece extraction failed", "hash", hash, "index", index, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "piece extraction failed")
		return
	}

	body, err := encodeBody(format, piece)
	if err != nil {
		s.logger.Error("piece encoding failed", "hash", hash, "index", index, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "piece encoding failed")
		return
	}

	if s.cache != nil {
		s.cache.Add(key, body)
	}
	s.writeRaw(w, r, http.StatusOK, format, body)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "ok")
}

// writeBody encodes v in the request's negotiated format and writes
// it with the given status.
func (s *Server) writeBody(w http.ResponseWriter, r *http.Request, status int, v any) {
	format := responseFormat(r)
	body, err := encodeBody(format, v)
	if err != nil {
		s.logger.Error("response encoding failed", "path", r.URL.Path, "error", err)
		http.Error(w, "response encoding failed", http.StatusInternalServerError)
		return
	}
	s.writeRaw(w, r, status, format, body)
}

// writeRaw writes a pre-encoded body, compressing it when the client
// accepts zstd.
func (s *Server) writeRaw(w http.ResponseWriter, r *http.Request, status int, format string, body []byte) {
	if acceptsZstd(r) {
		body = zstdEncoder.EncodeAll(body, nil)
		w.Header().Set("Content-Encoding", "zstd")
	}
	w.Header().Set("Content-Type", format)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(status)
	w.Write(body)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.writeBody(w, r, status, errorBody{Error: message})
}

// responseFormat picks the response encoding from the Accept header.
// Anything that does not ask for CBOR gets JSON; there is no 406 in
// this protocol.
func responseFormat(r *http.Request) string {
	if strings.Contains(r.Header.Get("Accept"), contentTypeCBOR) {
		return contentTypeCBOR
	}
	return contentTypeJSON
}

func encodeBody(format string, v any) ([]byte, error) {
	if format == contentTypeCBOR {
		return codec.Marshal(v)
	}
	return json.Marshal(v)
}

func acceptsZstd(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "zstd")
}

// statusRecorder captures the response status for access logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
