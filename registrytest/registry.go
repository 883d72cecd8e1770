// Package registrytest provides an in-process registry accepting the same
// signed requests as packagist.com. It verifies every Authorization header,
// rejects replayed nonces and keeps uploaded artifacts in memory, so client
// and CLI tests can run the full protocol without a network.
package registrytest

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pkgpush/pkgpush"
)

// Package is a registry-side package fixture. Uploads are accepted only for
// packages that exist, mirroring a registry where packages are created
// through the web UI before artifacts can be pushed.
type Package struct {
	Name        string
	Type        string
	WebView     string
	ArtifactIDs []int
}

// Artifact is one uploaded artifact held in memory.
type Artifact struct {
	ID          int
	FileName    string
	ContentType string
	Body        []byte
}

// Registry is an in-memory Packagist-compatible registry.
type Registry struct {
	mu        sync.Mutex
	creds     map[string]string
	packages  map[string]*Package
	artifacts map[string][]Artifact
	nonces    map[string]struct{}
	nextID    int

	verifier *pkgpush.Verifier
}

// New creates a registry accepting the given key to secret pairs.
func New(creds map[string]string) *Registry {
	reg := &Registry{
		creds:     creds,
		packages:  make(map[string]*Package),
		artifacts: make(map[string][]Artifact),
		nonces:    make(map[string]struct{}),
		nextID:    1,
	}
	reg.verifier = pkgpush.NewVerifier(reg.lookupSecret)
	return reg
}

// AddPackage registers a package fixture.
func (reg *Registry) AddPackage(pkg Package) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	p := pkg
	reg.packages[pkg.Name] = &p
}

// Package returns a copy of the named package fixture.
func (reg *Registry) Package(name string) (Package, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	pkg, found := reg.packages[name]
	if !found {
		return Package{}, false
	}
	return *pkg, true
}

// Artifacts returns the uploads recorded for the named package, in order.
func (reg *Registry) Artifacts(name string) []Artifact {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	artifacts := make([]Artifact, len(reg.artifacts[name]))
	copy(artifacts, reg.artifacts[name])
	return artifacts
}

// Router returns the registry's HTTP handler. All routes require a valid
// signature.
func (reg *Registry) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(reg.auth)
		r.Post("/api/packages/{vendor}/{name}/artifacts/", reg.handleUpload)
		r.Get("/api/packages/{vendor}/{name}/", reg.handleGetPackage)
	})

	return r
}

func (reg *Registry) lookupSecret(key string) (string, bool) {
	secret, found := reg.creds[key]
	return secret, found
}

// auth verifies the request signature against the body bytes and rejects
// nonce reuse. The body is restored for the downstream handler.
func (reg *Registry) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "Failed to read request body")
			return
		}
		_ = r.Body.Close()

		auth, err := reg.verifier.Verify(r, body)
		if err != nil {
			if !errors.Is(err, pkgpush.ErrBadSignature) {
				writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
				return
			}
			slog.Debug("rejected request signature", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "invalid_credentials", err.Error())
			return
		}

		if !reg.claimNonce(auth.Cnonce) {
			writeError(w, http.StatusUnauthorized, "replayed_nonce", "Cnonce was already used")
			return
		}

		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

// claimNonce records a nonce, reporting false when it was seen before.
func (reg *Registry) claimNonce(cnonce string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, seen := reg.nonces[cnonce]; seen {
		return false
	}
	reg.nonces[cnonce] = struct{}{}
	return true
}

func (reg *Registry) handleUpload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "vendor") + "/" + chi.URLParam(r, "name")

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "Failed to read artifact")
		return
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()

	pkg, found := reg.packages[name]
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Package "+name+" does not exist")
		return
	}

	artifact := Artifact{
		ID:          reg.nextID,
		FileName:    r.Header.Get("X-FILENAME"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	}
	reg.nextID++
	reg.artifacts[name] = append(reg.artifacts[name], artifact)
	pkg.ArtifactIDs = append(pkg.ArtifactIDs, artifact.ID)

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       artifact.ID,
		"filename": artifact.FileName,
		"size":     len(artifact.Body),
	})
}

func (reg *Registry) handleGetPackage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "vendor") + "/" + chi.URLParam(r, "name")

	reg.mu.Lock()
	defer reg.mu.Unlock()

	pkg, found := reg.packages[name]
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "Package "+name+" does not exist")
		return
	}

	info := pkgpush.PackageInfo{
		Name: pkg.Name,
		Config: &pkgpush.PackageConfig{
			Type:        pkg.Type,
			ArtifactIDs: pkg.ArtifactIDs,
		},
	}
	if pkg.WebView != "" {
		info.Links = &pkgpush.PackageLinks{WebView: pkg.WebView}
	}

	writeJSON(w, http.StatusOK, info)
}

// errorResponse is the JSON error body the registry returns.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(errorResponse{
		Error:   errCode,
		Message: message,
	}); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
