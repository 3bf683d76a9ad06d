// Package server exposes the highlighter over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"braces.dev/errtrace"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.abhg.dev/lazyhl/internal/highlight"
	"go.abhg.dev/lazyhl/internal/shine"
)

// maxBodySize bounds the size of a highlight request.
const maxBodySize = 4 << 20

// Handler serves highlight requests.
//
//	POST /highlight           highlight code, respond with HTML
//	GET  /themes/{name}.css   style sheet for class based output
//	GET  /metrics             Prometheus metrics, if enabled
type Handler struct {
	Runtime *shine.Runtime // required
	Log     *log.Logger

	// Prometheus serves /metrics from the default registry.
	Prometheus bool
}

// Request is the body of a highlight request.
type Request struct {
	Code   string `json:"code"`
	Lang   string `json:"lang,omitempty"`
	Theme  string `json:"theme,omitempty"`
	Unwrap bool   `json:"unwrap,omitempty"`

	Classes     bool `json:"classes,omitempty"`
	LineNumbers bool `json:"lineNumbers,omitempty"`
}

// Mux builds the routes for h.
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /highlight", h.highlight)
	mux.HandleFunc("GET /themes/{file}", h.theme)
	if h.Prometheus {
		mux.Handle("GET /metrics", promhttp.Handler())
	}
	return mux
}

func (h *Handler) logf(format string, args ...any) {
	if h.Log != nil {
		h.Log.Printf(format, args...)
	}
}

func (h *Handler) highlight(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRequest(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	hl, err := h.Runtime.GetHighlighter(r.Context())
	if err != nil {
		h.logf("build highlighter: %v", err)
		http.Error(w, "highlighter unavailable", http.StatusInternalServerError)
		return
	}

	out, err := hl.Highlight(r.Context(), req.Code, highlight.Options{
		Lang:        req.Lang,
		Theme:       req.Theme,
		Unwrap:      req.Unwrap,
		Classes:     req.Classes,
		LineNumbers: req.LineNumbers,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, highlight.ErrLanguageNotLoaded) || errors.Is(err, highlight.ErrThemeNotLoaded) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, out); err != nil {
		h.logf("write response: %v", err)
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req Request
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errtrace.Wrap(err)
		}

	default:
		if err := r.ParseForm(); err != nil {
			return nil, errtrace.Wrap(err)
		}
		req.Code = r.PostForm.Get("code")
		req.Lang = r.PostForm.Get("lang")
		req.Theme = r.PostForm.Get("theme")
		for _, f := range []struct {
			name string
			dst  *bool
		}{
			{"unwrap", &req.Unwrap},
			{"classes", &req.Classes},
			{"lineNumbers", &req.LineNumbers},
		} {
			v := r.PostForm.Get(f.name)
			if v == "" {
				continue
			}
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, errtrace.Errorf("%v: %w", f.name, err)
			}
			*f.dst = b
		}
	}
	return &req, nil
}

func (h *Handler) theme(w http.ResponseWriter, r *http.Request) {
	name, ok := strings.CutSuffix(r.PathValue("file"), ".css")
	if !ok {
		http.NotFound(w, r)
		return
	}

	hl, err := h.Runtime.GetHighlighter(r.Context())
	if err != nil {
		h.logf("build highlighter: %v", err)
		http.Error(w, "highlighter unavailable", http.StatusInternalServerError)
		return
	}

	var css strings.Builder
	if err := hl.WriteCSS(&css, name); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	if _, err := io.WriteString(w, css.String()); err != nil {
		h.logf("write response: %v", err)
	}
}
