// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Parley Contributors

package server

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	parleyerr "github.com/parley-chat/parley/pkg/errors"
)

//go:embed templates/index.html
var templateFS embed.FS

type indexPage struct {
	tmpl *template.Template
}

type indexData struct {
	Demo    bool
	Model   string
	Version string
}

func newIndexPage() (*indexPage, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, parleyerr.Wrap(err, parleyerr.CodeServerConfigInvalid, "parsing index template")
	}
	return &indexPage{tmpl: tmpl}, nil
}

func (s *Server) registerIndexRoute() {
	s.router.Get("/", s.handleIndex)

	// The page is plain HTML, so it is served by chi directly and only
	// described in the OpenAPI document.
	s.api.OpenAPI().AddOperation(&huma.Operation{
		OperationID: "index",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Browser chat client",
		Tags:        []string{"ui"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "HTML page",
				Content: map[string]*huma.MediaType{
					"text/html": {Schema: &huma.Schema{Type: "string"}},
				},
			},
		},
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	st := s.chat.Status()

	var buf bytes.Buffer
	if err := s.index.tmpl.Execute(&buf, indexData{
		Demo:    st.Demo,
		Model:   st.Model,
		Version: s.cfg.Version,
	}); err != nil {
		slog.Error("rendering index page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
