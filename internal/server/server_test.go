/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func newTestServer() *Server {
	return &Server{router: chi.NewRouter()}
}

func TestHealthzReportsOKWithoutLeaderField(t *testing.T) {
	srv := newTestServer()
	srv.configureRoutes()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("body = %q, want status:ok", body)
	}
	if strings.Contains(body, "leader") {
		t.Fatalf("body = %q, want no leader field when election is disabled", body)
	}
}

func TestMetricsRouteIsRegistered(t *testing.T) {
	srv := newTestServer()
	srv.configureRoutes()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	srv.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if rr.Body.Len() == 0 {
		t.Fatal("expected non-empty metrics body")
	}
}

func TestStopBackgroundWorkersIsSafeWithoutStart(t *testing.T) {
	srv := newTestServer()
	srv.stopBackgroundWorkers()
}
