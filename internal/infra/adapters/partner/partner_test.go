//go:build !integration

package partner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"funnel-billing/internal/config"
	"funnel-billing/internal/domain/ports/adapter"
)

func TestHTTPCRM_RegisterSignup(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer crm-key" {
			t.Errorf("missing auth header")
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()
	crm, err := NewHTTPCRM(&config.CRMConfig{URL: srv.URL, APIKey: "crm-key", BoardID: "b1", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	err = crm.RegisterSignup(context.Background(), adapter.Lead{AccountID: "a1", Email: "dana@example.com", Plan: "PARTNER", Source: "funnel"})

	if err != nil {
		t.Fatalf("register: %v", err)
	}
	item, _ := got["item"].(map[string]any)
	if got["board_id"] != "b1" || item["email"] != "dana@example.com" || item["plan"] != "PARTNER" {
		t.Errorf("unexpected body %v", got)
	}
}

func TestHTTPCRM_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "board locked", http.StatusConflict)
	}))
	defer srv.Close()
	crm, _ := NewHTTPCRM(&config.CRMConfig{URL: srv.URL, Timeout: time.Second})

	err := crm.RegisterSignup(context.Background(), adapter.Lead{AccountID: "a1"})

	if err == nil || !strings.Contains(err.Error(), "409") || !strings.Contains(err.Error(), "board locked") {
		t.Errorf("expected status in error, got %v", err)
	}
}

func TestHTTPWorkspaceCloner_Clone(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/workspaces/clone" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["source_workspace_id"] == "empty" {
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"workspace_id":"ws-new-` + in["owner_id"] + `"}`))
	}))
	defer srv.Close()
	cl, err := NewHTTPWorkspaceCloner(&config.WorkspaceConfig{ClonerURL: srv.URL + "/", Timeout: time.Second})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	id, err := cl.Clone(context.Background(), "ws-template", "a1")
	if err != nil || id != "ws-new-a1" {
		t.Errorf("expected ws-new-a1, got %q, %v", id, err)
	}
	if _, err := cl.Clone(context.Background(), "empty", "a1"); err == nil {
		t.Error("expected error for empty workspace id")
	}
}
