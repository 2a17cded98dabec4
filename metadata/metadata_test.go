package metadata_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"musicportal/apperr"
	"musicportal/config"
	"musicportal/metadata"
	"musicportal/model"
	"musicportal/testsupport"

	"github.com/gin-gonic/gin"
)

func TestOpenMigratesAllModels(t *testing.T) {
	db := testsupport.NewDB(t)
	for _, m := range metadata.Models {
		if !db.Migrator().HasTable(m) {
			t.Fatalf("missing table for %T", m)
		}
	}
	if !db.Migrator().HasTable(&model.Label{}) {
		t.Fatal("missing labels table")
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := metadata.Open(config.DatabaseConfig{Driver: "oracle", DSN: "x"})
	if err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestReleaseTitleExists(t *testing.T) {
	db := testsupport.NewDB(t)
	ctx := context.Background()

	if err := db.Create(&model.Release{OwnerID: 1, Title: "Monsoon", Status: model.StatusDraft}).Error; err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		owner uint
		title string
		want  bool
	}{
		{1, "Monsoon", true},
		{1, " Monsoon ", true},
		{2, "Monsoon", false},
		{1, "Winter", false},
	} {
		got, err := metadata.ReleaseTitleExists(ctx, tc.owner, tc.title)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Fatalf("ReleaseTitleExists(%d, %q) = %v, want %v", tc.owner, tc.title, got, tc.want)
		}
	}
}

func TestReleaseTitleExistsReportsQueryErrors(t *testing.T) {
	db := testsupport.NewDB(t)
	if err := metadata.Close(db); err != nil {
		t.Fatal(err)
	}

	exists, err := metadata.ReleaseTitleExists(context.Background(), 1, "Monsoon")
	if err == nil || exists {
		t.Fatalf("expected an error from a closed database, got %v %v", exists, err)
	}
}

func TestDropdownOrderedByName(t *testing.T) {
	db := testsupport.NewDB(t)
	for _, name := range []string{"Zee Music", "Aditya", "Mango"} {
		if err := db.Create(&model.Label{Name: name}).Error; err != nil {
			t.Fatal(err)
		}
	}

	items, err := metadata.Dropdown(context.Background(), "labels")
	if err != nil {
		t.Fatalf("Dropdown: %v", err)
	}
	if len(items) != 3 || items[0].Name != "Aditya" || items[2].Name != "Zee Music" {
		t.Fatalf("unexpected items: %+v", items)
	}

	_, err = metadata.Dropdown(context.Background(), "moods")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetDropdownHandler(t *testing.T) {
	db := testsupport.NewDB(t)
	if err := db.Create(&model.Category{Name: "Devotional"}).Error; err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	metadata.RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metadata/categories", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Items []metadata.DropdownItem `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Name != "Devotional" {
		t.Fatalf("unexpected items: %+v", resp.Items)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metadata/moods", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown kind: status %d", w.Code)
	}
}
