package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/oksasatya/go-firestore-crud/internal/domain/event"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

type recorded struct {
	Method string
	Path   string
	Body   string
}

func fakeES(t *testing.T, status int, reply string) (*UserIndex, func() []recorded) {
	t.Helper()
	var (
		mu   sync.Mutex
		reqs []recorded
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		reqs = append(reqs, recorded{Method: r.Method, Path: r.URL.Path, Body: string(b)})
		mu.Unlock()
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	if err != nil {
		t.Fatalf("es client: %v", err)
	}
	return NewUserIndex(es, "users", helpers.NewNopLogger()), func() []recorded {
		mu.Lock()
		defer mu.Unlock()
		return append([]recorded(nil), reqs...)
	}
}

func TestUpsert(t *testing.T) {
	idx, reqs := fakeES(t, http.StatusCreated, `{"result":"created"}`)
	now := time.Now().UTC()
	err := idx.Upsert(context.Background(), &event.UserSnapshot{ID: "abc", Name: "Jane Doe", Email: "jane@example.com", Age: 25, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got := reqs()
	if len(got) != 1 || got[0].Method != http.MethodPut || got[0].Path != "/users/_doc/abc" {
		t.Fatalf("unexpected requests %+v", got)
	}
	if !strings.Contains(got[0].Body, `"email":"jane@example.com"`) {
		t.Fatalf("unexpected body %s", got[0].Body)
	}
	if err := idx.Upsert(context.Background(), &event.UserSnapshot{}); err == nil {
		t.Fatalf("expected error for snapshot without id")
	}
}

func TestDelete_MissingIsNotAnError(t *testing.T) {
	idx, _ := fakeES(t, http.StatusNotFound, `{"result":"not_found"}`)
	if err := idx.Delete(context.Background(), "abc"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
}

func TestDeleteByAgeRange(t *testing.T) {
	idx, reqs := fakeES(t, http.StatusOK, `{"deleted":2}`)
	if err := idx.DeleteByAgeRange(context.Background(), 20, 30); err != nil {
		t.Fatalf("DeleteByAgeRange: %v", err)
	}
	got := reqs()
	if len(got) != 1 || got[0].Path != "/users/_delete_by_query" {
		t.Fatalf("unexpected requests %+v", got)
	}
	var body struct {
		Query struct {
			Range struct {
				Age struct {
					Gte int `json:"gte"`
					Lte int `json:"lte"`
				} `json:"age"`
			} `json:"range"`
		} `json:"query"`
	}
	if err := json.Unmarshal([]byte(got[0].Body), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Query.Range.Age.Gte != 20 || body.Query.Range.Age.Lte != 30 {
		t.Fatalf("unexpected range %+v", body.Query.Range.Age)
	}
}

func TestSearch(t *testing.T) {
	reply := `{"hits":{"hits":[{"_id":"abc","_source":{"id":"abc","name":"Jane Doe","email":"jane@example.com","age":25,"created_at":"2024-01-02T03:04:05Z","updated_at":"2024-01-02T03:04:05Z"}}]}}`
	idx, _ := fakeES(t, http.StatusOK, reply)
	users, err := idx.Search(context.Background(), "jane", 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(users) != 1 || users[0].ID != "abc" || users[0].Age != 25 || users[0].CreatedAt.IsZero() {
		t.Fatalf("unexpected users %+v", users)
	}
}

func TestSearch_ErrorStatus(t *testing.T) {
	idx, _ := fakeES(t, http.StatusInternalServerError, `{"error":"boom"}`)
	if _, err := idx.Search(context.Background(), "jane", 5); err == nil {
		t.Fatalf("expected error on 500")
	}
}
