package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-firestore-crud/internal/domain/entity"
	"github.com/oksasatya/go-firestore-crud/internal/domain/event"
	"github.com/oksasatya/go-firestore-crud/pkg/helpers"
)

const (
	requestTimeout    = 3 * time.Second
	defaultSearchSize = 10
	maxSearchSize     = 50
)

// UserIndex is one Elasticsearch index holding user snapshots keyed by user id.
type UserIndex struct {
	es     *elasticsearch.Client
	index  string
	logger *logrus.Logger
}

func NewUserIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *UserIndex {
	return &UserIndex{es: es, index: index, logger: logger}
}

type userDoc struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Age       int    `json:"age"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func responseErr(op string, res *esapi.Response) error {
	return fmt.Errorf("elasticsearch %s: %s", op, res.Status())
}

// Upsert indexes the snapshot under its user id.
func (x *UserIndex) Upsert(ctx context.Context, u *event.UserSnapshot) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("elasticsearch index: missing user id")
	}
	b, err := json.Marshal(userDoc{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.index, DocumentID: u.ID, Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseErr("index", res)
	}
	return nil
}

// Delete removes one user. A missing document is not an error.
func (x *UserIndex) Delete(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: x.index, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return responseErr("delete", res)
	}
	return nil
}

// DeleteByAgeRange removes every mirrored user with minAge <= age <= maxAge.
func (x *UserIndex) DeleteByAgeRange(ctx context.Context, minAge, maxAge int) error {
	return x.deleteByQuery(ctx, map[string]any{
		"range": map[string]any{
			"age": map[string]any{"gte": minAge, "lte": maxAge},
		},
	})
}

func (x *UserIndex) deleteByQuery(ctx context.Context, query map[string]any) error {
	b, err := json.Marshal(map[string]any{"query": query})
	if err != nil {
		return err
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.DeleteByQuery([]string{x.index}, bytes.NewReader(b), x.es.DeleteByQuery.WithContext(c))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return responseErr("delete_by_query", res)
	}
	return nil
}

// Search runs a multi_match query over name and email.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]*entity.User, error) {
	if size <= 0 || size > maxSearchSize {
		size = defaultSearchSize
	}
	b, err := json.Marshal(map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"name^2", "email"},
			},
		},
		"size": size,
	})
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.es.Search(x.es.Search.WithContext(c), x.es.Search.WithIndex(x.index), x.es.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, responseErr("search", res)
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string  `json:"_id"`
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]*entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		u := &entity.User{ID: h.ID, Name: h.Source.Name, Email: h.Source.Email, Age: h.Source.Age}
		if t, err := time.Parse(time.RFC3339Nano, h.Source.CreatedAt); err == nil {
			u.CreatedAt = t
		}
		if t, err := time.Parse(time.RFC3339Nano, h.Source.UpdatedAt); err == nil {
			u.UpdatedAt = t
		}
		out = append(out, u)
	}
	helpers.LogDebug(x.logger, "user search", logrus.Fields{"q": q, "hits": len(out)})
	return out, nil
}

// DeleteAll empties the index while keeping its mapping.
func (x *UserIndex) DeleteAll(ctx context.Context) error {
	return x.deleteByQuery(ctx, map[string]any{"match_all": map[string]any{}})
}
