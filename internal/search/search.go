package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/redecorapp/redecor/internal/models"
)

const DefaultIndex = "transformations"

// Client mirrors finished transformations into elasticsearch and answers
// free-text queries over a user's history. A nil *Client disables search.
type Client struct {
	ES    *elasticsearch.Client
	Index string
}

func NewClient(url, user, password string) (*Client, error) {
	if url == "" {
		return nil, nil
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{url},
		Username:  user,
		Password:  password,
	})
	if err != nil {
		return nil, fmt.Errorf("search: client: %w", err)
	}

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("search: info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("search: info: %s: %s", res.Status(), body)
	}

	return &Client{ES: es, Index: DefaultIndex}, nil
}

type TransformationDoc struct {
	ID            uint   `json:"id"`
	RoomType      string `json:"room_type"`
	Style         string `json:"style"`
	Customization string `json:"customization"`
	UserEmail     string `json:"user_email"`
	URL           string `json:"url"`
	CreatedAt     string `json:"created_at"`
}

func (c *Client) Indexable() bool { return c != nil && c.ES != nil }

func (c *Client) IndexTransformation(ctx context.Context, img *models.AiGeneratedImage) error {
	if !c.Indexable() {
		return nil
	}

	doc := TransformationDoc{
		ID:            img.ID,
		RoomType:      img.RoomType,
		Style:         img.Style,
		Customization: img.Customization,
		UserEmail:     img.UserEmail,
		URL:           img.AiGeneratedImageURL,
		CreatedAt:     img.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(doc); err != nil {
		return err
	}

	res, err := c.ES.Index(
		c.Index,
		&buf,
		c.ES.Index.WithContext(ctx),
		c.ES.Index.WithDocumentID(strconv.FormatUint(uint64(img.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search: index: %s", res.Status())
	}
	return nil
}

// SearchTransformations runs a fuzzy multi-field query scoped to one user.
func (c *Client) SearchTransformations(ctx context.Context, email, query string, from, size int) (int64, []TransformationDoc, error) {
	if !c.Indexable() {
		return 0, nil, fmt.Errorf("search: not configured")
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"user_email": email},
				},
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     query,
						"fields":    []string{"room_type^2", "style^2", "customization"},
						"fuzziness": "AUTO",
					},
				},
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, err
	}

	res, err := c.ES.Search(
		c.ES.Search.WithContext(ctx),
		c.ES.Search.WithIndex(c.Index),
		c.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: query: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source TransformationDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	docs := make([]TransformationDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		docs[i] = hit.Source
	}
	return r.Hits.Total.Value, docs, nil
}
