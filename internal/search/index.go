// Package search mirrors application summaries into Elasticsearch so the
// dashboards can do free-text search on applicant name and reference number.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	apperrors "assistance-workflow/internal/common/errors"
	"assistance-workflow/internal/common/logger"
	"assistance-workflow/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const DefaultIndex = "applications"

const mapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "referenceNo":   {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "applicantName": {"type": "text"},
      "serviceType":   {"type": "keyword"},
      "status":        {"type": "keyword"},
      "duplicateOf":   {"type": "keyword"},
      "createdAt":     {"type": "date"},
      "updatedAt":     {"type": "date"}
    }
  }
}`

type Index struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewIndex(client *elasticsearch.Client, index string, log logger.Logger) *Index {
	if index == "" {
		index = DefaultIndex
	}
	return &Index{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "search", "index": index}),
	}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (x *Index) EnsureIndex(ctx context.Context) error {
	res, err := x.client.Indices.Exists([]string{x.index}, x.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = x.client.Indices.Create(x.index,
		x.client.Indices.Create.WithContext(ctx),
		x.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("create index: %s", res.Status())
	}
	x.logger.Info("search index created", nil)
	return nil
}

// Index upserts the summary under the application id.
func (x *Index) Index(ctx context.Context, summary models.ApplicationSummary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}

	res, err := x.client.Index(x.index, bytes.NewReader(body),
		x.client.Index.WithContext(ctx),
		x.client.Index.WithDocumentID(summary.ID),
	)
	if err != nil {
		return fmt.Errorf("index %s: %w", summary.ID, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index %s: %s", summary.ID, responseError(res))
	}
	return nil
}

// Search runs the dashboard query against the index, newest first.
func (x *Index) Search(ctx context.Context, q models.ListQuery) ([]models.ApplicationSummary, int, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, 0, apperrors.NewSearchQueryFailedError(err)
	}

	from, size := q.Offset(), q.PageSize
	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.index),
		x.client.Search.WithBody(bytes.NewReader(body)),
		x.client.Search.WithFrom(from),
		x.client.Search.WithSize(size),
		x.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, apperrors.NewSearchQueryFailedError(fmt.Errorf("%s", responseError(res)))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, 0, apperrors.NewSearchQueryFailedError(fmt.Errorf("decode response: %w", err))
	}

	items := make([]models.ApplicationSummary, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		items = append(items, hit.Source)
	}
	return items, parsed.Hits.Total.Value, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source models.ApplicationSummary `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func buildQuery(q models.ListQuery) map[string]interface{} {
	statuses := make([]string, len(q.Statuses))
	for i, st := range q.Statuses {
		statuses[i] = string(st)
	}

	filter := []interface{}{
		map[string]interface{}{"terms": map[string]interface{}{"status": statuses}},
	}
	if q.ServiceType != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"serviceType": q.ServiceType},
		})
	}
	if q.UpdatedFrom != nil || q.UpdatedTo != nil {
		rng := map[string]interface{}{}
		if q.UpdatedFrom != nil {
			rng["gte"] = q.UpdatedFrom
		}
		if q.UpdatedTo != nil {
			rng["lte"] = q.UpdatedTo
		}
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"updatedAt": rng},
		})
	}

	boolQuery := map[string]interface{}{"filter": filter}
	if term := strings.TrimSpace(q.Search); term != "" {
		boolQuery["must"] = []interface{}{
			map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":    term,
					"fields":   []string{"applicantName^2", "referenceNo"},
					"type":     "best_fields",
					"operator": "and",
				},
			},
		}
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": "desc"},
			map[string]interface{}{"id": "asc"},
		},
	}
}

func responseError(res *esapi.Response) string {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Sprintf("%s: %s", res.Status(), strings.TrimSpace(string(data)))
}
