package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elanq/ecommerce-search/internal/domain"
	"github.com/elanq/ecommerce-search/internal/index"
)

// esBulkResponse decodes bulk responses. Items are keyed by action name, so
// the map form covers both index and update actions.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// Upsert replaces the full document under the product's ID.
func (e *Engine) Upsert(ctx context.Context, doc *domain.ProductDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: marshal document: %w", err)
	}

	res, err := e.client.Index(
		IndexName,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(doc.ID),
		e.client.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch upsert: %w: %v", index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return e.apiError("elasticsearch upsert", res)
	}

	e.logger.Debug("indexed product", "id", doc.ID, "name", doc.Name)
	return nil
}

// Delete removes a document by ID. A 404 is ignored so deletes stay
// idempotent.
func (e *Engine) Delete(ctx context.Context, id string) error {
	res, err := e.client.Delete(
		IndexName,
		id,
		e.client.Delete.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch delete: %w: %v", index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != 404 {
		return e.apiError("elasticsearch delete", res)
	}

	e.logger.Debug("deleted product", "id", id)
	return nil
}

// UpdateActivityCount overwrites a single popularity counter via a partial
// update, leaving the rest of the document untouched.
func (e *Engine) UpdateActivityCount(ctx context.Context, id string, activityType domain.ActivityType, count int64) error {
	field := "view_count"
	if activityType == domain.ActivityPurchase {
		field = "purchase_count"
	}

	body := map[string]any{
		"doc": map[string]any{field: count},
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("elasticsearch update count: marshal body: %w", err)
	}

	res, err := e.client.Update(
		IndexName,
		id,
		bytes.NewReader(data),
		e.client.Update.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch update count: %w: %v", index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return e.apiError("elasticsearch update count", res)
	}

	e.logger.Debug("updated activity count", "id", id, "field", field, "count", count)
	return nil
}

// BulkUpsert writes a batch of documents with the NDJSON bulk API using
// doc_as_upsert updates, and reports per-item failures without failing the
// whole call.
func (e *Engine) BulkUpsert(ctx context.Context, docs []domain.ProductDocument) ([]index.BulkItemError, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	for i := range docs {
		action := map[string]any{
			"update": map[string]any{
				"_index": IndexName,
				"_id":    docs[i].ID,
			},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk upsert: encode action: %w", err)
		}

		line := map[string]any{
			"doc":           docs[i],
			"doc_as_upsert": true,
		}
		if err := json.NewEncoder(&buf).Encode(line); err != nil {
			return nil, fmt.Errorf("elasticsearch bulk upsert: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(IndexName),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch bulk upsert: %w: %v", index.ErrTransient, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, e.apiError("elasticsearch bulk upsert", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return nil, fmt.Errorf("elasticsearch bulk upsert: decode response: %w", err)
	}

	var itemErrs []index.BulkItemError
	if bulkResp.Errors {
		for _, item := range bulkResp.Items {
			for _, action := range item {
				if action.Error.Type != "" {
					itemErrs = append(itemErrs, index.BulkItemError{
						ID:     action.ID,
						Type:   action.Error.Type,
						Reason: action.Error.Reason,
					})
				}
			}
		}
	}

	e.logger.Debug("bulk upserted products", "count", len(docs), "failed", len(itemErrs))
	return itemErrs, nil
}
