package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"production-service/internal/domain"
)

// ProductModel is the part of a product model an order copies when it is
// created from that model.
type ProductModel struct {
	ID           string        `json:"id"`
	ItemCode     string        `json:"itemCode"`
	ProductImage string        `json:"productImage"`
	Gender       domain.Gender `json:"gender"`
	BOM          domain.BOM    `json:"bom"`
	IsArchived   bool          `json:"isArchived"`
}

type ModelClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewModelClient(baseURL string, timeout time.Duration) *ModelClient {
	return &ModelClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetModelByID returns (nil, nil) when the model does not exist. The model
// service only lists models (GET /api/models), so the lookup filters that
// list by id.
func (c *ModelClient) GetModelByID(ctx context.Context, id string) (*ProductModel, error) {
	models, err := c.listModels(ctx)
	if err != nil {
		return nil, err
	}
	for i := range models {
		if models[i].ID == id {
			return &models[i], nil
		}
	}
	return nil, nil
}

func (c *ModelClient) listModels(ctx context.Context) ([]ProductModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/models", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model service returned status %d", resp.StatusCode)
	}

	var models []ProductModel
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("model service: decode list: %w", err)
	}
	return models, nil
}
