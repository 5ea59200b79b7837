// usda — поиск нутриентов в USDA FoodData Central.
package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pribylovaa/snapfood/internal/models"
)

const (
	DefaultURL     = "https://api.nal.usda.gov/fdc/v1/foods/search"
	defaultTimeout = 10 * time.Second
)

// ErrStatus — FoodData Central ответил не-200.
var ErrStatus = errors.New("usda: unexpected status")

// Client реализует service.NutritionLookup.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// New создаёт клиента. Пустой baseURL означает публичный endpoint поиска.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{baseURL: baseURL, apiKey: apiKey, client: &http.Client{Timeout: timeout}}
}

type searchResponse struct {
	Foods []struct {
		Description   string `json:"description"`
		FoodNutrients []struct {
			NutrientName string   `json:"nutrientName"`
			UnitName     string   `json:"unitName"`
			Value        *float64 `json:"value"`
		} `json:"foodNutrients"`
	} `json:"foods"`
}

// Zero — набор нутриентов по умолчанию, когда поиск ничего не дал.
func Zero() models.Nutrients {
	return models.Nutrients{
		"calories":    0.0,
		"protein":     0.0,
		"carbs":       0.0,
		"fat":         0.0,
		"fiber":       0.0,
		"sodium":      0.0,
		"sugar":       0.0,
		"cholesterol": 0.0,
		"calcium":     0.0,
		"iron":        0.0,
	}
}

// Lookup ищет первое совпадение по названию блюда.
// При ошибке возвращается Zero() вместе с ошибкой.
func (c *Client) Lookup(ctx context.Context, food string) (models.Nutrients, error) {
	const op = "clients.usda.Lookup"

	q := url.Values{}
	q.Set("api_key", c.apiKey)
	q.Set("query", food)
	q.Set("pageSize", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return Zero(), fmt.Errorf("%s: new_request: %w", op, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Zero(), fmt.Errorf("%s: do: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Zero(), fmt.Errorf("%s: %w: %d", op, ErrStatus, resp.StatusCode)
	}

	var doc searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return Zero(), fmt.Errorf("%s: decode: %w", op, err)
	}

	out := Zero()
	if len(doc.Foods) == 0 {
		return out, nil
	}

	energySet := false
	for _, n := range doc.Foods[0].FoodNutrients {
		if n.Value == nil {
			continue
		}
		v := *n.Value
		name := strings.ToLower(n.NutrientName)

		switch {
		case strings.Contains(name, "energy"):
			// Энергия приходит и в KCAL, и в kJ.
			if energySet || (n.UnitName != "" && !strings.EqualFold(n.UnitName, "KCAL")) {
				continue
			}
			out["calories"] = math.Round(v)
			energySet = true
		case name == "protein":
			out["protein"] = v
		case strings.Contains(name, "carbohydrate"):
			out["carbs"] = v
		case strings.Contains(name, "total lipid"):
			out["fat"] = v
		case strings.Contains(name, "fiber"):
			out["fiber"] = v
		case strings.Contains(name, "sodium"):
			out["sodium"] = v
		case strings.Contains(name, "sugars"):
			out["sugar"] = v
		case strings.Contains(name, "cholesterol"):
			out["cholesterol"] = v
		case strings.Contains(name, "calcium"):
			out["calcium"] = v
		case strings.Contains(name, "iron"):
			out["iron"] = v
		}
	}

	return out, nil
}
