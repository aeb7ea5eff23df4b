package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
)

// Client habla con el backend de listados: GET {base}{path}?{query} con token bearer.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL, token string, timeout time.Duration, log *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// envelope son los campos de paginación comunes a todas las respuestas de listado.
type envelope struct {
	Page      int `json:"page"`
	PageSize  int `json:"pageSize"`
	PageCount int `json:"pageCount"`
	Pages     int `json:"pages"`
	Total     int `json:"total"`
}

// Fetcher devuelve el domain.Fetcher de una tabla; las filas se leen de spec.ItemsKey.
func Fetcher[T any](c *Client, spec domain.TableSpec) domain.Fetcher[T] {
	spec = spec.WithDefaults()
	return func(ctx context.Context, desc domain.RequestDescriptor) (*domain.Page[T], error) {
		return fetch[T](ctx, c, spec.ItemsKey, desc)
	}
}

func fetch[T any](ctx context.Context, c *Client, itemsKey string, desc domain.RequestDescriptor) (*domain.Page[T], error) {
	url := c.baseURL + desc.QueryKey()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list fetch %s: %w", desc.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &domain.FetchError{Status: resp.StatusCode, URL: url}
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s: %w", desc.Path, err)
	}

	var env envelope
	if err := remarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode %s envelope: %w", desc.Path, err)
	}
	page := &domain.Page[T]{
		Page:      env.Page,
		PageSize:  env.PageSize,
		PageCount: env.PageCount,
		Total:     env.Total,
	}
	if page.PageCount == 0 {
		page.PageCount = env.Pages
	}
	if items, ok := raw[itemsKey]; ok && string(items) != "null" {
		if err := json.Unmarshal(items, &page.Items); err != nil {
			return nil, fmt.Errorf("decode %s items: %w", desc.Path, err)
		}
	}
	page.Normalize()

	c.log.Debug("Listado obtenido",
		zap.String("path", desc.Path),
		zap.Int("items", len(page.Items)),
		zap.Int("total", page.Total),
	)
	return page, nil
}

func remarshal(raw map[string]json.RawMessage, dest interface{}) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}
