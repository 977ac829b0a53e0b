package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nikolayk812/storefront/internal/config"
	"github.com/nikolayk812/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const defaultPageSize = 100

// Client reads product entries from the Contentful Delivery API.
type Client struct {
	httpClient *http.Client

	baseURL       string
	spaceID       string
	environment   string
	accessToken   string
	contentTypeID string
	pageSize      int
}

func NewClient(cfg config.Contentful, httpClient *http.Client) (*Client, error) {
	if cfg.SpaceID == "" || cfg.AccessToken == "" || cfg.ContentTypeID == "" {
		return nil, &domain.ConfigError{Reason: "contentful space, access token and content type are required"}
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	environment := cfg.Environment
	if environment == "" {
		environment = "master"
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       cfg.BaseURL,
		spaceID:       cfg.SpaceID,
		environment:   environment,
		accessToken:   cfg.AccessToken,
		contentTypeID: cfg.ContentTypeID,
		pageSize:      defaultPageSize,
	}, nil
}

// Fetch returns every entry of the configured content type, following
// pagination. Any malformed entry fails the whole fetch.
func (c *Client) Fetch(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product

	for skip := 0; ; {
		page, err := c.fetchPage(ctx, skip)
		if err != nil {
			return nil, fmt.Errorf("%w: c.fetchPage[skip=%d]: %w", domain.ErrNetwork, skip, err)
		}

		mapped, err := mapEntriesToDomain(page)
		if err != nil {
			return nil, fmt.Errorf("%w: mapEntriesToDomain: %w", domain.ErrNetwork, err)
		}
		products = append(products, mapped...)

		skip += len(page.Items)
		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, nil
}

func (c *Client) fetchPage(ctx context.Context, skip int) (entriesResponse, error) {
	endpoint := fmt.Sprintf("%s/spaces/%s/environments/%s/entries",
		c.baseURL, url.PathEscape(c.spaceID), url.PathEscape(c.environment))

	query := url.Values{}
	query.Set("content_type", c.contentTypeID)
	query.Set("limit", strconv.Itoa(c.pageSize))
	query.Set("skip", strconv.Itoa(skip))
	query.Set("include", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return entriesResponse{}, fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return entriesResponse{}, fmt.Errorf("httpClient.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return entriesResponse{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, body)
	}

	var page entriesResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return entriesResponse{}, fmt.Errorf("decode entries: %w", err)
	}

	return page, nil
}

type entriesResponse struct {
	Total    int     `json:"total"`
	Items    []entry `json:"items"`
	Includes struct {
		Asset []asset `json:"Asset"`
	} `json:"includes"`
}

type sys struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	LinkType string `json:"linkType,omitempty"`
}

type entry struct {
	Sys    sys `json:"sys"`
	Fields struct {
		Title string      `json:"title"`
		Price json.Number `json:"price"`
		Image *asset      `json:"image"`
	} `json:"fields"`
}

// asset is either a resolved asset or a link to one in includes.Asset.
type asset struct {
	Sys    sys `json:"sys"`
	Fields *struct {
		File *struct {
			URL string `json:"url"`
		} `json:"file"`
	} `json:"fields"`
}

func (a *asset) url() string {
	if a == nil || a.Fields == nil || a.Fields.File == nil {
		return ""
	}
	return a.Fields.File.URL
}

func mapEntriesToDomain(page entriesResponse) ([]domain.Product, error) {
	assets := make(map[string]*asset, len(page.Includes.Asset))
	for i := range page.Includes.Asset {
		a := &page.Includes.Asset[i]
		assets[a.Sys.ID] = a
	}

	products := make([]domain.Product, 0, len(page.Items))
	for i, e := range page.Items {
		product, err := mapEntryToDomain(e, assets)
		if err != nil {
			return nil, fmt.Errorf("entry[%d]: %w", i, err)
		}
		products = append(products, product)
	}

	return products, nil
}

func mapEntryToDomain(e entry, assets map[string]*asset) (domain.Product, error) {
	if e.Sys.ID == "" {
		return domain.Product{}, fmt.Errorf("sys.id is empty")
	}

	price, err := decimal.NewFromString(e.Fields.Price.String())
	if err != nil {
		return domain.Product{}, fmt.Errorf("id[%s]: fields.price[%s] is not valid: %w", e.Sys.ID, e.Fields.Price, err)
	}

	if e.Fields.Image == nil {
		return domain.Product{}, fmt.Errorf("id[%s]: fields.image is missing", e.Sys.ID)
	}

	image := e.Fields.Image.url()
	if image == "" && e.Fields.Image.Sys.Type == "Link" {
		image = assets[e.Fields.Image.Sys.ID].url()
	}
	if image == "" {
		return domain.Product{}, fmt.Errorf("id[%s]: fields.image.fields.file.url is missing", e.Sys.ID)
	}

	return domain.Product{
		ID:    e.Sys.ID,
		Title: e.Fields.Title,
		Price: price,
		Image: image,
	}, nil
}
