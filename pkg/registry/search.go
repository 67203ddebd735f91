package registry

import (
	"context"
	"fmt"
	"net/url"
)

// DefaultSearchSize is the number of results requested per search.
const DefaultSearchSize = 20

// MaxSearchSize is the registry's hard limit on the size parameter.
const MaxSearchSize = 250

// SearchResult is one package hit from the registry search endpoint.
type SearchResult struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Description string      `json:"description,omitempty"`
	Publisher   string      `json:"publisher,omitempty"`
	Score       float64     `json:"score"`
	Links       SearchLinks `json:"links"`
}

// SearchLinks are the external pages the registry knows for a hit.
type SearchLinks struct {
	NPM        string `json:"npm,omitempty"`
	Homepage   string `json:"homepage,omitempty"`
	Repository string `json:"repository,omitempty"`
}

// Search queries GET {registry}/-/v1/search for text, returning up to
// size results ordered by registry score. An empty query returns no
// results without touching the network. Results are cached like
// metadata lookups.
func (c *Client) Search(ctx context.Context, text string, size int) ([]SearchResult, error) {
	if text == "" {
		return nil, nil
	}
	if size <= 0 {
		size = DefaultSearchSize
	}
	if size > MaxSearchSize {
		size = MaxSearchSize
	}

	key := fmt.Sprintf("npm:search:%s:%d", text, size)
	var results []SearchResult
	err := c.cached(ctx, "search", key, false, &results, func() error {
		endpoint := fmt.Sprintf("%s/-/v1/search?text=%s&size=%d", c.baseURL, url.QueryEscape(text), size)
		var resp searchResponse
		if err := c.getJSON(ctx, endpoint, &resp); err != nil {
			return err
		}
		results = make([]SearchResult, 0, len(resp.Objects))
		for _, obj := range resp.Objects {
			results = append(results, SearchResult{
				Name:        obj.Package.Name,
				Version:     obj.Package.Version,
				Description: obj.Package.Description,
				Publisher:   obj.Package.Publisher.Username,
				Score:       obj.Score.Final,
				Links: SearchLinks{
					NPM:        obj.Package.Links.NPM,
					Homepage:   obj.Package.Links.Homepage,
					Repository: obj.Package.Links.Repository,
				},
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

type searchResponse struct {
	Objects []searchObject `json:"objects"`
	Total   int            `json:"total"`
}

type searchObject struct {
	Package searchPackage `json:"package"`
	Score   searchScore   `json:"score"`
}

type searchPackage struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Publisher   struct {
		Username string `json:"username"`
	} `json:"publisher"`
	Links struct {
		NPM        string `json:"npm"`
		Homepage   string `json:"homepage"`
		Repository string `json:"repository"`
	} `json:"links"`
}

type searchScore struct {
	Final float64 `json:"final"`
}
