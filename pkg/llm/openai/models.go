package openai

import (
	"context"
	"fmt"
	"sort"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// ListModels returns the model IDs the endpoint serves, sorted.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	client := openaisdk.NewClient(
		option.WithBaseURL(c.baseURL+"/"),
		option.WithAPIKey(c.apiKey),
		option.WithHTTPClient(c.httpClient),
		option.WithMaxRetries(0),
	)

	page, err := client.Models.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	ids := make([]string, 0, len(page.Data))
	for _, m := range page.Data {
		ids = append(ids, m.ID)
	}
	sort.Strings(ids)
	return ids, nil
}
