package unifi

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

// integrationPageSize is the page size requested from the Integration API.
const integrationPageSize = 200

type integrationPage struct {
	Offset     int               `json:"offset"`
	Limit      int               `json:"limit"`
	Count      int               `json:"count"`
	TotalCount int               `json:"totalCount"`
	Data       []json.RawMessage `json:"data"`
}

// PaginateIntegration walks an Integration API collection and returns every
// item. Paging stops when a page comes back short or the accumulated items
// reach the reported total, whichever happens first, so a server that lies
// about totalCount cannot loop us forever.
func (c *Client) PaginateIntegration(ctx context.Context, rawURL string, mode Mode, extra url.Values) ([]json.RawMessage, error) {
	items := make([]json.RawMessage, 0, integrationPageSize)
	offset := 0

	for {
		params := url.Values{}
		for k, vs := range extra {
			params[k] = vs
		}
		params.Set("limit", strconv.Itoa(integrationPageSize))
		params.Set("offset", strconv.Itoa(offset))

		raw, err := c.Get(ctx, rawURL, mode, params)
		if err != nil {
			return nil, err
		}

		var page integrationPage
		if err := json.Unmarshal(raw, &page); err != nil {
			// Some endpoints return a bare array instead of an envelope.
			var bare []json.RawMessage
			if err2 := json.Unmarshal(raw, &bare); err2 == nil {
				return bare, nil
			}
			return nil, err
		}

		items = append(items, page.Data...)

		if page.Count < page.Limit || page.Count == 0 {
			return items, nil
		}
		if page.TotalCount > 0 && len(items) >= page.TotalCount {
			return items, nil
		}
		offset += page.Count
	}
}
