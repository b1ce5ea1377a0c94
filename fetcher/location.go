package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
)

type State struct {
	ID   int    `json:"state_id"`
	Name string `json:"state_name"`
}

type District struct {
	ID   int    `json:"district_id"`
	Name string `json:"district_name"`
}

// States lists the states known to the API; their ids feed Districts.
func (c *Client) States(ctx context.Context) ([]State, error) {
	var resp struct {
		States []State `json:"states"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/admin/location/states", &resp); err != nil {
		return nil, err
	}
	return resp.States, nil
}

// Districts lists the districts of a state; the ids go into district_id data points.
func (c *Client) Districts(ctx context.Context, stateID int) ([]District, error) {
	var resp struct {
		Districts []District `json:"districts"`
	}
	if err := c.getJSON(ctx, fmt.Sprintf("%s/admin/location/districts/%d", c.baseURL, stateID), &resp); err != nil {
		return nil, err
	}
	return resp.Districts, nil
}

func (c *Client) getJSON(ctx context.Context, u string, v any) error {
	code, body, err := c.transport.Get(ctx, u)
	if err != nil {
		return err
	}
	if code != 200 {
		return &StatusError{Code: code, Body: excerpt(body)}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", u, err)
	}
	return nil
}
