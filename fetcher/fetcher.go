package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"cowin-slots/model"
)

const (
	ModeFind     = "find"
	ModeCalendar = "calendar"
)

// StatusError is returned when the API answers with anything but 200.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.Code)
}

type Client struct {
	baseURL    string
	mode       string
	cutoffHour int
	transport  Transport
	now        func() time.Time
}

func New(baseURL, mode string, cutoffHour int, transport Transport) *Client {
	if mode != ModeCalendar {
		mode = ModeFind
	}
	return &Client{
		baseURL:    baseURL,
		mode:       mode,
		cutoffHour: cutoffHour,
		transport:  transport,
		now:        time.Now,
	}
}

// LookupDate is today when now is before the cutoff hour, tomorrow from it on.
func LookupDate(now time.Time, cutoffHour int) string {
	if now.Hour() >= cutoffHour {
		now = now.AddDate(0, 0, 1)
	}
	return now.Format(model.DateLayout)
}

func (c *Client) endpoint(dp model.DataPoint) string {
	switch {
	case c.mode == ModeCalendar && dp.ByPincode():
		return "calendarByPin"
	case c.mode == ModeCalendar:
		return "calendarByDistrict"
	case dp.ByPincode():
		return "findByPin"
	default:
		return "findByDistrict"
	}
}

// URL builds the request URL for dp, defaulting the date when the data point has none.
func (c *Client) URL(dp model.DataPoint) string {
	date := dp.Date
	if date == "" {
		date = LookupDate(c.now(), c.cutoffHour)
	}

	q := url.Values{}
	if dp.ByPincode() {
		q.Set("pincode", dp.Pincode)
	} else {
		q.Set("district_id", strconv.Itoa(dp.DistrictID))
	}
	q.Set("date", date)

	return fmt.Sprintf("%s/appointment/sessions/public/%s?%s", c.baseURL, c.endpoint(dp), q.Encode())
}

// Fetch issues exactly one request for dp and returns the flattened slots.
// A response without sessions or centers yields an empty slice.
func (c *Client) Fetch(ctx context.Context, dp model.DataPoint) ([]model.SlotRecord, error) {
	u := c.URL(dp)
	slog.Debug("sending request", slog.String("url", u), slog.String("dataPoint", dp.Key()))

	code, body, err := c.transport.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", dp.Key(), err)
	}
	if code != 200 {
		return nil, &StatusError{Code: code, Body: excerpt(body)}
	}

	var resp slotsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", dp.Key(), err)
	}
	return resp.records(), nil
}

func excerpt(body []byte) string {
	const max = 512
	if len(body) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		return string(body[:cut]) + "..."
	}
	return string(body)
}
