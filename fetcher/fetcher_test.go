package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"cowin-slots/model"

	"github.com/stretchr/testify/require"
)

const findByPinBody = `{"sessions": [{
	"center_id": 1, "name": "PHC Ward 4", "address": "Main Road", "state_name": "Delhi",
	"district_name": "New Delhi", "pincode": 110001, "fee_type": "Free", "fee": "0",
	"session_id": "s-1", "date": "17-10-2026", "available_capacity": 12,
	"available_capacity_dose1": 5, "available_capacity_dose2": 7, "min_age_limit": 18,
	"vaccine": "COVAXIN", "slots": ["09:00AM-11:00AM", "11:00AM-01:00PM"]
}]}`

const calendarBody = `{"centers": [{
	"center_id": 2, "name": "Apollo", "address": "Ring Road", "state_name": "Delhi",
	"district_name": "South Delhi", "pincode": 110017, "fee_type": "Paid",
	"vaccine_fees": [{"vaccine": "COVISHIELD", "fee": "780"}],
	"sessions": [
		{"session_id": "c-1", "date": "17-10-2026", "available_capacity": 3, "available_capacity_dose1": 0,
		 "available_capacity_dose2": 3, "min_age_limit": 45, "vaccine": "COVISHIELD",
		 "slots": [{"time": "10:00AM-12:00PM", "seats": 3}]},
		{"session_id": "c-2", "date": "18-10-2026", "available_capacity": 0, "min_age_limit": 18, "vaccine": "COVISHIELD"}
	]
}]}`

func TestLookupDate(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	before := time.Date(2026, 10, 16, 13, 59, 0, 0, loc)
	at := time.Date(2026, 10, 16, 14, 0, 0, 0, loc)
	monthEnd := time.Date(2026, 10, 31, 20, 0, 0, 0, loc)

	require.Equal(t, "16-10-2026", LookupDate(before, 14))
	require.Equal(t, "17-10-2026", LookupDate(at, 14))
	require.Equal(t, "01-11-2026", LookupDate(monthEnd, 14))
}

func TestURL(t *testing.T) {
	c := New("https://api.test/api/v2", ModeFind, 14, nil)
	c.now = func() time.Time { return time.Date(2026, 10, 16, 9, 0, 0, 0, time.Local) }

	require.Equal(t,
		"https://api.test/api/v2/appointment/sessions/public/findByPin?date=16-10-2026&pincode=110001",
		c.URL(model.DataPoint{Pincode: "110001"}))
	require.Equal(t,
		"https://api.test/api/v2/appointment/sessions/public/findByDistrict?date=20-10-2026&district_id=294",
		c.URL(model.DataPoint{DistrictID: 294, Date: "20-10-2026"}))

	cal := New("https://api.test/api/v2", ModeCalendar, 14, nil)
	cal.now = c.now
	require.Contains(t, cal.URL(model.DataPoint{Pincode: "1"}), "/calendarByPin?")
	require.Contains(t, cal.URL(model.DataPoint{DistrictID: 1}), "/calendarByDistrict?")
}

func TestFetchFlatSessions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/appointment/sessions/public/findByPin", r.URL.Path)
		require.Equal(t, "110001", r.URL.Query().Get("pincode"))
		require.Equal(t, "17-10-2026", r.URL.Query().Get("date"))
		require.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(findByPinBody))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeFind, 14, NewHTTPTransport("test-agent", time.Second))
	slots, err := c.Fetch(context.Background(), model.DataPoint{Pincode: "110001", Date: "17-10-2026"})
	require.NoError(t, err)
	require.Len(t, slots, 1)

	s := slots[0]
	require.Equal(t, "s-1", s.SessionID)
	require.Equal(t, "PHC Ward 4", s.Name)
	require.Equal(t, 110001, s.Pincode)
	require.Equal(t, 18, s.MinAgeLimit)
	require.Equal(t, 5, s.CapacityDose1)
	require.Equal(t, 7, s.CapacityDose2)
	require.Equal(t, model.FeeFree, s.FeeClass())
	require.Equal(t, []string{"09:00AM-11:00AM", "11:00AM-01:00PM"}, s.Slots)
}

func TestFetchCalendarCenters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/appointment/sessions/public/calendarByDistrict", r.URL.Path)
		_, _ = w.Write([]byte(calendarBody))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeCalendar, 14, NewHTTPTransport("test-agent", time.Second))
	slots, err := c.Fetch(context.Background(), model.DataPoint{DistrictID: 140})
	require.NoError(t, err)
	require.Len(t, slots, 2)
	require.Equal(t, "Apollo", slots[0].Name)
	require.Equal(t, "780", slots[0].Fee)
	require.Equal(t, model.FeePaid, slots[0].FeeClass())
	require.Equal(t, 3, slots[0].CapacityDose2)
	require.Equal(t, []string{"10:00AM-12:00PM"}, slots[0].Slots)
	require.Equal(t, "c-2", slots[1].SessionID)
}

func TestFetchMissingKeysIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ttl": 30}`))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeFind, 14, NewHTTPTransport("ua", time.Second))
	slots, err := c.Fetch(context.Background(), model.DataPoint{Pincode: "1", Date: "17-10-2026"})
	require.NoError(t, err)
	require.Empty(t, slots)
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("Forbidden"))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeFind, 14, NewHTTPTransport("ua", time.Second))
	slots, err := c.Fetch(context.Background(), model.DataPoint{Pincode: "1", Date: "17-10-2026"})
	require.Nil(t, slots)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.Code)
	require.Equal(t, "Forbidden", statusErr.Body)
}

func TestFetchMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"sessions": [`))
	}))
	defer srv.Close()

	c := New(srv.URL, ModeFind, 14, NewHTTPTransport("ua", time.Second))
	_, err := c.Fetch(context.Background(), model.DataPoint{Pincode: "1", Date: "17-10-2026"})
	require.Error(t, err)
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := New(srv.URL, ModeFind, 14, NewHTTPTransport("ua", 20*time.Millisecond))
	_, err := c.Fetch(context.Background(), model.DataPoint{Pincode: "1", Date: "17-10-2026"})
	require.Error(t, err)
}

func TestStatesAndDistricts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/admin/location/states":
			_, _ = w.Write([]byte(`{"states": [{"state_id": 9, "state_name": "Delhi"}], "ttl": 24}`))
		case "/admin/location/districts/9":
			_, _ = w.Write([]byte(`{"districts": [{"district_id": 140, "district_name": "New Delhi"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, ModeFind, 14, NewHTTPTransport("ua", time.Second))
	states, err := c.States(context.Background())
	require.NoError(t, err)
	require.Equal(t, []State{{ID: 9, Name: "Delhi"}}, states)

	districts, err := c.Districts(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, []District{{ID: 140, Name: "New Delhi"}}, districts)

	_, err = c.Districts(context.Background(), 10)
	require.Error(t, err)
}

func TestExcerptKeepsRunesWhole(t *testing.T) {
	body := []byte(strings.Repeat("a", 511) + "टीका")
	got := excerpt(body)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, strings.Repeat("a", 511)+"...", got)

	require.Equal(t, "short", excerpt([]byte("short")))
}
