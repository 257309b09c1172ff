package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

const feedJSON = `{
  "smog_data": [
    {
      "school": {"city": "Wrocław", "street": "ul. Szkolna 1", "name": "SP 1", "post_code": "50-001"},
      "data": {"temperature_avg": 18.2, "humidity_avg": 60.1, "pressure_avg": 1009.7, "pm10_avg": 30.111, "pm25_avg": 20.5},
      "timestamp": "2024-11-05 10:00:00"
    },
    {
      "school": {"city": "Lwówek Śląski", "street": "ul. Szkolna 5", "name": "Zespół Szkół", "post_code": "59-600"},
      "data": {"temperature_avg": 21.46, "humidity_avg": 54.6, "pressure_avg": 1013.4, "pm10_avg": 12.345, "pm25_avg": 8.1},
      "timestamp": "2024-11-05 10:05:00"
    },
    {
      "school": {"city": "Duplicate", "street": "x", "name": "second match", "post_code": "59-600"},
      "data": {"temperature_avg": 0, "humidity_avg": 0, "pressure_avg": 0, "pm10_avg": 0, "pm25_avg": 0},
      "timestamp": "later"
    }
  ]
}`

func newFeedServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s; want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestFetch_success(t *testing.T) {
	ts := newFeedServer(t, http.StatusOK, feedJSON)

	rec, err := New(ts.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v; want nil", err)
	}
	if rec.School.Name != "Zespół Szkół" {
		t.Errorf("School.Name = %q; want first match %q", rec.School.Name, "Zespół Szkół")
	}
	if rec.School.City != "Lwówek Śląski" || rec.School.Street != "ul. Szkolna 5" {
		t.Errorf("School = %+v; want Lwówek Śląski, ul. Szkolna 5", rec.School)
	}
	if rec.Data.TemperatureAvg != 21.46 || rec.Data.PM10Avg != 12.345 {
		t.Errorf("Data = %+v; want temperature 21.46 and pm10 12.345", rec.Data)
	}
	if rec.Timestamp != "2024-11-05 10:05:00" {
		t.Errorf("Timestamp = %q; want raw upstream string", rec.Timestamp)
	}
}

func TestFetch_errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{name: "server error", status: http.StatusInternalServerError, body: "oops", wantErr: ErrHTTPStatus},
		{name: "not found status", status: http.StatusNotFound, body: "", wantErr: ErrHTTPStatus},
		{name: "malformed json", status: http.StatusOK, body: `{"smog_data": [`, wantErr: ErrParse},
		{name: "html body", status: http.StatusOK, body: `<html>relay error</html>`, wantErr: ErrParse},
		{name: "missing smog_data", status: http.StatusOK, body: `{"data": []}`, wantErr: ErrParse},
		{name: "smog_data wrong type", status: http.StatusOK, body: `{"smog_data": {"a": 1}}`, wantErr: ErrParse},
		{name: "no match", status: http.StatusOK, body: `{"smog_data": [{"school": {"post_code": "00-001"}}]}`, wantErr: ErrNotFound},
		{name: "empty list", status: http.StatusOK, body: `{"smog_data": []}`, wantErr: ErrNotFound},
		{
			name:    "matched record missing data",
			status:  http.StatusOK,
			body:    `{"smog_data": [{"school": {"city": "a", "street": "b", "name": "c", "post_code": "59-600"}, "timestamp": "t"}]}`,
			wantErr: ErrParse,
		},
		{
			name:    "matched record missing one metric",
			status:  http.StatusOK,
			body:    `{"smog_data": [{"school": {"city": "a", "street": "b", "name": "c", "post_code": "59-600"}, "data": {"temperature_avg": 1, "humidity_avg": 2, "pressure_avg": 3, "pm10_avg": 4}, "timestamp": "t"}]}`,
			wantErr: ErrParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newFeedServer(t, tt.status, tt.body)

			rec, err := New(ts.URL).Fetch(context.Background())
			if err == nil {
				t.Fatalf("Fetch() = %+v, nil; want error", rec)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Fetch() error = %v; want errors.Is %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetch_statusErrorCarriesCode(t *testing.T) {
	ts := newFeedServer(t, http.StatusBadGateway, "")

	_, err := New(ts.URL).Fetch(context.Background())
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v; want *StatusError", err)
	}
	if se.Code != http.StatusBadGateway {
		t.Errorf("Code = %d; want %d", se.Code, http.StatusBadGateway)
	}
}

func TestFetch_networkFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	endpoint := ts.URL
	ts.Close()

	_, err := New(endpoint).Fetch(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v; want ErrNetwork", err)
	}
}

func TestFetch_timeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(ts.Close)
	t.Cleanup(func() { close(release) })

	_, err := New(ts.URL, WithTimeout(50*time.Millisecond)).Fetch(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("error = %v; want ErrNetwork on timeout", err)
	}
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestWithTimeout_keepsCustomClient(t *testing.T) {
	ts := newFeedServer(t, http.StatusOK, feedJSON)

	tests := []struct {
		name string
		opts func(*countingTransport) []Option
	}{
		{
			name: "client then timeout",
			opts: func(tr *countingTransport) []Option {
				return []Option{WithHTTPClient(&http.Client{Transport: tr}), WithTimeout(3 * time.Second)}
			},
		},
		{
			name: "timeout then client",
			opts: func(tr *countingTransport) []Option {
				return []Option{WithTimeout(3 * time.Second), WithHTTPClient(&http.Client{Transport: tr, Timeout: 3 * time.Second})}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &countingTransport{}
			f := New(ts.URL, tt.opts(tr)...)

			if f.client.Timeout != 3*time.Second {
				t.Errorf("Timeout = %v; want 3s", f.client.Timeout)
			}
			if _, err := f.Fetch(context.Background()); err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if tr.calls != 1 {
				t.Errorf("transport calls = %d; want 1", tr.calls)
			}
		})
	}
}

func TestWithTimeout_doesNotMutateCallerClient(t *testing.T) {
	client := &http.Client{}
	f := New("http://example.invalid", WithHTTPClient(client), WithTimeout(time.Second))

	if client.Timeout != 0 {
		t.Errorf("caller client Timeout = %v; want untouched", client.Timeout)
	}
	if f.client == client {
		t.Error("fetcher shares the caller's client; want a copy")
	}
}

func TestFetch_contextCancelled(t *testing.T) {
	ts := newFeedServer(t, http.StatusOK, feedJSON)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ts.URL).Fetch(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v; want context.Canceled", err)
	}
}

func TestFetch_throughRelay(t *testing.T) {
	upstream := newFeedServer(t, http.StatusOK, feedJSON)

	var gotTarget string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		resp, err := http.Get(gotTarget)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
	}))
	t.Cleanup(relay.Close)

	endpoint, err := BuildURL(relay.URL+"/", upstream.URL)
	if err != nil {
		t.Fatalf("BuildURL: %v", err)
	}
	rec, err := New(endpoint).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotTarget != upstream.URL {
		t.Errorf("relay got url=%q; want %q", gotTarget, upstream.URL)
	}
	if rec.School.PostCode != "59-600" {
		t.Errorf("PostCode = %q; want 59-600", rec.School.PostCode)
	}
}

func TestBuildURL(t *testing.T) {
	t.Run("no relay returns upstream", func(t *testing.T) {
		got, err := BuildURL("", "https://public-esa.ose.gov.pl/api/v1/smog")
		if err != nil {
			t.Fatalf("BuildURL: %v", err)
		}
		if got != "https://public-esa.ose.gov.pl/api/v1/smog" {
			t.Errorf("BuildURL = %q", got)
		}
	})

	t.Run("relay wraps upstream as url param", func(t *testing.T) {
		got, err := BuildURL("https://api.cors.lol/", "https://public-esa.ose.gov.pl/api/v1/smog")
		if err != nil {
			t.Fatalf("BuildURL: %v", err)
		}
		u, err := url.Parse(got)
		if err != nil {
			t.Fatalf("parse %q: %v", got, err)
		}
		if u.Host != "api.cors.lol" {
			t.Errorf("host = %q; want api.cors.lol", u.Host)
		}
		if u.Query().Get("url") != "https://public-esa.ose.gov.pl/api/v1/smog" {
			t.Errorf("url param = %q", u.Query().Get("url"))
		}
	})
}

func TestSelectStation_normalizesPostCode(t *testing.T) {
	body := []byte(`{"smog_data": [{"school": {"city": "a", "street": "b", "name": "c", "post_code": " 59-600 "}, "data": {"temperature_avg": 1, "humidity_avg": 2, "pressure_avg": 3, "pm10_avg": 4, "pm25_avg": 5}, "timestamp": "t"}]}`)

	rec, err := selectStation(body, "59-600")
	if err != nil {
		t.Fatalf("selectStation() error = %v", err)
	}
	if rec.Data.PM25Avg != 5 {
		t.Errorf("PM25Avg = %v; want 5", rec.Data.PM25Avg)
	}
}

func TestSelectStation_skipsIncompleteNonMatches(t *testing.T) {
	body := []byte(`{"smog_data": [{"school": null}, {"data": {}}, {"school": {"city": "a", "street": "b", "name": "c", "post_code": "59-600"}, "data": {"temperature_avg": 1, "humidity_avg": 2, "pressure_avg": 3, "pm10_avg": 4, "pm25_avg": 5}, "timestamp": "t"}]}`)

	if _, err := selectStation(body, "59-600"); err != nil {
		t.Fatalf("selectStation() error = %v; want nil", err)
	}
}
