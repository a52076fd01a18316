package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func sequenceServer(t *testing.T, statuses []int, headers []http.Header, body string) (*httptest.Server, *int32) {
	t.Helper()
	var idx int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if headers != nil && i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(statuses[i])
		if statuses[i] < 300 {
			_, _ = w.Write([]byte(body))
			return
		}
		_, _ = w.Write([]byte("try again"))
	}))
	t.Cleanup(srv.Close)
	return srv, &idx
}

func TestFetchRetriesOn5xx(t *testing.T) {
	srv, calls := sequenceServer(t, []int{503, 502, 200}, []http.Header{nil, nil, {"Content-Type": {"text/csv"}}}, "region,sales\nE,10\n")
	c := NewClient(2*time.Second, 3, 5*time.Millisecond, 20*time.Millisecond)
	res, err := c.Fetch(context.Background(), srv.URL+"/exports/sales")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Data) != "region,sales\nE,10\n" {
		t.Fatalf("data = %q", res.Data)
	}
	if res.Name != "sales.csv" {
		t.Fatalf("name = %q", res.Name)
	}
	if atomic.LoadInt32(calls) != 3 {
		t.Fatalf("calls = %d", *calls)
	}
}

func TestFetchRetryAfterHonored(t *testing.T) {
	srv, _ := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, nil}, "a\n1\n")
	c := NewClient(5*time.Second, 3, time.Millisecond, time.Millisecond)
	start := time.Now()
	if _, err := c.Fetch(context.Background(), srv.URL+"/a.csv"); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond {
		t.Fatalf("expected ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestFetchClientErrorNotRetried(t *testing.T) {
	srv, calls := sequenceServer(t, []int{404, 200}, nil, "x")
	c := NewClient(time.Second, 3, time.Millisecond, time.Millisecond)
	_, err := c.Fetch(context.Background(), srv.URL+"/missing.csv")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 404 {
		t.Fatalf("expected 404 FetchError, got %v", err)
	}
	if fe.Temporary() {
		t.Fatal("404 must not be temporary")
	}
	if atomic.LoadInt32(calls) != 1 {
		t.Fatalf("calls = %d, want 1", *calls)
	}
}

func TestFetchGivesUpAfterMaxAttempts(t *testing.T) {
	srv, calls := sequenceServer(t, []int{500}, nil, "")
	c := NewClient(time.Second, 2, time.Millisecond, time.Millisecond)
	_, err := c.Fetch(context.Background(), srv.URL+"/x.csv")
	var fe *FetchError
	if !errors.As(err, &fe) || fe.StatusCode != 500 {
		t.Fatalf("expected 500 FetchError, got %v", err)
	}
	if atomic.LoadInt32(calls) != 2 {
		t.Fatalf("calls = %d, want 2", *calls)
	}
}

func TestFetchSizeLimit(t *testing.T) {
	srv, _ := sequenceServer(t, []int{200}, nil, "0123456789")
	c := NewClient(time.Second, 1, 0, 0).WithMaxBytes(4)
	if _, err := c.Fetch(context.Background(), srv.URL+"/big.csv"); err == nil {
		t.Fatal("expected size limit error")
	}
}

func TestFetchRejectsNonHTTP(t *testing.T) {
	c := NewClient(time.Second, 1, 0, 0)
	_, err := c.Fetch(context.Background(), "file:///etc/passwd")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %v", err)
	}
}

func TestResourceName(t *testing.T) {
	tests := []struct {
		url, disp, ct, want string
	}{
		{"https://h/data/sales.csv", "", "text/plain", "sales.csv"},
		{"https://h/download", `attachment; filename="q3.xlsx"`, "", "q3.xlsx"},
		{"https://h/report", "", "text/tab-separated-values", "report.tsv"},
		{"https://h/", "", "", "h"},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.url)
		if got := resourceName(u, tt.disp, tt.ct); got != tt.want {
			t.Errorf("resourceName(%s) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
