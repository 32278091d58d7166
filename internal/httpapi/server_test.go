package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/rishi-o2/weather-app/internal/models"
	"github.com/rishi-o2/weather-app/internal/realtime"
	"github.com/rishi-o2/weather-app/internal/view"
)

type staticFetcher struct{}

func (staticFetcher) Current(ctx context.Context, city string) (models.CurrentWeather, error) {
	return models.CurrentWeather{Name: "Lyon", Country: "FR", TempC: 21.5, Humidity: 60, WindSpeed: 3.2, Condition: "Rain"}, nil
}

func (staticFetcher) Forecast(ctx context.Context, city string) ([]models.ForecastEntry, error) {
	return []models.ForecastEntry{
		{Time: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), TempC: 10, Condition: "Clouds", Description: "overcast clouds"},
	}, nil
}

func newTestRouter(t *testing.T) (http.Handler, *view.Controller) {
	t.Helper()
	ctrl := view.NewController(staticFetcher{}, view.WithLocation(time.UTC))
	tracer := noop.NewTracerProvider().Tracer("test")
	return NewRouter(NewServer(ctrl, nil), tracer, promhttp.Handler(), nil), ctrl
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"status":"ok"}` {
		t.Fatalf("body = %s", got)
	}
}

func TestState(t *testing.T) {
	h, ctrl := newTestRouter(t)
	ctrl.UpdateQuery("Lyon")
	tasks, err := ctrl.Search()
	if err != nil {
		t.Fatal(err)
	}
	for _, task := range tasks {
		ctrl.Apply(task(context.Background()))
	}
	ctrl.ToggleDisplay()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/state", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}

	var body struct {
		Query   string `json:"query"`
		Mode    string `json:"mode"`
		Current struct {
			Name string `json:"name"`
		} `json:"current"`
		Series []struct {
			Name        string  `json:"name"`
			Temperature float64 `json:"temperature"`
		} `json:"series"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Query != "Lyon" || body.Mode != "grid" || body.Current.Name != "Lyon" {
		t.Errorf("body = %+v", body)
	}
	if len(body.Series) != 1 || body.Series[0].Name != "Fri, Jan 5" || body.Series[0].Temperature != 10 {
		t.Errorf("series = %+v", body.Series)
	}
}

func TestMetrics(t *testing.T) {
	h, _ := newTestRouter(t)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "weather_app_http_requests_total") {
		t.Error("request counter not exported")
	}
}

func TestCORS(t *testing.T) {
	ctrl := view.NewController(staticFetcher{})
	h := NewRouter(NewServer(ctrl, nil), nil, nil, []string{"http://dash.local"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://dash.local")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://dash.local" {
		t.Fatalf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestStateStream(t *testing.T) {
	var hub *realtime.Hub
	ctrl := view.NewController(staticFetcher{}, view.WithOnChange(func(event string, s view.State) {
		hub.Broadcast(event, s)
	}))
	hub = realtime.NewHub(ctrl.State)
	defer hub.Close()

	tracer := noop.NewTracerProvider().Tracer("test")
	ts := httptest.NewServer(NewRouter(NewServer(ctrl, hub), tracer, nil, nil))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/state"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	defer conn.Close()

	read := func() realtime.Event {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("read ws: %v", err)
		}
		return ev
	}

	if ev := read(); ev.Type != realtime.EventSnapshot {
		t.Fatalf("first event = %+v", ev)
	}
	ctrl.UpdateQuery("Lyon")
	if ev := read(); ev.Type != "query" || ev.State.Query != "Lyon" {
		t.Fatalf("query event = %+v", ev)
	}
}
