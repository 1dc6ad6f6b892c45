package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gormModels "carbridge/pricer/internal/models/gorm"
)

func directPool(t *testing.T) *ProxyPool {
	t.Helper()
	pool, err := NewProxyPool(nil, 5*time.Second)
	if err != nil {
		t.Fatalf("NewProxyPool: %v", err)
	}
	return pool
}

func TestSpecClientFetchPower(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vehicles/42/spec" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"spec":{"power":185}}`))
	}))
	defer srv.Close()

	client := NewSpecClient(srv.URL, directPool(t), 100)
	hp, err := client.FetchPower(context.Background(), 42)
	if err != nil {
		t.Fatalf("FetchPower: %v", err)
	}
	if hp != 185 {
		t.Errorf("hp = %d, want 185", hp)
	}
}

func TestSpecClientNullPowerMeansNoAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"spec":{"power":null}}`))
	}))
	defer srv.Close()

	client := NewSpecClient(srv.URL, directPool(t), 100)
	hp, err := client.FetchPower(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPower: %v", err)
	}
	if hp != 0 {
		t.Errorf("hp = %d, want 0 for null power", hp)
	}
}

func TestSpecClient4xxIsDefinitive(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewSpecClient(srv.URL, directPool(t), 100)
	if _, err := client.FetchPower(context.Background(), 1); err == nil {
		t.Fatal("expected an error for 404")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (4xx must not be retried)", calls)
	}
}

func TestSpecClient5xxIsRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"spec":{"power":120}}`))
	}))
	defer srv.Close()

	client := NewSpecClient(srv.URL, directPool(t), 100)
	hp, err := client.FetchPower(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPower: %v", err)
	}
	if hp != 120 {
		t.Errorf("hp = %d, want 120 after retry", hp)
	}
}

func TestGenAIClientEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"power_value":201,"power_unit":"hp","confidence":"high"}`))
	}))
	defer srv.Close()

	client := NewGenAIClient(srv.URL, "key", directPool(t), 100)
	v := &gormModels.SourceVehicle{Manufacturer: "Kia", Model: "K5", Year: 2022, Fuel: "gasoline"}

	hp, err := client.EstimatePower(context.Background(), v)
	if err != nil {
		t.Fatalf("EstimatePower: %v", err)
	}
	if hp != 201 {
		t.Errorf("hp = %d, want 201", hp)
	}
}

func TestGenAIClientRejectsNoConfidence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"power_value":300,"power_unit":"hp","confidence":"none"}`))
	}))
	defer srv.Close()

	client := NewGenAIClient(srv.URL, "", directPool(t), 100)
	v := &gormModels.SourceVehicle{Manufacturer: "Kia", Model: "K5", Year: 2022}

	hp, err := client.EstimatePower(context.Background(), v)
	if err != nil {
		t.Fatalf("EstimatePower: %v", err)
	}
	if hp != 0 {
		t.Errorf("hp = %d, want 0 for confidence none", hp)
	}
}

func TestGenAIClientConvertsKilowattsForElectric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"power_value":150,"power_unit":"kw","confidence":"medium"}`))
	}))
	defer srv.Close()

	client := NewGenAIClient(srv.URL, "", directPool(t), 100)
	v := &gormModels.SourceVehicle{Manufacturer: "Hyundai", Model: "Ioniq 5", Year: 2023, Fuel: "electric"}

	hp, err := client.EstimatePower(context.Background(), v)
	if err != nil {
		t.Fatalf("EstimatePower: %v", err)
	}
	// 150 kW * 1.34102
	if hp != 201 {
		t.Errorf("hp = %d, want 201", hp)
	}
}

func TestGenAIClientNonJSONBodyMeansNoAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`I could not determine the power of this vehicle.`))
	}))
	defer srv.Close()

	client := NewGenAIClient(srv.URL, "", directPool(t), 100)
	v := &gormModels.SourceVehicle{Manufacturer: "Kia", Model: "K5", Year: 2022}

	hp, err := client.EstimatePower(context.Background(), v)
	if err != nil {
		t.Fatalf("EstimatePower: %v", err)
	}
	if hp != 0 {
		t.Errorf("hp = %d, want 0 for non-JSON body", hp)
	}
}
