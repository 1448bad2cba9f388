package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/oilchange-tracker/internal/models"
)

func TestRandomMaintenanceForm(t *testing.T) {
	now := time.Date(2025, time.January, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		form := randomMaintenanceForm(now)
		in := models.MaintenanceInput{
			ClientName:  form.Get("clientName"),
			Vehicle:     form.Get("vehicle"),
			Odometer:    form.Get("odometer"),
			ServiceDate: form.Get("serviceDate"),
			Phone:       form.Get("phone"),
			Address:     form.Get("address"),
		}
		rec, err := models.NewMaintenanceRecord(in, models.DefaultMaintenanceInterval, now)
		require.NoError(t, err, "form %v", form)

		age := models.DateOf(now).DaysUntil(rec.ServiceDate)
		assert.LessOrEqual(t, age, 0)
		assert.Greater(t, age, -40)
	}
}

func TestRandomWarrantyForm(t *testing.T) {
	now := time.Date(2025, time.January, 28, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 50; i++ {
		form := randomWarrantyForm(now)
		in := models.WarrantyInput{
			ClientName:   form.Get("clientName"),
			Vehicle:      form.Get("vehicle"),
			Phone:        form.Get("phone"),
			ServiceDate:  form.Get("serviceDate"),
			WarrantyDays: form.Get("warrantyDays"),
			Service:      form.Get("service"),
			Value:        form.Get("value"),
		}
		rec, err := models.NewWarrantyRecord(in, now)
		require.NoError(t, err, "form %v", form)
		assert.Contains(t, warrantyDays, rec.WarrantyDays)
		assert.GreaterOrEqual(t, rec.Value, 80.0)
	}
}

func TestPostForm(t *testing.T) {
	var got url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/maintenance", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		http.Redirect(w, r, "/?tab=maintenance", http.StatusSeeOther)
	}))
	defer server.Close()

	form := url.Values{"clientName": {"Ana"}}
	require.NoError(t, postForm(context.Background(), server.URL+"/", "/maintenance", form))
	assert.Equal(t, "Ana", got.Get("clientName"))
}

func TestPostForm_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	err := postForm(context.Background(), server.URL, "/warranties", url.Values{})
	assert.ErrorContains(t, err, "status: 400")
}

func TestPostForm_NetworkError(t *testing.T) {
	err := postForm(context.Background(), "http://127.0.0.1:1", "/maintenance", url.Values{})
	assert.Error(t, err)
}

func TestSimulate(t *testing.T) {
	var mu sync.Mutex
	paths := map[string]int{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths[r.URL.Path]++
		mu.Unlock()
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer server.Close()

	sent := simulate(context.Background(), server.URL, 12, time.Millisecond)
	assert.Equal(t, 12, sent)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 12, paths["/maintenance"]+paths["/warranties"])
}

func TestSimulate_StopsOnCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sent := simulate(ctx, server.URL, 100, time.Hour)
	assert.LessOrEqual(t, sent, 1)
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SIM_RECORDS", "7")
	assert.Equal(t, 7, envInt("SIM_RECORDS", 20))
	t.Setenv("SIM_RECORDS", "zero")
	assert.Equal(t, 20, envInt("SIM_RECORDS", 20))
	t.Setenv("SIM_RECORDS", strconv.Itoa(-1))
	assert.Equal(t, 20, envInt("SIM_RECORDS", 20))
}
