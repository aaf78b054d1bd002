package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx3lixir/laba_meet/internal/room"
	"github.com/rx3lixir/laba_meet/internal/signaling"
)

func TestFetchAndRenderStats(t *testing.T) {
	want := signaling.Stats{
		Metrics: signaling.HubMetrics{ConnectedClients: 3, MessagesSent: 42},
		Rooms: []room.Info{{
			ID:               "standup",
			Type:             room.TypePrivate,
			CreatorID:        "u1",
			CreatorName:      "Alice",
			CreatedAt:        time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC),
			ParticipantCount: 2,
			WaitingCount:     1,
		}},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/stats", r.URL.Path)
		_ = json.NewEncoder(w).Encode(want)
	}))
	defer srv.Close()

	got, err := fetchStats(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 3, got.Metrics.ConnectedClients)
	require.Len(t, got.Rooms, 1)

	out := renderStats(got)
	assert.Contains(t, out, "standup")
	assert.Contains(t, out, "private")
	assert.Contains(t, out, "Alice (u1)")
	assert.Contains(t, out, "42")
}

func TestRenderStatsWithoutRooms(t *testing.T) {
	assert.Contains(t, renderStats(signaling.Stats{}), "No live rooms")
}

func TestFetchStatsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fetchStats(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "503")
}
