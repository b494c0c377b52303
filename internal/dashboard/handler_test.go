package dashboard_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tapsync/internal/attendance"
	"tapsync/internal/audit"
	"tapsync/internal/auth"
	"tapsync/internal/dashboard"
	"tapsync/internal/platform/config"
	"tapsync/internal/students"
	"tapsync/pkg/testutil"
)

type fixture struct {
	router http.Handler
	log    *attendance.InMemoryStore
	roster *students.InMemoryStore
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	logStore := attendance.NewInMemoryStore()
	roster := students.NewInMemoryStore()
	publisher := audit.NewPublisher(16)
	registration := students.NewService(roster, publisher, logger)

	hash, err := auth.HashPassword("kiosk-pass")
	require.NoError(t, err)
	authCfg := config.AuthConfig{
		JWTSigningKey:     "test-signing-key",
		TokenTTL:          time.Hour,
		StaffUser:         "staff",
		StaffPasswordHash: hash,
	}
	tokens := auth.NewTokenService(authCfg.JWTSigningKey, authCfg.TokenTTL)

	handler := dashboard.New(logStore, roster, registration, tokens, authCfg, "UTC", logger)
	router := chi.NewRouter()
	handler.Register(router)

	token, err := tokens.GenerateToken("staff")
	require.NoError(t, err)

	return &fixture{router: router, log: logStore, roster: roster, token: token}
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	records := []attendance.Record{
		{Key: "A1_2024-01-01_08:05", RFID: "A1", Date: "2024-01-01", Time: "08:05"},
		{Key: "A1_2024-01-02_14:30", RFID: "A1", Date: "2024-01-02", Time: "14:30"},
		{Key: "B2_2024-01-02_08:10", RFID: "B2", Date: "2024-01-02", Time: "08:10"},
	}
	for _, rec := range records {
		require.NoError(t, f.log.Upsert(ctx, rec))
	}
	require.NoError(t, f.roster.Put(ctx, students.Student{RFID: "A1", Name: "Ana Cruz", FirstName: "Ana", LastName: "Cruz"}))
	_, err := f.roster.CreateIfAbsent(ctx, students.Placeholder("B2"))
	require.NoError(t, err)
}

type listResponse struct {
	Rows  []dashboard.Row `json:"rows"`
	Count int             `json:"count"`
}

func TestHandler_ListAttendance(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	t.Run("joins names and sorts newest first", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance"))
		require.Equal(t, http.StatusOK, rr.Code)

		var resp listResponse
		testutil.DecodeJSON(t, rr, &resp)
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "2:30 PM", resp.Rows[0].DisplayTime)
		assert.Equal(t, "Ana Cruz", resp.Rows[0].Name)
		assert.False(t, resp.Rows[1].Registered, "placeholder entry reads as unregistered")
		assert.Empty(t, resp.Rows[1].Name, "blank marker is trimmed for display")
	})

	t.Run("search matches name or rfid", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance?search=ana"))
		var resp listResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, 2, resp.Count)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance?search=b2"))
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("date filter", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance?date=2024-01-02"))
		var resp listResponse
		testutil.DecodeJSON(t, rr, &resp)
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("time part filters", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance?meridiem=pm"))
		var resp listResponse
		testutil.DecodeJSON(t, rr, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "14:30", resp.Rows[0].Time)

		rr = testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance?hour=08&minute=10"))
		testutil.DecodeJSON(t, rr, &resp)
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "B2", resp.Rows[0].RFID)
	})
}

func TestHandler_ExportAttendance(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/attendance/export?date=2024-01-01"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attendance.csv")

	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	require.Len(t, lines, 2, "header plus one filtered row")
	assert.Equal(t, "key,rfid,name,date,time,recorded_at", lines[0])
	assert.Contains(t, lines[1], "A1_2024-01-01_08:05")
	assert.Contains(t, lines[1], "Ana Cruz")
}

func TestHandler_Login(t *testing.T) {
	f := newFixture(t)

	t.Run("valid credentials issue a token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"username": "staff", "password": "kiosk-pass"})
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp map[string]string
		testutil.DecodeJSON(t, rr, &resp)
		assert.NotEmpty(t, resp["token"])
	})

	t.Run("wrong password is rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"username": "staff", "password": "wrong"})
		rr := testutil.DoRequest(f.router, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHandler_Registration(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	t.Run("write endpoints require a token", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/students/B2"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)

		req := testutil.NewJSONRequest(t, http.MethodPut, "/students/B2", map[string]string{"name": "Ben Reyes"})
		rr = testutil.DoRequest(f.router, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("lookup pre-fills registered students", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/students/A1")
		req.Header.Set("Authorization", "Bearer "+f.token)
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var resp struct {
			Student    students.Student `json:"student"`
			Registered bool             `json:"registered"`
		}
		testutil.DecodeJSON(t, rr, &resp)
		assert.True(t, resp.Registered)
		assert.Equal(t, "Ana Cruz", resp.Student.Name)
	})

	t.Run("register fills a placeholder", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, "/students/B2", map[string]string{"name": "Ben Reyes"})
		req.Header.Set("Authorization", "Bearer "+f.token)
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code)

		got, err := f.roster.Get(context.Background(), "B2")
		require.NoError(t, err)
		assert.Equal(t, "Ben Reyes", got.Name)
		assert.Equal(t, "Ben", got.FirstName)
		assert.Equal(t, "Reyes", got.LastName)
	})

	t.Run("blank name is rejected", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPut, "/students/B2", map[string]string{"name": "  "})
		req.Header.Set("Authorization", "Bearer "+f.token)
		rr := testutil.DoRequest(f.router, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandler_ListStudents(t *testing.T) {
	f := newFixture(t)
	f.seed(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/students"))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Students []students.Student `json:"students"`
		Count    int                `json:"count"`
	}
	testutil.DecodeJSON(t, rr, &resp)
	assert.Equal(t, 2, resp.Count)
}
