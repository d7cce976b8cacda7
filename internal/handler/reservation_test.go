package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/ankitaduttagupta/ticketing-service/internal/config"
	"github.com/ankitaduttagupta/ticketing-service/internal/handler"
	"github.com/ankitaduttagupta/ticketing-service/internal/middleware"
	"github.com/ankitaduttagupta/ticketing-service/internal/repository"
	"github.com/ankitaduttagupta/ticketing-service/internal/router"
	"github.com/ankitaduttagupta/ticketing-service/internal/service"
	"github.com/ankitaduttagupta/ticketing-service/internal/wallet"
)

// newTestServer wires the full HTTP surface against an in-process Redis and
// the given payment collaborator, mirroring cmd/server without the listener.
func newTestServer(t *testing.T, debitor wallet.Debitor, lease time.Duration) (*echo.Echo, *repository.TicketRepo, *redis.Client) {
	t.Helper()
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	repo := repository.NewTicketRepo(rdb)
	purchases := service.NewPurchaseService(repo, debitor, nil, lease, 10)
	h := handler.NewReservationHandler(repo, purchases)

	e := echo.New()
	router.RegisterRoutes(e, h,
		middleware.NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil),
		middleware.AdminGuard(""),
	)
	return e, repo, rdb
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func preloadBody(from, to int) string {
	items := make([]string, 0, to-from+1)
	for i := from; i <= to; i++ {
		items = append(items, fmt.Sprintf(`{"ticket_id":"%d","numbers":[1,2,3]}`, i))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func getCounts(t *testing.T, e *echo.Echo, class int) map[string]int {
	t.Helper()
	rec := do(e, http.MethodGet, fmt.Sprintf("/counts/%d", class), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var counts map[string]int
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	return counts
}

func TestSinglePurchase(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/11", preloadBody(1, 10))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"loaded":10}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/purchase/11", `{"player_id":"p1","count":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status  string                   `json:"status"`
		Tickets []map[string]interface{} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "purchased", resp.Status)
	require.Len(t, resp.Tickets, 1)
	require.Contains(t, resp.Tickets[0], "ticket_id")

	require.Equal(t, map[string]int{"available": 9, "reserved": 0, "sold": 1}, getCounts(t, e, 11))
}

func TestBatchPurchase(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/12", preloadBody(20, 39))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/purchase/12", `{"player_id":"p2","count":5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Tickets []map[string]interface{} `json:"tickets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Tickets, 5)

	require.Equal(t, map[string]int{"available": 15, "reserved": 0, "sold": 5}, getCounts(t, e, 12))
}

func TestConcurrentPurchasesDoNotOversell(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/13", preloadBody(100, 199))
	require.Equal(t, http.StatusOK, rec.Code)

	const buyers = 20
	results := make([]*httptest.ResponseRecorder, buyers)
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(`{"player_id":"p%d","count":5}`, i)
			results[i] = do(e, http.MethodPost, "/purchase/13", body)
		}(i)
	}
	wg.Wait()

	seen := map[string]int{}
	for i, rec := range results {
		require.Equal(t, http.StatusOK, rec.Code, "buyer %d: %s", i, rec.Body.String())
		var resp struct {
			Tickets []map[string]interface{} `json:"tickets"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Tickets, 5)
		for _, ticket := range resp.Tickets {
			id, _ := ticket["ticket_id"].(string)
			require.NotEmpty(t, id)
			seen[id]++
		}
	}
	// No id appears in two buyers' responses.
	require.Len(t, seen, 100)
	for id, n := range seen {
		require.Equal(t, 1, n, "ticket %s sold twice", id)
	}

	require.Equal(t, map[string]int{"available": 0, "reserved": 0, "sold": 100}, getCounts(t, e, 13))
}

func TestOverPurchaseRejected(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/14", preloadBody(300, 304))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/purchase/14", `{"player_id":"pX","count":10}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	require.Equal(t, map[string]int{"available": 5, "reserved": 0, "sold": 0}, getCounts(t, e, 14))
}

func TestPaymentFailureRollsBack(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: false}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/15", preloadBody(1, 5))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(e, http.MethodPost, "/purchase/15", `{"player_id":"p1","count":3}`)
	require.Equal(t, http.StatusPaymentRequired, rec.Code)

	require.Equal(t, map[string]int{"available": 5, "reserved": 0, "sold": 0}, getCounts(t, e, 15))
}

func TestExpiryReclaimedBySweeper(t *testing.T) {
	e, repo, rdb := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/16", preloadBody(1, 3))
	require.Equal(t, http.StatusOK, rec.Code)

	// Reserve directly, bypassing payment, and abandon the batch.
	reserved, err := repo.ReserveN(context.Background(), 16, 3, time.Second)
	require.NoError(t, err)
	require.Len(t, reserved, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		service.NewSweeper(repo, []int{16}, 100*time.Millisecond, 500).Run(ctx)
	}()

	require.Eventually(t, func() bool {
		counts, err := repo.Counts(context.Background(), 16)
		return err == nil && counts.Available == 3 && counts.Reserved == 0 && counts.Sold == 0
	}, 3*time.Second, 100*time.Millisecond)

	counts := getCounts(t, e, 16)
	require.Equal(t, map[string]int{"available": 3, "reserved": 0, "sold": 0}, counts)

	// Membership correspondence: no reserved ids, no lease entries.
	require.EqualValues(t, 0, rdb.ZCard(context.Background(), "ticket:{16}:reserved:exp").Val())

	cancel()
	<-done
}

func TestManualReclaimEndpoint(t *testing.T) {
	e, repo, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/preload/17", preloadBody(1, 2))
	require.Equal(t, http.StatusOK, rec.Code)

	reserved, err := repo.ReserveN(context.Background(), 17, 2, time.Second)
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	rec = do(e, http.MethodPost, "/reclaim/17?limit=500", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Reclaimed []string `json:"reclaimed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Reclaimed, len(reserved))

	// A second reclaim with nothing expired is a no-op.
	rec = do(e, http.MethodPost, "/reclaim/17", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"reclaimed":[]}`, rec.Body.String())
}

func TestPurchaseInputValidation(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodPost, "/purchase/18", `{"player_id":"p1","count":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/purchase/18", `{"count":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodPost, "/purchase/not-a-class", `{"player_id":"p1","count":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthReportsPong(t *testing.T) {
	e, _, _ := newTestServer(t, &wallet.Static{Approve: true}, 30*time.Second)

	rec := do(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"redis":"PONG"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestHealthReportsStoreOutage(t *testing.T) {
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewTicketRepo(rdb)
	purchases := service.NewPurchaseService(repo, &wallet.Static{Approve: true}, nil, 30*time.Second, 10)
	h := handler.NewReservationHandler(repo, purchases)
	e := echo.New()
	router.RegisterRoutes(e, h,
		middleware.NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil),
		middleware.AdminGuard(""),
	)

	m.Close() // take the store down
	rec := do(e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminGuardRejectsWithoutToken(t *testing.T) {
	m := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	repo := repository.NewTicketRepo(rdb)
	purchases := service.NewPurchaseService(repo, &wallet.Static{Approve: true}, nil, 30*time.Second, 10)

	e := echo.New()
	router.RegisterRoutes(e, handler.NewReservationHandler(repo, purchases),
		middleware.NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil),
		middleware.AdminGuard("sekret"),
	)

	rec := do(e, http.MethodPost, "/preload/19", preloadBody(1, 2))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	// Purchase stays open even when the guard is active.
	rec = do(e, http.MethodPost, "/purchase/19", `{"player_id":"p1","count":1}`)
	require.Equal(t, http.StatusConflict, rec.Code, "empty class rejects on inventory, not auth")
}
