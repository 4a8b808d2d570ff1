package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/coinvex/trading"
	"github.com/coinvex/trading/breaker"
	"github.com/coinvex/trading/inmem"
	"github.com/coinvex/trading/ratelimit"
	"github.com/coinvex/trading/risk"
	"github.com/coinvex/trading/uuid"
)

func TestServer_SessionState(t *testing.T) {
	router := newTestServer().router()

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/sessions/user", nil)

	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf(
			"unexpected status\nexpected: [%v]\nactual:   [%v]",
			http.StatusOK,
			recorder.Code,
		)
	}
}

func TestServer_RequestLimit(t *testing.T) {
	router := newTestServer().router()

	limits := ratelimit.LimitsForTier(ratelimit.TierFree)

	for i := 0; i < limits.RequestsPerMinute; i++ {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(
			http.MethodGet,
			"/sessions/user",
			nil,
		)

		router.ServeHTTP(recorder, request)

		if recorder.Code != http.StatusOK {
			t.Fatalf(
				"expected request [%v] within the budget to pass",
				i+1,
			)
		}
	}

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/sessions/user", nil)

	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusTooManyRequests {
		t.Fatalf(
			"unexpected status\nexpected: [%v]\nactual:   [%v]",
			http.StatusTooManyRequests,
			recorder.Code,
		)
	}

	if len(recorder.Header().Get("Retry-After")) == 0 {
		t.Errorf("expected a Retry-After header on the denied request")
	}

	if recorder.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("expected an exhausted remaining budget")
	}

	// Another user's budget is untouched.
	recorder = httptest.NewRecorder()
	request = httptest.NewRequest(http.MethodGet, "/sessions/other", nil)

	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusOK {
		t.Errorf(
			"unexpected status\nexpected: [%v]\nactual:   [%v]",
			http.StatusOK,
			recorder.Code,
		)
	}
}

func newTestServer() *Server {
	logger := &noopLogger{}
	idService := &uuid.IDService{}
	metrics := inmem.NewMetricsSink()

	sessions := trading.NewSessionController(
		logger,
		inmem.NewCredentialRepository(),
		map[string]trading.ExchangeConnector{},
		nil,
		inmem.NewArchive(),
		metrics,
	)

	return NewServer(
		logger,
		sessions,
		idService,
		risk.NewEngine(idService, 100000, nil),
		ratelimit.NewLimiter(metrics),
		breaker.NewRegistry(breaker.DefaultConfig()),
		ratelimit.TierFree,
	)
}

type noopLogger struct{}

func (nl *noopLogger) Debugf(format string, args ...interface{})   {}
func (nl *noopLogger) Infof(format string, args ...interface{})    {}
func (nl *noopLogger) Warningf(format string, args ...interface{}) {}
func (nl *noopLogger) Errorf(format string, args ...interface{})   {}
func (nl *noopLogger) Fatalf(format string, args ...interface{})   {}

func (nl *noopLogger) WithField(
	key string,
	value interface{},
) trading.Logger {
	return nl
}

func (nl *noopLogger) WithFields(
	fields map[string]interface{},
) trading.Logger {
	return nl
}
