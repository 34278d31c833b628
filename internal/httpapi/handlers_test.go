package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/borrow"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/networth"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/pipeline"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/settlement"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/storage/memory"
)

type server struct {
	router http.Handler
	store  *memory.MemoryBankingStore
	a, b   int64
}

func newServer(t *testing.T) server {
	t.Helper()
	store := memory.NewMemoryBankingStore()
	a := store.AddPerson("A", "a@example.com")
	b := store.AddPerson("B", "b@example.com")
	store.AddAccount(models.BankAccount{IBAN: "DE-A", Balance: decimal.NewFromInt(100), OwnerID: a})
	store.AddAccount(models.BankAccount{IBAN: "DE-B", Balance: decimal.NewFromInt(500), OwnerID: b})
	store.AddFriend(a, b)
	store.AddTransaction("DE-B", "DE-A", decimal.NewFromInt(20))

	orch := pipeline.NewOrchestrator(
		settlement.NewEngine(store),
		networth.NewAggregator(store),
		borrow.NewAggregator(store),
	)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	return server{
		router: NewRouter(store, orch, logrus.NewEntry(logger)),
		store:  store,
		a:      a,
		b:      b,
	}
}

func (s server) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestProcessThenMaxBorrow(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodPost, "/process/3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"The processes up to process 3 ran successfully"}`, rec.Body.String())

	// A: 120 after settlement, B: 480. A may borrow 480 - 120.
	rec = s.do(t, http.MethodGet, "/person/max_borrow/1")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[maxBorrowResponse](t, rec)
	assert.True(t, body.MaxBorrow.Equal(decimal.NewFromInt(360)), body.MaxBorrow.String())
}

func TestProcessInvalidLevel(t *testing.T) {
	s := newServer(t)

	for _, raw := range []string{"0", "-2", "abc"} {
		rec := s.do(t, http.MethodPost, "/process/"+raw)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, raw)
		assert.Contains(t, rec.Body.String(), "no valid ID provided")
	}

	acc, err := s.store.FindAccountByIBAN(context.Background(), "DE-B")
	require.NoError(t, err)
	assert.True(t, acc.Balance.Equal(decimal.NewFromInt(500)))
}

type failingRunner struct{}

func (failingRunner) RunRaw(context.Context, string) (pipeline.Summary, error) {
	return pipeline.Summary{}, &pipeline.StageError{Stage: pipeline.StageSettlement, Err: errors.New("connection refused")}
}

func TestProcessStageFailure(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	router := NewRouter(memory.NewMemoryBankingStore(), failingRunner{}, logrus.NewEntry(logger))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/process/1", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "stage settlement")
}

func TestProcessRequiresPost(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/process/1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPeople(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/person")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Person](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/person?id=2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B", decode[models.Person](t, rec).Name)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/person?id=99").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodGet, "/person?id=x").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/person/max_borrow/99").Code)
}

func TestAccounts(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/account")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.BankAccount](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/account?iban=DE-A")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, s.a, decode[models.BankAccount](t, rec).OwnerID)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/account?iban=FR-X").Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodGet, "/account?iban=").Code)
	long := "/account?iban=" + strings.Repeat("X", 35)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodGet, long).Code)

	rec = s.do(t, http.MethodGet, "/account/2")
	require.Equal(t, http.StatusOK, rec.Code)
	owned := decode[[]models.BankAccount](t, rec)
	require.Len(t, owned, 1)
	assert.Equal(t, "DE-B", owned[0].IBAN)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/account/42").Code)
}

func TestKnownPersonWithoutAccountsGetsEmptyList(t *testing.T) {
	s := newServer(t)
	c := s.store.AddPerson("C", "c@example.com")
	path := strconv.FormatInt(c, 10)

	rec := s.do(t, http.MethodGet, "/account/"+path)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/transactions/person/"+path)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestTransactions(t *testing.T) {
	s := newServer(t)
	s.store.AddTransaction("DE-A", "EXTERNAL", decimal.NewFromInt(5))

	rec := s.do(t, http.MethodGet, "/transactions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Transaction](t, rec), 2)

	rec = s.do(t, http.MethodGet, "/transactions?id=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "DE-B", decode[models.Transaction](t, rec).SenderIBAN)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/transactions?id=7").Code)

	rec = s.do(t, http.MethodGet, "/transactions/person/1")
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[[]models.Transaction](t, rec)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(1), mine[0].ID)
	assert.Equal(t, int64(2), mine[1].ID)

	rec = s.do(t, http.MethodGet, "/transactions/account/DE-B")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.Transaction](t, rec), 1)

	rec = s.do(t, http.MethodGet, "/transactions/person/abc")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/transactions/person/42").Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/transactions/account/NOPE").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newServer(t)

	rec := s.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(models.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.New("boom")))
}
