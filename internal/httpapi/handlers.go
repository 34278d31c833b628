package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/models"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/validation"
)

type processResponse struct {
	Response string `json:"response"`
}

type maxBorrowResponse struct {
	MaxBorrow decimal.Decimal `json:"maxBorrow"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) handleProcess(w http.ResponseWriter, r *http.Request) {
	summary, err := h.runner.RunRaw(r.Context(), mux.Vars(r)["processId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, processResponse{Response: summary.Message()})
}

func (h *handler) handlePeople(w http.ResponseWriter, r *http.Request) {
	if raw, ok := r.URL.Query()["id"]; ok {
		id, err := validation.ParseID(first(raw))
		if err != nil {
			writeError(w, r, err)
			return
		}
		person, err := h.reader.FindPerson(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, person)
		return
	}

	people, err := h.reader.ListPeople(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(people))
}

// handleMaxBorrow reads the cached value written by the last level 3 run.
func (h *handler) handleMaxBorrow(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	person, err := h.reader.FindPerson(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, maxBorrowResponse{MaxBorrow: person.MaxBorrow})
}

func (h *handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if raw, ok := r.URL.Query()["iban"]; ok {
		iban := first(raw)
		if err := validation.ValidateIBAN(iban); err != nil {
			writeError(w, r, err)
			return
		}
		account, err := h.reader.FindAccountByIBAN(r.Context(), iban)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, account)
		return
	}

	accounts, err := h.reader.ListAccounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(accounts))
}

// handleAccountsByOwner lists the accounts a person owns. An unknown person
// is a 404, a known one without accounts gets an empty list.
func (h *handler) handleAccountsByOwner(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(mux.Vars(r)["personId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.reader.FindPerson(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	accounts, err := h.reader.FindAccountsByOwner(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(accounts))
}

func (h *handler) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if raw, ok := r.URL.Query()["id"]; ok {
		id, err := validation.ParseID(first(raw))
		if err != nil {
			writeError(w, r, err)
			return
		}
		tx, err := h.reader.FindTransaction(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
		return
	}

	txs, err := h.reader.ListTransactions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

// handleTransactionsByPerson returns every transaction touching any account
// the person owns, ordered by id.
func (h *handler) handleTransactionsByPerson(w http.ResponseWriter, r *http.Request) {
	id, err := validation.ParseID(mux.Vars(r)["personId"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.reader.FindPerson(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	accounts, err := h.reader.FindAccountsByOwner(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	seen := make(map[int64]struct{})
	txs := make([]models.Transaction, 0)
	for _, a := range accounts {
		found, err := h.reader.FindTransactionsByAccount(r.Context(), a.IBAN)
		if err != nil {
			writeError(w, r, err)
			return
		}
		for _, tx := range found {
			if _, dup := seen[tx.ID]; dup {
				continue
			}
			seen[tx.ID] = struct{}{}
			txs = append(txs, tx)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].ID < txs[j].ID })
	writeJSON(w, http.StatusOK, txs)
}

func (h *handler) handleTransactionsByAccount(w http.ResponseWriter, r *http.Request) {
	iban := mux.Vars(r)["iban"]
	if err := validation.ValidateIBAN(iban); err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.reader.FindAccountByIBAN(r.Context(), iban); err != nil {
		writeError(w, r, err)
		return
	}
	txs, err := h.reader.FindTransactionsByAccount(r.Context(), iban)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, validation.ErrInvalidID):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
