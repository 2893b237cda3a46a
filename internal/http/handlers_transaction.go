package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tally/internal/core"
	"tally/internal/services"
)

type transactionJSON struct {
	ID                string  `json:"id"`
	AccountID         string  `json:"accountId"`
	Kind              string  `json:"kind"`
	Amount            string  `json:"amount"`
	Date              string  `json:"date"`
	Category          string  `json:"category"`
	Description       string  `json:"description"`
	Status            string  `json:"status"`
	IsRecurring       bool    `json:"isRecurring"`
	RecurringInterval string  `json:"recurringInterval,omitempty"`
	NextRecurringDate *string `json:"nextRecurringDate,omitempty"`
	LastProcessed     *string `json:"lastProcessed,omitempty"`
	CreatedAt         string  `json:"createdAt"`
	UpdatedAt         string  `json:"updatedAt"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Kind:              string(t.Kind),
		Amount:            t.Amount.String(),
		Date:              formatTime(t.Date),
		Category:          t.Category,
		Description:       t.Description,
		Status:            string(t.Status),
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		NextRecurringDate: formatTimePtr(t.NextRecurringDate),
		LastProcessed:     formatTimePtr(t.LastProcessed),
		CreatedAt:         formatTime(t.CreatedAt),
		UpdatedAt:         formatTime(t.UpdatedAt),
	}
}

func parseRequestDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date %q", core.ErrValidation, s)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountID         string `json:"accountId"`
		Kind              string `json:"kind"`
		Amount            string `json:"amount"`
		Date              string `json:"date"`
		Category          string `json:"category"`
		Description       string `json:"description"`
		IsRecurring       bool   `json:"isRecurring"`
		RecurringInterval string `json:"recurringInterval"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	date, err := parseRequestDate(req.Date)
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := services.CreateTransactionInput{
		AccountID:         req.AccountID,
		Kind:              core.TransactionKind(req.Kind),
		Amount:            amount,
		Date:              date,
		Category:          sanitizeInput(req.Category),
		Description:       sanitizeInput(req.Description),
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(req.RecurringInterval),
	}

	t, err := s.transactions.Create(r.Context(), ownerFrom(r).ID, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionJSON(t))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	filter := services.TransactionFilter{
		AccountID: strings.TrimSpace(r.URL.Query().Get("accountId")),
	}
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			filter.Year = y
		}
	}
	if v := strings.TrimSpace(r.URL.Query().Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			writeError(w, r, fmt.Errorf("%w: month must be between 1 and 12", core.ErrValidation))
			return
		}
		filter.Month = m
	}

	transactions, err := s.transactions.List(r.Context(), ownerFrom(r).ID, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]transactionJSON, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionJSON(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.transactions.Get(r.Context(), ownerFrom(r).ID, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(t))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind              *string `json:"kind"`
		Amount            *string `json:"amount"`
		Date              *string `json:"date"`
		Category          *string `json:"category"`
		Description       *string `json:"description"`
		IsRecurring       *bool   `json:"isRecurring"`
		RecurringInterval *string `json:"recurringInterval"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var in services.UpdateTransactionInput
	if req.Kind != nil {
		kind := core.TransactionKind(*req.Kind)
		in.Kind = &kind
	}
	if req.Amount != nil {
		amount, err := core.ParseAmount(*req.Amount)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.Amount = &amount
	}
	if req.Date != nil {
		date, err := parseRequestDate(*req.Date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		in.Date = &date
	}
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		in.Category = &category
	}
	if req.Description != nil {
		description := sanitizeInput(*req.Description)
		in.Description = &description
	}
	in.IsRecurring = req.IsRecurring
	if req.RecurringInterval != nil {
		interval := core.RecurringInterval(*req.RecurringInterval)
		in.RecurringInterval = &interval
	}

	t, err := s.transactions.Update(r.Context(), ownerFrom(r).ID, r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionJSON(t))
}

func (s *Server) handleDeleteTransactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if err := s.transactions.Delete(r.Context(), ownerFrom(r).ID, req.IDs); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleScanReceipt accepts a multipart image and returns the extracted
// fields. Extraction failures degrade to the caller-supplied defaults rather
// than failing the request.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	const maxReceiptSize = 10 << 20
	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid multipart body: %v", core.ErrValidation, err))
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: image file is required", core.ErrValidation))
		return
	}
	defer file.Close()

	image, err := io.ReadAll(io.LimitReader(file, maxReceiptSize))
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: read image: %v", core.ErrValidation, err))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	defaults := services.Receipt{
		Amount:      decimal.Zero,
		Date:        time.Now(),
		Description: sanitizeInput(r.FormValue("description")),
		Category:    sanitizeInput(r.FormValue("category")),
	}

	receipt := s.transactions.ScanReceipt(r.Context(), image, mimeType, defaults)
	writeJSON(w, http.StatusOK, struct {
		Amount       string `json:"amount"`
		Date         string `json:"date"`
		Description  string `json:"description"`
		Category     string `json:"category"`
		MerchantName string `json:"merchantName"`
	}{
		Amount:       receipt.Amount.String(),
		Date:         formatTime(receipt.Date),
		Description:  receipt.Description,
		Category:     receipt.Category,
		MerchantName: receipt.MerchantName,
	})
}
