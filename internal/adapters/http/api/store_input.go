package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fixitall/intake/internal/domain/input"
	"github.com/fixitall/intake/pkg/logger"
	"github.com/fixitall/intake/pkg/metrics"
)

// Response messages for POST /store_input.
const (
	msgInputStored     = "Input stored"
	msgNoInputReceived = "No input received"
	msgInputTooLarge   = "Input too large"
	msgInvalidInput    = "Invalid JSON input: "
	msgStoreFailed     = "Error storing input: "
)

// StoreInputDependencies defines what the recorder endpoint needs.
type StoreInputDependencies interface {
	StoreInput(ctx context.Context, rec input.Record) error
}

// StoreInputHandler handles input recording requests.
type StoreInputHandler struct {
	deps     StoreInputDependencies
	maxBytes int64
	logger   logger.Logger
}

// NewStoreInputHandler creates a new recorder handler.
func NewStoreInputHandler(deps StoreInputDependencies, maxBytes int64, l logger.Logger) *StoreInputHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxInputBytes
	}
	return &StoreInputHandler{deps: deps, maxBytes: maxBytes, logger: l}
}

type storeInputResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// HandleStoreInput handles POST /store_input requests.
func (h *StoreInputHandler) HandleStoreInput(w http.ResponseWriter, r *http.Request) {
	const op = "api.store_input"
	ctx := r.Context()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			metrics.RecordInputRejected("too_large")
			h.logger.Warn(ctx, "input rejected", logger.Error(WrapKind(op, ErrInputTooLarge, err)))
			writeFailure(w, http.StatusRequestEntityTooLarge, msgInputTooLarge)
			return
		}
		metrics.RecordInputRejected("unreadable")
		h.logger.Warn(ctx, "input rejected", logger.Error(WrapKind(op, ErrInvalidInput, err)))
		writeFailure(w, http.StatusBadRequest, msgInvalidInput+err.Error())
		return
	}

	rec, err := input.Parse(body)
	switch {
	case errors.Is(err, input.ErrEmpty):
		metrics.RecordInputRejected("empty")
		h.logger.Debug(ctx, "input rejected", logger.Error(NewKind(op, ErrMissingInput)))
		writeFailure(w, http.StatusBadRequest, msgNoInputReceived)
		return
	case err != nil:
		metrics.RecordInputRejected("invalid")
		h.logger.Debug(ctx, "input rejected", logger.Error(WrapKind(op, ErrInvalidInput, err)))
		detail := err.Error()
		var invalid *input.InvalidError
		if errors.As(err, &invalid) {
			detail = invalid.Err.Error()
		}
		writeFailure(w, http.StatusBadRequest, msgInvalidInput+detail)
		return
	}

	if err := h.deps.StoreInput(ctx, rec); err != nil {
		h.logger.Error(ctx, "input not stored", logger.Error(WrapKind(op, ErrStoreInput, err)))
		writeFailure(w, http.StatusInternalServerError, msgStoreFailed+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, storeInputResponse{
		Success: true,
		Message: msgInputStored,
		Data:    json.RawMessage(rec),
	})
}
