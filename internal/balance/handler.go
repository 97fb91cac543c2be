package balance

import (
	"context"
	"net/http"

	"github.com/frahmantamala/pocket-ledger/internal/transport"
	"github.com/go-chi/chi"
	"github.com/shopspring/decimal"
)

type ServiceAPI interface {
	GetAll(ctx context.Context) (*Balances, error)
	Set(ctx context.Context, method string, amount decimal.Decimal) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := h.Service.GetAll(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, balances)
}

// SetBalance overwrites one balance and answers with both.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	var dto SetBalanceDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	method := chi.URLParam(r, "method")
	if err := h.Service.Set(r.Context(), method, dto.Amount); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("SetBalance: balance overwritten", "method", method)
	h.GetBalances(w, r)
}
