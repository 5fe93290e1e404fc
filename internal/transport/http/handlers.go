package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	id "mintgate/pkg/domain"
	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/platform/httputil"
	request "mintgate/pkg/platform/middleware/request"
	"mintgate/pkg/platform/secrets"
	"mintgate/pkg/platform/sentinel"
)

// IssuanceService is the slice of the orchestrator the transport needs.
type IssuanceService interface {
	OnNewMember(ctx context.Context, memberID id.MemberID) error
	ForceReissue(ctx context.Context, memberID id.MemberID) error
}

// GatewayClient reads published transactions back from the network.
type GatewayClient interface {
	Status(ctx context.Context, txID id.TransactionID) (string, error)
	Data(ctx context.Context, txID id.TransactionID) ([]byte, error)
	TransactionsByTag(ctx context.Context, name, value string) ([]id.TransactionID, error)
}

// Handler wires the ops endpoints to the issuance service and the gateway
// client.
type Handler struct {
	issuance        IssuanceService
	gateway         GatewayClient
	relaySecretHash string
	logger          *slog.Logger
}

// New constructs the transport handler. relaySecretHash may be empty, which
// disables the relay intake endpoint.
func New(issuance IssuanceService, gateway GatewayClient, relaySecretHash string, logger *slog.Logger) *Handler {
	return &Handler{
		issuance:        issuance,
		gateway:         gateway,
		relaySecretHash: relaySecretHash,
		logger:          logger,
	}
}

// HandleHealth reports liveness, delegating to the optional dependency
// check.
func (h *Handler) HandleHealth(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "dependency unhealthy"))
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HandleTransactionStatus handles GET /v1/transactions/{txID}/status.
func (h *Handler) HandleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := id.TransactionID(chi.URLParam(r, "txID"))
	if txID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "transaction id is required"))
		return
	}

	status, err := h.gateway.Status(ctx, txID)
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction status lookup failed",
			"request_id", request.GetRequestID(ctx),
			"tx_id", txID,
			"error", err,
		)
		httputil.WriteError(w, translateGatewayError(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"id":     txID.String(),
		"status": status,
	})
}

// HandleTransactionMetadata handles GET /v1/transactions/{txID}/metadata and
// returns the decoded payload verbatim.
func (h *Handler) HandleTransactionMetadata(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txID := id.TransactionID(chi.URLParam(r, "txID"))
	if txID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "transaction id is required"))
		return
	}

	payload, err := h.gateway.Data(ctx, txID)
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction data fetch failed",
			"request_id", request.GetRequestID(ctx),
			"tx_id", txID,
			"error", err,
		)
		httputil.WriteError(w, translateGatewayError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

// HandleTransactionsByIdentity handles GET /v1/transactions?identity=… by
// querying the gateway for transactions tagged with the member identity.
func (h *Handler) HandleTransactionsByIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := r.URL.Query().Get("identity")
	if identity == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "identity query parameter is required"))
		return
	}

	txIDs, err := h.gateway.TransactionsByTag(ctx, "Member-Id", identity)
	if err != nil {
		h.logger.ErrorContext(ctx, "transaction lookup by identity failed",
			"request_id", request.GetRequestID(ctx),
			"identity", identity,
			"error", err,
		)
		httputil.WriteError(w, translateGatewayError(err))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"identity":     identity,
		"transactions": txIDs,
	})
}

type memberJoinRequest struct {
	MemberID string `json:"member_id"`
}

// HandleMemberJoin is the relay intake: an HTTP fallback for join events
// when the gateway websocket is not the event source. Callers authenticate
// with the shared relay secret.
func (h *Handler) HandleMemberJoin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.relaySecretHash == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "relay intake is disabled"))
		return
	}
	if err := secrets.Verify(r.Header.Get("X-Relay-Secret"), h.relaySecretHash); err != nil {
		h.logger.WarnContext(ctx, "relay secret mismatch",
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid relay secret"))
		return
	}

	var req memberJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	memberID, err := id.ParseMemberID(req.MemberID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member_id"))
		return
	}

	if err := h.issuance.OnNewMember(ctx, memberID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// HandleForceReissue handles POST /v1/admin/reissue/{memberID}.
func (h *Handler) HandleForceReissue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid member id"))
		return
	}

	if err := h.issuance.ForceReissue(ctx, memberID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "forced reissue scheduled",
		"request_id", request.GetRequestID(ctx),
		"member_id", memberID,
	)
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status":    "scheduled",
		"member_id": memberID.String(),
	})
}

// translateGatewayError keeps sentinel facts from the gateway client intact
// while giving uncoded failures a transport-safe code.
func translateGatewayError(err error) error {
	var dErr *dErrors.Error
	if errors.As(err, &dErr) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeNotFound, "transaction not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "gateway request failed")
}
