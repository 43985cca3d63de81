package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/orchestrall/patientflow/internal/booking"
	"github.com/orchestrall/patientflow/internal/dialog"
	"github.com/orchestrall/patientflow/internal/idempotency"
	"github.com/orchestrall/patientflow/internal/messaging/channelclient"
	observemetrics "github.com/orchestrall/patientflow/internal/observability/metrics"
	"github.com/orchestrall/patientflow/internal/patients"
	"github.com/orchestrall/patientflow/internal/session"
	"github.com/orchestrall/patientflow/internal/tenancy"
	"github.com/orchestrall/patientflow/internal/tenants"
	"github.com/orchestrall/patientflow/pkg/logging"
)

// Header names the channel provider signs inbound webhooks with.
const (
	HeaderSignatureTimestamp = "Channel-Timestamp"
	HeaderSignature          = "Channel-Signature"
)

type signatureVerifier interface {
	VerifyWebhookSignature(timestamp, signature string, payload []byte) error
}

type outboundSender interface {
	SendMessage(ctx context.Context, req channelclient.SendMessageRequest) (*channelclient.DeliveryReceipt, error)
}

type deliveryTracker interface {
	Claim(ctx context.Context, deliveryID string) (idempotency.Status, error)
	MarkProcessed(ctx context.Context, deliveryID string) error
	Release(ctx context.Context, deliveryID string) error
}

type tenantResolver interface {
	LookupByNumber(ctx context.Context, channelNumber string) (*tenants.Tenant, error)
}

type identityResolver interface {
	GetOrCreateByPhone(ctx context.Context, tenantID, phone, displayName string) (*patients.Patient, error)
}

type sessionStore interface {
	Get(ctx context.Context, tenantID, address string) (*session.Session, error)
	Save(ctx context.Context, sess *session.Session) error
}

type conversationMachine interface {
	Advance(ctx context.Context, sess *session.Session, in dialog.Input) []string
}

// inboundEvent is the channel provider's inbound-message webhook payload.
type inboundEvent struct {
	DeliveryID       string `json:"deliveryId"`
	SenderAddress    string `json:"senderAddress"`
	RecipientAddress string `json:"recipientAddress"`
	Body             string `json:"body"`
	Timestamp        string `json:"timestamp"`
	RetryCount       int    `json:"retryCount"`
}

// ChannelWebhookHandler is the webhook ingress: it validates the signature,
// deduplicates by delivery ID, resolves identities, runs the conversation
// machine, and dispatches replies, all within the provider's webhook timeout.
type ChannelWebhookHandler struct {
	verifier signatureVerifier
	sender   outboundSender
	delivery deliveryTracker
	tenants  tenantResolver
	patients identityResolver
	sessions sessionStore
	machine  conversationMachine
	locker   session.Locker
	logger   *logging.Logger
	metrics  *observemetrics.OrchestratorMetrics
	sendFrom string
}

type ChannelWebhookConfig struct {
	Verifier signatureVerifier
	Sender   outboundSender
	Delivery deliveryTracker
	Tenants  tenantResolver
	Patients identityResolver
	Sessions sessionStore
	Machine  conversationMachine
	Locker   session.Locker
	Logger   *logging.Logger
	Metrics  *observemetrics.OrchestratorMetrics
	// SenderNumber overrides the tenant channel number as the outbound
	// from address when set.
	SenderNumber string
}

func NewChannelWebhookHandler(cfg ChannelWebhookConfig) *ChannelWebhookHandler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	locker := cfg.Locker
	if locker == nil {
		locker = session.NoopLocker{}
	}
	return &ChannelWebhookHandler{
		verifier: cfg.Verifier,
		sender:   cfg.Sender,
		delivery: cfg.Delivery,
		tenants:  cfg.Tenants,
		patients: cfg.Patients,
		sessions: cfg.Sessions,
		machine:  cfg.Machine,
		locker:   locker,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		sendFrom: cfg.SenderNumber,
	}
}

// HandleInboundMessage processes one inbound-message webhook delivery.
func (h *ChannelWebhookHandler) HandleInboundMessage(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		h.metrics.ObserveInbound(outcome)
		h.metrics.ObserveWebhookLatency(outcome, time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		outcome = "malformed"
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := h.verifier.VerifyWebhookSignature(
		r.Header.Get(HeaderSignatureTimestamp),
		r.Header.Get(HeaderSignature),
		body,
	); err != nil {
		h.logger.Warn("rejected webhook with invalid signature", "error", err)
		outcome = "signature_rejected"
		http.Error(w, "invalid signature", http.StatusForbidden)
		return
	}

	var evt inboundEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		outcome = "malformed"
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if evt.DeliveryID == "" {
		outcome = "malformed"
		http.Error(w, "missing deliveryId", http.StatusBadRequest)
		return
	}

	status, err := h.delivery.Claim(r.Context(), evt.DeliveryID)
	if err != nil {
		h.logger.Error("delivery claim failed", "delivery_id", evt.DeliveryID, "error", err)
		outcome = "error"
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	switch status {
	case idempotency.StatusProcessed:
		h.logger.Info("duplicate webhook delivery short-circuited",
			"delivery_id", evt.DeliveryID, "retry_count", evt.RetryCount)
		outcome = "duplicate"
		writeAck(w)
		return
	case idempotency.StatusProcessing:
		// Another delivery holds the claim. A final ack here would lose the
		// message if that holder died before releasing, so ask the provider
		// to redeliver; by then the claim is released, processed, or expired.
		h.logger.Info("concurrent webhook delivery deferred",
			"delivery_id", evt.DeliveryID, "retry_count", evt.RetryCount)
		outcome = "in_flight"
		http.Error(w, "delivery in progress", http.StatusInternalServerError)
		return
	}

	if err := h.process(r.Context(), evt); err != nil {
		h.logger.Error("webhook processing failed",
			"delivery_id", evt.DeliveryID, "retry_count", evt.RetryCount, "error", err)
		// Drop the claim so the provider's redelivery can reprocess.
		if relErr := h.delivery.Release(r.Context(), evt.DeliveryID); relErr != nil {
			h.logger.Error("claim release failed", "delivery_id", evt.DeliveryID, "error", relErr)
		}
		outcome = "error"
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}

	if err := h.delivery.MarkProcessed(r.Context(), evt.DeliveryID); err != nil {
		// Side effects are complete; a stale claim only risks one extra
		// duplicate pass on redelivery, which the machine tolerates.
		h.logger.Error("mark processed failed", "delivery_id", evt.DeliveryID, "error", err)
	}
	writeAck(w)
}

func (h *ChannelWebhookHandler) process(ctx context.Context, evt inboundEvent) error {
	tenant, err := h.tenants.LookupByNumber(ctx, evt.RecipientAddress)
	if err != nil {
		return err
	}
	ctx = tenancy.WithTenantID(ctx, tenant.ID)

	patient, err := h.patients.GetOrCreateByPhone(ctx, tenant.ID, evt.SenderAddress, "")
	if err != nil {
		return err
	}

	key := session.Key(tenant.ID, patient.Phone)
	return h.locker.WithSessionLock(ctx, key, func(ctx context.Context) error {
		sess, err := h.sessions.Get(ctx, tenant.ID, patient.Phone)
		if err != nil {
			return err
		}
		if sess == nil {
			sess = session.New(tenant.ID, patient.Phone)
		}

		sess.AppendTurn(session.DirectionInbound, evt.Body, evt.DeliveryID)

		replies := h.machine.Advance(ctx, sess, dialog.Input{
			Text:       evt.Body,
			PatientID:  patient.ID,
			ProviderID: tenant.DefaultProviderID,
			Source:     "sms",
		})

		for _, reply := range replies {
			sess.AppendTurn(session.DirectionOutbound, reply, "")
		}

		// Persist before sending: a duplicate send on retry beats telling
		// the user about a state that was never durably recorded.
		if err := h.sessions.Save(ctx, sess); err != nil {
			return err
		}

		from := h.sendFrom
		if from == "" {
			from = tenant.ChannelNumber
		}
		for _, reply := range replies {
			receipt, err := h.sender.SendMessage(ctx, channelclient.SendMessageRequest{
				From: from,
				To:   patient.Phone,
				Body: reply,
			})
			if err != nil {
				// The inbound intent was legitimately processed; a failed
				// send must not roll back the transition.
				h.logger.Error("outbound send failed",
					"tenant_id", tenant.ID, "to", patient.Phone, "error", err)
				h.metrics.ObserveOutbound("failed")
				continue
			}
			h.metrics.ObserveOutbound(receipt.Status)
		}
		return nil
	})
}

func writeAck(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"data":{}}`))
}

// meteredBooker records booking attempt outcomes around the real service.
type meteredBooker struct {
	inner   dialog.Booker
	metrics *observemetrics.OrchestratorMetrics
}

// NewMeteredBooker wraps a booker with attempt metrics.
func NewMeteredBooker(inner dialog.Booker, m *observemetrics.OrchestratorMetrics) dialog.Booker {
	return &meteredBooker{inner: inner, metrics: m}
}

func (b *meteredBooker) Book(ctx context.Context, req booking.BookRequest) (*booking.Appointment, error) {
	appt, err := b.inner.Book(ctx, req)
	switch {
	case err == nil:
		b.metrics.ObserveBooking("booked")
	case errors.Is(err, booking.ErrConflict):
		b.metrics.ObserveBooking("conflict")
	default:
		b.metrics.ObserveBooking("error")
	}
	return appt, err
}
