package handlers

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"git.home.luguber.info/inful/mapbuilder/internal/config"
	"git.home.luguber.info/inful/mapbuilder/internal/forge"
	"git.home.luguber.info/inful/mapbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/mapbuilder/internal/logfields"
	"git.home.luguber.info/inful/mapbuilder/internal/metrics"
)

// Webhook result labels for metrics.
const (
	ResultInvalidSignature = "invalid_signature"
	ResultDuplicate        = "duplicate"
	ResultPing             = "ping"
	ResultIgnoredEvent     = "ignored_event"
	ResultIgnoredRef       = "ignored_ref"
	ResultMalformed        = "malformed"
	ResultNoChanges        = "no_changes"
	ResultQueued           = "queued"
)

// ChangeFilter decides whether a push touched tracked assets (*forge.ChangeFilter).
type ChangeFilter interface {
	Qualifies(ctx context.Context, compareURL, base, head string) forge.Decision
}

// BuildTrigger starts an asynchronous build and returns its job ID.
type BuildTrigger interface {
	TriggerBuild(target, remoteURL, branch string) string
}

// WebhookSettings returns the current webhook configuration. It is called per request so a
// reloaded secret or tracked ref list applies immediately.
type WebhookSettings func() config.WebhookConfig

// WebhookHandlers contains the push webhook handler.
type WebhookHandlers struct {
	settings     WebhookSettings
	filter       ChangeFilter
	trigger      BuildTrigger
	deliveries   *DeliveryCache
	maxBody      int64
	recorder     metrics.Recorder
	logger       *slog.Logger
	errorAdapter *errors.HTTPErrorAdapter
}

// NewWebhookHandlers constructs the webhook handler.
func NewWebhookHandlers(settings WebhookSettings, filter ChangeFilter, trigger BuildTrigger, maxBody int64, logger *slog.Logger) *WebhookHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = config.DefaultMaxBodyBytes
	}
	return &WebhookHandlers{
		settings:     settings,
		filter:       filter,
		trigger:      trigger,
		deliveries:   NewDeliveryCache(settings().DedupWindow),
		maxBody:      maxBody,
		recorder:     metrics.NoopRecorder{},
		logger:       logger,
		errorAdapter: errors.NewHTTPErrorAdapter(logger),
	}
}

// WithRecorder attaches a metrics recorder (fluent helper).
func (h *WebhookHandlers) WithRecorder(r metrics.Recorder) *WebhookHandlers {
	if r != nil {
		h.recorder = r
	}
	return h
}

// HandlePush verifies, filters and dispatches a GitHub push delivery.
//
// The signature is checked over the raw body before anything in it is parsed. Only a qualifying
// push on a tracked ref starts a build; the response is written without waiting for it.
func (h *WebhookHandlers) HandlePush(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeText(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			writeText(w, http.StatusRequestEntityTooLarge, "Payload Too Large")
			return
		}
		h.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("failed to read request body").WithCause(err).Build())
		return
	}

	settings := h.settings()
	delivery := r.Header.Get(forge.HeaderDelivery)
	event := r.Header.Get(forge.HeaderEvent)
	log := h.logger.With(logfields.Delivery(delivery), logfields.Event(event))

	if !forge.VerifySignature(body, forge.SignatureFromHeaders(r.Header), settings.Secret) {
		log.Warn("Rejected webhook with invalid signature", logfields.RemoteAddr(r.RemoteAddr))
		h.recorder.IncWebhookResult(ResultInvalidSignature)
		writeText(w, http.StatusUnauthorized, forge.ErrInvalidSignature.Message())
		return
	}

	if h.deliveries.Seen(delivery) {
		log.Info("Ignoring replayed delivery")
		h.recorder.IncWebhookResult(ResultDuplicate)
		writeText(w, http.StatusOK, "Duplicate delivery")
		return
	}

	switch event {
	case forge.EventPush:
	case forge.EventPing:
		h.recorder.IncWebhookResult(ResultPing)
		writeText(w, http.StatusOK, "pong")
		return
	default:
		h.recorder.IncWebhookResult(ResultIgnoredEvent)
		writeText(w, http.StatusOK, fmt.Sprintf("Unsupported event: %s", event))
		return
	}

	push, err := forge.ParsePushEvent(body)
	if err != nil {
		log.Warn("Malformed push payload", logfields.Error(err))
		h.recorder.IncWebhookResult(ResultMalformed)
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	branch, tracked := settings.BranchForRef(push.Ref)
	if !tracked {
		h.recorder.IncWebhookResult(ResultIgnoredRef)
		writeText(w, http.StatusOK, fmt.Sprintf("Branch is not master: %s - No Build", push.Ref))
		return
	}

	target := push.Repository.FullName
	decision := h.filter.Qualifies(r.Context(), push.Repository.CompareURL, push.Before, push.After)
	if !decision.Build() {
		log.Info("Push did not touch tracked assets",
			logfields.Target(target),
			logfields.Branch(branch),
			slog.String("reason", string(decision.Reason)))
		h.recorder.IncWebhookResult(ResultNoChanges)
		writeText(w, http.StatusOK, "No maps to build")
		return
	}

	if !h.deliveries.Record(delivery) {
		log.Info("Ignoring replayed delivery")
		h.recorder.IncWebhookResult(ResultDuplicate)
		writeText(w, http.StatusOK, "Duplicate delivery")
		return
	}

	jobID := h.trigger.TriggerBuild(target, push.Repository.CloneURL, branch)
	log.Info("Build queued",
		logfields.JobID(jobID),
		logfields.Target(target),
		logfields.Branch(branch),
		logfields.Path(decision.MatchedPath))
	h.recorder.IncWebhookResult(ResultQueued)
	writeText(w, http.StatusAccepted, "Build Queued")
}
