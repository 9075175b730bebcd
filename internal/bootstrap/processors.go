package bootstrap

import (
	"context"
	"log/slog"

	"github.com/buddyhq/webhook-ingest/internal/domain/model"
	apperrors "github.com/buddyhq/webhook-ingest/internal/errors"
	"github.com/buddyhq/webhook-ingest/internal/service"
)

// Downstream dependency names. Each gets its own circuit breaker so an
// outage in one system never trips deliveries bound for the other.
const (
	dependencyBuddyAPI        = "buddy-api"
	dependencyVolunteerLedger = "volunteer-ledger"
)

// buildProcessors registers a processor per supported event kind.
// Processors decode and validate the event payload, then hand it to the
// downstream recorder. A payload that fails validation is a permanent
// error and routes straight to the dead letter queue.
func buildProcessors(logger *slog.Logger) *service.ProcessorRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	procs := service.NewProcessorRegistry()

	procs.Register(model.EventKindMatchCreated, dependencyBuddyAPI,
		matchProcessor(logger, "match created"))
	procs.Register(model.EventKindMatchEnded, dependencyBuddyAPI,
		matchProcessor(logger, "match ended"))
	procs.Register(model.EventKindSignupCreated, dependencyVolunteerLedger,
		signupProcessor(logger, "signup created"))
	procs.Register(model.EventKindSignupCancelled, dependencyVolunteerLedger,
		signupProcessor(logger, "signup cancelled"))
	procs.Register(model.EventKindHoursLogged, dependencyVolunteerLedger, hoursProcessor(logger))

	return procs
}

func matchProcessor(logger *slog.Logger, action string) service.ProcessorFunc {
	return func(ctx context.Context, env *model.EventEnvelope, deliveryID string) error {
		var p model.MatchPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}

		logger.InfoContext(ctx, action,
			"delivery_id", deliveryID,
			"match_id", p.MatchID,
			"volunteer_id", p.VolunteerID,
			"buddy_id", p.BuddyID,
		)
		return nil
	}
}

func signupProcessor(logger *slog.Logger, action string) service.ProcessorFunc {
	return func(ctx context.Context, env *model.EventEnvelope, deliveryID string) error {
		var p model.SignupPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}

		logger.InfoContext(ctx, action,
			"delivery_id", deliveryID,
			"signup_id", p.SignupID,
			"volunteer_id", p.VolunteerID,
			"shift_id", p.ShiftID,
		)
		return nil
	}
}

func hoursProcessor(logger *slog.Logger) service.ProcessorFunc {
	return func(ctx context.Context, env *model.EventEnvelope, deliveryID string) error {
		var p model.HoursPayload
		if err := decodePayload(env, &p); err != nil {
			return err
		}

		logger.InfoContext(ctx, "hours logged",
			"delivery_id", deliveryID,
			"volunteer_id", p.VolunteerID,
			"activity_id", p.ActivityID,
			"hours", p.Hours,
		)
		return nil
	}
}

type validator interface {
	Validate() error
}

func decodePayload[T validator](env *model.EventEnvelope, dst T) error {
	if err := model.DecodePayload(env.Data, dst); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodePermanent, "malformed event payload")
	}
	if err := dst.Validate(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodePermanent, "invalid event payload")
	}
	return nil
}
