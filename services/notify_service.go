package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"fuelqueue-system/config"
	"fuelqueue-system/utils"
)

// NotifyService sends the call-to-station message through the SMS
// gateway channel. Delivery failures are logged and reported to the
// caller as a boolean only; a promotion is never rolled back because a
// message did not go out.
type NotifyService struct {
	pn      *pubnub.PubNub
	breaker *utils.CircuitBreaker

	channel       string
	countryPrefix string
}

func NewNotifyService(pn *pubnub.PubNub, cfg *config.Config) *NotifyService {
	return &NotifyService{
		pn:            pn,
		breaker:       utils.NewCircuitBreaker("sms-gateway"),
		channel:       cfg.SMSChannel,
		countryPrefix: cfg.DefaultCountryPrefix,
	}
}

// Notify formats the fixed call-up message for stationName and publishes
// it to the gateway channel addressed to phone. Returns whether the
// publish succeeded.
func (s *NotifyService) Notify(ctx context.Context, phone, stationName string) bool {
	if s.pn == nil {
		slog.Warn("sms gateway not configured, notification skipped", "station", stationName)
		return false
	}

	to := utils.NormalizePhone(phone, s.countryPrefix)
	if to == "" {
		slog.Warn("empty destination number, notification skipped", "station", stationName)
		return false
	}

	body := fmt.Sprintf("Fuel queue: it is your turn, please proceed to %s.", stationName)

	err := s.breaker.Execute(ctx, func() error {
		return s.publish(to, body)
	})
	if err != nil {
		if errors.Is(err, utils.ErrCircuitOpen) || errors.Is(err, utils.ErrTooManyRequests) {
			slog.Warn("sms gateway circuit open, notification dropped", "to", to)
		} else {
			slog.Warn("sms send failed", "to", to, "error", err)
		}
		return false
	}

	slog.Info("sms queued for delivery", "to", to, "station", stationName)
	return true
}

func (s *NotifyService) publish(to, body string) error {
	_, st, err := s.pn.Publish().
		Channel(s.channel).
		Message(map[string]any{
			"to":   to,
			"body": body,
		}).
		Execute()
	if err != nil {
		return err
	}
	if st.Error != nil {
		return fmt.Errorf("publish rejected with status %d", st.StatusCode)
	}
	return nil
}
