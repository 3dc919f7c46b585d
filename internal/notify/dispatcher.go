package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"localhire/internal/events"
	"localhire/internal/metrics"

	"github.com/rs/zerolog"
)

// Dispatcher turns appointment events into notifications. Delivery runs on
// background goroutines; failures are logged and never reach the caller.
type Dispatcher struct {
	mailer     *Mailer
	telegram   *TelegramNotifier
	adminEmail string
	logger     *zerolog.Logger
	wg         sync.WaitGroup
}

func NewDispatcher(mailer *Mailer, telegram *TelegramNotifier, adminEmail string, logger *zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		mailer:     mailer,
		telegram:   telegram,
		adminEmail: adminEmail,
		logger:     logger,
	}
}

func (d *Dispatcher) Register(bus *events.EventBus) {
	for _, t := range []string{
		events.EventAppointmentBooked,
		events.EventAppointmentProofSubmitted,
		events.EventAppointmentApproved,
		events.EventAppointmentNeedsRevision,
		events.EventAppointmentCancelled,
		events.EventAppointmentRated,
	} {
		bus.Subscribe(t, d.handle)
	}
}

func (d *Dispatcher) handle(ev *events.Event) error {
	var p events.AppointmentEventPayload
	if err := ev.Decode(&p); err != nil {
		d.logger.Error().Err(err).Str("event", ev.Type).Msg("notify: decode payload")
		return nil
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.deliver(ev.Type, p)
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(eventType string, p events.AppointmentEventPayload) {
	log := d.logger.With().Str("event", eventType).Str("appointment_id", p.AppointmentID).Logger()
	when := fmt.Sprintf("%s at %s", strings.ReplaceAll(p.SlotDate, "_", "/"), p.SlotTime)

	switch eventType {
	case events.EventAppointmentBooked:
		d.mail(&log, Mail{
			To:      nonEmpty(p.ClientEmail),
			Subject: "Your appointment is booked",
			Text:    fmt.Sprintf("Hi %s,\n\nYour appointment with %s on %s is booked. Amount: %.2f.", p.ClientName, orDefault(p.ContractorName, "your contractor"), when, p.Amount),
		})
		d.mail(&log, Mail{
			To:      nonEmpty(p.ContractorEmail),
			Subject: "New appointment",
			Text:    fmt.Sprintf("%s booked you on %s.", orDefault(p.ClientName, "A client"), when),
		})
	case events.EventAppointmentProofSubmitted:
		d.alert(&log, fmt.Sprintf("Completion proof submitted for appointment %s (%s, %s). Review: %s", p.AppointmentID, orDefault(p.ContractorName, p.ContractorID), when, p.ProofImage))
		d.mail(&log, Mail{
			To:      nonEmpty(d.adminEmail),
			Subject: "Completion proof awaiting review",
			Text:    fmt.Sprintf("Appointment %s on %s has a new completion proof: %s", p.AppointmentID, when, p.ProofImage),
		})
	case events.EventAppointmentApproved:
		d.mail(&log, Mail{
			To:      nonEmpty(p.ClientEmail),
			Subject: "Your appointment is completed",
			Text:    fmt.Sprintf("Hi %s,\n\nYour appointment on %s was marked completed. You can now rate %s.", p.ClientName, when, orDefault(p.ContractorName, "your contractor")),
		})
	case events.EventAppointmentNeedsRevision:
		d.mail(&log, Mail{
			To:      nonEmpty(p.ContractorEmail),
			Subject: "Completion proof needs revision",
			Text:    fmt.Sprintf("The proof for appointment %s on %s was not accepted. Please upload a new one.", p.AppointmentID, when),
		})
	case events.EventAppointmentCancelled:
		d.mail(&log, Mail{
			To:      nonEmpty(p.ClientEmail, p.ContractorEmail),
			Subject: "Appointment cancelled",
			Text:    fmt.Sprintf("The appointment %s on %s was cancelled.", p.AppointmentID, when),
		})
	case events.EventAppointmentRated:
		log.Debug().Int("stars", p.Stars).Msg("notify: rating recorded")
	}
}

func (d *Dispatcher) mail(log *zerolog.Logger, m Mail) {
	if len(m.To) == 0 || d.mailer == nil {
		return
	}
	if err := d.mailer.Send(m); err != nil {
		metrics.IncNotifyFailure("email")
		log.Error().Err(err).Strs("to", m.To).Msg("notify: email failed")
	}
}

func (d *Dispatcher) alert(log *zerolog.Logger, text string) {
	if d.telegram == nil {
		return
	}
	if err := d.telegram.NotifyAdmins(text); err != nil {
		metrics.IncNotifyFailure("telegram")
		log.Error().Err(err).Msg("notify: telegram failed")
	}
}

func nonEmpty(addrs ...string) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a != "" {
			out = append(out, a)
		}
	}
	return out
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
