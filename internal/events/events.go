package events

import (
	"encoding/json"
	"sync"
	"time"

	"localhire/internal/models"
)

const (
	EventAppointmentBooked         = "appointment_booked"
	EventAppointmentProofSubmitted = "appointment_proof_submitted"
	EventAppointmentApproved       = "appointment_approved"
	EventAppointmentNeedsRevision  = "appointment_needs_revision"
	EventAppointmentCancelled      = "appointment_cancelled"
	EventAppointmentRated          = "appointment_rated"
)

// AppointmentEventPayload is the snapshot handed to event consumers.
type AppointmentEventPayload struct {
	AppointmentID   string                   `json:"appointment_id"`
	ClientID        string                   `json:"client_id"`
	ClientName      string                   `json:"client_name"`
	ClientEmail     string                   `json:"client_email"`
	ContractorID    string                   `json:"contractor_id"`
	ContractorName  string                   `json:"contractor_name,omitempty"`
	ContractorEmail string                   `json:"contractor_email,omitempty"`
	SlotDate        string                   `json:"slot_date"`
	SlotTime        string                   `json:"slot_time"`
	Amount          float64                  `json:"amount"`
	Status          models.AppointmentStatus `json:"status"`
	ProofImage      string                   `json:"proof_image,omitempty"`
	Stars           int                      `json:"stars,omitempty"`
	ChangedBy       string                   `json:"changed_by,omitempty"`
	ChangedByRole   string                   `json:"changed_by_role,omitempty"`
}

func NewAppointmentPayload(a *models.Appointment) AppointmentEventPayload {
	return AppointmentEventPayload{
		AppointmentID: a.ID,
		ClientID:      a.ClientID,
		ClientName:    a.ClientName,
		ClientEmail:   a.ClientEmail,
		ContractorID:  a.ContractorID,
		SlotDate:      a.SlotDate,
		SlotTime:      a.SlotTime,
		Amount:        a.Amount,
		Status:        a.Status,
		ProofImage:    a.ProofImage,
	}
}

type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

type EventHandler func(event *Event) error

// EventBus is an in-process pub/sub. Handlers run synchronously in
// subscription order; a failing handler does not stop the others.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]EventHandler
	onError     func(event *Event, err error)
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// OnError sets a hook called with every handler error.
func (b *EventBus) OnError(fn func(event *Event, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onError = fn
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	onError := b.onError
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && onError != nil {
			onError(event, err)
		}
	}
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
