package agent

import (
	"errors"
	"strings"

	"github.com/nextlevelbuilder/autoreply/internal/channels/evolution"
	"github.com/nextlevelbuilder/autoreply/internal/store"
)

// ChannelWhatsApp is the only channel name written to notification logs today.
const ChannelWhatsApp = "whatsapp"

// Run statuses. The first four mirror notification log statuses.
const (
	StatusSent              = store.NotificationSent
	StatusFailed            = store.NotificationFailed
	StatusPendingManualSend = store.NotificationPendingManualSend
	StatusHandoffRequired   = store.NotificationHandoffRequired
	StatusSkipped           = "skipped"
)

// InboundEvent is one inbound message as received from the channel webhook.
type InboundEvent struct {
	ConversationID  string `json:"conversationId"`
	MessageText     string `json:"messageText"`
	SenderAddress   string `json:"senderAddress"`
	ReceiverAddress string `json:"receiverAddress,omitempty"`
	OwnerID         string `json:"ownerId,omitempty"`
	OwnerName       string `json:"ownerName,omitempty"`
	RecordID        string `json:"recordId,omitempty"`
	ContactType     string `json:"contactType,omitempty"` // carrier | customer | unknown
	CustomerID      string `json:"customerId,omitempty"`
	InstanceKey     string `json:"instanceKey,omitempty"`
}

// Validate checks the fields every run needs.
func (e *InboundEvent) Validate() error {
	var errs []error
	if strings.TrimSpace(e.ConversationID) == "" {
		errs = append(errs, errors.New("conversationId is required"))
	}
	if strings.TrimSpace(e.MessageText) == "" {
		errs = append(errs, errors.New("messageText is required"))
	}
	if strings.TrimSpace(e.SenderAddress) == "" {
		errs = append(errs, errors.New("senderAddress is required"))
	}
	switch e.ContactType {
	case "", store.ContactCarrier, store.ContactCustomer, store.ContactUnknown:
	default:
		errs = append(errs, errors.New("contactType must be carrier, customer or unknown"))
	}
	return errors.Join(errs...)
}

func (e *InboundEvent) contactType() string {
	if e.ContactType == "" {
		return store.ContactUnknown
	}
	return e.ContactType
}

// routingKey selects the sending instance: an explicit instance key wins over
// the receiving address.
func (e *InboundEvent) routingKey() string {
	if e.InstanceKey != "" {
		return e.InstanceKey
	}
	return e.ReceiverAddress
}

// Result describes what a pipeline run did. It is returned for every run that
// did not fail with a ConfigurationError or ProviderError.
type Result struct {
	Status         string              `json:"status"`
	DeliveryStatus string              `json:"delivery_status,omitempty"`
	Reply          string              `json:"reply,omitempty"`
	Persona        string              `json:"persona,omitempty"`
	PersonaSource  string              `json:"persona_source,omitempty"`
	Model          string              `json:"model,omitempty"`
	Handoff        bool                `json:"handoff,omitempty"`
	MatchedPhrases []string            `json:"matched_phrases,omitempty"`
	OrderNumber    string              `json:"order_number,omitempty"`
	KnowledgeUsed  int                 `json:"knowledge_items_used"`
	HistoryLength  int                 `json:"history_length"`
	ProcessingMs   int64               `json:"processing_ms"`
	Attempts       []evolution.Attempt `json:"attempts,omitempty"`
	Warnings       []string            `json:"warnings,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// logStatus maps a delivery outcome onto the notification log status.
func logStatus(o evolution.Outcome) string {
	switch o.Status {
	case evolution.StatusSent:
		return StatusSent
	case evolution.StatusPendingManualSend:
		return StatusPendingManualSend
	default:
		return StatusFailed
	}
}
