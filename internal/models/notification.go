package models

import "time"

// NotificationType selects the applicant message template.
type NotificationType string

const (
	NotificationInterviewScheduled NotificationType = "interview_scheduled"
	NotificationRejected           NotificationType = "application_rejected"
	NotificationReadyForRelease    NotificationType = "ready_for_release"
)

// Notice is a request to tell the applicant about their application.
type Notice struct {
	Type        NotificationType
	Application *Application
}

// Notification is the log record of one delivery attempt on one channel.
type Notification struct {
	ID            string           `json:"id"`
	ApplicationID string           `json:"applicationId"`
	Type          NotificationType `json:"type"`
	Channel       string           `json:"channel"`   // "email", "sms"
	Recipient     string           `json:"recipient"` // address or phone number
	Status        string           `json:"status"`    // "sent", "failed", "disabled"
	Error         string           `json:"error,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
}

// Notification delivery statuses.
const (
	DeliverySent     = "sent"
	DeliveryFailed   = "failed"
	DeliveryDisabled = "disabled"
)

// Notification channels.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
