package realtime

import (
	"time"

	"github.com/noah-isme/sma-dismissal-api/internal/models"
)

// Event names pushed to subscribers.
const (
	EventQueueUpdated           = "queue:updated"
	EventStudentCheckedIn       = "student:checked-in"
	EventStudentCalled          = "student:called"
	EventStudentReleased        = "student:released"
	EventStudentDismissed       = "student:dismissed"
	EventDismissalStarted       = "dismissal:started"
	EventSessionUpdated         = "session:updated"
	EventChangeRequestSubmitted = "change-request:submitted"
	EventChangeRequestResolved  = "change-request:resolved"
)

// Queue actions carried by queue:updated.
const (
	ActionCheckedIn = "checked-in"
	ActionCalled    = "called"
	ActionReleased  = "released"
	ActionDismissed = "dismissed"
	ActionHeld      = "held"
	ActionDelayed   = "delayed"
)

// studentEvents maps queue actions to their per-student event. Hold and
// delay have none.
var studentEvents = map[string]string{
	ActionCheckedIn: EventStudentCheckedIn,
	ActionCalled:    EventStudentCalled,
	ActionReleased:  EventStudentReleased,
	ActionDismissed: EventStudentDismissed,
}

// Message is the frame written to websocket clients.
type Message struct {
	Event  string      `json:"event"`
	Data   interface{} `json:"data"`
	SentAt time.Time   `json:"sentAt"`
}

// Delivery pairs a message with its audience.
type Delivery struct {
	Topic   Topic
	Message Message
}

// QueueChange is a committed mutation of one or more queue entries.
type QueueChange struct {
	Action   string
	SchoolID string
	Entries  []models.QueueEntry
	// Batch forces the entries form of queue:updated even for one entry.
	Batch bool
	At    time.Time
}

// QueueUpdate is the payload of queue:updated.
type QueueUpdate struct {
	Action  string              `json:"action"`
	Entry   *models.QueueEntry  `json:"entry,omitempty"`
	Entries []models.QueueEntry `json:"entries,omitempty"`
}

// Route maps a queue change to its deliveries: the office topic gets
// queue:updated for every change and the per-student event for each entry;
// the homeroom teacher and the guardian get the per-student event when known.
func Route(change QueueChange) []Delivery {
	if len(change.Entries) == 0 || change.SchoolID == "" {
		return nil
	}
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	update := QueueUpdate{Action: change.Action}
	if len(change.Entries) == 1 && !change.Batch {
		entry := change.Entries[0]
		update.Entry = &entry
	} else {
		update.Entries = change.Entries
	}

	office := OfficeTopic{SchoolID: change.SchoolID}
	deliveries := []Delivery{{
		Topic:   office,
		Message: Message{Event: EventQueueUpdated, Data: update, SentAt: at},
	}}

	event, named := studentEvents[change.Action]
	if !named {
		return deliveries
	}
	for i := range change.Entries {
		entry := change.Entries[i]
		msg := Message{Event: event, Data: entry, SentAt: at}
		deliveries = append(deliveries, Delivery{Topic: office, Message: msg})
		if entry.HomeroomID != nil && *entry.HomeroomID != "" {
			deliveries = append(deliveries, Delivery{
				Topic:   TeacherTopic{SchoolID: change.SchoolID, HomeroomID: *entry.HomeroomID},
				Message: msg,
			})
		}
		if entry.GuardianID != nil && *entry.GuardianID != "" {
			deliveries = append(deliveries, Delivery{
				Topic:   ParentTopic{SchoolID: change.SchoolID, GuardianID: *entry.GuardianID},
				Message: msg,
			})
		}
	}
	return deliveries
}

// RouteSession delivers a session event to everyone in the school.
func RouteSession(event string, session models.Session, at time.Time) []Delivery {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return []Delivery{{
		Topic:   SchoolTopic{SchoolID: session.SchoolID},
		Message: Message{Event: event, Data: session, SentAt: at},
	}}
}

// RouteChangeRequest delivers submissions to the office and resolutions to
// the office and the requesting parent.
func RouteChangeRequest(event string, req models.ChangeRequest, at time.Time) []Delivery {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	msg := Message{Event: event, Data: req, SentAt: at}
	deliveries := []Delivery{{Topic: OfficeTopic{SchoolID: req.SchoolID}, Message: msg}}
	if event == EventChangeRequestResolved && req.RequesterID != "" {
		deliveries = append(deliveries, Delivery{
			Topic:   ParentTopic{SchoolID: req.SchoolID, GuardianID: req.RequesterID},
			Message: msg,
		})
	}
	return deliveries
}
