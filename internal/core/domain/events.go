package domain

// SyncEvent is a normalized tag derived from a webhook's (event, action)
// pair, used to drive reactive sync logic.
type SyncEvent string

const (
	EventPush SyncEvent = "push"

	EventReleasePublished SyncEvent = "release.published"
	EventReleaseUpdated   SyncEvent = "release.updated"
	EventReleaseDeleted   SyncEvent = "release.deleted"

	EventRepoCreated    SyncEvent = "repository.created"
	EventRepoUpdated    SyncEvent = "repository.updated"
	EventRepoDeleted    SyncEvent = "repository.deleted"
	EventRepoPublicized SyncEvent = "repository.publicized"
	EventRepoPrivatized SyncEvent = "repository.privatized"

	EventStarCreated SyncEvent = "star.created"
	EventStarDeleted SyncEvent = "star.deleted"

	EventFork SyncEvent = "fork"

	EventIssuesOpened SyncEvent = "issues.opened"
	EventIssuesClosed SyncEvent = "issues.closed"

	EventPROpened SyncEvent = "pull_request.opened"
	EventPRClosed SyncEvent = "pull_request.closed"
	EventPRMerged SyncEvent = "pull_request.merged"

	EventWatchStarted SyncEvent = "watch.started"
	EventWatchStopped SyncEvent = "watch.stopped"
)

// syncEventTable maps webhook (event, action) pairs to sync events.
// Actions not listed here are ignored, not errors.
var syncEventTable = map[string]map[string]SyncEvent{
	"push": {"": EventPush},
	"release": {
		"published": EventReleasePublished,
		"edited":    EventReleaseUpdated,
		"deleted":   EventReleaseDeleted,
	},
	"repository": {
		"created":    EventRepoCreated,
		"edited":     EventRepoUpdated,
		"deleted":    EventRepoDeleted,
		"publicized": EventRepoPublicized,
		"privatized": EventRepoPrivatized,
	},
	"star": {
		"created": EventStarCreated,
		"deleted": EventStarDeleted,
	},
	"fork": {"": EventFork},
	"issues": {
		"opened": EventIssuesOpened,
		"closed": EventIssuesClosed,
	},
	"pull_request": {
		"opened": EventPROpened,
		"closed": EventPRClosed,
		"merged": EventPRMerged,
	},
	"watch": {
		"started": EventWatchStarted,
		"stopped": EventWatchStopped,
	},
}

// MapWebhookEvent resolves a webhook event type and action to a sync event.
// The second return is false for unmapped combinations, which callers
// silently ignore.
func MapWebhookEvent(eventType, action string) (SyncEvent, bool) {
	actions, ok := syncEventTable[eventType]
	if !ok {
		return "", false
	}
	// pull_request closed-with-merge is reported as action "closed" with a
	// merged flag; callers pass action "merged" after inspecting the payload.
	ev, ok := actions[action]
	if !ok && action != "" {
		return "", false
	}
	if !ok {
		ev, ok = actions[""]
	}
	return ev, ok
}

// WebhookDelivery is a parsed inbound webhook envelope.
type WebhookDelivery struct {
	// DeliveryID is the hosting service's unique delivery identifier.
	DeliveryID string `json:"delivery_id"`

	// EventType is the raw event header value (push, release, ...).
	EventType string `json:"event_type"`

	// Action is the envelope's action field, empty for action-less events.
	Action string `json:"action"`

	// RepoFullName is "owner/repo" from the envelope's repository object.
	RepoFullName string `json:"repo_full_name"`
}
