package services

// Notice kinds pushed to connected UI clients.
const (
	NoticeApproval        = "approval"
	NoticeUnseenBadge     = "unseenBadge"
	NoticeDispatchSummary = "dispatchSummary"
	NoticeFeedUpdated     = "feedUpdated"
	NoticeError           = "error"
)

// Notifier is the outbound push surface of the engine. The websocket
// handler implements it; tests use a recording fake.
type Notifier interface {
	Notify(kind, text string)
}

// NopNotifier drops every notice. Used when no UI is attached.
type NopNotifier struct{}

func (NopNotifier) Notify(kind, text string) {}
