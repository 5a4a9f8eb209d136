package workflow

import "context"

// Ticket identifies an issue created in the external tracker.
type Ticket struct {
	ID  string
	URL string
}

// TicketInfo is the tracker-side view of a ticket used for status refresh.
type TicketInfo struct {
	State  string
	Labels []string
}

// TicketTracker is the issue-tracker contract the workflow depends on.
type TicketTracker interface {
	IsConfigured() bool
	CreateTicket(ctx context.Context, title, body string, labels []string) (Ticket, error)
	GetTicket(ctx context.Context, id string) (TicketInfo, error)
	AddComment(ctx context.Context, id, text string) error
}

// TicketLabeler is implemented by trackers that can tag tickets. Manual
// transitions to a labelled status are mirrored onto the ticket.
type TicketLabeler interface {
	AddLabels(ctx context.Context, id string, labels []string) error
}
