package notify

import (
	"context"
	"log"

	"github.com/avelora/skybooking/internal/kafka"
)

// Notifier turns consumed booking events into user-facing notifications.
// Delivery is a stand-in: events are logged where a mail or push integration
// would hook in.
type Notifier struct{}

func NewNotifier() *Notifier {
	return &Notifier{}
}

func (n *Notifier) Notify(ctx context.Context, event kafka.BookingEvent) error {
	log.Printf("notify user %d: %s for flight %d seat %s (ref %s)", event.UserID, event.Type, event.FlightID, event.SeatID, event.Ref)
	return nil
}
