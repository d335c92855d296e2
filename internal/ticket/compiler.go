package ticket

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"patrol-service/internal/cart"
	"patrol-service/internal/domain/patrol"
)

var ErrEmptyCart = errors.New("cart has no offenses")

// Compile freezes the cart contents into a ticket. The offenses are copied, so
// the cart can be cleared or reused right away; the total is summed once here
// and never recomputed.
func Compile(vrn string, officer patrol.Officer, offender patrol.Offender, c *cart.Cart, now time.Time) (*patrol.Ticket, error) {
	summary := c.Summary()
	if len(summary.Items) == 0 {
		return nil, ErrEmptyCart
	}

	return &patrol.Ticket{
		ID:        uuid.New(),
		VRN:       strings.TrimSpace(vrn),
		Officer:   officer,
		Offender:  offender,
		Offenses:  summary.Items,
		Total:     summary.Total,
		CreatedAt: now,
	}, nil
}
