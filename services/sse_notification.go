package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// StreamNotificationsSSE streams achievement notifications for the
// authenticated account as they are created. The stream is at-least-once:
// a reconnecting client may see the same notification id again, and dedups
// against the durable shown flag via MarkShown.
func (s *NotificationService) StreamNotificationsSSE(c *fiber.Ctx) error {
	accountID := c.Locals("account_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		// Zero cursor: the first tick delivers every unshown notification,
		// however old, regardless of what the client already acknowledged.
		var lastMaxCreatedAt time.Time

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				pending, err := s.pendingSince(accountID, lastMaxCreatedAt)
				if err != nil {
					log.Printf("SSE query error for account %s: %v", accountID, err)
					continue
				}

				if len(pending) == 0 {
					continue
				}

				lastMaxCreatedAt = pending[len(pending)-1].CreatedAt

				for _, n := range pending {
					payload, _ := json.Marshal(n)
					fmt.Fprintf(w, "event: notification\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				// Client closed connection
				return
			}
		}
	})

	return nil
}
