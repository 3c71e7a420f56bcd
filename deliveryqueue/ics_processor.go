package deliveryqueue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/AzielCF/chatbot-platform/domain"
)

// icsTimestampLayout matches the "YYYYMMDDTHHMMSS" local-time format
// domain.ActionableItem.TimestampDeadline carries.
const icsTimestampLayout = "20060102T150405"

// icalProductID identifies the VCALENDAR PRODID field.
const icalProductID = "-//chatbot-platform//group-tracking//EN"

// ICSActionableItemProcessor renders an actionable item as a visual
// card caption plus a single-VEVENT iCalendar attachment.
type ICSActionableItemProcessor struct{}

func (ICSActionableItemProcessor) Process(ctx context.Context, job domain.DeliveryJob, session Session) error {
	item, err := decodeActionableItem(job.Content)
	if err != nil {
		return fmt.Errorf("deliveryqueue: decoding ics job %s: %w", job.MessageID, err)
	}

	caption := renderVisualCard(item)
	ics, err := renderICS(item)
	if err != nil {
		return fmt.Errorf("deliveryqueue: rendering ics for job %s: %w", job.MessageID, err)
	}

	_, err = session.SendFile(ctx, session.UserJID(), ics, "event.ics", "text/calendar", caption)
	return err
}

// decodeActionableItem round-trips job.Content through BSON so it
// works whether Content arrived as a live domain.ActionableItem (the
// same process that enqueued it) or as the bson.D/map Mongo's driver
// produces for an `any`-typed field on read-back.
func decodeActionableItem(content any) (domain.ActionableItem, error) {
	var item domain.ActionableItem
	if already, ok := content.(domain.ActionableItem); ok {
		return already, nil
	}
	raw, err := bson.Marshal(content)
	if err != nil {
		return item, err
	}
	err = bson.Unmarshal(raw, &item)
	return item, err
}

func renderVisualCard(item domain.ActionableItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n", item.TaskTitle)
	if item.TaskDescription != "" {
		fmt.Fprintf(&b, "%s\n", item.TaskDescription)
	}
	if item.TextDeadline != "" {
		fmt.Fprintf(&b, "\nDeadline: %s\n", item.TextDeadline)
	}
	if item.GroupDisplayName != "" {
		fmt.Fprintf(&b, "From: %s\n", item.GroupDisplayName)
	}
	return strings.TrimSpace(b.String())
}

func renderICS(item domain.ActionableItem) ([]byte, error) {
	dtend, err := time.Parse(icsTimestampLayout, item.TimestampDeadline)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp_deadline %q: %w", item.TimestampDeadline, err)
	}
	dtstart := dtend.Add(-1 * time.Hour)

	var b strings.Builder
	b.WriteString("BEGIN:VCALENDAR\r\n")
	b.WriteString("VERSION:2.0\r\n")
	fmt.Fprintf(&b, "PRODID:%s\r\n", icalProductID)
	b.WriteString("METHOD:PUBLISH\r\n")
	b.WriteString("BEGIN:VEVENT\r\n")
	fmt.Fprintf(&b, "UID:%s@%s\r\n", uuid.NewString(), "chatbot-platform")
	fmt.Fprintf(&b, "DTSTAMP:%s\r\n", time.Now().UTC().Format(icsTimestampLayout)+"Z")
	fmt.Fprintf(&b, "DTSTART:%s\r\n", dtstart.Format(icsTimestampLayout))
	fmt.Fprintf(&b, "DTEND:%s\r\n", dtend.Format(icsTimestampLayout))
	fmt.Fprintf(&b, "SUMMARY:%s\r\n", escapeICSText(item.TaskTitle))
	if item.TaskDescription != "" {
		fmt.Fprintf(&b, "DESCRIPTION:%s\r\n", escapeICSText(item.TaskDescription))
	}
	b.WriteString("STATUS:CONFIRMED\r\n")
	b.WriteString("END:VEVENT\r\n")
	b.WriteString("END:VCALENDAR\r\n")
	return []byte(b.String()), nil
}

// escapeICSText escapes the four characters RFC 5545 §3.3.11 requires
// backslash-escaped in TEXT values: backslash, comma, semicolon, and
// newline (as the literal "\n").
func escapeICSText(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`,`, `\,`,
		`;`, `\;`,
		"\n", `\n`,
	)
	return r.Replace(s)
}
