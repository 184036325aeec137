// Package watch streams task activity from Redis to a terminal.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dyluth/projecthub/pkg/hub"
	"github.com/dyluth/projecthub/pkg/hubstate"
)

// OutputFormat selects how streamed events are written.
type OutputFormat string

const (
	// OutputFormatDefault is one human-readable line per event.
	OutputFormatDefault OutputFormat = "default"

	// OutputFormatJSON is line-delimited JSON.
	OutputFormatJSON OutputFormat = "json"
)

// ActivitySource opens activity subscriptions. *hubstate.Client implements it.
type ActivitySource interface {
	SubscribeActivity(ctx context.Context) (*hubstate.Subscription[hubstate.ActivityEvent], error)
}

// Options controls StreamActivity.
type Options struct {
	Format    OutputFormat
	ProjectID string // empty streams every project
}

type formatter interface {
	FormatActivity(e *hubstate.ActivityEvent) error
}

func newFormatter(format OutputFormat, w io.Writer) (formatter, error) {
	switch format {
	case OutputFormatDefault, "":
		return &defaultFormatter{writer: w}, nil
	case OutputFormatJSON:
		return &jsonFormatter{writer: w}, nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// StreamActivity writes activity events to w until ctx is cancelled or the
// subscription ends. Undecodable messages are reported on errw and skipped.
func StreamActivity(ctx context.Context, src ActivitySource, opts Options, w, errw io.Writer) error {
	f, err := newFormatter(opts.Format, w)
	if err != nil {
		return err
	}

	sub, err := src.SubscribeActivity(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to activity: %w", err)
	}
	defer sub.Close()

	events, errs := sub.Events(), sub.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			if opts.ProjectID != "" && e.ProjectID != opts.ProjectID {
				continue
			}
			if err := f.FormatActivity(e); err != nil {
				return err
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			fmt.Fprintf(errw, "⚠️  Skipping malformed event: %v\n", err)
		}
	}
}

type defaultFormatter struct {
	writer io.Writer
}

// FormatActivity writes "[15:04:05] 🔀 Status Changed: Dev User on "Title" (id8): details".
func (f *defaultFormatter) FormatActivity(e *hubstate.ActivityEvent) error {
	who := e.UserName
	if who == "" {
		who = shortID(e.UserID)
	}
	line := fmt.Sprintf("[%s] %s %s: %s on %q (%s)",
		e.CreatedAt.Local().Format("15:04:05"), icon(e.Action), title(e.Action), who, e.TaskTitle, shortID(e.TaskID))
	if e.Details != "" {
		line += ": " + e.Details
	}
	_, err := fmt.Fprintln(f.writer, line)
	return err
}

type jsonFormatter struct {
	writer io.Writer
}

func (f *jsonFormatter) FormatActivity(e *hubstate.ActivityEvent) error {
	data, err := json.Marshal(struct {
		Event string                  `json:"event"`
		Data  *hubstate.ActivityEvent `json:"data"`
	}{"activity", e})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	_, err = fmt.Fprintf(f.writer, "%s\n", data)
	return err
}

func icon(a hub.Action) string {
	switch a {
	case hub.ActionTaskCreated:
		return "✨"
	case hub.ActionStatusChanged:
		return "🔀"
	case hub.ActionAssigned:
		return "👤"
	case hub.ActionCommentAdded:
		return "💬"
	case hub.ActionAttachmentAdded, hub.ActionAttachmentRemoved:
		return "📎"
	case hub.ActionLabelAdded, hub.ActionLabelRemoved:
		return "🏷️"
	default:
		return "✏️"
	}
}

var titles = map[hub.Action]string{
	hub.ActionTaskCreated:       "Task Created",
	hub.ActionTaskUpdated:       "Task Updated",
	hub.ActionStatusChanged:     "Status Changed",
	hub.ActionAssigned:          "Assigned",
	hub.ActionCommentAdded:      "Comment Added",
	hub.ActionAttachmentAdded:   "Attachment Added",
	hub.ActionAttachmentRemoved: "Attachment Removed",
	hub.ActionLabelAdded:        "Label Added",
	hub.ActionLabelRemoved:      "Label Removed",
}

func title(a hub.Action) string {
	if t, ok := titles[a]; ok {
		return t
	}
	return string(a)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
