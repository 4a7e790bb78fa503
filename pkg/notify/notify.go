// Package notify carries titled user notifications out of the orchestrators.
package notify

import (
	"sync"

	"go.uber.org/zap"
)

// Variant selects how a notification is presented.
type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// Notification is a single user-facing message.
type Notification struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Variant     Variant `json:"variant"`
}

// Notifier receives notifications emitted by the orchestrators.
type Notifier interface {
	Notify(notification Notification)
}

// Info builds a default-variant notification.
func Info(title string, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDefault}
}

// Failure builds a destructive-variant notification.
func Failure(title string, description string) Notification {
	return Notification{Title: title, Description: description, Variant: VariantDestructive}
}

// LogNotifier writes notifications to a zap logger.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a LogNotifier; a nil logger discards output.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs destructive notifications at warn level and the rest at info.
func (notifier *LogNotifier) Notify(notification Notification) {
	fields := []zap.Field{
		zap.String("title", notification.Title),
		zap.String("description", notification.Description),
	}
	if notification.Variant == VariantDestructive {
		notifier.logger.Warn("notification", fields...)
		return
	}
	notifier.logger.Info("notification", fields...)
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu            sync.Mutex
	notifications []Notification
}

// Notify appends notification.
func (recorder *Recorder) Notify(notification Notification) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	recorder.notifications = append(recorder.notifications, notification)
}

// Notifications returns a copy of everything recorded so far.
func (recorder *Recorder) Notifications() []Notification {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	return append([]Notification(nil), recorder.notifications...)
}

// Last returns the most recent notification.
func (recorder *Recorder) Last() (Notification, bool) {
	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.notifications) == 0 {
		return Notification{}, false
	}
	return recorder.notifications[len(recorder.notifications)-1], true
}

// Fanout delivers each notification to every wrapped Notifier.
type Fanout []Notifier

// Notify forwards notification to each non-nil notifier.
func (fanout Fanout) Notify(notification Notification) {
	for _, notifier := range fanout {
		if notifier != nil {
			notifier.Notify(notification)
		}
	}
}
