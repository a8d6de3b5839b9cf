// Package notify carries transient user-facing notices (the toasts of a UI)
// from the data layer to whatever presents them.
package notify

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient notice.
type Notification struct {
	Level   Level
	Message string
	Err     error
	At      time.Time
}

// Notifier presents notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// Error builds an error notice.
func Error(message string, err error) Notification {
	return Notification{Level: LevelError, Message: message, Err: err, At: time.Now()}
}

// Success builds a success notice.
func Success(message string) Notification {
	return Notification{Level: LevelSuccess, Message: message, At: time.Now()}
}

// Func adapts a function to Notifier.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Channel buffers notifications for a consumer. When the buffer is full new
// notifications are dropped.
type Channel struct {
	ch chan Notification
}

func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan Notification, buffer)}
}

func (c *Channel) Notify(n Notification) {
	select {
	case c.ch <- n:
	default:
		log.WithField("message", n.Message).Debug("notification dropped")
	}
}

// C returns the receive side.
func (c *Channel) C() <-chan Notification { return c.ch }

// Log writes notifications to a logrus entry.
type Log struct {
	Entry *log.Entry
}

func (l Log) Notify(n Notification) {
	entry := l.Entry
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	if n.Level == LevelError {
		entry.WithError(n.Err).Error(n.Message)
		return
	}
	entry.Info(n.Message)
}

// Recorder keeps every notification. Safe for concurrent use.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Multi fans a notification out to several notifiers.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, x := range notifiers {
			x.Notify(n)
		}
	})
}
