// Package notify delivers email and topic events on a best-effort basis.
//
// Dispatcher never returns an error. It hands back a Result that callers are
// expected to drop: a failed notification is logged, counted and abandoned,
// and must never undo or block the write that triggered it.
package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Event is one message published on the admin topic.
type Event struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
	Region  string `json:"region,omitempty"`
}

type Mailer interface {
	Send(ctx context.Context, m Message) error
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Counter records notification outcomes per channel.
type Counter interface {
	Notification(channel, outcome string)
}

const (
	ChannelEmail = "email"
	ChannelTopic = "topic"

	OutcomeSent   = "sent"
	OutcomeFailed = "failed"
)

// Result reports what happened to one notification.
type Result struct {
	Channel string
	Err     error
}

func (r Result) Delivered() bool { return r.Err == nil }

type Dispatcher struct {
	mail    Mailer
	pub     Publisher
	log     logrus.FieldLogger
	count   Counter
	timeout time.Duration
	region  string
}

type Option func(*Dispatcher)

func WithCounter(c Counter) Option { return func(d *Dispatcher) { d.count = c } }
func WithTimeout(t time.Duration) Option { return func(d *Dispatcher) { d.timeout = t } }
func WithRegion(region string) Option { return func(d *Dispatcher) { d.region = region } }

func NewDispatcher(mail Mailer, pub Publisher, log logrus.FieldLogger, opts ...Option) *Dispatcher {
	d := &Dispatcher{mail: mail, pub: pub, log: log}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Email sends m and swallows any failure.
func (d *Dispatcher) Email(ctx context.Context, m Message) Result {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	err := d.mail.Send(ctx, m)
	return d.finish(ChannelEmail, err, logrus.Fields{"to": m.To, "subject": m.Subject})
}

// Publish sends e to the topic and swallows any failure.
func (d *Dispatcher) Publish(ctx context.Context, e Event) Result {
	ctx, cancel := d.bound(ctx)
	defer cancel()
	if e.Region == "" {
		e.Region = d.region
	}
	err := d.pub.Publish(ctx, e)
	return d.finish(ChannelTopic, err, logrus.Fields{"subject": e.Subject})
}

// bound detaches from the request so a client hang-up does not cancel delivery.
func (d *Dispatcher) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if d.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.timeout)
}

func (d *Dispatcher) finish(channel string, err error, f logrus.Fields) Result {
	outcome := OutcomeSent
	if err != nil {
		outcome = OutcomeFailed
		d.log.WithFields(f).WithField("channel", channel).WithError(err).Error("notification failed")
	}
	if d.count != nil {
		d.count.Notification(channel, outcome)
	}
	return Result{Channel: channel, Err: err}
}
