// Package flow runs the scripted daily activity conversation.
package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/daylog/internal/delivery"
	"github.com/ashureev/daylog/internal/domain"
	"github.com/ashureev/daylog/internal/report"
	"github.com/ashureev/daylog/internal/session"
)

const (
	// DefaultReplyTimeout is how long a prompt waits for an answer.
	DefaultReplyTimeout = 180 * time.Second

	// sendTimeout bounds each outbound chat message.
	sendTimeout = 10 * time.Second
)

// Chat copy shared by every surface.
const (
	GreetingText  = "Let's log your daily activity. Reply `cancel` at any time to stop."
	CancelledText = "Activity log cancelled. Nothing was submitted."
	SubmittedText = "Report submitted."
)

// TimeoutText is sent when a prompt goes unanswered.
func TimeoutText(timeout time.Duration) string {
	return fmt.Sprintf("No reply for %s, so I've closed this log. Start again whenever you're ready.", timeout)
}

// Dispatcher delivers completed records.
type Dispatcher interface {
	Deliver(ctx context.Context, rec domain.DailyRecord) delivery.Result
}

// Announcer posts the public summary to a shared channel.
type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// Outcome is the terminal state of a flow.
type Outcome int

// Flow outcomes.
const (
	OutcomeComplete Outcome = iota
	OutcomeCancelled
	OutcomeTimedOut
	OutcomeReplaced
	OutcomeAbandoned
	OutcomeShutdown
	OutcomeUnreachable
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComplete:
		return "complete"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeReplaced:
		return "replaced"
	case OutcomeAbandoned:
		return "abandoned"
	case OutcomeShutdown:
		return "shutdown"
	case OutcomeUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// Options configures an Engine.
type Options struct {
	ReplyTimeout time.Duration
	Announcer    Announcer
	Logger       *slog.Logger
	Now          func() time.Time
	// OnFinish, if set, is called after a flow ends and its session is released.
	OnFinish func(userID string, outcome Outcome)
}

// Engine walks users through the question script.
type Engine struct {
	tracker    *session.Tracker
	steps      []Step
	dispatcher Dispatcher
	announcer  Announcer
	timeout    time.Duration
	now        func() time.Time
	logger     *slog.Logger
	onFinish   func(string, Outcome)
	wg         sync.WaitGroup
}

// NewEngine creates an engine running the standard Script.
func NewEngine(tracker *session.Tracker, dispatcher Dispatcher, opts Options) *Engine {
	if opts.ReplyTimeout <= 0 {
		opts.ReplyTimeout = DefaultReplyTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		tracker:    tracker,
		steps:      Script(),
		dispatcher: dispatcher,
		announcer:  opts.Announcer,
		timeout:    opts.ReplyTimeout,
		now:        opts.Now,
		logger:     opts.Logger,
		onFinish:   opts.OnFinish,
	}
}

// Begin starts a new flow for the user on dest, replacing any flow in progress.
// The greeting is sent before Begin returns; if it cannot be delivered the
// session is discarded and ErrUnreachable is returned.
func (e *Engine) Begin(ctx context.Context, userID, userName string, dest session.Destination) error {
	sess := e.tracker.Start(userID, userName, dest)

	if err := e.send(ctx, sess, GreetingText); err != nil {
		e.tracker.Release(sess)
		e.logger.Warn("Cannot reach user", "user_id", userID, "channel_id", dest.ChannelID(), "error", err)
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		outcome := e.run(sess)
		e.tracker.Release(sess)
		e.logger.Info("Flow finished", "user_id", userID, "outcome", outcome.String(), "step", sess.Step)
		if e.onFinish != nil {
			e.onFinish(userID, outcome)
		}
	}()
	return nil
}

// HandleMessage routes an inbound message to the user's waiting flow.
// Messages from users without a session, or from another channel, are dropped.
func (e *Engine) HandleMessage(userID, channelID, text string) bool {
	sess, ok := e.tracker.Get(userID)
	if !ok || sess.Dest.ChannelID() != channelID {
		return false
	}
	if !sess.Offer(text) {
		e.logger.Warn("Reply dropped, mailbox full", "user_id", userID)
		return false
	}
	return true
}

// Abandon ends the user's flow if it is bound to channelID, for example when
// the channel itself goes away. The user is not notified.
func (e *Engine) Abandon(userID, channelID string) bool {
	sess, ok := e.tracker.Get(userID)
	if !ok || sess.Dest.ChannelID() != channelID {
		return false
	}
	e.tracker.End(userID)
	return true
}

// Close ends all flows and waits for them to exit.
func (e *Engine) Close() {
	e.tracker.Close()
	e.wg.Wait()
}

func (e *Engine) run(sess *session.Session) Outcome {
	for sess.Step < len(e.steps) {
		step := e.steps[sess.Step]
		if !step.Enabled(sess.Answers) {
			sess.Step++
			continue
		}

		value, err := e.ask(sess, step)
		if err != nil {
			return e.abort(sess, err)
		}
		e.tracker.Advance(sess, step.Field, value)
	}

	return e.complete(sess)
}

// ask sends the step prompt and loops until a valid reply, cancel or timeout.
func (e *Engine) ask(sess *session.Session, step Step) (any, error) {
	prompt := step.Prompt
	for {
		if n := sess.Discard(); n > 0 {
			e.logger.Debug("Dropped replies sent before prompt", "user_id", sess.UserID, "field", step.Field, "count", n)
		}
		if err := e.send(context.Background(), sess, prompt); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
		}

		reply, err := e.await(sess)
		if err != nil {
			return nil, err
		}
		if IsCancel(reply) {
			return nil, ErrCancelled
		}

		value, err := step.Parse(reply)
		if err == nil {
			return value, nil
		}
		e.logger.Debug("Invalid reply", "user_id", sess.UserID, "field", step.Field, "error", err)
		prompt = Guidance(err) + "\n" + step.Prompt
	}
}

// await blocks for the next reply on this session only.
func (e *Engine) await(sess *session.Session) (string, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case reply := <-sess.Replies():
		return reply, nil
	case <-timer.C:
		return "", ErrTimeout
	case <-sess.Done():
		return "", sess.Err()
	}
}

func (e *Engine) abort(sess *session.Session, err error) Outcome {
	ctx := context.Background()
	switch {
	case errors.Is(err, ErrCancelled):
		e.notify(ctx, sess, CancelledText)
		return OutcomeCancelled
	case errors.Is(err, ErrTimeout):
		e.notify(ctx, sess, TimeoutText(e.timeout))
		return OutcomeTimedOut
	case errors.Is(err, session.ErrReplaced):
		return OutcomeReplaced
	case errors.Is(err, session.ErrEnded):
		return OutcomeAbandoned
	case errors.Is(err, session.ErrShutdown):
		return OutcomeShutdown
	default:
		e.logger.Warn("Flow aborted", "user_id", sess.UserID, "step", sess.Step, "error", err)
		return OutcomeUnreachable
	}
}

func (e *Engine) complete(sess *session.Session) Outcome {
	ctx := context.Background()

	rec, err := BuildRecord(sess.UserID, sess.UserName, sess.Answers, e.now())
	if err != nil {
		e.logger.Error("Incomplete record", "user_id", sess.UserID, "error", err)
		e.notify(ctx, sess, "Something went wrong assembling your report, please start again.")
		return OutcomeUnreachable
	}

	private, public := report.Format(rec)
	e.notify(ctx, sess, private)

	res := e.dispatcher.Deliver(ctx, rec)
	if res.OK {
		msg := SubmittedText
		if res.Detail != "" {
			msg += " (warning: " + res.Detail + ")"
		}
		e.notify(ctx, sess, msg)
	} else {
		e.notify(ctx, sess, "Your report could not be delivered: "+res.Detail)
	}

	if e.announcer != nil {
		actx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()
		if err := e.announcer.Announce(actx, public); err != nil {
			e.logger.Warn("Public summary failed", "user_id", sess.UserID, "error", err)
		}
	}
	return OutcomeComplete
}

func (e *Engine) send(ctx context.Context, sess *session.Session, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return sess.Dest.Send(ctx, text)
}

// notify sends a best-effort message; failures are only logged.
func (e *Engine) notify(ctx context.Context, sess *session.Session, text string) {
	if err := e.send(ctx, sess, text); err != nil {
		e.logger.Warn("Failed to message user", "user_id", sess.UserID, "error", err)
	}
}
