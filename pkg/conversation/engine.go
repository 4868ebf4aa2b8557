package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stylegenie/pkg/events"
	"stylegenie/pkg/metrics"
	"stylegenie/pkg/models"
	"stylegenie/pkg/search"
)

// Searcher runs one aggregated search.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (search.Result, error)
}

// Engine hosts sessions and feeds user events through Transition. Only one
// event per session is processed at a time; a concurrent one gets ErrSessionBusy.
// A session stored in searching while nothing searches for it is failed back to
// the occasion question before the next event is applied.
type Engine struct {
	store     Store
	searcher  Searcher
	publisher events.Publisher
	reg       *metrics.Registry

	mu       sync.Mutex
	inflight map[string]struct{} // sessions with an event being processed
}

// errStaleSearch marks a session found in searching with no search running here,
// e.g. after a failed save or a restart.
var errStaleSearch = errors.New("search was interrupted")

func NewEngine(store Store, searcher Searcher, publisher events.Publisher, reg *metrics.Registry) *Engine {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Engine{
		store:     store,
		searcher:  searcher,
		publisher: publisher,
		reg:       reg,
		inflight:  make(map[string]struct{}),
	}
}

// Create starts a session. A non-nil first submission is processed right away.
func (e *Engine) Create(ctx context.Context, first *Submit) (Snapshot, error) {
	now := time.Now().UTC()
	sess := &Session{ID: uuid.NewString(), State: Initial(), CreatedAt: now, UpdatedAt: now}

	unlock, err := e.lock(sess.ID)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	if err := e.store.Save(ctx, sess); err != nil {
		return Snapshot{}, err
	}
	log.Ctx(ctx).Info().Str("session_id", sess.ID).Msg("session created")

	if first != nil && (strings.TrimSpace(first.Text) != "" || first.ImageRef != "") {
		if err := e.dispatch(ctx, sess, *first); err != nil {
			return Snapshot{}, err
		}
	}
	return sess.Snapshot(), nil
}

// Get returns the current snapshot of a session.
func (e *Engine) Get(ctx context.Context, id string) (Snapshot, error) {
	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// Delete forgets a session.
func (e *Engine) Delete(ctx context.Context, id string) error {
	unlock, err := e.lock(id)
	if err != nil {
		return err
	}
	defer unlock()
	return e.store.Delete(ctx, id)
}

// Submit handles typed text and/or an attached image.
func (e *Engine) Submit(ctx context.Context, id, text, imageRef string) (Snapshot, error) {
	return e.handle(ctx, id, Submit{Text: text, ImageRef: imageRef})
}

// SelectQuickReply handles a click on one of the offered quick replies.
func (e *Engine) SelectQuickReply(ctx context.Context, id, action string) (Snapshot, error) {
	return e.handle(ctx, id, SelectReply{Action: action})
}

func (e *Engine) handle(ctx context.Context, id string, ev Event) (Snapshot, error) {
	unlock, err := e.lock(id)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	sess, err := e.store.Get(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}
	// holding the lock means no search for this session runs in this process
	if sess.State.Step == StepSearching {
		log.Ctx(ctx).Warn().Str("session_id", id).Msg("session left in searching, recovering")
		if err := e.dispatch(ctx, sess, SearchFailed{Err: errStaleSearch}); err != nil {
			return Snapshot{}, err
		}
	}
	if err := e.dispatch(ctx, sess, ev); err != nil {
		return Snapshot{}, err
	}
	return sess.Snapshot(), nil
}

// lock marks the session as in flight without waiting. The mark exists only
// while an event is processed, so unknown or expired ids leave nothing behind.
func (e *Engine) lock(id string) (func(), error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, busy := e.inflight[id]; busy {
		return nil, ErrSessionBusy
	}
	e.inflight[id] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.inflight, id)
		e.mu.Unlock()
	}, nil
}

// dispatch runs ev and any follow-up search events to completion. Once a
// search has started it is not cancelled by the caller going away.
func (e *Engine) dispatch(ctx context.Context, sess *Session, ev Event) error {
	ctx = context.WithoutCancel(ctx)
	logger := log.Ctx(ctx).With().Str("session_id", sess.ID).Logger()

	for ev != nil {
		from := sess.State.Step
		next, effects, err := Transition(sess.State, ev)
		if err != nil {
			return err
		}
		sess.State = next
		ev = nil

		var query *search.Query
		for _, eff := range effects {
			switch x := eff.(type) {
			case Emit:
				e.appendMessage(sess, x.Message)
			case ClearLog:
				sess.Log = nil
			case StartSearch:
				q := x.Query
				query = &q
			case SearchCompleted:
				e.publish(ctx, searchCompletedEvent(sess.ID, x))
			case Feedback:
				found := x.Found
				e.publish(ctx, events.Event{Type: events.TypeSearchFeedback, SessionID: sess.ID, Found: &found})
			default:
				return fmt.Errorf("unhandled effect %T", eff)
			}
		}

		logger.Debug().Str("from", string(from)).Str("to", string(next.Step)).Msg("transition")
		e.reg.Inc(ctx, "conversation_transitions_total", map[string]string{"from": string(from), "to": string(next.Step)}, 1)

		if query != nil {
			if err := e.save(ctx, sess); err != nil {
				return err
			}
			res, err := e.searcher.Search(ctx, *query)
			if err != nil {
				logger.Error().Err(err).Msg("search failed")
				ev = SearchFailed{Err: err}
			} else {
				ev = SearchSucceeded{Result: res}
			}
		}
	}
	if err := e.save(ctx, sess); err != nil {
		logger.Warn().Err(err).Msg("session save failed, retrying")
		return e.save(ctx, sess)
	}
	return nil
}

func (e *Engine) appendMessage(sess *Session, m models.Message) {
	m.ID = uuid.Must(uuid.NewV7()).String()
	m.CreatedAt = time.Now().UTC()
	sess.Log = append(sess.Log, m)
}

func (e *Engine) save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	if err := e.store.Save(ctx, sess); err != nil {
		return fmt.Errorf("save session %s: %w", sess.ID, err)
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, ev events.Event) {
	// delivery problems are the publisher's to log; the conversation goes on
	_ = e.publisher.Publish(ctx, ev)
}

func searchCompletedEvent(sessionID string, c SearchCompleted) events.Event {
	names := make([]string, 0, len(c.Result.Marketplaces))
	for _, m := range c.Result.Marketplaces {
		names = append(names, m.ID)
	}
	return events.Event{
		Type:         events.TypeSearchCompleted,
		SessionID:    sessionID,
		Description:  c.Query.Text,
		Filters:      c.Query.Filters,
		Products:     len(c.Result.Products),
		Marketplaces: names,
		Fallbacks:    c.Result.Fallbacks,
	}
}
