package conversation

import (
	"errors"
	"strings"

	"stylegenie/pkg/models"
	"stylegenie/pkg/search"
)

// Step is the position of a session in the guided search funnel.
type Step string

const (
	StepWelcome         Step = "welcome"
	StepClarifyPrice    Step = "clarify_price"
	StepClarifyOccasion Step = "clarify_occasion"
	StepSearching       Step = "searching"
	StepResults         Step = "results"
	StepFollowUp        Step = "follow_up"
	StepNotFound        Step = "not_found"
)

// Quick reply actions that are not price or occasion values.
const (
	ActionYes           = "yes"
	ActionNo            = "no"
	ActionFindMaster    = "find_master"
	ActionGenerateImage = "generate_image"
	ActionNewSearch     = "new_search"
)

var (
	ErrEmptySubmission = errors.New("nothing submitted")
	ErrUnexpectedReply = errors.New("quick reply is not valid in the current step")
	ErrUnexpectedEvent = errors.New("event is not valid in the current step")
	ErrSessionBusy     = errors.New("session is busy searching")
)

// State is everything the funnel remembers between events. The message log
// lives in Session; the machine only emits additions to it.
type State struct {
	Step        Step           `json:"step"`
	Description string         `json:"description,omitempty"`
	ImageRef    string         `json:"imageRef,omitempty"`
	Filters     models.Filters `json:"filters"`
}

// Initial is the state of a fresh session.
func Initial() State {
	return State{Step: StepWelcome}
}

// Event is an input to Transition.
type Event interface{ event() }

// Submit is typed text and/or an attached image.
type Submit struct {
	Text     string
	ImageRef string
}

// SelectReply is a click on a quick reply.
type SelectReply struct {
	Action string
}

// SearchSucceeded feeds a finished search back into the machine.
type SearchSucceeded struct {
	Result search.Result
}

// SearchFailed reports a search that produced nothing at all.
type SearchFailed struct {
	Err error
}

func (Submit) event()          {}
func (SelectReply) event()     {}
func (SearchSucceeded) event() {}
func (SearchFailed) event()    {}

// Effect is something the caller must carry out after a transition.
type Effect interface{ effect() }

// Emit appends a message to the log. The ID and timestamp are assigned by the caller.
type Emit struct {
	Message models.Message
}

// ClearLog empties the message log.
type ClearLog struct{}

// StartSearch asks the caller to run the query and feed the outcome back
// as SearchSucceeded or SearchFailed.
type StartSearch struct {
	Query search.Query
}

// SearchCompleted announces the outcome of a search for analytics.
type SearchCompleted struct {
	Query  search.Query
	Result search.Result
}

// Feedback records whether the user found what they wanted.
type Feedback struct {
	Found bool
}

func (Emit) effect()            {}
func (ClearLog) effect()        {}
func (StartSearch) effect()     {}
func (SearchCompleted) effect() {}
func (Feedback) effect()        {}

// Transition is the whole funnel: it maps the current state and one event to
// the next state and the effects to apply. It never mutates its input.
func Transition(s State, ev Event) (State, []Effect, error) {
	if s.Step == StepSearching {
		switch e := ev.(type) {
		case SearchSucceeded:
			return searchSucceeded(s, e)
		case SearchFailed:
			return searchFailed(s)
		default:
			return s, nil, ErrSessionBusy
		}
	}

	switch e := ev.(type) {
	case Submit:
		return submit(s, e)
	case SelectReply:
		return selectReply(s, e.Action)
	default:
		return s, nil, ErrUnexpectedEvent
	}
}

func submit(s State, e Submit) (State, []Effect, error) {
	text := strings.TrimSpace(e.Text)
	if text == "" && e.ImageRef == "" {
		return s, nil, ErrEmptySubmission
	}

	shown := text
	if shown == "" {
		shown = textImageOnly
	}
	effects := []Effect{Emit{Message: models.Message{Role: models.RoleUser, Text: shown, ImageRef: e.ImageRef}}}

	switch s.Step {
	case StepClarifyPrice:
		next, more := choosePrice(s, text)
		return next, append(effects, more...), nil
	case StepClarifyOccasion:
		if s.ImageRef == "" {
			s.ImageRef = e.ImageRef
		}
		next, more := chooseOccasion(s, text)
		return next, append(effects, more...), nil
	case StepWelcome, StepResults, StepFollowUp, StepNotFound:
		next, more := startFunnel(text, e.ImageRef)
		return next, append(effects, more...), nil
	default:
		return s, nil, ErrUnexpectedEvent
	}
}

func startFunnel(text, imageRef string) (State, []Effect) {
	desc := text
	if desc == "" {
		desc = defaultImageDescription
	}
	next := State{Step: StepClarifyPrice, Description: desc, ImageRef: imageRef}
	return next, []Effect{assistant(textAskPrice, withReplies(priceReplies()))}
}

// choosePrice accepts a price option by label or value; anything else means mid.
func choosePrice(s State, input string) (State, []Effect) {
	segment := models.DefaultPriceSegment
	if o, ok := models.LookupPrice(input); ok {
		segment = o.Value
	}
	s.Filters = models.Filters{PriceSegment: segment}
	s.Step = StepClarifyOccasion
	return s, []Effect{assistant(textAskOccasion, withReplies(occasionReplies()))}
}

// chooseOccasion sets the occasion when input matches an option and starts the search.
func chooseOccasion(s State, input string) (State, []Effect) {
	if o, ok := models.LookupOccasion(input); ok {
		s.Filters.Occasion = o.Value
	}
	s.Step = StepSearching
	return s, []Effect{StartSearch{Query: search.Query{
		Text:     s.Description,
		ImageRef: s.ImageRef,
		Filters:  s.Filters,
	}}}
}

func selectReply(s State, action string) (State, []Effect, error) {
	switch s.Step {
	case StepClarifyPrice:
		if isPriceValue(action) {
			next, effects := choosePrice(s, action)
			return next, effects, nil
		}
	case StepClarifyOccasion:
		if isOccasionValue(action) {
			next, effects := chooseOccasion(s, action)
			return next, effects, nil
		}
	case StepFollowUp:
		switch action {
		case ActionYes:
			return Initial(), []Effect{
				Feedback{Found: true},
				assistant(textGlad, withReplies([]models.QuickReply{newSearchReply()})),
			}, nil
		case ActionNo:
			s.Step = StepNotFound
			return s, []Effect{
				Feedback{Found: false},
				assistant(textOffer, withReplies([]models.QuickReply{
					{Label: labelFindMaster, Action: ActionFindMaster},
					{Label: labelGenerateImage, Action: ActionGenerateImage},
					newSearchReply(),
				})),
			}, nil
		case ActionNewSearch:
			return newSearch()
		}
	case StepNotFound:
		switch action {
		case ActionFindMaster:
			return Initial(), []Effect{assistant(textMasters, withMasters(Masters()))}, nil
		case ActionGenerateImage:
			return Initial(), []Effect{assistant(textGenerationSoon)}, nil
		case ActionNewSearch:
			return newSearch()
		}
	case StepWelcome:
		if action == ActionNewSearch {
			return newSearch()
		}
	}
	return s, nil, ErrUnexpectedReply
}

// newSearch wipes the conversation, including the message log.
func newSearch() (State, []Effect, error) {
	return Initial(), []Effect{ClearLog{}, assistant(textStartOver)}, nil
}

func searchSucceeded(s State, e SearchSucceeded) (State, []Effect, error) {
	q := search.Query{Text: s.Description, ImageRef: s.ImageRef, Filters: s.Filters}
	s.Step = StepFollowUp
	return s, []Effect{
		SearchCompleted{Query: q, Result: e.Result},
		assistant(e.Result.Summary(), withProducts(e.Result.Products)),
		assistant(textDidYouFind, withReplies([]models.QuickReply{
			{Label: labelYes, Action: ActionYes},
			{Label: labelNo, Action: ActionNo},
		})),
	}, nil
}

// searchFailed returns to the occasion question so the user can retry.
func searchFailed(s State) (State, []Effect, error) {
	s.Step = StepClarifyOccasion
	return s, []Effect{assistant(textSearchFailed, withReplies(occasionReplies()))}, nil
}

func isPriceValue(action string) bool {
	for _, o := range models.PriceOptions {
		if string(o.Value) == action {
			return true
		}
	}
	return false
}

func isOccasionValue(action string) bool {
	for _, o := range models.OccasionOptions {
		if string(o.Value) == action {
			return true
		}
	}
	return false
}

func priceReplies() []models.QuickReply {
	out := make([]models.QuickReply, 0, len(models.PriceOptions))
	for _, o := range models.PriceOptions {
		out = append(out, models.QuickReply{Label: o.Label, Action: string(o.Value)})
	}
	return out
}

func occasionReplies() []models.QuickReply {
	out := make([]models.QuickReply, 0, len(models.OccasionOptions))
	for _, o := range models.OccasionOptions {
		out = append(out, models.QuickReply{Label: o.Label, Action: string(o.Value)})
	}
	return out
}

func newSearchReply() models.QuickReply {
	return models.QuickReply{Label: labelNewSearch, Action: ActionNewSearch}
}

type messageOption func(*models.Message)

func withReplies(r []models.QuickReply) messageOption {
	return func(m *models.Message) { m.QuickReplies = r }
}

func withProducts(p []models.Product) messageOption {
	return func(m *models.Message) { m.Products = p }
}

func withMasters(ms []models.Master) messageOption {
	return func(m *models.Message) { m.Masters = ms }
}

func assistant(text string, opts ...messageOption) Emit {
	m := models.Message{Role: models.RoleAssistant, Text: text}
	for _, opt := range opts {
		opt(&m)
	}
	return Emit{Message: m}
}
