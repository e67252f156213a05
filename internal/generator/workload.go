package generator

import (
	"fmt"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/google/uuid"

	"github.com/scusemua/workload-generator/internal/domain"
)

// WorkloadKnobs are carried through to the serialized workload for the driver that replays it.
type WorkloadKnobs struct {
	Seed                      int64
	TimescaleAdjustmentFactor float64
	DebugLoggingEnabled       bool
}

func DefaultWorkloadKnobs() WorkloadKnobs {
	return WorkloadKnobs{
		Seed:                      0,
		TimescaleAdjustmentFactor: 0.1,
		DebugLoggingEnabled:       true,
	}
}

// Workload is a named, ordered collection of sessions.
type Workload struct {
	name     string
	sessions *orderedmap.OrderedMap[string, *Session]
	knobs    WorkloadKnobs
}

// AssembleWorkload collects the sessions, in order, into a Workload.
// An empty name is replaced by a fresh UUID. Duplicate session IDs are rejected with an error
// wrapping domain.ErrDuplicateSession.
func AssembleWorkload(sessions []*Session, name string, knobs WorkloadKnobs) (*Workload, error) {
	if name == "" {
		name = uuid.NewString()
	}

	workload := &Workload{
		name:     name,
		sessions: orderedmap.NewOrderedMap[string, *Session](),
		knobs:    knobs,
	}

	for idx, session := range sessions {
		if session == nil {
			return nil, Errorf(domain.ErrMalformedSimulation, "session #%d is missing", idx)
		}

		if isNew := workload.sessions.Set(session.Id(), session); !isNew {
			return nil, Errorf(domain.ErrDuplicateSession, "\"%s\" (session #%d)", session.Id(), idx)
		}
	}

	return workload, nil
}

func (w *Workload) Name() string { return w.name }

func (w *Workload) Knobs() WorkloadKnobs { return w.knobs }

func (w *Workload) NumSessions() int { return w.sessions.Len() }

// Session returns the session with the given ID.
func (w *Workload) Session(id string) (*Session, bool) {
	return w.sessions.Get(id)
}

// Sessions returns the sessions of the workload in order.
func (w *Workload) Sessions() []*Session {
	sessions := make([]*Session, 0, w.sessions.Len())
	for el := w.sessions.Front(); el != nil; el = el.Next() {
		sessions = append(sessions, el.Value)
	}

	return sessions
}

// NumTrainingEvents returns the total number of training events across all sessions.
func (w *Workload) NumTrainingEvents() int {
	total := 0
	for el := w.sessions.Front(); el != nil; el = el.Next() {
		total += el.Value.NumTrainingEvents()
	}

	return total
}

func (w *Workload) String() string {
	return fmt.Sprintf("Workload[name=%s, sessions=%d, events=%d]", w.name, w.NumSessions(), w.NumTrainingEvents())
}

// Template converts the workload to its serialized form.
func (w *Workload) Template() *domain.WorkloadTemplate {
	sessions := make([]*domain.WorkloadTemplateSession, 0, w.sessions.Len())
	for el := w.sessions.Front(); el != nil; el = el.Next() {
		sessions = append(sessions, el.Value.Template())
	}

	return &domain.WorkloadTemplate{
		Title:                     w.name,
		Seed:                      w.knobs.Seed,
		TimescaleAdjustmentFactor: w.knobs.TimescaleAdjustmentFactor,
		NumberOfSessions:          len(sessions),
		DebugLoggingEnabled:       w.knobs.DebugLoggingEnabled,
		Sessions:                  sessions,
	}
}
