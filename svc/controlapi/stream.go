package controlapi

import (
	"github.com/dmitrymomot/tabloader/handler"
	"github.com/dmitrymomot/tabloader/pkg/broadcast"
	"github.com/dmitrymomot/tabloader/pkg/logger"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/svc/presenter"
)

// statusSignals is the DataStar signal set patched on every change.
type statusSignals struct {
	Badge          string `json:"badge"`
	BadgeColor     string `json:"badgeColor"`
	Title          string `json:"title"`
	Paused         bool   `json:"paused"`
	StayDiscarded  bool   `json:"stayDiscarded"`
	QueueLength    int    `json:"queueLength"`
	CreationLength int    `json:"creationLength"`
	ActiveLoads    int    `json:"activeLoads"`
}

func signalsOf(p presenter.Presentation) statusSignals {
	return statusSignals{
		Badge:          p.Badge.Text,
		BadgeColor:     p.Badge.Color,
		Title:          p.Title,
		Paused:         p.State.Paused,
		StayDiscarded:  p.State.Behavior == settings.StayDiscarded,
		QueueLength:    p.State.QueueLen,
		CreationLength: p.State.CreationLen,
		ActiveLoads:    p.State.ActiveLoads,
	}
}

// stream sends the current status, then every presentation change, until
// the client disconnects.
func (a *API) stream(ctx handler.Context, _ struct{}) handler.Response {
	if a.updates == nil {
		return handler.JSONError(handler.ErrServiceUnavailable)
	}

	return handler.SSE(func(s handler.StreamContext) error {
		sub := a.updates.Subscribe(s)
		defer sub.Close()

		if err := s.SendJSONSignals(signalsOf(a.eng.Status().Presentation)); err != nil {
			return nil
		}
		for {
			p, err := broadcast.Next(s, sub)
			if err != nil {
				return nil
			}
			if err := s.SendJSONSignals(signalsOf(p)); err != nil {
				a.log.DebugContext(s, "status stream closed", logger.Error(err))
				return nil
			}
		}
	})
}
