package controlapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/tabloader/handler"
	"github.com/dmitrymomot/tabloader/pkg/binder"
	"github.com/dmitrymomot/tabloader/pkg/settings"
	"github.com/dmitrymomot/tabloader/pkg/validator"
	"github.com/dmitrymomot/tabloader/svc/creator"
	"github.com/dmitrymomot/tabloader/svc/engine"
	"github.com/dmitrymomot/tabloader/svc/loader"
)

func bindJSON[R any]() handler.WrapOption[R] {
	return handler.WithBinder[R](binder.JSON())
}

func bindOptionalJSON[R any]() handler.WrapOption[R] {
	return handler.WithBinder[R](binder.JSON(binder.Optional()))
}

type queueResponse struct {
	Reload   []loader.Entry  `json:"reload"`
	Creation []creator.Entry `json:"creation"`
}

// pauseRequest sets the paused state. Without a body the state is toggled.
type pauseRequest struct {
	Paused *bool `json:"paused"`
}

type pauseResponse struct {
	Paused bool `json:"paused"`
}

type nextResponse struct {
	Skipped bool `json:"skipped"`
}

func (a *API) status(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(a.eng.Status())
}

func (a *API) queue(ctx handler.Context, _ struct{}) handler.Response {
	st := a.eng.Status()
	return handler.JSON(queueResponse{
		Reload:   nonNil(a.eng.Queue()),
		Creation: nonNil(st.CreationQueue),
	})
}

func (a *API) pause(ctx handler.Context, req pauseRequest) handler.Response {
	var (
		paused bool
		err    error
	)
	if req.Paused == nil {
		paused, err = a.eng.TogglePause(ctx)
	} else {
		paused = *req.Paused
		err = a.eng.SetPaused(ctx, paused)
	}
	return applied(pauseResponse{Paused: paused}, err)
}

func (a *API) next(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(nextResponse{Skipped: a.eng.LoadNext(ctx)})
}

func (a *API) empty(ctx handler.Context, _ struct{}) handler.Response {
	a.eng.EmptyQueue(ctx)
	return handler.Empty()
}

func (a *API) resume(ctx handler.Context, _ struct{}) handler.Response {
	err := a.eng.Resume(ctx)
	if errors.Is(err, engine.ErrNotPersisted) {
		return handler.EmptyWithStatus(http.StatusAccepted)
	}
	if err != nil {
		return handler.JSONError(err)
	}
	return handler.Empty()
}

func (a *API) getSettings(ctx handler.Context, _ struct{}) handler.Response {
	return handler.JSON(a.eng.Settings())
}

func (a *API) putSettings(ctx handler.Context, req settingsRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	cfg, err := a.eng.UpdateSettings(ctx, req.values())
	if err != nil && !errors.Is(err, engine.ErrNotPersisted) {
		// Values passed validation above; anything left is a rule the
		// settings package enforces on its own.
		return handler.JSONError(validator.ValidationErrors{{Field: "settings", Message: err.Error()}})
	}
	return applied(cfg, err)
}

// applied answers 200 with v, or 202 when the change is in effect but was
// not persisted.
func applied(v any, err error) handler.Response {
	switch {
	case err == nil:
		return handler.JSON(v)
	case errors.Is(err, engine.ErrNotPersisted):
		return handler.JSON(v,
			handler.WithJSONStatus(http.StatusAccepted),
			handler.WithJSONMeta(map[string]any{"persisted": false}),
		)
	default:
		return handler.JSONError(err)
	}
}

// settingsRequest holds the keys to change; absent keys keep their value.
// Delays are in milliseconds.
type settingsRequest struct {
	MaxConcurrentTabs *int    `json:"maxConcurrentTabs"`
	QueueLimit        *int    `json:"queueLimit"`
	LoadBehavior      *string `json:"loadBehavior"`
	IsPaused          *bool   `json:"isPaused"`
	DiscardingDelay   *int64  `json:"discardingDelay"`
	LoadingDelay      *int64  `json:"loadingDelay"`
	AltClickMode      *string `json:"altClickMode"`
}

func (r settingsRequest) validate() error {
	var rules []validator.Rule
	if r.MaxConcurrentTabs != nil {
		rules = append(rules, validator.MinNum(string(settings.KeyMaxConcurrentTabs), *r.MaxConcurrentTabs, settings.MinMaxConcurrentTabs))
	}
	if r.QueueLimit != nil {
		rules = append(rules, validator.RangeNum(string(settings.KeyQueueLimit), *r.QueueLimit, settings.MinQueueLimit, settings.MaxQueueLimit))
	}
	if r.LoadBehavior != nil {
		rules = append(rules, validator.InList(string(settings.KeyLoadBehavior),
			settings.LoadBehavior(*r.LoadBehavior),
			[]settings.LoadBehavior{settings.QueueActive, settings.StayDiscarded}))
	}
	if r.DiscardingDelay != nil {
		rules = append(rules, validator.RangeNum(string(settings.KeyDiscardingDelay), *r.DiscardingDelay, 0, settings.MaxDiscardingDelay.Milliseconds()))
	}
	if r.LoadingDelay != nil {
		rules = append(rules, validator.RangeNum(string(settings.KeyLoadingDelay), *r.LoadingDelay, 0, settings.MaxLoadingDelay.Milliseconds()))
	}
	if r.AltClickMode != nil {
		rules = append(rules, validator.InList(string(settings.KeyAltClickMode),
			settings.AltClickMode(*r.AltClickMode),
			[]settings.AltClickMode{settings.AltClickNone, settings.AltClickDiscarded, settings.AltClickQueue}))
	}
	return validator.Apply(rules...)
}

func (r settingsRequest) values() map[settings.Key]string {
	out := make(map[settings.Key]string)
	if r.MaxConcurrentTabs != nil {
		out[settings.KeyMaxConcurrentTabs] = strconv.Itoa(*r.MaxConcurrentTabs)
	}
	if r.QueueLimit != nil {
		out[settings.KeyQueueLimit] = strconv.Itoa(*r.QueueLimit)
	}
	if r.LoadBehavior != nil {
		out[settings.KeyLoadBehavior] = *r.LoadBehavior
	}
	if r.IsPaused != nil {
		out[settings.KeyIsPaused] = strconv.FormatBool(*r.IsPaused)
	}
	if r.DiscardingDelay != nil {
		out[settings.KeyDiscardingDelay] = strconv.FormatInt(*r.DiscardingDelay, 10)
	}
	if r.LoadingDelay != nil {
		out[settings.KeyLoadingDelay] = strconv.FormatInt(*r.LoadingDelay, 10)
	}
	if r.AltClickMode != nil {
		out[settings.KeyAltClickMode] = *r.AltClickMode
	}
	return out
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
