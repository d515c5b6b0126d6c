package bridge

import (
	"context"

	"github.com/dmitrymomot/tabloader/pkg/tabs"
)

var _ tabs.Service = (*Server)(nil)

func (s *Server) Create(ctx context.Context, opts tabs.CreateOptions) (tabs.Tab, error) {
	var t tabs.Tab
	if err := s.call(ctx, TypeCreate, opts, &t); err != nil {
		return tabs.Tab{}, err
	}
	return t, nil
}

func (s *Server) Discard(ctx context.Context, id tabs.ID) error {
	return s.call(ctx, TypeDiscard, TabRef{TabID: id}, nil)
}

func (s *Server) Reload(ctx context.Context, id tabs.ID) error {
	return s.call(ctx, TypeReload, TabRef{TabID: id}, nil)
}

func (s *Server) Query(ctx context.Context, q tabs.Query) ([]tabs.Tab, error) {
	var out []tabs.Tab
	if err := s.call(ctx, TypeQuery, q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Server) Get(ctx context.Context, id tabs.ID) (tabs.Tab, error) {
	var t tabs.Tab
	if err := s.call(ctx, TypeGet, TabRef{TabID: id}, &t); err != nil {
		return tabs.Tab{}, err
	}
	return t, nil
}

// SetBadge sets the toolbar badge text and background color.
func (s *Server) SetBadge(ctx context.Context, text, color string) error {
	return s.notify(ctx, TypeBadge, Badge{Text: text, Color: color})
}

// SetTitle sets the toolbar button title.
func (s *Server) SetTitle(ctx context.Context, title string) error {
	return s.notify(ctx, TypeTitle, Title{Title: title})
}

// SetMenus shows or hides context menu items by id.
func (s *Server) SetMenus(ctx context.Context, visible map[string]bool) error {
	return s.notify(ctx, TypeMenus, visible)
}

// PushSettings sends the raw settings the extension scripts depend on,
// such as the Alt-click mode.
func (s *Server) PushSettings(ctx context.Context, raw map[string]string) error {
	return s.notify(ctx, TypeSettings, raw)
}
