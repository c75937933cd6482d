// Package widgets manages widgets.
package widgets

import "errors"

// WidgetService manages widgets.
//
// @version 1.0
type WidgetService struct {
	names []string
}

// NewWidgetService creates an empty service.
func NewWidgetService() *WidgetService {
	return &WidgetService{}
}

// Create creates a widget.
// @param name string
func (s *WidgetService) Create(name string) error {
	if !s.validate(name) {
		return errors.New("invalid name")
	}
	s.names = append(s.names, name)
	return nil
}

// List lists widgets.
func (s WidgetService) List() []string {
	return s.names
}

func (s *WidgetService) Reset() {
	s.names = nil
}

// validate checks a widget name.
func (s *WidgetService) validate(name string) bool {
	return name != ""
}

// Quiet has no documented methods.
type Quiet struct{}

func (Quiet) Run() {}
