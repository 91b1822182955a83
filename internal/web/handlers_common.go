package web

// This file contains shared request parsing and response helpers used across handlers.

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

// parseID reads the {id} route parameter.
func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %q", errInvalidID, raw)
	}
	return id, nil
}

// parseFilter builds a listing filter from query parameters:
// search (or q), status, plugin, category, type, recurring, escalated.
func parseFilter(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	search := q.Get("search")
	if search == "" {
		search = q.Get("q")
	}
	f := core.Filter{
		Search:    search,
		Status:    q.Get("status"),
		Plugin:    q.Get("plugin"),
		Category:  q.Get("category"),
		IssueType: q.Get("type"),
	}

	var err error
	if f.Recurring, err = parseBoolParam(q.Get("recurring")); err != nil {
		return core.Filter{}, fmt.Errorf("recurring: %w", err)
	}
	if f.Escalated, err = parseBoolParam(q.Get("escalated")); err != nil {
		return core.Filter{}, fmt.Errorf("escalated: %w", err)
	}
	return f, nil
}

// parseBoolParam returns nil for an empty parameter.
func parseBoolParam(s string) (*bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		flag, ok := yesNo(s)
		if !ok {
			return nil, fmt.Errorf("%w: %q is not a boolean", errBadParam, s)
		}
		b = flag
	}
	return &b, nil
}

func yesNo(s string) (bool, bool) {
	switch {
	case strings.EqualFold(s, core.FlagYes):
		return true, true
	case strings.EqualFold(s, core.FlagNo):
		return false, true
	}
	return false, false
}

// decodeObject reads a single JSON object from the request body.
func decodeObject(r *http.Request) (map[string]any, error) {
	var obj map[string]any
	if err := render.DecodeJSON(r.Body, &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if obj == nil {
		return nil, errNotObject
	}
	return obj, nil
}
