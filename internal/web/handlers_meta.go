package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/supportlog/internal/core"
	"github.com/JonMunkholm/supportlog/internal/logging"
)

const healthTimeout = 2 * time.Second

type fieldInfo struct {
	Name     string   `json:"name"`
	Key      string   `json:"key"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	MinLen   int      `json:"min_length,omitempty"`
	MaxLen   int      `json:"max_length,omitempty"`
	Values   []string `json:"values,omitempty"`
	Default  string   `json:"default,omitempty"`
}

type schemaInfo struct {
	Variant      string      `json:"variant"`
	Label        string      `json:"label"`
	UniqueKey    string      `json:"unique_key,omitempty"`
	Header       []string    `json:"csv_header"`
	ExportHeader []string    `json:"export_header"`
	Fields       []fieldInfo `json:"fields"`
}

// handleSchema describes the active variant so clients can build import files.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	schema := s.service.Schema()

	mapper := s.service.Mapper()
	info := schemaInfo{
		Variant:      schema.Key,
		Label:        schema.Label,
		ExportHeader: mapper.CSVHeader(),
		Fields:       make([]fieldInfo, 0, len(schema.Fields)),
	}
	for _, p := range mapper.DecodePairs() {
		info.Header = append(info.Header, p.Label)
	}
	if spec, ok := schema.Spec(schema.UniqueKey); ok {
		info.UniqueKey = spec.Key
	}
	for _, f := range schema.Fields {
		fi := fieldInfo{
			Name:     f.Name,
			Key:      f.Key,
			Type:     f.Type.String(),
			Required: f.Required,
			MinLen:   f.MinLen,
			MaxLen:   f.MaxLen,
			Values:   f.EnumValues,
			Default:  f.Default,
		}
		if f.Type == core.FieldFlag && schema.Flags == core.FlagYesNo {
			fi.Values = []string{core.FlagYes, core.FlagNo}
		}
		info.Fields = append(info.Fields, fi)
	}

	writeJSON(w, r, http.StatusOK, info)
}

type healthResponse struct {
	Status   string             `json:"status"`
	Database string             `json:"database"`
	Imports  core.LimiterStatus `json:"imports"`
}

// handleHealth reports store reachability and import slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: "unchecked",
		Imports:  s.service.LimiterStatus(),
	}
	status := http.StatusOK

	if s.deps.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		if err := s.deps.Health.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			resp.Status = "unavailable"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}

	writeJSON(w, r, status, resp)
}
