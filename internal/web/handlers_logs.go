package web

import (
	"net/http"

	"github.com/JonMunkholm/supportlog/internal/core"
)

// listResponse wraps a record listing.
type listResponse struct {
	Count   int                  `json:"count"`
	Records []core.OrderedObject `json:"records"`
}

// handleListLogs returns records matching the query filter, newest first.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	records, err := s.service.ListRecords(r.Context(), f)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	resp := listResponse{Count: len(records), Records: make([]core.OrderedObject, 0, len(records))}
	for i := range records {
		resp.Records = append(resp.Records, s.service.RecordObject(&records[i]))
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleCreateLog stores one record sent as a JSON object keyed like an
// export entry.
func (s *Server) handleCreateLog(w http.ResponseWriter, r *http.Request) {
	obj, err := decodeObject(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	rec, err := s.service.CreateRecord(r.Context(), s.service.Mapper().FromJSONObject(obj))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusCreated, s.service.RecordObject(rec))
}

// handleUpdateLog replaces every attribute of an existing record.
func (s *Server) handleUpdateLog(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	obj, err := decodeObject(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	rec, err := s.service.UpdateRecord(r.Context(), id, s.service.Mapper().FromJSONObject(obj))
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, r, http.StatusOK, s.service.RecordObject(rec))
}

// handleDeleteLog removes a record.
func (s *Server) handleDeleteLog(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}

	if err := s.service.DeleteRecord(r.Context(), id); err != nil {
		respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
