package audit

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/talentlens/backend/internal/models"
)

type Handler struct {
	engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{engine: engine}
}

// TriggerRun starts a manual full audit pass and returns its summary.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	summary, err := Run(r.Context(), h.engine, time.Now, models.AuditTriggerManual)
	if err != nil {
		if summary != nil {
			// The pass itself completed; only persisting the run failed.
			writeJSON(w, http.StatusOK, summary)
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Audit run failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
