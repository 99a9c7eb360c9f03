package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/talentlens/backend/internal/models"
	"github.com/talentlens/backend/internal/psychometrics"
)

type Handler struct {
	advisor *Advisor
	service *psychometrics.Service
}

func NewHandler(advisor *Advisor, service *psychometrics.Service) *Handler {
	return &Handler{advisor: advisor, service: service}
}

type adviceResponse struct {
	QuestionID int64  `json:"question_id"`
	Advice     string `json:"advice"`
}

// GetAdvice drafts a revision note for one flagged item.
func (h *Handler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid question ID"})
		return
	}

	view, err := h.service.ItemView(id)
	if err != nil {
		if errors.Is(err, psychometrics.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}

	advice, err := h.advisor.AdviceForItem(r.Context(), view)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Advice generation failed"})
		return
	}

	writeJSON(w, http.StatusOK, adviceResponse{QuestionID: id, Advice: advice})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
