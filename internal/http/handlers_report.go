package http

import (
	"errors"
	"net/http"

	"cafereport/internal/core"
	"cafereport/internal/log"
	"cafereport/internal/middleware/trace"
	"cafereport/internal/services"
)

const (
	msgDeliveryFailed = "Не удалось отправить отчёт. Проверьте подключение и попробуйте снова."
	msgInFlight       = "Отчёт уже отправляется, подождите."
	msgIncomplete     = "Нужно заполнить все поля!"
	msgDraftKept      = " Изменения, внесённые во время отправки, не отправлены и остались в форме."
)

type issuesView struct {
	Title    string
	Messages []string
}

// handleSubmitReport validates and delivers the current draft.
func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	res, err := s.reports.Submit(r.Context())

	var verr *core.ValidationError
	switch {
	case err == nil:
		msg := "Отчёт отправлен! Сумма на конец дня: " + core.FormatHryvnia(res.Total)
		var b *HTMXResponseBuilder
		switch {
		case res.DraftChanged:
			b = NoticeResponse(http.StatusOK, NotificationWarning, msg+msgDraftKept).
				TriggerNotification(NotificationWarning, msg, 6000)
		case res.ResetErr != nil:
			b = NoticeResponse(http.StatusOK, NotificationWarning, msg+" Форму не удалось очистить.").
				TriggerNotification(NotificationWarning, msg, 6000)
		default:
			b = NoticeResponse(http.StatusOK, NotificationSuccess, msg).
				TriggerDraftReset().
				TriggerSuccessNotification(msg)
		}
		b.Write(w)

	case errors.As(err, &verr):
		view := issuesView{Title: msgIncomplete, Messages: issueMessages(res.Snapshot, verr.Issues, s.builder.MinRowAmount)}
		s.render(w, r, "issues", view, NewHTMXResponse().
			Status(http.StatusUnprocessableEntity).
			TriggerInvalidRows(citedRows(verr)))

	case errors.Is(err, services.ErrSubmitInFlight):
		ConflictError(msgInFlight).Write(w)

	case errors.Is(err, services.ErrDeliveryFailed):
		ErrorResponse(http.StatusBadGateway, msgDeliveryFailed).
			TriggerErrorNotification(msgDeliveryFailed).
			Write(w)

	default:
		s.logger.ErrorContext(r.Context(), "Unexpected submission error",
			log.FieldOperation, log.OpSubmit,
			log.FieldError, err)
		InternalServerError(internalErrorMessage(r)).Write(w)
	}
}

// internalErrorMessage gives the user the request id to quote, never the error text.
func internalErrorMessage(r *http.Request) string {
	msg := "Внутренняя ошибка."
	if id := trace.GetRequestID(r.Context()); id != "" {
		msg += " Код запроса: " + id
	}
	return msg
}

// citedRows returns the distinct row ids named by the issues, in order.
func citedRows(verr *core.ValidationError) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, is := range verr.Issues {
		if is.RowID != "" && !seen[is.RowID] {
			seen[is.RowID] = true
			ids = append(ids, is.RowID)
		}
	}
	return ids
}

func (s *Server) handleAPIDraft(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.drafts.Get())
}

// handleAPIPayload returns the payload the current draft would submit, or
// the validation issues that block it.
func (s *Server) handleAPIPayload(w http.ResponseWriter, r *http.Request) {
	p, err := s.reports.Preview()
	var verr *core.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, p)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, verr)
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
