package http

import (
	"bytes"
	"errors"
	"net/http"

	"cafereport/internal/core"
	"cafereport/internal/log"
)

type formView struct {
	Draft     core.ReportDraft
	Catalog   core.Catalog
	Total     totalView
	CanRemove bool
}

type totalView struct {
	Amount   string
	Negative bool
}

type previousTotalView struct {
	Present bool
	Amount  string
}

func (s *Server) formData(d core.ReportDraft) formView {
	return formView{
		Draft:     d,
		Catalog:   s.catalog,
		Total:     totalData(d),
		CanRemove: len(d.Rows) > 1,
	}
}

func totalData(d core.ReportDraft) totalView {
	total := core.CalculateTotal(d)
	return totalView{Amount: core.FormatHryvnia(total), Negative: total.IsNegative()}
}

// render executes the named template into a buffer and writes it through b,
// so a template failure never leaves a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any, b *HTMXResponseBuilder) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeConfiguration)
		InternalServerError("templates not loaded").Write(w)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		InternalServerError("render failed").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.Header("Content-Type", "text/html; charset=utf-8").Body(buf.Bytes()).Write(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", s.formData(s.drafts.Get()), nil)
}

func (s *Server) handleFormPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "form", s.formData(s.drafts.Get()), nil)
}

func (s *Server) handleTotalPartial(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "total", totalData(s.drafts.Get()), nil)
}

// handlePreviousTotalPartial renders the previous day panel, or an empty
// placeholder when there is no previous total.
func (s *Server) handlePreviousTotalPartial(w http.ResponseWriter, r *http.Request) {
	pt := s.reports.PreviousTotal(r.Context())
	view := previousTotalView{Present: pt.Present}
	if pt.Present {
		view.Amount = formatHryvnia(pt.Value)
	}
	s.render(w, r, "previous-total", view, nil)
}

func (s *Server) handleSetHeader(w http.ResponseWriter, r *http.Request) {
	u, err := ParseFieldUpdate(w, r)
	if err != nil {
		BadRequestError("Неверный формат запроса").Write(w)
		return
	}

	if _, err := s.drafts.SetHeaderField(r.Context(), u.Field, u.Value); err != nil {
		s.writeDraftError(w, r, err, log.OpUpdate)
		return
	}
	NewHTMXResponse().TriggerDraftChanged().Write(w)
}

func (s *Server) handleAddRow(w http.ResponseWriter, r *http.Request) {
	_, d, err := s.drafts.AddRow(r.Context())
	if err != nil {
		s.writeDraftError(w, r, err, log.OpAddRow)
		return
	}
	s.render(w, r, "rows", s.formData(d), NewHTMXResponse().TriggerDraftChanged())
}

func (s *Server) handleUpdateRow(w http.ResponseWriter, r *http.Request) {
	u, err := ParseFieldUpdate(w, r)
	if err != nil {
		BadRequestError("Неверный формат запроса").Write(w)
		return
	}

	if _, err := s.drafts.UpdateRow(r.Context(), r.PathValue("id"), u.Field, u.Value); err != nil {
		s.writeDraftError(w, r, err, log.OpUpdateRow)
		return
	}
	NewHTMXResponse().TriggerDraftChanged().Write(w)
}

func (s *Server) handleRemoveRow(w http.ResponseWriter, r *http.Request) {
	d, err := s.drafts.RemoveRow(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDraftError(w, r, err, log.OpRemoveRow)
		return
	}
	s.render(w, r, "rows", s.formData(d), NewHTMXResponse().TriggerDraftChanged())
}

func (s *Server) handleResetDraft(w http.ResponseWriter, r *http.Request) {
	d, err := s.drafts.Reset(r.Context())
	if err != nil {
		s.writeDraftError(w, r, err, log.OpReset)
		return
	}
	s.render(w, r, "form", s.formData(d), NewHTMXResponse().TriggerDraftChanged())
}

// writeDraftError maps draft store errors to responses.
func (s *Server) writeDraftError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, core.ErrUnknownField):
		BadRequestError("Неизвестное поле").Write(w)
	case errors.Is(err, core.ErrRowNotFound):
		NotFoundError("Расход не найден").Write(w)
	case errors.Is(err, core.ErrLastRow):
		ConflictError("Нельзя удалить единственный расход").Write(w)
	default:
		s.logger.ErrorContext(r.Context(), "Draft update failed",
			log.FieldOperation, op,
			log.FieldErrorType, log.ErrorTypeDatabase,
			log.FieldError, err)
		InternalServerError("Не удалось сохранить черновик").Write(w)
	}
}
