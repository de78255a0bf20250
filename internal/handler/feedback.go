package handler

import (
	"net/http"
	"strconv"

	"github.com/pkordes/visitbook/internal/domain"
	"github.com/pkordes/visitbook/internal/service"
)

type feedbackForm struct {
	Name     string
	OrderRef string
	Rating   int
	Comment  string
}

type feedbackPage struct {
	basePage
	Form    feedbackForm
	Ratings []int
	Entries []domain.FeedbackEntry
	Pager   pager
}

func ratings() []int {
	out := make([]int, 0, domain.MaxRating-domain.MinRating+1)
	for r := domain.MaxRating; r >= domain.MinRating; r-- {
		out = append(out, r)
	}
	return out
}

// pageParams reads ?page= and ?limit=, ignoring malformed values.
func pageParams(r *http.Request) domain.PaginationParams {
	var page, limit *int
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
		page = &v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil {
		limit = &v
	}
	return domain.NewPaginationParams(page, limit)
}

// GetFeedback handles GET /feedback?page=.
func (s *Server) GetFeedback(w http.ResponseWriter, r *http.Request) {
	s.renderFeedback(w, r, http.StatusOK, feedbackForm{Rating: domain.MaxRating}, "", r.URL.Query().Get("flash"))
}

func (s *Server) renderFeedback(w http.ResponseWriter, r *http.Request, status int, form feedbackForm, errMsg, flash string) {
	p := pageParams(r)
	entries, total, err := s.Feedback.List(r.Context(), p)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, status, "feedback", &feedbackPage{
		basePage: basePage{Title: "Feedback", Error: errMsg, Flash: flash},
		Form:     form,
		Ratings:  ratings(),
		Entries:  entries,
		Pager:    newPager(p, total),
	})
}

// PostFeedback handles POST /feedback.
func (s *Server) PostFeedback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	form := feedbackForm{
		Name:     r.PostFormValue("name"),
		OrderRef: r.PostFormValue("order_ref"),
		Rating:   rating,
		Comment:  r.PostFormValue("comment"),
	}

	_, err := s.Feedback.Submit(r.Context(), service.FeedbackInput(form))
	if err != nil {
		status, _, message := classify(err)
		if status != http.StatusUnprocessableEntity {
			s.fail(w, r, err)
			return
		}
		s.renderFeedback(w, r, status, form, message, "")
		return
	}
	http.Redirect(w, r, "/feedback?flash="+urlQuery("Thanks for the feedback"), http.StatusSeeOther)
}
