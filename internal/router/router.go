package router

import (
	"net/http"

	"offerportal/internal/controller"
)

func NewRouter(c *controller.Controller) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/ping", c.Ping)
	mux.HandleFunc("GET /api/offers", c.GetOffers)
	mux.HandleFunc("POST /api/offers/new", c.NewOffer)
	mux.HandleFunc("GET /api/offers/{offerId}", c.GetOffer)
	mux.HandleFunc("PATCH /api/offers/{offerId}/edit", c.EditOffer)
	mux.HandleFunc("DELETE /api/offers/{offerId}", c.DeleteOffer)
	mux.HandleFunc("POST /api/offers/{offerId}/check-expired", c.CheckOffer)
	mux.HandleFunc("GET /api/offers/{offerId}/requirements", c.Requirements)
	mux.HandleFunc("PUT /api/offers/{offerId}/winner", c.SetWinner)
	mux.HandleFunc("PUT /api/offers/{offerId}/unsuccessful", c.SetUnsuccessful)
	mux.HandleFunc("POST /api/offers/{offerId}/apply", c.Apply)
	mux.HandleFunc("GET /api/offers/{offerId}/applications", c.GetApplications)
	mux.HandleFunc("POST /api/offers/{offerId}/archive", c.ArchiveOffer)
	mux.HandleFunc("GET /api/offers/{offerId}/archive", c.ArchiveWindow)
	mux.HandleFunc("POST /api/offers/{offerId}/questions", c.AskQuestion)
	mux.HandleFunc("GET /api/offers/{offerId}/questions", c.GetQuestions)
	mux.HandleFunc("PUT /api/questions/{questionId}/answer", c.AnswerQuestion)
	mux.HandleFunc("DELETE /api/questions/{questionId}/answer", c.DeleteAnswer)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("page not found"))
	})

	cors := http.NewServeMux()
	cors.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Accept", "*/*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
		} else {
			mux.ServeHTTP(w, r)
		}
	})

	return cors
}
