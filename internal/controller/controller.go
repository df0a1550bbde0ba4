package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"offerportal/internal/archive"
	"offerportal/internal/docs"
	"offerportal/internal/models"
)

type Service interface {
	CreateOffer(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	EditOffer(ctx context.Context, offer *models.Offer) (*models.Offer, error)
	DeleteOffer(ctx context.Context, offerId string) error
	GetOffers(ctx context.Context, limit, offset int, statuses []models.OfferStatus, types []models.OfferType, country string) ([]*models.Offer, error)
	GetOffer(ctx context.Context, id string) (*models.Offer, error)
	CheckOffer(ctx context.Context, id string) (*models.Offer, error)
	Requirements(ctx context.Context, offerId string) ([]docs.Requirement, error)
	SetWinner(ctx context.Context, offerId, winnerName string) (*models.Offer, error)
	SetUnsuccessful(ctx context.Context, offerId string) (*models.Offer, error)

	Apply(ctx context.Context, app *models.Application) (*models.Application, error)
	GetApplications(ctx context.Context, offerId string) ([]*models.Application, error)

	ArchiveOffer(ctx context.Context, offerId string) (*archive.Result, error)
	ArchiveWindow(ctx context.Context, offerId string) (*archive.WindowState, error)

	AskQuestion(ctx context.Context, q *models.Question) (*models.Question, error)
	AnswerQuestion(ctx context.Context, questionId, answer string) (*models.Question, error)
	DeleteAnswer(ctx context.Context, questionId string) error
	GetQuestions(ctx context.Context, offerId string, answeredOnly bool) ([]*models.Question, error)
}

// FileSaver stores uploaded files and hands back their storage path.
type FileSaver interface {
	Save(src io.Reader, originalName string) (string, error)
	Remove(path string) error
}

type Controller struct {
	service Service
	files   FileSaver
}

func NewController(service Service, files FileSaver) *Controller {
	return &Controller{service: service, files: files}
}

//// Offers

// GET /api/ping
func (c *Controller) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "ok")
}

// GET /api/offers
func (c *Controller) GetOffers(w http.ResponseWriter, r *http.Request) {
	var statuses []models.OfferStatus
	var types []models.OfferType

	query := r.URL.Query()

	limit, err := c.getQueryInt(query, "limit")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, "invalid value of 'limit' query parameter: "+query.Get("limit"))
		return
	}

	offset, err := c.getQueryInt(query, "offset")
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, "invalid value of 'offset' query parameter: "+query.Get("offset"))
		return
	}

	for _, str := range query["status"] {
		s := models.OfferStatus(str)
		if models.ValidOfferStatus(s) {
			statuses = append(statuses, s)
			continue
		}
		c.errorResponse(w, http.StatusBadRequest, "invalid offer status supplied: "+str)
		return
	}

	for _, str := range query["type"] {
		t := models.OfferType(str)
		if models.ValidOfferType(t) {
			types = append(types, t)
			continue
		}
		c.errorResponse(w, http.StatusBadRequest, "invalid offer type supplied: "+str)
		return
	}

	offers, err := c.service.GetOffers(r.Context(), limit, offset, statuses, types, query.Get("country"))
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not fetch offers")
		return
	}

	c.marshalResponse(w, offers)
}

// POST /api/offers/new
func (c *Controller) NewOffer(w http.ResponseWriter, r *http.Request) {
	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}

	req, err := ParseNewOfferReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := c.service.CreateOffer(r.Context(), req.ToOffer())
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, offer)
}

// GET /api/offers/{offerId}
func (c *Controller) GetOffer(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	offer, err := c.service.GetOffer(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, offer)
}

// PATCH /api/offers/{offerId}/edit
func (c *Controller) EditOffer(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}
	req, err := ParseEditOfferReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := c.service.GetOffer(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}
	req.ApplyTo(offer)

	updated, err := c.service.EditOffer(r.Context(), offer)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, updated)
}

// DELETE /api/offers/{offerId}
func (c *Controller) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	if err := c.service.DeleteOffer(r.Context(), offerId); err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// POST /api/offers/{offerId}/check-expired
func (c *Controller) CheckOffer(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	offer, err := c.service.CheckOffer(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, offer)
}

// GET /api/offers/{offerId}/requirements
func (c *Controller) Requirements(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	reqs, err := c.service.Requirements(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, reqs)
}

// PUT /api/offers/{offerId}/winner
func (c *Controller) SetWinner(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}
	req, err := ParseWinnerReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	offer, err := c.service.SetWinner(r.Context(), offerId, req.WinnerName)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, offer)
}

// PUT /api/offers/{offerId}/unsuccessful
func (c *Controller) SetUnsuccessful(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	offer, err := c.service.SetUnsuccessful(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, offer)
}

//// Applications

// POST /api/offers/{offerId}/apply, multipart form: fullName, email, phone
// text fields plus one file field per document key. Files under the "extra"
// field bypass requirement matching.
func (c *Controller) Apply(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		c.errorResponse(w, http.StatusBadRequest, "could not parse multipart form: "+err.Error())
		return
	}

	app := &models.Application{
		OfferId:  offerId,
		FullName: r.FormValue("fullName"),
		Email:    r.FormValue("email"),
		Phone:    r.FormValue("phone"),
	}

	var saved []string
	cleanup := func() {
		for _, path := range saved {
			if err := c.files.Remove(path); err != nil {
				log.Println("controller: could not remove upload:", err)
			}
		}
	}

	for key, headers := range r.MultipartForm.File {
		for _, header := range headers {
			path, err := c.saveUpload(header)
			if err != nil {
				cleanup()
				c.errorResponse(w, http.StatusInternalServerError, "could not store uploaded file")
				return
			}
			saved = append(saved, path)
			app.Documents = append(app.Documents, models.ApplicationDocument{
				Key:      key,
				Filename: header.Filename,
				Path:     path,
				Extra:    key == "extra",
			})
		}
	}

	created, err := c.service.Apply(r.Context(), app)
	if err != nil {
		cleanup()
		c.serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	c.marshalResponse(w, created)
}

// GET /api/offers/{offerId}/applications
func (c *Controller) GetApplications(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	apps, err := c.service.GetApplications(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, apps)
}

//// Archive

// POST /api/offers/{offerId}/archive
func (c *Controller) ArchiveOffer(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	result, err := c.service.ArchiveOffer(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, result)
}

// GET /api/offers/{offerId}/archive
func (c *Controller) ArchiveWindow(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	state, err := c.service.ArchiveWindow(r.Context(), offerId)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, state)
}

//// Questions

// POST /api/offers/{offerId}/questions
func (c *Controller) AskQuestion(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}
	req, err := ParseNewQuestionReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	question, err := c.service.AskQuestion(r.Context(), &models.Question{
		OfferId:    offerId,
		AuthorName: req.AuthorName,
		Email:      req.Email,
		Text:       req.Text,
	})
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	c.marshalResponse(w, question)
}

// GET /api/offers/{offerId}/questions
func (c *Controller) GetQuestions(w http.ResponseWriter, r *http.Request) {
	offerId := r.PathValue("offerId")
	if len(offerId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty offerId supplied")
		return
	}

	answeredOnly := r.URL.Query().Get("answered") == "true"
	questions, err := c.service.GetQuestions(r.Context(), offerId, answeredOnly)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, questions)
}

// PUT /api/questions/{questionId}/answer
func (c *Controller) AnswerQuestion(w http.ResponseWriter, r *http.Request) {
	questionId := r.PathValue("questionId")
	if len(questionId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty questionId supplied")
		return
	}

	data, err := c.readBody(r.Body)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not read request body")
		return
	}
	req, err := ParseAnswerReq(data)
	if err != nil {
		c.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	question, err := c.service.AnswerQuestion(r.Context(), questionId, req.Answer)
	if err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	c.marshalResponse(w, question)
}

// DELETE /api/questions/{questionId}/answer
func (c *Controller) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	questionId := r.PathValue("questionId")
	if len(questionId) == 0 {
		c.errorResponse(w, http.StatusBadRequest, "empty questionId supplied")
		return
	}

	if err := c.service.DeleteAnswer(r.Context(), questionId); err != nil {
		c.serviceErrorResponse(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Service

type ErrorResponse struct {
	Reason string `json:"reason"`
}

func (c *Controller) saveUpload(header *multipart.FileHeader) (string, error) {
	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()
	return c.files.Save(f, header.Filename)
}

func (c *Controller) getQueryInt(query url.Values, key string) (int, error) {
	strs, ok := query[key]
	if ok && len(strs) > 0 {
		return strconv.Atoi(strs[0])
	}
	return 0, nil
}

func (c *Controller) errorResponse(w http.ResponseWriter, status int, text string) {
	w.WriteHeader(status)

	data, err := json.Marshal(ErrorResponse{Reason: text})
	if err != nil {
		log.Printf("controller.Controller.errorResponse: %s", err)
		return
	}

	_, err = w.Write(data)
	if err != nil {
		log.Printf("controller.Controller.errorResponse: %s", err)
		return
	}
}

func (c *Controller) serviceErrorResponse(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		c.errorResponse(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, models.ErrNoOffer):
		c.errorResponse(w, http.StatusNotFound, "requested offer does not exist")
	case errors.Is(err, models.ErrNoApplication):
		c.errorResponse(w, http.StatusNotFound, "requested application does not exist")
	case errors.Is(err, models.ErrNoQuestion):
		c.errorResponse(w, http.StatusNotFound, "requested question does not exist")
	case errors.Is(err, models.ErrOfferFinalized):
		c.errorResponse(w, http.StatusConflict, "requested offer is already closed")
	case errors.Is(err, models.ErrInvalidTransition):
		c.errorResponse(w, http.StatusConflict, "offer status does not permit this action")
	case errors.Is(err, models.ErrNotExpired):
		c.errorResponse(w, http.StatusConflict, "offer deadline has not passed yet")
	case errors.Is(err, models.ErrAlreadyApplied):
		c.errorResponse(w, http.StatusConflict, "an application with this email already exists for the offer")
	case errors.Is(err, models.ErrHasApplications):
		c.errorResponse(w, http.StatusConflict, "offer has received applications and cannot be deleted")
	case errors.Is(err, models.ErrNotClosed):
		c.errorResponse(w, http.StatusConflict, "offer must be closed before archiving")
	case errors.Is(err, models.ErrArchiveClosed):
		c.errorResponse(w, http.StatusGone, "the archive window for this offer has passed")
	default:
		log.Println("controller:", err)
		c.errorResponse(w, http.StatusInternalServerError, "internal server error: "+err.Error())
	}
}

func (c *Controller) marshalResponse(w http.ResponseWriter, data any) {
	d, err := json.Marshal(data)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not marshal response data")
		return
	}

	_, err = w.Write(d)
	if err != nil {
		c.errorResponse(w, http.StatusInternalServerError, "could not write response data")
		return
	}
}

func (c *Controller) readBody(src io.ReadCloser) ([]byte, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}
	src.Close()
	return data, nil
}
