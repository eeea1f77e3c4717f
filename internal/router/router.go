// Package router exposes the HTTP API of the files manager.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/filesmanager/internal/auth"
	"github.com/patric-chuzhbe/filesmanager/internal/authenticator"
	"github.com/patric-chuzhbe/filesmanager/internal/gzippedhttp"
	"github.com/patric-chuzhbe/filesmanager/internal/logger"
	"github.com/patric-chuzhbe/filesmanager/internal/models"
)

type fileService interface {
	Create(ctx context.Context, userID int64, request models.CreateFileRequest) (*models.File, error)
	Get(ctx context.Context, userID, fileID int64) (*models.File, error)
	List(ctx context.Context, userID, parentID int64, page int) ([]models.FileSummary, error)
	SetVisibility(ctx context.Context, userID, fileID int64, isPublic bool) (*models.VisibilityResponse, error)
	ReadContent(ctx context.Context, callerUserID, fileID int64, size string) (*models.FileContent, error)
}

type userService interface {
	Register(ctx context.Context, request models.CreateUserRequest) (*models.UserResponse, error)
	Me(ctx context.Context, userID int64) (*models.UserResponse, error)
}

type statsService interface {
	Status(ctx context.Context) models.StatusResponse
	Stats(ctx context.Context) (*models.StatsResponse, error)
}

type subnetGuard interface {
	TrustedOnly(h http.Handler) http.Handler
}

const (
	msgUnauthorized      = "Unauthorized"
	msgNotFound          = "Not found"
	msgFolderHasNoData   = "A folder doesn't have content"
	msgInternal          = "Internal server error"
	msgMalformedBody     = "Malformed JSON body"
	msgRequestTooLarge   = "Request body too large"
	defaultMaxBodyLength = 32 << 20
)

// Router holds the services behind the HTTP handlers.
type Router struct {
	files        fileService
	users        userService
	stats        statsService
	maxBodyBytes int64
}

type initOptions struct {
	maxBodyBytes int64
}

type InitOption func(*initOptions)

// WithMaxRequestBodyBytes limits the size of request bodies.
func WithMaxRequestBodyBytes(limit int64) InitOption {
	return func(options *initOptions) {
		options.maxBodyBytes = limit
	}
}

// New wires the handlers, the middlewares and the routes.
func New(
	files fileService,
	users userService,
	stats statsService,
	theAuth authenticator.Authenticator,
	guard subnetGuard,
	optionsProto ...InitOption,
) *chi.Mux {
	options := &initOptions{maxBodyBytes: defaultMaxBodyLength}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	myRouter := Router{
		files:        files,
		users:        users,
		stats:        stats,
		maxBodyBytes: options.maxBodyBytes,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.Recoverer,
		logger.WithLoggingHTTPMiddleware,
		myRouter.limitBody,
		gzippedhttp.UngzipRequest,
		myRouter.limitBody,
		gzippedhttp.GzipResponse,
	)
	router.NotFound(func(response http.ResponseWriter, request *http.Request) {
		writeError(response, http.StatusNotFound, msgNotFound)
	})

	router.Get(`/status`, myRouter.GetStatus)
	router.With(guard.TrustedOnly).Get(`/stats`, myRouter.GetStats)

	router.Post(`/users`, myRouter.PostUsers)
	router.With(theAuth.RequireUser).Get(`/users/me`, myRouter.GetUsersMe)

	router.Get(`/connect`, getConnect(theAuth))
	router.Get(`/disconnect`, getDisconnect(theAuth))

	router.Route(`/files`, func(r chi.Router) {
		r.With(theAuth.OptionalUser).Get(`/{id}/data`, myRouter.GetFileData)

		r.Group(func(r chi.Router) {
			r.Use(theAuth.RequireUser)
			r.Post(`/`, myRouter.PostFiles)
			r.Get(`/`, myRouter.GetFiles)
			r.Get(`/{id}`, myRouter.GetFile)
			r.Put(`/{id}/publish`, myRouter.PutPublish)
			r.Put(`/{id}/unpublish`, myRouter.PutUnpublish)
		})
	})

	return router
}

// limitBody caps the body at maxBodyBytes. It runs on both sides of
// UngzipRequest so the limit holds for the raw and the decompressed stream.
func (router *Router) limitBody(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if request.Body != nil {
			request.Body = http.MaxBytesReader(response, request.Body, router.maxBodyBytes)
		}
		h.ServeHTTP(response, request)
	})
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}

func writeError(response http.ResponseWriter, status int, message string) {
	writeJSON(response, status, models.ErrorResponse{Error: message})
}

// writeServiceError maps the error taxonomy onto status codes.
func writeServiceError(response http.ResponseWriter, request *http.Request, err error) {
	var validationErr *models.ValidationError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		writeError(response, http.StatusUnauthorized, msgUnauthorized)
	case errors.As(err, &validationErr):
		writeError(response, http.StatusBadRequest, validationErr.Msg)
	case errors.Is(err, models.ErrNotFound):
		writeError(response, http.StatusNotFound, msgNotFound)
	case errors.Is(err, models.ErrInvalidOperation):
		writeError(response, http.StatusBadRequest, msgFolderHasNoData)
	case errors.As(err, &maxBytesErr):
		writeError(response, http.StatusRequestEntityTooLarge, msgRequestTooLarge)
	default:
		logger.Log.Errorw("request failed", "uri", request.RequestURI, "method", request.Method, "error", err)
		writeError(response, http.StatusInternalServerError, msgInternal)
	}
}

// decodeJSON reads the body into target. An empty body leaves target untouched.
func decodeJSON(request *http.Request, target interface{}) error {
	err := json.NewDecoder(request.Body).Decode(target)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var validationErr *models.ValidationError
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &validationErr) || errors.As(err, &maxBytesErr) {
		return err
	}

	return &models.ValidationError{Err: models.ErrMissingField, Msg: msgMalformedBody}
}

// fileIDParam returns the {id} path parameter. Ids that cannot exist are not found.
func fileIDParam(request *http.Request) (int64, error) {
	fileID, err := strconv.ParseInt(chi.URLParam(request, "id"), 10, 64)
	if err != nil || fileID <= 0 {
		return 0, models.ErrNotFound
	}
	return fileID, nil
}

func (router *Router) GetStatus(response http.ResponseWriter, request *http.Request) {
	writeJSON(response, http.StatusOK, router.stats.Status(request.Context()))
}

func (router *Router) GetStats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.stats.Stats(request.Context())
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusOK, stats)
}

func (router *Router) PostUsers(response http.ResponseWriter, request *http.Request) {
	var payload models.CreateUserRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeServiceError(response, request, err)
		return
	}

	created, err := router.users.Register(request.Context(), payload)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusCreated, created)
}

func (router *Router) GetUsersMe(response http.ResponseWriter, request *http.Request) {
	me, err := router.users.Me(request.Context(), auth.UserIDFromContext(request.Context()))
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusOK, me)
}

func getConnect(theAuth authenticator.Authenticator) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		token, err := theAuth.Login(request.Context(), request.Header.Get("Authorization"))
		if err != nil {
			writeServiceError(response, request, err)
			return
		}
		writeJSON(response, http.StatusOK, models.ConnectResponse{Token: token})
	}
}

func getDisconnect(theAuth authenticator.Authenticator) http.HandlerFunc {
	return func(response http.ResponseWriter, request *http.Request) {
		if err := theAuth.Logout(request.Context(), request.Header.Get(auth.TokenHeader)); err != nil {
			writeServiceError(response, request, err)
			return
		}
		response.WriteHeader(http.StatusNoContent)
	}
}

func (router *Router) PostFiles(response http.ResponseWriter, request *http.Request) {
	var payload models.CreateFileRequest
	if err := decodeJSON(request, &payload); err != nil {
		writeServiceError(response, request, err)
		return
	}

	file, err := router.files.Create(request.Context(), auth.UserIDFromContext(request.Context()), payload)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusCreated, file.Summary())
}

func (router *Router) GetFile(response http.ResponseWriter, request *http.Request) {
	fileID, err := fileIDParam(request)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}

	file, err := router.files.Get(request.Context(), auth.UserIDFromContext(request.Context()), fileID)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusOK, file.Summary())
}

// GetFiles lists one page of a folder. An unparsable parentId matches nothing,
// an unparsable page falls back to the first one.
func (router *Router) GetFiles(response http.ResponseWriter, request *http.Request) {
	query := request.URL.Query()

	parentID := models.RootParentID
	if raw := query.Get("parentId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			writeJSON(response, http.StatusOK, []models.FileSummary{})
			return
		}
		parentID = parsed
	}

	page, err := strconv.Atoi(query.Get("page"))
	if err != nil {
		page = 0
	}

	files, err := router.files.List(request.Context(), auth.UserIDFromContext(request.Context()), parentID, page)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusOK, files)
}

func (router *Router) setVisibility(response http.ResponseWriter, request *http.Request, isPublic bool) {
	fileID, err := fileIDParam(request)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}

	result, err := router.files.SetVisibility(request.Context(), auth.UserIDFromContext(request.Context()), fileID, isPublic)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}
	writeJSON(response, http.StatusOK, result)
}

func (router *Router) PutPublish(response http.ResponseWriter, request *http.Request) {
	router.setVisibility(response, request, true)
}

func (router *Router) PutUnpublish(response http.ResponseWriter, request *http.Request) {
	router.setVisibility(response, request, false)
}

// GetFileData streams the content of a public file, or of any file to its owner.
func (router *Router) GetFileData(response http.ResponseWriter, request *http.Request) {
	fileID, err := fileIDParam(request)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}

	content, err := router.files.ReadContent(
		request.Context(),
		auth.UserIDFromContext(request.Context()),
		fileID,
		request.URL.Query().Get("size"),
	)
	if err != nil {
		writeServiceError(response, request, err)
		return
	}

	response.Header().Set("Content-Type", content.ContentType)
	response.Header().Set("Content-Length", strconv.Itoa(len(content.Data)))
	response.WriteHeader(http.StatusOK)
	if _, err := response.Write(content.Data); err != nil {
		logger.Log.Debugln("Error calling the `response.Write()`: ", zap.Error(err))
	}
}
