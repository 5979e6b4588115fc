package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/regulumai/regulum/internal/core/domain"
	"github.com/regulumai/regulum/internal/core/usecase"
)

type ctxKey string

const (
	timeFormat             = "2006-01-02T15:04:05.999999999Z07:00"
	userIDCtxKey    ctxKey = "user_id"
	maxJSONBodySize        = 10 << 20
)

type Handler struct {
	auth       *usecase.AuthService
	users      *usecase.UserService
	compliance *usecase.ComplianceService
	clientURL  string
}

func NewHandler(auth *usecase.AuthService, users *usecase.UserService, compliance *usecase.ComplianceService, clientURL string) *Handler {
	return &Handler{auth: auth, users: users, compliance: compliance, clientURL: clientURL}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	if h.clientURL != "" {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{h.clientURL},
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
		}))
	}

	r.Get("/api/health", h.health)
	r.Post("/api/auth/register", h.register)
	r.Post("/api/auth/login", h.login)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireUser)
		pr.Get("/api/compliance", h.listChecks)
		pr.Post("/api/compliance", h.createCheck)
		pr.Get("/api/compliance/{id}", h.getCheck)
		pr.Post("/api/compliance/{id}/analyze", h.analyzeCheck)
		pr.Delete("/api/compliance/{id}", h.deleteCheck)
		pr.Get("/api/users/me", h.currentUser)
		pr.Patch("/api/users/me", h.updateCurrentUser)
	})

	return r
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createCheckRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	DocumentText string `json:"documentText"`
}

type updateUserRequest struct {
	Name string `json:"name"`
}

type userResponse struct {
	ID             string                `json:"id"`
	Email          string                `json:"email"`
	Name           string                `json:"name"`
	Role           string                `json:"role"`
	OrganizationID string                `json:"organizationId,omitempty"`
	CreatedAt      string                `json:"createdAt,omitempty"`
	Organization   *organizationResponse `json:"organization,omitempty"`
}

type organizationResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
}

type checkResponse struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description,omitempty"`
	DocumentText   string          `json:"documentText,omitempty"`
	Status         string          `json:"status"`
	RiskLevel      string          `json:"riskLevel,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	AIAnalysis     string          `json:"aiAnalysis,omitempty"`
	UserID         string          `json:"userId"`
	OrganizationID string          `json:"organizationId,omitempty"`
	CreatedAt      string          `json:"createdAt"`
	UpdatedAt      string          `json:"updatedAt"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": nowTimestamp(),
	})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		h.handleError(w, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  toAuthUserResponse(user),
		"token": token,
	})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.handleError(w, err, "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  toAuthUserResponse(user),
		"token": token,
	})
}

func (h *Handler) listChecks(w http.ResponseWriter, r *http.Request) {
	checks, err := h.compliance.List(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, err, "Compliance check not found")
		return
	}

	result := make([]checkResponse, 0, len(checks))
	for _, check := range checks {
		result = append(result, toCheckResponse(check))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) getCheck(w http.ResponseWriter, r *http.Request) {
	check, err := h.compliance.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, "Compliance check not found")
		return
	}
	writeJSON(w, http.StatusOK, toCheckResponse(check))
}

func (h *Handler) createCheck(w http.ResponseWriter, r *http.Request) {
	var req createCheckRequest
	if !decodeBody(w, r, &req) {
		return
	}

	check, err := h.compliance.Create(r.Context(), userIDFromContext(r.Context()), req.Title, req.Description, req.DocumentText)
	if err != nil {
		h.handleError(w, err, "Compliance check not found")
		return
	}
	writeJSON(w, http.StatusCreated, toCheckResponse(check))
}

func (h *Handler) analyzeCheck(w http.ResponseWriter, r *http.Request) {
	check, err := h.compliance.Analyze(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, "Compliance check not found")
		return
	}
	writeJSON(w, http.StatusOK, toCheckResponse(check))
}

func (h *Handler) deleteCheck(w http.ResponseWriter, r *http.Request) {
	err := h.compliance.Delete(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, err, "Compliance check not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Compliance check deleted"})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	user, org, err := h.users.Profile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		h.handleError(w, err, "User not found")
		return
	}

	resp := userResponse{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
		CreatedAt:      user.CreatedAt.UTC().Format(timeFormat),
	}
	if org != nil {
		resp.Organization = &organizationResponse{ID: org.ID, Name: org.Name, Industry: org.Industry}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) updateCurrentUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := h.users.UpdateName(r.Context(), userIDFromContext(r.Context()), req.Name)
	if err != nil {
		h.handleError(w, err, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, userResponse{
		ID:             user.ID,
		Email:          user.Email,
		Name:           user.Name,
		Role:           user.Role,
		OrganizationID: user.OrganizationID,
	})
}

func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Missing or invalid authorization header")
			return
		}

		userID, err := h.auth.VerifyToken(strings.TrimSpace(auth[len("Bearer "):]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// handleError maps domain errors onto the response taxonomy. notFoundMsg is
// the route-specific 404 body; anything unexpected is logged and returned as
// a generic 500.
func (h *Handler) handleError(w http.ResponseWriter, err error, notFoundMsg string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Message)
	case errors.Is(err, domain.ErrEmailTaken):
		writeError(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, domain.ErrNotFound) && notFoundMsg != "":
		writeError(w, http.StatusNotFound, notFoundMsg)
	default:
		log.Printf("request failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

func toAuthUserResponse(user domain.User) userResponse {
	return userResponse{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}
}

func toCheckResponse(check domain.ComplianceCheck) checkResponse {
	return checkResponse{
		ID:             check.ID,
		Title:          check.Title,
		Description:    check.Description,
		DocumentText:   check.DocumentText,
		Status:         string(check.Status),
		RiskLevel:      string(check.RiskLevel),
		Result:         check.Result,
		AIAnalysis:     check.AIAnalysis,
		UserID:         check.UserID,
		OrganizationID: check.OrganizationID,
		CreatedAt:      check.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:      check.UpdatedAt.UTC().Format(timeFormat),
	}
}

func nowTimestamp() string {
	return time.Now().UTC().Format(timeFormat)
}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDCtxKey).(string)
	return userID
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
