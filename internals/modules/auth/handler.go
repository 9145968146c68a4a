package auth

import (
	"encoding/json"
	"net/http"
	"pulsewatch/config"
	"pulsewatch/internals/security"
	"pulsewatch/pkg/apperror"
	"pulsewatch/pkg/utils"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// Handler authenticates the single operator account defined in config and
// issues access tokens for the mutating API routes.
type Handler struct {
	authCfg   *config.AuthConfig
	tokenSvc  *security.TokenService
	validator *validator.Validate
	logger    *zerolog.Logger
}

func NewHandler(authCfg *config.AuthConfig, tokenSvc *security.TokenService, validator *validator.Validate, logger *zerolog.Logger) *Handler {
	return &Handler{
		authCfg:   authCfg,
		tokenSvc:  tokenSvc,
		validator: validator,
		logger:    logger,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, reqID, apperror.InvalidInput, err.Error())
		return
	}

	if req.Email != h.authCfg.OperatorEmail {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "invalid credentials")
		return
	}
	ok, err := security.ComparePassword(req.Password, h.authCfg.OperatorPasswordHash)
	if err != nil || !ok {
		utils.WriteError(w, http.StatusUnauthorized, reqID, apperror.Unauthorised, "invalid credentials")
		return
	}

	token, err := h.tokenSvc.GenerateAccessToken(security.RequestClaims{
		Subject: "operator",
		Email:   req.Email,
	})
	if err != nil {
		utils.WriteError(w, http.StatusInternalServerError, reqID, apperror.Internal, "")
		return
	}

	h.logger.Info().Str("email", req.Email).Msg("operator logged in")
	utils.WriteJSON(w, http.StatusOK, reqID, "login successful", LoginResponse{AccessToken: token})
}
