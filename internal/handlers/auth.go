package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"notehub/internal/auth"
	"notehub/internal/logger"
	"notehub/internal/middleware"
	"notehub/internal/storage"
	"notehub/internal/utils"
)

type AuthHandler struct {
	store    storage.Store
	tokens   *auth.TokenService
	log      *slog.Logger
	validate *validator.Validate
}

type registerReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.JSONError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.log.Error("hash password", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username, hash)
	if errors.Is(err, storage.ErrUserExists) {
		utils.JSONError(w, http.StatusBadRequest, "username already registered")
		return
	}
	if err != nil {
		h.log.Error("create user", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.log.Info("user registered", slog.String("username", user.Username))
	utils.JSON(w, http.StatusCreated, user)
}

// Login takes form-encoded credentials and returns a bearer token. Unknown
// usernames and wrong passwords get the same answer.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utils.JSONError(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	if username == "" || password == "" {
		utils.JSONError(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), username)
	if errors.Is(err, storage.ErrUserNotFound) {
		h.loginFailed(w, username)
		return
	}
	if err != nil {
		h.log.Error("get user", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !auth.CheckPassword(password, user.Password) {
		h.loginFailed(w, username)
		return
	}

	token, err := h.tokens.Issue(user.Username)
	if err != nil {
		h.log.Error("issue token", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}

	utils.JSON(w, http.StatusOK, tokenResp{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) loginFailed(w http.ResponseWriter, username string) {
	h.log.Warn("login failed", slog.String("username", username))
	w.Header().Set("WWW-Authenticate", "Bearer")
	utils.JSONError(w, http.StatusUnauthorized, "incorrect username or password")
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		utils.JSONError(w, http.StatusUnauthorized, "could not validate credentials")
		return
	}
	utils.JSON(w, http.StatusOK, user)
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.log.Error("list users", logger.Err(err))
		utils.JSONError(w, http.StatusInternalServerError, "internal error")
		return
	}
	utils.JSON(w, http.StatusOK, users)
}
