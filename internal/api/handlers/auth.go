// auth.go — обработчики /api/v1/auth endpoints: регистрация и вход.
package handlers

import (
	"net/http"
	"time"

	"github.com/ArokiaMartinN/agriqcert/internal/domain/model"
	"github.com/ArokiaMartinN/agriqcert/internal/service"
)

// userResponse — публичное представление пользователя (без хэша пароля).
type userResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Organization string `json:"organization,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// authResponse — ответ register/login: токен + пользователь.
type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// registerRequest — тело запроса регистрации.
type registerRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Role         string `json:"role"`
	Organization string `json:"organization"`
}

// loginRequest — тело запроса входа.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register — POST /api/v1/auth/register.
// Создаёт пользователя и возвращает JWT. Доступ: публичный.
func (h *APIHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.auth.Register(r.Context(), service.RegisterInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		Organization: req.Organization,
	})
	if err != nil {
		h.writeServiceError(w, err, "Ошибка регистрации пользователя")
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: token,
		User:  mapUser(user),
	})
}

// Login — POST /api/v1/auth/login.
// Проверяет учётные данные и возвращает JWT. Доступ: публичный.
func (h *APIHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeServiceError(w, err, "Ошибка входа пользователя")
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: token,
		User:  mapUser(user),
	})
}

// mapUser конвертирует domain model в API-представление.
func mapUser(u *model.User) userResponse {
	resp := userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Organization: u.Organization,
	}
	if !u.CreatedAt.IsZero() {
		resp.CreatedAt = u.CreatedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
