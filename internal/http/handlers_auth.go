package http

import (
	"errors"
	"net/http"

	"kfz/internal/auth"
	"kfz/internal/storage"
)

type loginPage struct {
	Error string
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.render(w, r, "login.html", loginPage{})
	case http.MethodPost:
		s.handleLoginSubmit(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		s.render(w, r, "login.html", loginPage{Error: "Ungültige Anfrage"})
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	user, err := s.store.GetUserByUsername(r.Context(), username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.ErrorContext(r.Context(), "User lookup failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		s.render(w, r, "login.html", loginPage{Error: "Interner Fehler"})
		return
	}
	// Same response for unknown user and wrong password.
	if err != nil || !auth.CheckPassword(user.PasswordHash, password) {
		s.log.WarnContext(r.Context(), "Login failed", "username", username)
		w.WriteHeader(http.StatusUnauthorized)
		s.render(w, r, "login.html", loginPage{Error: "Benutzername oder Passwort falsch"})
		return
	}

	token, err := s.sessions.Create(username)
	if err != nil {
		s.log.ErrorContext(r.Context(), "Session creation failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		s.render(w, r, "login.html", loginPage{Error: "Interner Fehler"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.log.InfoContext(r.Context(), "Login succeeded", "username", username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if cookie, err := r.Cookie(sessionCookie); err == nil {
		s.sessions.Destroy(cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
