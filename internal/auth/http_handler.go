package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/hal9000y/gmail-bulk-mcp/internal/logging"
)

type tok interface {
	AuthorizeCode(context.Context, string, string) error
	OAuthToken() (*oauth2.Token, error)
	RedirectURL() (string, error)
}

// HTTPHandler serves the Gmail consent flow on a single path:
//
//	?redirect=1          sends the browser to Google's consent page
//	?code=..&state=..    exchanges the code Google redirected back with
//	?error=..            Google reported the consent as denied
//	no query             plain text status of the stored token
type HTTPHandler struct {
	tok    tok
	logger *slog.Logger
}

// NewHTTPHandler creates an HTTP handler for the OAuth2 flow.
func NewHTTPHandler(tok tok, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{tok: tok, logger: logger}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	switch {
	case q.Has("redirect"):
		h.startConsent(w, r)
	case q.Get("error") != "":
		h.logger.WarnContext(r.Context(), "consent denied", slog.String("reason", q.Get("error")))
		http.Error(w, fmt.Sprintf("Authorization denied: %s", q.Get("error")), http.StatusForbidden)
	case q.Get("code") != "":
		h.completeConsent(w, r, q.Get("code"), q.Get("state"))
	default:
		h.status(w, r)
	}
}

func (h *HTTPHandler) startConsent(w http.ResponseWriter, r *http.Request) {
	url, err := h.tok.RedirectURL()
	if err != nil {
		h.logger.ErrorContext(r.Context(), "tok.RedirectURL failed", logging.Err(err))
		http.Error(w, "Unable to start authorization", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

// completeConsent stores the token and sends the browser back to the status
// page without the one-time code in the address bar.
func (h *HTTPHandler) completeConsent(w http.ResponseWriter, r *http.Request, code, state string) {
	if err := h.tok.AuthorizeCode(r.Context(), code, state); err != nil {
		h.logger.WarnContext(r.Context(), "tok.AuthorizeCode failed", logging.Err(err))
		http.Error(w, "Unable to authorize provided code", http.StatusBadRequest)
		return
	}
	h.logger.InfoContext(r.Context(), "gmail access granted")
	http.Redirect(w, r, r.URL.EscapedPath(), http.StatusFound)
}

func (h *HTTPHandler) status(w http.ResponseWriter, r *http.Request) {
	t, err := h.tok.OAuthToken()
	switch {
	case errors.Is(err, ErrTokenNotSet):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprintf(w, "Gmail access: not granted\nOpen %s?redirect=1 to grant it.\n", r.URL.EscapedPath())
		return
	case err != nil:
		h.logger.ErrorContext(r.Context(), "tok.OAuthToken failed", logging.Err(err))
		http.Error(w, "Unable to read token", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	b.WriteString("Gmail access: granted\n")
	fmt.Fprintf(&b, "Access token: %s\n", maskLeft(t.AccessToken))
	if !t.Expiry.IsZero() {
		fmt.Fprintf(&b, "Expires: %s\n", t.Expiry.UTC().Format(time.RFC3339))
	}
	if t.RefreshToken != "" {
		b.WriteString("Refresh token: present\n")
	} else {
		b.WriteString("Refresh token: missing, access ends when the token expires\n")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(b.String()))
}

// maskLeft keeps the last four characters visible.
func maskLeft(s string) string {
	rs := []rune(s)
	for i := 0; i < len(rs)-4; i++ {
		rs[i] = 'X'
	}
	return string(rs)
}
