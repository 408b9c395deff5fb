// Package web serves the dashboard: a page of switch controls rendered from
// the panel's state store. Toggles post back here and are dispatched to the
// switch server; the page itself never mutates state.
package web

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/julienschmidt/httprouter"

	"github.com/imperator765/swpanel/state"
)

const defaultWebAddress = ":8080"
const httpTimeoutsMs = 3000
const themeCookieName = "swpanel_dark"

// Toggler dispatches a toggle for a named switch.
type Toggler interface {
	Toggle(ctx context.Context, name string) error
}

type Server struct {
	store   *state.Store
	toggler Toggler
	server  *http.Server
	logger  *log.Logger
}

func NewServer(addr string, store *state.Store, toggler Toggler) *Server {
	if len(addr) == 0 {
		addr = defaultWebAddress
	}

	srv := &Server{
		store:   store,
		toggler: toggler,
		logger: log.NewWithOptions(os.Stderr, log.Options{
			Prefix: "Web: ",
			Level:  log.GetLevel(),
		}),
	}

	handler := httprouter.New()
	handler.GET("/", srv.handleIndex)
	handler.POST("/switch/:name/toggle", srv.handleToggle)
	handler.POST("/theme", srv.handleTheme)

	httpTimeout := httpTimeoutsMs * time.Millisecond

	srv.server = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       httpTimeout,
		ReadHeaderTimeout: httpTimeout,
		WriteTimeout:      httpTimeout,
		IdleTimeout:       2 * httpTimeout,
	}

	return srv
}

func (srv *Server) ListenAndServe() error {
	srv.logger.Info("serving dashboard", "addr", srv.server.Addr)
	return srv.server.ListenAndServe()
}

func (srv *Server) Close() error {
	return srv.server.Close()
}

func (srv *Server) handleIndex(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	view := BuildView(srv.store.Snapshot(), darkTheme(r))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := Render(w, view)
	if err != nil {
		srv.logger.Error("failed to render dashboard", "err", err)
	}
}

func (srv *Server) handleToggle(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
	name := p.ByName("name")

	err := srv.toggler.Toggle(r.Context(), name)
	if err != nil {
		// failures surface on the banner, the page is re-rendered either way
		srv.logger.Error("toggle failed", "switch", name, "err", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleTheme flips the theme flag: the only mutation the view owns, with no
// network effect.
func (srv *Server) handleTheme(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	value := "1"
	if darkTheme(r) {
		value = "0"
	}
	http.SetCookie(w, &http.Cookie{
		Name:  themeCookieName,
		Value: value,
		Path:  "/",
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func darkTheme(r *http.Request) bool {
	cookie, err := r.Cookie(themeCookieName)
	if err != nil {
		return false
	}
	return cookie.Value == "1"
}
