package server

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/KaramelBytes/readmegen-cli/internal/github"
	"github.com/KaramelBytes/readmegen-cli/internal/render"
	"github.com/KaramelBytes/readmegen-cli/internal/workflow"
)

const themeCookie = "readmegen_theme"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(r)
	if sess == nil {
		s.Success(w, http.StatusOK, workflow.State{})
		return
	}
	s.Success(w, http.StatusOK, sess.ctl.State())
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, s.sessions.lookup(r), pageHome, "", "")
}

// handleRepoView loads the repository named by the path, unless the session
// already shows it or the form submit that redirected here just tried it, and
// renders the repository view.
func (s *Server) handleRepoView(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")

	st := sess.ctl.State()
	ref := github.RepoRef{Owner: owner, Repo: github.TrimGitSuffix(repo)}
	justFetched := sess.takeFetched(ref)
	stale := st.Repository == nil || !strings.EqualFold(st.Repository.FullName, ref.String())
	if (stale && !justFetched) || r.URL.Query().Has("refresh") {
		_ = sess.ctl.FetchRepositoryPath(r.Context(), owner, repo)
	}
	s.renderPage(w, r, sess, pageRepo, ref.Owner, ref.Repo)
}

// handleFetch parses the submitted URL. On a valid URL the browser is sent to
// the repository view; otherwise back home with the error set.
func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	raw := r.FormValue("url")

	err := sess.ctl.FetchRepository(r.Context(), raw)
	if wantsJSON(r) {
		st := sess.ctl.State()
		if err != nil {
			s.Error(w, statusFor(err), st.Error)
			return
		}
		s.Success(w, http.StatusOK, st)
		return
	}
	if ref, ok := github.ParseRepoURL(raw); ok {
		sess.markFetched(ref)
		http.Redirect(w, r, repoPath(ref), http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.get(w, r)
	cur := s.currentSettings()
	credential := strings.TrimSpace(r.FormValue("api_key"))
	if credential == "" {
		credential = cur.Credential
	}

	res := sess.ctl.GenerateDocument(r.Context(), credential, r.FormValue("email"))
	if wantsJSON(r) {
		if !res.Success {
			s.Error(w, statusFor(res.Err), res.Error)
			return
		}
		s.Success(w, http.StatusOK, res)
		return
	}
	http.Redirect(w, r, currentPath(sess.ctl.State()), http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.lookup(r)
	if sess == nil {
		s.Error(w, http.StatusNotFound, "no README has been generated yet")
		return
	}
	st := sess.ctl.State()
	if st.GeneratedDocument == "" {
		sess.Error(workflow.MsgDownloadFailed)
		s.Error(w, http.StatusNotFound, "no README has been generated yet")
		return
	}
	if err := sess.ctl.DownloadDocument(workflow.HTTPDownloader{W: w}, st.GeneratedDocument, sess.ctl.DownloadFilename()); err != nil {
		s.logger.Warn("download failed", "error", err)
	}
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if sess := s.sessions.lookup(r); sess != nil {
		sess.ctl.Reset()
	}
	if wantsJSON(r) {
		s.Success(w, http.StatusOK, workflow.State{})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleTheme flips the dark/light preference stored in a cookie.
func (s *Server) handleTheme(w http.ResponseWriter, r *http.Request) {
	next := themeDark
	if themeFrom(r) == themeDark {
		next = themeLight
	}
	http.SetCookie(w, &http.Cookie{
		Name:     themeCookie,
		Value:    next,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		SameSite: http.SameSiteLaxMode,
	})
	if wantsJSON(r) {
		s.Success(w, http.StatusOK, map[string]string{"theme": next})
		return
	}
	http.Redirect(w, r, localReturn(r.FormValue("return")), http.StatusSeeOther)
}

const (
	themeDark  = "dark"
	themeLight = "light"
)

func themeFrom(r *http.Request) string {
	if c, err := r.Cookie(themeCookie); err == nil && c.Value == themeLight {
		return themeLight
	}
	return themeDark
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func repoPath(ref github.RepoRef) string {
	return "/" + url.PathEscape(ref.Owner) + "/" + url.PathEscape(ref.Repo)
}

// currentPath is the view that shows st: the repository view when one is
// loaded, home otherwise.
func currentPath(st workflow.State) string {
	if st.Repository == nil {
		return "/"
	}
	owner, name, ok := strings.Cut(st.Repository.FullName, "/")
	if !ok {
		return "/"
	}
	return repoPath(github.RepoRef{Owner: owner, Repo: name})
}

// localReturn accepts only same-origin absolute paths.
func localReturn(p string) string {
	if p == "" || !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return "/"
	}
	return p
}

// renderPage renders kind for sess. A nil sess renders the empty state.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, sess *session, kind, owner, repo string) {
	var (
		st      workflow.State
		flashes []Flash
	)
	if sess != nil {
		st = sess.ctl.State()
		flashes = sess.drain()
	}
	data := pageData{
		Kind:          kind,
		Theme:         themeFrom(r),
		State:         st,
		Flashes:       flashes,
		Owner:         owner,
		Repo:          repo,
		Raw:           r.URL.Query().Get("view") == "raw",
		Filename:      workflow.DownloadFilenameFor(st.Repository),
		Model:         s.currentSettings().Model,
		HasCredential: s.currentSettings().Credential != "",
		Path:          r.URL.Path,
	}
	if st.GeneratedDocument != "" {
		html, err := render.HTML(st.GeneratedDocument)
		if err != nil {
			s.logger.Warn("preview render failed", "error", err)
			data.Raw = true
		} else {
			data.Preview = html
		}
		data.Outline = render.Inspect(st.GeneratedDocument)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, data); err != nil {
		s.logger.Error("render page", "error", err)
	}
}
