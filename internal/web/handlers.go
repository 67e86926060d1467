package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/JonMunkholm/csvconvert/internal/export"
	"github.com/JonMunkholm/csvconvert/internal/logging"
	"github.com/JonMunkholm/csvconvert/internal/metrics"
)

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 1 << 20

// formOverhead allows for multipart boundaries and headers around the file.
const formOverhead = 64 << 10

var errNoFile = errors.New("no file provided")

// statusResponse is the JSON view of a session.
type statusResponse struct {
	Status     core.Status      `json:"status"`
	Message    string           `json:"message"`
	FileName   string           `json:"file_name,omitempty"`
	Generation uint64           `json:"generation"`
	Columns    []string         `json:"columns"`
	Records    int              `json:"records"`
	Stats      core.ParseStats  `json:"stats"`
	Page       core.Page        `json:"page"`
	Downloads  []formatResponse `json:"downloads"`
	Error      *ErrorResponse   `json:"error,omitempty"`
}

type formatResponse struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	URL         string `json:"url"`
}

type previewResponse struct {
	Page    core.Page     `json:"page"`
	Columns []string      `json:"columns"`
	Records []core.Record `json:"records"`
}

func newStatusResponse(st core.State, pageSize int) statusResponse {
	resp := statusResponse{
		Status:     st.Status,
		Message:    st.Message(),
		FileName:   st.FileName,
		Generation: st.Generation,
		Columns:    st.Dataset.Columns(),
		Records:    st.Dataset.Len(),
		Stats:      st.Stats,
		Page:       core.Paginate(st.Dataset.Len(), pageSize, st.Page),
		Downloads:  []formatResponse{},
		Error:      newErrorResponse(st.Err),
	}
	if resp.Columns == nil {
		resp.Columns = []string{}
	}
	if st.HasData() {
		resp.Downloads = formatList()
	}
	return resp
}

func formatList() []formatResponse {
	formats := export.All()
	out := make([]formatResponse, 0, len(formats))
	for _, f := range formats {
		out = append(out, formatResponse{
			Key:         f.Key,
			Label:       f.Label,
			FileName:    f.FileName,
			ContentType: f.ContentType,
			URL:         "/api/download/" + f.Key,
		})
	}
	return out
}

// handleIndex renders the page. ?page= moves the preview; a page that is
// not an integer is a 400, the same as the preview API.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	q, err := s.parsePreviewQuery(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	st := sess.Snapshot()
	if q.Page != 0 {
		st = sess.SetPage(q.Page)
	}

	s.renderHTML(w, r, http.StatusOK, indexPage(newPageView(st, sess.PageSize(), s.cfg.Upload.MaxFileSize)))
}

// handleUpload ingests the multipart "file" field into the caller's session.
// The file picker and the drop zone both post here.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		s.respondError(w, r, err, formErrorStatus(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errNoFile, err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	logger := logging.WithFields(r.Context(), "file", header.Filename, "size", header.Size)
	logger.Debug("upload received")

	st, err := sess.Ingest(r.Context(), uploadSource{file: file, header: header})
	code := ingestStatusCode(err)

	switch {
	case isHTMX(r):
		s.renderHTML(w, r, code, workspace(newPageView(st, sess.PageSize(), s.cfg.Upload.MaxFileSize)))
	case wantsHTMLPage(r):
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		resp := newStatusResponse(st, sess.PageSize())
		if err != nil && resp.Error == nil {
			// Superseded by a newer upload; report this upload's own outcome.
			resp.Error = newErrorResponse(err)
		}
		render.Status(r, code)
		render.JSON(w, r, resp)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	render.JSON(w, r, newStatusResponse(sess.Snapshot(), sess.PageSize()))
}

// handlePreview returns one page of records. Page numbers outside the
// dataset fall back to the first page; a size outside the configured
// bounds is a 400.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	q, err := s.parsePreviewQuery(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	st := sess.Snapshot()
	size := sess.PageSize()
	if q.Size != 0 && q.Size != size {
		records, page := core.PreviewPage(st.Dataset, q.Size, q.Page)
		render.JSON(w, r, previewResponse{Page: page, Columns: nonNil(st.Dataset.Columns()), Records: nonNilRecords(records)})
		return
	}

	if q.Page != 0 {
		st = sess.SetPage(q.Page)
	}
	records, page := core.PreviewPage(st.Dataset, size, st.Page)
	render.JSON(w, r, previewResponse{Page: page, Columns: nonNil(st.Dataset.Columns()), Records: nonNilRecords(records)})
}

// handleDownload renders the current dataset in the requested format.
// Nothing to export is a 204, never an empty file.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess, err := sessionFrom(r.Context())
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	key := chi.URLParam(r, "format")
	if _, ok := export.Get(key); !ok {
		s.respondError(w, r, fmt.Errorf("%w %q", export.ErrUnknownFormat, key), http.StatusNotFound)
		return
	}

	st := sess.Snapshot()
	art, err := export.Render(key, st.Dataset, s.exportOpts)
	if err != nil {
		s.metrics.ObserveExport(key, metrics.OutcomeError, 0)
		s.respondError(w, r, err, http.StatusUnprocessableEntity)
		return
	}
	if art == nil {
		s.metrics.ObserveExport(key, metrics.OutcomeEmpty, 0)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.metrics.ObserveExport(key, metrics.OutcomeOK, len(art.Data))

	logging.WithFields(r.Context(), "format", key).Info("export rendered",
		"records", st.Dataset.Len(),
		"bytes", len(art.Data),
	)

	w.Header().Set("Content-Type", art.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(art.Data); err != nil {
		logging.FromContext(r.Context()).Warn("download write failed", "format", key, "error", err)
	}
}

func (s *Server) handleFormats(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, formatList())
}

type healthResponse struct {
	Status   string                  `json:"status"`
	Sessions int                     `json:"sessions"`
	Parses   core.ParseLimiterStatus `json:"parses"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Sessions: s.store.Len()}
	if s.limiter != nil {
		resp.Parses = s.limiter.Status()
	}
	render.JSON(w, r, resp)
}

// renderHTML writes c with the given status.
func (s *Server) renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilRecords(r []core.Record) []core.Record {
	if r == nil {
		return []core.Record{}
	}
	return r
}
