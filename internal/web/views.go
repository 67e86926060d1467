package web

// views.go holds the page and its partials as templ components.
//
// The page is small enough that the components are written directly
// against the templ runtime instead of being generated from .templ files.

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/csvconvert/internal/core"
	"github.com/JonMunkholm/csvconvert/internal/export"
)

// pageView is everything the page and its partials render from.
type pageView struct {
	State       core.State
	Records     []core.Record
	Page        core.Page
	Formats     []export.Format
	MaxFileSize int64
}

func newPageView(st core.State, pageSize int, maxFileSize int64) pageView {
	records, page := core.PreviewPage(st.Dataset, pageSize, st.Page)
	v := pageView{
		State:       st,
		Records:     records,
		Page:        page,
		MaxFileSize: maxFileSize,
	}
	if st.HasData() {
		v.Formats = export.All()
	}
	return v
}

// html collects writes and keeps the first error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) rawf(format string, args ...any) {
	h.raw(fmt.Sprintf(format, args...))
}

// text writes s escaped for element content and quoted attribute values.
func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) component(c templ.Component) {
	if h.err == nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}

// indexPage is the whole document.
func indexPage(v pageView) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>CSV Converter</title>`)
		h.raw(`<link rel="stylesheet" href="/static/style.css">`)
		h.raw(`<script src="/static/app.js" defer></script>`)
		h.raw(`</head><body><main><h1>CSV Converter</h1>`)
		h.component(dropZone(v.MaxFileSize))
		h.raw(`<section id="workspace" aria-live="polite">`)
		h.component(workspace(v))
		h.raw(`</section></main></body></html>`)
	})
}

// dropZone is the file input and drop target. Both submit the same form.
func dropZone(maxFileSize int64) templ.Component {
	return component(func(h *html) {
		h.raw(`<form id="upload-form" action="/api/upload" method="post" enctype="multipart/form-data">`)
		h.raw(`<label id="drop-zone" class="drop-zone">`)
		h.raw(`<span>Drop a CSV file here, or choose one</span>`)
		h.raw(`<input id="file-input" type="file" name="file" accept=".csv,text/csv">`)
		h.rawf(`<small>Up to %s</small>`, templ.EscapeString(humanBytes(maxFileSize)))
		h.raw(`</label><noscript><button type="submit">Convert</button></noscript></form>`)
	})
}

// workspace is the part of the page replaced after every upload.
func workspace(v pageView) templ.Component {
	return component(func(h *html) {
		h.component(statusLine(v.State))
		if !v.State.HasData() {
			return
		}
		h.component(downloads(v.Formats))
		h.component(previewTable(v.State.Dataset.Columns(), v.Records))
		h.component(pager(v.Page))
	})
}

func statusLine(st core.State) templ.Component {
	return component(func(h *html) {
		h.rawf(`<p id="status" class="status status-%s" role="status" data-generation="%d">`,
			st.Status, st.Generation)
		h.text(st.Message())
		h.raw(`</p>`)
	})
}

func previewTable(columns []string, records []core.Record) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="table-wrap"><table class="preview"><thead><tr>`)
		for _, col := range columns {
			h.raw(`<th scope="col">`)
			h.text(col)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, rec := range records {
			h.raw(`<tr>`)
			for i := range rec.Len() {
				v := rec.At(i)
				switch {
				case v.IsNull():
					h.raw(`<td class="null"></td>`)
				case v.Kind() == core.KindNumber:
					h.raw(`<td class="number">`)
					h.text(v.Text())
					h.raw(`</td>`)
				default:
					h.raw(`<td>`)
					h.text(v.Text())
					h.raw(`</td>`)
				}
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div>`)
	})
}

func pager(p core.Page) templ.Component {
	return component(func(h *html) {
		h.raw(`<nav class="pager" aria-label="Preview pages">`)
		if p.HasPrev() {
			h.rawf(`<a rel="prev" href="/?page=%d">Previous</a>`, p.Number-1)
		}
		h.rawf(`<span>Page %d of %d (%d records)</span>`, p.Number, p.TotalPages, p.Total)
		if p.HasNext() {
			h.rawf(`<a rel="next" href="/?page=%d">Next</a>`, p.Number+1)
		}
		h.raw(`</nav>`)
	})
}

func downloads(formats []export.Format) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="downloads">`)
		for _, f := range formats {
			h.raw(`<a class="button" href="/api/download/`)
			h.text(url.PathEscape(f.Key))
			h.raw(`" download="`)
			h.text(f.FileName)
			h.raw(`">`)
			h.text(f.Label)
			h.raw(`</a>`)
		}
		h.raw(`</div>`)
	})
}

// errorAlert renders a request error that never reached the session.
func errorAlert(msg core.UserMessage) templ.Component {
	return component(func(h *html) {
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(msg.Message)
		h.raw(`</strong>`)
		if msg.Action != "" {
			h.raw(` <span>`)
			h.text(msg.Action)
			h.raw(`</span>`)
		}
		h.raw(` <code>`)
		h.text(msg.Code)
		h.raw(`</code></div>`)
	})
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + " B"
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
