package bserve

import (
	"context"
	"io"
	"mime"
	"net/http"
	"path"
	"path/filepath"
)

// ErrorRenderer turns an error code into a response. The request is nil when
// the error occurred before a request could be constructed.
type ErrorRenderer interface {
	RenderError(ctx context.Context, w *Response, r *Request, code Code)
}

// ErrorPages is the default renderer. It responds with the status text as a
// plain text body, or with the contents of NotFoundFile for [CodeNotFound]
// when it is set and can be read.
type ErrorPages struct {
	NotFoundFile string
	Files        FileSource
}

// RenderError implements [ErrorRenderer].
func (p ErrorPages) RenderError(ctx context.Context, w *Response, _ *Request, code Code) {
	if code == CodeUnknown {
		code = CodeInternalServerError
	}

	w.Reset()
	w.SetStatus(int(code))

	if code == CodeNotFound && p.NotFoundFile != "" && p.sendNotFoundFile(ctx, w) {
		return
	}

	w.Header().Set("content-type", "text/plain; charset=utf-8")
	w.SendString(http.StatusText(int(code)))
}

func (p ErrorPages) sendNotFoundFile(ctx context.Context, w *Response) bool {
	files := p.Files
	if files == nil {
		files = DirSource{}
	}

	rc, err := files.Open(ctx, filepath.Dir(p.NotFoundFile), filepath.Base(p.NotFoundFile))
	if err != nil {
		return false
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return false
	}

	if ctype := mime.TypeByExtension(path.Ext(p.NotFoundFile)); ctype != "" {
		w.Header().Set("content-type", ctype)
	}
	w.Send(data)

	return true
}

var _ ErrorRenderer = ErrorPages{}
