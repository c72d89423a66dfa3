package api

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"

	vherr "github.com/vidhive/vidhive-server/pkg/errors"

	"github.com/vidhive/vidhive-server/pkg/service"
	"github.com/vidhive/vidhive-server/pkg/store"
)

// maxMultipartMemory caps the in-memory portion of a multipart parse;
// larger file parts spill to temporary files.
const maxMultipartMemory = 32 << 20

// requestPartName is the multipart part carrying the JSON payload of
// an upload request.
const requestPartName = "request"

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return vherr.Wrap(err, vherr.CodeValidation, "api: invalid request body")
	}
	return nil
}

// parseMultipart parses the request's multipart form and decodes the
// "request" part into dst. The part may arrive either as a plain form
// value or as a JSON file part; both are accepted.
func parseMultipart(r *http.Request, dst any) error {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return vherr.Wrap(err, vherr.CodeValidation, "api: invalid multipart request")
	}

	if values := r.MultipartForm.Value[requestPartName]; len(values) > 0 {
		if err := json.Unmarshal([]byte(values[0]), dst); err != nil {
			return vherr.Wrap(err, vherr.CodeValidation, "api: invalid request part")
		}
		return nil
	}

	headers := r.MultipartForm.File[requestPartName]
	if len(headers) == 0 {
		return vherr.New(vherr.CodeValidationRequired, "api: request part is required")
	}
	part, err := headers[0].Open()
	if err != nil {
		return vherr.Wrap(err, vherr.CodeValidation, "api: unreadable request part")
	}
	defer part.Close()
	if err := json.NewDecoder(part).Decode(dst); err != nil {
		return vherr.Wrap(err, vherr.CodeValidation, "api: invalid request part")
	}
	return nil
}

// formFile opens the named file part, or returns (nil, noop, nil)
// when the part is absent. The cleanup function must be called after
// the service has consumed the file.
func formFile(r *http.Request, name string) (*service.File, func(), error) {
	noop := func() {}
	if r.MultipartForm == nil {
		return nil, noop, nil
	}
	headers := r.MultipartForm.File[name]
	if len(headers) == 0 {
		return nil, noop, nil
	}

	header := headers[0]
	f, err := header.Open()
	if err != nil {
		return nil, noop, vherr.Wrapf(err, vherr.CodeValidation, "api: unreadable %s part", name)
	}
	file := &service.File{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      f,
	}
	return file, func() { closeMultipartFile(f) }, nil
}

func closeMultipartFile(f multipart.File) {
	_ = f.Close()
}

// parsePage reads the page and size query parameters. Absent or
// malformed values fall back to the store defaults.
func parsePage(r *http.Request) store.Page {
	page := store.Page{}
	if raw := r.URL.Query().Get("page"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Number = n
		}
	}
	if raw := r.URL.Query().Get("size"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			page.Size = n
		}
	}
	return page
}

// pathSeq parses the route's {id} segment as a video sequence number.
func pathSeq(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	seq, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, vherr.Newf(vherr.CodeValidation, "api: invalid id %q", raw)
	}
	return seq, nil
}
