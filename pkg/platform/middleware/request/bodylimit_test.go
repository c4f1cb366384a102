package request

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBodyLimit(t *testing.T) {
	read := func(limit int64, body string) error {
		var readErr error
		h := BodyLimit(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, readErr = io.ReadAll(r.Body)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/submit-dkyc", strings.NewReader(body)))
		return readErr
	}

	assert.NoError(t, read(100, strings.Repeat("x", 100)))

	err := read(100, strings.Repeat("x", 101))
	var maxErr *http.MaxBytesError
	assert.ErrorAs(t, err, &maxErr)
}
