package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dkyc/internal/kyc/handler"
	"dkyc/internal/kyc/hasher"
	"dkyc/pkg/platform/httputil"
)

const helloHash = "0x1c8aff950685c2ed4bc3174f3472287b56d9517b9c948127319a09a7a36deac8"

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestHashCommand(t *testing.T) {
	code, out, _ := runCLI(t, "hash", "-file", writeFile(t, "doc.txt", "hello"))
	require.Equal(t, 0, code)
	assert.Equal(t, helloHash+"\n", out)

	code, _, errOut := runCLI(t, "hash", "-file", writeFile(t, "empty.txt", ""))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "document is empty")

	code, _, _ = runCLI(t, "hash")
	assert.Equal(t, 1, code)
}

func TestDeriveIDCommand(t *testing.T) {
	want, err := hasher.DeriveCustomerID("Jane Doe", "1990-01-01")
	require.NoError(t, err)

	code, out, _ := runCLI(t, "derive-id", "-name", " Jane Doe ", "-dob", "1990-01-01")
	require.Equal(t, 0, code)
	assert.Equal(t, want.String()+"\n", out)
}

func TestUnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "frobnicate")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Unknown command")

	code, _, _ = runCLI(t)
	assert.Equal(t, 1, code)

	code, out, _ := runCLI(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Usage:")
}

type fakeGateway struct {
	objects map[string][]byte
	writes  []handler.WriteRequest
	paths   []string
}

func newFakeGateway(t *testing.T) (*fakeGateway, *httptest.Server) {
	t.Helper()
	g := &fakeGateway{objects: map[string][]byte{}}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload-url", func(w http.ResponseWriter, r *http.Request) {
		var req handler.UploadURLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		key := "uploads/1-" + req.Filename
		httputil.WriteJSON(w, http.StatusOK, handler.UploadURLResponse{
			UploadURL:  "http://" + r.Host + "/s3/" + key,
			StorageKey: key,
		})
	})
	mux.HandleFunc("PUT /s3/", func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		g.objects[strings.TrimPrefix(r.URL.Path, "/s3/")] = data
	})
	mux.HandleFunc("GET /s3/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(g.objects[strings.TrimPrefix(r.URL.Path, "/s3/")])
	})
	write := func(w http.ResponseWriter, r *http.Request) {
		var req handler.WriteRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		g.writes = append(g.writes, req)
		g.paths = append(g.paths, r.Method+" "+r.URL.Path)
		httputil.WriteJSON(w, http.StatusOK, handler.WriteResponse{TxID: "0xabc", Message: "ok"})
	}
	mux.HandleFunc("POST /submit-dkyc", write)
	mux.HandleFunc("PUT /update-dkyc", write)
	mux.HandleFunc("POST /download-url", func(w http.ResponseWriter, r *http.Request) {
		var req handler.DownloadURLRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		httputil.WriteJSON(w, http.StatusOK, handler.DownloadURLResponse{
			DownloadURL: "http://" + r.Host + "/s3/" + req.Key,
			Key:         req.Key,
		})
	})
	mux.HandleFunc("GET /get-dkyc", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, handler.KYCResponse{
			Customer: r.URL.Query().Get("customerId"),
			Exists:   true,
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return g, srv
}

func TestUploadSubmitsHashOfUploadedBytes(t *testing.T) {
	g, srv := newFakeGateway(t)
	doc := writeFile(t, "id.txt", "hello")

	code, out, errOut := runCLI(t, "upload", "-api", srv.URL, "-file", doc,
		"-name", "Jane Doe", "-dob", "1990-01-01", "-address", "1 Main St")
	require.Equal(t, 0, code, errOut)

	var res uploadOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, helloHash, res.DocumentHash)
	assert.Equal(t, "uploads/1-id.txt", res.StorageKey)
	assert.Equal(t, "0xabc", res.TxID)

	derived, err := hasher.DeriveCustomerID("Jane Doe", "1990-01-01")
	require.NoError(t, err)
	require.Len(t, g.writes, 1)
	assert.Equal(t, derived.String(), g.writes[0].CustomerID)
	assert.Equal(t, helloHash, g.writes[0].DocumentHash)
	assert.Equal(t, []byte("hello"), g.objects["uploads/1-id.txt"])
	assert.Equal(t, "POST /submit-dkyc", g.paths[0])
}

func TestUploadUpdate(t *testing.T) {
	g, srv := newFakeGateway(t)
	code, _, errOut := runCLI(t, "upload", "-api", srv.URL, "-update", "-file", writeFile(t, "id.png", "x"),
		"-customer", "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "-name", "Jane Doe", "-dob", "1990-01-01", "-address", "2 Side St")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "PUT /update-dkyc", g.paths[0])
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", g.writes[0].CustomerID)
}

func TestGetAndDownload(t *testing.T) {
	g, srv := newFakeGateway(t)
	g.objects["uploads/1-id.txt"] = []byte("hello")

	code, out, _ := runCLI(t, "get", "-api", srv.URL, "-customer", "0x01")
	require.Equal(t, 0, code)
	assert.Contains(t, out, `"exists": true`)

	code, out, _ = runCLI(t, "download", "-api", srv.URL, "-key", "uploads/1-id.txt")
	require.Equal(t, 0, code)
	assert.Equal(t, srv.URL+"/s3/uploads/1-id.txt\n", out)

	dest := filepath.Join(t.TempDir(), "out.txt")
	code, out, _ = runCLI(t, "download", "-api", srv.URL, "-key", "uploads/1-id.txt", "-out", dest)
	require.Equal(t, 0, code)
	assert.Contains(t, out, helloHash)
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}
