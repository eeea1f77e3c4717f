package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())
	return buf.Bytes()
}

func gunzip(t *testing.T, data []byte) string {
	t.Helper()
	reader, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	plain, err := io.ReadAll(reader)
	require.NoError(t, err)
	return string(plain)
}

func contentHandler(contentType string, status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

func TestGzipResponse(t *testing.T) {
	type tTestCase struct {
		name           string
		acceptEncoding string
		contentType    string
		status         int
		wantCompressed bool
	}
	testCases := []tTestCase{
		{name: "json accepted", acceptEncoding: "gzip, deflate", contentType: "application/json", status: http.StatusOK, wantCompressed: true},
		{name: "text accepted", acceptEncoding: "gzip", contentType: "text/plain; charset=utf-8", status: http.StatusCreated, wantCompressed: true},
		{name: "client without gzip", acceptEncoding: "", contentType: "application/json", status: http.StatusOK},
		{name: "binary content", acceptEncoding: "gzip", contentType: "image/png", status: http.StatusOK},
		{name: "error status", acceptEncoding: "gzip", contentType: "application/json", status: http.StatusNotFound},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			body := `{"id":"1","name":"readme.txt"}`
			handler := GzipResponse(contentHandler(testCase.contentType, testCase.status, body))

			request := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.acceptEncoding != "" {
				request.Header.Set("Accept-Encoding", testCase.acceptEncoding)
			}
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, testCase.status, recorder.Code)
			if testCase.wantCompressed {
				assert.Equal(t, "gzip", recorder.Header().Get("Content-Encoding"))
				assert.Equal(t, body, gunzip(t, recorder.Body.Bytes()))
				return
			}
			assert.Empty(t, recorder.Header().Get("Content-Encoding"))
			assert.Equal(t, body, recorder.Body.String())
		})
	}
}

func TestGzipResponseImplicitHeader(t *testing.T) {
	handler := GzipResponse(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("Accept-Encoding", "gzip")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]", gunzip(t, recorder.Body.Bytes()))
}

func TestUngzipRequest(t *testing.T) {
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	})
	srv := httptest.NewServer(UngzipRequest(echo))
	defer srv.Close()

	type tTestCase struct {
		name     string
		body     []byte
		encoding string
		wantCode int
		wantBody string
	}
	testCases := []tTestCase{
		{name: "gzipped", body: gzipString(t, `{"name":"a"}`), encoding: "gzip", wantCode: http.StatusOK, wantBody: `{"name":"a"}`},
		{name: "plain", body: []byte(`{"name":"b"}`), wantCode: http.StatusOK, wantBody: `{"name":"b"}`},
		{name: "broken gzip", body: []byte("not gzip at all"), encoding: "gzip", wantCode: http.StatusBadRequest},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := resty.New().R().SetBody(testCase.body)
			if testCase.encoding != "" {
				req.SetHeader("Content-Encoding", testCase.encoding)
			}

			resp, err := req.Post(srv.URL)
			require.NoError(t, err)

			assert.Equal(t, testCase.wantCode, resp.StatusCode())
			if testCase.wantBody != "" {
				assert.Equal(t, testCase.wantBody, string(resp.Body()))
			}
		})
	}
}
