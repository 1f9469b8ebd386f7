package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/RishiKendai/textscan/internal/models"
)

func TestStatusErrorMatching(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, ErrNotFound},
		{http.StatusServiceUnavailable, ErrUnavailable},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusGatewayTimeout, ErrTimeout},
	}
	for _, tt := range tests {
		err := error(&StatusError{Service: "storage", Status: tt.status})
		if !errors.Is(err, tt.want) {
			t.Errorf("status %d does not match %v", tt.status, tt.want)
		}
	}
	if errors.Is(&StatusError{Status: http.StatusBadRequest}, ErrUnavailable) {
		t.Error("400 matched ErrUnavailable")
	}
}

func TestStorageClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/files/known":
			w.Header().Set("Content-Type", "text/plain")
			io.WriteString(w, "hello world")
		case r.Method == http.MethodGet && r.URL.Path == "/files/missing":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":"File not found","code":"NOT_FOUND"}`)
		case r.Method == http.MethodPost && r.URL.Path == "/files":
			file, header, err := r.FormFile("file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(file)
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(models.UploadResult{FileID: "new", Filename: header.Filename, Size: int64(len(data))})
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	c := NewStorageClient(srv.URL, 5*time.Second)
	ctx := context.Background()

	data, err := c.GetContent(ctx, "known")
	if err != nil || string(data) != "hello world" {
		t.Fatalf("GetContent() = %q, %v", data, err)
	}

	_, err = c.GetContent(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetContent(missing) = %v, want ErrNotFound", err)
	}
	var statusErr *StatusError
	if !errors.As(err, &statusErr) || statusErr.Code != "NOT_FOUND" || statusErr.Message != "File not found" {
		t.Fatalf("StatusError = %+v", statusErr)
	}

	res, err := c.Upload(ctx, "a.txt", []byte("abc"))
	if err != nil || res.FileID != "new" || res.Filename != "a.txt" || res.Size != 3 {
		t.Fatalf("Upload() = %+v, %v", res, err)
	}

	if _, err := c.List(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("List() on 500 = %v, want ErrUnavailable", err)
	}
}

func TestClientTransportErrors(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	c := NewStorageClient(slow.URL, 50*time.Millisecond)
	if _, err := c.GetContent(context.Background(), "x"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("GetContent() on slow server = %v, want ErrTimeout", err)
	}

	down := httptest.NewServer(http.NotFoundHandler())
	url := down.URL
	down.Close()

	c = NewStorageClient(url, time.Second)
	if _, err := c.GetContent(context.Background(), "x"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("GetContent() on closed server = %v, want ErrUnavailable", err)
	}
}

func TestAnalysisClientAnalyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req models.AnalyzeRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.FileID == "dup" {
			io.WriteString(w, `{"duplicate_of":"orig"}`)
			return
		}
		io.WriteString(w, `{"file_id":"`+req.FileID+`","paragraphs":0,"words":0,"chars":0}`)
	}))
	defer srv.Close()

	c := NewAnalysisClient(srv.URL, time.Second)
	res, err := c.Analyze(context.Background(), "dup")
	if err != nil || res.DuplicateOf != "orig" {
		t.Fatalf("Analyze(dup) = %+v, %v", res, err)
	}
	res, err = c.Analyze(context.Background(), "f1")
	if err != nil || res.DuplicateOf != "" || res.FileID != "f1" {
		t.Fatalf("Analyze(f1) = %+v, %v", res, err)
	}
}
