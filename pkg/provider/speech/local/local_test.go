package local

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nmtri/docviet/pkg/provider/speech"
)

func TestSynthesize(t *testing.T) {
	t.Parallel()

	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != ttsEndpoint {
			t.Errorf("path = %q, want %q", r.URL.Path, ttsEndpoint)
		}
		q := r.URL.Query()
		gotQuery = map[string]string{
			"text":        q.Get("text"),
			"language_id": q.Get("language_id"),
			"speaker_id":  q.Get("speaker_id"),
			"speed":       q.Get("speed"),
			"pitch":       q.Get("pitch"),
		}
		w.Header().Set("Content-Type", "audio/wav")
		_, _ = w.Write([]byte("RIFF-fake-wav"))
	}))
	defer srv.Close()

	e, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wav, err := e.Synthesize(context.Background(), "mèo", speech.Params{
		Voice: speech.Voice{ID: "vi-02"},
		Rate:  0.9,
		Pitch: 1.8,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if string(wav) != "RIFF-fake-wav" {
		t.Errorf("wav = %q", wav)
	}

	want := map[string]string{
		"text":        "mèo",
		"language_id": "vi-VN",
		"speaker_id":  "vi-02",
		"speed":       "0.90",
		"pitch":       "1.80",
	}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestSynthesize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler http.HandlerFunc
		text    string
	}{
		{
			name:    "empty text",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			text:    "",
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "model not loaded", http.StatusServiceUnavailable)
			},
			text: "mèo",
		},
		{
			name:    "empty audio",
			handler: func(w http.ResponseWriter, r *http.Request) {},
			text:    "mèo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			e, err := New(srv.URL)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			if _, err := e.Synthesize(context.Background(), tt.text, speech.Params{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestListVoices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != voicesEndpoint {
			t.Errorf("path = %q, want %q", r.URL.Path, voicesEndpoint)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "vi-01", "name": "Linh", "language": "vi-VN", "gender": "female"},
			{"id": "vi-02", "name": "Nam Minh", "language": "vi-VN"}
		]`))
	}))
	defer srv.Close()

	e, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	voices, err := e.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[0].ID != "vi-01" || voices[0].Metadata["gender"] != "female" {
		t.Errorf("voices[0] = %+v", voices[0])
	}
	if voices[1].Metadata != nil {
		t.Errorf("voices[1].Metadata = %v, want nil when gender absent", voices[1].Metadata)
	}
}

func TestListVoices_CatalogueStillWarmingUp(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	e, err := New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	voices, err := e.ListVoices(context.Background())
	if err != nil {
		t.Fatalf("ListVoices: %v", err)
	}
	if len(voices) != 0 {
		t.Errorf("got %d voices, want 0", len(voices))
	}
}

func TestNew_RequiresServerURL(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Error("expected an error for empty serverURL")
	}
}
