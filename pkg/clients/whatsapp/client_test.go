package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smileclinic/whatsbot/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *APIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(config.WhatsAppConfig{
		AccessToken:   "secret",
		PhoneNumberID: "123",
		BaseURL:       srv.URL + "/",
		APIVersion:    "v21.0",
	})
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestSendTextMessage(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v21.0/123/messages", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.1"}]}`)
	})

	resp, err := c.SendTextMessage(context.Background(), SendTextMessageRequest{To: "962790000001", Body: "مرحبا"})
	require.NoError(t, err)
	require.Len(t, resp.Messages, 1)
	assert.Equal(t, "wamid.1", resp.Messages[0].ID)

	assert.Equal(t, "text", got["type"])
	assert.Equal(t, "962790000001", got["to"])
	assert.Equal(t, "مرحبا", got["text"].(map[string]any)["body"])
}

func TestSendInteractiveButtons(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.2"}]}`)
	})

	_, err := c.SendInteractiveButtons(context.Background(), SendButtonsRequest{
		To:      "962790000001",
		Body:    "اختر",
		Buttons: []Button{{ID: "slot_3pm", Title: "3 PM"}, {ID: "slot_6pm", Title: "6 PM"}},
	})
	require.NoError(t, err)

	interactive := got["interactive"].(map[string]any)
	assert.Equal(t, "button", interactive["type"])
	buttons := interactive["action"].(map[string]any)["buttons"].([]any)
	require.Len(t, buttons, 2)
	reply := buttons[1].(map[string]any)["reply"].(map[string]any)
	assert.Equal(t, "slot_6pm", reply["id"])
}

func TestSendInteractiveButtonsRejectsTooMany(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.SendInteractiveButtons(context.Background(), SendButtonsRequest{
		To:      "1",
		Body:    "x",
		Buttons: []Button{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}},
	})
	assert.Error(t, err)
}

func TestSendInteractiveList(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeBody(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.3"}]}`)
	})

	_, err := c.SendInteractiveList(context.Background(), SendListRequest{
		To:         "1",
		Header:     "الخدمات",
		Body:       "اختر",
		ButtonText: "عرض",
		Sections:   []ListSection{{Title: "basic", Rows: []ListRow{{ID: "service_فحص عام", Title: "فحص عام"}}}},
	})
	require.NoError(t, err)

	interactive := got["interactive"].(map[string]any)
	assert.Equal(t, "list", interactive["type"])
	assert.Equal(t, "الخدمات", interactive["header"].(map[string]any)["text"])
	sections := interactive["action"].(map[string]any)["sections"].([]any)
	require.Len(t, sections, 1)
}

func TestAPIErrorIsReported(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid parameter","code":100}}`)
	})

	_, err := c.SendImage(context.Background(), SendImageRequest{To: "1", Link: "https://cdn/x.jpg"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code=100")
	assert.Contains(t, err.Error(), "Invalid parameter")
}

func TestUploadMediaAndSendAudio(t *testing.T) {
	var audio map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v21.0/123/media":
			if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
				return
			}
			assert.Equal(t, "whatsapp", r.FormValue("messaging_product"))
			file, header, err := r.FormFile("file")
			if !assert.NoError(t, err) {
				return
			}
			defer file.Close()
			assert.Equal(t, "reply.ogg", header.Filename)
			data, _ := io.ReadAll(file)
			assert.Equal(t, []byte("OggS"), data)
			_, _ = io.WriteString(w, `{"id":"media-1"}`)
		case "/v21.0/123/messages":
			audio = decodeBody(t, r)
			_, _ = io.WriteString(w, `{"messages":[{"id":"wamid.4"}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := c.UploadMedia(context.Background(), UploadMediaRequest{Data: []byte("OggS"), Filename: "reply.ogg", MimeType: "audio/ogg"})
	require.NoError(t, err)
	assert.Equal(t, "media-1", id)

	_, err = c.SendAudio(context.Background(), SendAudioRequest{To: "1", MediaID: id, Voice: true})
	require.NoError(t, err)
	body := audio["audio"].(map[string]any)
	assert.Equal(t, "media-1", body["id"])
	assert.Equal(t, true, body["voice"])
}

func TestDownloadMedia(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v21.0/media-9":
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"url":"`+srvURL+`/files/media-9","mime_type":"audio/ogg; codecs=opus"}`)
		case "/files/media-9":
			assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte("voice-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	c := NewClient(config.WhatsAppConfig{AccessToken: "secret", PhoneNumberID: "123", BaseURL: srv.URL, APIVersion: "v21.0"})

	media, err := c.DownloadMedia(context.Background(), "media-9")
	require.NoError(t, err)
	assert.Equal(t, []byte("voice-bytes"), media.Data)
	assert.Equal(t, "audio/ogg; codecs=opus", media.MimeType)
}
