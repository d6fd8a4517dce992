package packapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/stickerbot/core/media"
)

const testToken = "123456:test-token"

type apiCall struct {
	Method   string
	Fields   map[string]string
	FileName string
	FileData []byte
}

// mockBotAPI records sticker-method calls and answers each with the
// next scripted response body.
type mockBotAPI struct {
	t         *testing.T
	responses []string
	calls     []apiCall
}

func (m *mockBotAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(m.t, http.MethodPost, r.Method)
		prefix := "/bot" + testToken + "/"
		require.True(m.t, len(r.URL.Path) > len(prefix), "unexpected path %s", r.URL.Path)
		require.Equal(m.t, prefix, r.URL.Path[:len(prefix)])

		require.NoError(m.t, r.ParseMultipartForm(1<<20))
		call := apiCall{
			Method: r.URL.Path[len(prefix):],
			Fields: map[string]string{},
		}
		for key, vals := range r.MultipartForm.Value {
			call.Fields[key] = vals[0]
		}
		if file, header, err := r.FormFile("sticker_file_0"); err == nil {
			data, err := io.ReadAll(file)
			require.NoError(m.t, err)
			_ = file.Close()
			call.FileName = header.Filename
			call.FileData = data
		}
		m.calls = append(m.calls, call)

		body := `{"ok":true}`
		if len(m.responses) > 0 {
			body = m.responses[0]
			m.responses = m.responses[1:]
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func newTestClient(t *testing.T, api *mockBotAPI) (*Client, *httptest.Server) {
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	c := New(Options{
		Token:       testToken,
		OwnerID:     777,
		BotUsername: "mybot",
		BaseURL:     srv.URL,
	}, srv.Client())
	return c, srv
}

func stillItem() media.Normalized {
	return media.Normalized{
		Payload: []byte("fake-png-bytes"),
		Width:   512,
		Height:  384,
		Format:  media.FormatStaticPNG,
	}
}

func TestAddToPackCreatesSet(t *testing.T) {
	api := &mockBotAPI{t: t}
	c, _ := newTestClient(t, api)

	link, err := c.AddToPack(context.Background(), "My Memes", stillItem(), "😀")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/addstickers/My_Memes_by_mybot", link)

	require.Len(t, api.calls, 1)
	call := api.calls[0]
	assert.Equal(t, "createNewStickerSet", call.Method)
	assert.Equal(t, "777", call.Fields["user_id"])
	assert.Equal(t, "My_Memes_by_mybot", call.Fields["name"])
	assert.Equal(t, "My Memes", call.Fields["title"])
	assert.Equal(t, "sticker.png", call.FileName)
	assert.Equal(t, []byte("fake-png-bytes"), call.FileData)

	var stickers []struct {
		Sticker   string   `json:"sticker"`
		Format    string   `json:"format"`
		EmojiList []string `json:"emoji_list"`
	}
	require.NoError(t, json.Unmarshal([]byte(call.Fields["stickers"]), &stickers))
	require.Len(t, stickers, 1)
	assert.Equal(t, "attach://sticker_file_0", stickers[0].Sticker)
	assert.Equal(t, "static", stickers[0].Format)
	assert.Equal(t, []string{"😀"}, stickers[0].EmojiList)
}

func TestAddToPackFallsBackToExistingSet(t *testing.T) {
	api := &mockBotAPI{t: t, responses: []string{
		`{"ok":false,"error_code":400,"description":"Bad Request: sticker set name is already occupied"}`,
		`{"ok":true}`,
	}}
	c, _ := newTestClient(t, api)

	link, err := c.AddToPack(context.Background(), "Memes", stillItem(), "🔥")
	require.NoError(t, err)
	assert.Equal(t, "https://t.me/addstickers/Memes_by_mybot", link)

	require.Len(t, api.calls, 2)
	assert.Equal(t, "createNewStickerSet", api.calls[0].Method)

	add := api.calls[1]
	assert.Equal(t, "addStickerToSet", add.Method)
	assert.Equal(t, "Memes_by_mybot", add.Fields["name"])
	assert.Equal(t, "777", add.Fields["user_id"])

	var sticker struct {
		Sticker   string   `json:"sticker"`
		Format    string   `json:"format"`
		EmojiList []string `json:"emoji_list"`
	}
	require.NoError(t, json.Unmarshal([]byte(add.Fields["sticker"]), &sticker))
	assert.Equal(t, "attach://sticker_file_0", sticker.Sticker)
	assert.Equal(t, []string{"🔥"}, sticker.EmojiList)
}

func TestAddToPackAnimatedFormat(t *testing.T) {
	api := &mockBotAPI{t: t}
	c, _ := newTestClient(t, api)

	item := media.Normalized{Payload: []byte("webm"), Format: media.FormatAnimatedWebM}
	_, err := c.AddToPack(context.Background(), "Memes", item, "😀")
	require.NoError(t, err)

	require.Len(t, api.calls, 1)
	assert.Equal(t, "sticker.webm", api.calls[0].FileName)
	assert.Contains(t, api.calls[0].Fields["stickers"], `"format":"video"`)
}

func TestAddToPackFullSet(t *testing.T) {
	api := &mockBotAPI{t: t, responses: []string{
		`{"ok":false,"error_code":400,"description":"Bad Request: sticker set name is already occupied"}`,
		`{"ok":false,"error_code":400,"description":"Bad Request: STICKERS_TOO_MUCH"}`,
	}}
	c, _ := newTestClient(t, api)

	_, err := c.AddToPack(context.Background(), "Memes", stillItem(), "😀")
	require.ErrorIs(t, err, ErrPackFull)
}

func TestAddToPackInvalidSet(t *testing.T) {
	api := &mockBotAPI{t: t, responses: []string{
		`{"ok":false,"error_code":400,"description":"Bad Request: STICKERSET_INVALID"}`,
	}}
	c, _ := newTestClient(t, api)

	_, err := c.AddToPack(context.Background(), "Memes", stillItem(), "😀")
	require.ErrorIs(t, err, ErrPackNotFound)
	require.Len(t, api.calls, 1)
}

func TestAddToPackOtherRefusal(t *testing.T) {
	api := &mockBotAPI{t: t, responses: []string{
		`{"ok":false,"error_code":400,"description":"Bad Request: invalid sticker emojis"}`,
	}}
	c, _ := newTestClient(t, api)

	_, err := c.AddToPack(context.Background(), "Memes", stillItem(), "😀")
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "invalid sticker emojis")
}

func TestAddToPackUnknownFormat(t *testing.T) {
	api := &mockBotAPI{t: t}
	c, _ := newTestClient(t, api)

	_, err := c.AddToPack(context.Background(), "Memes", media.Normalized{Format: "tga"}, "😀")
	require.ErrorIs(t, err, ErrRejected)
	assert.Empty(t, api.calls)
}
