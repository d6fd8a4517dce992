package packapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/stickerbot/core/logger"
	"github.com/m3rciful/stickerbot/core/media"
)

// Failure reasons surfaced to the session layer. The message forwarded
// to the user comes from these, not from raw API descriptions.
var (
	// ErrPackFull means the target set hit the platform sticker limit.
	ErrPackFull = errors.New("packapi: pack is full")

	// ErrPackNotFound means the target set does not exist and could not
	// be created.
	ErrPackNotFound = errors.New("packapi: pack not found")

	// ErrRejected covers every other platform-side refusal.
	ErrRejected = errors.New("packapi: rejected by platform")
)

const defaultBaseURL = "https://api.telegram.org"

// Options configure the pack mutation client.
type Options struct {
	Token       string
	OwnerID     int64
	BotUsername string
	// BaseURL overrides the API host, mainly for tests.
	BaseURL string
	// HTTPClient overrides the transport. Defaults to the shared
	// retrying Telegram client.
	HTTPClient *http.Client
}

// Client mutates sticker packs through the Bot API. Sets are owned by a
// single configured account and namespaced by the bot's username.
type Client struct {
	http        *http.Client
	baseURL     string
	token       string
	ownerID     int64
	botUsername string
}

// New builds a Client from options.
func New(opts Options, httpClient *http.Client) *Client {
	base := strings.TrimSuffix(opts.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		http:        httpClient,
		baseURL:     base,
		token:       opts.Token,
		ownerID:     opts.OwnerID,
		botUsername: opts.BotUsername,
	}
}

// AddToPack uploads a finished sticker into the named pack, creating
// the underlying set on first use. Pack is the display title from the
// catalog. On success it returns the shareable t.me link for the set.
func (c *Client) AddToPack(ctx context.Context, pack string, item media.Normalized, emoji string) (string, error) {
	setName := SetName(pack, c.botUsername)
	start := time.Now()

	err := c.createSet(ctx, setName, pack, item, emoji)
	if err != nil && isNameOccupied(err) {
		err = c.addToSet(ctx, setName, item, emoji)
	}

	attrs := []slog.Attr{
		slog.String("pack", setName),
		slog.String("emoji", emoji),
		slog.Int64("size_bytes", int64(len(item.Payload))),
		slog.Int64("duration_ms", logger.RoundMS(time.Since(start)).Milliseconds()),
	}
	if err != nil {
		logger.Warn(ctx, "packs", "pack.add_failed",
			append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))...)
		return "", err
	}
	logger.Info(ctx, "packs", "pack.added", append(attrs, slog.String("status", "ok"))...)
	return "https://t.me/addstickers/" + setName, nil
}

func (c *Client) createSet(ctx context.Context, name, title string, item media.Normalized, emoji string) error {
	sticker, file, err := encodeInputSticker(item, emoji)
	if err != nil {
		return err
	}
	stickers, err := json.Marshal([]json.RawMessage{sticker})
	if err != nil {
		return fmt.Errorf("%w: marshal stickers: %s", ErrRejected, err)
	}
	fields := map[string]string{
		"user_id":  strconv.FormatInt(c.ownerID, 10),
		"name":     name,
		"title":    title,
		"stickers": string(stickers),
	}
	return c.call(ctx, "createNewStickerSet", fields, []filePart{file})
}

func (c *Client) addToSet(ctx context.Context, name string, item media.Normalized, emoji string) error {
	sticker, file, err := encodeInputSticker(item, emoji)
	if err != nil {
		return err
	}
	fields := map[string]string{
		"user_id": strconv.FormatInt(c.ownerID, 10),
		"name":    name,
		"sticker": string(sticker),
	}
	return c.call(ctx, "addStickerToSet", fields, []filePart{file})
}

// encodeInputSticker renders the InputSticker JSON with an attach://
// reference to the uploaded payload.
func encodeInputSticker(item media.Normalized, emoji string) (json.RawMessage, filePart, error) {
	format, fileName, err := stickerFormat(item.Format)
	if err != nil {
		return nil, filePart{}, err
	}
	sticker := struct {
		Sticker   string   `json:"sticker"`
		Format    string   `json:"format"`
		EmojiList []string `json:"emoji_list"`
	}{
		Sticker:   "attach://sticker_file_0",
		Format:    format,
		EmojiList: []string{emoji},
	}
	raw, err := json.Marshal(sticker)
	if err != nil {
		return nil, filePart{}, fmt.Errorf("%w: marshal sticker: %s", ErrRejected, err)
	}
	return raw, filePart{Field: "sticker_file_0", FileName: fileName, Data: item.Payload}, nil
}

func stickerFormat(f media.Format) (format, fileName string, err error) {
	switch f {
	case media.FormatStaticPNG:
		return "static", "sticker.png", nil
	case media.FormatAnimatedWebM:
		return "video", "sticker.webm", nil
	default:
		return "", "", fmt.Errorf("%w: unknown payload format %q", ErrRejected, f)
	}
}

// apiResponse is the Bot API envelope shared by all methods.
type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (c *Client) call(ctx context.Context, method string, fields map[string]string, files []filePart) error {
	body, contentType, err := encodeMultipart(fields, files)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRejected, err)
	}

	url := c.baseURL + "/bot" + c.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrRejected, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: transport: %s", ErrRejected, method, logger.RedactToken(err.Error()))
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %s: read response: %s", ErrRejected, method, err)
	}

	var api apiResponse
	if err := json.Unmarshal(payload, &api); err != nil {
		return fmt.Errorf("%w: %s: http %d", ErrRejected, method, resp.StatusCode)
	}
	if api.OK {
		return nil
	}
	return classifyAPIError(method, api)
}

// classifyAPIError maps Bot API descriptions onto the failure taxonomy.
func classifyAPIError(method string, api apiResponse) error {
	desc := api.Description
	upper := strings.ToUpper(desc)
	switch {
	case strings.Contains(upper, "STICKERS_TOO_MUCH"):
		return fmt.Errorf("%w: %s", ErrPackFull, desc)
	case strings.Contains(upper, "STICKERSET_INVALID"):
		return fmt.Errorf("%w: %s", ErrPackNotFound, desc)
	default:
		return fmt.Errorf("%w: %s: %s (code %d)", ErrRejected, method, desc, api.ErrorCode)
	}
}

func isNameOccupied(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already occupied")
}
