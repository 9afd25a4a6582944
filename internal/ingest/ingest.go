// Package ingest receives upstream chat events over Telegram long polling,
// filters and persists them, and routes eligible messages to the
// classifier. It also owns the owner-facing control surface, since both
// roles share one telego.Bot split by chat id (SPEC_FULL §2). Grounded on
// the teacher's internal/channels/telegram package (Start's long-polling
// select loop, handleMessage pipeline), narrowed from multi-tenant channel
// routing to a single bot/single owner.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/zaytsevrv/jarvis-assistant/internal/bus"
	"github.com/zaytsevrv/jarvis-assistant/internal/config"
	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// Ingest owns the Telegram bot connection for both the upstream stream and
// the owner control channel.
type Ingest struct {
	bot    *telego.Bot
	cfg    *config.Config
	stores *store.Stores
	bus    *bus.Bus

	caches   *Caches
	cancel   context.CancelFunc
	done     chan struct{}
}

func New(bot *telego.Bot, cfg *config.Config, stores *store.Stores, b *bus.Bus) *Ingest {
	return &Ingest{
		bot:    bot,
		cfg:    cfg,
		stores: stores,
		bus:    b,
		caches: NewCaches(stores),
	}
}

// InvalidateListCache forces the next whitelist/blacklist check to re-read
// from the store, used by the manage_whitelist tool right after a mutation.
func (in *Ingest) InvalidateListCache() {
	in.caches.InvalidateLists()
}

// Run starts long polling and blocks until ctx is cancelled or the update
// stream ends — the loop the supervisor's resilient-restart wrapper wraps
// (spec.md §9 "Resilient Ingest").
func (in *Ingest) Run(ctx context.Context) error {
	pollCtx, cancel := context.WithCancel(ctx)
	in.cancel = cancel
	in.done = make(chan struct{})

	updates, err := in.bot.UpdatesViaLongPolling(pollCtx, &telego.GetUpdatesParams{
		Timeout:        30,
		AllowedUpdates: []string{"message", "callback_query"},
	})
	if err != nil {
		cancel()
		return fmt.Errorf("ingest: start long polling: %w", err)
	}

	defer close(in.done)
	for {
		select {
		case <-pollCtx.Done():
			return pollCtx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("ingest: update stream closed")
			}
			switch {
			case update.Message != nil:
				if err := in.dispatch(pollCtx, *update.Message); err != nil {
					slog.Warn("ingest: handle message failed", "error", err)
				}
			case update.CallbackQuery != nil:
				if err := in.handleCallback(pollCtx, update.CallbackQuery); err != nil {
					slog.Warn("ingest: handle callback failed", "error", err)
				}
			}
		}
	}
}

func (in *Ingest) Stop() {
	if in.cancel != nil {
		in.cancel()
		<-in.done
	}
}

// dispatch splits traffic by chat id: the owner's private chat is the
// control channel (routed to internal/conversation via the bus), every
// other chat is upstream stream traffic handled here.
func (in *Ingest) dispatch(ctx context.Context, msg telego.Message) error {
	if msg.From != nil && msg.From.ID == in.cfg.Owner.TelegramUserID && msg.Chat.Type == "private" {
		if in.handleCommand(ctx, msg) {
			return nil
		}
		return in.handleOwnerMessage(ctx, msg)
	}
	return in.handleStreamMessage(ctx, msg)
}

// handleStreamMessage implements spec.md §4.1 steps 1-6.
func (in *Ingest) handleStreamMessage(ctx context.Context, msg telego.Message) error {
	if isServiceMessage(&msg) {
		return nil
	}

	monitored, err := in.isMonitored(ctx, &msg)
	if err != nil {
		return fmt.Errorf("ingest: monitored check: %w", err)
	}
	if !monitored {
		return nil
	}

	blocked, err := in.isBlacklisted(ctx, &msg)
	if err != nil {
		return fmt.Errorf("ingest: blacklist check: %w", err)
	}
	if blocked {
		return nil
	}

	if isBareStickerOrGIF(&msg) {
		return nil
	}

	senderID, senderName := resolveSender(&msg)
	text := extractText(&msg)
	kind := resolveMediaKind(&msg)
	if text == "" {
		if kind == store.MediaNone {
			return nil
		}
		text = "[" + string(kind) + "]"
	}

	wasKnown := false
	if msg.From != nil && !msg.From.IsBot {
		wasKnown, _ = in.stores.Messages.IsKnownSender(ctx, msg.Chat.ID, senderID)
	}

	m := &store.Message{
		UpstreamMsgID: int64(msg.MessageID),
		ChatID:        msg.Chat.ID,
		ChatTitle:     in.caches.ChatName(ctx, in.bot, msg.Chat),
		SenderID:      senderID,
		SenderName:    senderName,
		Text:          text,
		MediaKind:     kind,
		Timestamp:     time.Unix(int64(msg.Date), 0),
		AccountLabel:  in.cfg.Owner.AccountLabel,
	}

	id, inserted, err := in.stores.Messages.Save(ctx, m)
	if err != nil {
		return fmt.Errorf("ingest: save message: %w", err)
	}
	if !inserted {
		return nil // duplicate upstream delivery, dropped idempotently
	}
	m.ID = id

	if msg.From != nil && !msg.From.IsBot && !wasKnown && senderID != in.cfg.Owner.TelegramUserID {
		in.bus.Notify.Publish(bus.OutboundNotification{
			Text: fmt.Sprintf("New contact in %q: %s", m.ChatTitle, senderName),
		})
	}

	if shouldClassify(msg.Chat.Type, text) {
		in.bus.Ingested.Publish(bus.IngestedMessage{Message: *m})
	}
	return nil
}

func (in *Ingest) handleOwnerMessage(ctx context.Context, msg telego.Message) error {
	in.bus.Ingested.Publish(bus.IngestedMessage{Message: store.Message{
		ChatID:     msg.Chat.ID,
		SenderID:   msg.From.ID,
		SenderName: "owner",
		Text:       extractText(&msg),
		MediaKind:  resolveMediaKind(&msg),
		Timestamp:  time.Unix(int64(msg.Date), 0),
	}})

	turn := bus.OwnerTurn{Text: extractText(&msg)}
	if len(msg.Photo) > 0 {
		data, mime, err := in.downloadPhoto(ctx, msg.Photo[len(msg.Photo)-1].FileID)
		if err != nil {
			slog.Warn("ingest: download owner photo failed", "error", err)
		} else {
			turn.ImageData, turn.MimeType = data, mime
		}
	}
	in.bus.OwnerTurn.Publish(turn)
	return nil
}

// downloadPhoto fetches a Telegram file by id and returns its raw bytes,
// grounded on the teacher's downloadMedia (media.go) retry-then-fetch shape,
// narrowed to an in-memory buffer since internal/conversation only needs
// bytes for the vision call, not a file on disk.
func (in *Ingest) downloadPhoto(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := in.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file: %w", err)
	}
	if file.FilePath == "" {
		return nil, "", fmt.Errorf("empty file path for %s", fileID)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", in.cfg.Telegram.BotToken, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, "", err
	}
	return data, "image/jpeg", nil
}

func resolveSender(msg *telego.Message) (int64, string) {
	if msg.From == nil {
		return 0, ""
	}
	name := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
	if msg.From.Username != "" {
		name = "@" + msg.From.Username
	}
	return msg.From.ID, name
}

func extractText(msg *telego.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	return msg.Caption
}

func (in *Ingest) isMonitored(ctx context.Context, msg *telego.Message) (bool, error) {
	if msg.Chat.Type == "private" && msg.From != nil && !msg.From.IsBot {
		return true, nil
	}
	whitelist, err := in.caches.Whitelist(ctx)
	if err != nil {
		return false, err
	}
	_, ok := whitelist[msg.Chat.ID]
	return ok, nil
}

func (in *Ingest) isBlacklisted(ctx context.Context, msg *telego.Message) (bool, error) {
	blacklist, err := in.caches.Blacklist(ctx)
	if err != nil {
		return false, err
	}
	if _, ok := blacklist[msg.Chat.ID]; ok {
		return true, nil
	}
	if msg.From != nil {
		if _, ok := blacklist[msg.From.ID]; ok {
			return true, nil
		}
	}
	return false, nil
}

// SendOwner is the transport primitive internal/notifier builds on to
// deliver a rendered, already-split message.
func (in *Ingest) SendOwner(ctx context.Context, text string) error {
	chat := tu.ID(in.cfg.Owner.TelegramUserID)
	_, err := in.bot.SendMessage(ctx, tu.Message(chat, text))
	return err
}

// SendOwnerRich delivers one already-split message chunk to the owner,
// optionally with an inline keyboard and/or HTML parse mode. internal/
// notifier is the only caller; it owns splitting and keyboard placement
// (only the last chunk of a multi-part message carries the keyboard).
func (in *Ingest) SendOwnerRich(ctx context.Context, text string, buttons [][]bus.CallbackButton, parseHTML bool) error {
	chat := tu.ID(in.cfg.Owner.TelegramUserID)
	params := tu.Message(chat, text)
	if parseHTML {
		params = params.WithParseMode(telego.ModeHTML)
	}
	if len(buttons) > 0 {
		rows := make([][]telego.InlineKeyboardButton, len(buttons))
		for i, row := range buttons {
			btns := make([]telego.InlineKeyboardButton, len(row))
			for j, b := range row {
				btns[j] = tu.InlineKeyboardButton(b.Label).WithCallbackData(b.Data)
			}
			rows[i] = btns
		}
		params = params.WithReplyMarkup(tu.InlineKeyboard(rows...))
	}
	_, err := in.bot.SendMessage(ctx, params)
	return err
}
