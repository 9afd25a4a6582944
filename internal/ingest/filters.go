package ingest

import (
	"strings"

	"github.com/mymmrac/telego"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// minClassifiableTextLen is the text-length floor below which a message is
// persisted but never routed to the classifier (spec.md §4.1 step 7).
const minClassifiableTextLen = 5

// shouldClassify implements spec.md §4.1 step 7 / §2: only a private chat
// with non-trivial text is routed to the classifier. dispatch already routes
// the owner's own private messages elsewhere, so any private chat reaching
// this check is a non-owner peer. Whitelisted group traffic is persisted but
// never classified — it feeds digests only.
func shouldClassify(chatType, text string) bool {
	return chatType == "private" && len(strings.TrimSpace(text)) > minClassifiableTextLen
}

// isServiceMessage mirrors the teacher's telegram.isServiceMessage: a
// message with no text, caption, or media is a service event (member
// added/removed, title changed, pinned, etc.) and carries nothing to
// classify.
func isServiceMessage(msg *telego.Message) bool {
	if msg.Text != "" || msg.Caption != "" {
		return false
	}
	if msg.Photo != nil || msg.Audio != nil || msg.Video != nil ||
		msg.Document != nil || msg.Voice != nil || msg.VideoNote != nil ||
		msg.Sticker != nil || msg.Animation != nil {
		return false
	}
	return true
}

// isBareStickerOrGIF drops messages whose only content is a sticker or
// animation with no accompanying caption (spec.md §4.1 filter chain).
func isBareStickerOrGIF(msg *telego.Message) bool {
	return msg.Caption == "" && (msg.Sticker != nil || msg.Animation != nil)
}

// resolveMediaKind classifies the message's attachment, if any.
func resolveMediaKind(msg *telego.Message) store.MediaKind {
	switch {
	case msg.Photo != nil:
		return store.MediaPhoto
	case msg.Voice != nil:
		return store.MediaVoice
	case msg.Video != nil || msg.VideoNote != nil:
		return store.MediaVideo
	case msg.Document != nil:
		return store.MediaDocument
	case msg.Animation != nil:
		return store.MediaAnimation
	default:
		return store.MediaNone
	}
}
