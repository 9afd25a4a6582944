package ingest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// Caches holds the in-process TTL caches spec.md §4.1 calls for: whitelist/
// blacklist id sets (60s) and chat-name resolution (5min). Each cache has a
// single writer (its loader) and tolerates a stale view up to its TTL
// (spec.md §5).
type Caches struct {
	settings store.SettingStore

	mu          sync.Mutex
	whitelist   map[int64]struct{}
	blacklist   map[int64]struct{}
	listLoadedAt time.Time
	listTTL     time.Duration

	chatNames    map[int64]chatNameEntry
	chatNameTTL  time.Duration
}

type chatNameEntry struct {
	name     string
	loadedAt time.Time
}

func NewCaches(stores *store.Stores) *Caches {
	return &Caches{
		settings:    stores.Settings,
		chatNames:   make(map[int64]chatNameEntry),
		listTTL:     60 * time.Second,
		chatNameTTL: 5 * time.Minute,
	}
}

func (c *Caches) Whitelist(ctx context.Context) (map[int64]struct{}, error) {
	return c.loadList(ctx, "whitelist", &c.whitelist)
}

func (c *Caches) Blacklist(ctx context.Context) (map[int64]struct{}, error) {
	return c.loadList(ctx, "blacklist", &c.blacklist)
}

func (c *Caches) loadList(ctx context.Context, key string, dst *map[int64]struct{}) (map[int64]struct{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *dst != nil && time.Since(c.listLoadedAt) < c.listTTL {
		return *dst, nil
	}

	var ids []int64
	if _, err := c.settings.Get(ctx, key, &ids); err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	*dst = set
	c.listLoadedAt = time.Now()
	return set, nil
}

// ChatName resolves a human title for chat, preferring the update payload's
// own Title/First+Last fields before falling back to a live bot.GetChat
// call, cached for chatNameTTL.
func (c *Caches) ChatName(ctx context.Context, bot *telego.Bot, chat telego.Chat) string {
	if chat.Title != "" {
		return chat.Title
	}
	name := strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	if name != "" {
		return name
	}

	c.mu.Lock()
	if entry, ok := c.chatNames[chat.ID]; ok && time.Since(entry.loadedAt) < c.chatNameTTL {
		c.mu.Unlock()
		return entry.name
	}
	c.mu.Unlock()

	resolved := chat.Username
	if full, err := bot.GetChat(ctx, &telego.GetChatParams{ChatID: telego.ChatID{ID: chat.ID}}); err == nil {
		if full.Title != "" {
			resolved = full.Title
		} else if n := strings.TrimSpace(full.FirstName + " " + full.LastName); n != "" {
			resolved = n
		}
	}

	c.mu.Lock()
	c.chatNames[chat.ID] = chatNameEntry{name: resolved, loadedAt: time.Now()}
	c.mu.Unlock()
	return resolved
}

// InvalidateLists forces the next Whitelist/Blacklist call to re-read from
// the store, used by the manage_whitelist tool right after a mutation.
func (c *Caches) InvalidateLists() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listLoadedAt = time.Time{}
}
