package pg

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zaytsevrv/jarvis-assistant/internal/store"
)

// MCPServerStore is the Postgres-backed store.MCPServerStore: the owner's
// registered supplemental MCP tool servers (SPEC_FULL §4.5), narrowed from
// the teacher's managed-mode multi-tenant MCP server registry to a single
// owner's flat list.
type MCPServerStore struct {
	db *pgxpool.Pool
}

func NewMCPServerStore(db *pgxpool.Pool) *MCPServerStore { return &MCPServerStore{db: db} }

func (s *MCPServerStore) List(ctx context.Context) ([]store.MCPServer, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, url, enabled, created_at FROM mcp_servers WHERE enabled ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.MCPServer
	for rows.Next() {
		var m store.MCPServer
		if err := rows.Scan(&m.ID, &m.Name, &m.URL, &m.Enabled, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *MCPServerStore) Create(ctx context.Context, m *store.MCPServer) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO mcp_servers (id, name, url, enabled) VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET url = EXCLUDED.url, enabled = EXCLUDED.enabled`,
		m.ID, m.Name, m.URL, m.Enabled)
	return err
}
