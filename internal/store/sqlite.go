package store

import (
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/synkr/synkr/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at the given path.
// Use ":memory:" for an in-memory database.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			full_name TEXT NOT NULL DEFAULT '',
			profile_pic TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS chat_groups (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			admin_id TEXT NOT NULL REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS group_members (
			group_id TEXT NOT NULL REFERENCES chat_groups(id),
			user_id TEXT NOT NULL REFERENCES users(id),
			PRIMARY KEY (group_id, user_id)
		);
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			recipient_id TEXT NOT NULL DEFAULT '',
			group_id TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			video_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_direct ON messages(sender_id, recipient_id, created_at);
		CREATE INDEX IF NOT EXISTS idx_messages_group ON messages(group_id, created_at);
	`)
	return err
}

// CreateUser persists a user.
func (s *SQLiteStore) CreateUser(u domain.User) error {
	_, err := s.db.Exec(
		"INSERT INTO users (id, username, full_name, profile_pic, password_hash) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Username, u.FullName, u.ProfilePic, u.PasswordHash,
	)
	return err
}

// UserByUsername looks a user up by username.
func (s *SQLiteStore) UserByUsername(username string) (domain.User, error) {
	return s.scanUser("SELECT id, username, full_name, profile_pic, password_hash FROM users WHERE username = ?", username)
}

// UserByID looks a user up by ID.
func (s *SQLiteStore) UserByID(id string) (domain.User, error) {
	return s.scanUser("SELECT id, username, full_name, profile_pic, password_hash FROM users WHERE id = ?", id)
}

func (s *SQLiteStore) scanUser(query string, arg any) (domain.User, error) {
	var u domain.User
	err := s.db.QueryRow(query, arg).Scan(&u.ID, &u.Username, &u.FullName, &u.ProfilePic, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, ErrNotFound
	}
	return u, err
}

// Users returns all users except the given one, ordered by username.
func (s *SQLiteStore) Users(excludeID string) ([]domain.User, error) {
	rows, err := s.db.Query(
		"SELECT id, username, full_name, profile_pic FROM users WHERE id != ? ORDER BY username",
		excludeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.ProfilePic); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateGroup persists a group and its initial member set in one transaction.
func (s *SQLiteStore) CreateGroup(g domain.Group) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO chat_groups (id, name, description, admin_id) VALUES (?, ?, ?, ?)",
		g.ID, g.Name, g.Description, g.AdminID,
	); err != nil {
		return err
	}
	for _, m := range g.Members {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO group_members (group_id, user_id) VALUES (?, ?)",
			g.ID, m,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GroupByID returns a group with its members populated.
func (s *SQLiteStore) GroupByID(id string) (domain.Group, error) {
	var g domain.Group
	err := s.db.QueryRow(
		"SELECT id, name, description, admin_id FROM chat_groups WHERE id = ?", id,
	).Scan(&g.ID, &g.Name, &g.Description, &g.AdminID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Group{}, ErrNotFound
	}
	if err != nil {
		return domain.Group{}, err
	}

	rows, err := s.db.Query("SELECT user_id FROM group_members WHERE group_id = ?", id)
	if err != nil {
		return domain.Group{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return domain.Group{}, err
		}
		g.Members = append(g.Members, m)
	}
	return g, rows.Err()
}

// GroupsFor returns the groups the user belongs to.
func (s *SQLiteStore) GroupsFor(userID string) ([]domain.Group, error) {
	rows, err := s.db.Query(`
		SELECT g.id FROM chat_groups g
		JOIN group_members gm ON gm.group_id = g.id
		WHERE gm.user_id = ?
		ORDER BY g.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]domain.Group, 0, len(ids))
	for _, id := range ids {
		g, err := s.GroupByID(id)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

// AddMember adds a user to a group. Adding an existing member returns
// ErrDuplicate.
func (s *SQLiteStore) AddMember(groupID, userID string) error {
	member, err := s.IsMember(groupID, userID)
	if err != nil {
		return err
	}
	if member {
		return ErrDuplicate
	}
	_, err = s.db.Exec(
		"INSERT INTO group_members (group_id, user_id) VALUES (?, ?)",
		groupID, userID,
	)
	return err
}

// IsMember reports whether the user belongs to the group.
func (s *SQLiteStore) IsMember(groupID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_id = ?",
		groupID, userID,
	).Scan(&n)
	return n > 0, err
}

// SaveMessage persists a message.
func (s *SQLiteStore) SaveMessage(m domain.Message) error {
	ts := m.CreatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(
		"INSERT INTO messages (id, sender_id, recipient_id, group_id, text, image_url, video_url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		m.ID, m.SenderID, m.RecipientID, m.GroupID, m.Text, m.ImageURL, m.VideoURL, ts,
	)
	return err
}

// DirectHistory returns the two-party conversation, oldest first.
func (s *SQLiteStore) DirectHistory(userA, userB string, limit int) ([]domain.Message, error) {
	return s.queryMessages(`
		SELECT id, sender_id, recipient_id, group_id, text, image_url, video_url, created_at FROM messages
		WHERE (sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)
		ORDER BY created_at DESC
		LIMIT ?
	`, userA, userB, userB, userA, limit)
}

// GroupHistory returns a group's messages, oldest first.
func (s *SQLiteStore) GroupHistory(groupID string, limit int) ([]domain.Message, error) {
	return s.queryMessages(`
		SELECT id, sender_id, recipient_id, group_id, text, image_url, video_url, created_at FROM messages
		WHERE group_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, groupID, limit)
}

func (s *SQLiteStore) queryMessages(query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.GroupID, &m.Text, &m.ImageURL, &m.VideoURL, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to oldest-first order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
