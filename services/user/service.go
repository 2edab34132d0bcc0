// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package user implements account management: registration, credential
// checks, and the user-to-session index that lets the UI list a person's
// conversations.
package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vivalabs/viva/pkg/auth"
	"github.com/vivalabs/viva/pkg/config"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUserExists means the username or email is already taken.
	ErrUserExists = errors.New("user already exists")

	// ErrInvalidCredentials covers both unknown-user and wrong-password so
	// login responses can't be used to probe which usernames exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotFound means the requested user or session row does not exist.
	ErrNotFound = errors.New("not found")
)

// uniqueViolation is the Postgres error code for a unique constraint hit.
const uniqueViolation = "23505"

// =============================================================================
// Types
// =============================================================================

// User is an account row without the password hash.
type User struct {
	ID        string    `json:"user_id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is one row of the user-to-session index.
type Session struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// =============================================================================
// Service
// =============================================================================

// Service wraps a pgx connection pool over the users and user_sessions
// tables.
type Service struct {
	pool *pgxpool.Pool
}

// NewService connects to Postgres per cfg and creates the tables when
// missing. The password comes from POSTGRES_PASSWORD; user and database
// names from POSTGRES_USER and POSTGRES_DB with sensible defaults.
func NewService(ctx context.Context, cfg config.PostgresConfig) (*Service, error) {
	user := envOr("POSTGRES_USER", "viva")
	dbname := envOr("POSTGRES_DB", "viva")
	password := os.Getenv("POSTGRES_PASSWORD")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?pool_min_conns=%d&pool_max_conns=%d",
		user, password, cfg.Host, cfg.Port, dbname, cfg.MinConnections, cfg.MaxConnections)

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to postgres at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	svc := &Service{pool: pool}
	if err := svc.ensureTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	slog.Info("User store connected", "host", cfg.Host, "port", cfg.Port, "database", dbname)
	return svc, nil
}

// NewServiceFromPool wraps an existing pool. Used by tests.
func NewServiceFromPool(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Service) ensureTables(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS user_sessions (
			session_id TEXT PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS user_sessions_user_idx ON user_sessions (user_id, created_at DESC)`,
	}
	for _, stmt := range ddl {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create user tables: %w", err)
		}
	}
	return nil
}

// Register creates an account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, username, email, password string) (User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	var u User
	err = s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING user_id, username, email, created_at`,
		username, email, hash,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrUserExists
		}
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	slog.Info("Registered user", "userId", u.ID, "username", username)
	return u, nil
}

// Login verifies the password and returns the account.
func (s *Service) Login(ctx context.Context, username, password string) (User, error) {
	var (
		u    User
		hash string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, username, email, password_hash, created_at
		 FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &hash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, fmt.Errorf("look up user: %w", err)
	}

	if !auth.CheckPassword(hash, password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser returns the account by id.
func (s *Service) GetUser(ctx context.Context, userID string) (User, error) {
	var u User
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, username, email, created_at FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("look up user %s: %w", userID, err)
	}
	return u, nil
}

// AddSession records a session under the user. Re-adding an existing session
// updates its title.
func (s *Service) AddSession(ctx context.Context, userID, sessionID, title string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_sessions (session_id, user_id, title)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (session_id) DO UPDATE SET title = EXCLUDED.title`,
		sessionID, userID, title)
	if err != nil {
		return fmt.Errorf("add session %s for user %s: %w", sessionID, userID, err)
	}
	return nil
}

// Sessions lists the user's sessions, newest first.
func (s *Service) Sessions(ctx context.Context, userID string) ([]Session, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT session_id, user_id, title, created_at
		 FROM user_sessions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.SessionID, &sess.UserID, &sess.Title, &sess.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// SessionOwner returns the user owning the session, or ErrNotFound.
func (s *Service) SessionOwner(ctx context.Context, sessionID string) (string, error) {
	var userID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id FROM user_sessions WHERE session_id = $1`, sessionID,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("look up session %s: %w", sessionID, err)
	}
	return userID, nil
}

// DeleteSession removes one row of the session index.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM user_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes the account; the session index rows cascade.
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	slog.Info("Deleted user", "userId", userID)
	return nil
}

// Ping reports store liveness.
func (s *Service) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the pool.
func (s *Service) Close() {
	s.pool.Close()
}
