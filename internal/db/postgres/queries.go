// Package postgres: вспомогательные функции для работы с БД.
// queries.go содержит общие утилиты для выполнения запросов.
package postgres

import (
	"context"
	"fmt"
)

// Migration: одна встроенная SQL-миграция.
type Migration struct {
	Version int
	SQL     string
}

// ExecMigrationSQL выполняет один SQL-запрос миграции в транзакции.
// Если запрос упадёт: транзакция откатится автоматически.
// Возвращает true, если миграция применена сейчас (а не раньше).
func ExecMigrationSQL(ctx context.Context, db TxBeginner, version int, sql string) (bool, error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ошибка фиксации миграции %d: %w", version, err)
	}
	return true, nil
}

// RunMigrations применяет миграции по порядку.
func RunMigrations(ctx context.Context, db TxBeginner, migrations []Migration) (int, error) {
	if err := EnsureMigrationsTable(ctx, db); err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range migrations {
		ok, err := ExecMigrationSQL(ctx, db, m.Version, m.SQL)
		if err != nil {
			return applied, fmt.Errorf("миграция %d: %w", m.Version, err)
		}
		if ok {
			applied++
		}
	}
	return applied, nil
}
