// Package repo хранит записи о выполненных runs в PostgreSQL.
package repo
