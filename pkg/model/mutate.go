package model

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruslano69/tablekit/pkg/audit"
	"github.com/ruslano69/tablekit/pkg/core/errs"
	"github.com/ruslano69/tablekit/pkg/core/normalize"
	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/core/statement"
	"github.com/ruslano69/tablekit/pkg/validation"
)

// change - нормализованная запись и операция над ней
type change struct {
	op  validation.Operation
	rec record.Record
	key record.Value
}

// Insert добавляет запись и возвращает ее с прочитанным сгенерированным ключом.
// Явно заданный ключ сохраняется как есть.
func (m *Model) Insert(ctx context.Context, input any) (rec record.Record, err error) {
	started := time.Now()
	rec, err = m.normalizer.Normalize(ctx, input)
	if err != nil {
		return record.Record{}, err
	}
	defer func() { m.auditChange(ctx, validation.OpInsert, rec, started, affected(err), err) }()

	c, err := m.prepare(ctx, validation.OpInsert, rec)
	if err != nil {
		return rec, err
	}
	rec = c.rec
	if c.key.IsNull() {
		// NULL ключ назначит база данных
		rec.Delete(m.binding.PrimaryKey)
	}

	stmt, err := m.builder.BuildInsert(rec)
	if err != nil {
		return rec, err
	}

	key, err := m.insert(ctx, stmt, c.key)
	if err != nil {
		return rec, err
	}
	if !key.IsNull() {
		rec.Set(m.binding.PrimaryKey, key)
	}

	m.hooks.Inserted(ctx, rec)
	return rec, nil
}

// insert выполняет INSERT и читает ключ способом диалекта
func (m *Model) insert(ctx context.Context, stmt statement.Statement, given record.Value) (record.Value, error) {
	if !given.IsNull() {
		_, err := m.exec.Execute(ctx, stmt)
		return given, err
	}

	d := m.exec.Dialect()
	switch {
	case d.Returning:
		stmt.SQL += " RETURNING " + m.binding.PrimaryKey
		return m.exec.Insert(ctx, stmt, "")
	case d.IdentityQuery != "":
		return m.exec.Insert(ctx, stmt, d.IdentityQuery)
	default:
		_, err := m.exec.Execute(ctx, stmt)
		return record.Null(), err
	}
}

// Update обновляет запись по ключу. key == nil - ключ берется из самой записи.
// NULL значения не попадают в SET.
func (m *Model) Update(ctx context.Context, input any, key any) (n int64, err error) {
	started := time.Now()
	rec, err := m.normalizer.Normalize(ctx, input)
	if err != nil {
		return 0, err
	}
	defer func() { m.auditChange(ctx, validation.OpUpdate, rec, started, n, err) }()

	k := record.Of(key)
	if k.IsNull() {
		k, _, _ = normalize.KeyOf(rec, m.binding.PrimaryKey)
	}
	if k.IsNull() {
		return 0, errs.Configuration("update of %s requires a primary key value", m.binding.Table)
	}
	if !rec.Has(m.binding.PrimaryKey) {
		rec.Set(m.binding.PrimaryKey, k)
	}

	c, err := m.prepare(ctx, validation.OpUpdate, rec)
	if err != nil {
		return 0, err
	}
	rec = c.rec

	stmt, err := m.builder.BuildUpdate(rec, k)
	if err != nil {
		return 0, err
	}
	n, err = m.exec.Execute(ctx, stmt)
	if err != nil {
		return 0, err
	}

	m.hooks.Updated(ctx, rec)
	return n, nil
}

// Delete удаляет строку. input - значение ключа или запись, содержащая ключ.
func (m *Model) Delete(ctx context.Context, input any) (n int64, err error) {
	started := time.Now()
	rec, err := m.deleteTarget(ctx, input)
	if err != nil {
		return 0, err
	}
	defer func() { m.auditChange(ctx, validation.OpDelete, rec, started, n, err) }()

	key, ok, _ := normalize.KeyOf(rec, m.binding.PrimaryKey)
	if !ok {
		return 0, errs.Configuration("delete from %s requires a primary key value", m.binding.Table)
	}

	if _, err := m.prepare(ctx, validation.OpDelete, rec); err != nil {
		return 0, err
	}

	stmt, err := m.builder.BuildDelete("", key)
	if err != nil {
		return 0, err
	}
	n, err = m.exec.Execute(ctx, stmt)
	if err != nil {
		return 0, err
	}

	m.hooks.Deleted(ctx, rec)
	return n, nil
}

// deleteTarget - запись для удаления: нормализованный вход или {pk: значение}
func (m *Model) deleteTarget(ctx context.Context, input any) (record.Record, error) {
	if _, err := normalize.Fields(input); err == nil {
		return m.normalizer.Normalize(ctx, input)
	}
	return record.New(record.F(m.binding.PrimaryKey, input)), nil
}

// DeleteWhere удаляет строки по условию без хуков. Пустое условие удаляет все строки.
func (m *Model) DeleteWhere(ctx context.Context, where string, args ...any) (n int64, err error) {
	started := time.Now()
	defer func() { m.auditChange(ctx, validation.OpDelete, record.Record{}, started, n, err) }()

	if err := m.checkFragments(where); err != nil {
		return 0, err
	}
	stmt, err := m.builder.BuildDelete(where, record.Null(), values(args)...)
	if err != nil {
		return 0, err
	}
	return m.exec.Execute(ctx, stmt)
}

// Save добавляет записи без ключа и обновляет записи с ключом в одной транзакции.
// Все записи проверяются до выполнения; ошибка любой отменяет весь пакет.
// Сгенерированные ключи не читаются.
func (m *Model) Save(ctx context.Context, items ...any) (n int64, err error) {
	started := time.Now()
	changes := make([]change, 0, len(items))
	for _, item := range items {
		c, err := m.classify(ctx, item)
		if err != nil {
			return 0, err
		}
		changes = append(changes, c)
	}
	defer func() {
		for _, c := range changes {
			m.auditChange(ctx, c.op, c.rec, started, affected(err), err)
		}
	}()

	if err := m.validate(ctx, changes...); err != nil {
		return 0, err
	}

	stmts := make([]statement.Statement, 0, len(changes))
	for i := range changes {
		c := &changes[i]
		if !m.hooks.BeforeSave(ctx, c.op, &c.rec) {
			return 0, m.aborted(c.op)
		}
		stmt, err := m.build(*c)
		if err != nil {
			return 0, err
		}
		stmts = append(stmts, stmt)
	}

	n, err = m.exec.Execute(ctx, stmts...)
	if err != nil {
		return 0, err
	}

	for _, c := range changes {
		if c.op == validation.OpInsert {
			m.hooks.Inserted(ctx, c.rec)
		} else {
			m.hooks.Updated(ctx, c.rec)
		}
	}
	return n, nil
}

// BuildCommands строит INSERT для записей без ключа и UPDATE для записей с ключом
func (m *Model) BuildCommands(ctx context.Context, items ...any) ([]statement.Statement, error) {
	out := make([]statement.Statement, 0, len(items))
	for _, item := range items {
		c, err := m.classify(ctx, item)
		if err != nil {
			return nil, err
		}
		stmt, err := m.build(c)
		if err != nil {
			return nil, err
		}
		out = append(out, stmt)
	}
	return out, nil
}

// IsValid выполняет проверку записи без изменения данных.
// Сообщения доступны через Errors.
func (m *Model) IsValid(ctx context.Context, input any) (bool, error) {
	c, err := m.classify(ctx, input)
	if err != nil {
		return false, err
	}
	if err := m.validate(ctx, c); err != nil {
		if errors.Is(err, errs.ErrValidation) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (m *Model) classify(ctx context.Context, item any) (change, error) {
	rec, err := m.normalizer.Normalize(ctx, item)
	if err != nil {
		return change{}, err
	}
	key, ok, _ := normalize.KeyOf(rec, m.binding.PrimaryKey)
	if ok {
		return change{op: validation.OpUpdate, rec: rec, key: key}, nil
	}
	// NULL ключ назначит база данных
	rec.Delete(m.binding.PrimaryKey)
	return change{op: validation.OpInsert, rec: rec, key: record.Null()}, nil
}

func (m *Model) build(c change) (statement.Statement, error) {
	if c.op == validation.OpUpdate {
		return m.builder.BuildUpdate(c.rec, c.key)
	}
	return m.builder.BuildInsert(c.rec)
}

// prepare проверяет запись и вызывает before-хук
func (m *Model) prepare(ctx context.Context, op validation.Operation, rec record.Record) (change, error) {
	key, _, _ := normalize.KeyOf(rec, m.binding.PrimaryKey)
	c := change{op: op, rec: rec, key: key}
	if err := m.validate(ctx, c); err != nil {
		return c, err
	}

	var allowed bool
	if op == validation.OpDelete {
		allowed = m.hooks.BeforeDelete(ctx, c.rec)
	} else {
		allowed = m.hooks.BeforeSave(ctx, op, &c.rec)
	}
	if !allowed {
		return c, m.aborted(op)
	}
	return c, nil
}

// validate сбрасывает ErrorSet и заполняет его хуком и правилами
func (m *Model) validate(ctx context.Context, changes ...change) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errors.Reset()
	for _, c := range changes {
		m.hooks.Validate(ctx, c.op, c.rec, &m.errors)
		if m.rules != nil {
			m.rules.Apply(&m.errors, c.rec, c.op)
		}
	}
	return m.errors.Err()
}

func (m *Model) aborted(op validation.Operation) error {
	return fmt.Errorf("%w: %s on %s", ErrAborted, op, m.binding.Table)
}

// auditChange пишет запись аудита. Ошибка журнала не влияет на результат операции.
func (m *Model) auditChange(ctx context.Context, op validation.Operation, rec record.Record, started time.Time, n int64, err error) {
	if m.audit == nil {
		return
	}

	entry := audit.NewEntry(audit.Operation(op), m.binding.Table).
		WithRecordsAffected(n).
		WithDuration(time.Since(started))
	if key, ok, _ := normalize.KeyOf(rec, m.binding.PrimaryKey); ok {
		entry.WithKey(key.String())
	}
	if rec.Len() > 0 {
		entry.WithFields(rec.Map())
	}
	switch {
	case errors.Is(err, ErrAborted):
		entry.WithStatus(audit.StatusAborted)
	case errors.Is(err, errs.ErrValidation):
		entry.WithStatus(audit.StatusInvalid)
	}
	entry.WithError(err)

	if logErr := m.audit.Log(ctx, entry); logErr != nil {
		m.logger.Warn().Err(logErr).Str("operation", string(op)).Msg("audit log failed")
	}
}

func affected(err error) int64 {
	if err != nil {
		return 0
	}
	return 1
}
