package model

import (
	"context"
	"errors"

	"github.com/ruslano69/tablekit/pkg/core/record"
	"github.com/ruslano69/tablekit/pkg/validation"
)

// ErrAborted - операцию отменил BeforeSave или BeforeDelete
var ErrAborted = errors.New("operation aborted by hook")

// Hooks - точки расширения вокруг изменяющих операций.
//
// Порядок: Validate → BeforeSave/BeforeDelete → команда → Inserted/Updated/Deleted.
// Before-хуки получают указатель и могут изменить запись до построения команды.
type Hooks interface {
	// Validate добавляет сообщения в set. Непустой set отменяет операцию.
	Validate(ctx context.Context, op validation.Operation, rec record.Record, set *validation.ErrorSet)

	// BeforeSave вызывается перед INSERT и UPDATE. false отменяет операцию.
	BeforeSave(ctx context.Context, op validation.Operation, rec *record.Record) bool

	// BeforeDelete вызывается перед DELETE. false отменяет операцию.
	BeforeDelete(ctx context.Context, rec record.Record) bool

	Inserted(ctx context.Context, rec record.Record)
	Updated(ctx context.Context, rec record.Record)
	Deleted(ctx context.Context, rec record.Record)
}

// NopHooks - хуки по умолчанию: все разрешено, ничего не делается.
// Встраивается в собственные реализации, чтобы переопределять только нужное.
type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) Validate(context.Context, validation.Operation, record.Record, *validation.ErrorSet) {}

func (NopHooks) BeforeSave(context.Context, validation.Operation, *record.Record) bool { return true }

func (NopHooks) BeforeDelete(context.Context, record.Record) bool { return true }

func (NopHooks) Inserted(context.Context, record.Record) {}

func (NopHooks) Updated(context.Context, record.Record) {}

func (NopHooks) Deleted(context.Context, record.Record) {}
