// Package metrics экспортирует prometheus метрики слоя доступа к данным.
//
// Метрики регистрируются в глобальном реестре через promauto при импорте
// пакета; HTTP endpoint для них поднимает вызывающий код.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// statementsTotal counts executed statements by kind (query, scalar, exec, insert) and status.
	statementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablekit_statements_total",
			Help: "Total number of executed statements",
		},
		[]string{"kind", "status"},
	)

	// statementDuration tracks statement latency by kind.
	statementDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tablekit_statement_duration_seconds",
			Help:    "Statement execution duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// rowsRead counts rows materialized from result cursors.
	rowsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tablekit_rows_read_total",
			Help: "Total number of rows read from result sets",
		},
	)

	// schemaLoads counts schema cache fills by source (database, store).
	schemaLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tablekit_schema_loads_total",
			Help: "Total number of schema cache fills",
		},
		[]string{"source"},
	)
)

// ObserveStatement фиксирует выполнение одной команды
func ObserveStatement(kind string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	statementsTotal.WithLabelValues(kind, status).Inc()
	statementDuration.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

// AddRowsRead увеличивает счетчик прочитанных строк
func AddRowsRead(n int) {
	if n > 0 {
		rowsRead.Add(float64(n))
	}
}

// SchemaLoaded фиксирует заполнение кэша схемы
func SchemaLoaded(source string) {
	schemaLoads.WithLabelValues(source).Inc()
}
