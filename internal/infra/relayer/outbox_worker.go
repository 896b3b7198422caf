package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	sharedDomain "github.com/davicafu/hexacrud/shared/domain"
	sharedEvents "github.com/davicafu/hexacrud/shared/events"
	sharedBus "github.com/davicafu/hexacrud/shared/platform/bus"
	"go.uber.org/zap"
)

// Worker procesa eventos pendientes de la tabla outbox de forma genérica.
// Cada tipo de evento se publica en el bus de su topic.
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publishers    map[string]sharedBus.EventPublisher
	eventRegistry map[string]sharedEvents.EventMetadata
	interval      time.Duration
	batchSize     int
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publishers map[string]sharedBus.EventPublisher,
	registry map[string]sharedEvents.EventMetadata,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publishers:    publishers,
		eventRegistry: registry,
		interval:      interval,
		batchSize:     batchSize,
		log:           log,
	}
}

// Start inicia el bucle de polling del worker. Bloquea hasta que ctx se cancela.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 Outbox worker iniciado", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Outbox worker detenido.")
			return
		case <-ticker.C:
			w.log.Debug("🔄 Ejecutando polling de outbox")
			w.ProcessBatch(ctx)
		}
	}
}

// ProcessBatch publica un lote y devuelve cuántos eventos quedaron marcados.
func (w *Worker) ProcessBatch(ctx context.Context) int {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error al obtener eventos pendientes", zap.Error(err))
		return 0
	}
	if len(events) > 0 {
		w.log.Info(fmt.Sprintf("📬 %d eventos encontrados para procesar", len(events)))
	}

	done := 0
	for _, evt := range events {
		if w.publishAndMark(ctx, evt) {
			done++
		}
	}
	return done
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) bool {
	metadata, ok := w.eventRegistry[evt.EventType]
	if !ok {
		w.log.Error("Tipo de evento desconocido en registro", zap.String("event_type", evt.EventType))
		return false
	}
	publisher, ok := w.publishers[metadata.Topic]
	if !ok {
		w.log.Error("No hay publisher para el topic", zap.String("topic", metadata.Topic))
		return false
	}

	// El payload llega como struct (repos en memoria) o como JSON crudo (SQL,
	// Mongo). En ambos casos se valida contra el tipo registrado.
	typed := reflect.New(metadata.Type).Interface()
	payloadBytes, err := payloadJSON(evt.Payload)
	if err == nil {
		err = json.Unmarshal(payloadBytes, typed)
	}
	if err != nil {
		w.log.Error("Error al decodificar payload del evento", zap.String("event_id", evt.ID.String()), zap.Error(err))
		return false
	}

	integration, err := sharedEvents.NewIntegrationEvent(evt.EventType, partitionKey(evt, typed), typed)
	if err != nil {
		w.log.Error("Error al construir el evento de integración", zap.String("event_id", evt.ID.String()), zap.Error(err))
		return false
	}

	if err := publisher.Publish(ctx, integration); err != nil {
		w.log.Warn("⚠️ No se pudo publicar evento",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return false // se reintenta en el siguiente polling
	}

	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		w.log.Warn("⚠️ No se pudo marcar evento como procesado",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
		return false
	}
	w.log.Info("✅ Evento publicado y marcado", zap.String("event_id", evt.ID.String()))
	return true
}

func payloadJSON(payload interface{}) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	}
	return json.Marshal(payload)
}

func partitionKey(evt sharedDomain.OutboxEvent, typed interface{}) string {
	if keyer, ok := typed.(sharedBus.Keyer); ok {
		return keyer.PartitionKey()
	}
	return evt.AggregateID
}
