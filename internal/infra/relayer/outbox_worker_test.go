package relayer

import (
	"context"
	"errors"
	"reflect"
	"testing"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedEvents "github.com/davicafu/querylab/shared/events"
	sharedBus "github.com/davicafu/querylab/shared/platform/bus"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/davicafu/querylab/tests/mocks"
)

func TestOutboxWorker_ProcessBatch_Success(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	eventID := uuid.New()
	testEvent := sharedDomain.OutboxEvent{
		ID:        eventID,
		EventType: recordDomain.RecordCreated,
		Payload:   map[string]interface{}{"id": uuid.NewString(), "name": "backup-job"},
	}

	registry := map[string]sharedEvents.EventMetadata{
		recordDomain.RecordCreated: {
			Type:  reflect.TypeOf(recordDomain.Record{}),
			Topic: recordDomain.RecordTopic,
		},
	}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.IntegrationEvent")).Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, eventID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, registry, 0, 10, zap.NewNop())

	// ACT
	worker.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestOutboxWorker_ProcessBatch_PublishesTypedEnvelope(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	recordID := uuid.New()
	testEvent := sharedDomain.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: recordID.String(),
		EventType:   recordDomain.RecordDeleted,
		Payload:     recordDomain.Record{ID: recordID},
	}

	registry := map[string]sharedEvents.EventMetadata{
		recordDomain.RecordDeleted: {
			Type:  reflect.TypeOf(recordDomain.Record{}),
			Topic: recordDomain.RecordTopic,
		},
	}

	var published sharedEvents.IntegrationEvent
	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.IntegrationEvent")).
		Run(func(args mock.Arguments) {
			published = args.Get(1).(sharedEvents.IntegrationEvent)
		}).
		Return(nil).Once()
	repo.On("MarkOutboxProcessed", mock.Anything, testEvent.ID).Return(nil).Once()

	worker := NewOutboxWorker(repo, publisher, registry, 0, 10, zap.NewNop())

	// ACT
	worker.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)

	if published.Type != recordDomain.RecordDeleted {
		t.Fatalf("expected envelope type %q, got %q", recordDomain.RecordDeleted, published.Type)
	}

	// El envoltorio conserva la clave de partición del agregado.
	var _ sharedBus.Keyer = published
	if published.PartitionKey() != recordID.String() {
		t.Fatalf("expected partition key %q, got %q", recordID.String(), published.PartitionKey())
	}
}

func TestOutboxWorker_ProcessBatch_PublisherFails(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	eventID := uuid.New()
	testEvent := sharedDomain.OutboxEvent{ID: eventID, EventType: recordDomain.RecordCreated, Payload: map[string]interface{}{}}

	registry := map[string]sharedEvents.EventMetadata{
		recordDomain.RecordCreated: {
			Type:  reflect.TypeOf(recordDomain.Record{}),
			Topic: recordDomain.RecordTopic,
		},
	}

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("kafka is down")).Once()

	worker := NewOutboxWorker(repo, publisher, registry, 0, 10, zap.NewNop())

	// ACT
	worker.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertCalled(t, "FetchPendingOutbox", mock.Anything, 10)
	publisher.AssertCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestOutboxWorker_ProcessBatch_UnknownEventType(t *testing.T) {
	// ARRANGE
	repo := new(mocks.MockOutboxRepository)
	publisher := new(mocks.MockPublisher)

	testEvent := sharedDomain.OutboxEvent{ID: uuid.New(), EventType: "unregistered.event", Payload: map[string]interface{}{}}

	registry := make(map[string]sharedEvents.EventMetadata) // Registro vacío

	repo.On("FetchPendingOutbox", mock.Anything, 10).Return([]sharedDomain.OutboxEvent{testEvent}, nil).Once()

	worker := NewOutboxWorker(repo, publisher, registry, 0, 10, zap.NewNop())

	// ACT
	worker.ProcessBatch(context.Background())

	// ASSERT
	repo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

// Verificación estática de que los mocks cumplen las interfaces.
var _ sharedDomain.OutboxRepository = (*mocks.MockOutboxRepository)(nil)
var _ sharedBus.EventPublisher = (*mocks.MockPublisher)(nil)
