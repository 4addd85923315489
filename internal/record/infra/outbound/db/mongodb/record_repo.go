package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	recordDomain "github.com/davicafu/querylab/internal/record/domain"
	sharedDomain "github.com/davicafu/querylab/shared/domain"
	sharedQuery "github.com/davicafu/querylab/shared/platform/query"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// RecordRepoMongoDB implementa la interfaz RecordRepository para MongoDB.
type RecordRepoMongoDB struct {
	client      *mongo.Client
	dbName      string
	recordsColl *mongo.Collection
	outboxColl  *mongo.Collection
}

// NewRecordRepoMongoDB es el constructor del repositorio.
func NewRecordRepoMongoDB(ctx context.Context, client *mongo.Client, dbName string) (*RecordRepoMongoDB, error) {
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("could not ping mongoDB: %w", err)
	}

	db := client.Database(dbName)
	return &RecordRepoMongoDB{
		client:      client,
		dbName:      dbName,
		recordsColl: db.Collection("records"),
		outboxColl:  db.Collection("outbox"),
	}, nil
}

// --- Structs de BSON para el mapeo ---
// Se definen localmente para no "contaminar" el dominio con tags de BSON.

type mongoRecord struct {
	ID        uuid.UUID                 `bson:"_id"`
	Name      string                    `bson:"name"`
	Status    recordDomain.RecordStatus `bson:"status"`
	Priority  int                       `bson:"priority"`
	Notes     string                    `bson:"notes"`
	CreatedAt time.Time                 `bson:"createdAt"`
	UpdatedAt time.Time                 `bson:"updatedAt"`
}

type mongoOutboxEvent struct {
	ID            uuid.UUID   `bson:"_id"`
	AggregateType string      `bson:"aggregateType"`
	AggregateID   string      `bson:"aggregateId"`
	EventType     string      `bson:"eventType"`
	Payload       interface{} `bson:"payload"`
	CreatedAt     time.Time   `bson:"createdAt"`
	Processed     bool        `bson:"processed"`
}

func toMongoRecord(r *recordDomain.Record) mongoRecord {
	return mongoRecord{
		ID:        r.ID,
		Name:      r.Name,
		Status:    r.Status,
		Priority:  r.Priority,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (m mongoRecord) toDomain() *recordDomain.Record {
	return &recordDomain.Record{
		ID:        m.ID,
		Name:      m.Name,
		Status:    m.Status,
		Priority:  m.Priority,
		Notes:     m.Notes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toMongoOutboxEvent(evt sharedDomain.OutboxEvent) mongoOutboxEvent {
	return mongoOutboxEvent{
		ID:            evt.ID,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		EventType:     evt.EventType,
		Payload:       evt.Payload,
		CreatedAt:     evt.CreatedAt,
		Processed:     evt.Processed,
	}
}

// --- CRUD Transaccional ---

func (r *RecordRepoMongoDB) Create(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	// La transacción asegura que ambas inserciones sean atómicas.
	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		if _, err := r.recordsColl.InsertOne(sessCtx, toMongoRecord(rec)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, recordDomain.ErrRecordAlreadyExists
			}
			return nil, err
		}
		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *RecordRepoMongoDB) Update(ctx context.Context, rec *recordDomain.Record, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		m := toMongoRecord(rec)
		res, err := r.recordsColl.UpdateOne(sessCtx, bson.M{"_id": m.ID}, bson.M{"$set": m})
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return nil, recordDomain.ErrRecordNotFound
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *RecordRepoMongoDB) DeleteByID(ctx context.Context, id uuid.UUID, evt sharedDomain.OutboxEvent) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		res, err := r.recordsColl.DeleteOne(sessCtx, bson.M{"_id": id})
		if err != nil {
			return nil, err
		}
		if res.DeletedCount == 0 {
			return nil, recordDomain.ErrRecordNotFound
		}

		if _, err := r.outboxColl.InsertOne(sessCtx, toMongoOutboxEvent(evt)); err != nil {
			return nil, err
		}
		return nil, nil
	})

	return err
}

func (r *RecordRepoMongoDB) GetByID(ctx context.Context, id uuid.UUID) (*recordDomain.Record, error) {
	var m mongoRecord
	err := r.recordsColl.FindOne(ctx, bson.M{"_id": id}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, recordDomain.ErrRecordNotFound
		}
		return nil, err
	}
	return m.toDomain(), nil
}

// Operadores BSON por operador neutral.
var mongoOpByOperator = map[sharedDomain.Operator]string{
	sharedDomain.OpGt:  "$gt",
	sharedDomain.OpGte: "$gte",
	sharedDomain.OpLt:  "$lt",
	sharedDomain.OpLte: "$lte",
}

// ListByFilter traduce el filtro saneado a un documento BSON. Los nombres
// de campo del filtro coinciden con las claves BSON (camelCase), así que
// no hace falta mapeo de columnas como en los adapters SQL.
func (r *RecordRepoMongoDB) ListByFilter(ctx context.Context, f sharedDomain.Filter, pagination sharedQuery.Pagination, sort sharedQuery.Sort) ([]*recordDomain.Record, error) {
	query := bson.M{}
	for _, cond := range f.ToConditions() {
		switch cond.Op {
		case sharedDomain.OpLike, sharedDomain.OpILike:
			query[cond.Field] = bson.M{"$regex": primitive.Regex{
				Pattern: fmt.Sprintf("%v", cond.Value),
				Options: "i",
			}}
		case sharedDomain.OpEq:
			query[cond.Field] = cond.Value
		default:
			mongoOp, ok := mongoOpByOperator[cond.Op]
			if !ok {
				query[cond.Field] = cond.Value
				continue
			}
			query[cond.Field] = bson.M{mongoOp: cond.Value}
		}
	}

	findOpts := options.Find()

	sortField := sort.Field
	if sortField == "" {
		sortField = "createdAt"
	}
	dir := 1
	if sort.Desc {
		dir = -1
	}
	findOpts.SetSort(bson.D{{Key: sortField, Value: dir}})

	if p, ok := pagination.(sharedQuery.OffsetPagination); ok {
		if p.Limit > 0 {
			findOpts.SetLimit(int64(p.Limit))
		}
		findOpts.SetSkip(int64(p.Offset))
	}

	cursor, err := r.recordsColl.Find(ctx, query, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []*recordDomain.Record
	for cursor.Next(ctx) {
		var m mongoRecord
		if err := cursor.Decode(&m); err != nil {
			return nil, err
		}
		records = append(records, m.toDomain())
	}

	return records, cursor.Err()
}

var _ recordDomain.RecordRepository = (*RecordRepoMongoDB)(nil)
