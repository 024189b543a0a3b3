package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clinic-chat/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

var ErrDuplicateMessage = errors.New("message already stored")

// MessageRepository is the durable record of chat messages. Every list is
// returned in the order messages were stored.
type MessageRepository interface {
	Save(ctx context.Context, msg *models.Message) error
	Between(ctx context.Context, user1, user2 string) ([]models.Message, error)
	ReceivedBy(ctx context.Context, receiverID string) ([]models.Message, error)
	ForDoctor(ctx context.Context, doctorID string) ([]models.Message, error)
	Involving(ctx context.Context, participantID string) ([]models.Message, error)
	Conversations(ctx context.Context, participantID string) ([]ConversationSummary, error)
}

// ConversationSummary describes one conversation a participant takes part in.
type ConversationSummary struct {
	ConversationKey string         `json:"conversationKey"`
	Participant     models.Contact `json:"participant"`
	LastMessage     models.Message `json:"lastMessage"`
}

// prepare fills the fields the store owns.
func prepare(msg *models.Message, now time.Time) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.ConversationKey = models.ConversationKey(msg.SenderID, msg.ReceiverID)
	msg.CreatedAt = now
	return nil
}

// summarize walks msgs oldest first and keeps the latest message per
// counterpart, ordered by first appearance.
func summarize(participantID string, msgs []models.Message) []ConversationSummary {
	out := make([]ConversationSummary, 0)
	index := make(map[string]int)
	for _, m := range msgs {
		other := m.Counterpart(participantID)
		if other == "" || other == participantID {
			continue
		}
		contact := models.Contact{ParticipantID: other, Role: m.ReceiverRole}
		if m.SenderID == other {
			contact.DisplayName = m.SenderName
			contact.Role = m.SenderRole
		}
		s := ConversationSummary{ConversationKey: m.Key(), Participant: contact, LastMessage: m}
		if i, ok := index[other]; ok {
			if s.Participant.DisplayName == "" {
				s.Participant.DisplayName = out[i].Participant.DisplayName
			}
			out[i] = s
			continue
		}
		index[other] = len(out)
		out = append(out, s)
	}
	return out
}

// GormRepository stores messages in MySQL or SQLite.
type GormRepository struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *GormRepository) Save(ctx context.Context, msg *models.Message) error {
	if err := prepare(msg, r.now()); err != nil {
		return err
	}
	msg.Seq = 0
	err := r.db.WithContext(ctx).Create(msg).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg.ID)
	}
	return err
}

func (r *GormRepository) find(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.WithContext(ctx).Where(query, args...).Order("seq ASC").Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

func (r *GormRepository) Between(ctx context.Context, user1, user2 string) ([]models.Message, error) {
	return r.find(ctx, "(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
		user1, user2, user2, user1)
}

func (r *GormRepository) ReceivedBy(ctx context.Context, receiverID string) ([]models.Message, error) {
	return r.find(ctx, "receiver_id = ?", receiverID)
}

// Involving returns every message the participant sent or received.
func (r *GormRepository) Involving(ctx context.Context, participantID string) ([]models.Message, error) {
	return r.find(ctx, "sender_id = ? OR receiver_id = ?", participantID, participantID)
}

func (r *GormRepository) ForDoctor(ctx context.Context, doctorID string) ([]models.Message, error) {
	return r.Involving(ctx, doctorID)
}

func (r *GormRepository) Conversations(ctx context.Context, participantID string) ([]ConversationSummary, error) {
	msgs, err := r.Involving(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return summarize(participantID, msgs), nil
}

// MongoRepository stores messages in a MongoDB collection. A counter
// document hands out the insertion sequence lists are sorted by.
type MongoRepository struct {
	coll     *mongo.Collection
	counters *mongo.Collection
	now      func() time.Time
}

const (
	messagesCollection = "messages"
	countersCollection = "counters"
)

// NewMongoRepository connects to uri and prepares the messages collection.
// The caller disconnects the returned client.
func NewMongoRepository(ctx context.Context, uri, database string) (*MongoRepository, *mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, nil, err
	}
	db := client.Database(database)
	coll := db.Collection(messagesCollection)
	_, err = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "senderId", Value: 1}, {Key: "receiverId", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "receiverId", Value: 1}, {Key: "seq", Value: 1}}},
	})
	if err != nil {
		client.Disconnect(ctx)
		return nil, nil, err
	}
	return &MongoRepository{
		coll:     coll,
		counters: db.Collection(countersCollection),
		now:      func() time.Time { return time.Now().UTC() },
	}, client, nil
}

// nextSeq atomically increments the message counter.
func (r *MongoRepository) nextSeq(ctx context.Context) (uint64, error) {
	var counter struct {
		Seq uint64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": messagesCollection},
		bson.M{"$inc": bson.M{"seq": 1}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next message sequence: %w", err)
	}
	return counter.Seq, nil
}

func (r *MongoRepository) Save(ctx context.Context, msg *models.Message) error {
	if err := prepare(msg, r.now()); err != nil {
		return err
	}
	seq, err := r.nextSeq(ctx)
	if err != nil {
		return err
	}
	msg.Seq = seq
	_, err = r.coll.InsertOne(ctx, msg)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateMessage, msg.ID)
	}
	return err
}

// insertionOrder sorts by the stored sequence. createdAt only has
// millisecond precision in BSON and cannot break ties.
func insertionOrder() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M) ([]models.Message, error) {
	cursor, err := r.coll.Find(ctx, filter, insertionOrder())
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	msgs := make([]models.Message, 0)
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *MongoRepository) Between(ctx context.Context, user1, user2 string) ([]models.Message, error) {
	return r.find(ctx, pairFilter(user1, user2))
}

func (r *MongoRepository) ReceivedBy(ctx context.Context, receiverID string) ([]models.Message, error) {
	return r.find(ctx, bson.M{"receiverId": receiverID})
}

// Involving returns every message the participant sent or received.
func (r *MongoRepository) Involving(ctx context.Context, participantID string) ([]models.Message, error) {
	return r.find(ctx, bson.M{"$or": bson.A{
		bson.M{"senderId": participantID},
		bson.M{"receiverId": participantID},
	}})
}

func (r *MongoRepository) ForDoctor(ctx context.Context, doctorID string) ([]models.Message, error) {
	return r.Involving(ctx, doctorID)
}

func (r *MongoRepository) Conversations(ctx context.Context, participantID string) ([]ConversationSummary, error) {
	msgs, err := r.Involving(ctx, participantID)
	if err != nil {
		return nil, err
	}
	return summarize(participantID, msgs), nil
}

// pairFilter matches the messages exchanged between two participants in
// either direction.
func pairFilter(user1, user2 string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"senderId": user1, "receiverId": user2},
		bson.M{"senderId": user2, "receiverId": user1},
	}}
}
