package database

import (
	"context"
	"time"

	"github.com/PancyStudios/GuildAuthBot/pkg/logger"
	"github.com/PancyStudios/GuildAuthBot/pkg/models"
	"github.com/PancyStudios/GuildAuthBot/pkg/questions"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names
const (
	collectionConfig       = "guild_config"
	collectionApplications = "auth_applications"
	collectionBlacklist    = "blacklist"
	collectionCounters     = "counters"
)

// configDocument is the stored shape of a GuildConfig
type configDocument struct {
	GuildID               string  `bson:"_id"`
	NotificationChannelID *string `bson:"notification_channel_id"`
	PanelChannelID        *string `bson:"panel_channel_id"`
	PanelMessageID        *string `bson:"panel_message_id"`
	PanelMessage          string  `bson:"auth_panel_message"`
	ModalQuestions        string  `bson:"modal_questions"`
	DMNotificationEnabled bool    `bson:"dm_notification_enabled"`
}

// MongoStore implements Store over MongoDB
type MongoStore struct {
	client       *mongo.Client
	db           *mongo.Database
	configs      *DataManager[configDocument]
	blacklist    *DataManager[models.BlacklistEntry]
	applications *DataManager[models.AuthApplication]
	counters     *mongo.Collection
}

// OpenMongo connects to MongoDB and ensures the indexes exist
func OpenMongo(ctx context.Context, mongoURL, dbName string) (*MongoStore, error) {
	logger.System("Intentando conectar a la base de datos...", "DB")

	connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		return nil, wrap("connect", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		_ = client.Disconnect(context.Background())
		return nil, wrap("ping", err)
	}

	s := newMongoStore(client, client.Database(dbName))
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	return s, nil
}

func newMongoStore(client *mongo.Client, db *mongo.Database) *MongoStore {
	return &MongoStore{
		client:       client,
		db:           db,
		configs:      NewDataManager[configDocument](db.Collection(collectionConfig)),
		blacklist:    NewDataManager[models.BlacklistEntry](db.Collection(collectionBlacklist)),
		applications: NewDataManager[models.AuthApplication](db.Collection(collectionApplications)),
		counters:     db.Collection(collectionCounters),
	}
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(collectionApplications).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "guild_id", Value: 1}},
			Options: options.Index().
				SetName("one_pending").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(models.StatusPending)}),
		},
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "guild_id", Value: 1}, {Key: "applied_at", Value: 1}},
			Options: options.Index().SetName("history"),
		},
	})
	if err != nil {
		return wrap("create indexes", err)
	}

	_, err = s.db.Collection(collectionBlacklist).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "guild_id", Value: 1}},
		Options: options.Index().SetName("pair").SetUnique(true),
	})
	return wrap("create indexes", err)
}

// Config

func (s *MongoStore) GetConfig(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	doc, err := s.configs.Get(ctx, bson.M{"_id": guildID})
	if err != nil {
		return nil, wrap("get config", err)
	}
	if doc == nil {
		return nil, nil
	}
	return &models.GuildConfig{
		GuildID:               doc.GuildID,
		NotificationChannelID: doc.NotificationChannelID,
		PanelChannelID:        doc.PanelChannelID,
		PanelMessageID:        doc.PanelMessageID,
		PanelMessage:          doc.PanelMessage,
		Questions:             questions.Parse(doc.ModalQuestions),
		DMNotificationEnabled: doc.DMNotificationEnabled,
	}, nil
}

func (s *MongoStore) UpsertConfig(ctx context.Context, cfg *models.GuildConfig) error {
	panelMessage := cfg.PanelMessage
	if panelMessage == "" {
		panelMessage = models.DefaultPanelMessage
	}
	_, err := s.configs.Set(ctx, bson.M{"_id": cfg.GuildID}, bson.M{
		"notification_channel_id": cfg.NotificationChannelID,
		"panel_channel_id":        cfg.PanelChannelID,
		"panel_message_id":        cfg.PanelMessageID,
		"auth_panel_message":      panelMessage,
		"modal_questions":         questions.Serialize(cfg.Questions),
		"dm_notification_enabled": cfg.DMNotificationEnabled,
	})
	return wrap("upsert config", err)
}

// Blacklist

func pairQuery(userID, guildID string) bson.M {
	return bson.M{"user_id": userID, "guild_id": guildID}
}

func (s *MongoStore) GetBlacklist(ctx context.Context, userID, guildID string) (*models.BlacklistEntry, error) {
	entry, err := s.blacklist.Get(ctx, pairQuery(userID, guildID))
	return entry, wrap("get blacklist", err)
}

func (s *MongoStore) UpsertBlacklist(ctx context.Context, entry *models.BlacklistEntry) error {
	_, err := s.blacklist.Set(ctx, pairQuery(entry.UserID, entry.GuildID), bson.M{
		"reason":   entry.Reason,
		"added_at": entry.AddedAt,
		"added_by": entry.AddedBy,
	})
	return wrap("upsert blacklist", err)
}

func (s *MongoStore) DeleteBlacklist(ctx context.Context, userID, guildID string) (bool, error) {
	deleted, err := s.blacklist.Delete(ctx, pairQuery(userID, guildID))
	return deleted, wrap("delete blacklist", err)
}

func (s *MongoStore) ListBlacklist(ctx context.Context, guildID string) ([]*models.BlacklistEntry, error) {
	entries, err := s.blacklist.GetAll(ctx, bson.M{"guild_id": guildID},
		options.Find().SetSort(bson.D{{Key: "added_at", Value: 1}}))
	return entries, wrap("list blacklist", err)
}

// Applications

func (s *MongoStore) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": collectionApplications},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	return counter.Seq, err
}

// InsertPending inserts first and trims afterwards: the partial unique index
// decides the race, and a failed trim only delays eviction to the next
// submission.
func (s *MongoStore) InsertPending(ctx context.Context, app *models.AuthApplication) (int64, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return 0, wrap("insert pending", err)
	}

	doc := *app
	doc.ID = id
	doc.Status = models.StatusPending
	doc.ProcessedAt, doc.ProcessorID, doc.Notes, doc.NotificationMessageID = nil, nil, nil, nil
	if doc.Answers == nil {
		doc.Answers = []string{}
	}

	col := s.db.Collection(collectionApplications)
	if _, err := col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, ErrDuplicatePending
		}
		return 0, wrap("insert pending", err)
	}

	if err := s.trimHistory(ctx, app.UserID, app.GuildID); err != nil {
		logger.Warn("No se pudo recortar el historial: "+err.Error(), "DB")
	}
	return id, nil
}

func (s *MongoStore) trimHistory(ctx context.Context, userID, guildID string) error {
	col := s.db.Collection(collectionApplications)

	total, err := col.CountDocuments(ctx, pairQuery(userID, guildID))
	if err != nil {
		return err
	}
	excess := total - models.HistoryLimit
	if excess <= 0 {
		return nil
	}

	query := pairQuery(userID, guildID)
	query["status"] = bson.M{"$ne": string(models.StatusPending)}
	oldest, err := s.applications.GetAll(ctx, query, options.Find().
		SetSort(bson.D{{Key: "applied_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(excess).
		SetProjection(bson.M{"_id": 1, "user_id": 1, "guild_id": 1}))
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(oldest))
	for _, app := range oldest {
		ids = append(ids, app.ID)
	}
	if len(ids) == 0 {
		return nil
	}
	_, err = col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return err
}

func (s *MongoStore) GetPending(ctx context.Context, userID, guildID string) (*models.AuthApplication, error) {
	query := pairQuery(userID, guildID)
	query["status"] = string(models.StatusPending)
	app, err := s.applications.Get(ctx, query)
	return app, wrap("get pending", err)
}

func (s *MongoStore) ResolvePending(ctx context.Context, id int64, res models.Resolution) (bool, error) {
	result, err := s.db.Collection(collectionApplications).UpdateOne(ctx,
		bson.M{"_id": id, "status": string(models.StatusPending)},
		bson.M{"$set": bson.M{
			"status":       string(res.Status),
			"processed_at": res.ProcessedAt,
			"processor_id": res.ProcessorID,
			"notes":        res.Notes,
		}},
	)
	if err != nil {
		return false, wrap("resolve pending", err)
	}
	return result.MatchedCount > 0, nil
}

func (s *MongoStore) SetNotificationMessage(ctx context.Context, id int64, messageID string) error {
	_, err := s.db.Collection(collectionApplications).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"notification_message_id": messageID}},
	)
	return wrap("set notification message", err)
}

func (s *MongoStore) ListHistory(ctx context.Context, userID, guildID string, limit int) ([]*models.AuthApplication, error) {
	apps, err := s.applications.GetAll(ctx, pairQuery(userID, guildID), options.Find().
		SetSort(bson.D{{Key: "applied_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)))
	return apps, wrap("list history", err)
}

func (s *MongoStore) CountByStatus(ctx context.Context, guildID string) (models.StatusCounts, error) {
	cursor, err := s.db.Collection(collectionApplications).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"guild_id": guildID}}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, wrap("count by status", err)
	}
	defer func() { _ = cursor.Close(ctx) }()

	counts := models.StatusCounts{}
	for cursor.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			Count  int    `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, wrap("count by status", err)
		}
		counts[models.Status(row.Status)] = row.Count
	}
	return counts, wrap("count by status", cursor.Err())
}

func (s *MongoStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return wrap("ping", s.client.Ping(ctx, readpref.Primary()))
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		return err
	}
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}
